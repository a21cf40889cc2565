package signal

// Convention is how an exported function reports failure.
type Convention uint8

const (
	// Infallible functions have no failure representation. Every input
	// in their domain produces a valid result.
	Infallible Convention = iota

	// Sentinel functions return a reserved value (null pointer, zero
	// handle, -1) on failure. last_error_code holds the reason.
	Sentinel

	// Tagged functions write {success, value, code} through a result
	// pointer because every value of the result type is meaningful.
	Tagged

	// Status functions return a Code and deliver values through out
	// pointers, which are only valid when the code is Ok.
	Status

	// Release functions consume an owned buffer or handle. Null and stale
	// arguments are no-ops.
	Release
)

var conventionNames = [...]string{
	Infallible: "infallible",
	Sentinel:   "sentinel",
	Tagged:     "tagged",
	Status:     "status",
	Release:    "release",
}

func (c Convention) String() string {
	if int(c) < len(conventionNames) {
		return conventionNames[c]
	}
	return "unknown"
}

// CanFail reports whether functions using c report failure codes.
func (c Convention) CanFail() bool {
	return c == Sentinel || c == Tagged || c == Status
}
