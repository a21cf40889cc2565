package binding

import (
	"strconv"
	"strings"

	"github.com/wippyai/ffi-bridge/abi"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/handle"
	"github.com/wippyai/ffi-bridge/native"
	"github.com/wippyai/ffi-bridge/surface"
)

// Inputs returns the parameters of f that take a caller-supplied
// argument. Out scalars and array lengths are filled in by the session.
func Inputs(f *surface.Function) []abi.Param {
	var in []abi.Param
	params := f.Signature.Params
	for i := 0; i < len(params); i++ {
		t := params[i].Type
		if t.Kind == abi.KindPointer && t.Access == abi.AccessOut && t.Pointee == abi.PointeeScalar {
			continue
		}
		in = append(in, params[i])
		if t.Kind == abi.KindPointer && t.Pointee == abi.PointeeArray {
			i++
		}
	}
	return in
}

// ParseArgs converts textual arguments into the Go values Call expects
// for f. Arrays are comma separated ("3,1,2"), points are "x,y", and an
// out byte buffer is given by its size.
func ParseArgs(f *surface.Function, raw []string) ([]any, error) {
	in := Inputs(f)
	if len(raw) != len(in) {
		return nil, errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
			Path(f.Name).
			Detail("got %d arguments, want %d", len(raw), len(in)).
			Build()
	}

	args := make([]any, len(in))
	for i, p := range in {
		v, err := parseArg(p.Type, raw[i])
		if err != nil {
			return nil, errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
				Path(f.Name, p.Name).
				CType(p.Type.CName()).
				Value(raw[i]).
				Cause(err).
				Build()
		}
		args[i] = v
	}
	return args, nil
}

func parseArg(t abi.Type, s string) (any, error) {
	switch t.Kind {
	case abi.KindS32:
		n, err := strconv.ParseInt(s, 10, 32)
		return int32(n), err
	case abi.KindU32:
		n, err := strconv.ParseUint(s, 10, 32)
		return uint32(n), err
	case abi.KindF64:
		return strconv.ParseFloat(s, 64)
	case abi.KindHandle:
		n, err := strconv.ParseUint(s, 0, 32)
		return handle.Handle(n), err
	case abi.KindStruct:
		return parsePoint(s)
	}

	switch t.Pointee {
	case abi.PointeeCString:
		if t.Owned() {
			return parseAddr(s)
		}
		return s, nil
	case abi.PointeeArray:
		return parseInt32s(s)
	case abi.PointeeStruct:
		p, err := parsePoint(s)
		return &p, err
	case abi.PointeeBytes:
		if t.Owned() {
			return parseAddr(s)
		}
		n, err := strconv.ParseUint(s, 10, 32)
		return make([]byte, n), err
	}
	return nil, errors.Unsupported(errors.PhaseMarshal, t.String())
}

func parseAddr(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 0, 32)
	return uint32(n), err
}

func parseInt32s(s string) ([]int32, error) {
	values := []int32{}
	if strings.TrimSpace(s) == "" {
		return values, nil
	}
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return nil, err
		}
		values = append(values, int32(n))
	}
	return values, nil
}

func parsePoint(s string) (native.Point, error) {
	x, y, ok := strings.Cut(s, ",")
	if !ok {
		return native.Point{}, errors.InvalidInput(errors.PhaseMarshal, "point must be x,y")
	}
	px, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
	if err != nil {
		return native.Point{}, err
	}
	py, err := strconv.ParseFloat(strings.TrimSpace(y), 64)
	if err != nil {
		return native.Point{}, err
	}
	return native.Point{X: px, Y: py}, nil
}
