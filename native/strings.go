package native

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wippyai/ffi-bridge/errors"
)

// Greet returns the greeting for name.
func Greet(name string) string {
	return fmt.Sprintf("Hello, %s! Welcome from Go.", name)
}

// ToUpper upper-cases s using Unicode case mapping.
func ToUpper(s string) string {
	return strings.ToUpper(s)
}

// Reverse reverses s by code point.
func Reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// Length returns the number of code points in s.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

// WordCount returns the number of whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// IsPalindrome compares the letters and digits of s case-insensitively,
// ignoring everything else.
func IsPalindrome(s string) bool {
	var cleaned []rune
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cleaned = append(cleaned, unicode.ToLower(r))
		}
	}
	for i, j := 0, len(cleaned)-1; i < j; i, j = i+1, j-1 {
		if cleaned[i] != cleaned[j] {
			return false
		}
	}
	return true
}

// WordFrequency counts lower-cased whitespace-separated words.
func WordFrequency(s string) map[string]int {
	freq := make(map[string]int)
	for _, w := range strings.Fields(s) {
		freq[strings.ToLower(w)]++
	}
	return freq
}

// ParseInt parses a base-10 int32 with an optional sign.
func ParseInt(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseCall, errors.KindInvalidInput, err, "not a 32-bit integer")
	}
	return int32(v), nil
}

// CopyString returns src as a NUL-terminated byte slice if it fits in a
// destination of destLen bytes.
func CopyString(src string, destLen uint32) ([]byte, error) {
	need := uint64(len(src)) + 1
	if need > uint64(destLen) {
		if need > uint64(^uint32(0)) {
			need = uint64(^uint32(0))
		}
		return nil, errors.BufferTooSmall(uint32(need), destLen)
	}
	out := make([]byte, len(src)+1)
	copy(out, src)
	return out, nil
}
