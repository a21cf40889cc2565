package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/ffi-bridge/handle"
	"github.com/wippyai/ffi-bridge/native"
)

// formatValue renders one decoded result for the terminal.
func formatValue(v any) string {
	switch v := v.(type) {
	case string:
		return strconv.Quote(v)
	case handle.Handle:
		return fmt.Sprintf("handle %#x", uint32(v))
	case native.Point:
		return formatPoint(v)
	case *native.Point:
		return formatPoint(*v)
	case []int32:
		parts := make([]string, len(v))
		for i, n := range v {
			parts[i] = strconv.FormatInt(int64(n), 10)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}

func formatPoint(p native.Point) string {
	return "(" + strconv.FormatFloat(p.X, 'g', -1, 64) + ", " + strconv.FormatFloat(p.Y, 'g', -1, 64) + ")"
}

func formatResults(values []any) string {
	if len(values) == 0 {
		return "ok"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatValue(v)
	}
	return strings.Join(parts, " ")
}
