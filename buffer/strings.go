package buffer

import (
	"bytes"
	"strings"
	"unicode/utf8"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/errors"
)

// DefaultMaxStringLen bounds how far ReadCString scans for a terminator.
const DefaultMaxStringLen = 1 << 20

// ReadCString copies a borrowed NUL-terminated UTF-8 string out of mem.
// The caller keeps ownership of ptr; nothing is retained past the call.
func ReadCString(mem ffibridge.Memory, ptr uint32, limit uint32) (string, error) {
	if ptr == 0 {
		return "", errors.NullInput(errors.PhaseUnmarshal, "cstring")
	}
	if limit == 0 {
		limit = DefaultMaxStringLen
	}

	var data []byte
	if sizer, ok := mem.(ffibridge.MemorySizer); ok {
		size := sizer.Size()
		if ptr >= size {
			return "", errors.OutOfBounds(errors.PhaseUnmarshal, []string{"cstring"}, ptr, 1)
		}
		window := size - ptr
		if window > limit+1 {
			window = limit + 1
		}
		view, err := mem.Read(ptr, window)
		if err != nil {
			return "", errors.New(errors.PhaseUnmarshal, errors.KindOutOfBounds).Cause(err).Build()
		}
		n := bytes.IndexByte(view, 0)
		if n < 0 {
			return "", unterminated(window > limit, limit)
		}
		data = view[:n]
	} else {
		var b []byte
		for i := uint32(0); ; i++ {
			if i > limit {
				return "", unterminated(true, limit)
			}
			c, err := mem.ReadU8(ptr + i)
			if err != nil {
				return "", errors.New(errors.PhaseUnmarshal, errors.KindOutOfBounds).Cause(err).Build()
			}
			if c == 0 {
				break
			}
			b = append(b, c)
		}
		data = b
	}

	if !utf8.Valid(data) {
		return "", errors.InvalidUTF8(errors.PhaseUnmarshal, []string{"cstring"}, data)
	}
	return string(data), nil
}

func unterminated(tooLong bool, limit uint32) error {
	if tooLong {
		return errors.New(errors.PhaseUnmarshal, errors.KindInvalidInput).
			Detail("string exceeds %d bytes", limit).
			Build()
	}
	return errors.New(errors.PhaseUnmarshal, errors.KindOutOfBounds).
		Detail("string is not NUL-terminated before end of memory").
		Build()
}

// ReadString copies length bytes of borrowed UTF-8 text.
func ReadString(mem ffibridge.Memory, ptr, length uint32) (string, error) {
	data, err := ReadBytes(mem, ptr, length)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.InvalidUTF8(errors.PhaseUnmarshal, []string{"string"}, data)
	}
	return string(data), nil
}

// ReadBytes copies length borrowed bytes. A null pointer is accepted only
// for an empty range.
func ReadBytes(mem ffibridge.Memory, ptr, length uint32) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}
	if ptr == 0 {
		return nil, errors.NullInput(errors.PhaseUnmarshal, "bytes")
	}
	view, err := mem.Read(ptr, length)
	if err != nil {
		return nil, errors.New(errors.PhaseUnmarshal, errors.KindOutOfBounds).
			Detail("read %d bytes at %#x", length, ptr).
			Cause(err).
			Build()
	}
	return bytes.Clone(view), nil
}

// WriteCString allocates len(s)+1 bytes, copies s and a NUL terminator, and
// returns the address. Ownership of the buffer passes to the caller, who
// must release it through the allocator that made it.
func WriteCString(mem ffibridge.Memory, alloc ffibridge.Allocator, s string) (uint32, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return 0, errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
			Detail("string contains an interior NUL").
			Build()
	}
	data := make([]byte, len(s)+1)
	copy(data, s)
	return WriteBytes(mem, alloc, data, 1)
}

// WriteBytes allocates a buffer holding a copy of data and returns its
// address. On a failed write the allocation is rolled back.
func WriteBytes(mem ffibridge.Memory, alloc ffibridge.Allocator, data []byte, align uint32) (uint32, error) {
	if uint64(len(data)) > uint64(^uint32(0)) {
		return 0, errors.Overflow(errors.PhaseMarshal, nil, len(data), "u32")
	}
	size := uint32(len(data))

	ptr, err := alloc.Alloc(size, align)
	if err != nil {
		return 0, err
	}
	if err := mem.Write(ptr, data); err != nil {
		alloc.Free(ptr, allocSize(size), align)
		return 0, errors.New(errors.PhaseMarshal, errors.KindOutOfBounds).Cause(err).Build()
	}
	return ptr, nil
}

func allocSize(size uint32) uint32 {
	if size == 0 {
		return 1
	}
	return size
}
