package buffer

import (
	"encoding/binary"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/abi"
	"github.com/wippyai/ffi-bridge/errors"
)

// ReadInt32s copies count little-endian int32 values from a borrowed array.
func ReadInt32s(mem ffibridge.Memory, ptr, count uint32) ([]int32, error) {
	if count > abi.MaxArrayLen {
		return nil, errors.New(errors.PhaseUnmarshal, errors.KindInvalidInput).
			Detail("array length %d exceeds %d", count, abi.MaxArrayLen).
			Build()
	}
	data, err := ReadBytes(mem, ptr, count*4)
	if err != nil {
		return nil, err
	}
	out := make([]int32, count)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}

// WriteInt32sAt writes values into a caller-owned array at ptr.
func WriteInt32sAt(mem ffibridge.Memory, ptr uint32, values []int32) error {
	if len(values) == 0 {
		return nil
	}
	if ptr == 0 {
		return errors.NullInput(errors.PhaseMarshal, "array")
	}
	return mem.Write(ptr, encodeInt32s(values))
}

// WriteInt32s allocates an owned array holding values and returns its
// address. The buffer is len(values)*4 bytes.
func WriteInt32s(mem ffibridge.Memory, alloc ffibridge.Allocator, values []int32) (uint32, error) {
	if uint64(len(values)) > abi.MaxArrayLen {
		return 0, errors.Overflow(errors.PhaseMarshal, nil, len(values), "u32")
	}
	return WriteBytes(mem, alloc, encodeInt32s(values), 4)
}

func encodeInt32s(values []int32) []byte {
	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(v))
	}
	return data
}
