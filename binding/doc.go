// Package binding is the in-process Go host for the exported surface.
//
// A Session owns a private address space and calls surface functions the
// way a generated ctypes or ffi-napi wrapper would: Go values are copied
// into the space, the error signal of each function's convention is
// checked and turned into a *signal.Error, and every owned string, buffer
// and handle is released exactly once.
//
//	s, err := binding.NewSession(binding.Options{})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	c, _ := s.NewCounter(10)
//	defer c.Close()
//	_ = c.Increment()
//	v, _ := c.Value() // 11
//
// Call accepts loosely typed arguments for tools that only know a symbol
// name; ParseArgs converts command-line text into those arguments.
package binding
