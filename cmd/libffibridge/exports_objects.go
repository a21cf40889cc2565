package main

/*
#include "ffibridge_types.h"
*/
import "C"

import (
	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/handle"
	"github.com/wippyai/ffi-bridge/native"
	"github.com/wippyai/ffi-bridge/signal"
)

// create stores the object built by fn and returns its handle, or 0.
func create[T any](name string, table *handle.Typed[T], fn func() (T, error)) uint32 {
	return sentinel(name, uint32(0), func() (uint32, signal.Code) {
		obj, err := fn()
		if err != nil {
			return 0, signal.FromError(err)
		}
		h, err := table.Insert(obj)
		if err != nil {
			return 0, signal.FromError(err)
		}
		return uint32(h), signal.Ok
	})
}

func destroy[T any](table *handle.Typed[T], h uint32) {
	if h != 0 && !table.Destroy(handle.Handle(h)) {
		lib.logger.Debug("destroy of stale handle ignored",
			zap.String("type", table.Name()),
			zap.Uint32("handle", h))
	}
}

// method resolves h and runs fn on the object as a status function.
func method[T any](name string, table *handle.Typed[T], h uint32, fn func(T) error) C.int32_t {
	return status(name, func() signal.Code {
		obj, err := table.Get(handle.Handle(h))
		if err != nil {
			return signal.FromError(err)
		}
		return signal.FromError(fn(obj))
	})
}

// getter is method for functions writing through an out pointer, which is
// checked before the handle.
func getter[T, V any](name string, table *handle.Typed[T], h uint32, out *V, fn func(T) V) C.int32_t {
	if out == nil {
		return status(name, func() signal.Code { return signal.NullInput })
	}
	return method(name, table, h, func(obj T) error {
		*out = fn(obj)
		return nil
	})
}

func do[T any](fn func(T)) func(T) error {
	return func(obj T) error {
		fn(obj)
		return nil
	}
}

//export counter_new
func counter_new(start C.int32_t) C.ffi_counter {
	return C.ffi_counter(create("counter_new", lib.counters, func() (*native.Counter, error) {
		return native.NewCounter(int32(start)), nil
	}))
}

//export counter_destroy
func counter_destroy(h C.ffi_counter) { destroy(lib.counters, uint32(h)) }

//export counter_value
func counter_value(h C.ffi_counter, out *C.int32_t) C.int32_t {
	return getter("counter_value", lib.counters, uint32(h), out, func(c *native.Counter) C.int32_t {
		return C.int32_t(c.Value())
	})
}

//export counter_increment
func counter_increment(h C.ffi_counter) C.int32_t {
	return method("counter_increment", lib.counters, uint32(h), do((*native.Counter).Increment))
}

//export counter_decrement
func counter_decrement(h C.ffi_counter) C.int32_t {
	return method("counter_decrement", lib.counters, uint32(h), do((*native.Counter).Decrement))
}

//export counter_increment_by
func counter_increment_by(h C.ffi_counter, amount C.int32_t) C.int32_t {
	return method("counter_increment_by", lib.counters, uint32(h), do(func(c *native.Counter) {
		c.IncrementBy(int32(amount))
	}))
}

//export counter_reset
func counter_reset(h C.ffi_counter) C.int32_t {
	return method("counter_reset", lib.counters, uint32(h), do((*native.Counter).Reset))
}

//export calculator_new
func calculator_new() C.ffi_calculator {
	return C.ffi_calculator(create("calculator_new", lib.calculators, func() (*native.Calculator, error) {
		return native.NewCalculator(), nil
	}))
}

//export calculator_destroy
func calculator_destroy(h C.ffi_calculator) { destroy(lib.calculators, uint32(h)) }

// operand runs an operation taking one f64 on a calculator.
func operand(name string, h C.ffi_calculator, n C.double, fn func(*native.Calculator, float64) error) C.int32_t {
	return method(name, lib.calculators, uint32(h), func(c *native.Calculator) error {
		return fn(c, float64(n))
	})
}

func infallible(fn func(*native.Calculator, float64)) func(*native.Calculator, float64) error {
	return func(c *native.Calculator, n float64) error {
		fn(c, n)
		return nil
	}
}

//export calculator_add
func calculator_add(h C.ffi_calculator, n C.double) C.int32_t {
	return operand("calculator_add", h, n, infallible((*native.Calculator).Add))
}

//export calculator_subtract
func calculator_subtract(h C.ffi_calculator, n C.double) C.int32_t {
	return operand("calculator_subtract", h, n, infallible((*native.Calculator).Subtract))
}

//export calculator_multiply
func calculator_multiply(h C.ffi_calculator, n C.double) C.int32_t {
	return operand("calculator_multiply", h, n, infallible((*native.Calculator).Multiply))
}

//export calculator_divide
func calculator_divide(h C.ffi_calculator, n C.double) C.int32_t {
	return operand("calculator_divide", h, n, (*native.Calculator).Divide)
}

//export calculator_result
func calculator_result(h C.ffi_calculator, out *C.double) C.int32_t {
	return getter("calculator_result", lib.calculators, uint32(h), out, func(c *native.Calculator) C.double {
		return C.double(c.Result())
	})
}

//export calculator_reset
func calculator_reset(h C.ffi_calculator) C.int32_t {
	return method("calculator_reset", lib.calculators, uint32(h), do((*native.Calculator).Reset))
}

//export person_new
func person_new(name *C.char, age C.int32_t) C.ffi_person {
	return C.ffi_person(create("person_new", lib.people, func() (*native.Person, error) {
		s, err := goString(name, "name")
		if err != nil {
			return nil, err
		}
		return native.NewPerson(s, int32(age))
	}))
}

//export person_destroy
func person_destroy(h C.ffi_person) { destroy(lib.people, uint32(h)) }

//export person_greet
func person_greet(h C.ffi_person) *C.char {
	return sentinel("person_greet", (*C.char)(nil), func() (*C.char, signal.Code) {
		p, err := lib.people.Get(handle.Handle(h))
		if err != nil {
			return nil, signal.FromError(err)
		}
		out, err := lib.allocs.cstring(p.Greet())
		if err != nil {
			return nil, signal.FromError(err)
		}
		return out, signal.Ok
	})
}

//export person_age
func person_age(h C.ffi_person, out *C.int32_t) C.int32_t {
	return getter("person_age", lib.people, uint32(h), out, func(p *native.Person) C.int32_t {
		return C.int32_t(p.Age())
	})
}

//export person_birthday
func person_birthday(h C.ffi_person) C.int32_t {
	return method("person_birthday", lib.people, uint32(h), do((*native.Person).Birthday))
}

//export person_is_adult
func person_is_adult(h C.ffi_person) C.int32_t {
	return sentinel("person_is_adult", C.int32_t(-1), func() (C.int32_t, signal.Code) {
		p, err := lib.people.Get(handle.Handle(h))
		if err != nil {
			return -1, signal.FromError(err)
		}
		if p.IsAdult() {
			return 1, signal.Ok
		}
		return 0, signal.Ok
	})
}
