package surface

import (
	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/abi"
	"github.com/wippyai/ffi-bridge/handle"
	"github.com/wippyai/ffi-bridge/layout"
	"github.com/wippyai/ffi-bridge/native"
	"github.com/wippyai/ffi-bridge/signal"
)

// method resolves the handle in slot 0 before running fn.
func method[T any](table func(*Env) *handle.Typed[T], fn func(*Call, T) signal.Code) Impl {
	return func(c *Call) signal.Code {
		obj, err := table(c.Env).Get(c.Handle(0))
		if err != nil {
			return c.Fail(err)
		}
		return fn(c, obj)
	}
}

// returnHandle stores obj and hands its handle to the caller.
func returnHandle[T any](c *Call, table *handle.Typed[T], obj T) signal.Code {
	h, err := table.Insert(obj)
	if err != nil {
		return c.Fail(err)
	}
	c.ReturnU32(uint32(h))
	return signal.Ok
}

func destroy[T any](name string, table func(*Env) *handle.Typed[T]) *Function {
	return &Function{
		Name:       name + "_destroy",
		Doc:        "Destroys a " + name + ". Zero and stale handles are no-ops.",
		Signature:  abi.Signature{Params: []abi.Param{param("h", abi.Handle(name, abi.AccessOwned))}},
		Convention: signal.Release,
		Impl: func(c *Call) signal.Code {
			h := c.Handle(0)
			if h != 0 && !table(c.Env).Destroy(h) {
				Logger().Debug("destroy of stale handle ignored",
					zap.String("type", name),
					zap.Uint32("handle", uint32(h)))
			}
			return signal.Ok
		},
	}
}

// action builds a status function taking only a handle.
func action[T any](name, doc string, borrow abi.Type, table func(*Env) *handle.Typed[T], fn func(T)) *Function {
	return &Function{
		Name:       name,
		Doc:        doc,
		Signature:  abi.Signature{Params: []abi.Param{param("h", borrow)}, Result: status()},
		Convention: signal.Status,
		Failures:   handleFailures,
		Impl: method(table, func(c *Call, obj T) signal.Code {
			fn(obj)
			return c.ReturnStatus()
		}),
	}
}

// getter builds a status function writing one value through an out pointer.
func getter[T any](name, doc string, borrow abi.Type, elem abi.Kind, table func(*Env) *handle.Typed[T], fn func(*Call, uint32, T) error) *Function {
	return &Function{
		Name: name,
		Doc:  doc,
		Signature: abi.Signature{
			Params: []abi.Param{param("h", borrow), param("out", abi.Out(elem))},
			Result: status(),
		},
		Convention: signal.Status,
		Failures:   readFailures,
		Impl: func(c *Call) signal.Code {
			out := c.Ptr(1)
			if out == 0 {
				return signal.NullInput
			}
			return method(table, func(c *Call, obj T) signal.Code {
				if err := fn(c, out, obj); err != nil {
					return c.Fail(err)
				}
				return c.ReturnStatus()
			})(c)
		},
	}
}

func counters(e *Env) *handle.Typed[*native.Counter]       { return e.Counters }
func calculators(e *Env) *handle.Typed[*native.Calculator] { return e.Calculators }
func people(e *Env) *handle.Typed[*native.Person]          { return e.People }

func counterFunctions() []*Function {
	return []*Function{
		{
			Name: "counter_new",
			Doc:  "Creates a counter starting at start. Destroy with counter_destroy.",
			Signature: abi.Signature{
				Params: []abi.Param{param("start", abi.S32)},
				Result: abi.Returns(abi.Handle("counter", abi.AccessOwned)),
			},
			Convention: signal.Sentinel,
			Failures:   createFailures,
			Impl: func(c *Call) signal.Code {
				return returnHandle(c, c.Env.Counters, native.NewCounter(c.I32(0)))
			},
		},
		destroy("counter", counters),
		getter("counter_value", "Writes the current value to *out.", counterBorrow, abi.KindS32, counters,
			func(c *Call, out uint32, obj *native.Counter) error {
				return c.WriteU32(out, uint32(obj.Value()))
			}),
		action("counter_increment", "Adds one, saturating.", counterBorrow, counters, (*native.Counter).Increment),
		action("counter_decrement", "Subtracts one, saturating.", counterBorrow, counters, (*native.Counter).Decrement),
		{
			Name: "counter_increment_by",
			Doc:  "Adds amount, saturating.",
			Signature: abi.Signature{
				Params: []abi.Param{param("h", counterBorrow), param("amount", abi.S32)},
				Result: status(),
			},
			Convention: signal.Status,
			Failures:   handleFailures,
			Impl: method(counters, func(c *Call, obj *native.Counter) signal.Code {
				obj.IncrementBy(c.I32(1))
				return c.ReturnStatus()
			}),
		},
		action("counter_reset", "Sets the counter to zero.", counterBorrow, counters, (*native.Counter).Reset),
	}
}

func calculatorFunctions() []*Function {
	operand := func(name, doc string, failures []signal.Code, fn func(*native.Calculator, float64) error) *Function {
		return &Function{
			Name: name,
			Doc:  doc,
			Signature: abi.Signature{
				Params: []abi.Param{param("h", calculatorBorrow), param("n", abi.F64)},
				Result: status(),
			},
			Convention: signal.Status,
			Failures:   failures,
			Impl: method(calculators, func(c *Call, obj *native.Calculator) signal.Code {
				if err := fn(obj, c.F64(1)); err != nil {
					return c.Fail(err)
				}
				return c.ReturnStatus()
			}),
		}
	}
	infallible := func(fn func(*native.Calculator, float64)) func(*native.Calculator, float64) error {
		return func(obj *native.Calculator, n float64) error {
			fn(obj, n)
			return nil
		}
	}

	return []*Function{
		{
			Name:       "calculator_new",
			Doc:        "Creates a calculator holding zero. Destroy with calculator_destroy.",
			Signature:  abi.Signature{Result: abi.Returns(abi.Handle("calculator", abi.AccessOwned))},
			Convention: signal.Sentinel,
			Failures:   createFailures,
			Impl: func(c *Call) signal.Code {
				return returnHandle(c, c.Env.Calculators, native.NewCalculator())
			},
		},
		destroy("calculator", calculators),
		operand("calculator_add", "Adds n to the value.", handleFailures, infallible((*native.Calculator).Add)),
		operand("calculator_subtract", "Subtracts n from the value.", handleFailures, infallible((*native.Calculator).Subtract)),
		operand("calculator_multiply", "Multiplies the value by n.", handleFailures, infallible((*native.Calculator).Multiply)),
		operand("calculator_divide", "Divides the value by n. Zero fails with domain_error and leaves the value unchanged.",
			[]signal.Code{signal.InvalidInput, signal.DomainError}, (*native.Calculator).Divide),
		getter("calculator_result", "Writes the current value to *out.", calculatorBorrow, abi.KindF64, calculators,
			func(c *Call, out uint32, obj *native.Calculator) error {
				return c.WriteU64(out, layout.F64(obj.Result()))
			}),
		action("calculator_reset", "Sets the value to zero.", calculatorBorrow, calculators, (*native.Calculator).Reset),
	}
}

func personFunctions() []*Function {
	return []*Function{
		{
			Name: "person_new",
			Doc:  "Creates a person. A negative age fails with invalid_input. Destroy with person_destroy.",
			Signature: abi.Signature{
				Params: []abi.Param{param("name", abi.CString), param("age", abi.S32)},
				Result: abi.Returns(abi.Handle("person", abi.AccessOwned)),
			},
			Convention: signal.Sentinel,
			Failures:   stringFailures,
			Impl: func(c *Call) signal.Code {
				name, err := c.CString(0)
				if err != nil {
					return c.Fail(err)
				}
				p, err := native.NewPerson(name, c.I32(1))
				if err != nil {
					return c.Fail(err)
				}
				return returnHandle(c, c.Env.People, p)
			},
		},
		destroy("person", people),
		{
			Name:       "person_greet",
			Doc:        "Returns the person's self-introduction. Release with free_string.",
			Signature:  abi.Signature{Params: []abi.Param{param("h", personBorrow)}, Result: abi.Returns(abi.OwnedCString)},
			Convention: signal.Sentinel,
			Failures:   []signal.Code{signal.InvalidInput, signal.AllocationFailed},
			Impl: method(people, func(c *Call, p *native.Person) signal.Code {
				return c.ReturnString(p.Greet())
			}),
		},
		getter("person_age", "Writes the age to *out.", personBorrow, abi.KindS32, people,
			func(c *Call, out uint32, p *native.Person) error {
				return c.WriteU32(out, uint32(p.Age()))
			}),
		action("person_birthday", "Adds one year to the age.", personBorrow, people, (*native.Person).Birthday),
		{
			Name:       "person_is_adult",
			Doc:        "Returns 1 if age >= 18, else 0.",
			Signature:  abi.Signature{Params: []abi.Param{param("h", personBorrow)}, Result: abi.Returns(abi.S32)},
			Convention: signal.Sentinel,
			Failures:   handleFailures,
			Impl: method(people, func(c *Call, p *native.Person) signal.Code {
				if p.IsAdult() {
					c.ReturnI32(1)
				} else {
					c.ReturnI32(0)
				}
				return signal.Ok
			}),
		},
	}
}
