package binding

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/wippyai/ffi-bridge/handle"
)

// object owns one handle and destroys it exactly once.
type object struct {
	s       *Session
	h       handle.Handle
	destroy string
	once    sync.Once
	err     error
}

// Handle returns the raw handle. It is invalid after Close.
func (o *object) Handle() handle.Handle { return o.h }

// Close releases the native object. Closing twice, or after the session
// has closed, is a no-op.
func (o *object) Close() error {
	o.once.Do(func() {
		err := o.s.release(context.Background(), o.destroy, uint64(o.h))
		if !stderrors.Is(err, ErrClosed) {
			o.err = err
		}
	})
	return o.err
}

func newObject(s *Session, kind string, args ...any) (*object, error) {
	h, err := call1[handle.Handle](s, kind+"_new", args...)
	if err != nil {
		return nil, err
	}
	return &object{s: s, h: h, destroy: kind + "_destroy"}, nil
}

// Counter is a native counter behind a handle.
type Counter struct{ *object }

func (s *Session) NewCounter(start int32) (*Counter, error) {
	o, err := newObject(s, "counter", start)
	if err != nil {
		return nil, err
	}
	return &Counter{o}, nil
}

func (c *Counter) Value() (int32, error)     { return call1[int32](c.s, "counter_value", c.h) }
func (c *Counter) Increment() error          { return call0(c.s, "counter_increment", c.h) }
func (c *Counter) Decrement() error          { return call0(c.s, "counter_decrement", c.h) }
func (c *Counter) IncrementBy(n int32) error { return call0(c.s, "counter_increment_by", c.h, n) }
func (c *Counter) Reset() error              { return call0(c.s, "counter_reset", c.h) }

// Calculator is a native running-total calculator behind a handle.
type Calculator struct{ *object }

func (s *Session) NewCalculator() (*Calculator, error) {
	o, err := newObject(s, "calculator")
	if err != nil {
		return nil, err
	}
	return &Calculator{o}, nil
}

func (c *Calculator) Add(n float64) error      { return call0(c.s, "calculator_add", c.h, n) }
func (c *Calculator) Subtract(n float64) error { return call0(c.s, "calculator_subtract", c.h, n) }
func (c *Calculator) Multiply(n float64) error { return call0(c.s, "calculator_multiply", c.h, n) }

// Divide divides the running value. Zero is a domain_error and leaves the
// value unchanged.
func (c *Calculator) Divide(n float64) error { return call0(c.s, "calculator_divide", c.h, n) }

func (c *Calculator) Result() (float64, error) { return call1[float64](c.s, "calculator_result", c.h) }
func (c *Calculator) Reset() error             { return call0(c.s, "calculator_reset", c.h) }

// Person is a native person record behind a handle.
type Person struct{ *object }

// NewPerson creates a person. A negative age is invalid_input.
func (s *Session) NewPerson(name string, age int32) (*Person, error) {
	o, err := newObject(s, "person", name, age)
	if err != nil {
		return nil, err
	}
	return &Person{o}, nil
}

func (p *Person) Greet() (string, error) { return call1[string](p.s, "person_greet", p.h) }
func (p *Person) Age() (int32, error)    { return call1[int32](p.s, "person_age", p.h) }
func (p *Person) Birthday() error        { return call0(p.s, "person_birthday", p.h) }

func (p *Person) IsAdult() (bool, error) {
	n, err := call1[int32](p.s, "person_is_adult", p.h)
	return n == 1, err
}
