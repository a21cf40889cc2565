package native

import (
	"fmt"
	"math"

	"github.com/wippyai/ffi-bridge/errors"
)

// AdultAge is the age at which Person.IsAdult becomes true.
const AdultAge = 18

// Counter is an int32 counter with saturating arithmetic.
type Counter struct {
	value int32
}

// NewCounter returns a counter starting at start.
func NewCounter(start int32) *Counter {
	return &Counter{value: start}
}

func (c *Counter) Value() int32 { return c.value }

func (c *Counter) Increment() { c.value = Add(c.value, 1) }

func (c *Counter) Decrement() { c.value = Add(c.value, -1) }

func (c *Counter) IncrementBy(n int32) { c.value = Add(c.value, n) }

// Reset sets the counter back to zero.
func (c *Counter) Reset() { c.value = 0 }

func (c *Counter) String() string {
	return fmt.Sprintf("Counter(value=%d)", c.value)
}

// Calculator is a running f64 accumulator starting at zero.
type Calculator struct {
	value float64
}

func NewCalculator() *Calculator { return &Calculator{} }

func (c *Calculator) Add(n float64) { c.value += n }

func (c *Calculator) Subtract(n float64) { c.value -= n }

func (c *Calculator) Multiply(n float64) { c.value *= n }

// Divide divides the accumulator by n. The accumulator is unchanged when n
// is zero.
func (c *Calculator) Divide(n float64) error {
	v, err := Divide(c.value, n)
	if err != nil {
		return err
	}
	c.value = v
	return nil
}

func (c *Calculator) Result() float64 { return c.value }

func (c *Calculator) Reset() { c.value = 0 }

func (c *Calculator) String() string {
	return fmt.Sprintf("Calculator(value=%g)", c.value)
}

// Person is a named person with a non-negative age.
type Person struct {
	name string
	age  int32
}

// NewPerson validates age and returns a person.
func NewPerson(name string, age int32) (*Person, error) {
	if age < 0 {
		return nil, errors.New(errors.PhaseCall, errors.KindInvalidInput).
			Path("age").
			Value(age).
			Detail("age cannot be negative").
			Build()
	}
	return &Person{name: name, age: age}, nil
}

func (p *Person) Name() string { return p.name }

func (p *Person) Age() int32 { return p.age }

// Greet returns the person's self-introduction.
func (p *Person) Greet() string {
	return fmt.Sprintf("Hello, my name is %s and I am %d years old.", p.name, p.age)
}

// Birthday adds one year. The age saturates at the int32 maximum.
func (p *Person) Birthday() {
	if p.age < math.MaxInt32 {
		p.age++
	}
}

func (p *Person) IsAdult() bool { return p.age >= AdultAge }

func (p *Person) String() string {
	return fmt.Sprintf("Person(name=%q, age=%d)", p.name, p.age)
}
