package assert

import "math"

// NumericalZeroDifference is the absolute difference below which two floating
// point values are treated as equal by DefaultTolerance.
const NumericalZeroDifference = 1.0e-14

// Tolerance decides whether two floating point values are approximately equal.
type Tolerance func(a, b float64) bool

// DefaultTolerance accepts differences up to NumericalZeroDifference.
var DefaultTolerance = Absolute(NumericalZeroDifference)

// Absolute accepts |a-b| <= eps. NaN never compares close.
func Absolute(eps float64) Tolerance {
	return func(a, b float64) bool {
		return math.Abs(a-b) <= eps
	}
}

// Relative accepts |a-b| <= eps * max(1, |a|, |b|).
func Relative(eps float64) Tolerance {
	return func(a, b float64) bool {
		scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))

		return math.Abs(a-b) <= eps*scale
	}
}

// Float is the set of floating point types accepted by the tolerance forms.
type Float interface {
	~float32 | ~float64
}
