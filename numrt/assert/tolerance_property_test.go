//go:build unit

package assert

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestTolerance_Properties(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	finite := gen.Float64Range(-1e12, 1e12)

	properties.Property("tolerances are symmetric", prop.ForAll(
		func(a, b float64) bool {
			return DefaultTolerance(a, b) == DefaultTolerance(b, a) &&
				Relative(1e-9)(a, b) == Relative(1e-9)(b, a)
		},
		finite, finite,
	))

	properties.Property("every value is close to itself", prop.ForAll(
		func(a float64) bool {
			return DefaultTolerance(a, a) && Absolute(0)(a, a) && Relative(0)(a, a)
		},
		finite,
	))

	properties.Property("relative tolerance accepts what absolute accepts", prop.ForAll(
		func(a, b float64) bool {
			return !Absolute(1e-6)(a, b) || Relative(1e-6)(a, b)
		},
		finite, finite,
	))

	properties.Property("NaN is never close", prop.ForAll(
		func(a float64) bool {
			return !DefaultTolerance(math.NaN(), a) && !Relative(1)(a, math.NaN())
		},
		finite,
	))

	properties.TestingRun(t)
}
