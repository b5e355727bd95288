package errors

import (
	"math"
)

// CheckNumericalStability returns a NumericalInstabilityError if any value is
// NaN or Inf. The coordinate-descent solver calls this on its weight vector.
func CheckNumericalStability(operation string, values []float64, iteration int) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewNumericalInstabilityError(operation, values, iteration)
		}
	}
	return nil
}

// CheckScalar checks a single scalar value for numerical instability.
func CheckScalar(operation string, value float64, iteration int) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(operation, []float64{value}, iteration)
	}
	return nil
}

// ClipValue clips a value to the range [min, max].
func ClipValue(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// StabilizeLog computes log(max(value, epsilon)) to protect against log(0).
func StabilizeLog(value float64) float64 {
	const epsilon = 1e-15
	if value < epsilon {
		return math.Log(epsilon)
	}
	return math.Log(value)
}

// StabilizeExp computes exp with the argument clipped to avoid overflow.
func StabilizeExp(value float64) float64 {
	const maxExp = 700.0 // exp(700) is near the float64 ceiling
	if value > maxExp {
		return math.Exp(maxExp)
	}
	if value < -maxExp {
		return 0
	}
	return math.Exp(value)
}
