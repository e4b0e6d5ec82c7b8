package math

import "golang.org/x/exp/constraints"

func DivRoundUp[T constraints.Integer](a, b T) T {
	if a%b == 0 {
		return a / b
	}
	return a/b + 1
}

// RoundUp rounds `a` up to the nearest multiple of `b`.
func RoundUp[T constraints.Integer](a, b T) T {
	return DivRoundUp(a, b) * b
}
