package utils

import "strings"

func Ptr[T any](v T) *T {
	return &v
}

func Clamp[T ~float64 | ~float32 | ~int](v, min, max T) T {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// RuneLen counts runes in the trimmed text.
func RuneLen(text string) int {
	return len([]rune(strings.TrimSpace(text)))
}
