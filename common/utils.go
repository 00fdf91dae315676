package common

// Coalesce returns the first argument that is not the zero value of T, used for
// optional manifest and option fields that fall back to a default.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
