package slices

func Map[L ~[]X, X, Y any](l L, f func(X) Y) []Y {
	r := make([]Y, len(l))
	for i, x := range l {
		r[i] = f(x)
	}
	return r
}

// Filter returns the elements of l satisfying keep, in order.
func Filter[L ~[]E, E any](l L, keep func(E) bool) L {
	var r L
	for _, x := range l {
		if keep(x) {
			r = append(r, x)
		}
	}
	return r
}
