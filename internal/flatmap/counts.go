package flatmap

// Integer is the set of value types counted associations accept.
type Integer interface {
	~int | ~int32 | ~int64 | ~uint32 | ~uint64
}

// IncrementOrSet adds delta to the count stored under k, or stores delta when
// k is absent. A count that reaches zero or below removes the entry. It
// returns the resulting count.
func IncrementOrSet[K Key, V Integer](m *Map[K, V], k K, delta V) V {
	p := m.Ptr(k)
	if p == nil {
		if delta <= 0 {
			return 0
		}
		m.Set(k, delta)
		return delta
	}
	*p += delta
	n := *p
	if n <= 0 {
		m.Remove(k)
		return 0
	}
	return n
}

// Decrement lowers the count under k by one, removing it at zero.
func Decrement[K Key, V Integer](m *Map[K, V], k K) V {
	return IncrementOrSet(m, k, V(0)-1)
}
