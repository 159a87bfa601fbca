package citations

// GroupBy partitions items by a caller-supplied key, preserving
// first-seen group order. Every input lands in exactly one group.
func GroupBy[T any, K comparable](items []T, key func(T) K) ([]K, map[K][]T) {
	order := make([]K, 0)
	groups := make(map[K][]T)

	for _, item := range items {
		k := key(item)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], item)
	}

	return order, groups
}
