package lookup

// SentinelRank is assigned to entities without a real rank. It is larger
// than any rank a Ranks table hands out, so unranked entities sort last.
const SentinelRank = 9_999_999

// Ranks maps keys to 1-based sort ranks.
type Ranks[K comparable] struct {
	ranks map[K]int
}

// RanksOf ranks keys by their position in ordered; the first occurrence of a
// repeated key wins.
func RanksOf[K comparable](ordered []K) *Ranks[K] {
	r := &Ranks[K]{ranks: make(map[K]int, len(ordered))}
	for _, k := range ordered {
		if _, ok := r.ranks[k]; !ok {
			r.ranks[k] = len(r.ranks) + 1
		}
	}
	return r
}

// Rank returns the rank of k, or SentinelRank when k is unranked.
func (r *Ranks[K]) Rank(k K) int {
	if r == nil {
		return SentinelRank
	}
	if v, ok := r.ranks[k]; ok {
		return v
	}
	return SentinelRank
}

// Best returns the smallest rank among keys, or SentinelRank when none is ranked.
func (r *Ranks[K]) Best(keys []K) int {
	best := SentinelRank
	for _, k := range keys {
		if v := r.Rank(k); v < best {
			best = v
		}
	}
	return best
}

// Len returns the number of ranked keys.
func (r *Ranks[K]) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ranks)
}
