package lookup

// Precedence orders candidate values for one key; lower wins.
type Precedence int

// Preferred keeps exactly one value per key, chosen by an explicit
// precedence instead of by whichever row a query happened to return first.
// Among candidates of equal precedence the first offered is kept.
type Preferred[K comparable, V any] struct {
	best map[K]preferredEntry[V]
}

type preferredEntry[V any] struct {
	value V
	prec  Precedence
}

// NewPreferred returns an empty Preferred table.
func NewPreferred[K comparable, V any]() *Preferred[K, V] {
	return &Preferred[K, V]{best: make(map[K]preferredEntry[V])}
}

// Offer proposes v for k. It reports whether v replaced the current choice.
func (p *Preferred[K, V]) Offer(k K, v V, prec Precedence) bool {
	cur, ok := p.best[k]
	if ok && cur.prec <= prec {
		return false
	}
	p.best[k] = preferredEntry[V]{value: v, prec: prec}
	return true
}

// Get returns the chosen value for k.
func (p *Preferred[K, V]) Get(k K) (V, bool) {
	if p == nil {
		var zero V
		return zero, false
	}
	e, ok := p.best[k]
	return e.value, ok
}

// Len returns the number of keys with a chosen value.
func (p *Preferred[K, V]) Len() int {
	if p == nil {
		return 0
	}
	return len(p.best)
}
