package chem

// Composition holds the amount of each vocabulary element, indexed in
// vocabulary order. It is a value type; copies never share state.
type Composition [NumElements]float64

// Get returns the amount of symbol, or 0 for elements outside the vocabulary.
func (c Composition) Get(symbol string) float64 {
	if i, ok := IndexOf(symbol); ok {
		return c[i]
	}
	return 0
}

// Sum returns the total amount over all elements.
func (c Composition) Sum() float64 {
	var s float64
	for _, v := range c {
		s += v
	}
	return s
}

// IsZero reports whether no vocabulary element was recognized.
func (c Composition) IsZero() bool {
	return c.Sum() == 0
}

// Slice returns the amounts as a new slice in vocabulary order.
func (c Composition) Slice() []float64 {
	out := make([]float64, NumElements)
	copy(out, c[:])
	return out
}

// Map returns every vocabulary element with its amount, zeros included.
func (c Composition) Map() map[string]float64 {
	out := make(map[string]float64, NumElements)
	for i, s := range vocabulary {
		out[s] = c[i]
	}
	return out
}

// NonZero returns only the elements with a positive amount.
func (c Composition) NonZero() map[string]float64 {
	out := make(map[string]float64)
	for i, s := range vocabulary {
		if c[i] > 0 {
			out[s] = c[i]
		}
	}
	return out
}

// Add returns the element-wise sum of c and o.
func (c Composition) Add(o Composition) Composition {
	var out Composition
	for i := range c {
		out[i] = c[i] + o[i]
	}
	return out
}
