package chem

// NumElements is the length of every composition vector.
const NumElements = 24

// vocabulary is the fixed feature order. Changing it invalidates every
// trained model artifact.
var vocabulary = [NumElements]string{
	"Ag", "Al", "B", "Ba", "Bi", "C", "Ca", "Fe", "Hf", "Ho", "K",
	"Li", "Mn", "Na", "Nb", "O", "Pr", "Sb", "Sc", "Sr", "Ta", "Ti",
	"Zn", "Zr",
}

var vocabularyIndex = func() map[string]int {
	m := make(map[string]int, NumElements)
	for i, s := range vocabulary {
		m[s] = i
	}
	return m
}()

// Elements returns the element vocabulary in feature order.
// The returned slice is a copy.
func Elements() []string {
	out := make([]string, NumElements)
	copy(out, vocabulary[:])
	return out
}

// IndexOf returns the feature column of symbol.
func IndexOf(symbol string) (int, bool) {
	i, ok := vocabularyIndex[symbol]
	return i, ok
}

// SameVocabulary reports whether elements matches the vocabulary exactly,
// including order.
func SameVocabulary(elements []string) bool {
	if len(elements) != NumElements {
		return false
	}
	for i, s := range elements {
		if vocabulary[i] != s {
			return false
		}
	}
	return true
}
