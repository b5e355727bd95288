package linear

import (
	"sort"

	"github.com/blakeapm/textlearn/pkg/errors"
)

// TermWeight pairs a vocabulary term with its fitted coefficient.
type TermWeight struct {
	Term   string
	Weight float64
}

// CoefTable pairs the coefficient vector at path index li with its
// originating terms and orders it from most positive to most negative
// weight. Terms with equal weight keep their vocabulary order.
func CoefTable(m *LogitNet, li int, terms []string) ([]TermWeight, error) {
	coef, err := m.CoefAt(li)
	if err != nil {
		return nil, err
	}
	if len(terms) != len(coef) {
		return nil, errors.NewDimensionError("CoefTable", len(coef), len(terms), 1)
	}

	table := make([]TermWeight, len(coef))
	for j := range coef {
		table[j] = TermWeight{Term: terms[j], Weight: coef[j]}
	}
	sort.SliceStable(table, func(a, b int) bool {
		return table[a].Weight > table[b].Weight
	})
	return table, nil
}

// TopPositive returns the n highest-weighted entries of a CoefTable, the
// terms most indicative of the positive class.
func TopPositive(table []TermWeight, n int) []TermWeight {
	if n > len(table) {
		n = len(table)
	}
	return table[:n]
}

// TopNegative returns the n lowest-weighted entries, most negative first.
func TopNegative(table []TermWeight, n int) []TermWeight {
	if n > len(table) {
		n = len(table)
	}
	out := make([]TermWeight, n)
	for i := 0; i < n; i++ {
		out[i] = table[len(table)-1-i]
	}
	return out
}
