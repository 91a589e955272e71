package dataset

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/matprop/pkg/errors"
)

const sampleCSV = `Component,d33 (pC/N),Tc (C),Note
BaTiO3,190,120,ref
0.5BaTiO3-0.5SrTiO3,NA,,
KNbO3,abc,435,
,50,10,no formula
NaNbO3,2.5,N/A,x
`

func TestParse(t *testing.T) {
	d, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, []string{"Component", "d33 (pC/N)", "Tc (C)", "Note"}, d.Columns())
	assert.Equal(t, 5, d.Len())

	s, ok := d.String(0, "Component")
	assert.True(t, ok)
	assert.Equal(t, "BaTiO3", s)

	_, ok = d.String(1, "d33 (pC/N)")
	assert.False(t, ok, "NA is missing")

	_, ok = d.String(0, "nope")
	assert.False(t, ok)

	v, ok, err := d.Float(4, "d33 (pC/N)")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2.5, v)

	_, ok, err = d.Float(2, "d33 (pC/N)")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("a,b\n1,2,3\n"))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestParse_ShortRowsAndBOM(t *testing.T) {
	d, err := ParseBytes([]byte("\ufeffComponent,Tc (C)\nBaTiO3\n"))
	require.NoError(t, err)
	assert.True(t, d.HasColumn("Component"))
	_, ok := d.String(0, "Tc (C)")
	assert.False(t, ok)
}

func TestIsMissing(t *testing.T) {
	for _, s := range []string{"", " ", "NA", "N/A", "NaN", "nan", "null", "NULL", "None", "<NA>", "#N/A", "-nan"} {
		assert.True(t, IsMissing(s), "%q", s)
	}
	for _, s := range []string{"0", "BaTiO3", "n.a.", "none"} {
		assert.False(t, IsMissing(s), "%q", s)
	}
}

func TestResolveColumn(t *testing.T) {
	cols := []string{"Component", "d33 (pC/N)", "Tc (C)"}
	tests := []struct {
		key   string
		want  string
		found bool
	}{
		{"d33 (pC/N)", "d33 (pC/N)", true},
		{"d33 (other)", "d33 (pC/N)", true},
		{"Tc (K)", "Tc (C)", true},
		{"Tc", "Tc (C)", true},
		{"Curie", "", false},
		{"", "", false},
		{"   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := ResolveColumn(cols, tt.key)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	// first column in declared order wins
	got, ok := ResolveColumn([]string{"Tc onset", "Tc (C)"}, "Tc (C) ")
	assert.True(t, ok)
	assert.Equal(t, "Tc onset", got)
}

func TestSamples(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(func(error) {})

	d, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	s, err := d.Samples(DefaultFormulaColumn, "d33 (pC/N)")
	require.NoError(t, err)
	assert.Equal(t, []string{"BaTiO3", "NaNbO3"}, s.Formulas)
	assert.Equal(t, []float64{190, 2.5}, s.Targets)
	assert.Equal(t, []int{0, 4}, s.Rows)
	assert.Equal(t, 3, s.Dropped)

	require.Len(t, warnings, 1)
	var conv *errors.DataConversionWarning
	require.True(t, errors.As(warnings[0], &conv))
	assert.Equal(t, "abc", conv.Value)
	assert.Equal(t, 2, conv.Row)

	_, err = d.Samples("Formula", "d33 (pC/N)")
	assert.Error(t, err)
}

func TestSamples_NonFiniteTargets(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(func(error) {})

	d, err := Parse(strings.NewReader("Component,Tc (C)\nBaTiO3,NAN\nSrTiO3,inf\nKNbO3,Infinity\nLiNbO3,-Inf\nNaNbO3,100\n"))
	require.NoError(t, err)

	s, err := d.Samples(DefaultFormulaColumn, "Tc (C)")
	require.NoError(t, err)
	assert.Equal(t, []string{"NaNbO3"}, s.Formulas)
	assert.Equal(t, []float64{100}, s.Targets)
	assert.Equal(t, 4, s.Dropped)

	require.Len(t, warnings, 4)
	for i, raw := range []string{"NAN", "inf", "Infinity", "-Inf"} {
		var conv *errors.DataConversionWarning
		require.True(t, errors.As(warnings[i], &conv))
		assert.Equal(t, raw, conv.Value)
		assert.Equal(t, "not a finite number", conv.Reason)
	}

	_, ok, err := d.Float(1, "Tc (C)")
	assert.False(t, ok)
	var nerr *errors.NumericalInstabilityError
	assert.True(t, errors.As(err, &nerr))
}

func TestTrainTestSplit(t *testing.T) {
	for n := 0; n < MinSplitSamples; n++ {
		sp := TrainTestSplit(n, 42)
		assert.True(t, sp.SelfEvaluation)
		assert.Equal(t, sp.Train, sp.Test)
		assert.Len(t, sp.Train, n)
	}

	tests := []struct{ n, wantTest int }{
		{5, 1}, {6, 2}, {10, 2}, {11, 3}, {100, 20},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			sp := TrainTestSplit(tt.n, 42)
			assert.False(t, sp.SelfEvaluation)
			assert.Len(t, sp.Test, tt.wantTest)
			assert.Len(t, sp.Train, tt.n-tt.wantTest)

			seen := make(map[int]bool, tt.n)
			for _, i := range append(append([]int{}, sp.Train...), sp.Test...) {
				assert.False(t, seen[i])
				seen[i] = true
			}
			assert.Len(t, seen, tt.n)

			again := TrainTestSplit(tt.n, 42)
			assert.Equal(t, sp, again)
		})
	}
}

func TestPreview(t *testing.T) {
	d, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	rows := d.Preview(DefaultPreviewRows)
	require.Len(t, rows, 5)
	assert.Equal(t, "BaTiO3", rows[0]["Component"])
	assert.Equal(t, 190.0, rows[0]["d33 (pC/N)"])
	assert.Nil(t, rows[1]["d33 (pC/N)"])
	assert.Equal(t, "abc", rows[2]["d33 (pC/N)"])
	assert.Nil(t, rows[3]["Component"])

	assert.Len(t, d.Preview(2), 2)
	assert.Empty(t, d.Preview(-1))

	var b strings.Builder
	b.WriteString("Component,Tc (C)\n")
	for i := 0; i < 80; i++ {
		fmt.Fprintf(&b, "BaTiO3,%d\n", i)
	}
	big, err := Parse(strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Len(t, big.Preview(DefaultPreviewRows), DefaultPreviewRows)
}
