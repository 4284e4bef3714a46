package dataset

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `3 10 5
0,2 1:0.5 4:1.25
1 0:2 9:0.1
3,4,3 2:1
`

func TestLoad(t *testing.T) {
	ds, err := Load(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, 10, ds.NFeatures)
	assert.Equal(t, 5, ds.NLabels)
	require.Len(t, ds.Examples, 3)

	assert.Equal(t, []uint32{0, 2}, ds.Examples[0].Labels)
	assert.Equal(t, []uint32{1, 4}, ds.Examples[0].Features.Indices)
	assert.Equal(t, []float32{0.5, 1.25}, ds.Examples[0].Features.Values)

	// Duplicate labels are collapsed and sorted.
	assert.Equal(t, []uint32{3, 4}, ds.Examples[2].Labels)
}

func TestLoad_UnsortedFeaturesAreSorted(t *testing.T) {
	ds, err := Load(strings.NewReader("1 5 2\n0 3:1 1:2\n"))
	require.NoError(t, err)

	assert.Equal(t, []uint32{1, 3}, ds.Examples[0].Features.Indices)
	assert.Equal(t, []float32{2, 1}, ds.Examples[0].Features.Values)
}

func TestLoad_EmptyLabels(t *testing.T) {
	ds, err := Load(strings.NewReader("1 5 2\n 0:1 2:1\n"))
	require.NoError(t, err)

	assert.Empty(t, ds.Examples[0].Labels)
	assert.Equal(t, []uint32{0, 2}, ds.Examples[0].Features.Indices)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"missing header", "", 1},
		{"short header", "3 10\n", 1},
		{"bad header field", "x 10 5\n", 1},
		{"label out of range", "1 10 5\n7 0:1\n", 2},
		{"bad label", "1 10 5\na 0:1\n", 2},
		{"feature out of range", "1 10 5\n0 12:1\n", 2},
		{"missing colon", "1 10 5\n0 3\n", 2},
		{"bad feature value", "1 10 5\n0 3:x\n", 2},
		{"duplicate feature", "1 10 5\n0 3:1 3:2\n", 2},
		{"example count mismatch", "2 10 5\n0 3:1\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want ParseError, got %v", err)
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestLoad_SkipsBlankLines(t *testing.T) {
	ds, err := Load(strings.NewReader("1 5 2\n\n0 1:1\n\n"))
	require.NoError(t, err)
	assert.Len(t, ds.Examples, 1)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ds, err := Load(strings.NewReader(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, ds))

	reloaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, ds, reloaded)
}
