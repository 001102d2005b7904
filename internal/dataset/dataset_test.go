package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shard.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("parses header and samples", func(t *testing.T) {
		path := writeCSV(t, "y,x1,x2\n1,2,3\n4,5,6\n")

		ds, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"y", "x1", "x2"}, ds.Columns)
		assert.Equal(t, 2, ds.NumSamples())
		assert.Equal(t, []float64{4, 5, 6}, ds.Rows[1])
	})

	t.Run("missing file is a DataError", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
		var dataErr *DataError
		assert.ErrorAs(t, err, &dataErr)
	})

	t.Run("non-numeric field is a DataError", func(t *testing.T) {
		path := writeCSV(t, "y,x\n1,banana\n")

		_, err := Load(path)
		var dataErr *DataError
		require.ErrorAs(t, err, &dataErr)
		assert.Equal(t, path, dataErr.Shard)
	})

	t.Run("header without samples is a DataError", func(t *testing.T) {
		path := writeCSV(t, "y,x\n")

		_, err := Load(path)
		var dataErr *DataError
		assert.ErrorAs(t, err, &dataErr)
	})
}

func TestReachable(t *testing.T) {
	path := writeCSV(t, "y,x\n1,2\n")
	assert.True(t, Reachable(path))
	assert.False(t, Reachable(filepath.Join(t.TempDir(), "absent.csv")))
}

func TestParseFormula(t *testing.T) {
	tests := []struct {
		name     string
		formula  string
		response string
		terms    []string
		wantErr  bool
	}{
		{name: "two terms", formula: "y ~ x1 + x2", response: "y", terms: []string{"x1", "x2"}},
		{name: "wildcard", formula: "y ~ .", response: "y", terms: []string{"."}},
		{name: "no tilde", formula: "y x1", wantErr: true},
		{name: "empty response", formula: " ~ x1", wantErr: true},
		{name: "empty term", formula: "y ~ x1 + ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, terms, err := ParseFormula(tt.formula)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.response, response)
			assert.Equal(t, tt.terms, terms)
		})
	}
}

func TestResolve(t *testing.T) {
	ds := &Dataset{Columns: []string{"y", "x1", "x2"}, Rows: [][]float64{{1, 2, 3}}}

	t.Run("explicit terms", func(t *testing.T) {
		schema, err := Resolve("y ~ x1 + x2", ds)
		require.NoError(t, err)
		assert.Equal(t, "y", schema.Response)
		assert.Equal(t, []string{"x1", "x2"}, schema.Features)
		assert.Equal(t, 3, schema.Dim())
	})

	t.Run("wildcard expands to every non-response column", func(t *testing.T) {
		schema, err := Resolve("y ~ .", ds)
		require.NoError(t, err)
		assert.Equal(t, []string{"x1", "x2"}, schema.Features)
	})

	t.Run("unknown response", func(t *testing.T) {
		_, err := Resolve("z ~ x1", ds)
		assert.Error(t, err)
	})

	t.Run("unknown feature", func(t *testing.T) {
		_, err := Resolve("y ~ x9", ds)
		assert.Error(t, err)
	})
}

func TestSchemaValidate(t *testing.T) {
	schema := Schema{Response: "y", Features: []string{"x1"}}

	assert.NoError(t, schema.Validate(&Dataset{Columns: []string{"x1", "y"}}))
	assert.Error(t, schema.Validate(&Dataset{Columns: []string{"y"}}))
	assert.Error(t, schema.Validate(&Dataset{Columns: []string{"x1"}}))
}
