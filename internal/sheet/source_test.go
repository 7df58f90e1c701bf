package sheet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrings(t *testing.T) {
	in := [][]interface{}{
		{"Week", "Home"},
		{float64(3), "KC", nil, true, -6.5, 0.125},
	}
	out := Strings(in)
	assert.Equal(t, []string{"Week", "Home"}, out[0])
	assert.Equal(t, []string{"3", "KC", "", "true", "-6.5", "0.125"}, out[1])
}

func TestCSVSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "week.csv")
	content := "Week,Home,Road,Final Spread\n5,BUF,MIA,-3.5\n5,LV,DEN\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	src, err := Open(context.Background(), path, "")
	require.NoError(t, err)
	require.IsType(t, CSVSource{}, src)

	rows, err := src.Rows(context.Background(), "ignored")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"5", "BUF", "MIA", "-3.5"}, rows[1])
	assert.Equal(t, []string{"5", "LV", "DEN"}, rows[2])

	_, err = CSVSource{Path: filepath.Join(t.TempDir(), "missing.csv")}.Rows(context.Background(), "")
	assert.Error(t, err)
}

func TestOpen_Empty(t *testing.T) {
	_, err := Open(context.Background(), "", "")
	assert.Error(t, err)
}
