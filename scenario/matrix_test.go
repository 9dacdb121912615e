package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/padaiyal/playground/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatrix(t *testing.T) {
	rows := DefaultMatrix()

	expected := []driver.Target{
		{Name: "chrome", Version: "128.0", Platform: "Windows 10"},
		{Name: "MicrosoftEdge", Version: "127.0", Platform: "macOS Ventura"},
		{Name: "firefox", Version: "130.0", Platform: "Windows 11"},
		{Name: "internet explorer", Version: "11.0", Platform: "Windows 10"},
	}
	require.Len(t, rows, len(expected))
	for i, row := range rows {
		assert.Equal(t, i+1, row.Index)
		assert.Equal(t, expected[i], row.Target)
	}
	assert.Equal(t, "1 => chrome 128.0 on Windows 10", rows[0].Name())
	assert.Equal(t, "4 => internet explorer 11.0 on Windows 10", rows[3].Name())
}

func TestParseMatrixErrors(t *testing.T) {
	testCases := map[string]string{
		"empty":      "",
		"no browser": "- version: \"1.0\"\n  platform: Linux\n",
		"not a list": "browser: chrome\n",
	}
	for name, raw := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseMatrix([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadMatrix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- browser: chrome\n  version: \"129.0\"\n  platform: Linux\n"), 0o644))

	rows, err := LoadMatrix(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1 => chrome 129.0 on Linux", rows[0].Name())

	_, err = LoadMatrix(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
