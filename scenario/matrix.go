package scenario

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/padaiyal/playground/driver"
	"gopkg.in/yaml.v3"
)

//go:embed matrix.yaml
var defaultMatrix []byte

// Row is one numbered matrix entry.
type Row struct {
	Index  int
	Target driver.Target
}

// Name is the per row report name, e.g. "1 => chrome 128.0 on Windows 10".
func (r Row) Name() string {
	return fmt.Sprintf("%d => %s", r.Index, r.Target)
}

// DefaultMatrix returns the fixed four row browser matrix.
func DefaultMatrix() []Row {
	rows, err := ParseMatrix(defaultMatrix)
	if err != nil {
		panic(fmt.Sprintf("embedded matrix.yaml: %v", err))
	}
	return rows
}

// LoadMatrix reads a matrix file in the matrix.yaml format.
func LoadMatrix(path string) ([]Row, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading matrix %s: %w", path, err)
	}
	return ParseMatrix(raw)
}

// ParseMatrix decodes a YAML list of targets and numbers the rows from 1.
func ParseMatrix(raw []byte) ([]Row, error) {
	var targets []driver.Target
	if err := yaml.Unmarshal(raw, &targets); err != nil {
		return nil, fmt.Errorf("parsing matrix: %w", err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("parsing matrix: no rows")
	}
	rows := make([]Row, len(targets))
	for i, t := range targets {
		if t.Name == "" {
			return nil, fmt.Errorf("parsing matrix: row %d has no browser", i+1)
		}
		rows[i] = Row{Index: i + 1, Target: t}
	}
	return rows, nil
}
