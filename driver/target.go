package driver

import "fmt"

// Target identifies one browser matrix row.
type Target struct {
	Name     string `yaml:"browser"`
	Version  string `yaml:"version"`
	Platform string `yaml:"platform"`
}

func (t Target) String() string {
	return fmt.Sprintf("%s %s on %s", t.Name, t.Version, t.Platform)
}

// Mode says where a session runs.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)
