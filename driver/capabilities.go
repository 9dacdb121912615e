package driver

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/log"
	"github.com/tidwall/sjson"
)

// VendorOptionsKey is the capability key the grid reads its options from.
const VendorOptionsKey = "LT:Options"

const pluginName = "go-testify"

// VendorOptions is the grid specific block of a remote capability set.
type VendorOptions struct {
	Username     string `json:"username"`
	AccessKey    string `json:"accessKey"`
	Build        string `json:"build"`
	Name         string `json:"name"`
	PlatformName string `json:"platformName,omitempty"`

	// Video recording of the whole session.
	Video bool `json:"video"`
	// Network traffic capture.
	Network bool `json:"network"`
	// Browser console capture.
	Console bool `json:"console"`
	// Step screenshots.
	Visual bool `json:"visual"`
	// WebDriver command log.
	Terminal bool `json:"terminal"`
	W3C      bool `json:"w3c"`

	Plugin string `json:"plugin"`
}

// RemoteCapabilities builds the capability set for a grid session.
func RemoteCapabilities(c Config, t Target, label string) (selenium.Capabilities, error) {
	caps := selenium.Capabilities{"browserName": t.Name}
	if v := strings.TrimSpace(t.Version); v != "" {
		caps["browserVersion"] = v
	}
	if p := strings.TrimSpace(t.Platform); p != "" {
		caps["platformName"] = p
	}
	caps.SetLogLevel(log.Browser, log.All)

	build := c.BuildName
	if build == "" {
		build = DefaultBuildName
	}
	caps[VendorOptionsKey] = VendorOptions{
		Username:     c.Username,
		AccessKey:    c.AccessKey,
		Build:        build,
		Name:         label,
		PlatformName: t.Platform,
		Video:        true,
		Network:      true,
		Console:      true,
		Visual:       true,
		Terminal:     true,
		W3C:          true,
		Plugin:       pluginName,
	}
	return applyOverrides(caps, c.CapabilityOverrides)
}

// applyOverrides sets each sjson path in overrides on the JSON form of caps.
// Paths are applied in sorted order so nested overrides are deterministic.
func applyOverrides(caps selenium.Capabilities, overrides map[string]interface{}) (selenium.Capabilities, error) {
	if len(overrides) == 0 {
		return caps, nil
	}
	raw, err := json.Marshal(caps)
	if err != nil {
		return nil, fmt.Errorf("encoding capabilities: %w", err)
	}

	paths := make([]string, 0, len(overrides))
	for path := range overrides {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		raw, err = sjson.SetBytes(raw, path, overrides[path])
		if err != nil {
			return nil, fmt.Errorf("applying capability override %q: %w", path, err)
		}
	}

	out := selenium.Capabilities{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding capabilities: %w", err)
	}
	return out, nil
}
