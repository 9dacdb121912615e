package driver

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvConfigFile    = "PLAYGROUND_CONFIG"
	EnvGridURL       = "TESTMU_GRID_URL"
	EnvUsername      = "TESTMU_USERNAME"
	EnvAccessKey     = "TESTMU_ACCESS_KEY"
	EnvBuildName     = "BUILD_NAME"
	EnvHeadless      = "PLAYGROUND_HEADLESS"
	EnvDriverPort    = "SELENIUM_PORT"
	EnvChromeDriver  = "CHROMEDRIVER_PATH"
	EnvGeckoDriver   = "GECKODRIVER_PATH"
	EnvEdgeDriver    = "MSEDGEDRIVER_PATH"
	EnvChromeBinary  = "CHROME_BROWSER_PATH"
	EnvFirefoxBinary = "FIREFOX_BROWSER_PATH"
	EnvScreenshotDir = "SCREENSHOT_DIR"
)

const (
	DefaultBuildName     = "Selenium Playground - Go e2e"
	DefaultWaitTimeout   = 20 * time.Second
	DefaultWindowWidth   = 1400
	DefaultWindowHeight  = 900
	DefaultScreenshotDir = "target/screenshots"
)

// LookupFunc resolves an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Config carries everything the provisioner needs. It is built once, from a
// YAML file and/or the environment, and then passed around explicitly.
type Config struct {
	// GridURL is the remote WebDriver endpoint. Blank means local mode.
	GridURL   string `yaml:"gridURL"`
	Username  string `yaml:"username"`
	AccessKey string `yaml:"accessKey"`
	BuildName string `yaml:"buildName"`

	Headless bool `yaml:"headless"`

	// DriverPort is the local driver service port. Zero picks an unused
	// port for every session so local sessions can run side by side.
	DriverPort       int    `yaml:"driverPort"`
	ChromeDriverPath string `yaml:"chromeDriverPath"`
	GeckoDriverPath  string `yaml:"geckoDriverPath"`
	EdgeDriverPath   string `yaml:"edgeDriverPath"`
	ChromeBinary     string `yaml:"chromeBinary"`
	FirefoxBinary    string `yaml:"firefoxBinary"`

	WindowWidth   int           `yaml:"windowWidth"`
	WindowHeight  int           `yaml:"windowHeight"`
	WaitTimeout   time.Duration `yaml:"waitTimeout"`
	ScreenshotDir string        `yaml:"screenshotDir"`

	// CapabilityOverrides are applied to remote capability payloads last.
	// Keys are sjson paths, e.g. "LT:Options.resolution".
	CapabilityOverrides map[string]interface{} `yaml:"capabilityOverrides"`
}

// DefaultConfig returns a local-mode configuration with every default set.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.BuildName == "" {
		c.BuildName = DefaultBuildName
	}
	if c.ChromeDriverPath == "" {
		c.ChromeDriverPath = "chromedriver"
	}
	if c.GeckoDriverPath == "" {
		c.GeckoDriverPath = "geckodriver"
	}
	if c.EdgeDriverPath == "" {
		c.EdgeDriverPath = "msedgedriver"
	}
	if c.WindowWidth == 0 {
		c.WindowWidth = DefaultWindowWidth
	}
	if c.WindowHeight == 0 {
		c.WindowHeight = DefaultWindowHeight
	}
	if c.WaitTimeout == 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	if c.ScreenshotDir == "" {
		c.ScreenshotDir = DefaultScreenshotDir
	}
	return c
}

// Remote reports whether sessions should be opened against a grid.
func (c Config) Remote() bool {
	return strings.TrimSpace(c.GridURL) != ""
}

// ConfigFromEnv loads the file named by PLAYGROUND_CONFIG, if any, and
// overlays the environment on top of it.
func ConfigFromEnv(lookup LookupFunc) (Config, error) {
	path, _ := lookup(EnvConfigFile)
	return LoadConfig(path, lookup)
}

// LoadConfig reads a YAML config file (skipped when path is empty) and then
// applies environment overrides. A nil lookup disables the environment.
func LoadConfig(path string, lookup LookupFunc) (Config, error) {
	var c Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &c); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if lookup != nil {
		if err := c.applyEnv(lookup); err != nil {
			return Config{}, err
		}
	}
	return c.withDefaults(), nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	strs := map[string]*string{
		EnvGridURL:       &c.GridURL,
		EnvUsername:      &c.Username,
		EnvAccessKey:     &c.AccessKey,
		EnvBuildName:     &c.BuildName,
		EnvChromeDriver:  &c.ChromeDriverPath,
		EnvGeckoDriver:   &c.GeckoDriverPath,
		EnvEdgeDriver:    &c.EdgeDriverPath,
		EnvChromeBinary:  &c.ChromeBinary,
		EnvFirefoxBinary: &c.FirefoxBinary,
		EnvScreenshotDir: &c.ScreenshotDir,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup(EnvHeadless); ok && v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvHeadless, v, err)
		}
		c.Headless = headless
	}
	if v, ok := lookup(EnvDriverPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvDriverPort, v, err)
		}
		c.DriverPort = port
	}
	return nil
}
