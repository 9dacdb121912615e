package driver

import (
	"strings"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
	"github.com/tebeka/selenium/log"
)

// Engine is a browser that can be launched on this machine.
type Engine int

const (
	Chrome Engine = iota
	Firefox
	Edge
)

// edgeOptionsKey is the vendor key msedgedriver reads its options from.
const edgeOptionsKey = "ms:edgeOptions"

type engine struct {
	name        string
	browserName string
	driverPath  func(Config) string
	newService  func(path string, port int, opts ...selenium.ServiceOption) (*selenium.Service, error)
	caps        func(Config) selenium.Capabilities
}

var engines = map[Engine]engine{
	Chrome: {
		name:        "chrome",
		browserName: "chrome",
		driverPath:  func(c Config) string { return c.ChromeDriverPath },
		newService:  selenium.NewChromeDriverService,
		caps: func(c Config) selenium.Capabilities {
			args := []string{"--start-maximized", "--disable-blink-features=AutomationControlled"}
			if c.Headless {
				args = append(args, "--headless", "--no-sandbox")
			}
			caps := selenium.Capabilities{"browserName": "chrome"}
			caps.AddChrome(chrome.Capabilities{
				Path:            c.ChromeBinary,
				Args:            args,
				ExcludeSwitches: []string{"enable-automation"},
			})
			caps.SetLogLevel(log.Browser, log.All)
			return caps
		},
	},
	Firefox: {
		name:        "firefox",
		browserName: "firefox",
		driverPath:  func(c Config) string { return c.GeckoDriverPath },
		newService:  selenium.NewGeckoDriverService,
		caps: func(c Config) selenium.Capabilities {
			var args []string
			if c.Headless {
				args = append(args, "--headless")
			}
			caps := selenium.Capabilities{"browserName": "firefox"}
			caps.AddFirefox(firefox.Capabilities{Binary: c.FirefoxBinary, Args: args})
			return caps
		},
	},
	// msedgedriver speaks the chromedriver command line.
	Edge: {
		name:        "edge",
		browserName: "MicrosoftEdge",
		driverPath:  func(c Config) string { return c.EdgeDriverPath },
		newService:  selenium.NewChromeDriverService,
		caps: func(c Config) selenium.Capabilities {
			args := []string{"--start-maximized"}
			if c.Headless {
				args = append(args, "--headless", "--no-sandbox")
			}
			caps := selenium.Capabilities{
				"browserName":  "MicrosoftEdge",
				edgeOptionsKey: map[string]interface{}{"args": args},
			}
			caps.SetLogLevel(log.Browser, log.All)
			return caps
		},
	},
}

func (e Engine) String() string {
	if eng, ok := engines[e]; ok {
		return eng.name
	}
	return "unknown"
}

// ParseEngine maps a browser name onto a local engine. The match ignores
// case. ok is false when the name is not a supported local browser.
func ParseEngine(name string) (e Engine, ok bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "chrome", "googlechrome":
		return Chrome, true
	case "firefox":
		return Firefox, true
	case "edge", "microsoftedge":
		return Edge, true
	}
	return Chrome, false
}

// Capabilities returns the local launch capabilities for the engine.
func (e Engine) Capabilities(c Config) selenium.Capabilities {
	return engines[e].caps(c)
}

// FallbackCapabilities launches plain Chrome for a browser that cannot run
// locally. It carries none of the automation tweaks of the Chrome engine.
func FallbackCapabilities(c Config) selenium.Capabilities {
	args := []string{"--start-maximized"}
	if c.Headless {
		args = append(args, "--headless", "--no-sandbox")
	}
	caps := selenium.Capabilities{"browserName": "chrome"}
	caps.AddChrome(chrome.Capabilities{Path: c.ChromeBinary, Args: args})
	caps.SetLogLevel(log.Browser, log.All)
	return caps
}
