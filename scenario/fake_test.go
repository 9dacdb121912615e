package scenario

import (
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/padaiyal/playground/driver"
	"github.com/padaiyal/playground/internal/fakewd"
	"github.com/tebeka/selenium"
	"go.uber.org/zap"
)

// site configures how the fake playground reacts to the scenario scripts.
type site struct {
	radioMessage string
	opensPopup   bool
}

var workingSite = site{radioMessage: RadioExpectedMessage, opensPopup: true}

// newPlayground returns a fake session that serves both playground pages.
func newPlayground(id string, s site) *fakewd.Driver {
	d := fakewd.New(id)
	d.AddElement(selenium.ByLinkText, RadioButtonsLink, fakewd.NewElement(RadioButtonsLink))
	d.AddElement(selenium.ByLinkText, WindowPopupLink, fakewd.NewElement(WindowPopupLink))
	d.AddElement(selenium.ByXPATH, TwitterLinkXPath, fakewd.NewElement("Follow On Twitter"))
	d.OnScript = func(d *fakewd.Driver, script string, args []interface{}) (interface{}, error) {
		switch script {
		case checkRadioScript:
			return len(args) == 2 && args[0] == "gender" && args[1] == "Female", nil
		case clickXPathScript:
			switch args[0] {
			case GetValueButtonXPath:
				if s.radioMessage != "" {
					d.AddElement(selenium.ByXPATH, RadioMessageXPath, fakewd.NewElement(s.radioMessage))
				}
				return true, nil
			case TwitterLinkXPath:
				if s.opensPopup {
					d.OpenWindow("twitter-popup")
				}
				return true, nil
			}
			return false, nil
		}
		return nil, nil
	}
	return d
}

// fleet is a Provisioner backed by a real driver.Provisioner in local mode,
// handing out a fresh fake per session.
type fleet struct {
	t        *testing.T
	site     site
	dir      string
	provider *driver.Provisioner

	mu       sync.Mutex
	drivers  []*fakewd.Driver
	services []*fakewd.Service
	labels   []string
}

func newFleet(t *testing.T, s site, logger *zap.Logger) *fleet {
	f := &fleet{t: t, site: s, dir: t.TempDir()}
	cfg := driver.Config{
		ScreenshotDir: f.dir,
		WaitTimeout:   200 * time.Millisecond,
		DriverPort:    9515,
	}
	f.provider = driver.NewProvisioner(cfg,
		driver.WithLogger(logger),
		driver.WithDialer(f.dial),
		driver.WithServiceStarter(f.startService),
	)
	return f
}

func (f *fleet) dial(caps selenium.Capabilities, urlPrefix string) (selenium.WebDriver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := newPlayground(fmt.Sprintf("%v-%d", caps["browserName"], len(f.drivers)+1), f.site)
	f.drivers = append(f.drivers, d)
	return d, nil
}

func (f *fleet) startService(e driver.Engine, path string, port int, output io.Writer) (driver.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	svc := &fakewd.Service{}
	f.services = append(f.services, svc)
	return svc, nil
}

func (f *fleet) Provision(target driver.Target, label string) (*driver.Session, error) {
	f.mu.Lock()
	f.labels = append(f.labels, label)
	f.mu.Unlock()
	return f.provider.Provision(target, label)
}

// only returns the single fake the fleet handed out.
func (f *fleet) only() *fakewd.Driver {
	f.t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.drivers) != 1 {
		f.t.Fatalf("expected exactly one session, got %d", len(f.drivers))
	}
	return f.drivers[0]
}
