package scenario

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/padaiyal/playground/driver"
	"github.com/padaiyal/playground/internal/tracing"
	"github.com/tebeka/selenium"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Locators on the playground pages.
const (
	RadioButtonsLink    = "Radio Buttons Demo"
	WindowPopupLink     = "Window Popup Modal"
	GetValueButtonXPath = "//button[normalize-space()='Get value']"
	RadioMessageXPath   = "//p[starts-with(normalize-space(), 'Radio button') and contains(., 'checked')]"
	TwitterLinkXPath    = "//a[normalize-space()='Follow On Twitter' or normalize-space()='Follow on Twitter' or contains(., 'Twitter')]"

	RadioExpectedMessage = "Radio button 'Female' is checked"
)

// Scripts run in the page. Elements are located and clicked in the same
// call so a re-render between lookup and click cannot leave a stale
// reference behind.
const (
	checkRadioScript = `var radio = document.querySelector("input[name='" + arguments[0] + "'][value='" + arguments[1] + "']");
if (radio) { radio.checked = true; radio.click(); }
return radio !== null;`

	clickXPathScript = `var node = document.evaluate(arguments[0], document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
if (node) { node.click(); }
return node !== null;`
)

// Page is the scenario view of a session.
type Page struct {
	*driver.Session

	baseURL string
	span    trace.Span

	mu    sync.Mutex
	state State
}

// State returns how far the run has got.
func (p *Page) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Page) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	if p.span != nil {
		p.span.AddEvent("state", trace.WithAttributes(tracing.AttrState.String(s.String())))
	}
}

// Open loads the playground home page and waits for it to finish loading.
func (p *Page) Open() error {
	if err := p.Get(p.baseURL); err != nil {
		return fmt.Errorf("navigating to %s: %w", p.baseURL, err)
	}
	if err := p.WaitForDOMReady(p.WaitTimeout()); err != nil {
		return err
	}
	p.setState(PageLoaded)
	p.Screenshot("01-home")
	return nil
}

// ClickLink waits for a link with the given text to become clickable and
// clicks it.
func (p *Page) ClickLink(text string) error {
	link, err := p.WaitForClickable(selenium.ByLinkText, text, p.WaitTimeout())
	if err != nil {
		return err
	}
	if err := link.Click(); err != nil {
		return fmt.Errorf("clicking link %q: %w", text, err)
	}
	return nil
}

// ClickXPath clicks the first node matching xpath from inside the page.
// A missing node is logged, not returned; the wait that follows will fail
// with a clearer error.
func (p *Page) ClickXPath(xpath string) error {
	found, err := p.ExecuteScript(clickXPathScript, []interface{}{xpath})
	if err != nil {
		return fmt.Errorf("clicking %s: %w", xpath, err)
	}
	if ok, _ := found.(bool); !ok {
		p.Logger().Warn("nothing to click", zap.String("xpath", xpath))
	}
	return nil
}

// CheckRadio checks the radio input with the given name and value.
func (p *Page) CheckRadio(name, value string) error {
	found, err := p.ExecuteScript(checkRadioScript, []interface{}{name, value})
	if err != nil {
		return fmt.Errorf("checking radio %s=%s: %w", name, value, err)
	}
	if ok, _ := found.(bool); !ok {
		p.Logger().Warn("radio not found", zap.String("name", name), zap.String("value", value))
	}
	return nil
}

// RadioButtonsDemo checks "Female", asks for the value and verifies the
// confirmation text.
var RadioButtonsDemo = Scenario{
	Name:            "Radio Buttons Demo",
	Title:           "1) Radio Buttons Demo — validate Female selection message",
	FinalScreenshot: "99-end",
	Body:            radioButtonsDemo,
}

// WindowPopupModal follows a link that opens a new window and switches to
// it.
var WindowPopupModal = Scenario{
	Name:  "Window Popup Modal",
	Title: "2) Window Popup Modal — validate new window and close all",
	Body:  windowPopupModal,
}

// All returns the scenarios in display order.
func All() []Scenario {
	return []Scenario{RadioButtonsDemo, WindowPopupModal}
}

func radioButtonsDemo(p *Page) error {
	if err := p.Open(); err != nil {
		return err
	}
	if err := p.ClickLink(RadioButtonsLink); err != nil {
		return err
	}
	p.Screenshot("02-radio-page")

	if err := p.CheckRadio("gender", "Female"); err != nil {
		return err
	}
	if err := p.ClickXPath(GetValueButtonXPath); err != nil {
		return err
	}
	message, err := p.WaitForPresent(selenium.ByXPATH, RadioMessageXPath, p.WaitTimeout())
	if err != nil {
		return err
	}
	p.setState(InteractionsComplete)

	text, err := message.Text()
	if err != nil {
		return fmt.Errorf("reading radio message: %w", err)
	}
	if actual := strings.TrimSpace(text); actual != RadioExpectedMessage {
		return textMismatch("validation message mismatch", RadioExpectedMessage, actual)
	}
	p.setState(Asserted)

	p.DumpConsoleLogs()
	return nil
}

func windowPopupModal(p *Page) error {
	if err := p.Open(); err != nil {
		return err
	}
	if err := p.ClickLink(WindowPopupLink); err != nil {
		return err
	}
	if _, err := p.WaitForPresent(selenium.ByXPATH, TwitterLinkXPath, p.WaitTimeout()); err != nil {
		return err
	}

	main, err := p.CurrentWindowHandle()
	if err != nil {
		return fmt.Errorf("reading current window: %w", err)
	}
	if err := p.ClickXPath(TwitterLinkXPath); err != nil {
		return err
	}
	handles, err := p.WaitForWindowsAbove(1, p.WaitTimeout())
	if err != nil {
		return err
	}
	p.setState(InteractionsComplete)

	if len(handles) <= 1 {
		return &AssertionError{
			What:     "a new window should have opened",
			Expected: "more than 1 window",
			Actual:   strconv.Itoa(len(handles)),
		}
	}
	p.setState(Asserted)

	for _, h := range handles {
		if h != main {
			if err := p.SwitchWindow(h); err != nil {
				return fmt.Errorf("switching to window %s: %w", h, err)
			}
			break
		}
	}
	p.Screenshot("02-new-window")
	p.DumpConsoleLogs()
	return nil
}
