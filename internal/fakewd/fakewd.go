// Package fakewd is an in-memory selenium.WebDriver for unit tests. It
// implements the subset of the interface the playground uses; calling any
// other method panics on the nil embedded interface.
package fakewd

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/log"
)

// ErrNoSuchElement mirrors the driver error for a failed lookup.
var ErrNoSuchElement = errors.New("no such element: Unable to locate element")

// PNG is returned by Screenshot.
var PNG = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Locator is a (strategy, value) pair as passed to FindElement.
type Locator struct {
	By, Value string
}

// Driver is a scriptable fake session.
type Driver struct {
	selenium.WebDriver

	mu sync.Mutex

	ID              string
	Caps            selenium.Capabilities
	URLPrefix       string
	ImplicitWait    time.Duration
	ImplicitWaitSet bool
	Width, Height   int
	URL             string
	ReadyState      string
	Handles         []string
	Current         string
	Scripts         []string
	ConsoleLog      []log.Message
	Screenshots     int
	Quits           int

	// Injected failures.
	ResizeErr     error
	ScreenshotErr error
	LogErr        error
	QuitErr       error

	// OnScript runs for every script other than the ready state probe.
	OnScript func(d *Driver, script string, args []interface{}) (interface{}, error)

	elements map[Locator]*Element
}

// New returns a fake with one window and a completely loaded page.
func New(id string) *Driver {
	return &Driver{
		ID:         id,
		ReadyState: "complete",
		Handles:    []string{"main"},
		Current:    "main",
		elements:   make(map[Locator]*Element),
	}
}

// Dialer returns a dial function that hands out d and records the request.
func (d *Driver) Dialer() func(selenium.Capabilities, string) (selenium.WebDriver, error) {
	return func(caps selenium.Capabilities, urlPrefix string) (selenium.WebDriver, error) {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.Caps = caps
		d.URLPrefix = urlPrefix
		return d, nil
	}
}

// AddElement makes e discoverable with the given locator.
func (d *Driver) AddElement(by, value string, e *Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements[Locator{by, value}] = e
}

// OpenWindow adds a window handle without switching to it.
func (d *Driver) OpenWindow(handle string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Handles = append(d.Handles, handle)
}

// Executed returns a copy of the scripts run so far.
func (d *Driver) Executed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.Scripts...)
}

// QuitCount returns how many times Quit was called.
func (d *Driver) QuitCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Quits
}

func (d *Driver) SessionID() string {
	return d.ID
}

func (d *Driver) SetImplicitWaitTimeout(timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ImplicitWait = timeout
	d.ImplicitWaitSet = true
	return nil
}

func (d *Driver) ResizeWindow(name string, width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ResizeErr != nil {
		return d.ResizeErr
	}
	d.Width, d.Height = width, height
	return nil
}

func (d *Driver) MaximizeWindow(name string) error {
	return nil
}

func (d *Driver) Get(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.URL = url
	return nil
}

func (d *Driver) CurrentURL() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.URL, nil
}

func (d *Driver) ExecuteScript(script string, args []interface{}) (interface{}, error) {
	d.mu.Lock()
	if script == "return document.readyState" {
		state := d.ReadyState
		d.mu.Unlock()
		return state, nil
	}
	d.Scripts = append(d.Scripts, script)
	hook := d.OnScript
	d.mu.Unlock()

	if hook != nil {
		return hook(d, script, args)
	}
	return nil, nil
}

func (d *Driver) FindElement(by, value string) (selenium.WebElement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.elements[Locator{by, value}]
	if !ok {
		return nil, fmt.Errorf("%w: %s=%s", ErrNoSuchElement, by, value)
	}
	return e, nil
}

func (d *Driver) FindElements(by, value string) ([]selenium.WebElement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.elements[Locator{by, value}]; ok {
		return []selenium.WebElement{e}, nil
	}
	return nil, nil
}

func (d *Driver) WindowHandles() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.Handles...), nil
}

func (d *Driver) CurrentWindowHandle() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Current, nil
}

func (d *Driver) SwitchWindow(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, h := range d.Handles {
		if h == name {
			d.Current = name
			return nil
		}
	}
	return fmt.Errorf("no such window: %s", name)
}

func (d *Driver) Screenshot() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ScreenshotErr != nil {
		return nil, d.ScreenshotErr
	}
	d.Screenshots++
	return PNG, nil
}

func (d *Driver) Log(typ log.Type) ([]log.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.LogErr != nil {
		return nil, d.LogErr
	}
	return append([]log.Message(nil), d.ConsoleLog...), nil
}

func (d *Driver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Quits++
	d.Handles = nil
	return d.QuitErr
}

func (d *Driver) Close() error {
	return nil
}

func (d *Driver) WaitWithTimeoutAndInterval(condition selenium.Condition, timeout, interval time.Duration) error {
	start := time.Now()
	for {
		done, err := condition(d)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if elapsed := time.Since(start); elapsed > timeout {
			return fmt.Errorf("timeout after %v", elapsed)
		}
		time.Sleep(interval)
	}
}

func (d *Driver) WaitWithTimeout(condition selenium.Condition, timeout time.Duration) error {
	return d.WaitWithTimeoutAndInterval(condition, timeout, 5*time.Millisecond)
}

func (d *Driver) Wait(condition selenium.Condition) error {
	return d.WaitWithTimeout(condition, time.Minute)
}

// Element is a fake DOM element.
type Element struct {
	selenium.WebElement

	mu       sync.Mutex
	text     string
	hidden   bool
	disabled bool
	clicks   int
	onClick  func()
}

// NewElement returns a visible, enabled element with the given text.
func NewElement(text string) *Element {
	return &Element{text: text}
}

// Hide makes IsDisplayed report false.
func (e *Element) Hide() *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hidden = true
	return e
}

// Disable makes IsEnabled report false.
func (e *Element) Disable() *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disabled = true
	return e
}

// OnClick registers fn to run after every click.
func (e *Element) OnClick(fn func()) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onClick = fn
	return e
}

// Clicks returns how many times the element was clicked.
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

func (e *Element) Click() error {
	e.mu.Lock()
	e.clicks++
	fn := e.onClick
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (e *Element) Text() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text, nil
}

func (e *Element) IsDisplayed() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.hidden, nil
}

func (e *Element) IsEnabled() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.disabled, nil
}

// Service is a fake local driver service.
type Service struct {
	mu      sync.Mutex
	stops   int
	StopErr error
}

func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return s.StopErr
}

// Stops returns how many times Stop was called.
func (s *Service) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}
