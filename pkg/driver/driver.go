// Package driver defines the small capability surface crmpilot needs from a
// browser-driving engine.
//
// Everything above this package (waits, actions, the window stack, page
// objects) talks to a Driver and never to an engine directly. Adapters for
// concrete engines live in the pwdriver and cdpdriver sub-packages; the
// drivertest sub-package provides an in-memory implementation for tests.
//
// A Driver is bound to one browsing context at a time: a window, optionally
// narrowed to a frame inside it. Element lookups are scoped to that context,
// so an Element obtained before a context switch must be looked up again
// afterwards.
package driver

import (
	"fmt"
	"strconv"
	"strings"
)

// Strategy names how a Locator's value is matched.
type Strategy string

const (
	ByID       Strategy = "id"
	ByName     Strategy = "name"
	ByCSS      Strategy = "css"
	ByXPath    Strategy = "xpath"
	ByLinkText Strategy = "link text"
)

// Locator identifies elements within the active browsing context.
type Locator struct {
	By    Strategy
	Value string
}

// ID locates by the element id attribute.
func ID(id string) Locator { return Locator{By: ByID, Value: id} }

// Name locates by the element name attribute.
func Name(name string) Locator { return Locator{By: ByName, Value: name} }

// CSS locates by CSS selector.
func CSS(selector string) Locator { return Locator{By: ByCSS, Value: selector} }

// XPath locates by XPath expression.
func XPath(expr string) Locator { return Locator{By: ByXPath, Value: expr} }

// LinkText locates anchors whose visible text equals text.
func LinkText(text string) Locator { return Locator{By: ByLinkText, Value: text} }

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.By, l.Value)
}

// CSSSelector renders id, name and css locators as a CSS selector.
// The second result is false for strategies that have no CSS form.
func (l Locator) CSSSelector() (string, bool) {
	switch l.By {
	case ByID:
		return "[id=" + strconv.Quote(l.Value) + "]", true
	case ByName:
		return "[name=" + strconv.Quote(l.Value) + "]", true
	case ByCSS:
		return l.Value, true
	}
	return "", false
}

// XPathExpr renders any locator as an XPath expression.
func (l Locator) XPathExpr() string {
	switch l.By {
	case ByID:
		return "//*[@id=" + xpathLiteral(l.Value) + "]"
	case ByName:
		return "//*[@name=" + xpathLiteral(l.Value) + "]"
	case ByLinkText:
		return "//a[normalize-space(.)=" + xpathLiteral(l.Value) + "]"
	}
	return l.Value
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	out := "concat("
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			if i > start {
				out += `"` + s[start:i] + `",`
			}
			out += `'"',`
			start = i + 1
		}
	}
	out += `"` + s[start:] + `")`
	return out
}

// FrameRef selects a child frame of the current browsing context, either by
// position or by a locator for the frame element.
type FrameRef struct {
	Index   int
	Locator *Locator
}

// FrameIndex references the i-th child frame.
func FrameIndex(i int) FrameRef { return FrameRef{Index: i} }

// FrameBy references the frame element matched by loc.
func FrameBy(loc Locator) FrameRef { return FrameRef{Locator: &loc} }

func (f FrameRef) String() string {
	if f.Locator != nil {
		return "frame(" + f.Locator.String() + ")"
	}
	return "frame(" + strconv.Itoa(f.Index) + ")"
}

// Element is a handle to one element in the browsing context it was found in.
type Element interface {
	Click() error
	Clear() error
	SendKeys(text string) error
	IsSelected() (bool, error)
	IsDisplayed() (bool, error)
	IsEnabled() (bool, error)
	Text() (string, error)
	// SelectByVisibleText picks the option of a select element whose label is text.
	SelectByVisibleText(text string) error
}

// Driver is the engine capability consumed by crmpilot.
type Driver interface {
	Get(url string) error
	CurrentURL() (string, error)

	// FindElement fails with ErrNoSuchElement when nothing matches.
	FindElement(loc Locator) (Element, error)
	// FindElements returns an empty slice when nothing matches.
	FindElements(loc Locator) ([]Element, error)

	// WindowHandles lists open windows in discovery order.
	WindowHandles() ([]string, error)
	WindowHandle() (string, error)
	// SwitchToWindow fails with ErrNoSuchWindow once the window is gone.
	// It leaves any frame and targets the window's top-level document.
	SwitchToWindow(handle string) error
	// SwitchToFrame descends from the current frame; fails with ErrNoSuchFrame.
	SwitchToFrame(ref FrameRef) error
	SwitchToDefaultContent() error

	Quit() error
}
