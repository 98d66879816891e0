package cdpdriver

import (
	"encoding/json"
	"fmt"

	"github.com/entrhq/crmpilot/pkg/driver"
)

// Page scripts. Functions are invoked with this bound to a document (lookups)
// or to an element (element operations).

const findFn = `function(by, value) {
	if (by === "css") return Array.from(this.querySelectorAll(value));
	const r = this.evaluate(value, this, null, 7, null);
	const out = [];
	for (let i = 0; i < r.snapshotLength; i++) out.push(r.snapshotItem(i));
	return out;
}`

// frameByIndexFn indexes the document's direct child browsing contexts in
// document order, the same set window.frames exposes. Nested frames are not
// counted.
const frameByIndexFn = `function(i) {
	const w = this.defaultView;
	if (!w || i < 0 || i >= w.frames.length) return null;
	try {
		return w.frames[i].document;
	} catch (e) {
		return null;
	}
}`

const contentDocumentFn = `function() { return this.contentDocument || null; }`

const clickPointFn = `function() {
	this.scrollIntoView({block: "center", inline: "center"});
	const r = this.getBoundingClientRect();
	let x = r.left + r.width / 2, y = r.top + r.height / 2;
	let w = this.ownerDocument.defaultView;
	while (w.frameElement) {
		const f = w.frameElement.getBoundingClientRect();
		x += f.left + w.frameElement.clientLeft;
		y += f.top + w.frameElement.clientTop;
		w = w.parent;
	}
	return [x, y];
}`

const focusFn = `function() { this.focus(); return true; }`

const clearFn = `function() {
	this.focus();
	if ("value" in this) {
		this.value = "";
		this.dispatchEvent(new Event("input", {bubbles: true}));
		this.dispatchEvent(new Event("change", {bubbles: true}));
	}
	return true;
}`

const selectedFn = `function() { return !!(this.checked || this.selected); }`

const displayedFn = `function() {
	const s = this.ownerDocument.defaultView.getComputedStyle(this);
	if (s.visibility === "hidden" || s.display === "none") return false;
	const r = this.getBoundingClientRect();
	return r.width > 0 && r.height > 0;
}`

const enabledFn = `function() { return !this.disabled; }`

const textFn = `function() { return this.innerText !== undefined ? this.innerText : this.textContent; }`

const selectByTextFn = `function(label) {
	if (this.tagName !== "SELECT") throw new Error("element is not a select");
	for (const o of this.options) {
		if (o.text.replace(/\s+/g, " ").trim() === label) {
			this.value = o.value;
			o.selected = true;
			this.dispatchEvent(new Event("input", {bubbles: true}));
			this.dispatchEvent(new Event("change", {bubbles: true}));
			return true;
		}
	}
	return false;
}`

// guarded reports a detached element instead of running fn on it.
func guarded(fn string, args ...any) (string, error) {
	call, err := invocation(fn, args...)
	if err != nil {
		return "", err
	}
	return `function() {
	if (!this.isConnected) return {stale: true};
	return {value: ` + call + `};
}`, nil
}

// invocation renders fn applied to this with JSON-encoded arguments.
func invocation(fn string, args ...any) (string, error) {
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode script arguments: %w", err)
	}
	return "(" + fn + ").apply(this, " + string(encoded) + ")", nil
}

// wrap turns an expression over this into a function declaration.
func wrap(expr string) string {
	return "function() { return " + expr + "; }"
}

// lookupArgs splits a locator into the strategy understood by findFn.
func lookupArgs(loc driver.Locator) (string, string) {
	if css, ok := loc.CSSSelector(); ok {
		return "css", css
	}
	return "xpath", loc.XPathExpr()
}
