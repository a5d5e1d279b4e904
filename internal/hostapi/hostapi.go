// Package hostapi is the embedding boundary of the engine. It exposes a handle whose methods never
// return errors or panic: failures map to false or nil.
package hostapi

import (
	"log"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/anfragment/zenfilter/internal/engine"
	"github.com/anfragment/zenfilter/internal/logger"
)

// ResourceBundle is the boundary form of the cosmetic resources of a page.
// Absent values are nil.
type ResourceBundle struct {
	// HideSelectors is the comma-joined selector list.
	HideSelectors  *string
	InjectedScript *string
	Generichide    bool
	// StyleSelectors and Exceptions are reserved and always nil.
	StyleSelectors []string
	Exceptions     []string
}

// Handle owns a finalized engine. It is safe for concurrent use.
type Handle struct {
	engine atomic.Pointer[engine.Engine]
}

// Create compiles the rule text into a new handle.
// It returns nil when the text is not valid UTF-8 or contains a NUL byte.
func Create(ruleText string) *Handle {
	if !utf8.ValidString(ruleText) || strings.IndexByte(ruleText, 0) != -1 {
		log.Printf("create engine: rule text is not valid UTF-8 or contains NUL")
		return nil
	}

	e := engine.New()
	if _, err := e.LoadString(ruleText); err != nil {
		log.Printf("create engine: %v", err)
		return nil
	}
	if err := e.Finalize(); err != nil {
		log.Printf("create engine: %v", err)
		return nil
	}

	h := &Handle{}
	h.engine.Store(e)
	return h
}

// Destroy releases the engine. Later calls on the handle return safe defaults.
func (h *Handle) Destroy() {
	if h == nil {
		return
	}
	h.engine.Store(nil)
}

// Swap replaces the engine with a rebuilt one. Queries already running keep the engine they started with.
// A nil or unfinalized engine is ignored.
func (h *Handle) Swap(e *engine.Engine) bool {
	if h == nil || e == nil || !e.Finalized() {
		return false
	}
	h.engine.Store(e)
	return true
}

func (h *Handle) load() *engine.Engine {
	if h == nil {
		return nil
	}
	return h.engine.Load()
}

// Match reports whether the document at url, opened from the tab showing tabHost, is blocked.
// documentHost is accepted for interface compatibility and not used.
func (h *Handle) Match(url, documentHost, tabHost string) bool {
	e := h.load()
	if e == nil {
		return false
	}

	sourceURL := ""
	if tabHost != "" {
		sourceURL = "https://" + tabHost
	}
	res, err := e.CheckNetworkRequest(url, sourceURL, "document")
	if err != nil {
		log.Printf("match %q: %v", logger.Redacted(url), err)
		return false
	}
	return res.Blocked()
}

// URLCosmeticResources returns the cosmetic resources of the page at url.
// It returns nil on a destroyed handle and an empty bundle when the url cannot be parsed.
func (h *Handle) URLCosmeticResources(url string) *ResourceBundle {
	e := h.load()
	if e == nil {
		return nil
	}

	bundle := &ResourceBundle{}
	res, err := e.URLCosmeticResources(url)
	if err != nil {
		log.Printf("cosmetic resources for %q: %v", logger.Redacted(url), err)
		return bundle
	}

	if len(res.HideSelectors) > 0 {
		selectors := strings.Join(res.HideSelectors, ",")
		bundle.HideSelectors = &selectors
	}
	if res.InjectedScript != "" {
		script := res.InjectedScript
		bundle.InjectedScript = &script
	}
	bundle.Generichide = res.Generichide

	return bundle
}

// Release clears the bundle.
func Release(b *ResourceBundle) {
	if b == nil {
		return
	}
	*b = ResourceBundle{}
}
