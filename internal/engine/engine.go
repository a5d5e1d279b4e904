// Package engine compiles filter lists and answers network and cosmetic queries against them.
package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/anfragment/zenfilter/internal/cosmetic"
	"github.com/anfragment/zenfilter/internal/filterlist"
	"github.com/anfragment/zenfilter/internal/logger"
	"github.com/anfragment/zenfilter/internal/networkrules"
	"github.com/anfragment/zenfilter/internal/networkrules/rule"
	"github.com/anfragment/zenfilter/internal/request"
	baserule "github.com/anfragment/zenfilter/internal/rule"
	"github.com/anfragment/zenfilter/internal/scriptlet"
)

var (
	// ErrEngineNotReady is returned by queries made before Finalize.
	ErrEngineNotReady = errors.New("engine is not finalized")
	// ErrEngineFinalized is returned when loading lists after Finalize.
	ErrEngineFinalized = errors.New("engine is already finalized")
	// ErrInvalidInput is returned for list text that is not valid UTF-8.
	ErrInvalidInput = errors.New("invalid input")
)

// SourceStats are the load statistics of a single list.
type SourceStats struct {
	Name string
	filterlist.Stats
}

// Stats describe the lists loaded into an engine.
type Stats struct {
	Sources []SourceStats
	Total   filterlist.Stats
	// Network is only set once the engine is finalized.
	Network networkrules.Stats
	// CosmeticRules and CosmeticExceptions count element hiding rules, Scriptlets scriptlet rules
	// and their exceptions.
	CosmeticRules      int
	CosmeticExceptions int
	Scriptlets         int
}

// index is the read-only state published by Finalize.
type index struct {
	network    *networkrules.Matcher
	cosmetic   *cosmetic.Resolver
	scriptlets *scriptlet.Resolver
}

// Engine accumulates filter lists and, once finalized, matches requests against them.
//
// Load, LoadString and Finalize are meant to be called from a single goroutine. After Finalize,
// queries are safe for concurrent use and never block.
type Engine struct {
	// mu guards the fields used while loading.
	mu          sync.Mutex
	network     *networkrules.Builder
	cosmetic    *cosmetic.Resolver
	scriptlets  *scriptlet.Resolver
	nextOrdinal int
	sources     []SourceStats
	finalized   bool

	noCosmetic bool

	index atomic.Pointer[index]
}

// New creates an empty engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		network:    networkrules.NewBuilder(),
		cosmetic:   cosmetic.NewResolver(),
		scriptlets: scriptlet.NewResolver(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load reads a list and adds its rules. Lines that cannot be parsed are counted and skipped.
func (e *Engine) Load(r io.Reader) (filterlist.Stats, error) {
	return e.LoadNamed("", r)
}

// LoadString adds the rules of a list held in memory.
func (e *Engine) LoadString(text string) (filterlist.Stats, error) {
	return e.LoadNamed("", strings.NewReader(text))
}

// LoadNamed reads a list and records its statistics under name.
func (e *Engine) LoadNamed(name string, r io.Reader) (filterlist.Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finalized {
		return filterlist.Stats{}, ErrEngineFinalized
	}
	if name == "" {
		name = fmt.Sprintf("list #%d", len(e.sources)+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return filterlist.Stats{}, fmt.Errorf("read %q: %w", name, err)
	}
	if !utf8.Valid(data) {
		return filterlist.Stats{}, fmt.Errorf("load %q: %w: list is not valid UTF-8", name, ErrInvalidInput)
	}

	stats, err := filterlist.Scan(bytes.NewReader(data), (*sink)(e))
	if err != nil {
		return stats, fmt.Errorf("load %q: %w", name, err)
	}
	e.sources = append(e.sources, SourceStats{Name: name, Stats: stats})

	rules, exceptions := stats.Rules()
	log.Printf("filter initialization: added %d rules and %d exceptions from %q", rules, exceptions, name)
	if stats.Skipped > 0 {
		log.Printf("filter initialization: skipped %d lines from %q: %v", stats.Skipped, name, stats.SkipReasons)
	}

	return stats, nil
}

// Finalize builds the indexes. Later calls are no-ops.
func (e *Engine) Finalize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finalized {
		return nil
	}
	e.finalized = true

	idx := &index{
		network:    e.network.Build(),
		cosmetic:   e.cosmetic,
		scriptlets: e.scriptlets,
	}
	e.network = nil
	e.index.Store(idx)

	s := idx.network.Stats()
	log.Printf("filter initialization: built %d rules and %d exceptions in %d buckets, %d badfiltered",
		s.Blocks, s.Exceptions, s.Buckets, s.BadFiltered)

	return nil
}

// CheckNetworkRequest matches a request against the network rules.
// The resource type is a host-supplied label such as "script" or "image".
func (e *Engine) CheckNetworkRequest(url, sourceURL, resourceType string) (networkrules.MatchResult, error) {
	idx := e.index.Load()
	if idx == nil {
		return networkrules.MatchResult{}, ErrEngineNotReady
	}

	req, err := request.New(url, sourceURL, resourceType)
	if err != nil {
		return networkrules.MatchResult{}, fmt.Errorf("create request: %w", err)
	}

	res := idx.network.Check(req)
	if res.Blocked() {
		log.Printf("blocked %q by %q", logger.Redacted(req.URL), res.Filter.RawRule)
	}
	return res, nil
}

// URLCosmeticResources returns the cosmetic modifications for the page at url.
func (e *Engine) URLCosmeticResources(url string) (cosmetic.Resources, error) {
	idx := e.index.Load()
	if idx == nil {
		return cosmetic.Resources{}, ErrEngineNotReady
	}

	req, err := request.NewDocument(url)
	if err != nil {
		return cosmetic.Resources{}, fmt.Errorf("create request: %w", err)
	}

	generichide := idx.network.GenericHide(req)
	res := idx.cosmetic.ResourcesFor(req.Hostname, generichide)

	script, err := idx.scriptlets.InjectionFor(req.Hostname)
	if err != nil {
		return cosmetic.Resources{}, fmt.Errorf("create injection: %w", err)
	}
	res.InjectedScript = script

	return res, nil
}

// Finalized reports whether the engine answers queries.
func (e *Engine) Finalized() bool {
	return e.index.Load() != nil
}

// Stats returns the statistics of every list loaded so far.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{
		Sources: make([]SourceStats, len(e.sources)),
	}
	copy(s.Sources, e.sources)
	for _, source := range e.sources {
		s.Total.Add(source.Stats)
	}
	if idx := e.index.Load(); idx != nil {
		s.Network = idx.network.Stats()
	}
	s.CosmeticRules, s.CosmeticExceptions = e.cosmetic.Len()
	scriptlets, scriptletExceptions := e.scriptlets.Len()
	s.Scriptlets = scriptlets + scriptletExceptions
	return s
}

// sink adds classified lines to the engine. It is only used with mu held.
type sink Engine

var errCosmeticDisabled = errors.New("cosmetic filtering is disabled")

func (s *sink) ordinal() int {
	o := s.nextOrdinal
	s.nextOrdinal++
	return o
}

func (s *sink) AddNetworkRule(line string) (baserule.Kind, error) {
	r, err := rule.Parse(line, s.ordinal())
	if err != nil {
		return 0, err
	}
	s.network.Add(r)
	return r.Kind, nil
}

func (s *sink) AddHostsRule(line, host string) error {
	r, err := rule.NewHostRule(line, host, s.ordinal())
	if err != nil {
		return err
	}
	s.network.Add(r)
	return nil
}

func (s *sink) AddCosmeticRule(line string) (baserule.Kind, error) {
	if s.noCosmetic {
		return 0, baserule.Unsupported(line, baserule.SkipDisabled, errCosmeticDisabled)
	}
	r, err := s.cosmetic.AddRule(line)
	if err != nil {
		return 0, err
	}
	return r.Kind, nil
}

func (s *sink) AddScriptletRule(line string) (bool, error) {
	if s.noCosmetic {
		return false, baserule.Unsupported(line, baserule.SkipDisabled, errCosmeticDisabled)
	}
	sc, err := s.scriptlets.AddRule(line)
	if err != nil {
		return false, err
	}
	return sc.Exception, nil
}
