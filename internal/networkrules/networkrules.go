// Package networkrules decides the disposition of network requests.
package networkrules

import (
	"github.com/anfragment/zenfilter/internal/networkrules/rule"
	"github.com/anfragment/zenfilter/internal/request"
	"github.com/anfragment/zenfilter/internal/tokenindex"
)

// MatchResult is the outcome of checking a request.
type MatchResult struct {
	// Matched is true if at least one blocking rule matched the request.
	Matched bool
	// Exception is the highest-precedence exception that cancelled the block, if any.
	Exception *rule.Rule
	// Filter is the blocking rule that won, if any.
	Filter *rule.Rule
	// Important is true when an $important blocking rule overrode all exceptions.
	Important bool
}

// Blocked reports whether the request should be blocked.
func (r MatchResult) Blocked() bool {
	return r.Matched && r.Exception == nil
}

// Builder accumulates network rules. It is not safe for concurrent use.
type Builder struct {
	rules []*rule.Rule
	// badFilters holds the raw text of rules cancelled by $badfilter rules.
	badFilters map[string]struct{}
}

func NewBuilder() *Builder {
	return &Builder{
		badFilters: make(map[string]struct{}),
	}
}

// Add adds a rule to the builder.
func (b *Builder) Add(r *rule.Rule) {
	if r.BadFilter {
		b.badFilters[r.BadFilterTarget()] = struct{}{}
		return
	}
	b.rules = append(b.rules, r)
}

// Build returns a read-only matcher over the added rules.
// Rules cancelled by $badfilter are dropped.
func (b *Builder) Build() *Matcher {
	blocks := tokenindex.NewBuilder[*rule.Rule]()
	exceptions := tokenindex.NewBuilder[*rule.Rule]()
	genericHide := tokenindex.NewBuilder[*rule.Rule]()

	m := &Matcher{}
	for _, r := range b.rules {
		if _, bad := b.badFilters[r.RawRule]; bad {
			m.stats.BadFiltered++
			continue
		}
		switch {
		case r.GenericHide:
			// $generichide rules never affect the disposition, with or without @@.
			genericHide.Add(r.Token, r)
		case r.IsException():
			exceptions.Add(r.Token, r)
		default:
			blocks.Add(r.Token, r)
		}
	}

	m.blocks = blocks.Build()
	m.exceptions = exceptions.Build()
	m.genericHide = genericHide.Build()
	m.stats.Blocks = m.blocks.Len()
	m.stats.Exceptions = m.exceptions.Len()
	m.stats.GenericHide = m.genericHide.Len()
	m.stats.Buckets = m.blocks.Buckets() + m.exceptions.Buckets()
	m.stats.CatchAll = m.blocks.CatchAllLen() + m.exceptions.CatchAllLen()

	b.rules = nil
	return m
}

// Matcher checks requests against network rules. It is immutable and safe for concurrent use.
type Matcher struct {
	blocks      *tokenindex.Index[*rule.Rule]
	exceptions  *tokenindex.Index[*rule.Rule]
	genericHide *tokenindex.Index[*rule.Rule]

	stats Stats
}

// Stats describes the contents of a Matcher.
type Stats struct {
	Blocks      int
	Exceptions  int
	GenericHide int
	BadFiltered int
	// Buckets is the number of token buckets, CatchAll the number of rules without a token.
	Buckets  int
	CatchAll int
}

// Check determines whether the request should be blocked.
//
// An $important blocking rule forces a block regardless of exceptions. Otherwise, any matching
// exception cancels the block, whatever the party constraints of the rules involved.
func (m *Matcher) Check(req *request.Request) MatchResult {
	var (
		best      *rule.Rule
		important *rule.Rule
	)
	m.blocks.Candidates(req.Tokens, func(r *rule.Rule) bool {
		if !r.ShouldMatchReq(req) {
			return true
		}
		if r.Important {
			if r.Precedes(important) {
				important = r
			}
			return true
		}
		if r.Precedes(best) {
			best = r
		}
		return true
	})

	if important != nil {
		return MatchResult{Matched: true, Filter: important, Important: true}
	}
	if best == nil {
		return MatchResult{}
	}

	res := MatchResult{Matched: true, Filter: best}
	m.exceptions.Candidates(req.Tokens, func(r *rule.Rule) bool {
		if r.ShouldMatchReq(req) && r.Precedes(res.Exception) {
			res.Exception = r
		}
		return true
	})
	return res
}

// GenericHide reports whether a $generichide rule applies to the document request.
func (m *Matcher) GenericHide(req *request.Request) bool {
	found := false
	m.genericHide.Candidates(req.Tokens, func(r *rule.Rule) bool {
		found = r.ShouldMatchReq(req)
		return !found
	})
	return found
}

// Stats returns the number of rules in the matcher.
func (m *Matcher) Stats() Stats {
	return m.stats
}
