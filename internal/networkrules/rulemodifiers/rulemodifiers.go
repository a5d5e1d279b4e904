// Package rulemodifiers implements the $-options of network rules that narrow down the requests a rule applies to.
package rulemodifiers

import (
	"github.com/anfragment/zenfilter/internal/request"
)

// Modifier is a modifier of a rule.
type Modifier interface {
	Parse(modifier string) error
}

// MatchingModifier defines whether a rule matches a request.
type MatchingModifier interface {
	Modifier
	ShouldMatchReq(req *request.Request) bool
}
