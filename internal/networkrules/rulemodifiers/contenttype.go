package rulemodifiers

import (
	"fmt"

	"github.com/anfragment/zenfilter/internal/request"
	"github.com/anfragment/zenfilter/internal/rule"
)

// ContentTypeModifier restricts a rule to the listed resource types.
// All content type options of a rule are accumulated in a single modifier.
type ContentTypeModifier struct {
	included rule.ResourceType
	excluded rule.ResourceType
}

var _ MatchingModifier = (*ContentTypeModifier)(nil)

// IsContentType reports whether the option names a resource type.
func IsContentType(modifier string) bool {
	if len(modifier) > 0 && modifier[0] == '~' {
		modifier = modifier[1:]
	}
	_, ok := rule.ParseResourceTypeOption(modifier)
	return ok
}

// Parse adds the resource type of the option to the modifier.
func (m *ContentTypeModifier) Parse(modifier string) error {
	inverted := len(modifier) > 0 && modifier[0] == '~'
	if inverted {
		modifier = modifier[1:]
	}
	t, ok := rule.ParseResourceTypeOption(modifier)
	if !ok {
		return errUnknownModifier(modifier)
	}
	if inverted {
		m.excluded |= t
	} else {
		m.included |= t
	}
	return nil
}

// Allowed returns the set of resource types the modifier matches.
func (m *ContentTypeModifier) Allowed() rule.ResourceType {
	allowed := m.included
	if allowed == 0 {
		allowed = rule.ResourceAny
	}
	return allowed &^ m.excluded
}

func (m *ContentTypeModifier) ShouldMatchReq(req *request.Request) bool {
	return m.Allowed().Has(req.Type)
}

func errUnknownModifier(modifier string) error {
	return fmt.Errorf("unknown modifier %s", modifier)
}
