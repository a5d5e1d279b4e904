package rulemodifiers

import (
	"github.com/anfragment/zenfilter/internal/request"
)

// https://adguard.com/kb/general/ad-filtering/create-own-filters/#third-party-modifier
type ThirdPartyModifier struct {
	inverted bool
}

var _ MatchingModifier = (*ThirdPartyModifier)(nil)

// Parse accepts third-party and 3p, their ~ negations, and the first-party and 1p aliases.
func (m *ThirdPartyModifier) Parse(modifier string) error {
	switch modifier {
	case "third-party", "3p":
	case "~third-party", "~3p", "first-party", "1p":
		m.inverted = true
	case "~first-party", "~1p":
	default:
		return errUnknownModifier(modifier)
	}
	return nil
}

func (m *ThirdPartyModifier) ShouldMatchReq(req *request.Request) bool {
	return req.ThirdParty != m.inverted
}
