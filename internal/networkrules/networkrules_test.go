package networkrules

import (
	"testing"

	"github.com/anfragment/zenfilter/internal/networkrules/rule"
	"github.com/anfragment/zenfilter/internal/request"
)

func newMatcher(t *testing.T, lines ...string) *Matcher {
	t.Helper()

	b := NewBuilder()
	for i, line := range lines {
		r, err := rule.Parse(line, i)
		if err != nil {
			t.Fatalf("rule.Parse(%q): %v", line, err)
		}
		b.Add(r)
	}
	return b.Build()
}

func newRequest(t *testing.T, url, source, resourceType string) *request.Request {
	t.Helper()

	req, err := request.New(url, source, resourceType)
	if err != nil {
		t.Fatalf("request.New(%q): %v", url, err)
	}
	return req
}

func TestCheck(t *testing.T) {
	t.Parallel()

	t.Run("default allow", func(t *testing.T) {
		t.Parallel()

		m := newMatcher(t, "||ads.example^", "/banner/*")
		res := m.Check(newRequest(t, "https://safe.example/x", "https://example.com", "script"))
		if res.Matched || res.Blocked() || res.Exception != nil || res.Filter != nil {
			t.Errorf("Check() = %+v, want zero result", res)
		}

		empty := NewBuilder().Build()
		if empty.Check(newRequest(t, "https://ads.example/x", "", "")).Blocked() {
			t.Error("an empty matcher should allow every request")
		}
	})

	t.Run("exception cancels block", func(t *testing.T) {
		t.Parallel()

		m := newMatcher(t, "||ads.example^", "@@||ads.example/allowed^")

		res := m.Check(newRequest(t, "https://ads.example/allowed", "https://example.com", ""))
		if !res.Matched {
			t.Error("Matched = false, want true")
		}
		if res.Blocked() {
			t.Error("Blocked() = true, want false")
		}
		if res.Exception == nil || res.Exception.RawRule != "@@||ads.example/allowed^" {
			t.Errorf("Exception = %v, want @@||ads.example/allowed^", res.Exception)
		}

		res = m.Check(newRequest(t, "https://ads.example/other", "https://example.com", ""))
		if !res.Blocked() {
			t.Errorf("Check(other) = %+v, want blocked", res)
		}
	})

	t.Run("important beats exceptions", func(t *testing.T) {
		t.Parallel()

		m := newMatcher(t, "||ads.example^$important", "@@||ads.example^", "@@||ads.example/x^$script")
		res := m.Check(newRequest(t, "https://ads.example/x", "https://example.com", "script"))
		if !res.Blocked() {
			t.Errorf("Check() = %+v, want blocked", res)
		}
		if !res.Important || res.Exception != nil {
			t.Errorf("Important = %t, Exception = %v; want true, nil", res.Important, res.Exception)
		}
		if res.Filter == nil || !res.Filter.Important {
			t.Errorf("Filter = %v, want the important rule", res.Filter)
		}
	})

	t.Run("most specific exception wins", func(t *testing.T) {
		t.Parallel()

		m := newMatcher(t,
			"||ads.example^",
			"@@||ads.example^",
			"@@||ads.example/allowed^$script",
			"@@||ads.example/allowed^",
		)
		res := m.Check(newRequest(t, "https://ads.example/allowed", "", "script"))
		if res.Exception == nil || res.Exception.RawRule != "@@||ads.example/allowed^$script" {
			t.Errorf("Exception = %v, want @@||ads.example/allowed^$script", res.Exception)
		}
	})

	t.Run("equal specificity is broken by insertion order", func(t *testing.T) {
		t.Parallel()

		m := newMatcher(t, "||ads.example^", "@@||ads.example^$script", "@@||ads.example^$image,script")
		res := m.Check(newRequest(t, "https://ads.example/x", "", "script"))
		if res.Exception == nil || res.Exception.Ordinal != 1 {
			t.Errorf("Exception = %v, want the rule at ordinal 1", res.Exception)
		}
	})

	t.Run("first-party exception cancels third-party block", func(t *testing.T) {
		t.Parallel()

		m := newMatcher(t, "||cdn.example^$third-party", "@@||cdn.example^$~third-party")
		// A third-party request is blocked; the first-party exception does not match it.
		if !m.Check(newRequest(t, "https://cdn.example/lib.js", "https://news.com", "script")).Blocked() {
			t.Error("third-party request should be blocked")
		}

		m = newMatcher(t, "||cdn.example^$third-party", "@@||cdn.example^")
		if m.Check(newRequest(t, "https://cdn.example/lib.js", "https://news.com", "script")).Blocked() {
			t.Error("an unconstrained exception should cancel a third-party block")
		}
	})

	t.Run("resource type and domain constraints filter candidates", func(t *testing.T) {
		t.Parallel()

		m := newMatcher(t, "||ads.example^$image,domain=news.com")
		tests := []struct {
			url, source, resourceType string
			blocked                   bool
		}{
			{"https://ads.example/a.png", "https://news.com", "image", true},
			{"https://ads.example/a.png", "https://www.news.com", "image", true},
			{"https://ads.example/a.js", "https://news.com", "script", false},
			{"https://ads.example/a.png", "https://blog.com", "image", false},
			{"https://ads.example/a.png", "", "image", false},
		}
		for _, tt := range tests {
			if got := m.Check(newRequest(t, tt.url, tt.source, tt.resourceType)).Blocked(); got != tt.blocked {
				t.Errorf("Check(%s from %q as %s).Blocked() = %t, want %t", tt.url, tt.source, tt.resourceType, got, tt.blocked)
			}
		}
	})

	t.Run("catch-all rules are always candidates", func(t *testing.T) {
		t.Parallel()

		m := newMatcher(t, "ads*banner", `/track[0-9]+/`)
		if !m.Check(newRequest(t, "https://x.com/ads/top/banner.gif", "", "")).Blocked() {
			t.Error("wildcard rule without a token should match")
		}
		if !m.Check(newRequest(t, "https://x.com/track42", "", "")).Blocked() {
			t.Error("regexp rule should match")
		}
		if got := m.Stats().CatchAll; got != 2 {
			t.Errorf("Stats().CatchAll = %d, want 2", got)
		}
	})
}

func TestBadFilter(t *testing.T) {
	t.Parallel()

	m := newMatcher(t,
		"||ads.example^",
		"||tracker.example^$script",
		"||ads.example^$badfilter",
		"@@||tracker.example^$badfilter",
	)

	if m.Check(newRequest(t, "https://ads.example/x", "", "")).Blocked() {
		t.Error("rule cancelled by $badfilter should not block")
	}
	if !m.Check(newRequest(t, "https://tracker.example/x.js", "", "script")).Blocked() {
		t.Error("$badfilter should only cancel rules with identical text")
	}
	stats := m.Stats()
	if stats.BadFiltered != 1 || stats.Blocks != 1 {
		t.Errorf("Stats() = %+v, want BadFiltered=1 Blocks=1", stats)
	}
}

func TestGenericHide(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, "@@||example.com^$generichide", "||news.com^$ghide")

	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/", true},
		{"https://sub.example.com/page", true},
		{"https://news.com/", true},
		{"https://other.com/", false},
	}
	for _, tt := range tests {
		req, err := request.NewDocument(tt.url)
		if err != nil {
			t.Fatal(err)
		}
		if got := m.GenericHide(req); got != tt.want {
			t.Errorf("GenericHide(%s) = %t, want %t", tt.url, got, tt.want)
		}
		if m.Check(req).Matched {
			t.Errorf("$generichide rules must not affect the disposition of %s", tt.url)
		}
	}
}
