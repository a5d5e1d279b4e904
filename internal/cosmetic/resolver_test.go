package cosmetic_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/anfragment/zenfilter/internal/cosmetic"
)

func newResolver(t *testing.T, lines ...string) *cosmetic.Resolver {
	t.Helper()

	r := cosmetic.NewResolver()
	for _, line := range lines {
		if _, err := r.AddRule(line); err != nil {
			t.Fatalf("AddRule(%q): %v", line, err)
		}
	}
	return r
}

func TestResourcesFor(t *testing.T) {
	t.Parallel()

	t.Run("scopes rules to their hostnames", func(t *testing.T) {
		t.Parallel()

		r := newResolver(t, "example.com##.ad")

		if got := r.ResourcesFor("example.com", false).HideSelectors; !reflect.DeepEqual(got, []string{".ad"}) {
			t.Errorf("example.com: got %v, want [.ad]", got)
		}
		if got := r.ResourcesFor("sub.example.com", false).HideSelectors; !reflect.DeepEqual(got, []string{".ad"}) {
			t.Errorf("sub.example.com: got %v, want [.ad]", got)
		}
		if got := r.ResourcesFor("other.com", false).HideSelectors; len(got) != 0 {
			t.Errorf("other.com: got %v, want none", got)
		}
		if got := r.ResourcesFor("notexample.com", false).HideSelectors; len(got) != 0 {
			t.Errorf("notexample.com: got %v, want none", got)
		}
	})

	t.Run("merges generic and specific rules in list order without duplicates", func(t *testing.T) {
		t.Parallel()

		r := newResolver(t,
			"example.com##.first",
			"##.second",
			"example.com,sub.example.com##.first",
			"##.third",
		)

		want := []string{".first", ".second", ".third"}
		if got := r.ResourcesFor("sub.example.com", false).HideSelectors; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("generichide suppresses generic rules only", func(t *testing.T) {
		t.Parallel()

		r := newResolver(t, "##.generic", "~example.org##.not-on-org", "example.com##.specific")

		res := r.ResourcesFor("example.com", true)
		if !reflect.DeepEqual(res.HideSelectors, []string{".specific"}) {
			t.Errorf("got %v, want [.specific]", res.HideSelectors)
		}
		if !res.Generichide {
			t.Error("expected Generichide to be set")
		}

		want := []string{".generic", ".not-on-org", ".specific"}
		if got := r.ResourcesFor("example.com", false).HideSelectors; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
		if got := r.ResourcesFor("example.org", false).HideSelectors; !reflect.DeepEqual(got, []string{".generic"}) {
			t.Errorf("example.org: got %v, want [.generic]", got)
		}
	})

	t.Run("exceptions cancel matching selectors", func(t *testing.T) {
		t.Parallel()

		r := newResolver(t,
			"##.ad",
			"##.banner",
			"example.com#@#.ad",
			"#@#.banner",
			"other.com#@#.unused",
		)

		res := r.ResourcesFor("example.com", false)
		if len(res.HideSelectors) != 0 {
			t.Errorf("got %v, want none", res.HideSelectors)
		}
		if !reflect.DeepEqual(res.Exceptions, []string{".ad", ".banner"}) {
			t.Errorf("Exceptions = %v, want [.ad .banner]", res.Exceptions)
		}

		res = r.ResourcesFor("other.com", false)
		if !reflect.DeepEqual(res.HideSelectors, []string{".ad"}) {
			t.Errorf("other.com: got %v, want [.ad]", res.HideSelectors)
		}
	})

	t.Run("exceptions apply after generichide suppression", func(t *testing.T) {
		t.Parallel()

		r := newResolver(t, "##.ad", "example.com##.ad", "example.com#@#.ad")

		res := r.ResourcesFor("example.com", true)
		if len(res.HideSelectors) != 0 {
			t.Errorf("got %v, want none", res.HideSelectors)
		}
	})

	t.Run("collects style rules", func(t *testing.T) {
		t.Parallel()

		r := newResolver(t,
			"example.com##body:style(overflow: auto !important)",
			"example.com##body:style(position: static)",
			"example.com##.ad",
			"example.com#@#body:style(position: static)",
		)

		res := r.ResourcesFor("example.com", false)
		want := map[string][]string{"body": {"overflow: auto !important"}}
		if !reflect.DeepEqual(res.StyleSelectors, want) {
			t.Errorf("StyleSelectors = %v, want %v", res.StyleSelectors, want)
		}
		if !reflect.DeepEqual(res.HideSelectors, []string{".ad"}) {
			t.Errorf("HideSelectors = %v, want [.ad]", res.HideSelectors)
		}

		css := res.CSS()
		if !strings.Contains(css, ".ad { display: none !important; }") {
			t.Errorf("CSS() = %q, missing hide rule", css)
		}
		if !strings.Contains(css, "body { overflow: auto !important }") {
			t.Errorf("CSS() = %q, missing style rule", css)
		}
	})

	t.Run("empty resolver returns empty resources", func(t *testing.T) {
		t.Parallel()

		res := cosmetic.NewResolver().ResourcesFor("example.com", false)
		if !res.IsEmpty() {
			t.Errorf("expected empty resources, got %+v", res)
		}
	})

	t.Run("rejects nil rules", func(t *testing.T) {
		t.Parallel()

		if err := cosmetic.NewResolver().Add(nil); err == nil {
			t.Error("Add(nil) = nil, want error")
		}
	})
}

func TestCSSBatching(t *testing.T) {
	t.Parallel()

	selectors := make([]string, 250)
	for i := range selectors {
		selectors[i] = ".s" + strings.Repeat("x", i%3)
	}

	css := cosmetic.Resources{HideSelectors: selectors}.CSS()
	if n := strings.Count(css, "{ display: none !important; }"); n != 3 {
		t.Errorf("expected 3 batches, got %d", n)
	}
}
