package cosmetic

import (
	"fmt"
	"sort"
	"strings"
)

// CSS renders the resources as a stylesheet.
func (r Resources) CSS() string {
	var builder strings.Builder
	builder.WriteString(generateBatchedCSS(r.HideSelectors))

	selectors := make([]string, 0, len(r.StyleSelectors))
	for selector := range r.StyleSelectors {
		selectors = append(selectors, selector)
	}
	sort.Strings(selectors)
	for _, selector := range selectors {
		for _, style := range r.StyleSelectors[selector] {
			builder.WriteString(fmt.Sprintf("%s { %s }\n", selector, style))
		}
	}

	return builder.String()
}

func generateBatchedCSS(selectors []string) string {
	const batchSize = 100

	var builder strings.Builder
	for i := 0; i < len(selectors); i += batchSize {
		end := i + batchSize
		if end > len(selectors) {
			end = len(selectors)
		}
		batch := selectors[i:end]

		joinedSelectors := strings.Join(batch, ", ")
		builder.WriteString(fmt.Sprintf("%s { display: none !important; }\n", joinedSelectors))
	}

	return builder.String()
}
