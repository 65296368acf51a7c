package nutrition

import (
	"sort"
	"strings"

	"caloriebot"

	"golang.org/x/text/unicode/norm"
)

// trustTier orders data sources by curation quality, lower is better.
// Unknown or missing tags rank with survey data.
func trustTier(tag string) int {
	t := strings.ToLower(tag)
	switch {
	case strings.Contains(t, "foundation"):
		return 0
	case strings.Contains(t, "sr legacy"):
		return 1
	case strings.Contains(t, "branded"):
		return 3
	default:
		return 2
	}
}

// tokenize folds compatibility forms (full-width letters, ligatures) before
// splitting on whitespace.
func tokenize(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(norm.NFKC.String(s)))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// similarity is the share of query tokens that also appear in description.
func similarity(query, description string) float64 {
	q := tokenize(query)
	if len(q) == 0 {
		return 0
	}
	d := tokenize(description)
	shared := 0
	for tok := range q {
		if _, ok := d[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(q))
}

func score(hit caloriebot.SearchHit, query string) float64 {
	if hit.RelevanceScore != nil {
		return *hit.RelevanceScore
	}
	return similarity(query, hit.Description)
}

// Rank returns hits ordered by trust tier, then by descending relevance.
// The input slice is left untouched and equal hits keep their order.
func Rank(hits []caloriebot.SearchHit, query string) []caloriebot.SearchHit {
	type scored struct {
		hit   caloriebot.SearchHit
		tier  int
		score float64
	}

	items := make([]scored, len(hits))
	for i, h := range hits {
		items[i] = scored{hit: h, tier: trustTier(h.DataSourceTag), score: score(h, query)}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].tier != items[j].tier {
			return items[i].tier < items[j].tier
		}
		return items[i].score > items[j].score
	})

	out := make([]caloriebot.SearchHit, len(items))
	for i, it := range items {
		out[i] = it.hit
	}
	return out
}
