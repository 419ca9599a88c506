package simplefields

import (
	"context"
	"sort"
	"strings"
)

// Relevance weights. Title matches dominate, exact title matches more so,
// body occurrences count double, metadata matches break ties.
const (
	scoreTitleSubstring = 10
	scoreTitleExact     = 20
	scoreBodyOccurrence = 2
	scoreMetaSubstring  = 1
)

// SearchResult pairs an item with its computed relevance.
type SearchResult struct {
	Item  *Item `json:"item"`
	Score int   `json:"score"`
}

// Search runs a free-text query over the requested fields and re-ranks the
// store's results by relevance, descending. Fields defaults to title and
// content. The store query ORs a LIKE match across every expected metadata
// field when meta search is requested.
func (m *Model) Search(ctx context.Context, term string, fields []SearchField, q Query) ([]*SearchResult, error) {
	searchQueriesTotal.Inc()

	if len(fields) == 0 {
		fields = []SearchField{SearchTitle, SearchBody}
	}
	want := map[SearchField]bool{}
	for _, f := range fields {
		want[f] = true
	}

	q.Type = m.TypeID()
	q.Search = term
	q.SearchTitle = want[SearchTitle]
	q.SearchBody = want[SearchBody]
	if want[SearchMeta] {
		for _, f := range m.ExpectedFields() {
			q.MetaFilters = append(q.MetaFilters, MetaFilter{
				Key:     f.ID,
				Value:   term,
				Compare: MetaContains,
			})
		}
		q.MetaOr = true
	}

	items, err := m.store.QueryItems(ctx, q)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(items))
	for _, item := range items {
		results = append(results, &SearchResult{
			Item:  item,
			Score: relevanceScore(item, term),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

// relevanceScore computes the client-side ranking for one item: +10 for a
// title substring match plus +20 more for an exact title match, 2x per body
// occurrence, and +1 per metadata value containing the term.
func relevanceScore(item *Item, term string) int {
	t := strings.ToLower(strings.TrimSpace(term))
	if t == "" {
		return 0
	}
	score := 0

	title := strings.ToLower(item.Title)
	if strings.Contains(title, t) {
		score += scoreTitleSubstring
		if title == t {
			score += scoreTitleExact
		}
	}

	score += strings.Count(strings.ToLower(item.Body), t) * scoreBodyOccurrence

	for _, values := range item.Meta {
		for _, v := range values {
			if strings.Contains(strings.ToLower(toString(v)), t) {
				score += scoreMetaSubstring
			}
		}
	}
	return score
}
