package digest

import (
	"sort"

	"readwise_digest/internal/domain"
)

// Aggregate builds the digest summary from window-filtered documents and
// highlights. Pure and deterministic: identical input always yields an
// identical summary, including ordering.
func Aggregate(documents []domain.Document, highlights []domain.Highlight) domain.DigestSummary {
	summary := domain.DigestSummary{
		DocumentCount:  len(documents),
		HighlightCount: len(highlights),
		ByCategory:     map[string]int{},
		BySource:       map[string]int{},
		ByLocation:     map[string]int{},
		Documents:      sortDocuments(documents),
		Highlights:     orderHighlights(highlights),
	}

	var archivedHours float64
	var archivedCount int

	for _, d := range summary.Documents {
		if d.WordCount != nil {
			summary.TotalWords += *d.WordCount
		}
		summary.ByCategory[d.Category]++
		summary.BySource[d.Source]++
		summary.ByLocation[d.Location]++

		if hours, ok := d.HoursToArchive(); ok {
			archivedHours += hours
			archivedCount++
		}
	}

	if summary.DocumentCount > 0 {
		summary.AvgWordsPerDocument = float64(summary.TotalWords) / float64(summary.DocumentCount)
	}
	if archivedCount > 0 {
		summary.AvgHoursToArchive = archivedHours / float64(archivedCount)
	}

	return summary
}

// sortDocuments orders by archived time descending, document id ascending on
// ties.
func sortDocuments(documents []domain.Document) []domain.Document {
	sorted := make([]domain.Document, len(documents))
	copy(sorted, documents)

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ArchivedAt.Equal(sorted[j].ArchivedAt) {
			return sorted[i].ArchivedAt.After(sorted[j].ArchivedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	return sorted
}

// orderHighlights sorts by created time ascending (id ascending on ties),
// then regroups so that all highlights of one parent document sit together,
// parents ordered by first appearance in the sorted sequence. Highlights
// whose parent is unknown keep their group like any other.
func orderHighlights(highlights []domain.Highlight) []domain.Highlight {
	sorted := make([]domain.Highlight, len(highlights))
	copy(sorted, highlights)

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	groupIndex := map[string]int{}
	var groups [][]domain.Highlight

	for _, h := range sorted {
		idx, seen := groupIndex[h.DocumentID]
		if !seen {
			idx = len(groups)
			groupIndex[h.DocumentID] = idx
			groups = append(groups, nil)
		}
		groups[idx] = append(groups[idx], h)
	}

	ordered := make([]domain.Highlight, 0, len(sorted))
	for _, group := range groups {
		ordered = append(ordered, group...)
	}

	return ordered
}
