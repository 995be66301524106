package digest

import "readwise_digest/internal/domain"

// FilterDocuments keeps documents whose archived time falls inside the
// window, preserving input order.
func FilterDocuments(docs []domain.Document, window domain.DateWindow) []domain.Document {
	filtered := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		if window.Contains(d.ArchivedAt) {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// FilterHighlights keeps highlights whose created time falls inside the
// window, preserving input order.
func FilterHighlights(highlights []domain.Highlight, window domain.DateWindow) []domain.Highlight {
	filtered := make([]domain.Highlight, 0, len(highlights))
	for _, h := range highlights {
		if window.Contains(h.CreatedAt) {
			filtered = append(filtered, h)
		}
	}
	return filtered
}
