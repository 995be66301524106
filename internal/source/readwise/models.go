package readwise

// documentsPage is one page of the Reader document list endpoint.
type documentsPage struct {
	Results        []documentRecord `json:"results"`
	NextPageCursor *string          `json:"nextPageCursor"`
}

type documentRecord struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      *string `json:"author"`
	Category    string  `json:"category"`
	Source      string  `json:"source"`
	Location    string  `json:"location"`
	WordCount   *int    `json:"word_count"`
	CreatedAt   string  `json:"created_at"`
	LastMovedAt string  `json:"last_moved_at"`
}

// highlightsPage is one page of the highlight list endpoint.
type highlightsPage struct {
	Results        []highlightRecord `json:"results"`
	NextPageCursor *string           `json:"nextPageCursor"`
}

type highlightRecord struct {
	ID            int64   `json:"id"`
	DocumentID    string  `json:"document_id"`
	Text          string  `json:"text"`
	Note          *string `json:"note"`
	HighlightedAt string  `json:"highlighted_at"`
}
