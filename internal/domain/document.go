package domain

import "time"

// Document is one archived reading item from the Reader API.
type Document struct {
	ID         string
	Title      string
	Author     *string
	Category   string // article, book, tweet, ...
	Source     string // ingestion channel (rss, import, reader_mobile, ...)
	Location   string // new, later, archive, feed
	WordCount  *int
	CreatedAt  time.Time // zero when upstream omits it
	ArchivedAt time.Time // zero when upstream omits it; >= CreatedAt when both set
}

// HoursToArchive returns the time between saving and archiving in hours.
// The second return is false when either timestamp is missing.
func (d Document) HoursToArchive() (float64, bool) {
	if d.CreatedAt.IsZero() || d.ArchivedAt.IsZero() {
		return 0, false
	}
	return d.ArchivedAt.Sub(d.CreatedAt).Hours(), true
}

// Highlight is one user-made highlight. DocumentID is a weak reference: the
// parent document may fall outside the digest window.
type Highlight struct {
	ID         int64
	DocumentID string
	Text       string
	Note       *string
	CreatedAt  time.Time
}
