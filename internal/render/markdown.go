package render

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"readwise_digest/internal/domain"
)

// Reading speed used for the time-spent estimate.
const wordsPerMinute = 225

var (
	printer    = message.NewPrinter(language.English)
	titleCaser = cases.Title(language.English)
)

// sourceNames fixes display casing for sources the title caser gets wrong.
var sourceNames = map[string]string{
	"ios":   "iOS",
	"macos": "macOS",
	"rss":   "RSS",
	"api":   "API",
	"url":   "URL",
	"pdf":   "PDF",
	"epub":  "EPUB",
	"html":  "HTML",
}

// Digest renders the weekly digest as markdown with a YAML front-matter
// block. Purely a function of its inputs: identical summary and window
// always produce byte-identical output. The front-matter date is the window
// end rather than the wall clock for the same reason.
func Digest(summary domain.DigestSummary, window domain.DateWindow) string {
	var b strings.Builder

	title := fmt.Sprintf("Weekly Reading Digest - %s to %s", window.StartDate(), window.EndDate())

	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", title)
	fmt.Fprintf(&b, "date: %s\n", window.End.Format(time.RFC3339))
	b.WriteString("draft: false\n")
	b.WriteString(`tags: ["reading", "digest", "readwise"]` + "\n")
	b.WriteString(`categories: ["Reading"]` + "\n")
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "# %s\n\n", title)

	writeOverview(&b, summary)
	writeBreakdowns(&b, summary)
	writeDocuments(&b, summary.Documents)
	writeHighlights(&b, summary.Highlights)

	return b.String()
}

func writeOverview(b *strings.Builder, summary domain.DigestSummary) {
	b.WriteString("## Overview\n\n")
	printer.Fprintf(b, "- **Documents Archived**: %d\n", summary.DocumentCount)
	printer.Fprintf(b, "- **Total Words Read**: %d\n", summary.TotalWords)
	printer.Fprintf(b, "- **Average Words per Document**: %.2f\n", summary.AvgWordsPerDocument)
	printer.Fprintf(b, "- **Average Hours to Archive**: %.2f\n", summary.AvgHoursToArchive)
	fmt.Fprintf(b, "- **Time Spent Reading**: %s\n", readingTime(summary.TotalWords))
	printer.Fprintf(b, "- **Highlights Created**: %d\n", summary.HighlightCount)
	b.WriteString("\n")
}

func writeBreakdowns(b *strings.Builder, summary domain.DigestSummary) {
	b.WriteString("## Breakdowns\n\n")
	writeBreakdown(b, "By Category", summary.ByCategory, titleCaser.String)
	writeBreakdown(b, "By Source", summary.BySource, sourceName)
	writeBreakdown(b, "By Location", summary.ByLocation, titleCaser.String)
}

// writeBreakdown emits one subsection, entries sorted by count descending
// then key ascending. Empty maps produce no subsection at all.
func writeBreakdown(b *strings.Builder, heading string, counts map[string]int, display func(string) string) {
	if len(counts) == 0 {
		return
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	fmt.Fprintf(b, "### %s\n\n", heading)
	for _, k := range keys {
		printer.Fprintf(b, "- **%s**: %d\n", display(k), counts[k])
	}
	b.WriteString("\n")
}

func writeDocuments(b *strings.Builder, documents []domain.Document) {
	b.WriteString("## Archived Documents\n\n")

	for _, d := range documents {
		fmt.Fprintf(b, "- **%s**", d.Title)
		if d.Author != nil {
			fmt.Fprintf(b, " by %s", *d.Author)
		}

		var details []string
		if d.WordCount != nil {
			details = append(details, printer.Sprintf("%d words", *d.WordCount))
		}
		if hours, ok := d.HoursToArchive(); ok {
			details = append(details, printer.Sprintf("archived after %.2f hours", hours))
		}
		if len(details) > 0 {
			fmt.Fprintf(b, " (%s)", strings.Join(details, ", "))
		}
		b.WriteString("\n")
	}

	if len(documents) > 0 {
		b.WriteString("\n")
	}
}

func writeHighlights(b *strings.Builder, highlights []domain.Highlight) {
	b.WriteString("## Highlights\n")

	for i, h := range highlights {
		fmt.Fprintf(b, "\n%d. %q\n", i+1, h.Text)
		if h.Note != nil {
			fmt.Fprintf(b, "   - *Note: %s*\n", *h.Note)
		}
	}
}

// readingTime estimates time spent from the word total: minutes under an
// hour, "XhYm" above.
func readingTime(totalWords int) string {
	minutes := int(math.Round(float64(totalWords) / wordsPerMinute))
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// sourceName formats an ingestion-channel name for display, handling
// compound values like "reader_ios" or "import-url".
func sourceName(source string) string {
	if name, ok := sourceNames[strings.ToLower(source)]; ok {
		return name
	}

	parts := strings.FieldsFunc(source, func(r rune) bool {
		return r == '_' || r == '-'
	})

	for i, part := range parts {
		if name, ok := sourceNames[strings.ToLower(part)]; ok {
			parts[i] = name
		} else {
			parts[i] = titleCaser.String(part)
		}
	}

	return strings.Join(parts, " ")
}
