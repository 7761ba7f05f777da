package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mecatools/peerdoi/internal/article"
)

// TruncateLen bounds titles, author lists and review summaries in command
// output.
const TruncateLen = 100

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// formatContributors formats a list of authors as "Surname, Given, ...".
// An empty list is an anonymous work.
func formatContributors(authors []article.Author) string {
	if len(authors) == 0 {
		return "Anonymous"
	}
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = fmt.Sprintf("%s, %s", a.Surname, a.GivenName)
	}
	return truncateString(strings.Join(names, ", "), TruncateLen)
}

// reviewSummary picks a representative text section of a referee report:
// the evidence or significance section when present, otherwise any section.
func reviewSummary(texts map[string]string) string {
	for _, substr := range []string{"Evidence", "Significance", ""} {
		if text := textWithTitleContaining(texts, substr); text != "" {
			return truncateString(normalizeWhitespace(text), TruncateLen)
		}
	}
	return ""
}

// textWithTitleContaining returns the content of the first section whose
// title contains substr. Titles are visited in sorted order so the choice
// is deterministic.
func textWithTitleContaining(texts map[string]string, substr string) string {
	titles := make([]string, 0, len(texts))
	for title := range texts {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	for _, title := range titles {
		if strings.Contains(title, substr) {
			return texts[title]
		}
	}
	return ""
}

// normalizeWhitespace collapses linebreaks and runs of whitespace into
// single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// writeOutput writes data to the file at path, or to stdout when path is
// empty or "-".
func writeOutput(path, data string) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.WriteString(data)
		return err
	}
	return os.WriteFile(path, []byte(data), 0o644)
}
