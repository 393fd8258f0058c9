package feed

import (
	"html"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"steamnews/internal/domain"
)

const (
	unknownSourceName  = "Unknown?"
	unknownFeedLabel   = "Unknown Source"
	multipleSourcesTag = "[Multiple] "

	// fuzzyCutoff is the minimum similarity ratio for a source name to count
	// as already present in a title.
	fuzzyCutoff = 0.8
)

// feedNameLabels covers feeds that arrive without a feed label.
var feedNameLabels = map[string]string{
	"steam_community_blog": "Steam Community Blog",
}

// DisplayTitle prefixes title with the source it belongs to unless the
// source is already recognisable in it.
func DisplayTitle(title string, sourceNames []string) string {
	if len(sourceNames) == 0 {
		sourceNames = []string{unknownSourceName}
	}
	if len(sourceNames) > 1 {
		return multipleSourcesTag + title
	}

	name := sourceNames[0]
	if mentions(title, name) {
		return title
	}
	return "[" + name + "] " + title
}

// mentions reports whether name occurs in title either as a substring or as
// a close match of some run of consecutive title words.
func mentions(title, name string) bool {
	title = strings.ToLower(title)
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return true
	}
	if strings.Contains(title, name) {
		return true
	}

	words := strings.Fields(title)
	maxWidth := len(strings.Fields(name))
	nameChars := strings.Split(name, "")

	for width := 1; width <= maxWidth; width++ {
		for start := 0; start+width <= len(words); start++ {
			group := strings.Join(words[start:start+width], " ")
			m := difflib.NewMatcher(nameChars, strings.Split(group, ""))
			if m.Ratio() >= fuzzyCutoff {
				return true
			}
		}
	}
	return false
}

// AttributionLabel names the upstream feed an item came from.
func AttributionLabel(item domain.NewsItem) string {
	if item.FeedLabel != "" {
		return item.FeedLabel
	}
	if label, ok := feedNameLabels[item.FeedName]; ok {
		return label
	}
	if item.FeedName != "" {
		return item.FeedName
	}
	return unknownFeedLabel
}

// Byline is the attribution paragraph placed in front of item content.
func Byline(label string, sourceNames []string) string {
	if len(sourceNames) == 0 {
		sourceNames = []string{unknownSourceName}
	}
	escaped := make([]string, len(sourceNames))
	for i, n := range sourceNames {
		escaped[i] = html.EscapeString(n)
	}
	return "<p><i>Via <b>" + html.EscapeString(label) + "</b> for " + strings.Join(escaped, ", ") + "</i></p>\n"
}
