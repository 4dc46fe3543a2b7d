// Package categorize partitions select-location results into the four fixed
// hotel categories the prompt asks for.
package categorize

import (
	"regexp"
	"strings"

	"github.com/trueinf/geosight-new-sub000/internal/model"
)

// BucketSize is the number of items each category holds.
const BucketSize = 5

var categoryPrefixes = []string{
	"best hotels",
	"best luxury hotels",
	"best business hotels",
	"best family hotels",
}

var (
	// Titles that are really a repeated category header rather than an item.
	headerTitle = regexp.MustCompile(`(?i)\b(?:best|category)\b`)

	locationSuffix = regexp.MustCompile(`(?i)\bin\s+(.+?)\s*[?.!]*$`)
)

// BucketName is the category label for a position in the flat list. Positions
// beyond the last category return "".
func BucketName(index int, location string) string {
	b := index / BucketSize
	if index < 0 || b >= len(categoryPrefixes) {
		return ""
	}
	return label(categoryPrefixes[b], location)
}

// BucketOrder lists the category labels for location in display order.
func BucketOrder(location string) []string {
	out := make([]string, len(categoryPrefixes))
	for i, p := range categoryPrefixes {
		out[i] = label(p, location)
	}
	return out
}

func label(prefix, location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return prefix
	}
	return prefix + " in " + location
}

// Categorize assigns items to categories by position alone: 0-4, 5-9, 10-14
// and 15-19. Items carrying a header-like title are dropped from their
// category, and no category ever holds more than BucketSize items. Every
// category is present in the result, possibly empty. Returned items have
// Category set to their label.
func Categorize(items []model.ParsedResultItem, location string) map[string][]model.ParsedResultItem {
	out := make(map[string][]model.ParsedResultItem, len(categoryPrefixes))
	for _, name := range BucketOrder(location) {
		out[name] = []model.ParsedResultItem{}
	}

	for i, it := range items {
		name := BucketName(i, location)
		if name == "" {
			break
		}
		if !kept(it) {
			continue
		}
		if len(out[name]) >= BucketSize {
			continue
		}
		it.Category = name
		out[name] = append(out[name], it)
	}
	return out
}

// Label sets Category in place on the items Categorize keeps and clears it on
// the rest, so a flat list and its categories always agree.
func Label(items []model.ParsedResultItem, location string) {
	for i := range items {
		items[i].Category = ""
		if name := BucketName(i, location); name != "" && kept(items[i]) {
			items[i].Category = name
		}
	}
}

func kept(it model.ParsedResultItem) bool {
	return !headerTitle.MatchString(it.Title)
}

// LocationFromQuery extracts "X" from queries such as "hotels in X". It
// returns "" when the query names no location.
func LocationFromQuery(query string) string {
	m := locationSuffix.FindStringSubmatch(strings.TrimSpace(query))
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
