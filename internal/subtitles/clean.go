package subtitles

import (
	"html"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var adPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)opensubtitles`),
	regexp.MustCompile(`(?i)subtitles? by`),
	regexp.MustCompile(`(?i)synced? and corrected`),
	regexp.MustCompile(`(?i)advertise (your|yours?) product`),
	regexp.MustCompile(`(?i)http(s)?://`),
	regexp.MustCompile(`(?i)\bwww\.`),
	regexp.MustCompile(`(?i)\bsubscene\b`),
	regexp.MustCompile(`(?i)\baddic7ed\b`),
	regexp.MustCompile(`(?i)\byts\b`),
	regexp.MustCompile(`(?i)\byify\b`),
}

var (
	tagPattern      = regexp.MustCompile(`<[^<>]*>`)
	overridePattern = regexp.MustCompile(`\{\\[^}]*\}`)
)

// CleanStats reports the effects of subtitle cleanup operations.
type CleanStats struct {
	RemovedAds   int
	RemovedEmpty int
}

// CleanText strips markup tags and {\...} override blocks, decodes HTML
// entities, NFC-normalizes, and collapses whitespace (line breaks included)
// to single spaces.
func CleanText(raw string) string {
	text := overridePattern.ReplaceAllString(raw, "")
	text = tagPattern.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = norm.NFC.String(text)
	return strings.Join(strings.Fields(text), " ")
}

// RemoveAdvertisements drops entries whose text advertises a subtitle site
// and entries with no text once cleaned.
func RemoveAdvertisements(entries []Entry) ([]Entry, CleanStats) {
	kept := make([]Entry, 0, len(entries))
	var stats CleanStats
	for _, entry := range entries {
		payload := CleanText(entry.Text)
		if payload == "" {
			stats.RemovedEmpty++
			continue
		}
		if isAdvertisement(payload) {
			stats.RemovedAds++
			continue
		}
		kept = append(kept, entry)
	}
	return kept, stats
}

func isAdvertisement(payload string) bool {
	payload = strings.ToLower(payload)
	for _, pattern := range adPatterns {
		if pattern.MatchString(payload) {
			return true
		}
	}
	return false
}
