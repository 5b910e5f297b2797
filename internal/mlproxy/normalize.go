package mlproxy

import (
	"fmt"
	"math"
	"regexp"
)

var siteIDPattern = regexp.MustCompile(`^site_\d{4}$`)

func formatSiteID(n int) string { return fmt.Sprintf("site_%04d", n) }

// NormalizeSiteIDs rewrites site IDs in place so every site in one response
// carries a distinct site_NNNN id. A well-formed upstream id is kept unless
// an earlier site already holds it; any other site gets site_(index+1), or
// the next free number when that one is taken. Running it twice changes
// nothing.
func NormalizeSiteIDs(sites []Site) {
	taken := make(map[string]bool, len(sites))
	for i := range sites {
		id := sites[i].SiteID
		if siteIDPattern.MatchString(id) && !taken[id] {
			taken[id] = true
			continue
		}
		n := i + 1
		for taken[formatSiteID(n)] || reservedLater(sites[i+1:], formatSiteID(n)) {
			n++
		}
		id = formatSiteID(n)
		sites[i].SiteID = id
		taken[id] = true
	}
}

// reservedLater reports whether a later site already carries id as a
// well-formed upstream id, so a synthesized id does not steal it.
func reservedLater(rest []Site, id string) bool {
	for _, s := range rest {
		if s.SiteID == id {
			return true
		}
	}
	return false
}

// Score comments, lowest threshold last.
const (
	CommentExcellent = "🌟 Excellent - Highly recommended site"
	CommentGood      = "✅ Good - Suitable for development"
	CommentFair      = "⚠️ Fair - Requires further assessment"
	CommentPoor      = "❌ Poor - Not recommended"
)

// ScoreComment turns a predicted score into its display comment. Thresholds
// are inclusive lower bounds; NaN counts as poor.
func ScoreComment(score float64) string {
	switch {
	case math.IsNaN(score):
		return CommentPoor
	case score >= 0.85:
		return CommentExcellent
	case score >= 0.70:
		return CommentGood
	case score >= 0.50:
		return CommentFair
	default:
		return CommentPoor
	}
}

var statusLabels = map[string]string{
	"sites_found":    "Sites Found",
	"no_sites_found": "No Sites Found",
	"error":          "Error",
}

// StatusLabel maps an upstream status code to its display label. Unknown
// codes pass through unchanged.
func StatusLabel(code string) string {
	if l, ok := statusLabels[code]; ok {
		return l
	}
	return code
}

// normalizeSites applies id and comment normalization.
func normalizeSites(sites []Site) []Site {
	if sites == nil {
		return []Site{}
	}
	NormalizeSiteIDs(sites)
	for i := range sites {
		sites[i].ScoreComment = ScoreComment(sites[i].PredictedScore)
	}
	return sites
}
