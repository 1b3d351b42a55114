package search

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/phrazzld/lectern/internal/domain"
)

// Defaults used when Options leaves a field unset.
const (
	DefaultThreshold  = 72.0
	DefaultMaxMatches = 50

	// earlyExitScore stops the window scan once a window is this similar.
	earlyExitScore = 95.0
)

// windowDeltas are tried in order around the query's token count.
var windowDeltas = []int{0, 1, -1, 2, -2, 3}

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Options tunes a search. Threshold is clamped to [0, 100]; a nil
// Threshold means DefaultThreshold, and MaxMatches <= 0 means
// DefaultMaxMatches.
type Options struct {
	Threshold  *float64
	MaxMatches int
}

// Threshold returns a pointer to v for Options.Threshold.
func Threshold(v float64) *float64 {
	return &v
}

// Match is a segment that scored at or above the threshold.
type Match struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Exact bool    `json:"exact"`
}

// Segments scores every segment against query and returns the matches
// ordered by descending score, then ascending start, truncated to
// MaxMatches. A blank query matches nothing.
func Segments(segments []domain.Segment, query string, opts Options) []Match {
	query = strings.TrimSpace(query)
	if query == "" || len(segments) == 0 {
		return []Match{}
	}

	threshold := DefaultThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	threshold = min(max(threshold, 0), 100)
	maxMatches := opts.MaxMatches
	if maxMatches <= 0 {
		maxMatches = DefaultMaxMatches
	}

	matches := []Match{}
	for _, seg := range segments {
		score, exact := Score(query, seg.Text)
		if score == 0 || score < threshold {
			continue
		}
		matches = append(matches, Match{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
			Score: score,
			Exact: exact,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Start < matches[j].Start
	})

	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}
	return matches
}

// Score rates how well text matches query on a 0-100 scale and reports
// whether the match is an exact case-insensitive substring.
func Score(query, text string) (float64, bool) {
	query = strings.TrimSpace(query)
	if query == "" || strings.TrimSpace(text) == "" {
		return 0, false
	}

	if strings.Contains(strings.ToLower(text), strings.ToLower(query)) {
		return 100, true
	}

	qTokens := tokens(query)
	sTokens := tokens(text)
	if len(qTokens) == 0 || len(sTokens) == 0 {
		return 0, false
	}

	q := strings.Join(qTokens, " ")
	best := 0.0
	for _, delta := range windowDeltas {
		size := len(qTokens) + delta
		if size < 1 || size > len(sTokens) {
			continue
		}
		for i := 0; i+size <= len(sTokens); i++ {
			best = max(best, ratio(q, strings.Join(sTokens[i:i+size], " ")))
			if best >= earlyExitScore {
				return best, false
			}
		}
	}

	best = max(best, ratio(q, strings.Join(sTokens, " ")))
	return best, false
}

func tokens(s string) []string {
	return tokenPattern.FindAllString(strings.ToLower(s), -1)
}

// ratio is the SequenceMatcher similarity of a and b, compared code point
// by code point, scaled to 0-100.
func ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	m := difflib.NewMatcher(runes(a), runes(b))
	return m.Ratio() * 100
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
