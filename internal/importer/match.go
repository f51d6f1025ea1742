package importer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/territory-cli/internal/model"
)

// Matching thresholds. At or above the auto threshold a client is linked to
// the dealer without review; between the review threshold and the auto
// threshold the match is flagged for manual confirmation.
const (
	AutoMatchThreshold   = 0.85
	ReviewMatchThreshold = 0.55
)

// MatchKind buckets a match result.
type MatchKind string

const (
	MatchAuto   MatchKind = "matched"
	MatchReview MatchKind = "review-required"
	MatchNone   MatchKind = "no-match"
)

// Match pairs an import row with its best dealer candidate.
type Match struct {
	Row        Row
	Dealer     *model.Dealer
	Confidence float64
	Kind       MatchKind
}

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// foldName lowercases and strips diacritics so that "Concessionnaire Québec"
// and "concessionnaire quebec" compare equal.
func foldName(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// nameSimilarity is the Jaccard similarity of the word sets of two names
// after diacritic folding.
func nameSimilarity(a, b string) float64 {
	wordsA := wordSet(foldName(a))
	wordsB := wordSet(foldName(b))

	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}

	union := len(wordsA)
	for w := range wordsB {
		if !wordsA[w] {
			union++
		}
	}

	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(s)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?()[]{}\"'&")
		if w != "" {
			set[w] = true
		}
	}
	return set
}

// BestMatch scores a row against every dealer and returns the strongest
// candidate with its bucket.
func BestMatch(row Row, dealers []model.Dealer) Match {
	m := Match{Row: row, Kind: MatchNone}
	for i := range dealers {
		sim := nameSimilarity(row.Name, dealers[i].Name)
		if sim > m.Confidence {
			m.Confidence = sim
			m.Dealer = &dealers[i]
		}
	}

	switch {
	case m.Confidence >= AutoMatchThreshold:
		m.Kind = MatchAuto
	case m.Confidence >= ReviewMatchThreshold:
		m.Kind = MatchReview
	default:
		m.Kind = MatchNone
		m.Dealer = nil
	}
	return m
}
