package scanner

import "strings"

// dealerCategories are provider category tags that always mark a result as a
// dealer candidate, regardless of name.
var dealerCategories = map[string]bool{
	"car_dealer": true,
	"car_repair": true,
}

// nameTriggers are substrings that mark a result as a dealer candidate when
// none of its category tags match. Matching is case-insensitive.
var nameTriggers = []string{
	"dealership",
	"concessionnaire",
	"auto",
	"honda",
	"toyota",
	"ford",
	"mazda",
	"nissan",
	"hyundai",
	"kia",
	"subaru",
	"chevrolet",
	"volkswagen",
}

// IsDealerCandidate applies the heuristic dealer classifier to a raw search
// result. It is deliberately loose: brand names and the word "auto" produce
// false positives, and dealers with unusual names and no category tag are
// missed. Callers must not assume accuracy.
func IsDealerCandidate(name string, types []string) bool {
	for _, t := range types {
		if dealerCategories[t] {
			return true
		}
	}

	lower := strings.ToLower(name)
	for _, trigger := range nameTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}
