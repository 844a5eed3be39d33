package interview

import (
	"regexp"
	"strconv"
)

// ScoreMatch is the outcome of scanning one response for a score.
// Found=false always carries Value=0.
type ScoreMatch struct {
	Value   int
	Found   bool
	Pattern string
}

// ScoreRecognizer is one entry of the extraction cascade.
type ScoreRecognizer struct {
	Name    string
	pattern *regexp.Regexp
}

// Match applies the recognizer alone.
func (r ScoreRecognizer) Match(text string) (int, bool) {
	groups := r.pattern.FindStringSubmatch(text)
	if len(groups) < 2 {
		return 0, false
	}

	value, err := strconv.Atoi(groups[1])
	if err != nil {
		return 0, false
	}
	return value, true
}

// ScoreRecognizers is ordered by precedence; the first match wins.
var ScoreRecognizers = []ScoreRecognizer{
	{Name: "bracketed", pattern: regexp.MustCompile(`(?i)\[SCORE:\s*(\d+)/20\]`)},
	{Name: "score_of_20", pattern: regexp.MustCompile(`(?i)Score:\s*(\d+)\s*(?:out of|/)\s*20`)},
	{Name: "verb_points", pattern: regexp.MustCompile(`(?i)(?:earns|awarded|worth|giving|give)\s*(\d+)\s*points`)},
	{Name: "fraction_points", pattern: regexp.MustCompile(`(?i)(\d+)/20\s*points`)},
	{Name: "rate_this", pattern: regexp.MustCompile(`(?i)(?:give|rate|score)\s*this\s*(?:a|an)?\s*(\d+)(?:\s*out of|\s*/)\s*20`)},
	{Name: "score_of_10", pattern: regexp.MustCompile(`(?i)Score:\s*(\d+)/10`)},
}

// ExtractScore runs the cascade over text. No bounds are enforced on the value.
func ExtractScore(text string) ScoreMatch {
	if text == "" {
		return ScoreMatch{}
	}

	for _, recognizer := range ScoreRecognizers {
		if value, ok := recognizer.Match(text); ok {
			return ScoreMatch{Value: value, Found: true, Pattern: recognizer.Name}
		}
	}
	return ScoreMatch{}
}
