package guidance

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/abhisek/mathguide/internal/corpus"
)

// IntentKind classifies a turn's input.
type IntentKind string

const (
	IntentAttempt    IntentKind = "attempt"
	IntentNewProblem IntentKind = "new-problem"
	IntentHint       IntentKind = "hint"
	IntentExplain    IntentKind = "explain"
)

// Intent is the parsed form of a turn's input.
type Intent struct {
	Kind IntentKind
	// Body is the input with any command prefix removed.
	Body string
	// Step is the 1-based step a "step N:" attempt targets, or 0.
	Step int
	// Term is the subject of an explanation request.
	Term       string
	Topic      corpus.Topic
	Difficulty int
}

var (
	newPrefixRe   = regexp.MustCompile(`(?i)^\s*(?:/new|new|next|another|skip)\b(?:\s+(?:problem|question|one)\b)?\s*(.*)$`)
	newAnywhereRe = regexp.MustCompile(`(?i)\b(?:new|another|different|next)\s+(?:problem|question|one)\b`)
	hintRe        = regexp.MustCompile(`(?i)^\s*(?:/hint|hint|help|stuck|i'?m stuck|i don'?t know|idk|give me a hint)\b`)
	explainRe     = regexp.MustCompile(`(?i)^\s*/?explain\s+(?:the\s+|an?\s+)?(.+?)[\s?.!]*$`)
	whatIsRe      = regexp.MustCompile(`(?i)^\s*what\s+(?:is|are|does)\s+(?:the\s+|an?\s+)?([a-z][a-z '-]{2,}?)(?:\s+mean)?\s*\??$`)
	stepRe        = regexp.MustCompile(`(?i)^\s*step\s*(\d+)\s*[:.)-]\s*(.+)$`)
	difficultyRe  = regexp.MustCompile(`(?i)\b(?:difficulty|level)\s*([1-5])\b`)
)

// parseIntent classifies input. Attempts are the default; commands are
// matched before anything is treated as math.
func parseIntent(input string) Intent {
	text := strings.TrimSpace(input)

	if m := stepRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return Intent{Kind: IntentAttempt, Body: strings.TrimSpace(m[2]), Step: n}
	}
	if m := explainRe.FindStringSubmatch(text); m != nil {
		return Intent{Kind: IntentExplain, Body: text, Term: strings.TrimSpace(m[1])}
	}
	if m := whatIsRe.FindStringSubmatch(text); m != nil {
		return Intent{Kind: IntentExplain, Body: text, Term: strings.TrimSpace(m[1])}
	}
	if m := newPrefixRe.FindStringSubmatch(text); m != nil {
		rest := strings.TrimSpace(m[1])
		if strings.HasPrefix(strings.ToLower(rest), "step") {
			// "next step" asks for help on the current problem.
			return Intent{Kind: IntentHint, Body: text}
		}
		return withFilters(Intent{Kind: IntentNewProblem, Body: rest})
	}
	if newAnywhereRe.MatchString(text) {
		return withFilters(Intent{Kind: IntentNewProblem, Body: text})
	}
	if hintRe.MatchString(text) {
		return Intent{Kind: IntentHint, Body: text}
	}
	return Intent{Kind: IntentAttempt, Body: text}
}

// withFilters fills unset Topic and Difficulty from the intent body.
func withFilters(in Intent) Intent {
	if in.Topic == "" {
		in.Topic = detectTopic(in.Body)
	}
	if m := difficultyRe.FindStringSubmatch(in.Body); m != nil && in.Difficulty == 0 {
		in.Difficulty, _ = strconv.Atoi(m[1])
	}
	return in
}

// detectTopic recognises an exam topic in free text. Exact keyword hits
// win. Otherwise single words are compared to single-word keywords, first
// for dropped letters and then for one-off typos.
func detectTopic(text string) corpus.Topic {
	lower := strings.ToLower(text)
	if lower == "" {
		return ""
	}
	for _, t := range corpus.AllTopics() {
		if strings.Contains(lower, string(t)) {
			return t
		}
		for _, kw := range t.Keywords() {
			if strings.Contains(lower, kw) {
				return t
			}
		}
	}

	words := strings.FieldsFunc(lower, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, near := range []func(word, keyword string) bool{droppedLetters, typo} {
		for _, t := range corpus.AllTopics() {
			for _, kw := range t.Keywords() {
				if strings.Contains(kw, " ") {
					continue
				}
				for _, w := range words {
					if plausible(w, kw) && near(w, kw) {
						return t
					}
				}
			}
		}
	}
	return ""
}

// plausible rules out words too short to be judged a misspelling.
func plausible(word, keyword string) bool {
	return len(word) >= 5 && len(keyword) >= 6
}

// droppedLetters reports whether word is keyword with a letter or two
// missing.
func droppedLetters(word, keyword string) bool {
	return len(word) >= len(keyword)-2 && fuzzy.MatchFold(word, keyword)
}

// typo reports whether word is within two edits of keyword.
func typo(word, keyword string) bool {
	return fuzzy.LevenshteinDistance(word, keyword) <= 2 && abs(len(word)-len(keyword)) <= 1
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// fuzzyRank returns the indexes of targets containing term as a fuzzy
// subsequence, closest first.
func fuzzyRank(term string, targets []string) []int {
	ranks := fuzzy.RankFindNormalizedFold(term, targets)
	sort.Stable(ranks)
	out := make([]int, len(ranks))
	for i, r := range ranks {
		out[i] = r.OriginalIndex
	}
	return out
}
