package library

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Person is one author identity: a family name plus a given-name spelling
// that may range from bare initials to a full name.
type Person struct {
	Last  string
	First string
}

var (
	firstJunkRe   = regexp.MustCompile(`[^\p{L}\p{N}_.\s]+`)
	lastJunkRe    = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	spaceRunRe    = regexp.MustCompile(`\s+`)
	firstSplitRe  = regexp.MustCompile(`[\s.]+`)
	twoCapitalsRe = regexp.MustCompile(`^\p{Lu}\p{Lu}$`)
	nonWordRe     = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	nameJunkRe    = regexp.MustCompile(`[^\p{L}\p{N}_\s.]+`)
)

func upperFirstRune(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}

// Clean returns the person in canonical form: punctuation stripped, initials
// normalized to "X." with adjacent initials joined ("K W" becomes "K.W."),
// and the given name capitalized.
func (p Person) Clean() Person {
	last := strings.TrimSpace(lastJunkRe.ReplaceAllString(p.Last, ""))
	last = spaceRunRe.ReplaceAllString(last, " ")

	first := strings.TrimSpace(firstJunkRe.ReplaceAllString(p.First, ""))
	if twoCapitalsRe.MatchString(first) {
		first = first[:1] + " " + first[1:]
	}

	tokens := firstSplitRe.Split(first, -1)
	var parts []string
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if len([]rune(tok)) == 1 {
			tok += "."
		}
		parts = append(parts, tok)
	}
	var b strings.Builder
	for i, tok := range parts {
		if i > 0 && !(strings.HasSuffix(parts[i-1], ".") && strings.HasSuffix(tok, ".")) {
			b.WriteString(" ")
		}
		b.WriteString(tok)
	}
	first = upperFirstRune(b.String())

	return Person{Last: last, First: first}
}

// firstTokens splits the given name into its whitespace/dot separated
// tokens after light cleaning.
func (p Person) firstTokens() []string {
	first := strings.TrimSpace(nameJunkRe.ReplaceAllString(p.First, ""))
	tokens := firstSplitRe.Split(first, -1)
	out := tokens[:0]
	for _, tok := range tokens {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// FirstInitialsOnly reports whether the given name carries no more
// information than initials.
func (p Person) FirstInitialsOnly() bool {
	first := strings.TrimSpace(p.First)
	if twoCapitalsRe.MatchString(first) {
		return true
	}
	tokens := p.firstTokens()
	if len(tokens) == 0 || len(tokens) > 3 {
		return false
	}
	for _, tok := range tokens {
		if len([]rune(tok)) != 1 {
			return false
		}
	}
	return true
}

// FirstInitial returns the uppercased first letter of the given name, or
// the empty string when there is none.
func (p Person) FirstInitial() string {
	for _, r := range strings.TrimSpace(p.First) {
		return string(unicode.ToUpper(r))
	}
	return ""
}

func normalizeLast(last string) string {
	s := nonWordRe.ReplaceAllString(last, "")
	return strings.TrimSpace(strings.ToLower(s))
}

// Same reports whether the two persons plausibly denote the same author:
// equal family names and non-contradicting given names, where initials
// match any name starting with that letter.
func (p Person) Same(o Person) bool {
	if normalizeLast(p.Last) != normalizeLast(o.Last) {
		return false
	}
	a := comparableFirst(p)
	b := comparableFirst(o)
	if a == "" || b == "" {
		return true
	}
	a, b = strings.ToLower(a), strings.ToLower(b)
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

// comparableFirst reduces the given name to the part worth comparing: the
// leading token, with a two-capital initial pair reduced to its first
// letter.
func comparableFirst(p Person) string {
	first := strings.TrimSpace(p.First)
	if twoCapitalsRe.MatchString(first) {
		return first[:1]
	}
	tokens := p.firstTokens()
	if len(tokens) == 0 {
		return ""
	}
	return tokens[0]
}

func normalizedDistance(a, b string) float64 {
	if a == b {
		return 0
	}
	n := len([]rune(a))
	if m := len([]rune(b)); m < n {
		n = m
	}
	if n == 0 {
		return 1
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(n)
}

// Distance scores how far apart two persons are, as the sum of a
// given-name term and a family-name term, each normalized to [0, 1] by the
// shorter string. Initial-only given names contribute 0 or 1 depending on
// whether the initials agree.
func (p Person) Distance(o Person) float64 {
	var firstTerm float64
	a := comparableFirst(p)
	b := comparableFirst(o)
	switch {
	case a == "" || b == "":
		firstTerm = 0
	case p.FirstInitialsOnly() || o.FirstInitialsOnly():
		if p.FirstInitial() != o.FirstInitial() {
			firstTerm = 1
		}
	default:
		firstTerm = normalizedDistance(strings.ToLower(a), strings.ToLower(b))
	}
	return firstTerm + normalizedDistance(normalizeLast(p.Last), normalizeLast(o.Last))
}

// MergePersons combines spellings of one author into the best single form:
// the plurality family name keeping mixed case where available, and the
// fullest given name consistent with the plurality initial.
func MergePersons(people ...Person) Person {
	if len(people) == 0 {
		return Person{}
	}
	cleaned := make([]Person, len(people))
	for i, p := range people {
		cleaned[i] = p.Clean()
	}

	// Plurality family name, counted with spaces and case ignored.
	lastKey := func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, " ", ""))
	}
	lastCounts := map[string]int{}
	for _, p := range cleaned {
		lastCounts[lastKey(p.Last)]++
	}
	bestLastKey, bestLastN := "", 0
	for _, p := range cleaned {
		k := lastKey(p.Last)
		if lastCounts[k] > bestLastN {
			bestLastKey, bestLastN = k, lastCounts[k]
		}
	}
	// Only spellings carrying the winning family name vote on the
	// given name.
	mixed := func(s string) bool {
		return s != strings.ToLower(s) && s != strings.ToUpper(s)
	}
	kept := cleaned[:0:0]
	bestLast := ""
	for _, p := range cleaned {
		if lastKey(p.Last) != bestLastKey {
			continue
		}
		kept = append(kept, p)
		if bestLast == "" || (!mixed(bestLast) && mixed(p.Last)) {
			bestLast = p.Last
		}
	}

	// Plurality given-name initial among spellings that have one.
	initCounts := map[string]int{}
	for _, p := range kept {
		if in := p.FirstInitial(); in != "" {
			initCounts[in]++
		}
	}
	bestInit, bestInitN := "", 0
	for _, p := range kept {
		in := p.FirstInitial()
		if in != "" && initCounts[in] > bestInitN {
			bestInit, bestInitN = in, initCounts[in]
		}
	}
	if bestInit == "" {
		return Person{Last: bestLast}.Clean()
	}

	candidates := kept[:0:0]
	for _, p := range kept {
		if p.FirstInitial() == bestInit {
			candidates = append(candidates, p)
		}
	}
	full := candidates[:0:0]
	for _, p := range candidates {
		if !p.FirstInitialsOnly() {
			full = append(full, p)
		}
	}
	if len(full) > 0 {
		candidates = full
		// Plurality leading token among the spelled-out names, then the
		// longest given name carrying it wins.
		tokCounts := map[string]int{}
		for _, p := range candidates {
			if toks := p.firstTokens(); len(toks) > 0 && len([]rune(toks[0])) > 1 {
				tokCounts[strings.ToLower(toks[0])]++
			}
		}
		bestTok, bestTokN := "", 0
		for _, p := range candidates {
			toks := p.firstTokens()
			if len(toks) == 0 || len([]rune(toks[0])) <= 1 {
				continue
			}
			k := strings.ToLower(toks[0])
			if tokCounts[k] > bestTokN {
				bestTok, bestTokN = k, tokCounts[k]
			}
		}
		if bestTok != "" {
			narrowed := candidates[:0:0]
			for _, p := range candidates {
				toks := p.firstTokens()
				if len(toks) > 0 && strings.ToLower(toks[0]) == bestTok {
					narrowed = append(narrowed, p)
				}
			}
			candidates = narrowed
		}
	}

	bestFirst := ""
	for _, p := range candidates {
		if len([]rune(p.First)) > len([]rune(bestFirst)) {
			bestFirst = p.First
		}
	}
	return Person{Last: bestLast, First: bestFirst}.Clean()
}
