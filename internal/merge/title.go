package merge

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/dmitrijs2005/zotsync/internal/library"
)

var titleJunkRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// titleKey reduces a title to letters and digits, lowercased, so
// punctuation and spacing differences never split a bucket.
func titleKey(title string) string {
	return strings.ToLower(titleJunkRe.ReplaceAllString(title, ""))
}

// TitleMerger finds duplicates by exact match on normalized titles.
// Keys shorter than four characters are too generic to trust.
type TitleMerger struct {
	lib *library.Library
}

// NewTitleMerger builds a title-bucket duplicate source.
func NewTitleMerger(lib *library.Library) *TitleMerger {
	return &TitleMerger{lib: lib}
}

// Duplicates implements Source.
func (m *TitleMerger) Duplicates() [][]*library.Document {
	buckets := map[string][]*library.Document{}
	for _, d := range m.lib.Documents() {
		key := titleKey(d.Title())
		if len(key) <= 3 {
			continue
		}
		buckets[key] = append(buckets[key], d)
	}
	keys := make([]string, 0, len(buckets))
	for k, docs := range buckets {
		if len(docs) > 1 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([][]*library.Document, 0, len(keys))
	for _, k := range keys {
		out = append(out, buckets[k])
	}
	return out
}

// FuzzyTitleMerger finds duplicates by clustering titles under a
// normalized edit distance, catching near misses the exact buckets skip.
type FuzzyTitleMerger struct {
	lib *library.Library

	// Threshold is the maximum normalized distance at which two titles
	// join a cluster. Zero means the default of 0.1.
	Threshold float64
}

// NewFuzzyTitleMerger builds a fuzzy duplicate source.
func NewFuzzyTitleMerger(lib *library.Library) *FuzzyTitleMerger {
	return &FuzzyTitleMerger{lib: lib}
}

// Duplicates implements Source.
func (m *FuzzyTitleMerger) Duplicates() [][]*library.Document {
	threshold := m.Threshold
	if threshold == 0 {
		threshold = 0.1
	}
	dist := func(a, b *library.Document) float64 {
		ka, kb := titleKey(a.Title()), titleKey(b.Title())
		if ka == kb {
			return 0
		}
		n := len(ka)
		if len(kb) < n {
			n = len(kb)
		}
		if n == 0 {
			return 1
		}
		return float64(levenshtein.ComputeDistance(ka, kb)) / float64(n)
	}
	f := NewFinder(dist, threshold)
	for _, d := range m.lib.Documents() {
		if len(titleKey(d.Title())) > 3 {
			f.Add(d)
		}
	}
	return f.Clusters()
}
