package merge

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/zotsync/internal/library"
	"github.com/dmitrijs2005/zotsync/internal/logging"
)

// Fields that never participate in field-by-field merging.
var specialFields = map[string]struct{}{
	"key": {}, "version": {}, "itemType": {}, "creators": {},
	"collections": {}, "tags": {}, "relations": {}, "dateModified": {},
	"dateAdded": {},
}

// Source produces groups of documents suspected to be duplicates.
type Source interface {
	Duplicates() [][]*library.Document
}

// Proposal is the merged field set a candidate would collapse into.
type Proposal map[string]any

// Candidate pairs a duplicate group with the proposed merge outcome.
type Candidate struct {
	Docs     []*library.Document
	Proposal Proposal
}

// DocumentMerger builds and applies merge candidates for one library.
type DocumentMerger struct {
	lib *library.Library
	src Source
	log logging.Logger
}

// NewDocumentMerger wires a merger to its duplicate source. A nil logger
// is replaced with a no-op one.
func NewDocumentMerger(lib *library.Library, src Source, log logging.Logger) *DocumentMerger {
	if log == nil {
		log = logging.Nop()
	}
	return &DocumentMerger{lib: lib, src: src, log: log}
}

// BuildMerges turns every duplicate group into a candidate with its
// proposal precomputed.
func (m *DocumentMerger) BuildMerges() []Candidate {
	groups := m.src.Duplicates()
	out := make([]Candidate, 0, len(groups))
	for _, docs := range groups {
		if len(docs) < 2 {
			continue
		}
		out = append(out, Candidate{Docs: docs, Proposal: m.propose(docs)})
	}
	return out
}

// propose computes the merged field set: plurality item type, merged
// creators, first non-empty value per ordinary field, set union for tags
// and collections, concatenated relations.
func (m *DocumentMerger) propose(docs []*library.Document) Proposal {
	p := Proposal{}
	itemType := pluralityItemType(docs)
	p["itemType"] = itemType
	if cs := m.mergeCreators(docs, itemType); len(cs) > 0 {
		p["creators"] = cs
	}

	allowed := map[string]struct{}{}
	for _, f := range m.lib.FieldsFor(itemType) {
		allowed[f] = struct{}{}
	}
	for _, d := range docs {
		for _, f := range m.lib.FieldsFor(d.ItemType()) {
			if _, special := specialFields[f]; special {
				continue
			}
			if _, ok := allowed[f]; !ok {
				continue
			}
			if _, done := p[f]; done {
				continue
			}
			for _, dd := range docs {
				if v, ok := dd.Get(f).(string); ok && v != "" {
					p[f] = v
					break
				}
			}
		}
	}

	var tags, cols []string
	for _, d := range docs {
		for _, t := range d.Tags() {
			tags = appendUnique(tags, t)
		}
		for _, c := range d.Collections() {
			cols = appendUnique(cols, c)
		}
	}
	if len(tags) > 0 {
		p["tags"] = tags
	}
	if len(cols) > 0 {
		p["collections"] = cols
	}

	relations := map[string][]string{}
	for _, d := range docs {
		for pred, objs := range d.Relations() {
			for _, o := range objs {
				if !contains(relations[pred], o) {
					relations[pred] = append(relations[pred], o)
				}
			}
		}
	}
	if len(relations) > 0 {
		p["relations"] = relations
	}
	return p
}

func pluralityItemType(docs []*library.Document) string {
	counts := map[string]int{}
	for _, d := range docs {
		counts[d.ItemType()]++
	}
	best, bestN := "", 0
	for _, d := range docs {
		if t := d.ItemType(); counts[t] > bestN {
			best, bestN = t, counts[t]
		}
	}
	return best
}

// mergeCreators groups the creators of all documents into person
// identities, merges each identity to its best spelling, and keeps the
// original order of first appearance. Roles the winning item type does
// not accept fall back to contributor.
func (m *DocumentMerger) mergeCreators(docs []*library.Document, itemType string) []library.Creator {
	var all []library.Creator
	for _, d := range docs {
		all = append(all, d.Creators()...)
	}
	if len(all) == 0 {
		return nil
	}

	// Transitive identity groups over Person.Same.
	groups := make([][]library.Person, 0, len(all))
	groupOf := make([]int, len(all))
	for i, c := range all {
		matches := []int{}
		for gi, g := range groups {
			for _, p := range g {
				if c.Person.Same(p) {
					matches = append(matches, gi)
					break
				}
			}
		}
		switch len(matches) {
		case 0:
			groupOf[i] = len(groups)
			groups = append(groups, []library.Person{c.Person})
		default:
			target := matches[0]
			groups[target] = append(groups[target], c.Person)
			groupOf[i] = target
			for j := len(matches) - 1; j >= 1; j-- {
				gi := matches[j]
				groups[target] = append(groups[target], groups[gi]...)
				groups[gi] = nil
				for k := 0; k < i; k++ {
					if groupOf[k] == gi {
						groupOf[k] = target
					}
				}
			}
		}
	}

	merged := make(map[int]library.Person, len(groups))
	for gi, g := range groups {
		if g != nil {
			merged[gi] = library.MergePersons(g...)
		}
	}

	validRoles := map[string]struct{}{}
	for _, r := range m.lib.CreatorRolesFor(itemType) {
		validRoles[r] = struct{}{}
	}
	seen := map[string]struct{}{}
	var out []library.Creator
	for i, c := range all {
		p := merged[groupOf[i]]
		role := c.Role
		if _, ok := validRoles[role]; !ok && len(validRoles) > 0 {
			role = "contributor"
			if _, ok := validRoles[role]; !ok {
				continue
			}
		}
		id := fmt.Sprintf("%s|%s|%s", p.Last, p.First, role)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, library.Creator{Person: p, Role: role})
	}
	return out
}

// Apply collapses a candidate: the first document already carrying the
// merged item type survives, receives the proposal, and adopts the
// children of the rest before they are deleted.
func (m *DocumentMerger) Apply(ctx context.Context, c Candidate) error {
	if len(c.Docs) < 2 {
		return nil
	}
	itemType, _ := c.Proposal["itemType"].(string)
	target := c.Docs[0]
	for _, d := range c.Docs {
		if d.ItemType() == itemType {
			target = d
			break
		}
	}
	for field, v := range c.Proposal {
		if err := target.Set(field, v); err != nil {
			return fmt.Errorf("apply merged %s: %w", field, err)
		}
	}
	for _, d := range c.Docs {
		if d == target {
			continue
		}
		for _, child := range d.Children() {
			if err := child.Set("parentItem", target.Key()); err != nil {
				return fmt.Errorf("reparent %s: %w", child.Key(), err)
			}
		}
		d.Delete()
	}
	m.log.Info(ctx, "merged duplicates", "target", target.Key(), "removed", len(c.Docs)-1)
	return nil
}

// Decision is asked once per candidate during an interactive merge. It
// returns the proposal to apply, possibly amended, and whether to apply
// it at all. A non-nil error stops the run.
type Decision func(Candidate) (Proposal, bool, error)

// InteractiveMerge runs every candidate through decide and applies the
// accepted ones. It returns how many groups were merged.
func (m *DocumentMerger) InteractiveMerge(ctx context.Context, decide Decision) (int, error) {
	merged := 0
	for _, c := range m.BuildMerges() {
		if err := ctx.Err(); err != nil {
			return merged, err
		}
		proposal, ok, err := decide(c)
		if err != nil {
			return merged, err
		}
		if !ok {
			continue
		}
		if proposal != nil {
			c.Proposal = proposal
		}
		if err := m.Apply(ctx, c); err != nil {
			return merged, err
		}
		merged++
	}
	return merged, nil
}

func appendUnique(list []string, s string) []string {
	if contains(list, s) {
		return list
	}
	return append(list, s)
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
