package merge

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/zotsync/internal/library"
	"github.com/dmitrijs2005/zotsync/internal/remote"
)

// syncedLibrary builds a library whose documents came from pull, so the
// merger operates on clean synced objects like in real runs.
func syncedLibrary(t *testing.T, payloads ...remote.Payload) *library.Library {
	t.Helper()
	srv := &staticServer{items: map[string]remote.Payload{}}
	for _, p := range payloads {
		srv.items[p.Key()] = p
	}
	lib := library.New(srv, nil)
	require.NoError(t, lib.Pull(context.Background()))
	return lib
}

// staticServer serves a fixed item set and swallows writes.
type staticServer struct {
	items map[string]remote.Payload
}

var _ remote.Server = (*staticServer)(nil)

func (s *staticServer) LastModifiedVersion() int64 { return 1 }

func (s *staticServer) ItemVersions(ctx context.Context, since int64) (map[string]int64, error) {
	out := map[string]int64{}
	for k, p := range s.items {
		out[k] = p.Version()
	}
	return out, nil
}

func (s *staticServer) CollectionVersions(ctx context.Context, since int64) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (s *staticServer) Items(ctx context.Context, keys []string) ([]remote.Payload, error) {
	var out []remote.Payload
	for _, k := range keys {
		if p, ok := s.items[k]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *staticServer) Collection(ctx context.Context, key string) (remote.Payload, error) {
	return nil, remote.ErrNotFound
}

func (s *staticServer) Deleted(ctx context.Context, since int64) (*remote.Deletions, error) {
	return &remote.Deletions{}, nil
}

func (s *staticServer) CreateItems(ctx context.Context, items []remote.Payload, lastModified int64) (*remote.WriteResult, error) {
	return &remote.WriteResult{}, nil
}

func (s *staticServer) CreateCollections(ctx context.Context, cols []remote.Payload, lastModified int64) (*remote.WriteResult, error) {
	return &remote.WriteResult{}, nil
}

func (s *staticServer) DeleteItems(ctx context.Context, keys []string, lastModified int64) error {
	return nil
}

func (s *staticServer) DeleteCollections(ctx context.Context, keys []string, lastModified int64) error {
	return nil
}

func (s *staticServer) ItemTypes(ctx context.Context) ([]string, error) { return nil, nil }
func (s *staticServer) ItemFields(ctx context.Context, itemType string) ([]string, error) {
	return nil, nil
}
func (s *staticServer) ItemCreatorTypes(ctx context.Context, itemType string) ([]string, error) {
	return nil, nil
}

func doc(key, itemType, title string, extra map[string]any) remote.Payload {
	p := remote.Payload{"key": key, "version": int64(1), "itemType": itemType, "title": title}
	for k, v := range extra {
		p[k] = v
	}
	return p
}

func creator(role, first, last string) map[string]any {
	return map[string]any{"creatorType": role, "firstName": first, "lastName": last}
}

func TestFinder_ClustersAndBridges(t *testing.T) {
	dist := func(a, b float64) float64 { return math.Abs(a - b) }
	f := NewFinder(dist, 2)
	f.AddAll([]float64{0, 10, 20})
	require.Empty(t, f.Clusters(), "distant singletons do not cluster")

	f.Add(1)
	f.Add(11)
	clusters := f.Clusters()
	require.Len(t, clusters, 2)

	// 1.6 reaches both 0 and 3 and bridges their clusters.
	g := NewFinder(dist, 2)
	g.AddAll([]float64{0, 3, 1.6})
	clusters = g.Clusters()
	require.Len(t, clusters, 1)
	assert.ElementsMatch(t, []float64{0, 1.6, 3}, clusters[0])

	// Exactly at the threshold is not a join.
	h := NewFinder(dist, 2)
	h.AddAll([]float64{0, 2})
	assert.Empty(t, h.Clusters())
}

func TestFinder_RadiusExtendsClusterReach(t *testing.T) {
	dist := func(a, b float64) float64 { return math.Abs(a - b) }
	f := NewFinder(dist, 2)
	f.AddAll([]float64{0, 1.5, 2.6})

	// 2.6 is past the threshold from the representative 0, but the
	// cluster's radius grew to 1.5 and the member 1.5 confirms it.
	clusters := f.Clusters()
	require.Len(t, clusters, 1)
	assert.ElementsMatch(t, []float64{0, 1.5, 2.6}, clusters[0])
}

func TestFinder_RequiresAMemberWithinThreshold(t *testing.T) {
	pair := map[[2]string]float64{
		{"a", "b"}: 1.5,
		{"a", "c"}: 3.4,
		{"b", "c"}: 2.5,
	}
	dist := func(x, y string) float64 {
		if x == y {
			return 0
		}
		if x > y {
			x, y = y, x
		}
		return pair[[2]string{x, y}]
	}
	f := NewFinder(dist, 2)
	f.AddAll([]string{"a", "b", "c"})

	// The radius test alone would admit c; no member sits under the
	// threshold, so it stays out.
	clusters := f.Clusters()
	require.Len(t, clusters, 1)
	assert.ElementsMatch(t, []string{"a", "b"}, clusters[0])
}

func TestTitleMerger_BucketsNormalizedTitles(t *testing.T) {
	lib := syncedLibrary(t,
		doc("AAAAAAAA", "journalArticle", "Reusable Software Components", nil),
		doc("BBBBBBBB", "journalArticle", "Reusable software components.", nil),
		doc("CCCCCCCC", "journalArticle", "Something Else Entirely", nil),
		doc("DDDDDDDD", "journalArticle", "Go", nil),
		doc("EEEEEEEE", "journalArticle", "Go", nil),
	)

	groups := NewTitleMerger(lib).Duplicates()
	require.Len(t, groups, 1, "short titles and singletons stay out")
	require.Len(t, groups[0], 2)
	keys := []string{groups[0][0].Key(), groups[0][1].Key()}
	assert.ElementsMatch(t, []string{"AAAAAAAA", "BBBBBBBB"}, keys)
}

func TestFuzzyTitleMerger_CatchesNearMisses(t *testing.T) {
	lib := syncedLibrary(t,
		doc("AAAAAAAA", "journalArticle", "The Byzantine Generals Problem", nil),
		doc("BBBBBBBB", "journalArticle", "The Byzantine Generals Problems", nil),
		doc("CCCCCCCC", "journalArticle", "Paxos Made Simple", nil),
	)

	require.Empty(t, NewTitleMerger(lib).Duplicates(), "exact buckets miss the near duplicate")

	groups := NewFuzzyTitleMerger(lib).Duplicates()
	require.Len(t, groups, 1)
	require.Len(t, groups[0], 2)
}

func TestPropose_MergesFieldsAndCreators(t *testing.T) {
	lib := syncedLibrary(t,
		doc("AAAAAAAA", "journalArticle", "Reusable Software Components", map[string]any{
			"date": "1991",
			"tags": []any{map[string]any{"tag": "components"}},
			"creators": []any{
				creator("author", "K W", "shirriff"),
				creator("author", "Butler", "Lampson"),
			},
		}),
		doc("BBBBBBBB", "journalArticle", "Reusable software components.", map[string]any{
			"publicationTitle": "ACM TOPLAS",
			"tags":             []any{map[string]any{"tag": "reuse"}},
			"creators": []any{
				creator("author", "K.W.", "Shirriff"),
				creator("editor", "B.", "Lampson"),
			},
		}),
		doc("CCCCCCCC", "bookSection", "Reusable Software Components", map[string]any{
			"creators": []any{creator("author", "Ken", "Shirriff")},
		}),
	)

	m := NewDocumentMerger(lib, NewTitleMerger(lib), nil)
	candidates := m.BuildMerges()
	require.Len(t, candidates, 1)
	p := candidates[0].Proposal

	assert.Equal(t, "journalArticle", p["itemType"], "plurality type wins")
	assert.Equal(t, "1991", p["date"])
	assert.Equal(t, "ACM TOPLAS", p["publicationTitle"])
	assert.ElementsMatch(t, []string{"components", "reuse"}, p["tags"])

	creators, ok := p["creators"].([]library.Creator)
	require.True(t, ok)
	require.Len(t, creators, 3)
	assert.Equal(t, library.Person{Last: "Shirriff", First: "Ken"}, creators[0].Person,
		"spellings of one author collapse to the fullest")
	assert.Equal(t, "author", creators[0].Role)
	assert.Equal(t, "Lampson", creators[1].Person.Last)
	assert.Equal(t, "editor", creators[2].Role, "distinct roles stay distinct")
}

func TestPropose_DowngradesInvalidRoles(t *testing.T) {
	lib := syncedLibrary(t,
		doc("AAAAAAAA", "thesis", "On Things", map[string]any{
			"creators": []any{creator("author", "A.", "Adams")},
		}),
		doc("BBBBBBBB", "thesis", "On Things", map[string]any{
			"creators": []any{creator("editor", "B.", "Brown")},
		}),
	)

	m := NewDocumentMerger(lib, NewTitleMerger(lib), nil)
	candidates := m.BuildMerges()
	require.Len(t, candidates, 1)
	creators := candidates[0].Proposal["creators"].([]library.Creator)
	require.Len(t, creators, 2)
	// Theses accept no editors; the role falls back to contributor.
	assert.Equal(t, "contributor", creators[1].Role)
}

func TestApply_CollapsesGroupAndReparentsChildren(t *testing.T) {
	lib := syncedLibrary(t,
		doc("AAAAAAAA", "bookSection", "Duplicated Work", nil),
		doc("BBBBBBBB", "journalArticle", "Duplicated Work", nil),
		doc("CCCCCCCC", "journalArticle", "Duplicated Work", map[string]any{"date": "2001"}),
		remote.Payload{
			"key": "ATTACH01", "version": int64(1), "itemType": "attachment",
			"linkMode": "imported_file", "parentItem": "AAAAAAAA",
		},
	)

	m := NewDocumentMerger(lib, NewTitleMerger(lib), nil)
	candidates := m.BuildMerges()
	require.Len(t, candidates, 1)
	require.NoError(t, m.Apply(context.Background(), candidates[0]))

	// The first copy carrying the plurality type survives.
	survivor := lib.Document("BBBBBBBB")
	require.NotNil(t, survivor)
	assert.Nil(t, lib.Document("AAAAAAAA"))
	assert.Nil(t, lib.Document("CCCCCCCC"))
	assert.Equal(t, "2001", survivor.Date())
	assert.Equal(t, 2, lib.DeletedCount())

	a := lib.Attachment("ATTACH01")
	require.NotNil(t, a)
	assert.Equal(t, survivor, a.Parent())
}

func TestInteractiveMerge_HonorsDecisions(t *testing.T) {
	payloads := make([]remote.Payload, 0, 4)
	for i := 0; i < 2; i++ {
		payloads = append(payloads,
			doc(fmt.Sprintf("AAAA000%d", i), "journalArticle", fmt.Sprintf("Group One %d", 0), nil),
			doc(fmt.Sprintf("BBBB000%d", i), "journalArticle", fmt.Sprintf("Group Two %d", 0), nil),
		)
	}
	lib := syncedLibrary(t, payloads...)

	m := NewDocumentMerger(lib, NewTitleMerger(lib), nil)
	asked := 0
	merged, err := m.InteractiveMerge(context.Background(), func(c Candidate) (Proposal, bool, error) {
		asked++
		return nil, asked == 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, asked)
	assert.Equal(t, 1, merged)
	assert.Len(t, lib.Documents(), 3)
}
