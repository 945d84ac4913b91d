// Package merge finds likely duplicates in a library and folds each
// group into a single surviving object.
package merge

// Finder clusters values under a distance function. A value joins a
// cluster when its distance to the representative, less the cluster's
// running radius, is under the threshold and at least one member lies
// strictly under the threshold; joining more than one cluster bridges
// them. The result is only as good as the distance's locality, so the
// function should be roughly metric and duplicates should sit in tight
// neighborhoods.
type Finder[T comparable] struct {
	dist      func(a, b T) float64
	threshold float64
	clusters  []*cluster[T]
}

type cluster[T comparable] struct {
	rep T
	// radius is the largest rep-to-member distance seen so far.
	radius  float64
	members []T
}

// NewFinder builds a finder over dist with the given join threshold.
func NewFinder[T comparable](dist func(a, b T) float64, threshold float64) *Finder[T] {
	return &Finder[T]{dist: dist, threshold: threshold}
}

func (f *Finder[T]) joins(v T, c *cluster[T]) bool {
	if f.dist(v, c.rep)-c.radius >= f.threshold {
		return false
	}
	for _, m := range c.members {
		if f.dist(v, m) < f.threshold {
			return true
		}
	}
	return false
}

func (c *cluster[T]) absorb(v T, dist func(a, b T) float64) {
	c.members = append(c.members, v)
	if d := dist(c.rep, v); d > c.radius {
		c.radius = d
	}
}

// Add places a value into the clustering.
func (f *Finder[T]) Add(v T) {
	var matches []int
	for i, c := range f.clusters {
		if f.joins(v, c) {
			matches = append(matches, i)
		}
	}
	if len(matches) == 0 {
		f.clusters = append(f.clusters, &cluster[T]{rep: v, members: []T{v}})
		return
	}
	first := f.clusters[matches[0]]
	first.absorb(v, f.dist)
	// v sits within reach of several clusters and bridges them.
	for i := len(matches) - 1; i >= 1; i-- {
		idx := matches[i]
		for _, m := range f.clusters[idx].members {
			first.absorb(m, f.dist)
		}
		f.clusters = append(f.clusters[:idx], f.clusters[idx+1:]...)
	}
}

// AddAll places every value into the clustering.
func (f *Finder[T]) AddAll(values []T) {
	for _, v := range values {
		f.Add(v)
	}
}

// Clusters returns the groups holding more than one member.
func (f *Finder[T]) Clusters() [][]T {
	var out [][]T
	for _, c := range f.clusters {
		if len(c.members) > 1 {
			members := make([]T, len(c.members))
			copy(members, c.members)
			out = append(out, members)
		}
	}
	return out
}
