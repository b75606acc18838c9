// Package bipartite builds the two-partition community/member graph that the
// supervised detection path samples edges from.
package bipartite

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dd0wney/cluso-anomaly/pkg/graph"
)

var (
	// ErrUnknownCommunity is returned when an included community is not in the partition map
	ErrUnknownCommunity = errors.New("community not in partition map")
	// ErrPartitionOverlap is returned when an id is both a community and a member
	ErrPartitionOverlap = errors.New("id used as both community and member")
	// ErrInvalidCommunityName is returned for community names that cannot
	// round-trip through an edge key
	ErrInvalidCommunityName = errors.New("community name contains edge key separator")
	// ErrInvalidLabels is returned for empty or equal partition labels
	ErrInvalidLabels = errors.New("partition labels must be non-empty and distinct")
)

// PartitionMap maps a community label to the ids of its members.
type PartitionMap map[string][]string

// Labels names the two partitions of a bipartite graph.
type Labels struct {
	Community string `yaml:"community" json:"community"`
	Member    string `yaml:"member" json:"member"`
}

// DefaultLabels are the partition labels used when none are configured.
var DefaultLabels = Labels{Community: "Community", Member: "Vertex"}

// Validate checks that both labels are set and distinct.
func (l Labels) Validate() error {
	if l.Community == "" || l.Member == "" || l.Community == l.Member {
		return fmt.Errorf("%w: %q/%q", ErrInvalidLabels, l.Community, l.Member)
	}
	return nil
}

// Community is the ordered form of a partition map entry.
type Community struct {
	Name    string
	Members []string
}

// Communities returns the partition map as a slice sorted by community name.
// Member order is preserved.
func Communities(pm PartitionMap) []Community {
	names := Names(pm)
	out := make([]Community, len(names))
	for i, name := range names {
		out[i] = Community{Name: name, Members: pm[name]}
	}
	return out
}

// Names returns the community labels in sorted order.
func Names(pm PartitionMap) []string {
	names := make([]string, 0, len(pm))
	for name := range pm {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates a bipartite graph holding the communities named in include,
// the union of their members, and one edge per (community, member)
// membership. A nil include selects every community in sorted order.
//
// Community vertices are added in include order, then members in first-seen
// order, so repeated calls produce structurally identical graphs. A community
// without members becomes an isolated vertex. Community names must not
// contain graph.KeySeparator.
func Build(pm PartitionMap, labels Labels, include []string) (*graph.Graph, error) {
	if err := labels.Validate(); err != nil {
		return nil, err
	}
	if include == nil {
		include = Names(pm)
	}

	b := graph.NewBuilder()
	selected := make([]string, 0, len(include))
	seen := make(map[string]bool, len(include))
	for _, name := range include {
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := pm[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCommunity, name)
		}
		if strings.Contains(name, graph.KeySeparator) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCommunityName, name)
		}
		if _, err := b.AddVertex(name, labels.Community); err != nil {
			return nil, err
		}
		selected = append(selected, name)
	}

	for _, name := range selected {
		for _, member := range pm[name] {
			if _, err := b.AddVertex(member, labels.Member); err != nil {
				if errors.Is(err, graph.ErrTagConflict) {
					return nil, fmt.Errorf("%w: %q in community %q", ErrPartitionOverlap, member, name)
				}
				return nil, err
			}
		}
	}

	for _, name := range selected {
		for _, member := range pm[name] {
			if err := b.AddEdge(name, member); err != nil {
				return nil, err
			}
		}
	}

	return b.Build(), nil
}

// Properties summarises a bipartite graph.
type Properties struct {
	Communities         int
	Members             int
	Edges               int
	IsolatedCommunities int
	Density             float64
}

// Describe computes the partition sizes of g. Density is the share of
// possible cross-partition edges that exist.
func Describe(g *graph.Graph, labels Labels) Properties {
	var p Properties
	for i := 0; i < g.Order(); i++ {
		switch g.Tag(i) {
		case labels.Community:
			p.Communities++
			if g.Degree(i) == 0 {
				p.IsolatedCommunities++
			}
		case labels.Member:
			p.Members++
		}
	}
	p.Edges = g.Size()
	if possible := p.Communities * p.Members; possible > 0 {
		p.Density = float64(p.Edges) / float64(possible)
	}
	return p
}
