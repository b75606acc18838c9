// Package synth generates community-structured random networks with
// injected anomalous communities, used to evaluate the detectors on known
// ground truth.
package synth

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"

	"github.com/dd0wney/cluso-anomaly/pkg/bipartite"
	"github.com/dd0wney/cluso-anomaly/pkg/graph"
	"github.com/dd0wney/cluso-anomaly/pkg/logging"
	"github.com/dd0wney/cluso-anomaly/pkg/validation"
	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/graphs/gen"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// ErrInvalidConfig is returned for parameters the generator cannot honour.
var ErrInvalidConfig = errors.New("invalid generator configuration")

// Config describes the network to generate.
type Config struct {
	// NormalSizes are the sizes of the preferential-attachment communities.
	NormalSizes []int `yaml:"normal_sizes" json:"normal_sizes" validate:"required,min=1,dive,gt=0"`
	// NormalM is the number of edges each new vertex attaches with.
	NormalM      int     `yaml:"normal_m" json:"normal_m" validate:"gte=1"`
	NormalInterP float64 `yaml:"normal_inter_p" json:"normal_inter_p" validate:"gte=0,lte=1"`

	// AnomalousSizes are the sizes of the G(n,p) communities.
	AnomalousSizes  []int   `yaml:"anomalous_sizes" json:"anomalous_sizes" validate:"dive,gt=0"`
	AnomalousP      float64 `yaml:"anomalous_p" json:"anomalous_p" validate:"gte=0,lte=1"`
	AnomalousInterP float64 `yaml:"anomalous_inter_p" json:"anomalous_inter_p" validate:"gte=0,lte=1"`

	// KMin and KMax bound the outer edges added per connecting vertex.
	KMin int `yaml:"k_min" json:"k_min" validate:"gte=0"`
	KMax int `yaml:"k_max" json:"k_max" validate:"gtefield=KMin"`

	Seed uint64 `yaml:"seed" json:"seed"`
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validation.Struct(&c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for i, n := range c.NormalSizes {
		if n <= c.NormalM {
			return fmt.Errorf("%w: normal community %d has %d vertices, need more than m=%d",
				ErrInvalidConfig, i, n, c.NormalM)
		}
	}
	if c.NormalInterP > 0 && len(c.NormalSizes) < 2 {
		return fmt.Errorf("%w: inter-community edges need at least two normal communities", ErrInvalidConfig)
	}
	return nil
}

// Network is a generated graph with its ground truth.
type Network struct {
	Graph *graph.Graph
	// Partitions maps community names to members, including vertices that
	// joined a community by connecting into it.
	Partitions bipartite.PartitionMap
	// Anomalous lists the names of the injected anomalous communities.
	Anomalous []string
}

// generator holds the evolving network. Vertex ids are 1-based.
type generator struct {
	cfg         Config
	rng         *rand.Rand
	src         rand.Source
	adj         []map[int]struct{} // index 0 unused
	communities [][]int
	updated     []map[int]struct{}
}

// Generate builds a network for cfg. The same Config, seed included,
// always produces the same network.
func Generate(cfg Config, logger logging.Logger) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrDefault(logger).With(logging.Component("synth"))

	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	g := &generator{
		cfg: cfg,
		rng: rand.New(src),
		src: src,
		adj: []map[int]struct{}{nil},
	}

	for _, n := range cfg.NormalSizes {
		if err := g.addCommunity(n, func(dst *simple.UndirectedGraph) error {
			return gen.PreferentialAttachment(dst, n, cfg.NormalM, g.src)
		}); err != nil {
			return nil, err
		}
	}
	g.connectNormal()

	normal := len(g.communities)
	for _, n := range cfg.AnomalousSizes {
		if err := g.addCommunity(n, func(dst *simple.UndirectedGraph) error {
			return gen.Gnp(dst, n, cfg.AnomalousP, g.src)
		}); err != nil {
			return nil, err
		}
		g.updated = append(g.updated, toSet(g.communities[len(g.communities)-1]))
	}
	g.connectAnomalous(normal)

	net, err := g.network(normal)
	if err != nil {
		return nil, err
	}
	logger.Info("network generated",
		logging.Int("vertices", net.Graph.Order()),
		logging.Int("edges", net.Graph.Size()),
		logging.Int("normal_communities", normal),
		logging.Int("anomalous_communities", len(net.Anomalous)))
	return net, nil
}

// addCommunity generates a subgraph of order n and relabels it onto fresh
// vertex ids.
func (g *generator) addCommunity(n int, build func(*simple.UndirectedGraph) error) error {
	sub := simple.NewUndirectedGraph()
	if err := build(sub); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	ids := make([]int64, 0, n)
	for _, node := range gonumgraph.NodesOf(sub.Nodes()) {
		ids = append(ids, node.ID())
	}
	slices.Sort(ids)

	start := len(g.adj)
	offset := make(map[int64]int, len(ids))
	members := make([]int, n)
	for k := 0; k < n; k++ {
		g.adj = append(g.adj, make(map[int]struct{}))
		members[k] = start + k
		if k < len(ids) {
			offset[ids[k]] = start + k
		}
	}

	for _, e := range gonumgraph.EdgesOf(sub.Edges()) {
		g.link(offset[e.From().ID()], offset[e.To().ID()])
	}
	g.communities = append(g.communities, members)
	return nil
}

func (g *generator) link(u, v int) {
	if u == v {
		return
	}
	g.adj[u][v] = struct{}{}
	g.adj[v][u] = struct{}{}
}

// connectNormal wires a proportion of every normal community to the other
// normal communities. Targets are weighted by the degrees before any outer
// edge is added.
func (g *generator) connectNormal() {
	g.updated = make([]map[int]struct{}, len(g.communities))
	for c, members := range g.communities {
		g.updated[c] = toSet(members)
	}

	degree := g.degrees()
	var pending [][2]int
	for c, members := range g.communities {
		others := make([]int, 0, len(g.communities)-1)
		for o := range g.communities {
			if o != c {
				others = append(others, o)
			}
		}
		for _, u := range g.choose(members, g.cfg.NormalInterP) {
			for range g.edgesPerVertex() {
				target := g.pickCommunity(others)
				v := g.pickVertex(g.communities[target], degree)
				pending = append(pending, [2]int{u, v})
				g.updated[target][u] = struct{}{}
			}
		}
	}
	for _, e := range pending {
		g.link(e[0], e[1])
	}
}

// connectAnomalous wires a proportion of every anomalous community to the
// normal communities only, with live degree weights.
func (g *generator) connectAnomalous(normal int) {
	if normal == 0 {
		return
	}
	targets := make([]int, normal)
	for i := range targets {
		targets[i] = i
	}
	for _, members := range g.communities[normal:] {
		for _, u := range g.choose(members, g.cfg.AnomalousInterP) {
			for range g.edgesPerVertex() {
				target := g.pickCommunity(targets)
				v := g.pickVertex(g.communities[target], g.degrees())
				g.link(u, v)
				g.updated[target][u] = struct{}{}
			}
		}
	}
}

// choose returns round(len(members)*p) members drawn without replacement.
func (g *generator) choose(members []int, p float64) []int {
	n := int(math.Round(float64(len(members)) * p))
	if n <= 0 {
		return nil
	}
	perm := g.rng.Perm(len(members))[:n]
	out := make([]int, n)
	for k, i := range perm {
		out[k] = members[i]
	}
	return out
}

func (g *generator) edgesPerVertex() int {
	return g.cfg.KMin + g.rng.IntN(g.cfg.KMax-g.cfg.KMin+1)
}

// pickCommunity draws one of the candidate communities weighted by size.
func (g *generator) pickCommunity(candidates []int) int {
	w := make([]float64, len(candidates))
	for k, c := range candidates {
		w[k] = float64(len(g.communities[c]))
	}
	idx, _ := sampleuv.NewWeighted(w, g.src).Take()
	return candidates[idx]
}

// pickVertex draws a member weighted by degree, uniformly when every
// member is isolated.
func (g *generator) pickVertex(members []int, degree []int) int {
	w := make([]float64, len(members))
	for k, v := range members {
		w[k] = float64(degree[v])
	}
	if idx, ok := sampleuv.NewWeighted(w, g.src).Take(); ok {
		return members[idx]
	}
	return members[g.rng.IntN(len(members))]
}

func (g *generator) degrees() []int {
	out := make([]int, len(g.adj))
	for v := 1; v < len(g.adj); v++ {
		out[v] = len(g.adj[v])
	}
	return out
}

func (g *generator) network(normal int) (*Network, error) {
	b := graph.NewBuilder()
	for v := 1; v < len(g.adj); v++ {
		if _, err := b.AddVertex(strconv.Itoa(v), ""); err != nil {
			return nil, err
		}
	}
	for u := 1; u < len(g.adj); u++ {
		nbrs := make([]int, 0, len(g.adj[u]))
		for v := range g.adj[u] {
			if v > u {
				nbrs = append(nbrs, v)
			}
		}
		slices.Sort(nbrs)
		for _, v := range nbrs {
			if err := b.AddEdge(strconv.Itoa(u), strconv.Itoa(v)); err != nil {
				return nil, err
			}
		}
	}

	names := CommunityNames(len(g.updated))
	pm := make(bipartite.PartitionMap, len(g.updated))
	for c, set := range g.updated {
		members := make([]int, 0, len(set))
		for v := range set {
			members = append(members, v)
		}
		slices.Sort(members)
		ids := make([]string, len(members))
		for k, v := range members {
			ids[k] = strconv.Itoa(v)
		}
		pm[names[c]] = ids
	}

	return &Network{
		Graph:      b.Build(),
		Partitions: pm,
		Anomalous:  slices.Clone(names[normal:]),
	}, nil
}

// CommunityNames returns "comm" names zero-padded to one digit more than
// the width of n, so they sort in creation order.
func CommunityNames(n int) []string {
	width := len(strconv.Itoa(n)) + 1
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("comm%0*d", width, i+1)
	}
	return out
}

func toSet(members []int) map[int]struct{} {
	out := make(map[int]struct{}, len(members))
	for _, v := range members {
		out[v] = struct{}{}
	}
	return out
}
