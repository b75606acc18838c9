// Package ranking orders communities by scalar scores, one independent
// column per measure.
package ranking

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dd0wney/cluso-anomaly/pkg/bipartite"
)

const (
	scoreSuffix   = "__score"
	rankingSuffix = "__ranking"
)

// Order is the sort direction of a column.
type Order int

const (
	// Descending ranks the highest score first
	Descending Order = iota
	// Ascending ranks the lowest score first
	Ascending
)

func (o Order) String() string {
	if o == Ascending {
		return "ascending"
	}
	return "descending"
}

// Entry is one scored community.
type Entry struct {
	Community string
	Score     float64
}

// Column is a ranked list of communities for one measure.
type Column struct {
	Name    string
	Order   Order
	Entries []Entry
}

// ScoreHeader returns the score column header: the name itself when it
// already ends in "__score".
func (c Column) ScoreHeader() string {
	if strings.HasSuffix(c.Name, scoreSuffix) {
		return c.Name
	}
	return c.Name + scoreSuffix
}

// RankingHeader returns the ranking column header derived from the name,
// so "x__score" ranks under "x__ranking".
func (c Column) RankingHeader() string {
	return strings.TrimSuffix(c.Name, scoreSuffix) + rankingSuffix
}

// Communities returns the community ids in rank order.
func (c Column) Communities() []string {
	out := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		out[i] = e.Community
	}
	return out
}

// Position returns the 1-based rank of a community.
func (c Column) Position(community string) (int, bool) {
	for i, e := range c.Entries {
		if e.Community == community {
			return i + 1, true
		}
	}
	return 0, false
}

// Rank sorts entries by descending score.
func Rank(name string, entries []Entry) Column {
	return RankOrdered(name, entries, Descending)
}

// RankOrdered sorts entries in the given order. The sort is stable, so ties
// keep their input order, and NaN scores go last in either order. Scores
// are never rescaled.
func RankOrdered(name string, entries []Entry, order Order) Column {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Score, sorted[j].Score
		switch {
		case math.IsNaN(a):
			return false
		case math.IsNaN(b):
			return true
		case order == Ascending:
			return a < b
		default:
			return a > b
		}
	})
	return Column{Name: name, Order: order, Entries: sorted}
}

// RankMap ranks a community -> score map descending. Ties are broken by
// community id.
func RankMap(name string, scores map[string]float64) Column {
	return Rank(name, entriesOf(scores))
}

// RankMapOrdered is RankMap with an explicit order.
func RankMapOrdered(name string, scores map[string]float64, order Order) Column {
	return RankOrdered(name, entriesOf(scores), order)
}

func entriesOf(scores map[string]float64) []Entry {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	entries := make([]Entry, len(ids))
	for i, id := range ids {
		entries[i] = Entry{Community: id, Score: scores[id]}
	}
	return entries
}

// ScoreFunc scores the members of one community.
type ScoreFunc func(members []string) (float64, error)

// RankBy scores every community with fn and ranks the results in order.
// The first scoring error aborts the column.
func RankBy(name string, communities []bipartite.Community, order Order, fn ScoreFunc) (Column, error) {
	entries := make([]Entry, len(communities))
	for i, c := range communities {
		score, err := fn(c.Members)
		if err != nil {
			return Column{}, fmt.Errorf("%s: community %q: %w", name, c.Name, err)
		}
		entries[i] = Entry{Community: c.Name, Score: score}
	}
	return RankOrdered(name, entries, order), nil
}
