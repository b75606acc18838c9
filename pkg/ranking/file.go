package ranking

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"
)

// ErrMalformedRanking is returned when a ranking file is not a list of
// [community, score] pairs.
var ErrMalformedRanking = errors.New("malformed ranking file")

const rankingInfix = "_ranking__"

// FileName returns the ranking file name for a measure, stamped with t.
func FileName(prefix, measure string, t time.Time) string {
	name := measure + rankingInfix + t.Format("01.02_15.04") + ".json"
	if prefix != "" {
		name = prefix + "__" + name
	}
	return name
}

// ParseFileName recovers the measure from a name produced by FileName with
// the same prefix. Directories and the timestamp are ignored.
func ParseFileName(prefix, name string) (string, bool) {
	base := strings.TrimSuffix(filepath.Base(name), ".json")
	i := strings.LastIndex(base, rankingInfix)
	if i <= 0 {
		return "", false
	}
	measure := base[:i]
	if prefix != "" {
		var ok bool
		if measure, ok = strings.CutPrefix(measure, prefix+"__"); !ok || measure == "" {
			return "", false
		}
	}
	return measure, true
}

// SaveJSON writes the column as a JSON list of [community, score] pairs in
// rank order. NaN scores are written as null.
func SaveJSON(w io.Writer, c Column) error {
	pairs := make([][2]any, len(c.Entries))
	for i, e := range c.Entries {
		var score any = e.Score
		if math.IsNaN(e.Score) || math.IsInf(e.Score, 0) {
			score = nil
		}
		pairs[i] = [2]any{e.Community, score}
	}
	if err := json.NewEncoder(w).Encode(pairs); err != nil {
		return fmt.Errorf("failed to encode ranking %s: %w", c.Name, err)
	}
	return nil
}

// LoadJSON reads a ranking written by SaveJSON. Entry order is kept as
// stored.
func LoadJSON(r io.Reader, name string, order Order) (Column, error) {
	var raw [][]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Column{}, fmt.Errorf("%w: %w", ErrMalformedRanking, err)
	}
	c := Column{Name: name, Order: order, Entries: make([]Entry, len(raw))}
	for i, pair := range raw {
		if len(pair) != 2 {
			return Column{}, fmt.Errorf("%w: entry %d has %d elements", ErrMalformedRanking, i, len(pair))
		}
		if err := json.Unmarshal(pair[0], &c.Entries[i].Community); err != nil {
			return Column{}, fmt.Errorf("%w: entry %d community: %w", ErrMalformedRanking, i, err)
		}
		var score *float64
		if err := json.Unmarshal(pair[1], &score); err != nil {
			return Column{}, fmt.Errorf("%w: entry %d score: %w", ErrMalformedRanking, i, err)
		}
		c.Entries[i].Score = math.NaN()
		if score != nil {
			c.Entries[i].Score = *score
		}
	}
	return c, nil
}
