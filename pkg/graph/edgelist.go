package graph

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ReadEdgeList parses a whitespace separated edge list, one "u v" pair per
// line. Blank lines and lines starting with '#' are skipped, extra columns
// (weights) are ignored and self-loops are dropped.
func ReadEdgeList(r io.Reader) (*Graph, error) {
	b := NewBuilder()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: %w: expected two vertex ids", lineNo, ErrMalformedEdge)
		}
		if fields[0] == fields[1] {
			continue
		}
		if err := b.AddEdge(fields[0], fields[1]); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read edge list: %w", err)
	}

	return b.Build(), nil
}

// WriteEdgeList writes g as "u v" lines in Edges() order.
func WriteEdgeList(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	for _, e := range g.Edges() {
		if _, err := fmt.Fprintf(bw, "%s %s\n", e.U, e.V); err != nil {
			return err
		}
	}
	return bw.Flush()
}
