// Package tier defines the canonical tier rank order and per-user tier
// resolution.
package tier

import "strings"

// DefaultLabels is the canonical tier order, highest tier first. Rank 0 is
// the highest tier; a lower rank always means a more valuable customer.
//
// The legacy system carried two rank tables that disagreed on whether ND_P
// outranked P1. This table keeps ND_P on top, matching the movement view
// users actually saw (promotion into ND_P counted as an upgrade). Override
// via NewRankTable for deployments that need a different order.
var DefaultLabels = []string{"ND_P", "P1", "P2", "P3", "P4", "P5"}

type rankEntry struct {
	label string
	rank  int
}

// RankTable is an immutable bidirectional mapping between tier label and
// ordinal rank. Lookup keys are canonicalized once at build time, so
// "ND_P", "nd p" and "ndp" all resolve to the same entry.
type RankTable struct {
	byKey   map[string]rankEntry
	ordered []string
}

// NewRankTable builds a rank table from labels ordered highest tier first.
func NewRankTable(labels ...string) *RankTable {
	t := &RankTable{
		byKey:   make(map[string]rankEntry, len(labels)),
		ordered: make([]string, 0, len(labels)),
	}
	for _, label := range labels {
		key := canonicalKey(label)
		if _, exists := t.byKey[key]; exists {
			continue
		}
		t.byKey[key] = rankEntry{label: label, rank: len(t.ordered)}
		t.ordered = append(t.ordered, label)
	}
	return t
}

// DefaultRankTable returns the canonical table built from DefaultLabels
func DefaultRankTable() *RankTable {
	return NewRankTable(DefaultLabels...)
}

// Rank returns the ordinal rank for a label. The second return value is
// false for labels not in the table.
func (t *RankTable) Rank(label string) (int, bool) {
	entry, ok := t.byKey[canonicalKey(label)]
	if !ok {
		return 0, false
	}
	return entry.rank, true
}

// Canonical returns the table's display label for a raw label, or the
// trimmed raw label when unknown.
func (t *RankTable) Canonical(label string) string {
	if entry, ok := t.byKey[canonicalKey(label)]; ok {
		return entry.label
	}
	return strings.TrimSpace(label)
}

// Labels returns the table's labels in rank order, highest tier first
func (t *RankTable) Labels() []string {
	out := make([]string, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// Size returns the number of known tiers
func (t *RankTable) Size() int {
	return len(t.ordered)
}

// canonicalKey normalizes a label for lookup: lowercase with spaces,
// underscores and dashes stripped.
func canonicalKey(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		switch r {
		case ' ', '_', '-':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
