// SPDX-License-Identifier: Apache-2.0

package evidence

import (
	"sort"

	"github.com/secscan/isinscan/internal/pattern"
)

// PoolEntry is the single surviving candidate for one (kind, normalized text).
type PoolEntry struct {
	Kind pattern.Kind `json:"kind"`
	Text string       `json:"text"`
	// RawText is the spelling reported with the highest confidence.
	RawText    string     `json:"raw_text"`
	Confidence Confidence `json:"confidence"`
	// Sources is the sorted set of contributing source refs.
	Sources     []string `json:"sources"`
	Occurrences int      `json:"occurrences"`
}

type poolKey struct {
	kind pattern.Kind
	text string
}

// AggregatedPool is the deduplicated union of candidates for one document.
// Merging is commutative and associative: the pool's contents do not depend
// on the order candidates or other pools are added in.
type AggregatedPool struct {
	entries map[poolKey]*PoolEntry
	sources map[poolKey]map[string]struct{}
}

// NewAggregatedPool creates an empty pool.
func NewAggregatedPool() *AggregatedPool {
	return &AggregatedPool{
		entries: make(map[poolKey]*PoolEntry),
		sources: make(map[poolKey]map[string]struct{}),
	}
}

// Add folds one candidate into the pool.
func (p *AggregatedPool) Add(c Candidate) {
	p.merge(PoolEntry{
		Kind:        c.Kind,
		Text:        c.NormalizedText,
		RawText:     c.RawText,
		Confidence:  c.Confidence,
		Sources:     []string{c.SourceID},
		Occurrences: 1,
	})
}

// AddAll folds a batch of candidates into the pool.
func (p *AggregatedPool) AddAll(candidates []Candidate) {
	for _, c := range candidates {
		p.Add(c)
	}
}

// Merge folds every entry of other into p.
func (p *AggregatedPool) Merge(other *AggregatedPool) {
	if other == nil {
		return
	}
	for _, e := range other.entries {
		p.merge(*e)
	}
}

func (p *AggregatedPool) merge(in PoolEntry) {
	key := poolKey{kind: in.Kind, text: in.Text}
	cur, ok := p.entries[key]
	if !ok {
		cur = &PoolEntry{Kind: in.Kind, Text: in.Text, RawText: in.RawText, Confidence: in.Confidence}
		p.entries[key] = cur
		p.sources[key] = make(map[string]struct{})
	} else if cur.Confidence.Less(in.Confidence) ||
		(!in.Confidence.Less(cur.Confidence) && in.RawText < cur.RawText) {
		cur.Confidence = in.Confidence
		cur.RawText = in.RawText
	}
	cur.Occurrences += in.Occurrences

	set := p.sources[key]
	for _, s := range in.Sources {
		if s != "" {
			set[s] = struct{}{}
		}
	}
	cur.Sources = cur.Sources[:0]
	for s := range set {
		cur.Sources = append(cur.Sources, s)
	}
	sort.Strings(cur.Sources)
}

// Len returns the number of distinct entries across all kinds.
func (p *AggregatedPool) Len() int {
	return len(p.entries)
}

// Lookup returns the entry for a kind and normalized text.
func (p *AggregatedPool) Lookup(kind pattern.Kind, text string) (PoolEntry, bool) {
	e, ok := p.entries[poolKey{kind: kind, text: text}]
	if !ok {
		return PoolEntry{}, false
	}
	return copyEntry(e), true
}

// Entries returns copies of every entry of the given kind, sorted by text.
func (p *AggregatedPool) Entries(kind pattern.Kind) []PoolEntry {
	out := make([]PoolEntry, 0)
	for key, e := range p.entries {
		if key.kind == kind {
			out = append(out, copyEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out
}

func copyEntry(e *PoolEntry) PoolEntry {
	c := *e
	c.Sources = append([]string(nil), e.Sources...)
	return c
}
