// SPDX-License-Identifier: Apache-2.0

package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Pipeline loads result artifacts, normalizes them through the registered
// parsers and aggregates their candidates.
type Pipeline struct {
	parsers   []ArtifactParser
	extractor *Extractor
	logger    zerolog.Logger
	workers   int
	readFile  func(string) ([]byte, error)
}

// NewPipeline creates a new Pipeline with the provided parsers.
// The Extractor is created internally.
func NewPipeline(parsers ...ArtifactParser) *Pipeline {
	return &Pipeline{
		parsers:   parsers,
		extractor: NewExtractor(),
		logger:    zerolog.Nop(),
		workers:   1,
		readFile:  os.ReadFile,
	}
}

// WithLogger sets the logger used for per-source diagnostics.
func (p *Pipeline) WithLogger(logger zerolog.Logger) *Pipeline {
	p.logger = logger
	return p
}

// WithWorkers bounds how many sources are loaded and extracted at once.
// Values below one mean sequential processing.
func (p *Pipeline) WithWorkers(n int) *Pipeline {
	if n < 1 {
		n = 1
	}
	p.workers = n
	return p
}

// RunResult is the output of a successful single-source run.
type RunResult struct {
	Candidates    []Candidate
	ParserUsed    string
	SectionCount  int
	FragmentCount int
	// SkippedSections names sections that contributed nothing, in parse order.
	SkippedSections []string
}

func (p *Pipeline) Run(ctx context.Context, source Source) ([]Candidate, error) {
	result, err := p.RunWithMeta(ctx, source)
	if err != nil {
		return nil, err
	}
	return result.Candidates, nil
}

// RunWithMeta loads one source and extracts its candidates. Errors wrap
// ErrMissingSource or ErrMalformedArtifact.
func (p *Pipeline) RunWithMeta(ctx context.Context, source Source) (RunResult, error) {
	artifact, err := p.load(source)
	if err != nil {
		return RunResult{}, err
	}

	parser, err := p.selectParser(artifact)
	if err != nil {
		return RunResult{}, err
	}

	sets, err := parser.Parse(ctx, artifact)
	if err != nil {
		return RunResult{}, fmt.Errorf("%w: parser %q failed: %w", ErrMalformedArtifact, parser.Name(), err)
	}

	result := RunResult{ParserUsed: parser.Name(), SectionCount: len(sets)}
	for _, set := range sets {
		if set.SourceID == "" {
			set.SourceID = source.ID
		}
		if set.Skipped != "" {
			result.SkippedSections = append(result.SkippedSections, set.Section)
			p.logger.Debug().
				Str("source_id", source.ID).
				Str("section", set.Section).
				Str("reason", set.Skipped).
				Msg("skipping section")
			continue
		}
		result.FragmentCount += len(set.Fragments)
		result.Candidates = append(result.Candidates, p.extractor.Extract(set)...)
	}
	return result, nil
}

func (p *Pipeline) load(source Source) (ArtifactSource, error) {
	raw, err := p.readFile(source.Path)
	if err != nil {
		return ArtifactSource{}, fmt.Errorf("%w: %w", ErrMissingSource, err)
	}
	content, doc, err := decodeArtifact(raw, source.Format)
	if err != nil {
		return ArtifactSource{}, fmt.Errorf("%w: %w", ErrMalformedArtifact, err)
	}
	return ArtifactSource{ID: source.ID, Path: source.Path, Content: content, Document: doc}, nil
}

// decodeArtifact returns the artifact as JSON bytes plus its generic decoding.
// YAML artifacts are converted to JSON first.
func decodeArtifact(raw []byte, format string) ([]byte, any, error) {
	format = strings.ToLower(format)
	content := raw
	if format == "yaml" || format == "yml" {
		converted, err := yaml.YAMLToJSON(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to convert YAML: %w", err)
		}
		content = converted
	}

	var doc any
	err := json.Unmarshal(content, &doc)
	if err != nil && format == "" {
		// No hint: the artifact may still be YAML.
		converted, yerr := yaml.YAMLToJSON(raw)
		if yerr == nil && len(bytes.TrimSpace(converted)) > 0 {
			content = converted
			err = json.Unmarshal(content, &doc)
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode artifact: %w", err)
	}
	return content, doc, nil
}

// selectParser returns the first registered parser that can handle the given source.
func (p *Pipeline) selectParser(source ArtifactSource) (ArtifactParser, error) {
	for _, parser := range p.parsers {
		if parser.CanHandle(source) {
			return parser, nil
		}
	}
	return nil, fmt.Errorf("%w: unsupported artifact shape: no parser found for source %q", ErrMalformedArtifact, source.ID)
}

// RegisteredParsers returns the names of all currently registered parsers.
func (p *Pipeline) RegisteredParsers() []string {
	names := make([]string, len(p.parsers))
	for i, parser := range p.parsers {
		names[i] = parser.Name()
	}
	return names
}

// SourceStats describes what one source contributed.
type SourceStats struct {
	SourceID   string `json:"source_id"`
	Path       string `json:"path"`
	ParserUsed string `json:"parser_used"`
	Sections   int    `json:"sections"`
	Fragments  int    `json:"fragments"`
	Candidates int    `json:"candidates"`
	// SkippedSections lists sections that held no usable result.
	SkippedSections []string `json:"skipped_sections,omitempty"`
}

// AggregateResult is the merged pool plus per-source bookkeeping.
type AggregateResult struct {
	Pool *AggregatedPool
	// Sources lists successful sources in configuration order.
	Sources []SourceStats
	// Failures lists skipped sources in configuration order.
	Failures []*SourceError
}

type sourceOutcome struct {
	result RunResult
	err    error
}

// Aggregate runs every source and merges the candidates into one pool.
// A source that is missing or malformed is skipped and recorded; it never
// affects what the other sources contribute. The only returned error is
// context cancellation.
func (p *Pipeline) Aggregate(ctx context.Context, sources []Source) (AggregateResult, error) {
	outcomes := make([]sourceOutcome, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := p.RunWithMeta(gctx, src)
			outcomes[i] = sourceOutcome{result: res, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return AggregateResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return AggregateResult{}, err
	}

	// Single-threaded merge over immutable per-source results.
	agg := AggregateResult{
		Pool:     NewAggregatedPool(),
		Sources:  make([]SourceStats, 0, len(sources)),
		Failures: make([]*SourceError, 0),
	}
	for i, src := range sources {
		out := outcomes[i]
		if out.err != nil {
			serr := &SourceError{SourceID: src.ID, Path: src.Path, Err: out.err}
			agg.Failures = append(agg.Failures, serr)
			p.logger.Warn().
				Str("source_id", src.ID).
				Str("path", src.Path).
				Str("reason", serr.Reason()).
				Err(out.err).
				Msg("skipping source")
			continue
		}
		agg.Pool.AddAll(out.result.Candidates)
		agg.Sources = append(agg.Sources, SourceStats{
			SourceID:        src.ID,
			Path:            src.Path,
			ParserUsed:      out.result.ParserUsed,
			Sections:        out.result.SectionCount,
			Fragments:       out.result.FragmentCount,
			Candidates:      len(out.result.Candidates),
			SkippedSections: out.result.SkippedSections,
		})
		p.logger.Debug().
			Str("source_id", src.ID).
			Str("parser", out.result.ParserUsed).
			Int("sections", out.result.SectionCount).
			Int("fragments", out.result.FragmentCount).
			Int("candidates", len(out.result.Candidates)).
			Msg("source aggregated")
	}
	if agg.Pool.Len() == 0 {
		p.logger.Info().Int("sources", len(sources)).Msg("no candidates found in any source")
	}
	return agg, nil
}
