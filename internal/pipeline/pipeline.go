package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-ai/internal/llm"
)

// ErrAllLinesFailed means candidate lines were found but none survived the
// structured parse. This usually indicates the model backend is unreachable
// or broken, as opposed to a legitimately empty statement.
var ErrAllLinesFailed = errors.New("no candidate line could be parsed")

// Processor runs the extraction-and-normalization pipeline for one
// statement's text at a time. Safe for concurrent use; the vendor cache is
// the only state shared across runs.
type Processor struct {
	llm     llm.Client
	vendors *Normalizer
	opts    Options
	log     zerolog.Logger
}

// NewProcessor creates a Processor. The vendor cache is injected so the
// service and the local one-shot command can share the same pipeline with
// different backing stores.
func NewProcessor(client llm.Client, cache VendorCache, opts Options, log zerolog.Logger) *Processor {
	return &Processor{
		llm:     client,
		vendors: NewNormalizer(client, cache, log),
		opts:    opts,
		log:     log,
	}
}

// ProcessStatementText turns raw statement text into normalized transactions,
// in document order. Lines the model cannot parse are skipped and logged; the
// run fails only when candidates exist and none parse. A statement with no
// candidate lines yields an empty result and no model calls.
func (p *Processor) ProcessStatementText(ctx context.Context, text string) ([]NormalizedTransaction, error) {
	var refPtr *civil.Date
	ref, found, err := ExtractReferenceDate(text)
	switch {
	case err != nil:
		p.log.Warn().Err(err).Msg("reference date unparseable, falling back to year policy")
	case found:
		refPtr = &ref
	}

	candidates := ExtractCandidates(text)
	if len(candidates) == 0 {
		p.log.Info().Msg("no candidate transaction lines found")
		return nil, nil
	}

	results := p.parseAndNormalize(ctx, candidates, refPtr)

	out := make([]NormalizedTransaction, 0, len(candidates))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w (%d candidates)", ErrAllLinesFailed, len(candidates))
	}
	return out, nil
}

// parseAndNormalize fans candidate lines out to a bounded worker pool. Each
// worker owns the full per-line path (parse, date resolution, vendor
// normalization) so model calls overlap; results land in an index-addressed
// slice to preserve document order regardless of completion order.
func (p *Processor) parseAndNormalize(ctx context.Context, candidates []string, ref *civil.Date) []*NormalizedTransaction {
	results := make([]*NormalizedTransaction, len(candidates))

	type job struct {
		index int
		line  string
	}
	jobs := make(chan job)

	var wg sync.WaitGroup
	for w := 0; w < p.opts.concurrency(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index] = p.processLine(ctx, j.line, ref)
			}
		}()
	}

	for i, line := range candidates {
		select {
		case jobs <- job{index: i, line: line}:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return results
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

// processLine handles one candidate line end to end; nil means the line was
// skipped.
func (p *Processor) processLine(ctx context.Context, line string, ref *civil.Date) *NormalizedTransaction {
	record, err := ParseLine(ctx, p.llm, line)
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			p.log.Warn().
				Str("line", parseErr.Line).
				Str("raw_output", parseErr.RawOutput).
				Err(parseErr.Err).
				Msg("skipping unparseable line")
		} else {
			p.log.Error().Err(err).Str("line", line).Msg("model call failed for line")
		}
		return nil
	}

	return &NormalizedTransaction{
		Date:             ResolveDate(record.DateRaw, ref, p.opts.FallbackYear, p.opts.timeNow),
		VendorRaw:        record.VendorRaw,
		VendorNormalized: p.vendors.Normalize(ctx, record.VendorRaw),
		Amount:           record.Amount,
	}
}
