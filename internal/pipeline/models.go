// Package pipeline turns raw statement text into normalized transactions.
//
// The flow for one statement: extract the statement's reference date, select
// candidate transaction lines, parse each candidate with the LLM, resolve
// partial dates against the reference date, and normalize vendor strings
// through the cache. Persistence of the result belongs to the caller.
package pipeline

import "time"

// ParsedRecord is the structured output of one LLM line parse. The date is
// kept as the raw string the model emitted; resolution happens later.
type ParsedRecord struct {
	DateRaw   string
	VendorRaw string
	Amount    float64
}

// NormalizedTransaction is the pipeline's final output unit, one per
// successfully parsed candidate line.
type NormalizedTransaction struct {
	Date             string // ISO YYYY-MM-DD, or the raw string when unresolvable
	VendorRaw        string
	VendorNormalized string
	Amount           float64
}

// Options tunes a Processor.
type Options struct {
	// Concurrency bounds the number of in-flight LLM calls per statement.
	// Zero selects DefaultConcurrency.
	Concurrency int

	// FallbackYear is used when a transaction date omits the year and the
	// statement has no recognizable reference date. Zero means "year of the
	// processing run", which misdates historical imports; set it explicitly
	// when backfilling.
	FallbackYear int

	// now is swapped in tests.
	now func() time.Time
}

// DefaultConcurrency is the per-statement LLM call bound.
const DefaultConcurrency = 4

func (o Options) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return DefaultConcurrency
}

func (o Options) timeNow() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now()
}
