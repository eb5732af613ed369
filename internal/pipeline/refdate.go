package pipeline

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Labeled long-form date patterns, tried in strict priority order. The
// explicit statement date wins over a billing-period end date.
var (
	statementDateRe = regexp.MustCompile(`(?i)statement\s+date\s*:?\s*([A-Za-z]+\.?\s+\d{1,2},?\s+\d{4})`)

	// For period/cycle ranges only the date after the range separator (the
	// period end) is captured.
	statementPeriodRe = regexp.MustCompile(`(?i)(?:statement\s+period|billing\s+cycle)\s*:?\s*[A-Za-z]+\.?\s+\d{1,2},?\s+\d{4}\s*(?:-|–|—|to|through)\s*([A-Za-z]+\.?\s+\d{1,2},?\s+\d{4})`)
)

var longDateLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
}

// ExtractReferenceDate scans statement text for a printed statement date or
// a billing-period end date. Deterministic, regex-only. The second return is
// false when no recognizable pattern exists, which callers must treat as "no
// reference date" rather than an error.
func ExtractReferenceDate(text string) (civil.Date, bool, error) {
	// Labels and their dates can be split across lines in extracted PDF text.
	flat := strings.Join(strings.Fields(text), " ")

	for _, re := range []*regexp.Regexp{statementDateRe, statementPeriodRe} {
		m := re.FindStringSubmatch(flat)
		if m == nil {
			continue
		}
		d, err := parseLongDate(m[1])
		if err != nil {
			return civil.Date{}, false, err
		}
		return d, true, nil
	}
	return civil.Date{}, false, nil
}

func parseLongDate(s string) (civil.Date, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	for _, layout := range longDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("unrecognized date format: %q", s)
}
