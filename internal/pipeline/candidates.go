package pipeline

import (
	"regexp"
	"strings"
)

// Candidate line shapes. Recall-oriented: false positives are fine, they
// simply fail the structured parse and get skipped.
var (
	// A numeric date followed later on the line by a dollar amount,
	// e.g. "11/24/2025 AMAZON MKTPLACE $23.87".
	numericDateAmountRe = regexp.MustCompile(`\d{2}/\d{2}/\d{2,4}.*\$\d+`)

	// A dual short-month/day pair, the transaction/posted date layout of
	// card statements, e.g. "Nov 20 Nov 24 FRESHCO #9888 BRAMPTON ON 23.87".
	dualMonthDayRe = regexp.MustCompile(`[A-Za-z]{3} \d{2} [A-Za-z]{3} \d{2}`)
)

// ExtractCandidates scans raw statement text and returns, in document order,
// the lines that look like transaction rows. Lines are trimmed; no other
// interpretation happens here.
func ExtractCandidates(text string) []string {
	var candidates []string
	for _, line := range strings.Split(text, "\n") {
		if numericDateAmountRe.MatchString(line) || dualMonthDayRe.MatchString(line) {
			candidates = append(candidates, strings.TrimSpace(line))
		}
	}
	return candidates
}
