package pipeline

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// ResolveDate converts a parsed date string into ISO YYYY-MM-DD form. Partial
// dates without a year are anchored to the statement's reference date: a
// transaction month greater than the reference month means the transaction
// belongs to the prior calendar year (a December purchase on a January
// statement). Unresolvable input passes through unchanged; a malformed date
// never blocks the record.
//
// fallbackYear applies when the date has no year and ref is nil; zero means
// the year of now().
func ResolveDate(dateRaw string, ref *civil.Date, fallbackYear int, now func() time.Time) string {
	s := strings.TrimSpace(dateRaw)

	if t, err := time.Parse("01/02/2006", s); err == nil {
		return t.Format("2006-01-02")
	}

	// Two-digit years follow time.Parse's century convention (69-99 -> 19xx).
	if t, err := time.Parse("01/02/06", s); err == nil {
		return t.Format("2006-01-02")
	}

	if t, err := time.Parse("Jan 2", s); err == nil {
		year := 0
		switch {
		case ref != nil:
			year = ref.Year
			if int(t.Month()) > int(ref.Month) {
				year--
			}
		case fallbackYear != 0:
			year = fallbackYear
		default:
			year = now().Year()
		}
		return fmt.Sprintf("%04d-%02d-%02d", year, int(t.Month()), t.Day())
	}

	return dateRaw
}
