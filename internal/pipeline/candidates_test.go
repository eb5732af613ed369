package pipeline

import (
	"reflect"
	"testing"
)

func TestExtractCandidates(t *testing.T) {
	text := "ACME BANK VISA STATEMENT\n" +
		"Statement Date: December 10, 2025\n" +
		"  11/24/2025 AMAZON MKTPLACE CA $23.87\n" +
		"Nov 20 Nov 24 FRESHCO #9888 BRAMPTON ON 23.87\n" +
		"Thank you for banking with us\n" +
		"Page 1 of 3\n"

	got := ExtractCandidates(text)
	want := []string{
		"11/24/2025 AMAZON MKTPLACE CA $23.87",
		"Nov 20 Nov 24 FRESHCO #9888 BRAMPTON ON 23.87",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractCandidates() = %v, want %v", got, want)
	}
}

func TestExtractCandidates_NoMatches(t *testing.T) {
	text := "ACME BANK\nThank you for banking with us\nPage 1 of 3\n"
	if got := ExtractCandidates(text); len(got) != 0 {
		t.Errorf("ExtractCandidates() = %v, want empty", got)
	}
}

func TestExtractCandidates_PreservesDocumentOrder(t *testing.T) {
	text := "Dec 01 Dec 02 FIRST VENDOR 1.00\n" +
		"noise line\n" +
		"Dec 03 Dec 04 SECOND VENDOR 2.00\n" +
		"Dec 05 Dec 06 THIRD VENDOR 3.00\n"

	got := ExtractCandidates(text)
	if len(got) != 3 {
		t.Fatalf("ExtractCandidates() returned %d lines, want 3", len(got))
	}
	for i, prefix := range []string{"Dec 01", "Dec 03", "Dec 05"} {
		if got[i][:6] != prefix {
			t.Errorf("candidate %d = %q, want prefix %q", i, got[i], prefix)
		}
	}
}
