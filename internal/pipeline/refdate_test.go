package pipeline

import (
	"testing"

	"cloud.google.com/go/civil"
)

func TestExtractReferenceDate(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  civil.Date
		found bool
	}{
		{
			name:  "explicit statement date, full month",
			text:  "ACME BANK\nStatement Date: December 10, 2025\n",
			want:  civil.Date{Year: 2025, Month: 12, Day: 10},
			found: true,
		},
		{
			name:  "explicit statement date, abbreviated month",
			text:  "Statement Date Dec 10, 2025",
			want:  civil.Date{Year: 2025, Month: 12, Day: 10},
			found: true,
		},
		{
			name:  "statement period captures end date",
			text:  "Statement Period: November 11, 2025 - December 10, 2025",
			want:  civil.Date{Year: 2025, Month: 12, Day: 10},
			found: true,
		},
		{
			name:  "billing cycle captures end date",
			text:  "Billing Cycle Jan 6, 2026 to Feb 5, 2026",
			want:  civil.Date{Year: 2026, Month: 2, Day: 5},
			found: true,
		},
		{
			name:  "label split across lines",
			text:  "Statement\nDate:\nDecember 10, 2025",
			want:  civil.Date{Year: 2025, Month: 12, Day: 10},
			found: true,
		},
		{
			name:  "no recognizable pattern",
			text:  "Thank you for banking with us",
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found, err := ExtractReferenceDate(tt.text)
			if err != nil {
				t.Fatalf("ExtractReferenceDate() error = %v", err)
			}
			if found != tt.found {
				t.Fatalf("ExtractReferenceDate() found = %v, want %v", found, tt.found)
			}
			if found && got != tt.want {
				t.Errorf("ExtractReferenceDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractReferenceDate_ExplicitLabelWins(t *testing.T) {
	text := "Statement Period: November 11, 2025 - December 10, 2025\n" +
		"Statement Date: December 12, 2025\n"

	got, found, err := ExtractReferenceDate(text)
	if err != nil {
		t.Fatalf("ExtractReferenceDate() error = %v", err)
	}
	if !found {
		t.Fatal("ExtractReferenceDate() found = false, want true")
	}
	want := civil.Date{Year: 2025, Month: 12, Day: 12}
	if got != want {
		t.Errorf("ExtractReferenceDate() = %v, want %v (explicit label must win)", got, want)
	}
}
