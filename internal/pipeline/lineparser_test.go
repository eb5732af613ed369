package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// stubClient is a deterministic stand-in for the model. fn maps a prompt to
// an output; calls are counted for cache and no-invocation assertions.
type stubClient struct {
	mu    sync.Mutex
	calls int
	fn    func(prompt string) (string, error)
}

func (s *stubClient) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.fn(prompt)
}

func (s *stubClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   ParsedRecord
	}{
		{
			name:   "clean JSON",
			output: `{"date": "Nov 20", "vendor_raw": "FRESHCO #9888 BRAMPTON ON", "amount": 23.87}`,
			want:   ParsedRecord{DateRaw: "Nov 20", VendorRaw: "FRESHCO #9888 BRAMPTON ON", Amount: 23.87},
		},
		{
			name:   "fenced JSON",
			output: "```json\n{\"date\": \"Nov 20\", \"vendor_raw\": \"FRESHCO\", \"amount\": 23.87}\n```",
			want:   ParsedRecord{DateRaw: "Nov 20", VendorRaw: "FRESHCO", Amount: 23.87},
		},
		{
			name:   "prose around JSON",
			output: "Here is the extracted data:\n{\"date\": \"Nov 20\", \"vendor_raw\": \"FRESHCO\", \"amount\": 23.87}\nLet me know if you need more.",
			want:   ParsedRecord{DateRaw: "Nov 20", VendorRaw: "FRESHCO", Amount: 23.87},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubClient{fn: func(string) (string, error) { return tt.output, nil }}
			got, err := ParseLine(context.Background(), client, "Nov 20 Nov 24 FRESHCO #9888 BRAMPTON ON 23.87")
			if err != nil {
				t.Fatalf("ParseLine() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseLine() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseLine_Failures(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{name: "no JSON object", output: "I could not find any transaction in that line."},
		{name: "invalid JSON", output: `{"date": "Nov 20", "vendor_raw": }`},
		{name: "missing amount", output: `{"date": "Nov 20", "vendor_raw": "FRESHCO"}`},
		{name: "non-numeric amount", output: `{"date": "Nov 20", "vendor_raw": "FRESHCO", "amount": "lots"}`},
		{name: "empty vendor", output: `{"date": "Nov 20", "vendor_raw": "  ", "amount": 1.0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubClient{fn: func(string) (string, error) { return tt.output, nil }}
			_, err := ParseLine(context.Background(), client, "some line")
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("ParseLine() error = %v, want *ParseError", err)
			}
			if parseErr.RawOutput != tt.output {
				t.Errorf("ParseError.RawOutput = %q, want full raw output %q", parseErr.RawOutput, tt.output)
			}
		})
	}
}

func TestParseLine_ModelErrorIsNotParseError(t *testing.T) {
	modelErr := fmt.Errorf("connection refused")
	client := &stubClient{fn: func(string) (string, error) { return "", modelErr }}

	_, err := ParseLine(context.Background(), client, "some line")
	if err == nil {
		t.Fatal("ParseLine() error = nil, want error")
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		t.Errorf("ParseLine() returned *ParseError for a model transport failure: %v", err)
	}
	if !errors.Is(err, modelErr) {
		t.Errorf("ParseLine() error = %v, want wrapped %v", err, modelErr)
	}
}

func TestParseLine_PromptContainsLine(t *testing.T) {
	var seen string
	client := &stubClient{fn: func(prompt string) (string, error) {
		seen = prompt
		return `{"date": "Nov 20", "vendor_raw": "FRESHCO", "amount": 1}`, nil
	}}

	line := "Nov 20 Nov 24 FRESHCO #9888 BRAMPTON ON 23.87"
	if _, err := ParseLine(context.Background(), client, line); err != nil {
		t.Fatalf("ParseLine() error = %v", err)
	}
	if !strings.Contains(seen, line) {
		t.Errorf("prompt does not contain the candidate line:\n%s", seen)
	}
	if !strings.Contains(seen, "FIRST date is the transaction date") {
		t.Errorf("prompt missing first-date rule:\n%s", seen)
	}
}
