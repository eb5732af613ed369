package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// scriptedClient answers line-parse prompts from a per-line script and vendor
// prompts with a fixed token. It mimics a deterministic model for pipeline
// round trips.
func scriptedClient(t *testing.T, lines map[string]string) *stubClient {
	t.Helper()
	return &stubClient{fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "PRIMARY brand name") {
			return "freshco", nil
		}
		for line, out := range lines {
			if strings.Contains(prompt, line) {
				return out, nil
			}
		}
		return "", fmt.Errorf("unexpected prompt:\n%s", prompt)
	}}
}

const testStatement = "ACME BANK VISA\n" +
	"Statement Date: December 10, 2025\n" +
	"Nov 20 Nov 24 FRESHCO #9888 BRAMPTON ON 23.87\n" +
	"Dec 02 Dec 03 FRESHCO #1234 TORONTO ON 11.50\n" +
	"Thank you for banking with us\n"

func TestProcessStatementText(t *testing.T) {
	client := scriptedClient(t, map[string]string{
		"FRESHCO #9888": `{"date": "Nov 20", "vendor_raw": "FRESHCO #9888 BRAMPTON ON", "amount": 23.87}`,
		"FRESHCO #1234": `{"date": "Dec 02", "vendor_raw": "FRESHCO #1234 TORONTO ON", "amount": 11.50}`,
	})
	p := NewProcessor(client, NewMemoryVendorCache(), Options{}, zerolog.Nop())

	got, err := p.ProcessStatementText(context.Background(), testStatement)
	if err != nil {
		t.Fatalf("ProcessStatementText() error = %v", err)
	}

	want := []NormalizedTransaction{
		{Date: "2025-11-20", VendorRaw: "FRESHCO #9888 BRAMPTON ON", VendorNormalized: "freshco", Amount: 23.87},
		{Date: "2025-12-02", VendorRaw: "FRESHCO #1234 TORONTO ON", VendorNormalized: "freshco", Amount: 11.50},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ProcessStatementText() = %+v, want %+v", got, want)
	}
}

func TestProcessStatementText_NoCandidatesNoModelCalls(t *testing.T) {
	client := &stubClient{fn: func(string) (string, error) {
		return "", fmt.Errorf("model must not be called")
	}}
	p := NewProcessor(client, NewMemoryVendorCache(), Options{}, zerolog.Nop())

	got, err := p.ProcessStatementText(context.Background(), "ACME BANK\nno transactions here\n")
	if err != nil {
		t.Fatalf("ProcessStatementText() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ProcessStatementText() = %v, want empty", got)
	}
	if client.callCount() != 0 {
		t.Errorf("model called %d times on an empty statement, want 0", client.callCount())
	}
}

func TestProcessStatementText_SkipsUnparseableLines(t *testing.T) {
	client := scriptedClient(t, map[string]string{
		"FRESHCO #9888": "this is not json at all",
		"FRESHCO #1234": `{"date": "Dec 02", "vendor_raw": "FRESHCO #1234 TORONTO ON", "amount": 11.50}`,
	})
	p := NewProcessor(client, NewMemoryVendorCache(), Options{}, zerolog.Nop())

	got, err := p.ProcessStatementText(context.Background(), testStatement)
	if err != nil {
		t.Fatalf("ProcessStatementText() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ProcessStatementText() returned %d transactions, want 1 (bad line skipped)", len(got))
	}
	if got[0].VendorRaw != "FRESHCO #1234 TORONTO ON" {
		t.Errorf("surviving transaction = %+v, want the parseable line", got[0])
	}
}

func TestProcessStatementText_AllLinesFailed(t *testing.T) {
	client := &stubClient{fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "PRIMARY brand name") {
			return "freshco", nil
		}
		return "garbage output", nil
	}}
	p := NewProcessor(client, NewMemoryVendorCache(), Options{}, zerolog.Nop())

	_, err := p.ProcessStatementText(context.Background(), testStatement)
	if !errors.Is(err, ErrAllLinesFailed) {
		t.Errorf("ProcessStatementText() error = %v, want ErrAllLinesFailed", err)
	}
}

func TestProcessStatementText_Idempotent(t *testing.T) {
	lines := map[string]string{
		"FRESHCO #9888": `{"date": "Nov 20", "vendor_raw": "FRESHCO #9888 BRAMPTON ON", "amount": 23.87}`,
		"FRESHCO #1234": `{"date": "Dec 02", "vendor_raw": "FRESHCO #1234 TORONTO ON", "amount": 11.50}`,
	}
	cache := NewMemoryVendorCache()
	p := NewProcessor(scriptedClient(t, lines), cache, Options{}, zerolog.Nop())

	first, err := p.ProcessStatementText(context.Background(), testStatement)
	if err != nil {
		t.Fatalf("first run error = %v", err)
	}
	second, err := p.ProcessStatementText(context.Background(), testStatement)
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("pipeline not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestProcessStatementText_OrderPreservedUnderConcurrency(t *testing.T) {
	var text strings.Builder
	text.WriteString("Statement Date: December 10, 2025\n")
	lines := make(map[string]string)
	for i := 0; i < 20; i++ {
		vendor := fmt.Sprintf("VENDOR-%02d UNIQUE SUFFIX", i)
		text.WriteString(fmt.Sprintf("Nov %02d Nov %02d %s %d.00\n", i%28+1, i%28+1, vendor, i))
		lines[vendor] = fmt.Sprintf(`{"date": "Nov %02d", "vendor_raw": "%s", "amount": %d}`, i%28+1, vendor, i)
	}

	p := NewProcessor(scriptedClient(t, lines), NewMemoryVendorCache(), Options{Concurrency: 8}, zerolog.Nop())
	got, err := p.ProcessStatementText(context.Background(), text.String())
	if err != nil {
		t.Fatalf("ProcessStatementText() error = %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("got %d transactions, want 20", len(got))
	}
	for i, tx := range got {
		if tx.Amount != float64(i) {
			t.Fatalf("transaction %d has amount %v, want %v (document order lost)", i, tx.Amount, float64(i))
		}
	}
}
