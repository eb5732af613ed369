package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

func newTestNormalizer(client *stubClient) *Normalizer {
	return NewNormalizer(client, NewMemoryVendorCache(), zerolog.Nop())
}

func TestNormalize(t *testing.T) {
	client := &stubClient{fn: func(string) (string, error) { return "Fresh-Co\n", nil }}
	n := newTestNormalizer(client)

	got := n.Normalize(context.Background(), "FRESHCO #9888 BRAMPTON ON")
	if got != "fresh-co" {
		t.Errorf("Normalize() = %q, want %q", got, "fresh-co")
	}
}

func TestNormalize_CacheIdempotence(t *testing.T) {
	client := &stubClient{fn: func(string) (string, error) { return "freshco", nil }}
	n := newTestNormalizer(client)

	first := n.Normalize(context.Background(), "FRESHCO #9888 BRAMPTON ON")
	second := n.Normalize(context.Background(), "FRESHCO #9888 BRAMPTON ON")

	if first != second {
		t.Errorf("Normalize() returned %q then %q, want identical tokens", first, second)
	}
	if client.callCount() != 1 {
		t.Errorf("model called %d times, want 1 (second call must hit cache)", client.callCount())
	}
}

func TestNormalize_PrefixCollapsing(t *testing.T) {
	client := &stubClient{fn: func(string) (string, error) { return "freshco", nil }}
	n := newTestNormalizer(client)

	// Same first 10 characters, different store suffixes.
	first := n.Normalize(context.Background(), "FRESHCO ON #9888 BRAMPTON")
	second := n.Normalize(context.Background(), "FRESHCO ON #1234 TORONTO")

	if first != second {
		t.Errorf("Normalize() returned %q and %q for shared prefix, want same token", first, second)
	}
	if client.callCount() != 1 {
		t.Errorf("model called %d times, want 1 (shared prefix must collapse)", client.callCount())
	}
}

func TestNormalize_SanitizesOutput(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{name: "multiline keeps first line", output: "tim-hortons\nThe brand is Tim Hortons.", want: "tim-hortons"},
		{name: "uppercase and noise stripped", output: "  TIM HORTONS!  ", want: "timhortons"},
		{name: "empty output falls back to sentinel", output: "   \n", want: UnknownVendor},
		{name: "digits and punctuation only", output: "1234 #%&", want: UnknownVendor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubClient{fn: func(string) (string, error) { return tt.output, nil }}
			n := newTestNormalizer(client)
			if got := n.Normalize(context.Background(), "SOME VENDOR STRING"); got != tt.want {
				t.Errorf("Normalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize_ModelErrorReturnsSentinelWithoutCaching(t *testing.T) {
	failing := true
	client := &stubClient{fn: func(string) (string, error) {
		if failing {
			return "", fmt.Errorf("connection refused")
		}
		return "freshco", nil
	}}
	n := newTestNormalizer(client)

	if got := n.Normalize(context.Background(), "FRESHCO #9888 BRAMPTON ON"); got != UnknownVendor {
		t.Fatalf("Normalize() during outage = %q, want %q", got, UnknownVendor)
	}

	// Recovery: the failure must not have poisoned the cache.
	failing = false
	if got := n.Normalize(context.Background(), "FRESHCO #9888 BRAMPTON ON"); got != "freshco" {
		t.Errorf("Normalize() after recovery = %q, want %q", got, "freshco")
	}
}

func TestNormalize_EmptyInput(t *testing.T) {
	client := &stubClient{fn: func(string) (string, error) { return "freshco", nil }}
	n := newTestNormalizer(client)

	if got := n.Normalize(context.Background(), "   "); got != UnknownVendor {
		t.Errorf("Normalize() on blank input = %q, want %q", got, UnknownVendor)
	}
	if client.callCount() != 0 {
		t.Errorf("model called %d times for blank input, want 0", client.callCount())
	}
}
