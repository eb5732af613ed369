package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dvloznov/expense-ai/internal/llm"
)

// ParseError means the model's output for one candidate line could not be
// reduced to a valid record. It carries the full raw output for diagnosis.
type ParseError struct {
	Line      string
	RawOutput string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse line %q: %v (raw output: %s)", e.Line, e.Err, e.RawOutput)
}

func (e *ParseError) Unwrap() error { return e.Err }

// First non-greedy {...} span, across newlines.
var jsonObjectRe = regexp.MustCompile(`(?s)\{.*?\}`)

// ParseLine asks the model to extract date, vendor and amount from one
// candidate line, then repairs its output into a ParsedRecord. Failures are
// *ParseError except when the model call itself failed, which is returned
// as-is so callers can tell an unreachable model apart from a bad line.
func ParseLine(ctx context.Context, client llm.Client, line string) (ParsedRecord, error) {
	raw, err := client.Generate(ctx, buildLinePrompt(line))
	if err != nil {
		return ParsedRecord{}, fmt.Errorf("parse line: %w", err)
	}

	cleaned, err := repairModelJSON(raw)
	if err != nil {
		return ParsedRecord{}, &ParseError{Line: line, RawOutput: raw, Err: err}
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return ParsedRecord{}, &ParseError{Line: line, RawOutput: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	dateRaw, err := getStringField(obj, "date")
	if err != nil {
		return ParsedRecord{}, &ParseError{Line: line, RawOutput: raw, Err: err}
	}
	vendorRaw, err := getStringField(obj, "vendor_raw")
	if err != nil {
		return ParsedRecord{}, &ParseError{Line: line, RawOutput: raw, Err: err}
	}
	amount, err := getFloat64Field(obj, "amount")
	if err != nil {
		return ParsedRecord{}, &ParseError{Line: line, RawOutput: raw, Err: err}
	}

	return ParsedRecord{DateRaw: dateRaw, VendorRaw: vendorRaw, Amount: amount}, nil
}

// repairModelJSON extracts the first JSON object from model output, tolerating
// markdown fences and explanatory prose around the payload.
func repairModelJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	// Drop ```json ... ``` wrappers if the model ignored instructions.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	m := jsonObjectRe.FindString(s)
	if m == "" {
		return "", fmt.Errorf("no JSON object found in model output")
	}
	return m, nil
}

func getStringField(m map[string]interface{}, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("missing required field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("required field %q is empty", key)
	}
	return s, nil
}

func getFloat64Field(m map[string]interface{}, key string) (float64, error) {
	v, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("missing required field %q", key)
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, fmt.Errorf("field %q is not numeric: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}
