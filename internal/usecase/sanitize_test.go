package usecase

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func sanitizeToMap(t *testing.T, raw string) map[string]any {
	t.Helper()
	out := SanitizeArguments(json.RawMessage(raw))
	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("sanitized output is not valid JSON: %v", err)
	}
	return m
}

func TestSanitizeTruncatesLongStrings(t *testing.T) {
	long := strings.Repeat("a", 100000)
	payload, _ := json.Marshal(map[string]any{"title": long})

	m := sanitizeToMap(t, string(payload))
	got, ok := m["title"].(string)
	if !ok {
		t.Fatal("title should survive as a string")
	}
	if len(got) != maxStringArgLen {
		t.Errorf("truncated length = %d, want %d", len(got), maxStringArgLen)
	}
}

func TestSanitizeShortStringUntouched(t *testing.T) {
	m := sanitizeToMap(t, `{"title":"hello"}`)
	if m["title"] != "hello" {
		t.Errorf("title = %v, want hello", m["title"])
	}
}

func TestSanitizeMultibyteTruncation(t *testing.T) {
	long := strings.Repeat("é", 60000)
	payload, _ := json.Marshal(map[string]any{"body": long})

	m := sanitizeToMap(t, string(payload))
	got := m["body"].(string)
	runes := []rune(got)
	if len(runes) != maxStringArgLen {
		t.Errorf("rune length = %d, want %d", len(runes), maxStringArgLen)
	}
	for _, r := range runes {
		if r != 'é' {
			t.Fatal("truncation split a multibyte character")
		}
	}
}

func TestSanitizeClampsNumbers(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{-5, 0},
		{-0.1, 0},
		{0, 0},
		{500, 500},
		{1000, 1000},
		{1001, 1000},
		{5000, 1000},
	}
	for _, tc := range cases {
		payload, _ := json.Marshal(map[string]any{"limit": tc.in})
		m := sanitizeToMap(t, string(payload))
		if got := m["limit"].(float64); got != tc.want {
			t.Errorf("clamp(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeBooleansPass(t *testing.T) {
	m := sanitizeToMap(t, `{"publish":true,"draft":false}`)
	if m["publish"] != true || m["draft"] != false {
		t.Errorf("booleans must pass unchanged, got %v", m)
	}
}

func TestSanitizeDropsComplexValues(t *testing.T) {
	m := sanitizeToMap(t, `{"tags":["a","b"],"meta":{"k":"v"},"none":null,"title":"keep"}`)

	if _, ok := m["tags"]; ok {
		t.Error("array values must be dropped")
	}
	if _, ok := m["meta"]; ok {
		t.Error("object values must be dropped")
	}
	if _, ok := m["none"]; ok {
		t.Error("null values must be dropped")
	}
	if m["title"] != "keep" {
		t.Error("scalar values alongside dropped ones must survive")
	}
}

func TestSanitizeNonObjectInput(t *testing.T) {
	cases := []string{``, `null`, `[1,2,3]`, `"just a string"`, `42`, `{broken`}
	for _, raw := range cases {
		out := SanitizeArguments(json.RawMessage(raw))
		if !bytes.Equal(out, []byte(`{}`)) {
			t.Errorf("SanitizeArguments(%q) = %s, want {}", raw, out)
		}
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	long := strings.Repeat("x", 80000)
	payload, _ := json.Marshal(map[string]any{
		"title":   long,
		"limit":   float64(5000),
		"publish": true,
		"tags":    []string{"a"},
	})

	once := SanitizeArguments(payload)
	twice := SanitizeArguments(once)
	if !bytes.Equal(once, twice) {
		t.Error("sanitizing twice must equal sanitizing once")
	}
}

func TestSanitizeDeterministic(t *testing.T) {
	raw := json.RawMessage(`{"b":1,"a":"x","c":true}`)
	first := SanitizeArguments(raw)
	for i := 0; i < 10; i++ {
		if !bytes.Equal(first, SanitizeArguments(raw)) {
			t.Fatal("output must be byte-identical across runs")
		}
	}
}
