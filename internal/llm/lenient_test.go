package llm

import (
	"encoding/json"
	"testing"
)

func TestDecodeObjectLenientDirect(t *testing.T) {
	raw := []byte(`{"workPerformed":[],"deliveries":[],"delays":[],"safetyNotes":null}`)
	got, err := DecodeObjectLenient(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(got) != string(raw) {
		t.Fatalf("got %q, want input unchanged", got)
	}
}

func TestDecodeObjectLenientWrappedInProse(t *testing.T) {
	raw := []byte(`Here you go: {"workPerformed":[],"deliveries":[],"delays":[],"safetyNotes":null} Thanks!`)
	got, err := DecodeObjectLenient(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(got, &m); err != nil {
		t.Fatalf("recovered output does not parse: %v", err)
	}
	if _, ok := m["workPerformed"]; !ok {
		t.Fatalf("recovered object missing workPerformed: %s", got)
	}
}

func TestDecodeObjectLenientCodeFence(t *testing.T) {
	raw := []byte("```json\n{\"safetyNotes\":\"wear gloves\"}\n```")
	got, err := DecodeObjectLenient(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(got, &m); err != nil {
		t.Fatalf("recovered output does not parse: %v", err)
	}
	if m["safetyNotes"] != "wear gloves" {
		t.Fatalf("safetyNotes = %v", m["safetyNotes"])
	}
}

func TestDecodeObjectLenientUnrecoverable(t *testing.T) {
	for _, raw := range []string{
		"not json at all",
		"",
		"{broken",
		"} backwards {",
	} {
		if _, err := DecodeObjectLenient([]byte(raw)); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
