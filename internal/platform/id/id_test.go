package id

import (
	"encoding/base32"
	"strings"
	"testing"
)

func TestNewFormat(t *testing.T) {
	generated, err := New()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	if generated == "" {
		t.Fatal("expected non-empty id")
	}
	if strings.Contains(generated, "=") {
		t.Fatal("expected no padding")
	}
	if len(generated) != 26 {
		t.Fatalf("expected 26-character id, got %d", len(generated))
	}
	for _, r := range generated {
		if (r < 'a' || r > 'z') && (r < '2' || r > '7') {
			t.Fatalf("unexpected character %q in id", r)
		}
	}

	decoded, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(generated))
	if err != nil {
		t.Fatalf("decode id: %v", err)
	}
	if len(decoded) != 16 {
		t.Fatalf("expected 16 decoded bytes, got %d", len(decoded))
	}
}

func TestNewSetsUUIDVersionAndVariant(t *testing.T) {
	generated, err := New()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}

	decoded, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(generated))
	if err != nil {
		t.Fatalf("decode id: %v", err)
	}

	version := decoded[6] >> 4
	if version != 4 {
		t.Fatalf("expected version 4, got %d", version)
	}
	variant := decoded[8] & 0xC0
	if variant != 0x80 {
		t.Fatalf("expected variant 0x80, got 0x%X", variant)
	}
}

func TestNewUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		generated, err := New()
		if err != nil {
			t.Fatalf("new id: %v", err)
		}
		if seen[generated] {
			t.Fatalf("duplicate id generated: %s", generated)
		}
		seen[generated] = true
	}
}
