package token

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestGenerateZeroLengthIsEmpty(t *testing.T) {
	g := New()

	std, err := g.Generate(0)
	if err != nil {
		t.Fatalf("Generate(0) failed: %v", err)
	}
	if std != "" {
		t.Fatalf("Generate(0) = %q, want empty", std)
	}

	urlSafe, err := g.GenerateURLSafe(0)
	if err != nil {
		t.Fatalf("GenerateURLSafe(0) failed: %v", err)
	}
	if urlSafe != "" {
		t.Fatalf("GenerateURLSafe(0) = %q, want empty", urlSafe)
	}
}

func TestGenerateNegativeLengthFails(t *testing.T) {
	g := New()

	if _, err := g.Generate(-1); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("Generate(-1) = %v, want ErrInvalidLength", err)
	}
	if _, err := g.GenerateURLSafe(-1); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("GenerateURLSafe(-1) = %v, want ErrInvalidLength", err)
	}
}

func TestGenerateDecodesToRequestedLength(t *testing.T) {
	g := New()

	for _, n := range []int{1, 16, 32, 48, 64} {
		std, err := g.Generate(n)
		if err != nil {
			t.Fatalf("Generate(%d) failed: %v", n, err)
		}
		raw, err := base64.StdEncoding.DecodeString(std)
		if err != nil {
			t.Fatalf("Generate(%d) produced invalid base64: %v", n, err)
		}
		if len(raw) != n {
			t.Fatalf("Generate(%d) decoded to %d bytes", n, len(raw))
		}
	}
}

func TestGenerateURLSafeAlphabet(t *testing.T) {
	g := New()

	for i := 0; i < 32; i++ {
		tok, err := g.GenerateURLSafeDefault()
		if err != nil {
			t.Fatalf("GenerateURLSafeDefault failed: %v", err)
		}
		if strings.ContainsAny(tok, "+/=") {
			t.Fatalf("URL-safe token contains forbidden characters: %q", tok)
		}
		if _, err := base64.RawURLEncoding.DecodeString(tok); err != nil {
			t.Fatalf("URL-safe token failed to decode: %v", err)
		}
	}
}

func TestGenerateTokensAreUnique(t *testing.T) {
	g := New()
	seen := make(map[string]bool)

	for i := 0; i < 64; i++ {
		tok, err := g.GenerateDefault()
		if err != nil {
			t.Fatalf("GenerateDefault failed: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token generated: %q", tok)
		}
		seen[tok] = true
	}
}
