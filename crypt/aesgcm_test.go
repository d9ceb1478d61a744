package crypt

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func newTestCipher(t *testing.T, typeID byte) *Cipher {
	t.Helper()

	key := bytes.Repeat([]byte{0x42}, KeySize)
	c, err := New(key, typeID)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := newTestCipher(t, DefaultTypeID)

	for _, value := range []string{"a", "some sensitive value", "ünïcödé ✓"} {
		envelope, err := c.Encrypt(value)
		if err != nil {
			t.Fatalf("Encrypt(%q) failed: %v", value, err)
		}

		plaintext, err := c.Decrypt(envelope)
		if err != nil {
			t.Fatalf("Decrypt failed: %v", err)
		}
		if string(plaintext) != value {
			t.Fatalf("round trip = %q, want %q", plaintext, value)
		}
	}
}

func TestEncryptProducesFreshNonce(t *testing.T) {
	c := newTestCipher(t, DefaultTypeID)

	a, err := c.Encrypt("same value")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	b, err := c.Encrypt("same value")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if a == b {
		t.Fatal("two envelopes of the same value must differ (fresh nonce)")
	}
}

func TestEncryptEmptyValueRejected(t *testing.T) {
	c := newTestCipher(t, DefaultTypeID)

	if _, err := c.Encrypt(""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Encrypt(\"\") = %v, want ErrInvalidInput", err)
	}
	if _, err := c.Decrypt(""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Decrypt(\"\") = %v, want ErrInvalidInput", err)
	}
}

func TestDecryptTamperedTagFails(t *testing.T) {
	c := newTestCipher(t, DefaultTypeID)

	envelope, err := c.Encrypt("protected value")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	raw[1+12] ^= 0xFF // first tag byte
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := c.Decrypt(tampered); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("Decrypt tampered = %v, want ErrAuthenticationFailed", err)
	}
}

func TestDecryptForeignTypeIsNil(t *testing.T) {
	a := newTestCipher(t, 1)
	b := newTestCipher(t, 2)

	envelope, err := a.Encrypt("value sealed by type 1")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	plaintext, err := b.Decrypt(envelope)
	if err != nil {
		t.Fatalf("Decrypt foreign envelope errored: %v", err)
	}
	if plaintext != nil {
		t.Fatalf("Decrypt foreign envelope = %q, want nil", plaintext)
	}
}

func TestDecryptShortEnvelopeIsNil(t *testing.T) {
	c := newTestCipher(t, DefaultTypeID)

	short := base64.StdEncoding.EncodeToString([]byte{DefaultTypeID, 1, 2, 3})
	plaintext, err := c.Decrypt(short)
	if err != nil {
		t.Fatalf("Decrypt short envelope errored: %v", err)
	}
	if plaintext != nil {
		t.Fatalf("Decrypt short envelope = %q, want nil", plaintext)
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	a := newTestCipher(t, DefaultTypeID)

	otherKey := bytes.Repeat([]byte{0x7E}, KeySize)
	b, err := New(otherKey, DefaultTypeID)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	envelope, err := a.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if _, err := b.Decrypt(envelope); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("Decrypt with wrong key = %v, want ErrAuthenticationFailed", err)
	}
}

func TestCompare(t *testing.T) {
	c := newTestCipher(t, DefaultTypeID)

	envelope, err := c.Encrypt("compare me")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if !c.Compare(envelope, "compare me") {
		t.Fatal("Compare should match the sealed value")
	}
	if c.Compare(envelope, "different") {
		t.Fatal("Compare matched a different value")
	}

	other := newTestCipher(t, 9)
	if other.Compare(envelope, "compare me") {
		t.Fatal("Compare matched a foreign envelope")
	}
}

func TestNewRejectsBadKey(t *testing.T) {
	if _, err := New([]byte("short"), DefaultTypeID); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("New(short key) = %v, want ErrInvalidKey", err)
	}
}
