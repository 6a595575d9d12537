package codec

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := New("test-secret")

	cases := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "Grocery Store", "Grocery Store"},
		{"empty_string", "", ""},
		{"float", 123.45, "123.45"},
		{"negative_float", -0.5, "-0.5"},
		{"int", 42, "42"},
		{"decimal_string", "1999.99", "1999.99"},
		{"unicode", "café ☕", "café ☕"},
		{"long", strings.Repeat("x", 500), strings.Repeat("x", 500)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			enc, err := c.Encrypt(tc.value)
			if err != nil {
				t.Fatalf("encrypt: %v", err)
			}
			if got := c.Decrypt(enc); got != tc.want {
				t.Errorf("round trip: got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestEncryptRandomIV(t *testing.T) {
	c := New("test-secret")

	a, err := c.Encrypt("same value")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	b, err := c.Encrypt("same value")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if a == b {
		t.Error("two encryptions of the same value must differ (random IV)")
	}
	if c.Decrypt(a) != "same value" || c.Decrypt(b) != "same value" {
		t.Error("both ciphertexts must decrypt back to the original value")
	}
}

func TestEncryptNil(t *testing.T) {
	c := New("test-secret")

	enc, err := c.Encrypt(nil)
	if err != nil {
		t.Fatalf("encrypt nil: %v", err)
	}
	if enc != "" {
		t.Errorf("expected empty string for nil, got %q", enc)
	}
}

func TestEncryptOutputFormat(t *testing.T) {
	c := New("test-secret")

	enc, err := c.Encrypt("hello")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	parts := strings.Split(enc, ":")
	if len(parts) != 2 {
		t.Fatalf("expected ivHex:cipherHex, got %q", enc)
	}
	if len(parts[0]) != 32 {
		t.Errorf("expected 16-byte hex IV (32 chars), got %d chars", len(parts[0]))
	}
}

func TestDecryptMalformedPassthrough(t *testing.T) {
	c := New("test-secret")

	cases := []struct {
		name  string
		input string
	}{
		{"plain_legacy_value", "Rent payment"},
		{"plain_number", "150.75"},
		{"too_many_parts", "aa:bb:cc"},
		{"bad_iv_hex", "zzzz:" + strings.Repeat("ab", 16)},
		{"bad_cipher_hex", strings.Repeat("ab", 16) + ":zz"},
		{"short_iv", "abcd:" + strings.Repeat("ab", 16)},
		{"unaligned_cipher", strings.Repeat("ab", 16) + ":abcdef"},
		{"empty_cipher", strings.Repeat("ab", 16) + ":"},
		{"empty", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Decrypt(tc.input); got != tc.input {
				t.Errorf("malformed input must pass through unchanged, got %q from %q", got, tc.input)
			}
		})
	}
}

func TestDecryptWrongKeyPassthrough(t *testing.T) {
	// A well-formed ciphertext encrypted under a different key should
	// fail padding checks and come back verbatim, never panic.
	a := New("key-one")
	b := New("key-two")

	enc, err := a.Encrypt("secret amount")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	got := b.Decrypt(enc)
	if got == "secret amount" {
		t.Fatal("wrong key must not decrypt to the original plaintext")
	}
}

func TestDecryptToNumber(t *testing.T) {
	c := New("test-secret")

	t.Run("valid_number", func(t *testing.T) {
		enc, err := c.Encrypt(99.5)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		if got := c.DecryptToNumber(&enc); got != 99.5 {
			t.Errorf("expected 99.5, got %v", got)
		}
	})

	t.Run("nil_input", func(t *testing.T) {
		if got := c.DecryptToNumber(nil); got != 0 {
			t.Errorf("expected 0 for nil, got %v", got)
		}
	})

	t.Run("non_numeric", func(t *testing.T) {
		enc, err := c.Encrypt("not a number")
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		if got := c.DecryptToNumber(&enc); got != 0 {
			t.Errorf("expected 0 for non-numeric, got %v", got)
		}
	})

	t.Run("legacy_plain_number", func(t *testing.T) {
		raw := "42.25"
		if got := c.DecryptToNumber(&raw); got != 42.25 {
			t.Errorf("expected 42.25 for legacy plain value, got %v", got)
		}
	})
}

func TestDecryptToDecimal(t *testing.T) {
	c := New("test-secret")

	enc, err := c.EncryptDecimal(decimal.RequireFromString("12.34"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if got := c.DecryptToDecimal(enc); !got.Equal(decimal.RequireFromString("12.34")) {
		t.Errorf("expected 12.34, got %s", got)
	}

	enc2, err := c.Encrypt("garbage")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if got := c.DecryptToDecimal(enc2); !got.IsZero() {
		t.Errorf("expected zero for non-numeric, got %s", got)
	}
}

func TestKeyDerivation(t *testing.T) {
	// Short and over-length secrets must both produce a working codec.
	for _, secret := range []string{"s", strings.Repeat("k", 64)} {
		c := New(secret)
		enc, err := c.Encrypt("value")
		if err != nil {
			t.Fatalf("encrypt with %d-byte secret: %v", len(secret), err)
		}
		if got := c.Decrypt(enc); got != "value" {
			t.Errorf("round trip with %d-byte secret: got %q", len(secret), got)
		}
	}
}
