package vault

import (
	"strings"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	v, err := New(key)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sealed, err := v.Seal("auth-token-value")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if sealed == "auth-token-value" {
		t.Fatal("sealed value equals plaintext")
	}

	opened, err := v.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened != "auth-token-value" {
		t.Fatalf("Open = %q, want original plaintext", opened)
	}
}

func TestSealProducesDistinctCiphertexts(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	v, err := New(key)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a, err := v.Seal("same")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	b, err := v.Seal("same")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if a == b {
		t.Fatal("two seals of the same value should differ (random nonce)")
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	key1, _ := GenerateKey()
	key2, _ := GenerateKey()
	v1, err := New(key1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	v2, err := New(key2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sealed, err := v1.Seal("secret")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := v2.Open(sealed); err == nil {
		t.Fatal("Open with wrong key should fail")
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	key, _ := GenerateKey()
	v, err := New(key)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, input := range []string{"", "not-base64!!", "c2hvcnQ="} {
		if _, err := v.Open(input); err == nil {
			t.Fatalf("Open(%q) should fail", input)
		}
	}
}

func TestNewRejectsBadKeys(t *testing.T) {
	for _, key := range []string{"", "not-base64!!", "c2hvcnQ="} {
		if _, err := New(key); err == nil {
			t.Fatalf("New(%q) should fail", key)
		}
	}
}

func TestMask(t *testing.T) {
	if got := Mask("abcd1234efgh5678"); got != "abcd...5678" {
		t.Fatalf("Mask = %q", got)
	}
	if got := Mask("short"); got != "********" {
		t.Fatalf("Mask of short secret = %q", got)
	}
	if strings.Contains(Mask("abcdefghijklmnop"), "efghijkl") {
		t.Fatal("Mask leaks middle of secret")
	}
}
