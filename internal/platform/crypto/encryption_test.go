package crypto

import (
	"errors"
	"strings"
	"testing"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestSealAndResolve(t *testing.T) {
	sealer, err := New(testKey)
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	sealed, err := sealer.Seal("odoo-api-key")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if !strings.HasPrefix(sealed, SealedPrefix) {
		t.Fatalf("expected sealed prefix, got %q", sealed)
	}
	plain, err := sealer.Resolve(sealed)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if plain != "odoo-api-key" {
		t.Fatalf("unexpected plain value %q", plain)
	}
}

func TestResolvePlainValuePassesThrough(t *testing.T) {
	sealer, err := New("")
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	plain, err := sealer.Resolve("plain-key")
	if err != nil || plain != "plain-key" {
		t.Fatalf("expected passthrough, got %q %v", plain, err)
	}
}

func TestResolveSealedWithoutKey(t *testing.T) {
	sealer, _ := New("")
	if _, err := sealer.Resolve(SealedPrefix + "AAAA"); !errors.Is(err, ErrKeyMissing) {
		t.Fatalf("expected ErrKeyMissing, got %v", err)
	}
}

func TestNewRejectsShortKey(t *testing.T) {
	if _, err := New("short"); err == nil {
		t.Fatal("expected error for short key")
	}
}
