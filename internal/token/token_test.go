package token

import (
	"errors"
	"testing"
	"time"

	"voxel-server/internal/domain"
)

func TestIssueAndVerify(t *testing.T) {
	s := NewSigner("test-secret", time.Minute)

	signed, err := s.Issue("inst_1", "party_1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := s.Verify(signed)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.InstanceID != "inst_1" || claims.PartyID != "party_1" {
		t.Errorf("claims mismatch: %+v", claims)
	}
}

func TestExpiredToken(t *testing.T) {
	s := NewSigner("test-secret", -time.Minute) // уже истек

	signed, err := s.Issue("inst_1", "party_1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := s.Verify(signed); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for expired token, got %v", err)
	}
}

func TestWrongSecret(t *testing.T) {
	good := NewSigner("secret-a", time.Minute)
	evil := NewSigner("secret-b", time.Minute)

	signed, _ := good.Issue("inst_1", "party_1")

	if _, err := evil.Verify(signed); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for foreign signature, got %v", err)
	}
}

func TestInstanceMismatch(t *testing.T) {
	s := NewSigner("test-secret", time.Minute)

	signed, _ := s.Issue("inst_1", "party_1")

	if _, err := s.VerifyFor(signed, "inst_2"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for instance mismatch, got %v", err)
	}
	if _, err := s.VerifyFor(signed, "inst_1"); err != nil {
		t.Errorf("matching instance rejected: %v", err)
	}
}

func TestGarbageToken(t *testing.T) {
	s := NewSigner("test-secret", time.Minute)

	if _, err := s.Verify("not.a.token"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for garbage, got %v", err)
	}
}
