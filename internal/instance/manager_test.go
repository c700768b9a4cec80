package instance

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voxel-server/internal/domain"
	"voxel-server/internal/token"
)

func testSigner() *token.Signer {
	return token.NewSigner("test-secret", time.Minute)
}

func testParty() *domain.Party {
	return &domain.Party{
		ID: "p1", Leader: "c1", Members: []string{"c1", "c2"},
		MaxSize: 4, Status: domain.PartyForming,
	}
}

func TestAllocateHandshake(t *testing.T) {
	signer := testSigner()

	var got domain.InstanceRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/initialize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad handshake body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	m := NewManager([]string{addr}, signer)

	record, err := m.Allocate(testParty(), "forest", 3, 2)
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}

	if record.Status != domain.InstanceReady {
		t.Errorf("status = %s, want ready", record.Status)
	}
	if record.ServerURL != "ws://"+addr+"/ws" {
		t.Errorf("serverUrl = %s", record.ServerURL)
	}
	if got.ID != record.ID || got.BiomeID != "forest" || len(got.Members) != 2 {
		t.Errorf("handshake record mismatch: %+v", got)
	}

	// Токен подписан на этот инстанс и эту пати.
	claims, err := signer.VerifyFor(record.Token, record.ID)
	if err != nil {
		t.Fatalf("token rejected: %v", err)
	}
	if claims.PartyID != "p1" {
		t.Errorf("partyId in token = %s", claims.PartyID)
	}

	if m.Active() != 1 {
		t.Errorf("active = %d, want 1", m.Active())
	}
}

func TestAllocateRollbackOnUnreachableServer(t *testing.T) {
	// Сервер поднимаем и сразу гасим: порт гарантированно мертв.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	m := NewManager([]string{addr}, testSigner())

	_, err := m.Allocate(testParty(), "forest", 3, 2)
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if m.Active() != 0 {
		t.Errorf("allocation not rolled back: active = %d", m.Active())
	}
}

func TestAllocateRollbackOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewManager([]string{strings.TrimPrefix(srv.URL, "http://")}, testSigner())

	if _, err := m.Allocate(testParty(), "forest", 3, 2); !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if m.Active() != 0 {
		t.Errorf("allocation not rolled back: active = %d", m.Active())
	}
}

func TestReleaseNotifiesHub(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewManager([]string{strings.TrimPrefix(srv.URL, "http://")}, testSigner())

	var returned []string
	m.OnReleased(func(partyID string) { returned = append(returned, partyID) })

	record, err := m.Allocate(testParty(), "forest", 3, 2)
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}

	m.Release(record.ID)
	if m.Active() != 0 {
		t.Errorf("active = %d after release", m.Active())
	}
	if len(returned) != 1 || returned[0] != "p1" {
		t.Errorf("onReleased calls: %v", returned)
	}

	// Повторный Release - no-op без повторного колбека.
	m.Release(record.ID)
	if len(returned) != 1 {
		t.Errorf("double release fired callback twice: %v", returned)
	}
}

func TestAllocateNoServers(t *testing.T) {
	m := NewManager(nil, testSigner())

	if _, err := m.Allocate(testParty(), "forest", 3, 2); !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable with no servers, got %v", err)
	}
}
