package storage

import (
	"errors"
	"testing"

	"voxel-server/internal/domain"
	"voxel-server/pkg/logger"
)

func init() {
	logger.Init()
}

func TestLoadCreatesStarter(t *testing.T) {
	s, err := NewCharacterStore(t.TempDir())
	if err != nil {
		t.Fatalf("store init failed: %v", err)
	}

	rec, err := s.Load("hero1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if rec.Level != 1 || rec.Class != "warrior" {
		t.Errorf("bad starter: %+v", rec)
	}
	if rec.Flasks[domain.FlaskHealth].Charges != 3 {
		t.Errorf("starter flasks: %+v", rec.Flasks)
	}
}

func TestSaveRoundtrip(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewCharacterStore(dir)

	rec, _ := s.Load("hero1")
	rec.Level = 7
	rec.Inventory = append(rec.Inventory, domain.Item{ID: "item_1", Name: "Редкий Клинок", Rarity: domain.RarityRare})
	if err := s.Save(rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Свежий стор читает с диска, минуя кеш первого.
	s2, _ := NewCharacterStore(dir)
	loaded, err := s2.Load("hero1")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Level != 7 || len(loaded.Inventory) != 1 {
		t.Errorf("roundtrip lost data: %+v", loaded)
	}
	if loaded.Inventory[0].Name != "Редкий Клинок" {
		t.Errorf("item name mangled: %q", loaded.Inventory[0].Name)
	}
}

func TestRejectsTraversalIDs(t *testing.T) {
	s, _ := NewCharacterStore(t.TempDir())

	for _, id := range []string{"", "../etc/passwd", `a\b`, "x.y"} {
		if _, err := s.Load(id); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("id %q: expected ErrValidation, got %v", id, err)
		}
	}
}
