package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"voxel-server/internal/domain"
	"voxel-server/pkg/logger"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// CharacterStore - файловое key-value хранилище персонажей: один YAML
// на персонажа, сквозная запись, кеш в памяти. Прогресс сохраняется
// best-effort: потеря последней записи допустима по контракту.
type CharacterStore struct {
	mu    sync.Mutex
	dir   string
	cache map[string]*domain.CharacterRecord
	log   *logrus.Entry
}

func NewCharacterStore(dir string) (*CharacterStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create character dir: %w", err)
	}
	return &CharacterStore{
		dir:   dir,
		cache: make(map[string]*domain.CharacterRecord),
		log:   logger.Component("character_store"),
	}, nil
}

// Load читает запись персонажа. Незнакомый ID получает стартовую
// запись (и файл): отдельной регистрации аккаунтов здесь нет.
func (s *CharacterStore) Load(characterID string) (*domain.CharacterRecord, error) {
	if err := validID(characterID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.cache[characterID]; ok {
		return rec, nil
	}

	data, err := os.ReadFile(s.path(characterID))
	if os.IsNotExist(err) {
		rec := starterRecord(characterID)
		if err := s.writeLocked(rec); err != nil {
			return nil, err
		}
		s.cache[characterID] = rec
		s.log.WithField("character", characterID).Info("New character created")
		return rec, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read character %s: %w", characterID, err)
	}

	var rec domain.CharacterRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse character %s: %w", characterID, err)
	}
	s.cache[characterID] = &rec
	return &rec, nil
}

// Save пишет запись сквозь кеш на диск.
func (s *CharacterStore) Save(rec *domain.CharacterRecord) error {
	if err := validID(rec.ID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeLocked(rec); err != nil {
		return err
	}
	s.cache[rec.ID] = rec
	return nil
}

func (s *CharacterStore) writeLocked(rec *domain.CharacterRecord) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal character %s: %w", rec.ID, err)
	}
	if err := os.WriteFile(s.path(rec.ID), data, 0644); err != nil {
		return fmt.Errorf("write character %s: %w", rec.ID, err)
	}
	return nil
}

func (s *CharacterStore) path(characterID string) string {
	return filepath.Join(s.dir, characterID+".yaml")
}

// validID закрывает path traversal через characterId.
func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\.`) {
		return fmt.Errorf("%w: bad character id %q", domain.ErrValidation, id)
	}
	return nil
}

// starterRecord - персонаж первого уровня со стандартными флягами.
func starterRecord(characterID string) *domain.CharacterRecord {
	return &domain.CharacterRecord{
		ID:        characterID,
		Name:      characterID,
		Class:     "warrior",
		Level:     1,
		MaxHealth: 100,
		MaxEnergy: 50,
		Flasks: map[string]*domain.Flask{
			domain.FlaskHealth: {Tier: 1, Charges: 3},
			domain.FlaskEnergy: {Tier: 1, Charges: 3},
		},
		Equipment: make(map[string]domain.Item),
	}
}
