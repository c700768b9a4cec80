package store

import (
	"fmt"
	"time"

	"voxel-server/internal/domain"
	"voxel-server/pkg/dungeon"
	"voxel-server/pkg/logger"
	"voxel-server/pkg/utils"

	"github.com/sirupsen/logrus"
)

// Радиусы для коллизий.
const (
	enemyRadius  = 1.0
	bossRadius   = 2.0
	playerRadius = 0.8
)

// Store - авторитетный in-memory реестр сущностей одного инстанса.
// НЕ потокобезопасен сам по себе: все вызовы сериализуются актором
// оркестратора (один цикл на инстанс), это и есть граница синхронизации.
type Store struct {
	players     map[string]*domain.Player
	enemies     map[string]*domain.Enemy
	projectiles map[string]*domain.Projectile
	lootDrops   map[string]*domain.LootDrop

	log *logrus.Entry
}

// NewEmpty создает стор без сущностей (в основном для тестов).
func NewEmpty() *Store {
	return &Store{
		players:     make(map[string]*domain.Player),
		enemies:     make(map[string]*domain.Enemy),
		projectiles: make(map[string]*domain.Projectile),
		lootDrops:   make(map[string]*domain.LootDrop),
		log:         logger.Component("entity_store"),
	}
}

// New строит стор по сгенерированному подземелью: шаблоны врагов комнат
// разворачиваются в живых врагов с абсолютными позициями
// (origin комнаты + локальное смещение шаблона).
func New(d *dungeon.Dungeon) *Store {
	s := NewEmpty()

	for _, layer := range d.Layers {
		for _, room := range layer.Rooms {
			for _, tmpl := range room.Enemies {
				radius := enemyRadius
				if tmpl.Type == domain.EnemyTypeBoss {
					radius = bossRadius
				}

				enemy := &domain.Enemy{
					ID:           utils.PrefixedID("enemy_"),
					Name:         tmpl.Name,
					Type:         tmpl.Type,
					Health:       tmpl.Health,
					MaxHealth:    tmpl.Health,
					Damage:       tmpl.Damage,
					Speed:        tmpl.Speed,
					Radius:       radius,
					Position:     room.Position.Add(tmpl.Position),
					BehaviorType: tmpl.Behavior,
					Abilities:    tmpl.Abilities,
					Phases:       tmpl.Phases,
					LayerIndex:   layer.Index,
					RoomIndex:    room.Index,
				}
				s.enemies[enemy.ID] = enemy
			}
		}
	}

	s.log.WithField("enemies", len(s.enemies)).Debug("Entity store seeded from dungeon")
	return s
}

// --- ИГРОКИ ---

func (s *Store) AddPlayer(p *domain.Player) {
	s.players[p.ID] = p
}

func (s *Store) RemovePlayer(characterID string) {
	delete(s.players, characterID)
}

func (s *Store) Player(characterID string) (*domain.Player, bool) {
	p, ok := s.players[characterID]
	return p, ok
}

func (s *Store) Players() []*domain.Player {
	out := make([]*domain.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	return out
}

func (s *Store) PlayerCount() int {
	return len(s.players)
}

func (s *Store) UpdatePlayerPosition(characterID string, pos, rot domain.Vec3) error {
	p, ok := s.players[characterID]
	if !ok {
		return fmt.Errorf("%w: player %s", domain.ErrNotFound, characterID)
	}
	p.Position = pos
	p.Rotation = rot
	return nil
}

// UpdatePlayerHealth сдвигает здоровье на delta с зажимом в [0, max]
// и возвращает новое значение. Health<=0 сигнализирует поражение,
// но НЕ удаляет игрока - это решение оркестратора.
func (s *Store) UpdatePlayerHealth(characterID string, delta int) (int, error) {
	p, ok := s.players[characterID]
	if !ok {
		return 0, fmt.Errorf("%w: player %s", domain.ErrNotFound, characterID)
	}
	p.Health = clamp(p.Health+delta, 0, p.MaxHealth)
	return p.Health, nil
}

func (s *Store) UpdatePlayerEnergy(characterID string, delta int) (int, error) {
	p, ok := s.players[characterID]
	if !ok {
		return 0, fmt.Errorf("%w: player %s", domain.ErrNotFound, characterID)
	}
	p.Energy = clamp(p.Energy+delta, 0, p.MaxEnergy)
	return p.Energy, nil
}

// FlaskResult - итог применения фляги.
type FlaskResult struct {
	Type        string `json:"type"`
	Restored    int    `json:"restored"`
	NewValue    int    `json:"newValue"`
	ChargesLeft int    `json:"chargesLeft"`
}

// UseFlask применяет флягу: восстановление floor(30*(1+0.5*(tier-1))),
// заряд списывается. Без зарядов - ErrExhausted, состояние не меняется.
func (s *Store) UseFlask(characterID, flaskType string) (*FlaskResult, error) {
	p, ok := s.players[characterID]
	if !ok {
		return nil, fmt.Errorf("%w: player %s", domain.ErrNotFound, characterID)
	}
	if flaskType != domain.FlaskHealth && flaskType != domain.FlaskEnergy {
		return nil, fmt.Errorf("%w: unknown flask type %q", domain.ErrValidation, flaskType)
	}

	flask, ok := p.Flasks[flaskType]
	if !ok {
		return nil, fmt.Errorf("%w: player has no %s flask", domain.ErrNotFound, flaskType)
	}
	if flask.Charges <= 0 {
		return nil, fmt.Errorf("%w: no charges left in %s flask", domain.ErrExhausted, flaskType)
	}

	restore := int(30 * (1 + 0.5*float64(flask.Tier-1)))
	flask.Charges--

	result := &FlaskResult{Type: flaskType, Restored: restore, ChargesLeft: flask.Charges}
	if flaskType == domain.FlaskHealth {
		p.Health = clamp(p.Health+restore, 0, p.MaxHealth)
		result.NewValue = p.Health
	} else {
		p.Energy = clamp(p.Energy+restore, 0, p.MaxEnergy)
		result.NewValue = p.Energy
	}
	return result, nil
}

// --- ВРАГИ ---

// AddEnemy регистрирует врага вручную (спавн по ходу игры, тесты).
func (s *Store) AddEnemy(e *domain.Enemy) {
	if e.ID == "" {
		e.ID = utils.PrefixedID("enemy_")
	}
	if e.Radius == 0 {
		e.Radius = enemyRadius
	}
	s.enemies[e.ID] = e
}

func (s *Store) Enemy(enemyID string) (*domain.Enemy, bool) {
	e, ok := s.enemies[enemyID]
	return e, ok
}

func (s *Store) Enemies() []*domain.Enemy {
	out := make([]*domain.Enemy, 0, len(s.enemies))
	for _, e := range s.enemies {
		out = append(out, e)
	}
	return out
}

// RemoveEnemy удаляет врага. Повторное удаление - безвредный no-op.
func (s *Store) RemoveEnemy(enemyID string) {
	delete(s.enemies, enemyID)
}

// EnemyHealthResult - итог изменения здоровья врага.
type EnemyHealthResult struct {
	EnemyID       string `json:"enemyId"`
	CurrentHealth int    `json:"currentHealth"`
	MaxHealth     int    `json:"maxHealth"`
	Change        int    `json:"change"`
	Killed        bool   `json:"killed"`
}

// UpdateEnemyHealth сдвигает здоровье врага. Health никогда не уходит
// ниже нуля; Killed=true при пересечении нуля И при каждом повторном
// вызове по уже мертвому врагу (идемпотентный сигнал без побочных
// эффектов - гонка двойного убийства безвредна).
func (s *Store) UpdateEnemyHealth(enemyID string, delta int) (*EnemyHealthResult, error) {
	e, ok := s.enemies[enemyID]
	if !ok {
		return nil, fmt.Errorf("%w: enemy %s", domain.ErrNotFound, enemyID)
	}

	if e.Health <= 0 {
		// Уже мертв: повторный удар ничего не меняет.
		return &EnemyHealthResult{
			EnemyID:       enemyID,
			CurrentHealth: 0,
			MaxHealth:     e.MaxHealth,
			Change:        0,
			Killed:        true,
		}, nil
	}

	before := e.Health
	e.Health = clamp(e.Health+delta, 0, e.MaxHealth)

	return &EnemyHealthResult{
		EnemyID:       enemyID,
		CurrentHealth: e.Health,
		MaxHealth:     e.MaxHealth,
		Change:        e.Health - before,
		Killed:        e.Health <= 0,
	}, nil
}

// --- СНАРЯДЫ ---

func (s *Store) AddProjectile(p *domain.Projectile) {
	if p.ID == "" {
		p.ID = utils.PrefixedID("proj_")
	}
	if p.Created.IsZero() {
		p.Created = time.Now()
	}
	p.Direction = p.Direction.Normalize()
	s.projectiles[p.ID] = p
}

func (s *Store) RemoveProjectile(projectileID string) {
	delete(s.projectiles, projectileID)
}

func (s *Store) Projectiles() []*domain.Projectile {
	out := make([]*domain.Projectile, 0, len(s.projectiles))
	for _, p := range s.projectiles {
		out = append(out, p)
	}
	return out
}

// --- ЛУТ ---

func (s *Store) AddLootDrop(pos domain.Vec3, items []domain.Item) *domain.LootDrop {
	drop := &domain.LootDrop{
		ID:       utils.PrefixedID("drop_"),
		Position: pos,
		Items:    items,
		Created:  time.Now(),
	}
	s.lootDrops[drop.ID] = drop
	return drop
}

func (s *Store) LootDrops() []*domain.LootDrop {
	out := make([]*domain.LootDrop, 0, len(s.lootDrops))
	for _, d := range s.lootDrops {
		out = append(out, d)
	}
	return out
}

// CollectLoot переносит предметы дропа в инвентарь игрока и удаляет дроп.
func (s *Store) CollectLoot(dropID, characterID string) ([]domain.Item, error) {
	drop, ok := s.lootDrops[dropID]
	if !ok {
		return nil, fmt.Errorf("%w: loot drop %s", domain.ErrNotFound, dropID)
	}
	p, ok := s.players[characterID]
	if !ok {
		return nil, fmt.Errorf("%w: player %s", domain.ErrNotFound, characterID)
	}

	p.Inventory = append(p.Inventory, drop.Items...)
	delete(s.lootDrops, dropID)
	return drop.Items, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
