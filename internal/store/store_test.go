package store

import (
	"errors"
	"testing"
	"time"

	"voxel-server/internal/domain"
	"voxel-server/pkg/dungeon"
	"voxel-server/pkg/logger"
)

func init() {
	logger.Init()
}

func testStore(t *testing.T) *Store {
	t.Helper()
	g := dungeon.NewGenerator(dungeon.DefaultCatalog())
	d, err := g.Generate("forest", 2, 2, 1234)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return New(d)
}

func testPlayer(id string) *domain.Player {
	return &domain.Player{
		ID: id, Name: "Тестер", Class: "warrior", Level: 3,
		Health: 100, MaxHealth: 100,
		Energy: 50, MaxEnergy: 50,
		Flasks: map[string]*domain.Flask{
			domain.FlaskHealth: {Tier: 2, Charges: 2},
			domain.FlaskEnergy: {Tier: 1, Charges: 0},
		},
		Equipment: map[string]domain.Item{},
	}
}

func TestSeededFromDungeon(t *testing.T) {
	s := testStore(t)

	if len(s.Enemies()) == 0 {
		t.Fatal("Store has no enemies after seeding from dungeon")
	}

	bosses := 0
	for _, e := range s.Enemies() {
		if e.Type == domain.EnemyTypeBoss {
			bosses++
			if e.Radius != bossRadius {
				t.Errorf("boss radius %f, want %f", e.Radius, bossRadius)
			}
		}
		if e.Health != e.MaxHealth {
			t.Errorf("enemy %s spawned damaged: %d/%d", e.ID, e.Health, e.MaxHealth)
		}
	}
	if bosses != 1 {
		t.Errorf("expected 1 boss in store, got %d", bosses)
	}
}

func TestPlayerHealthClamping(t *testing.T) {
	s := testStore(t)
	s.AddPlayer(testPlayer("c1"))

	if hp, _ := s.UpdatePlayerHealth("c1", -150); hp != 0 {
		t.Errorf("health after overkill = %d, want 0", hp)
	}
	if hp, _ := s.UpdatePlayerHealth("c1", 500); hp != 100 {
		t.Errorf("health after overheal = %d, want 100 (max)", hp)
	}

	if _, err := s.UpdatePlayerHealth("ghost", -1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing player, got %v", err)
	}
}

func TestEnemyKillIdempotent(t *testing.T) {
	s := testStore(t)
	enemy := s.Enemies()[0]

	// Добиваем врага с запасом.
	res, err := s.UpdateEnemyHealth(enemy.ID, -(enemy.MaxHealth + 1000))
	if err != nil {
		t.Fatalf("UpdateEnemyHealth failed: %v", err)
	}
	if !res.Killed {
		t.Error("Expected Killed=true on lethal damage")
	}
	if res.CurrentHealth != 0 {
		t.Errorf("health %d after lethal damage, must never go below 0", res.CurrentHealth)
	}

	// Повторный удар по трупу: Killed=true, но без побочных эффектов.
	res2, err := s.UpdateEnemyHealth(enemy.ID, -50)
	if err != nil {
		t.Fatalf("second hit failed: %v", err)
	}
	if !res2.Killed || res2.Change != 0 || res2.CurrentHealth != 0 {
		t.Errorf("post-mortem hit not idempotent: %+v", res2)
	}

	// Удаление дважды - no-op.
	s.RemoveEnemy(enemy.ID)
	s.RemoveEnemy(enemy.ID)
	if _, ok := s.Enemy(enemy.ID); ok {
		t.Error("Enemy still present after removal")
	}
}

func TestUseFlask(t *testing.T) {
	s := testStore(t)
	p := testPlayer("c1")
	p.Health = 40
	s.AddPlayer(p)

	// Тир 2: floor(30*1.5) = 45.
	res, err := s.UseFlask("c1", domain.FlaskHealth)
	if err != nil {
		t.Fatalf("UseFlask failed: %v", err)
	}
	if res.Restored != 45 {
		t.Errorf("tier 2 restore = %d, want 45", res.Restored)
	}
	if res.NewValue != 85 || p.Health != 85 {
		t.Errorf("health after flask = %d, want 85", p.Health)
	}
	if res.ChargesLeft != 1 {
		t.Errorf("charges left = %d, want 1", res.ChargesLeft)
	}

	// Энергетическая фляга без зарядов: отказ, никаких мутаций.
	energyBefore := p.Energy
	if _, err := s.UseFlask("c1", domain.FlaskEnergy); !errors.Is(err, domain.ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
	if p.Energy != energyBefore {
		t.Errorf("energy mutated on failed flask use: %d -> %d", energyBefore, p.Energy)
	}

	if _, err := s.UseFlask("c1", "mana"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for unknown flask type, got %v", err)
	}
}

func TestCollectLoot(t *testing.T) {
	s := testStore(t)
	s.AddPlayer(testPlayer("c1"))

	items := []domain.Item{{ID: "i1", Name: "Простой Клинок"}}
	drop := s.AddLootDrop(domain.Vec3{X: 1}, items)

	got, err := s.CollectLoot(drop.ID, "c1")
	if err != nil {
		t.Fatalf("CollectLoot failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("collected %d items, want 1", len(got))
	}

	p, _ := s.Player("c1")
	if len(p.Inventory) != 1 || p.Inventory[0].ID != "i1" {
		t.Errorf("item not transferred to inventory: %+v", p.Inventory)
	}

	// Дроп удален: повторный сбор - NotFound.
	if _, err := s.CollectLoot(drop.ID, "c1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on double collect, got %v", err)
	}
}

func TestProjectileAdvanceAndExpiry(t *testing.T) {
	s := testStore(t)

	p := &domain.Projectile{
		OwnerID:   "c1",
		Type:      "arrow",
		Position:  domain.Vec3{X: 1000, Y: 1000, Z: 1000}, // вдали от всех врагов
		Direction: domain.Vec3{X: 1},
		Speed:     10,
		Damage:    5,
		Radius:    0.5,
	}
	s.AddProjectile(p)

	s.UpdateEntities(0.1)
	if p.Position.X != 1001 {
		t.Errorf("projectile X = %f, want 1001 (advance dir*speed*dt)", p.Position.X)
	}

	// Старше 5 секунд - удаляется.
	p.Created = time.Now().Add(-6 * time.Second)
	s.UpdateEntities(0.1)
	if len(s.Projectiles()) != 0 {
		t.Error("Expired projectile not removed")
	}
}

func TestProjectileHitsEnemy(t *testing.T) {
	s := testStore(t)
	enemy := s.Enemies()[0]

	// Оставляем единственного врага, чтобы попадание было однозначным.
	for _, e := range s.Enemies() {
		if e.ID != enemy.ID {
			s.RemoveEnemy(e.ID)
		}
	}

	p := &domain.Projectile{
		OwnerID:   "c1",
		Type:      "arrow",
		Position:  enemy.Position.Add(domain.Vec3{X: -1.2}),
		Direction: domain.Vec3{X: 1},
		Speed:     1,
		Damage:    7,
		Radius:    0.5,
	}
	s.AddProjectile(p)

	hits := s.UpdateEntities(0.1)
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	hit := hits[0]
	if hit.TargetKind != "enemy" || hit.TargetID != enemy.ID {
		t.Errorf("unexpected hit target: %+v", hit)
	}
	if hit.Enemy == nil || hit.Enemy.Change != -7 {
		t.Errorf("enemy health change = %+v, want -7", hit.Enemy)
	}
	if len(s.Projectiles()) != 0 {
		t.Error("Projectile not removed after hit")
	}
}

func TestEnemyProjectileHitsPlayer(t *testing.T) {
	s := testStore(t)
	enemy := s.Enemies()[0]

	pl := testPlayer("c1")
	pl.Position = domain.Vec3{X: 500, Y: 0, Z: 500} // подальше от врагов
	s.AddPlayer(pl)

	p := &domain.Projectile{
		OwnerID:   enemy.ID,
		Type:      "spit",
		Position:  pl.Position.Add(domain.Vec3{X: -1}),
		Direction: domain.Vec3{X: 1},
		Speed:     1,
		Damage:    12,
		Radius:    0.5,
	}
	s.AddProjectile(p)

	hits := s.UpdateEntities(0.1)
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].TargetKind != "player" || hits[0].TargetID != "c1" {
		t.Errorf("unexpected hit: %+v", hits[0])
	}
	if pl.Health != 88 {
		t.Errorf("player health %d after 12 damage, want 88", pl.Health)
	}
}
