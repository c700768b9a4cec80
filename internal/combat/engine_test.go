package combat

import (
	"errors"
	"testing"

	"voxel-server/internal/domain"
	"voxel-server/internal/store"
	"voxel-server/pkg/logger"
)

func init() {
	logger.Init()
}

func testSetup() (*store.Store, *Engine, *domain.Player) {
	s := store.NewEmpty()
	e := NewEngine(s, DefaultAbilityCatalog())

	player := &domain.Player{
		ID: "c1", Name: "Боец", Class: "warrior", Level: 5,
		Health: 100, MaxHealth: 100,
		Energy: 50, MaxEnergy: 50,
	}
	s.AddPlayer(player)
	return s, e, player
}

func addEnemy(s *store.Store, id string, pos domain.Vec3, health int) *domain.Enemy {
	enemy := &domain.Enemy{
		ID: id, Name: "Болванчик", Type: domain.EnemyTypeNormal,
		Health: health, MaxHealth: health, Radius: 1,
		Position: pos,
	}
	s.AddEnemy(enemy)
	return enemy
}

func TestMeleeBoundary(t *testing.T) {
	s, e, _ := testSetup()

	// Ровно 2.5 - попадание (граница включается), 2.5001 - промах.
	addEnemy(s, "near", domain.Vec3{X: 2.5}, 100)
	addEnemy(s, "far", domain.Vec3{X: 2.5001}, 100)

	results, err := e.ProcessPlayerAttack("c1", AttackInput{Type: AttackMelee})
	if err != nil {
		t.Fatalf("attack failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (only the enemy at exactly 2.5)", len(results))
	}
	if results[0].TargetID != "near" {
		t.Errorf("hit %s, want near", results[0].TargetID)
	}
	// Урон: 10 + 5*2 = 20.
	if results[0].Damage != 20 {
		t.Errorf("damage = %d, want 20", results[0].Damage)
	}
}

func TestMeleeHitsAllInRadius(t *testing.T) {
	s, e, _ := testSetup()

	addEnemy(s, "a", domain.Vec3{X: 1}, 100)
	addEnemy(s, "b", domain.Vec3{Z: -2}, 100)
	addEnemy(s, "c", domain.Vec3{X: 10}, 100)

	results, _ := e.ProcessPlayerAttack("c1", AttackInput{Type: AttackMelee})
	if len(results) != 2 {
		t.Errorf("got %d results, want 2 (enemy at X=10 is out of range)", len(results))
	}
}

func TestRangedConeSelection(t *testing.T) {
	s, e, _ := testSetup()

	addEnemy(s, "behind", domain.Vec3{X: -5}, 100)   // за спиной
	addEnemy(s, "far", domain.Vec3{X: 25}, 100)       // дальше 20
	addEnemy(s, "offside", domain.Vec3{X: 10, Z: 5}, 100) // перпендикуляр > радиуса
	addEnemy(s, "mid", domain.Vec3{X: 12}, 100)
	addEnemy(s, "close", domain.Vec3{X: 6, Z: 0.5}, 100) // в конусе, ближе

	results, err := e.ProcessPlayerAttack("c1", AttackInput{
		Type:      AttackRanged,
		Direction: domain.Vec3{X: 1},
	})
	if err != nil {
		t.Fatalf("attack failed: %v", err)
	}

	// Побеждает ближайший выживший кандидат.
	if len(results) != 1 || results[0].TargetID != "close" {
		t.Fatalf("expected single hit on close, got %+v", results)
	}
}

func TestRangedClientTargetsRevalidated(t *testing.T) {
	s, e, _ := testSetup()

	addEnemy(s, "legit", domain.Vec3{X: 10}, 100)
	addEnemy(s, "cheat", domain.Vec3{X: -10}, 100) // за спиной

	results, err := e.ProcessPlayerAttack("c1", AttackInput{
		Type:      AttackRanged,
		Direction: domain.Vec3{X: 1},
		TargetIDs: []string{"legit", "cheat", "ghost"},
	})
	if err != nil {
		t.Fatalf("attack failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	byTarget := map[string]DamageResult{}
	for _, r := range results {
		byTarget[r.TargetID] = r
	}

	if byTarget["legit"].Error != "" || byTarget["legit"].Damage != 20 {
		t.Errorf("legit target should take damage: %+v", byTarget["legit"])
	}
	// Заявленное клиентом попадание за спину отклоняется сервером.
	if byTarget["cheat"].Error == "" {
		t.Error("behind-the-back client target was not rejected")
	}
	if byTarget["ghost"].Error == "" {
		t.Error("missing client target was not rejected")
	}

	cheat, _ := s.Enemy("cheat")
	if cheat.Health != 100 {
		t.Errorf("rejected target still took damage: %d", cheat.Health)
	}
}

func TestAbilityNotEnoughEnergy(t *testing.T) {
	s, e, player := testSetup()
	player.Energy = 20
	addEnemy(s, "a", domain.Vec3{X: 2}, 100)

	// whirlwind стоит 20 - хватает впритык; поднимем планку искусственно:
	// warrior fireball недоступен, возьмем способность дороже энергии.
	results, err := e.ProcessAbilityUse("c1", AbilityInput{AbilityID: "crushing_blow", Direction: domain.Vec3{X: 1}})
	if err != nil {
		t.Fatalf("ability failed: %v", err)
	}
	// crushing_blow стоит 15 - должен пройти. Теперь опустошим энергию.
	if len(results) == 0 || results[0].Error != "" {
		t.Fatalf("expected successful cast, got %+v", results)
	}

	player.Energy = 10
	results, err = e.ProcessAbilityUse("c1", AbilityInput{AbilityID: "crushing_blow", Direction: domain.Vec3{X: 1}})
	if err != nil {
		t.Fatalf("ability failed: %v", err)
	}
	if len(results) != 1 || results[0].Error != "Not enough energy" {
		t.Fatalf("expected Not enough energy result, got %+v", results)
	}
	if player.Energy != 10 {
		t.Errorf("energy mutated on failed cast: %d, want 10", player.Energy)
	}
}

func TestAbilityEnergyExactCheck(t *testing.T) {
	s, e, player := testSetup()
	_ = s

	// Игрок с энергией 20 пытается применить способность за 25.
	player.Energy = 20
	player.Class = "mage"

	results, err := e.ProcessAbilityUse("c1", AbilityInput{AbilityID: "fireball", Direction: domain.Vec3{X: 1}})
	if err != nil {
		t.Fatalf("ability failed: %v", err)
	}
	if len(results) != 1 || results[0].Error != "Not enough energy" {
		t.Fatalf("expected [{error: Not enough energy}], got %+v", results)
	}
	if player.Energy != 20 {
		t.Errorf("energy changed: %d, want unchanged 20", player.Energy)
	}
}

func TestAreaDamageAbility(t *testing.T) {
	s, e, player := testSetup()
	player.Class = "mage"

	addEnemy(s, "in1", domain.Vec3{X: 10, Z: 1}, 200)
	addEnemy(s, "in2", domain.Vec3{X: 9}, 200)
	addEnemy(s, "out", domain.Vec3{X: 30}, 200)

	center := domain.Vec3{X: 10}
	results, err := e.ProcessAbilityUse("c1", AbilityInput{
		AbilityID:      "fireball",
		TargetPosition: &center,
	})
	if err != nil {
		t.Fatalf("ability failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("fireball hit %d enemies, want 2", len(results))
	}
	// Урон: 30 + 5*2 = 40.
	for _, r := range results {
		if r.Amount != 40 {
			t.Errorf("ability damage %d, want 40", r.Amount)
		}
	}

	if player.Energy != 25 {
		t.Errorf("energy after fireball = %d, want 25", player.Energy)
	}
}

func TestHealingAbility(t *testing.T) {
	s, e, player := testSetup()
	player.Class = "priest"
	player.Health = 50

	ally := &domain.Player{
		ID: "c2", Class: "warrior", Level: 1,
		Health: 30, MaxHealth: 90,
		Energy: 10, MaxEnergy: 10,
	}
	s.AddPlayer(ally)

	results, err := e.ProcessAbilityUse("c1", AbilityInput{AbilityID: "healing_light"})
	if err != nil {
		t.Fatalf("ability failed: %v", err)
	}

	// Лечение: 30 + 5*2 = 40, себе и союзнику.
	if len(results) != 2 {
		t.Fatalf("got %d heal results, want 2", len(results))
	}
	if player.Health != 90 {
		t.Errorf("caster health %d, want 90", player.Health)
	}
	if ally.Health != 70 {
		t.Errorf("ally health %d, want 70", ally.Health)
	}
}

func TestBuffProducesDescriptorOnly(t *testing.T) {
	s, e, _ := testSetup()

	ally := &domain.Player{ID: "c2", Class: "mage", Health: 50, MaxHealth: 50}
	s.AddPlayer(ally)

	results, err := e.ProcessAbilityUse("c1", AbilityInput{AbilityID: "battle_shout"})
	if err != nil {
		t.Fatalf("ability failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d buff descriptors, want 2 (self + ally)", len(results))
	}
	for _, r := range results {
		if r.Type != AbilityBuff || r.BuffType != "damage" || r.Duration != 10 {
			t.Errorf("bad buff descriptor: %+v", r)
		}
	}
	// Дескриптор ничего не мутирует.
	if ally.Health != 50 {
		t.Errorf("buff mutated ally health: %d", ally.Health)
	}
}

func TestWrongClassAbility(t *testing.T) {
	_, e, _ := testSetup()

	_, err := e.ProcessAbilityUse("c1", AbilityInput{AbilityID: "fireball"})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for wrong class, got %v", err)
	}
}

func TestDoubleKillReportsKilledTwice(t *testing.T) {
	s, e, _ := testSetup()

	enemy := addEnemy(s, "victim", domain.Vec3{X: 1}, 15)

	// Две "одновременные" атаки (в актор-цикле они сериализуются):
	// обе сообщают killed=true, но здоровье не уходит в минус,
	// а повторное удаление - no-op.
	r1, _ := e.ProcessPlayerAttack("c1", AttackInput{Type: AttackMelee})
	r2, _ := e.ProcessPlayerAttack("c1", AttackInput{Type: AttackMelee})

	if len(r1) != 1 || !r1[0].Killed {
		t.Fatalf("first attack: %+v", r1)
	}
	if len(r2) != 1 || !r2[0].Killed {
		t.Fatalf("second attack: %+v", r2)
	}
	if r2[0].Damage != 20 || r2[0].CurrentHealth != 0 {
		t.Errorf("second kill should be a harmless duplicate: %+v", r2[0])
	}
	if enemy.Health < 0 {
		t.Errorf("enemy health went negative: %d", enemy.Health)
	}
}
