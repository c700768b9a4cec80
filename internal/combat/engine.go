package combat

import (
	"fmt"
	"math"

	"voxel-server/internal/domain"
	"voxel-server/internal/store"
	"voxel-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// Боевые константы.
const (
	MeleeRange    = 2.5  // включительно: дистанция ровно 2.5 еще попадает
	RangedMaxDist = 20.0

	AttackMelee  = "melee"
	AttackRanged = "ranged"
)

// AttackInput - разобранный payload события player_attack.
type AttackInput struct {
	Type      string      `json:"type"`
	Direction domain.Vec3 `json:"direction"`
	TargetIDs []string    `json:"targetIds,omitempty"`
}

// DamageResult - итог по одной цели.
type DamageResult struct {
	TargetID      string `json:"targetId,omitempty"`
	Damage        int    `json:"damage,omitempty"`
	CurrentHealth int    `json:"currentHealth,omitempty"`
	MaxHealth     int    `json:"maxHealth,omitempty"`
	Killed        bool   `json:"killed,omitempty"`
	Error         string `json:"error,omitempty"`
}

// AbilityInput - разобранный payload события use_ability.
type AbilityInput struct {
	AbilityID      string       `json:"abilityId"`
	Direction      domain.Vec3  `json:"direction"`
	TargetPosition *domain.Vec3 `json:"targetPosition,omitempty"`
	TargetIDs      []string     `json:"targetIds,omitempty"`
}

// EffectResult - итог применения способности по одной цели.
// Для buff/debuff это только дескриптор: применение и снятие по таймеру -
// зона ответственности отсутствующего пока планировщика статус-эффектов.
type EffectResult struct {
	Type          string  `json:"type,omitempty"`
	TargetID      string  `json:"targetId,omitempty"`
	Amount        int     `json:"amount,omitempty"`
	CurrentHealth int     `json:"currentHealth,omitempty"`
	MaxHealth     int     `json:"maxHealth,omitempty"`
	Killed        bool    `json:"killed,omitempty"`
	BuffType      string  `json:"buffType,omitempty"`
	DebuffType    string  `json:"debuffType,omitempty"`
	Duration      float64 `json:"duration,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// Engine - разрешение боевых действий поверх Entity Store.
// Вызывается только из цикла оркестратора, поэтому без блокировок.
type Engine struct {
	store     *store.Store
	abilities AbilityCatalog
	log       *logrus.Entry
}

func NewEngine(s *store.Store, abilities AbilityCatalog) *Engine {
	return &Engine{
		store:     s,
		abilities: abilities,
		log:       logger.Component("combat"),
	}
}

// ProcessPlayerAttack разрешает обычную атаку.
// Базовый урон: 10 + уровень*2.
func (e *Engine) ProcessPlayerAttack(characterID string, in AttackInput) ([]DamageResult, error) {
	player, ok := e.store.Player(characterID)
	if !ok {
		return nil, fmt.Errorf("%w: player %s", domain.ErrNotFound, characterID)
	}

	damage := 10 + player.Level*2

	switch in.Type {
	case AttackMelee:
		return e.meleeAttack(player, damage), nil
	case AttackRanged:
		return e.rangedAttack(player, in, damage), nil
	default:
		return nil, fmt.Errorf("%w: unknown attack type %q", domain.ErrValidation, in.Type)
	}
}

// meleeAttack бьет всех врагов в радиусе MeleeRange (3D-евклидова
// дистанция, граница включается).
func (e *Engine) meleeAttack(player *domain.Player, damage int) []DamageResult {
	var results []DamageResult

	for _, enemy := range e.store.Enemies() {
		if player.Position.DistanceTo(enemy.Position) <= MeleeRange {
			results = append(results, e.applyDamage(enemy.ID, damage))
		}
	}
	return results
}

// rangedAttack разрешает дальнюю атаку. Если клиент прислал targetIds
// (результат его локального рейкаста), сервер все равно перепроверяет
// каждую цель геометрически - клиентским попаданиям больше не верим.
// Без targetIds: конусный тест, урон получает ближайший кандидат.
func (e *Engine) rangedAttack(player *domain.Player, in AttackInput, damage int) []DamageResult {
	dir := in.Direction.Normalize()
	if dir.Length() == 0 {
		return []DamageResult{{Error: "attack direction is required"}}
	}

	if len(in.TargetIDs) > 0 {
		var results []DamageResult
		for _, id := range in.TargetIDs {
			enemy, ok := e.store.Enemy(id)
			if !ok {
				results = append(results, DamageResult{TargetID: id, Error: "target not found"})
				continue
			}
			if !inCone(player.Position, dir, enemy) {
				e.log.WithFields(logrus.Fields{
					"player": player.ID,
					"target": id,
				}).Warn("Client-reported hit rejected by server-side cone check")
				results = append(results, DamageResult{TargetID: id, Error: "target not in line of fire"})
				continue
			}
			results = append(results, e.applyDamage(id, damage))
		}
		return results
	}

	target := e.closestInCone(player.Position, dir)
	if target == nil {
		return nil
	}
	return []DamageResult{e.applyDamage(target.ID, damage)}
}

// ProcessAbilityUse разрешает применение способности. Стоимость энергии
// списывается ДО эффекта; при нехватке возвращается результат с ошибкой
// и никакого эффекта не происходит.
func (e *Engine) ProcessAbilityUse(characterID string, in AbilityInput) ([]EffectResult, error) {
	player, ok := e.store.Player(characterID)
	if !ok {
		return nil, fmt.Errorf("%w: player %s", domain.ErrNotFound, characterID)
	}

	ability, ok := e.abilities.Get(in.AbilityID)
	if !ok {
		return nil, fmt.Errorf("%w: ability %s", domain.ErrNotFound, in.AbilityID)
	}
	if ability.Class != player.Class {
		return nil, fmt.Errorf("%w: ability %s is not available to class %s", domain.ErrUnauthorized, ability.ID, player.Class)
	}

	if player.Energy < ability.EnergyCost {
		return []EffectResult{{Error: "Not enough energy"}}, nil
	}
	if _, err := e.store.UpdatePlayerEnergy(characterID, -ability.EnergyCost); err != nil {
		return nil, err
	}

	switch ability.Type {
	case AbilityDamage:
		return e.damageAbility(player, ability, in), nil
	case AbilityHealing:
		return e.healingAbility(player, ability), nil
	case AbilityBuff, AbilityDebuff:
		return e.statusAbility(player, ability, in), nil
	default:
		return nil, fmt.Errorf("%w: ability %s has unknown type %q", domain.ErrValidation, ability.ID, ability.Type)
	}
}

func (e *Engine) damageAbility(player *domain.Player, ability Ability, in AbilityInput) []EffectResult {
	damage := ability.BaseDamage + player.Level*2

	// Area: радиус вокруг targetPosition либо вокруг кастера.
	if ability.Radius > 0 {
		center := player.Position
		if in.TargetPosition != nil {
			center = *in.TargetPosition
		}

		var results []EffectResult
		for _, enemy := range e.store.Enemies() {
			if center.DistanceTo(enemy.Position) <= ability.Radius {
				results = append(results, e.applyAbilityDamage(enemy.ID, damage))
			}
		}
		return results
	}

	// Одиночная цель: явный ID (с серверной перепроверкой конусом)
	// либо фоллбек на конусный поиск, идентичный дальней атаке.
	dir := in.Direction.Normalize()

	if len(in.TargetIDs) > 0 {
		var results []EffectResult
		for _, id := range in.TargetIDs {
			enemy, ok := e.store.Enemy(id)
			if !ok {
				results = append(results, EffectResult{TargetID: id, Error: "target not found"})
				continue
			}
			if dir.Length() > 0 && !inCone(player.Position, dir, enemy) {
				results = append(results, EffectResult{TargetID: id, Error: "target not in line of fire"})
				continue
			}
			results = append(results, e.applyAbilityDamage(id, damage))
		}
		return results
	}

	if dir.Length() == 0 {
		return []EffectResult{{Error: "ability direction is required"}}
	}
	target := e.closestInCone(player.Position, dir)
	if target == nil {
		return nil
	}
	return []EffectResult{e.applyAbilityDamage(target.ID, damage)}
}

// healingAbility: baseHeal + уровень*2, на себя и/или всех остальных
// игроков согласно флагам способности.
func (e *Engine) healingAbility(player *domain.Player, ability Ability) []EffectResult {
	heal := ability.BaseHeal + player.Level*2
	var results []EffectResult

	if ability.TargetSelf {
		health, err := e.store.UpdatePlayerHealth(player.ID, heal)
		if err == nil {
			results = append(results, EffectResult{
				Type: AbilityHealing, TargetID: player.ID, Amount: heal,
				CurrentHealth: health, MaxHealth: player.MaxHealth,
			})
		}
	}

	if ability.TargetAllies {
		for _, ally := range e.store.Players() {
			if ally.ID == player.ID {
				continue
			}
			health, err := e.store.UpdatePlayerHealth(ally.ID, heal)
			if err != nil {
				continue
			}
			results = append(results, EffectResult{
				Type: AbilityHealing, TargetID: ally.ID, Amount: heal,
				CurrentHealth: health, MaxHealth: ally.MaxHealth,
			})
		}
	}
	return results
}

// statusAbility только записывает дескрипторы эффектов. Серверного
// тикера, который снимал бы их по Duration, пока нет.
func (e *Engine) statusAbility(player *domain.Player, ability Ability, in AbilityInput) []EffectResult {
	var results []EffectResult

	if ability.Type == AbilityBuff {
		if ability.TargetSelf {
			results = append(results, EffectResult{
				Type: AbilityBuff, TargetID: player.ID,
				BuffType: ability.BuffType, Amount: ability.Amount, Duration: ability.Duration,
			})
		}
		if ability.TargetAllies {
			for _, ally := range e.store.Players() {
				if ally.ID == player.ID {
					continue
				}
				results = append(results, EffectResult{
					Type: AbilityBuff, TargetID: ally.ID,
					BuffType: ability.BuffType, Amount: ability.Amount, Duration: ability.Duration,
				})
			}
		}
		return results
	}

	// Дебафф: явная цель либо конусный поиск.
	var target *domain.Enemy
	if len(in.TargetIDs) > 0 {
		if enemy, ok := e.store.Enemy(in.TargetIDs[0]); ok {
			target = enemy
		}
	} else if dir := in.Direction.Normalize(); dir.Length() > 0 {
		target = e.closestInCone(player.Position, dir)
	}

	if target == nil {
		return []EffectResult{{Error: "no debuff target"}}
	}
	return []EffectResult{{
		Type: AbilityDebuff, TargetID: target.ID,
		DebuffType: ability.DebuffType, Amount: ability.Amount, Duration: ability.Duration,
	}}
}

// --- ГЕОМЕТРИЯ ---

// inCone: направленный тест. Цель за спиной (dot <= 0), дальше 20 юнитов
// или с перпендикулярным отклонением больше её радиуса - промах.
func inCone(origin, dir domain.Vec3, enemy *domain.Enemy) bool {
	to := enemy.Position.Sub(origin)
	dist := to.Length()
	if dist > RangedMaxDist {
		return false
	}

	proj := to.Dot(dir)
	if proj <= 0 {
		return false
	}

	perp := math.Sqrt(math.Max(0, dist*dist-proj*proj))
	return perp <= enemy.Radius
}

func (e *Engine) closestInCone(origin, dir domain.Vec3) *domain.Enemy {
	var best *domain.Enemy
	bestDist := math.MaxFloat64

	for _, enemy := range e.store.Enemies() {
		if !inCone(origin, dir, enemy) {
			continue
		}
		dist := origin.DistanceTo(enemy.Position)
		if dist < bestDist {
			bestDist = dist
			best = enemy
		}
	}
	return best
}

func (e *Engine) applyDamage(enemyID string, damage int) DamageResult {
	res, err := e.store.UpdateEnemyHealth(enemyID, -damage)
	if err != nil {
		return DamageResult{TargetID: enemyID, Error: "target not found"}
	}
	return DamageResult{
		TargetID:      enemyID,
		Damage:        damage,
		CurrentHealth: res.CurrentHealth,
		MaxHealth:     res.MaxHealth,
		Killed:        res.Killed,
	}
}

func (e *Engine) applyAbilityDamage(enemyID string, damage int) EffectResult {
	res, err := e.store.UpdateEnemyHealth(enemyID, -damage)
	if err != nil {
		return EffectResult{TargetID: enemyID, Error: "target not found"}
	}
	return EffectResult{
		Type:          AbilityDamage,
		TargetID:      enemyID,
		Amount:        damage,
		CurrentHealth: res.CurrentHealth,
		MaxHealth:     res.MaxHealth,
		Killed:        res.Killed,
	}
}
