package loot

import (
	"fmt"

	"voxel-server/internal/domain"
	"voxel-server/pkg/rng"
	"voxel-server/pkg/utils"
)

// Генератор лута: чистая функция от дескриптора врага и источника
// случайности. Вызывается оркестратором инстанса при смерти врага,
// по снапшоту врага ДО его удаления из Entity Store.

// rarityBonus - надбавка к уровню предмета за редкость.
var rarityBonus = map[string]int{
	domain.RarityCommon:    0,
	domain.RarityUncommon:  1,
	domain.RarityRare:      2,
	domain.RarityEpic:      4,
	domain.RarityLegendary: 6,
}

// secondaryStatCount - количество вторичных статов по редкости.
var secondaryStatCount = map[string]int{
	domain.RarityCommon:    0,
	domain.RarityUncommon:  1,
	domain.RarityRare:      2,
	domain.RarityEpic:      3,
	domain.RarityLegendary: 4,
}

// Фиксированный пул вторичных статов. Выбор без возвращения.
var secondaryStatPool = []string{"strength", "vitality", "agility", "wisdom", "fortune", "haste"}

// rarityThreshold - кумулятивные пороги редкости по типу врага.
type rarityThreshold struct {
	rarity string
	upTo   float64
}

var rarityTables = map[string][]rarityThreshold{
	domain.EnemyTypeBoss: {
		{domain.RarityLegendary, 0.10},
		{domain.RarityEpic, 0.40},
		{domain.RarityRare, 0.80},
		{domain.RarityUncommon, 1.00},
	},
	domain.EnemyTypeElite: {
		{domain.RarityLegendary, 0.05},
		{domain.RarityEpic, 0.20},
		{domain.RarityRare, 0.50},
		{domain.RarityUncommon, 1.00},
	},
	domain.EnemyTypeNormal: {
		{domain.RarityLegendary, 0.01},
		{domain.RarityEpic, 0.05},
		{domain.RarityRare, 0.20},
		{domain.RarityUncommon, 0.50},
		{domain.RarityCommon, 1.00},
	},
}

var rarityPrefixes = map[string]string{
	domain.RarityCommon:    "Простой",
	domain.RarityUncommon:  "Добротный",
	domain.RarityRare:      "Редкий",
	domain.RarityEpic:      "Эпический",
	domain.RarityLegendary: "Легендарный",
}

var weaponSuffixes = []string{"Клинок", "Топор", "Молот", "Посох", "Лук"}

var armorSlots = []struct {
	slot   string
	suffix string
}{
	{"helmet", "Шлем"},
	{"chest", "Доспех"},
	{"belt", "Пояс"},
	{"shield", "Щит"},
}

var rareModifiers = []string{"Бездны", "Древних", "Штормов", "Глубин", "Пепла"}

// Generate создает список предметов за убитого врага.
// difficulty - сложность инстанса, она задает базовый уровень предметов.
func Generate(enemy *domain.Enemy, difficulty int, r *rng.Source) []domain.Item {
	count := itemCount(enemy.Type, r)

	items := make([]domain.Item, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, rollItem(enemy.Type, difficulty, r))
	}
	return items
}

// itemCount: normal 0-1 (50% шанс нуля), elite 1-2, boss 2-4.
func itemCount(enemyType string, r *rng.Source) int {
	switch enemyType {
	case domain.EnemyTypeBoss:
		return 2 + r.IntN(3)
	case domain.EnemyTypeElite:
		return 1 + r.IntN(2)
	default:
		if r.Chance(0.5) {
			return 0
		}
		return 1
	}
}

func rollRarity(enemyType string, r *rng.Source) string {
	table, ok := rarityTables[enemyType]
	if !ok {
		table = rarityTables[domain.EnemyTypeNormal]
	}

	roll := r.Next()
	for _, t := range table {
		if roll < t.upTo {
			return t.rarity
		}
	}
	return domain.RarityCommon
}

func rollItem(enemyType string, difficulty int, r *rng.Source) domain.Item {
	rarity := rollRarity(enemyType, r)

	baseLevel := difficulty / 2
	if baseLevel < 1 {
		baseLevel = 1
	}
	level := baseLevel + rarityBonus[rarity]

	// Категория: 40% оружие, 40% броня, 20% зелье.
	roll := r.Next()
	switch {
	case roll < 0.4:
		return rollWeapon(rarity, level, r)
	case roll < 0.8:
		return rollArmor(rarity, level, r)
	default:
		return rollPotion(rarity, r)
	}
}

func rollWeapon(rarity string, level int, r *rng.Source) domain.Item {
	suffix := weaponSuffixes[r.IntN(len(weaponSuffixes))]

	return domain.Item{
		ID:       utils.PrefixedID("item_"),
		Name:     itemName(rarity, suffix, r),
		Category: domain.ItemCategoryWeapon,
		Rarity:   rarity,
		Level:    level,
		Slot:     "weapon",
		Damage:   5 + level*2 + r.IntN(level+1),
		Stats:    rollSecondaryStats(rarity, level, r),
	}
}

func rollArmor(rarity string, level int, r *rng.Source) domain.Item {
	piece := armorSlots[r.IntN(len(armorSlots))]

	return domain.Item{
		ID:       utils.PrefixedID("item_"),
		Name:     itemName(rarity, piece.suffix, r),
		Category: domain.ItemCategoryArmor,
		Rarity:   rarity,
		Level:    level,
		Slot:     piece.slot,
		Defense:  3 + level*2 + r.IntN(level+1),
		Stats:    rollSecondaryStats(rarity, level, r),
	}
}

// potionTier: тир 1-4 по редкости.
var potionTier = map[string]int{
	domain.RarityCommon:    1,
	domain.RarityUncommon:  2,
	domain.RarityRare:      3,
	domain.RarityEpic:      4,
	domain.RarityLegendary: 4,
}

func rollPotion(rarity string, r *rng.Source) domain.Item {
	tier := potionTier[rarity]
	suffix := "Эликсир"
	if r.Chance(0.5) {
		suffix = "Отвар"
	}

	return domain.Item{
		ID:       utils.PrefixedID("item_"),
		Name:     itemName(rarity, suffix, r),
		Category: domain.ItemCategoryPotion,
		Rarity:   rarity,
		Tier:     tier,
		Value:    int(50 * (1 + 0.5*float64(tier-1))),
	}
}

// rollSecondaryStats выбирает статы из пула без возвращения.
func rollSecondaryStats(rarity string, level int, r *rng.Source) map[string]int {
	count := secondaryStatCount[rarity]
	if count == 0 {
		return nil
	}

	pool := make([]string, len(secondaryStatPool))
	copy(pool, secondaryStatPool)

	stats := make(map[string]int, count)
	for i := 0; i < count && len(pool) > 0; i++ {
		idx := r.IntN(len(pool))
		stat := pool[idx]
		pool = append(pool[:idx], pool[idx+1:]...)

		stats[stat] = 1 + r.IntN(level+3)
	}
	return stats
}

// itemName собирает имя по шаблону: префикс редкости + тип [+ модификатор для rare+].
func itemName(rarity, suffix string, r *rng.Source) string {
	name := fmt.Sprintf("%s %s", rarityPrefixes[rarity], suffix)

	switch rarity {
	case domain.RarityRare, domain.RarityEpic, domain.RarityLegendary:
		name += " " + rareModifiers[r.IntN(len(rareModifiers))]
	}
	return name
}
