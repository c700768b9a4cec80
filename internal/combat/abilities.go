package combat

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Типы эффектов способностей.
const (
	AbilityDamage  = "damage"
	AbilityHealing = "healing"
	AbilityBuff    = "buff"
	AbilityDebuff  = "debuff"
)

// Ability - описание способности класса.
// Radius > 0 означает area-эффект вокруг точки; иначе одиночная цель.
type Ability struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	Class      string  `yaml:"class"`
	Type       string  `yaml:"type"`
	EnergyCost int     `yaml:"energyCost"`
	BaseDamage int     `yaml:"baseDamage,omitempty"`
	BaseHeal   int     `yaml:"baseHeal,omitempty"`
	Radius     float64 `yaml:"radius,omitempty"`

	TargetSelf   bool `yaml:"targetSelf,omitempty"`
	TargetAllies bool `yaml:"targetAllies,omitempty"`

	BuffType   string  `yaml:"buffType,omitempty"`
	DebuffType string  `yaml:"debuffType,omitempty"`
	Amount     int     `yaml:"amount,omitempty"`
	Duration   float64 `yaml:"duration,omitempty"` // секунды
}

// AbilityCatalog - единый каталог способностей, ключ - ID.
// Загружается один раз на старте; компоненты ссылаются по ID вместо
// вкрапленных литералов по разным файлам.
type AbilityCatalog struct {
	Abilities []Ability `yaml:"abilities"`
}

func (c AbilityCatalog) Get(id string) (Ability, bool) {
	for _, a := range c.Abilities {
		if a.ID == id {
			return a, true
		}
	}
	return Ability{}, false
}

func (c AbilityCatalog) ForClass(class string) []Ability {
	var out []Ability
	for _, a := range c.Abilities {
		if a.Class == class {
			out = append(out, a)
		}
	}
	return out
}

// LoadAbilityCatalog читает каталог из YAML-файла.
func LoadAbilityCatalog(path string) (AbilityCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AbilityCatalog{}, fmt.Errorf("read ability catalog: %w", err)
	}
	var c AbilityCatalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return AbilityCatalog{}, fmt.Errorf("parse ability catalog: %w", err)
	}
	if len(c.Abilities) == 0 {
		return AbilityCatalog{}, fmt.Errorf("ability catalog %s is empty", path)
	}
	return c, nil
}

// DefaultAbilityCatalog возвращает встроенный каталог.
// TODO: способности должны браться из состояния персонажа, а не из
// статической таблицы по классу - требует миграции записей персонажей.
func DefaultAbilityCatalog() AbilityCatalog {
	return AbilityCatalog{Abilities: []Ability{
		// Воин
		{ID: "whirlwind", Name: "Вихрь клинков", Class: "warrior", Type: AbilityDamage,
			EnergyCost: 20, BaseDamage: 15, Radius: 4},
		{ID: "crushing_blow", Name: "Сокрушающий удар", Class: "warrior", Type: AbilityDamage,
			EnergyCost: 15, BaseDamage: 25},
		{ID: "battle_shout", Name: "Боевой клич", Class: "warrior", Type: AbilityBuff,
			EnergyCost: 10, BuffType: "damage", Amount: 5, Duration: 10, TargetSelf: true, TargetAllies: true},

		// Следопыт
		{ID: "piercing_arrow", Name: "Пронзающая стрела", Class: "ranger", Type: AbilityDamage,
			EnergyCost: 15, BaseDamage: 20},
		{ID: "crippling_shot", Name: "Калечащий выстрел", Class: "ranger", Type: AbilityDebuff,
			EnergyCost: 10, DebuffType: "slow", Amount: 30, Duration: 5},

		// Маг
		{ID: "fireball", Name: "Огненный шар", Class: "mage", Type: AbilityDamage,
			EnergyCost: 25, BaseDamage: 30, Radius: 5},
		{ID: "frost_bolt", Name: "Ледяная стрела", Class: "mage", Type: AbilityDamage,
			EnergyCost: 15, BaseDamage: 18},

		// Жрец
		{ID: "healing_light", Name: "Исцеляющий свет", Class: "priest", Type: AbilityHealing,
			EnergyCost: 20, BaseHeal: 30, TargetSelf: true, TargetAllies: true},
		{ID: "smite", Name: "Кара", Class: "priest", Type: AbilityDamage,
			EnergyCost: 15, BaseDamage: 16},
		{ID: "ward", Name: "Оберег", Class: "priest", Type: AbilityBuff,
			EnergyCost: 15, BuffType: "defense", Amount: 10, Duration: 8, TargetSelf: true},
	}}
}
