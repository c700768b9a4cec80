package domain

// Редкость предмета, от худшей к лучшей.
const (
	RarityCommon    = "common"
	RarityUncommon  = "uncommon"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// Категории предметов
const (
	ItemCategoryWeapon = "weapon"
	ItemCategoryArmor  = "armor"
	ItemCategoryPotion = "potion"
)

// Item - сгенерированный предмет. Иммутабелен после создания лут-генератором.
type Item struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category" yaml:"category"`
	Rarity   string `json:"rarity" yaml:"rarity"`
	Level    int    `json:"level" yaml:"level"`

	// Слот экипировки для оружия/брони (weapon, chest, helmet...).
	Slot string `json:"slot,omitempty" yaml:"slot,omitempty"`

	// Основной стат: урон для оружия, защита для брони.
	Damage  int `json:"damage,omitempty" yaml:"damage,omitempty"`
	Defense int `json:"defense,omitempty" yaml:"defense,omitempty"`

	// Вторичные статы (strength, vitality...), количество зависит от редкости.
	Stats map[string]int `json:"stats,omitempty" yaml:"stats,omitempty"`

	// Для зелий: тир 1-4 и сила эффекта.
	Tier  int `json:"tier,omitempty" yaml:"tier,omitempty"`
	Value int `json:"value,omitempty" yaml:"value,omitempty"`
}
