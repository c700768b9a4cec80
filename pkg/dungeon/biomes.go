package dungeon

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnemyArchetype - базовые параметры врага до масштабирования сложностью.
type EnemyArchetype struct {
	Name       string  `yaml:"name"`
	BaseHealth int     `yaml:"baseHealth"`
	BaseDamage int     `yaml:"baseDamage"`
	Speed      float64 `yaml:"speed"`
	Behavior   string  `yaml:"behavior"` // melee | ranged | swarm
}

// BossArchetype - заготовка босса. Индекс в слайсе выбирается
// как min(layerIndex, len-1), поэтому порядок важен.
type BossArchetype struct {
	Name       string   `yaml:"name"`
	BaseHealth int      `yaml:"baseHealth"`
	BaseDamage int      `yaml:"baseDamage"`
	Abilities  []string `yaml:"abilities"`
}

// Biome - тематический профиль генерации.
type Biome struct {
	ID        string           `yaml:"id"`
	Name      string           `yaml:"name"`
	Enemies   []EnemyArchetype `yaml:"enemies"`
	Bosses    []BossArchetype  `yaml:"bosses"`
	Obstacles []string         `yaml:"obstacles"`
	Treasures []string         `yaml:"treasures"`

	MinDifficulty int `yaml:"minDifficulty"`
	MaxDifficulty int `yaml:"maxDifficulty"`
	MinLayers     int `yaml:"minLayers"`
	MaxLayers     int `yaml:"maxLayers"`
}

// Catalog - единственный источник правды по биомам.
// Раньше таблицы биомов дублировались по разным местам; теперь всё здесь,
// с опциональной подгрузкой из YAML-файла.
type Catalog struct {
	Biomes []Biome `yaml:"biomes"`
}

// Get ищет биом по ID.
func (c Catalog) Get(id string) (Biome, bool) {
	for _, b := range c.Biomes {
		if b.ID == id {
			return b, true
		}
	}
	return Biome{}, false
}

// LoadCatalog читает каталог биомов из YAML-файла.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read biome catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse biome catalog: %w", err)
	}
	if len(c.Biomes) == 0 {
		return Catalog{}, fmt.Errorf("biome catalog %s is empty", path)
	}
	return c, nil
}

// DefaultCatalog возвращает встроенный каталог.
func DefaultCatalog() Catalog {
	return Catalog{Biomes: []Biome{
		{
			ID:   "forest",
			Name: "Гиблый лес",
			Enemies: []EnemyArchetype{
				{Name: "Лесной волк", BaseHealth: 40, BaseDamage: 8, Speed: 4.5, Behavior: "melee"},
				{Name: "Гоблин-охотник", BaseHealth: 30, BaseDamage: 6, Speed: 3.5, Behavior: "ranged"},
				{Name: "Рой шершней", BaseHealth: 20, BaseDamage: 4, Speed: 5.0, Behavior: "swarm"},
				{Name: "Лесной тролль", BaseHealth: 80, BaseDamage: 12, Speed: 2.5, Behavior: "melee"},
			},
			Bosses: []BossArchetype{
				{Name: "Древний энт", BaseHealth: 400, BaseDamage: 20, Abilities: []string{"root_slam", "bark_armor"}},
				{Name: "Король волков", BaseHealth: 550, BaseDamage: 25, Abilities: []string{"howl", "pack_call", "pounce"}},
				{Name: "Лесная ведьма", BaseHealth: 700, BaseDamage: 30, Abilities: []string{"poison_cloud", "vine_grasp", "hex"}},
			},
			Obstacles:     []string{"fallen_tree", "boulder", "thornbush"},
			Treasures:     []string{"chest", "hollow_stump"},
			MinDifficulty: 1, MaxDifficulty: 5,
			MinLayers: 1, MaxLayers: 5,
		},
		{
			ID:   "crypt",
			Name: "Забытый склеп",
			Enemies: []EnemyArchetype{
				{Name: "Скелет-воин", BaseHealth: 35, BaseDamage: 9, Speed: 3.0, Behavior: "melee"},
				{Name: "Призрачный лучник", BaseHealth: 25, BaseDamage: 7, Speed: 3.0, Behavior: "ranged"},
				{Name: "Гуль", BaseHealth: 50, BaseDamage: 10, Speed: 4.0, Behavior: "melee"},
			},
			Bosses: []BossArchetype{
				{Name: "Костяной голем", BaseHealth: 450, BaseDamage: 22, Abilities: []string{"bone_storm", "quake"}},
				{Name: "Лич-хранитель", BaseHealth: 600, BaseDamage: 28, Abilities: []string{"drain_life", "summon_dead", "frost_nova"}},
				{Name: "Аватар смерти", BaseHealth: 800, BaseDamage: 35, Abilities: []string{"reap", "darkness", "soul_prison"}},
			},
			Obstacles:     []string{"sarcophagus", "pillar", "rubble"},
			Treasures:     []string{"chest", "urn"},
			MinDifficulty: 2, MaxDifficulty: 8,
			MinLayers: 2, MaxLayers: 6,
		},
		{
			ID:   "volcano",
			Name: "Огненные недра",
			Enemies: []EnemyArchetype{
				{Name: "Магмовый элементаль", BaseHealth: 60, BaseDamage: 14, Speed: 2.5, Behavior: "melee"},
				{Name: "Пепельный имп", BaseHealth: 25, BaseDamage: 8, Speed: 5.0, Behavior: "ranged"},
				{Name: "Лавовый червь", BaseHealth: 90, BaseDamage: 16, Speed: 2.0, Behavior: "melee"},
			},
			Bosses: []BossArchetype{
				{Name: "Обсидиановый страж", BaseHealth: 500, BaseDamage: 26, Abilities: []string{"magma_wave", "harden"}},
				{Name: "Повелитель пепла", BaseHealth: 700, BaseDamage: 32, Abilities: []string{"eruption", "ash_storm", "ignite"}},
				{Name: "Сердце вулкана", BaseHealth: 950, BaseDamage: 40, Abilities: []string{"meltdown", "pyroclasm", "rebirth"}},
			},
			Obstacles:     []string{"lava_pool", "basalt_column", "vent"},
			Treasures:     []string{"chest", "obsidian_cache"},
			MinDifficulty: 4, MaxDifficulty: 10,
			MinLayers: 3, MaxLayers: 7,
		},
	}}
}
