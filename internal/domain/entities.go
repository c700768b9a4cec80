package domain

import "time"

// Типы врагов
const (
	EnemyTypeNormal = "normal"
	EnemyTypeElite  = "elite"
	EnemyTypeBoss   = "boss"
)

// Типы фляг
const (
	FlaskHealth = "health"
	FlaskEnergy = "energy"
)

// Flask - ограниченный расходник. Восстановление масштабируется тиром.
type Flask struct {
	Tier    int `json:"tier" yaml:"tier"`
	Charges int `json:"charges" yaml:"charges"`
}

// Player - авторитетное состояние игрока внутри одного инстанса.
// Создается при join_instance, уничтожается при выходе/дисконнекте.
// Health/Energy всегда зажаты в [0, Max].
type Player struct {
	ID        string `json:"id"` // = characterId
	SocketID  string `json:"-"`
	Name      string `json:"name"`
	Class     string `json:"class"`
	Level     int    `json:"level"`
	Health    int    `json:"health"`
	MaxHealth int    `json:"maxHealth"`
	Energy    int    `json:"energy"`
	MaxEnergy int    `json:"maxEnergy"`

	Position Vec3 `json:"position"`
	Rotation Vec3 `json:"rotation"`

	Flasks    map[string]*Flask `json:"flasks"`
	Inventory []Item            `json:"inventory"`
	Equipment map[string]Item   `json:"equipment"`
}

// Enemy - живой враг внутри инстанса. Позиция абсолютная
// (origin комнаты + локальное смещение из шаблона).
type Enemy struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"` // normal | elite | boss
	Health    int     `json:"health"`
	MaxHealth int     `json:"maxHealth"`
	Damage    int     `json:"damage"`
	Speed     float64 `json:"speed"`
	Radius    float64 `json:"radius"`

	Position     Vec3     `json:"position"`
	BehaviorType string   `json:"behaviorType"`
	Abilities    []string `json:"abilities,omitempty"`
	Phases       int      `json:"phases,omitempty"`

	// Откуда враг родом - нужно для детекции "все боссы босс-комнаты мертвы".
	LayerIndex int `json:"layerIndex"`
	RoomIndex  int `json:"roomIndex"`
}

// Projectile - летящий снаряд. Продвигается каждый тик симуляции,
// умирает на столкновении или через MaxLifetime.
type Projectile struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Type      string    `json:"type"`
	Position  Vec3      `json:"position"`
	Direction Vec3      `json:"direction"` // единичный вектор
	Speed     float64   `json:"speed"`
	Damage    int       `json:"damage"`
	Radius    float64   `json:"radius"`
	Created   time.Time `json:"-"`
}

// ProjectileMaxLifetime - максимальное время жизни снаряда.
const ProjectileMaxLifetime = 5 * time.Second

// LootDrop - сверток предметов на полу после смерти врага.
type LootDrop struct {
	ID       string    `json:"id"`
	Position Vec3      `json:"position"`
	Items    []Item    `json:"items"`
	Created  time.Time `json:"-"`
}
