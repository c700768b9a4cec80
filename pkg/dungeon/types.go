package dungeon

import "voxel-server/internal/domain"

// Dungeon - результат работы генератора. Иммутабелен после генерации:
// дальше мутирует только Entity Store, построенный по нему.
type Dungeon struct {
	ID            string      `json:"id"`
	Seed          int64       `json:"seed"`
	Biome         string      `json:"biome"`
	Difficulty    int         `json:"difficulty"`
	Layers        []Layer     `json:"layers"`
	StartPosition domain.Vec3 `json:"startPosition"`
	BossRoom      RoomRef     `json:"bossRoom"`
}

// RoomRef - адрес комнаты внутри подземелья.
type RoomRef struct {
	LayerIndex int `json:"layerIndex"`
	RoomIndex  int `json:"roomIndex"`
}

// Layer - один вертикальный уровень подземелья.
type Layer struct {
	Index       int          `json:"index"`
	Rooms       []Room       `json:"rooms"`
	Connections []Connection `json:"connections"`
}

// Connection - связь между двумя комнатами слоя.
// Комнаты всегда соединены цепочкой (i -> i+1, type=corridor);
// для слоев с >4 комнатами добавляются shortcut-связи без дубликатов.
type Connection struct {
	RoomA int    `json:"roomA"`
	RoomB int    `json:"roomB"`
	Type  string `json:"type"` // corridor | shortcut
}

// Size - габариты комнаты в юнитах.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

// Doorway - вход/выход комнаты. TargetLayer/TargetRoom заполняются
// только на межслойных дверях (выход последней комнаты слоя и вход
// первой комнаты следующего); -1 означает обычную дверь внутри слоя.
type Doorway struct {
	Position    domain.Vec3 `json:"position"` // локальное смещение от центра комнаты
	TargetLayer int         `json:"targetLayer"`
	TargetRoom  int         `json:"targetRoom"`
}

// Room - комната. Position это мировой origin (центр), все локальные
// смещения (враги, двери, препятствия) считаются от него.
type Room struct {
	Index      int             `json:"index"`
	Position   domain.Vec3     `json:"position"`
	Size       Size            `json:"size"`
	IsBossRoom bool            `json:"isBossRoom"`
	Entrance   *Doorway        `json:"entrance,omitempty"`
	Exit       *Doorway        `json:"exit,omitempty"`
	Enemies    []EnemyTemplate `json:"enemies"`
	Obstacles  []Obstacle      `json:"obstacles"`
	Treasures  []Treasure      `json:"treasures"`
}

// EnemyTemplate - заготовка врага в комнате. Позиция локальная;
// Entity Store при инициализации инстанса переводит её в абсолютную
// (room.Position + template.Position).
type EnemyTemplate struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"` // normal | elite | boss
	Health   int         `json:"health"`
	Damage   int         `json:"damage"`
	Speed    float64     `json:"speed"`
	Behavior string      `json:"behavior"`
	Position domain.Vec3 `json:"position"`

	Abilities []string `json:"abilities,omitempty"`
	Phases    int      `json:"phases,omitempty"`
}

// Obstacle - статичное препятствие.
type Obstacle struct {
	Kind     string      `json:"kind"`
	Position domain.Vec3 `json:"position"`
	Size     float64     `json:"size"`
}

// Treasure - сундук/тайник.
type Treasure struct {
	Kind     string      `json:"kind"`
	Position domain.Vec3 `json:"position"`
}
