package dungeon

import (
	"fmt"
	"math"

	"voxel-server/internal/domain"
	"voxel-server/pkg/rng"
)

// Константы генерации
const (
	GridCell    = 40.0 // шаг спирали размещения комнат
	RoomJitter  = 5.0  // разброс ±5, чтобы комнаты не стояли по линейке
	LayerHeight = 50.0 // вертикальный шаг между слоями
	RoomHeight  = 8.0

	// Минимальные дистанции при rejection sampling
	enemyDoorGap    = 4.0
	decorDoorGap    = 3.0
	enemyEnemyGap   = 2.0
	treasureGap     = 3.0
	placingAttempts = 10
)

// Generator - чистый детерминированный генератор подземелий.
// Никакого разделяемого состояния: безопасно гонять в пуле воркеров.
type Generator struct {
	catalog Catalog
}

func NewGenerator(catalog Catalog) *Generator {
	return &Generator{catalog: catalog}
}

// Generate создает подземелье. Полностью детерминирован: одинаковые
// (biome, difficulty, layerCount, seed) дают структурно идентичный результат.
// layerCount == 0 означает "выбрать по биому": число слоев берется из
// [MinLayers, MaxLayers] биома тем же сидированным генератором.
// Для валидных входов генерация не может провалиться; неизвестный биом -
// ошибка сразу, без тихого фоллбека на дефолтный.
func (g *Generator) Generate(biomeID string, difficulty, layerCount int, seed int64) (*Dungeon, error) {
	biome, ok := g.catalog.Get(biomeID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown biome %q", domain.ErrValidation, biomeID)
	}
	if layerCount < 0 {
		return nil, fmt.Errorf("%w: layerCount must be >= 0, got %d", domain.ErrValidation, layerCount)
	}
	if difficulty < 0 {
		return nil, fmt.Errorf("%w: difficulty must be >= 0, got %d", domain.ErrValidation, difficulty)
	}

	r := rng.New(seed)

	if layerCount == 0 {
		layerCount = biome.MinLayers + r.IntN(biome.MaxLayers-biome.MinLayers+1)
	}

	d := &Dungeon{
		ID:         fmt.Sprintf("dungeon_%s_d%d_%d", biomeID, difficulty, seed),
		Seed:       seed,
		Biome:      biomeID,
		Difficulty: difficulty,
		Layers:     make([]Layer, 0, layerCount),
	}

	for layerIdx := 0; layerIdx < layerCount; layerIdx++ {
		layer := g.generateLayer(r, biome, difficulty, layerIdx, layerCount)
		d.Layers = append(d.Layers, layer)
	}

	// Сшиваем слои: выход последней комнаты слоя i всегда ведет в комнату 0
	// слоя i+1, и обратная дверь ведет назад. Таргеты перезаписываются
	// в уже существующих дверях, сами двери не пересоздаются.
	for i := 0; i < layerCount-1; i++ {
		last := len(d.Layers[i].Rooms) - 1
		d.Layers[i].Rooms[last].Exit.TargetLayer = i + 1
		d.Layers[i].Rooms[last].Exit.TargetRoom = 0

		d.Layers[i+1].Rooms[0].Entrance.TargetLayer = i
		d.Layers[i+1].Rooms[0].Entrance.TargetRoom = last
	}

	lastLayer := layerCount - 1
	lastRoom := len(d.Layers[lastLayer].Rooms) - 1
	d.BossRoom = RoomRef{LayerIndex: lastLayer, RoomIndex: lastRoom}

	first := d.Layers[0].Rooms[0]
	d.StartPosition = first.Position

	return d, nil
}

func (g *Generator) generateLayer(r *rng.Source, biome Biome, difficulty, layerIdx, layerCount int) Layer {
	roomCount := 3 + difficulty/2 + r.IntN(3) + layerIdx

	layer := Layer{
		Index: layerIdx,
		Rooms: make([]Room, 0, roomCount),
	}

	layerY := -float64(layerIdx) * LayerHeight

	for i := 0; i < roomCount; i++ {
		// Первая комната строго в origin слоя, остальные - расширяющаяся
		// спираль с небольшим джиттером, чтобы центры никогда не совпадали.
		pos := domain.Vec3{Y: layerY}
		if i > 0 {
			angle := float64(i) / 8.0 * 2 * math.Pi
			radius := float64(i/8 + 1)
			pos.X = math.Cos(angle)*radius*GridCell + r.Range(-RoomJitter, RoomJitter)
			pos.Z = math.Sin(angle)*radius*GridCell + r.Range(-RoomJitter, RoomJitter)
		}

		room := Room{
			Index:    i,
			Position: pos,
			Size: Size{
				Width:  15 + float64(r.IntN(10)),
				Height: RoomHeight,
				Depth:  15 + float64(r.IntN(10)),
			},
		}

		// Двери ставятся на противоположных стенах уже при создании комнаты.
		// Межслойные таргеты появятся позже, при сшивке слоев.
		room.Entrance = &Doorway{
			Position:    domain.Vec3{X: -room.Size.Width/2 + 1},
			TargetLayer: -1,
			TargetRoom:  -1,
		}
		room.Exit = &Doorway{
			Position:    domain.Vec3{X: room.Size.Width/2 - 1},
			TargetLayer: -1,
			TargetRoom:  -1,
		}

		isBoss := layerIdx == layerCount-1 && i == roomCount-1
		room.IsBossRoom = isBoss

		g.populateRoom(r, &room, biome, difficulty, layerIdx, isBoss)
		layer.Rooms = append(layer.Rooms, room)
	}

	// Базовая связность: цепочка i -> i+1.
	for i := 0; i < roomCount-1; i++ {
		layer.Connections = append(layer.Connections, Connection{RoomA: i, RoomB: i + 1, Type: "corridor"})
	}

	// Шорткаты для больших слоев. Дубликаты и соседние пары отбрасываются.
	if roomCount > 4 {
		shortcuts := 1 + r.IntN(2)
		for s := 0; s < shortcuts; s++ {
			for attempt := 0; attempt < placingAttempts; attempt++ {
				a := r.IntN(roomCount)
				b := r.IntN(roomCount)
				if a == b || abs(a-b) <= 1 {
					continue
				}
				if a > b {
					a, b = b, a
				}
				if hasConnection(layer.Connections, a, b) {
					continue
				}
				layer.Connections = append(layer.Connections, Connection{RoomA: a, RoomB: b, Type: "shortcut"})
				break
			}
		}
	}

	return layer
}

// populateRoom наполняет комнату врагами, препятствиями и сокровищами.
// Размещение через rejection sampling: максимум 10 попыток на сущность,
// после чего сущность молча пропускается - это допустимое снижение
// плотности, а не ошибка.
func (g *Generator) populateRoom(r *rng.Source, room *Room, biome Biome, difficulty, layerIdx int, isBoss bool) {
	area := room.Size.Width * room.Size.Depth
	enemyCount := int(area/25) + difficulty + layerIdx

	if isBoss {
		g.placeBoss(r, room, biome, difficulty, layerIdx)
		// Босс получает свиту: 60% обычного количества миньонов.
		enemyCount = int(float64(enemyCount) * 0.6)
	}

	for i := 0; i < enemyCount; i++ {
		arch := biome.Enemies[r.IntN(len(biome.Enemies))]
		isElite := r.Chance(0.15)

		scale := 1 + float64(difficulty)*0.1
		health := int(float64(arch.BaseHealth) * scale)
		damage := int(float64(arch.BaseDamage) * scale)
		enemyType := domain.EnemyTypeNormal
		if isElite {
			health = health * 3 / 2
			damage = damage * 3 / 2
			enemyType = domain.EnemyTypeElite
		}

		pos, placed := g.samplePosition(r, room, enemyDoorGap, func(p domain.Vec3) bool {
			for _, other := range room.Enemies {
				if p.DistanceTo(other.Position) < enemyEnemyGap {
					return false
				}
			}
			return true
		})
		if !placed {
			continue
		}

		room.Enemies = append(room.Enemies, EnemyTemplate{
			Name:     arch.Name,
			Type:     enemyType,
			Health:   health,
			Damage:   damage,
			Speed:    arch.Speed,
			Behavior: arch.Behavior,
			Position: pos,
		})
	}

	obstacleCount := 1 + r.IntN(3)
	for i := 0; i < obstacleCount; i++ {
		kind := biome.Obstacles[r.IntN(len(biome.Obstacles))]
		size := 1 + r.Next()*2

		pos, placed := g.samplePosition(r, room, decorDoorGap, func(p domain.Vec3) bool {
			for _, other := range room.Obstacles {
				// Препятствия не должны сливаться: дистанция не меньше суммы размеров.
				if p.DistanceTo(other.Position) < size+other.Size {
					return false
				}
			}
			return true
		})
		if !placed {
			continue
		}

		room.Obstacles = append(room.Obstacles, Obstacle{Kind: kind, Position: pos, Size: size})
	}

	treasureCount := r.IntN(2)
	if isBoss {
		treasureCount++
	}
	for i := 0; i < treasureCount; i++ {
		kind := biome.Treasures[r.IntN(len(biome.Treasures))]

		pos, placed := g.samplePosition(r, room, decorDoorGap, func(p domain.Vec3) bool {
			for _, other := range room.Treasures {
				if p.DistanceTo(other.Position) < treasureGap {
					return false
				}
			}
			return true
		})
		if !placed {
			continue
		}

		room.Treasures = append(room.Treasures, Treasure{Kind: kind, Position: pos})
	}
}

func (g *Generator) placeBoss(r *rng.Source, room *Room, biome Biome, difficulty, layerIdx int) {
	bossIdx := layerIdx
	if bossIdx > len(biome.Bosses)-1 {
		bossIdx = len(biome.Bosses) - 1
	}
	arch := biome.Bosses[bossIdx]

	scale := 1 + float64(difficulty)*0.1 + float64(layerIdx)*0.2
	phases := 1 + layerIdx/2
	if phases > 3 {
		phases = 3
	}

	// Босс стоит в центре комнаты, без rejection sampling.
	room.Enemies = append(room.Enemies, EnemyTemplate{
		Name:      arch.Name,
		Type:      domain.EnemyTypeBoss,
		Health:    int(float64(arch.BaseHealth) * scale),
		Damage:    int(float64(arch.BaseDamage) * scale),
		Speed:     3.0,
		Behavior:  "boss",
		Position:  domain.Vec3{},
		Abilities: arch.Abilities,
		Phases:    phases,
	})
}

// samplePosition ищет локальную позицию внутри комнаты с отступом от стен,
// на минимальной дистанции от входа/выхода и удовлетворяющую accept.
func (g *Generator) samplePosition(r *rng.Source, room *Room, doorGap float64, accept func(domain.Vec3) bool) (domain.Vec3, bool) {
	halfW := room.Size.Width/2 - 1
	halfD := room.Size.Depth/2 - 1

	for attempt := 0; attempt < placingAttempts; attempt++ {
		p := domain.Vec3{
			X: r.Range(-halfW, halfW),
			Z: r.Range(-halfD, halfD),
		}

		if room.Entrance != nil && p.DistanceTo(room.Entrance.Position) < doorGap {
			continue
		}
		if room.Exit != nil && p.DistanceTo(room.Exit.Position) < doorGap {
			continue
		}
		if !accept(p) {
			continue
		}
		return p, true
	}
	return domain.Vec3{}, false
}

func hasConnection(conns []Connection, a, b int) bool {
	for _, c := range conns {
		if c.RoomA == a && c.RoomB == b {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
