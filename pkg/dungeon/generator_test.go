package dungeon

import (
	"encoding/json"
	"errors"
	"testing"

	"voxel-server/internal/domain"
)

func newTestGenerator() *Generator {
	return NewGenerator(DefaultCatalog())
}

func TestGenerateDeterminism(t *testing.T) {
	g := newTestGenerator()

	d1, err := g.Generate("forest", 3, 3, 424242)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	d2, err := g.Generate("forest", 3, 3, 424242)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// Два вызова с одинаковыми входами дают структурно идентичный результат.
	j1, _ := json.Marshal(d1)
	j2, _ := json.Marshal(d2)
	if string(j1) != string(j2) {
		t.Error("Same inputs produced structurally different dungeons")
	}

	d3, err := g.Generate("forest", 3, 3, 424243)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	j3, _ := json.Marshal(d3)
	if string(j1) == string(j3) {
		t.Error("Different seeds produced identical dungeons (suspicious)")
	}
}

func TestGenerateUnknownBiome(t *testing.T) {
	g := newTestGenerator()

	_, err := g.Generate("moonbase", 1, 1, 1)
	if err == nil {
		t.Fatal("Expected error for unknown biome, got nil")
	}
}

func TestLayerCountFromBiomeRange(t *testing.T) {
	g := newTestGenerator()
	catalog := DefaultCatalog()

	// layerCount == 0: число слоев выбирается из диапазона биома.
	for _, biomeID := range []string{"forest", "crypt", "volcano"} {
		biome, ok := catalog.Get(biomeID)
		if !ok {
			t.Fatalf("biome %q missing from default catalog", biomeID)
		}
		for _, seed := range []int64{1, 42, 9001, 123456} {
			d, err := g.Generate(biomeID, biome.MinDifficulty, 0, seed)
			if err != nil {
				t.Fatalf("%s seed %d: Generate failed: %v", biomeID, seed, err)
			}
			if len(d.Layers) < biome.MinLayers || len(d.Layers) > biome.MaxLayers {
				t.Errorf("%s seed %d: %d layers, want within [%d,%d]",
					biomeID, seed, len(d.Layers), biome.MinLayers, biome.MaxLayers)
			}
		}
	}

	// Выбор детерминирован: тот же сид - то же число слоев.
	d1, err := g.Generate("crypt", 3, 0, 5555)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	d2, err := g.Generate("crypt", 3, 0, 5555)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(d1.Layers) != len(d2.Layers) {
		t.Errorf("Same seed picked %d and %d layers", len(d1.Layers), len(d2.Layers))
	}
}

func TestGenerateNegativeLayerCount(t *testing.T) {
	g := newTestGenerator()

	if _, err := g.Generate("forest", 1, -1, 1); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for negative layerCount, got %v", err)
	}
}

func TestBossRoomInvariants(t *testing.T) {
	g := newTestGenerator()

	for _, seed := range []int64{1, 7, 999, 123456, 88} {
		d, err := g.Generate("crypt", 4, 4, seed)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}

		// Ровно одна комната на все подземелье - босс-комната,
		// и это последняя комната последнего слоя.
		bossRooms := 0
		for li, layer := range d.Layers {
			for ri, room := range layer.Rooms {
				if room.IsBossRoom {
					bossRooms++
					if li != len(d.Layers)-1 || ri != len(layer.Rooms)-1 {
						t.Errorf("seed %d: boss room at [%d,%d], expected last room of last layer", seed, li, ri)
					}
				}
			}
		}
		if bossRooms != 1 {
			t.Errorf("seed %d: expected exactly 1 boss room, got %d", seed, bossRooms)
		}

		// В босс-комнате ровно один враг типа boss.
		bossRoom := d.Layers[d.BossRoom.LayerIndex].Rooms[d.BossRoom.RoomIndex]
		bosses := 0
		for _, e := range bossRoom.Enemies {
			if e.Type == domain.EnemyTypeBoss {
				bosses++
			}
		}
		if bosses != 1 {
			t.Errorf("seed %d: expected exactly 1 boss enemy, got %d", seed, bosses)
		}
	}
}

func TestLayerLinking(t *testing.T) {
	g := newTestGenerator()

	d, err := g.Generate("volcano", 5, 4, 777)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for i := 0; i < len(d.Layers)-1; i++ {
		last := len(d.Layers[i].Rooms) - 1
		exit := d.Layers[i].Rooms[last].Exit
		if exit == nil {
			t.Fatalf("layer %d last room has no exit", i)
		}
		if exit.TargetLayer != i+1 || exit.TargetRoom != 0 {
			t.Errorf("layer %d exit targets [%d,%d], want [%d,0]", i, exit.TargetLayer, exit.TargetRoom, i+1)
		}

		entrance := d.Layers[i+1].Rooms[0].Entrance
		if entrance == nil {
			t.Fatalf("layer %d first room has no entrance", i+1)
		}
		if entrance.TargetLayer != i {
			t.Errorf("layer %d entrance targets layer %d, want %d", i+1, entrance.TargetLayer, i)
		}
		if entrance.TargetRoom != last {
			t.Errorf("layer %d entrance targets room %d, want %d", i+1, entrance.TargetRoom, last)
		}
	}
}

func TestRoomCountFloor(t *testing.T) {
	g := newTestGenerator()

	// forest, difficulty 1, 3 слоя: в каждом слое минимум 3+0+0+layerIndex комнат.
	d, err := g.Generate("forest", 1, 3, 31337)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(d.Layers) != 3 {
		t.Fatalf("Expected 3 layers, got %d", len(d.Layers))
	}
	for i, layer := range d.Layers {
		minRooms := 3 + i
		if len(layer.Rooms) < minRooms {
			t.Errorf("layer %d has %d rooms, want >= %d", i, len(layer.Rooms), minRooms)
		}
	}

	lastLayer := d.Layers[2]
	if !lastLayer.Rooms[len(lastLayer.Rooms)-1].IsBossRoom {
		t.Error("Last room of last layer is not the boss room")
	}
}

func TestConnectionsContiguousAndUnique(t *testing.T) {
	g := newTestGenerator()

	d, err := g.Generate("crypt", 6, 3, 5150)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for li, layer := range d.Layers {
		n := len(layer.Rooms)

		// Цепочка i -> i+1 присутствует всегда.
		for i := 0; i < n-1; i++ {
			if !hasConnection(layer.Connections, i, i+1) {
				t.Errorf("layer %d: missing chain connection %d->%d", li, i, i+1)
			}
		}

		// Дубликатов нет.
		seen := make(map[[2]int]bool)
		for _, c := range layer.Connections {
			key := [2]int{c.RoomA, c.RoomB}
			if seen[key] {
				t.Errorf("layer %d: duplicate connection %v", li, key)
			}
			seen[key] = true

			if c.RoomA < 0 || c.RoomA >= n || c.RoomB < 0 || c.RoomB >= n {
				t.Errorf("layer %d: connection out of range %v", li, key)
			}
		}
	}
}

func TestRoomPositionsDistinct(t *testing.T) {
	g := newTestGenerator()

	d, err := g.Generate("forest", 2, 2, 909090)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for li, layer := range d.Layers {
		for i := 0; i < len(layer.Rooms); i++ {
			for j := i + 1; j < len(layer.Rooms); j++ {
				if layer.Rooms[i].Position == layer.Rooms[j].Position {
					t.Errorf("layer %d: rooms %d and %d share position %+v", li, i, j, layer.Rooms[i].Position)
				}
			}
		}
	}
}
