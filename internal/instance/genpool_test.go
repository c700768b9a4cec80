package instance

import (
	"errors"
	"testing"

	"voxel-server/internal/domain"
	"voxel-server/pkg/dungeon"
)

func TestGenPoolGenerates(t *testing.T) {
	pool := NewGenPool(dungeon.NewGenerator(dungeon.DefaultCatalog()), 8)
	defer pool.Close()

	d, err := pool.Generate("forest", 3, 2, 12345)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(d.Layers) != 2 {
		t.Errorf("got %d layers, want 2", len(d.Layers))
	}
}

func TestGenPoolPropagatesValidationError(t *testing.T) {
	pool := NewGenPool(dungeon.NewGenerator(dungeon.DefaultCatalog()), 8)
	defer pool.Close()

	if _, err := pool.Generate("swamp-of-nowhere", 3, 2, 1); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for unknown biome, got %v", err)
	}
}

func TestGenPoolParallelRequests(t *testing.T) {
	// Очередь заметно меньше числа заявок: лишние должны дождаться
	// воркеров, а не отвалиться с ошибкой.
	pool := NewGenPool(dungeon.NewGenerator(dungeon.DefaultCatalog()), 1)
	defer pool.Close()

	done := make(chan error, 16)
	for i := 0; i < 16; i++ {
		seed := int64(i + 1)
		go func() {
			_, err := pool.Generate("crypt", 2, 1, seed)
			done <- err
		}()
	}
	for i := 0; i < 16; i++ {
		if err := <-done; err != nil {
			t.Errorf("parallel generate failed: %v", err)
		}
	}
}
