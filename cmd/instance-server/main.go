package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voxel-server/internal/combat"
	"voxel-server/internal/config"
	"voxel-server/internal/instance"
	"voxel-server/internal/storage"
	"voxel-server/internal/token"
	"voxel-server/internal/version"
	"voxel-server/pkg/dungeon"
	"voxel-server/pkg/logger"
)

func init() {
	logger.Init()
}

func main() {
	cfg := config.NewInst()

	logger.Log.Info("Starting Voxel Instance Server...")
	logger.Log.Info(version.String())

	// Каталоги: встроенные либо YAML-переопределение из окружения.
	biomes := dungeon.DefaultCatalog()
	if cfg.BiomesPath != "" {
		loaded, err := dungeon.LoadCatalog(cfg.BiomesPath)
		if err != nil {
			logger.Log.Fatal("Biome catalog error:", err)
		}
		biomes = loaded
		logger.Log.Infof("Biome catalog loaded from %s", cfg.BiomesPath)
	}

	abilities := combat.DefaultAbilityCatalog()
	if cfg.AbilitiesPath != "" {
		loaded, err := combat.LoadAbilityCatalog(cfg.AbilitiesPath)
		if err != nil {
			logger.Log.Fatal("Ability catalog error:", err)
		}
		abilities = loaded
		logger.Log.Infof("Ability catalog loaded from %s", cfg.AbilitiesPath)
	}

	chars, err := storage.NewCharacterStore(cfg.DataDir)
	if err != nil {
		logger.Log.Fatal("Character store init error:", err)
	}

	pool := instance.NewGenPool(dungeon.NewGenerator(biomes), cfg.GenQueueSize)
	signer := token.NewSigner(cfg.TokenSecret, cfg.TokenTTL)

	srv := instance.NewServer(pool, signer, abilities, chars, chars, cfg.HubAddr, cfg.Port)

	// Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.Run(); err != nil {
			logger.Log.Error("Server stopped:", err)
			stop <- syscall.SIGTERM
		}
	}()

	<-stop
	logger.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Warn("Shutdown error:", err)
	}
	pool.Close()

	logger.Log.Info("Done.")
}
