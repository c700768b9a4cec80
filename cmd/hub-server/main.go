package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voxel-server/internal/config"
	"voxel-server/internal/hub"
	"voxel-server/internal/instance"
	"voxel-server/internal/storage"
	"voxel-server/internal/token"
	"voxel-server/internal/version"
	"voxel-server/pkg/logger"
)

func init() {
	logger.Init()
}

func main() {
	cfg := config.NewHub()

	logger.Log.Info("Starting Voxel Hub...")
	logger.Log.Info(version.String())

	chars, err := storage.NewCharacterStore(cfg.DataDir)
	if err != nil {
		logger.Log.Fatal("Character store init error:", err)
	}

	signer := token.NewSigner(cfg.TokenSecret, cfg.TokenTTL)
	manager := instance.NewManager(cfg.InstanceServers, signer)

	service := hub.NewService(chars, manager, cfg.PartyMaxSize)
	manager.OnReleased(service.PartyReturned)

	srv := hub.New(service, cfg.Port)
	srv.InstanceReleased = manager.HandleReleased

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

	logger.Log.Info("Done.")
}
