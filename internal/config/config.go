package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Hub - конфигурация процесса хаба. Все значения из окружения,
// с рабочими дефолтами для локального запуска.
type Hub struct {
	Port            string
	TokenSecret     string
	TokenTTL        time.Duration
	PartyMaxSize    int
	InstanceServers []string // host:port через запятую
	DataDir         string
}

// Inst - конфигурация процесса инстанс-сервера.
type Inst struct {
	Port          string
	TokenSecret   string
	TokenTTL      time.Duration
	HubAddr       string
	DataDir       string
	BiomesPath    string // YAML-переопределение каталога биомов
	AbilitiesPath string
	GenQueueSize  int
}

func NewHub() Hub {
	return Hub{
		Port:            env("HUB_PORT", "8080"),
		TokenSecret:     env("TOKEN_SECRET", "dev-secret-change-me"),
		TokenTTL:        envDuration("TOKEN_TTL", time.Hour),
		PartyMaxSize:    envInt("PARTY_MAX_SIZE", 4),
		InstanceServers: envList("INSTANCE_SERVERS", "localhost:8081"),
		DataDir:         env("DATA_DIR", "data/characters"),
	}
}

func NewInst() Inst {
	return Inst{
		Port:          env("INSTANCE_PORT", "8081"),
		TokenSecret:   env("TOKEN_SECRET", "dev-secret-change-me"),
		TokenTTL:      envDuration("TOKEN_TTL", time.Hour),
		HubAddr:       env("HUB_ADDR", "localhost:8080"),
		DataDir:       env("DATA_DIR", "data/characters"),
		BiomesPath:    env("BIOMES_PATH", ""),
		AbilitiesPath: env("ABILITIES_PATH", ""),
		GenQueueSize:  envInt("GEN_QUEUE_SIZE", 32),
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envList(key, def string) []string {
	raw := env(key, def)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
