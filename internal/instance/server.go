package instance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"voxel-server/internal/combat"
	"voxel-server/internal/domain"
	"voxel-server/internal/token"
	"voxel-server/internal/version"
	"voxel-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// CharacterSource читает записи персонажей при входе в инстанс.
type CharacterSource interface {
	Load(characterID string) (*domain.CharacterRecord, error)
}

// Server - процесс инстанс-сервера: handshake с менеджером хаба,
// WebSocket-вход игроков, реестр живых инстансов.
type Server struct {
	mu        sync.Mutex
	instances map[string]*Instance

	pool      *GenPool
	signer    *token.Signer
	abilities combat.AbilityCatalog
	chars     CharacterSource
	sink      CharacterSink
	hubAddr   string // host:port хаба для уведомлений об освобождении
	Port      string

	httpServer *http.Server
	log        *logrus.Entry
}

func NewServer(pool *GenPool, signer *token.Signer, abilities combat.AbilityCatalog, chars CharacterSource, sink CharacterSink, hubAddr, port string) *Server {
	return &Server{
		instances: make(map[string]*Instance),
		pool:      pool,
		signer:    signer,
		abilities: abilities,
		chars:     chars,
		sink:      sink,
		hubAddr:   hubAddr,
		Port:      port,
		log:       logger.Component("instance_server"),
	}
}

// Run запускает HTTP сервер инстансов (блокирующий вызов).
func (s *Server) Run() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/initialize", s.handleInitialize)
	mux.HandleFunc("/ws", enableCORS(s.handleWS))
	mux.HandleFunc("/health", enableCORS(s.handleHealth))
	mux.HandleFunc("/version", enableCORS(s.handleVersion))

	s.httpServer = &http.Server{Addr: ":" + s.Port, Handler: mux}

	logger.Log.Infof("⚔️  Instance server running on :%s", s.Port)
	return s.httpServer.ListenAndServe()
}

// Shutdown останавливает прием соединений.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		next(w, r)
	}
}

// handleInitialize - handshake от менеджера: проверка токена, генерация
// подземелья в пуле, запуск актор-цикла.
func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var record domain.InstanceRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil || record.ID == "" {
		http.Error(w, "bad record", http.StatusBadRequest)
		return
	}

	if _, err := s.signer.VerifyFor(record.Token, record.ID); err != nil {
		s.log.WithError(err).Warn("Initialize rejected: bad token")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	_, exists := s.instances[record.ID]
	s.mu.Unlock()
	if exists {
		http.Error(w, "instance already exists", http.StatusConflict)
		return
	}

	d, err := s.pool.Generate(record.BiomeID, record.Difficulty, record.LayerCount, record.Seed)
	if err != nil {
		s.log.WithError(err).WithField("biome", record.BiomeID).Error("Dungeon generation failed")
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	inst := NewInstance(&record, d, s.abilities, s.sink, s.onTeardown)
	s.mu.Lock()
	s.instances[record.ID] = inst
	s.mu.Unlock()
	go inst.Run()

	s.log.WithFields(logrus.Fields{
		"instance": record.ID,
		"party":    record.PartyID,
		"biome":    record.BiomeID,
		"layers":   len(d.Layers),
	}).Info("Instance initialized")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"instanceId": record.ID, "dungeonId": d.ID})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// onTeardown вычищает инстанс из реестра и уведомляет хаб.
func (s *Server) onTeardown(instanceID, partyID string) {
	s.mu.Lock()
	delete(s.instances, instanceID)
	s.mu.Unlock()

	if s.hubAddr == "" {
		return
	}
	body, _ := json.Marshal(map[string]string{"instanceId": instanceID, "partyId": partyID})
	resp, err := http.Post("http://"+s.hubAddr+"/internal/instance-released", "application/json", strings.NewReader(string(body)))
	if err != nil {
		s.log.WithError(err).Warn("Failed to notify hub about instance release")
		return
	}
	resp.Body.Close()
}

// instance возвращает живой инстанс по ID.
func (s *Server) instance(instanceID string) (*Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[instanceID]
	return inst, ok
}

// handleWS обрабатывает игровое подключение по WebSocket.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("Upgrade error:", err)
		return
	}

	client := NewClient(s, conn)

	go client.writePump()
	go client.readPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	active := len(s.instances)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"instances": active,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(version.Info())
}
