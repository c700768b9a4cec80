package hub

import (
	"context"
	"encoding/json"
	"net/http"

	"voxel-server/internal/version"
	"voxel-server/pkg/logger"
)

// Server - HTTP-обертка хаба: WebSocket-вход и служебные роуты.
type Server struct {
	Service *Service
	Port    string

	// InstanceReleased монтируется на /internal/instance-released:
	// уведомления инстанс-серверов о снесенных инстансах.
	InstanceReleased http.HandlerFunc

	httpServer *http.Server
}

func New(svc *Service, port string) *Server {
	return &Server{
		Service: svc,
		Port:    port,
	}
}

// Run запускает HTTP сервер хаба (блокирующий вызов).
func (s *Server) Run() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", enableCORS(s.handleWS))
	mux.HandleFunc("/health", enableCORS(s.handleHealth))
	mux.HandleFunc("/version", enableCORS(s.handleVersion))
	if s.InstanceReleased != nil {
		mux.HandleFunc("/internal/instance-released", s.InstanceReleased)
	}

	s.httpServer = &http.Server{Addr: ":" + s.Port, Handler: mux}

	logger.Log.Infof("🏰 Hub server running on :%s", s.Port)
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
		// Разрешаем запросы с фронтенда
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		next(w, r)
	}
}

// handleWS обрабатывает подключение по WebSocket.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("Upgrade error:", err)
		return
	}

	client := NewClient(s.Service, conn)

	go client.writePump()
	go client.readPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"online": s.Service.OnlineCount(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(version.Info())
}
