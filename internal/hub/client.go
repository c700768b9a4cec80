package hub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"voxel-server/internal/domain"
	"voxel-server/pkg/api"
	"voxel-server/pkg/logger"

	"github.com/gorilla/websocket"
)

// Настройки WebSocket
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client - посредник между WebSocket и хаб-сервисом.
type Client struct {
	Service     *Service
	Conn        *websocket.Conn
	Send        chan api.ServerEvent
	CharacterID string

	done chan struct{} // закрывается при выходе writePump
}

func NewClient(svc *Service, conn *websocket.Conn) *Client {
	return &Client{
		Service: svc,
		Conn:    conn,
		Send:    make(chan api.ServerEvent, 256),
		done:    make(chan struct{}),
	}
}

// forward перекачивает события подписки в канал writePump-а.
// Если writePump уже умер, а Send заполнен, отправка в Send блокировалась
// бы навсегда - done снимает горутину с такой отправки.
func (c *Client) forward(updates <-chan api.ServerEvent) {
	defer close(c.Send)
	for msg := range updates {
		select {
		case c.Send <- msg:
		case <-c.done:
			return
		}
	}
}

// readPump читает события от клиента.
func (c *Client) readPump() {
	defer func() {
		if c.CharacterID != "" {
			c.Service.Hub.Unregister(c.CharacterID)
			c.Service.Disconnect(c.CharacterID)
		}
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Debug("failed to close hub websocket")
		}
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Log.WithError(err).Warn("failed to set read deadline")
	}
	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			logger.Log.WithError(err).Warn("failed to set pong read deadline")
		}
		return nil
	})

	// 1. HANDSHAKE: первым событием обязан прийти join_world
	var first api.ClientEvent
	if err := c.Conn.ReadJSON(&first); err != nil {
		logger.Log.Warn("Hub handshake failed")
		return
	}
	if first.Type != api.EvJoinWorld {
		logger.Log.WithField("type", first.Type).Warn("Hub handshake: unexpected first event")
		return
	}

	var join api.JoinWorldPayload
	if err := json.Unmarshal(first.Payload, &join); err != nil || join.CharacterID == "" {
		logger.Log.Warn("Hub handshake: bad join_world payload")
		return
	}
	c.CharacterID = join.CharacterID

	// 2. ПОДПИСКА НА ОБНОВЛЕНИЯ
	updates := c.Service.Hub.Register(c.CharacterID)
	go c.forward(updates)

	if err := c.Service.JoinWorld(c.CharacterID, join); err != nil {
		c.Service.Hub.SendTo(c.CharacterID, api.ErrorEvent(err))
		return
	}

	// 3. ЦИКЛ ЧТЕНИЯ СОБЫТИЙ
	for {
		var ev api.ClientEvent
		if err := c.Conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Errorf("Hub WS error: %v", err)
			}
			break
		}
		if err := c.dispatch(ev); err != nil {
			// Ошибка уходит только виновному сокету.
			c.Service.Hub.SendTo(c.CharacterID, api.ErrorEvent(err))
		}
	}
}

// dispatch разбирает payload по типу события и зовет сервис.
func (c *Client) dispatch(ev api.ClientEvent) error {
	switch ev.Type {
	case api.EvPlayerMove:
		var p api.MovePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return fmt.Errorf("%w: bad player_move payload", domain.ErrValidation)
		}
		return c.Service.Move(c.CharacterID, p)

	case api.EvCreateParty:
		return c.Service.CreateParty(c.CharacterID)

	case api.EvJoinParty:
		var p api.JoinPartyPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.PartyID == "" {
			return fmt.Errorf("%w: bad join_party payload", domain.ErrValidation)
		}
		return c.Service.JoinParty(c.CharacterID, p)

	case api.EvLeaveParty:
		return c.Service.LeaveParty(c.CharacterID)

	case api.EvStartDungeon:
		var p api.StartDungeonPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.BiomeID == "" {
			return fmt.Errorf("%w: bad start_dungeon payload", domain.ErrValidation)
		}
		return c.Service.StartDungeon(c.CharacterID, p)

	default:
		return fmt.Errorf("%w: unknown event type %q", domain.ErrValidation, ev.Type)
	}
}

// writePump отправляет события клиенту + Ping.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.done)
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Debug("failed to close hub websocket in writePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logger.Log.WithError(err).Debug("write close message failed")
				}
				return
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				logger.Log.WithError(err).Debug("write json message failed")
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}
