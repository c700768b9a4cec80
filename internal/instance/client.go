package instance

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"voxel-server/internal/combat"
	"voxel-server/internal/domain"
	"voxel-server/pkg/api"
	"voxel-server/pkg/logger"
	"voxel-server/pkg/utils"

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

// Client - посредник между WebSocket и конкретным инстансом.
type Client struct {
	Server      *Server
	Conn        *websocket.Conn
	Send        chan api.ServerEvent
	Instance    *Instance
	CharacterID string
	SocketID    string

	done chan struct{} // закрывается при выходе writePump
}

func NewClient(srv *Server, conn *websocket.Conn) *Client {
	return &Client{
		Server:   srv,
		Conn:     conn,
		Send:     make(chan api.ServerEvent, 256),
		SocketID: utils.PrefixedID("sock_"),
		done:     make(chan struct{}),
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
		if c.Instance != nil && c.CharacterID != "" {
			c.Instance.Hub.Unregister(c.CharacterID)
			c.Instance.Leave(c.CharacterID)
		}
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Debug("failed to close instance websocket")
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

	// 1. HANDSHAKE: join_instance с токеном из dungeon_ready
	var first api.ClientEvent
	if err := c.Conn.ReadJSON(&first); err != nil {
		logger.Log.Warn("Instance handshake failed")
		return
	}
	if first.Type != api.EvJoinInstance {
		logger.Log.WithField("type", first.Type).Warn("Instance handshake: unexpected first event")
		return
	}

	var join api.JoinInstancePayload
	if err := json.Unmarshal(first.Payload, &join); err != nil || join.CharacterID == "" {
		logger.Log.Warn("Instance handshake: bad join_instance payload")
		return
	}

	// 2. ТОКЕН -> ИНСТАНС
	claims, err := c.Server.signer.Verify(join.Token)
	if err != nil {
		c.sendDirect(api.ErrorEvent(err))
		return
	}
	inst, ok := c.Server.instance(claims.InstanceID)
	if !ok {
		c.sendDirect(api.ErrorEvent(fmt.Errorf("%w: instance %s", domain.ErrNotFound, claims.InstanceID)))
		return
	}

	rec, err := c.Server.chars.Load(join.CharacterID)
	if err != nil {
		c.sendDirect(api.ErrorEvent(fmt.Errorf("load character %s: %w", join.CharacterID, err)))
		return
	}

	// 3. ПОДПИСКА И ВХОД
	c.Instance = inst
	c.CharacterID = join.CharacterID

	updates := inst.Hub.Register(c.CharacterID)
	go c.forward(updates)

	if err := inst.Join(rec, c.SocketID); err != nil {
		inst.Hub.SendTo(c.CharacterID, api.ErrorEvent(err))
		return
	}

	// 4. ЦИКЛ ЧТЕНИЯ СОБЫТИЙ
	for {
		var ev api.ClientEvent
		if err := c.Conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Errorf("Instance WS error: %v", err)
			}
			break
		}

		leave, err := c.dispatch(ev)
		if err != nil {
			c.Instance.Hub.SendTo(c.CharacterID, api.ErrorEvent(err))
		}
		if leave {
			break
		}
	}
}

// dispatch разбирает событие. Второе возвращаемое значение - признак
// добровольного выхода (return_to_hub).
func (c *Client) dispatch(ev api.ClientEvent) (bool, error) {
	switch ev.Type {
	case api.EvPlayerMove:
		var p api.MovePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return false, fmt.Errorf("%w: bad player_move payload", domain.ErrValidation)
		}
		return false, c.Instance.Move(c.CharacterID, p)

	case api.EvPlayerAttack:
		var p api.AttackPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.Type == "" {
			return false, fmt.Errorf("%w: bad player_attack payload", domain.ErrValidation)
		}
		return false, c.Instance.Attack(c.CharacterID, combat.AttackInput{
			Type:      p.Type,
			Direction: p.Direction,
			TargetIDs: p.TargetIDs,
		})

	case api.EvUseAbility:
		var p api.AbilityPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.AbilityID == "" {
			return false, fmt.Errorf("%w: bad use_ability payload", domain.ErrValidation)
		}
		return false, c.Instance.UseAbility(c.CharacterID, combat.AbilityInput{
			AbilityID:      p.AbilityID,
			Direction:      p.Direction,
			TargetPosition: p.TargetPosition,
			TargetIDs:      p.TargetIDs,
		})

	case api.EvUseFlask:
		var p api.FlaskPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.Type == "" {
			return false, fmt.Errorf("%w: bad use_flask payload", domain.ErrValidation)
		}
		return false, c.Instance.UseFlask(c.CharacterID, p.Type)

	case api.EvCollectLoot:
		var p api.CollectLootPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.DropID == "" {
			return false, fmt.Errorf("%w: bad collect_loot payload", domain.ErrValidation)
		}
		return false, c.Instance.CollectLoot(c.CharacterID, p.DropID)

	case api.EvInstanceState:
		// Явный запрос ресинка после потери событий.
		return false, c.Instance.Resync(c.CharacterID)

	case api.EvReturnToHub:
		return true, nil

	default:
		return false, fmt.Errorf("%w: unknown event type %q", domain.ErrValidation, ev.Type)
	}
}

// sendDirect пишет событие в сокет до подписки на Broadcaster
// (ошибки handshake-а).
func (c *Client) sendDirect(ev api.ServerEvent) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err == nil {
		_ = c.Conn.WriteJSON(ev)
	}
}

// writePump отправляет события клиенту + Ping.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.done)
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Debug("failed to close instance websocket in writePump")
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
