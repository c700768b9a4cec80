package network

import (
	"sync"

	"voxel-server/pkg/api"
)

// Broadcaster занимается только рассылкой событий подписчикам.
// Один экземпляр на хаб и по одному на каждый инстанс.
type Broadcaster struct {
	mu sync.RWMutex
	// Мапа: characterID -> личный канал
	subscribers map[string]chan api.ServerEvent
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]chan api.ServerEvent),
	}
}

// Register создает личный канал для игрока.
func (b *Broadcaster) Register(characterID string) chan api.ServerEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Если канал был (переподключение), закрываем старый
	if old, ok := b.subscribers[characterID]; ok {
		close(old)
	}

	ch := make(chan api.ServerEvent, 100)
	b.subscribers[characterID] = ch
	return ch
}

// Unregister удаляет подписчика.
func (b *Broadcaster) Unregister(characterID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[characterID]; ok {
		close(ch)
		delete(b.subscribers, characterID)
	}
}

// SendTo отправляет событие конкретному игроку (Unicast).
func (b *Broadcaster) SendTo(characterID string, msg api.ServerEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if ch, ok := b.subscribers[characterID]; ok {
		select {
		case ch <- msg:
		default:
			// Канал переполнен: медленный клиент теряет событие,
			// восстановится через instance_state/world_state.
		}
	}
}

// SendToMany отправляет событие каждому из списка (рассылка по пати).
func (b *Broadcaster) SendToMany(characterIDs []string, msg api.ServerEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, id := range characterIDs {
		if ch, ok := b.subscribers[id]; ok {
			select {
			case ch <- msg:
			default:
			}
		}
	}
}

// Broadcast отправляет всем подписчикам.
func (b *Broadcaster) Broadcast(msg api.ServerEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

// BroadcastExcept отправляет всем, кроме указанного игрока
// (например, player_moved не возвращается источнику).
func (b *Broadcaster) BroadcastExcept(characterID string, msg api.ServerEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		if id == characterID {
			continue
		}
		select {
		case ch <- msg:
		default:
		}
	}
}

// HasSubscriber проверяет, подключен ли игрок.
func (b *Broadcaster) HasSubscriber(characterID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.subscribers[characterID]
	return ok
}

// SubscriberCount возвращает количество активных подписчиков.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
