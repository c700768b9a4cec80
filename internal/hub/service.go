package hub

import (
	"fmt"
	"sync"

	"voxel-server/internal/domain"
	"voxel-server/internal/network"
	"voxel-server/pkg/api"
	"voxel-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// Allocator выделяет инстанс под пати. Реализуется Instance Manager-ом.
type Allocator interface {
	Allocate(party *domain.Party, biomeID string, difficulty, layerCount int) (*domain.InstanceRecord, error)
}

// CharacterSource читает персистентные записи персонажей.
type CharacterSource interface {
	Load(characterID string) (*domain.CharacterRecord, error)
}

// hubPlayer - онлайн-игрок в общем пространстве хаба.
type hubPlayer struct {
	Record   *domain.CharacterRecord
	Position domain.Vec3
	Rotation domain.Vec3
}

// Service - координатор хаба: единое общее пространство, пати,
// запуск подземелий. Все состояние под одним мьютексом: нагрузка хаба -
// это редкие события лобби, актор-цикл здесь не нужен.
type Service struct {
	mu      sync.Mutex
	players map[string]*hubPlayer
	parties *PartyManager

	Hub   *network.Broadcaster
	chars CharacterSource
	alloc Allocator
	log   *logrus.Entry
}

func NewService(chars CharacterSource, alloc Allocator, partyMaxSize int) *Service {
	return &Service{
		players: make(map[string]*hubPlayer),
		parties: NewPartyManager(partyMaxSize),
		Hub:     network.NewBroadcaster(),
		chars:   chars,
		alloc:   alloc,
		log:     logger.Component("hub"),
	}
}

func (s *Service) view(characterID string, p *hubPlayer) api.HubPlayerView {
	return api.HubPlayerView{
		CharacterID: characterID,
		Name:        p.Record.Name,
		Class:       p.Record.Class,
		Level:       p.Record.Level,
		Position:    p.Position,
		Rotation:    p.Rotation,
	}
}

// JoinWorld вводит игрока в хаб: снимок мира ему, уведомление остальным.
func (s *Service) JoinWorld(characterID string, in api.JoinWorldPayload) error {
	rec, err := s.chars.Load(characterID)
	if err != nil {
		return fmt.Errorf("load character %s: %w", characterID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	me := &hubPlayer{Record: rec, Position: in.Position}
	s.players[characterID] = me

	others := make([]api.HubPlayerView, 0, len(s.players)-1)
	for id, p := range s.players {
		if id == characterID {
			continue
		}
		others = append(others, s.view(id, p))
	}

	state := api.WorldStatePayload{
		Player:  s.view(characterID, me),
		Players: others,
		Parties: s.parties.All(),
	}
	if party, ok := s.parties.PartyOf(characterID); ok {
		state.PlayerParty = party
	}

	s.Hub.SendTo(characterID, api.ServerEvent{Type: api.EvWorldState, Payload: state})
	s.Hub.BroadcastExcept(characterID, api.ServerEvent{
		Type:    api.EvPlayerJoined,
		Payload: s.view(characterID, me),
	})

	s.log.WithFields(logrus.Fields{
		"character": characterID,
		"name":      rec.Name,
		"online":    len(s.players),
	}).Info("Player joined the hub")
	return nil
}

// Move обновляет позицию игрока и рассылает её остальным.
func (s *Service) Move(characterID string, in api.MovePayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[characterID]
	if !ok {
		return fmt.Errorf("%w: player %s is not in the hub", domain.ErrNotFound, characterID)
	}
	p.Position = in.Position
	p.Rotation = in.Rotation

	s.Hub.BroadcastExcept(characterID, api.ServerEvent{
		Type: api.EvPlayerMoved,
		Payload: api.PlayerMovedPayload{
			CharacterID: characterID,
			Position:    in.Position,
			Rotation:    in.Rotation,
		},
	})
	return nil
}

// CreateParty создает пати, игрок становится лидером.
func (s *Service) CreateParty(characterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	party, err := s.parties.Create(characterID)
	if err != nil {
		return err
	}

	s.Hub.SendTo(characterID, api.ServerEvent{Type: api.EvPartyCreated, Payload: party})
	s.Hub.BroadcastExcept(characterID, api.ServerEvent{Type: api.EvPartyUpdated, Payload: party})
	return nil
}

// JoinParty добавляет игрока в пати.
func (s *Service) JoinParty(characterID string, in api.JoinPartyPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	party, err := s.parties.Join(in.PartyID, characterID)
	if err != nil {
		return err
	}

	s.Hub.Broadcast(api.ServerEvent{Type: api.EvPartyUpdated, Payload: party})
	return nil
}

// LeaveParty убирает игрока из пати (с возможной сменой лидера
// или расформированием).
func (s *Service) LeaveParty(characterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.leavePartyLocked(characterID)
}

func (s *Service) leavePartyLocked(characterID string) error {
	party, disbanded, err := s.parties.Leave(characterID)
	if err != nil {
		return err
	}

	s.Hub.SendTo(characterID, api.ServerEvent{Type: api.EvLeftParty, Payload: party})
	if disbanded {
		s.Hub.Broadcast(api.ServerEvent{Type: api.EvPartyDisbanded, Payload: party})
	} else {
		s.Hub.Broadcast(api.ServerEvent{Type: api.EvPartyUpdated, Payload: party})
	}
	return nil
}

// StartDungeon запускает подземелье для пати. Только лидер.
// При недоступности инстанс-сервера пати остается в хабе нетронутой:
// менеджер откатывает выделение, статус не меняется.
func (s *Service) StartDungeon(characterID string, in api.StartDungeonPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	party, ok := s.parties.PartyOf(characterID)
	if !ok {
		return fmt.Errorf("%w: not in a party", domain.ErrNotFound)
	}
	if party.Leader != characterID {
		return fmt.Errorf("%w: only the party leader can start a dungeon", domain.ErrUnauthorized)
	}
	if party.Status == domain.PartyInDungeon {
		return fmt.Errorf("%w: party is already in a dungeon", domain.ErrValidation)
	}

	record, err := s.alloc.Allocate(party, in.BiomeID, in.Difficulty, in.LayerCount)
	if err != nil {
		return err
	}

	party.Status = domain.PartyInDungeon
	party.InstanceID = record.ID

	ready := api.DungeonReadyPayload{
		InstanceID: record.ID,
		ServerURL:  record.ServerURL,
		Token:      record.Token,
	}
	s.Hub.SendToMany(party.Members, api.ServerEvent{Type: api.EvDungeonReady, Payload: ready})
	s.Hub.Broadcast(api.ServerEvent{Type: api.EvPartyUpdated, Payload: party})

	s.log.WithFields(logrus.Fields{
		"party":    party.ID,
		"instance": record.ID,
		"biome":    in.BiomeID,
		"members":  len(party.Members),
	}).Info("Dungeon started")
	return nil
}

// PartyReturned возвращает пати в хаб после завершения/выхода из
// подземелья. Вызывается Instance Manager-ом при teardown-е инстанса.
func (s *Service) PartyReturned(partyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	party, ok := s.parties.Get(partyID)
	if !ok {
		return
	}
	party.Status = domain.PartyForming
	party.InstanceID = ""
	s.Hub.Broadcast(api.ServerEvent{Type: api.EvPartyUpdated, Payload: party})
}

// Disconnect вычищает игрока из хаба: из пати и из общего пространства.
func (s *Service) Disconnect(characterID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[characterID]; !ok {
		return
	}
	delete(s.players, characterID)

	if _, ok := s.parties.PartyOf(characterID); ok {
		// Ошибку глотаем: игрока уже нет, пати почищена.
		_ = s.leavePartyLocked(characterID)
	}

	s.Hub.Broadcast(api.ServerEvent{
		Type:    api.EvPlayerLeft,
		Payload: api.PlayerMovedPayload{CharacterID: characterID},
	})
	s.log.WithField("character", characterID).Info("Player left the hub")
}

// OnlineCount возвращает число игроков в хабе.
func (s *Service) OnlineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}
