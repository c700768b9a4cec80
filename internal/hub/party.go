package hub

import (
	"fmt"

	"voxel-server/internal/domain"
	"voxel-server/pkg/utils"
)

// PartyManager держит все пати хаба. НЕ потокобезопасен:
// доступ сериализуется мьютексом Service.
type PartyManager struct {
	parties map[string]*domain.Party
	// Обратный индекс: characterID -> partyID
	membership map[string]string
	maxSize    int
}

func NewPartyManager(maxSize int) *PartyManager {
	return &PartyManager{
		parties:    make(map[string]*domain.Party),
		membership: make(map[string]string),
		maxSize:    maxSize,
	}
}

// Create создает пати с создателем в роли лидера.
// Игрок, уже состоящий в пати, создать вторую не может.
func (pm *PartyManager) Create(leaderID string) (*domain.Party, error) {
	if partyID, ok := pm.membership[leaderID]; ok {
		return nil, fmt.Errorf("%w: already in party %s", domain.ErrValidation, partyID)
	}

	party := &domain.Party{
		ID:      utils.PrefixedID("party_"),
		Leader:  leaderID,
		Members: []string{leaderID},
		MaxSize: pm.maxSize,
		Status:  domain.PartyForming,
	}
	pm.parties[party.ID] = party
	pm.membership[leaderID] = party.ID
	return party, nil
}

// Join добавляет игрока в существующую пати.
func (pm *PartyManager) Join(partyID, characterID string) (*domain.Party, error) {
	if existing, ok := pm.membership[characterID]; ok {
		return nil, fmt.Errorf("%w: already in party %s", domain.ErrValidation, existing)
	}

	party, ok := pm.parties[partyID]
	if !ok {
		return nil, fmt.Errorf("%w: party %s", domain.ErrNotFound, partyID)
	}
	if party.IsFull() {
		return nil, fmt.Errorf("%w: party %s is full", domain.ErrValidation, partyID)
	}
	if party.Status == domain.PartyInDungeon {
		return nil, fmt.Errorf("%w: party %s is already in a dungeon", domain.ErrValidation, partyID)
	}

	party.Members = append(party.Members, characterID)
	pm.membership[characterID] = partyID
	return party, nil
}

// Leave убирает игрока из его пати. Если уходит лидер, лидерство
// переходит к самому раннему из оставшихся; пустая пати расформировывается.
// Возвращает пати после изменения и флаг расформирования.
func (pm *PartyManager) Leave(characterID string) (*domain.Party, bool, error) {
	partyID, ok := pm.membership[characterID]
	if !ok {
		return nil, false, fmt.Errorf("%w: not in a party", domain.ErrNotFound)
	}
	party := pm.parties[partyID]

	party.RemoveMember(characterID)
	delete(pm.membership, characterID)

	if len(party.Members) == 0 {
		delete(pm.parties, partyID)
		return party, true, nil
	}
	if party.Leader == characterID {
		party.Leader = party.Members[0]
	}
	return party, false, nil
}

// PartyOf возвращает пати игрока.
func (pm *PartyManager) PartyOf(characterID string) (*domain.Party, bool) {
	partyID, ok := pm.membership[characterID]
	if !ok {
		return nil, false
	}
	return pm.parties[partyID], true
}

// Get возвращает пати по ID.
func (pm *PartyManager) Get(partyID string) (*domain.Party, bool) {
	p, ok := pm.parties[partyID]
	return p, ok
}

// All возвращает все пати хаба (для world_state).
func (pm *PartyManager) All() []*domain.Party {
	out := make([]*domain.Party, 0, len(pm.parties))
	for _, p := range pm.parties {
		out = append(out, p)
	}
	return out
}
