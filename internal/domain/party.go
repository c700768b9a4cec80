package domain

// Статусы пати. Переход в StatusInDungeon происходит неявно
// при успешном назначении инстанса.
const (
	PartyForming   = "forming"
	PartyReady     = "ready"
	PartyInDungeon = "in-dungeon"
)

// Party - группа игроков в хабе. Инвариант: Leader всегда входит в Members
// (кроме мгновения перед расформированием); пати с нулем участников удаляется.
type Party struct {
	ID         string   `json:"id"`
	Leader     string   `json:"leader"` // characterId
	Members    []string `json:"members"` // порядок = порядок вступления
	MaxSize    int      `json:"maxSize"`
	Status     string   `json:"status"`
	InstanceID string   `json:"instanceId,omitempty"`
}

func (p *Party) HasMember(characterID string) bool {
	for _, m := range p.Members {
		if m == characterID {
			return true
		}
	}
	return false
}

func (p *Party) IsFull() bool {
	return len(p.Members) >= p.MaxSize
}

// RemoveMember убирает участника, сохраняя порядок остальных.
func (p *Party) RemoveMember(characterID string) {
	for i, m := range p.Members {
		if m == characterID {
			p.Members = append(p.Members[:i], p.Members[i+1:]...)
			return
		}
	}
}
