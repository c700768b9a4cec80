package domain

// Статусы инстанса.
const (
	InstanceCreating  = "creating"
	InstanceReady     = "ready"
	InstanceInDungeon = "in-dungeon"
)

// InstanceRecord - запись о выделенном инстансе на стороне хаба.
// Создается Instance Manager-ом, потребляется целевым instance-server
// через handshake POST /initialize (с проверкой подписанного токена).
type InstanceRecord struct {
	ID         string   `json:"id"`
	ServerURL  string   `json:"serverUrl"`
	Token      string   `json:"token"`
	PartyID    string   `json:"partyId"`
	BiomeID    string   `json:"biomeId"`
	Difficulty int      `json:"difficulty"`
	LayerCount int      `json:"layerCount"`
	Seed       int64    `json:"seed"`
	Status     string   `json:"status"`
	Members    []string `json:"members"`
}
