package domain

// CharacterRecord - персистентная запись персонажа в key-value хранилище.
// Ядро читает её при входе в мир и пишет best-effort при выходе из
// инстанса / завершении подземелья. Гарантий долговечности нет.
type CharacterRecord struct {
	ID        string            `yaml:"id" json:"id"`
	Name      string            `yaml:"name" json:"name"`
	Class     string            `yaml:"class" json:"class"`
	Level     int               `yaml:"level" json:"level"`
	MaxHealth int               `yaml:"maxHealth" json:"maxHealth"`
	MaxEnergy int               `yaml:"maxEnergy" json:"maxEnergy"`
	Flasks    map[string]*Flask `yaml:"flasks" json:"flasks"`
	Inventory []Item            `yaml:"inventory" json:"inventory"`
	Equipment map[string]Item   `yaml:"equipment" json:"equipment"`
}

// NewPlayerFromRecord разворачивает персистентную запись в живое
// состояние игрока внутри инстанса.
func NewPlayerFromRecord(rec *CharacterRecord, socketID string, spawn Vec3) *Player {
	flasks := rec.Flasks
	if flasks == nil {
		flasks = map[string]*Flask{
			FlaskHealth: {Tier: 1, Charges: 3},
			FlaskEnergy: {Tier: 1, Charges: 3},
		}
	}
	equipment := rec.Equipment
	if equipment == nil {
		equipment = make(map[string]Item)
	}

	return &Player{
		ID:        rec.ID,
		SocketID:  socketID,
		Name:      rec.Name,
		Class:     rec.Class,
		Level:     rec.Level,
		Health:    rec.MaxHealth,
		MaxHealth: rec.MaxHealth,
		Energy:    rec.MaxEnergy,
		MaxEnergy: rec.MaxEnergy,
		Position:  spawn,
		Flasks:    flasks,
		Inventory: rec.Inventory,
		Equipment: equipment,
	}
}
