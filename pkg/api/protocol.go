package api

import (
	"encoding/json"

	"voxel-server/internal/domain"
	"voxel-server/pkg/dungeon"
)

// Протокол реального времени: двунаправленные JSON-конверты поверх
// постоянного WebSocket-соединения. Один формат для хаба и инстансов.

// --- КОНВЕРТЫ ---

// ClientEvent - корневой объект всех сообщений клиент -> сервер.
// Структура Payload зависит от Type.
type ClientEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerEvent - корневой объект всех сообщений сервер -> клиент.
type ServerEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ErrorPayload - тело события "error". Отправляется только виновному
// сокету; ошибка одного игрока никогда не трогает чужие сессии.
type ErrorPayload struct {
	Code    string `json:"code"` // validation | unauthorized | not_found | exhausted | unavailable
	Message string `json:"message"`
}

// --- СОБЫТИЯ: ХАБ ---

const (
	EvJoinWorld      = "join_world"
	EvWorldState     = "world_state"
	EvPlayerMove     = "player_move"
	EvPlayerMoved    = "player_moved"
	EvPlayerJoined   = "player_joined"
	EvPlayerLeft     = "player_left"
	EvCreateParty    = "create_party"
	EvPartyCreated   = "party_created"
	EvJoinParty      = "join_party"
	EvPartyUpdated   = "party_updated"
	EvLeaveParty     = "leave_party"
	EvLeftParty      = "left_party"
	EvPartyDisbanded = "party_disbanded"
	EvStartDungeon   = "start_dungeon"
	EvDungeonReady   = "dungeon_ready"
	EvError          = "error"
)

// JoinWorldPayload: клиент входит в хаб после аутентификации.
type JoinWorldPayload struct {
	CharacterID string      `json:"characterId"`
	Position    domain.Vec3 `json:"position"`
}

// HubPlayerView - позиция и профиль игрока в общем пространстве хаба.
type HubPlayerView struct {
	CharacterID string      `json:"characterId"`
	Name        string      `json:"name"`
	Class       string      `json:"class"`
	Level       int         `json:"level"`
	Position    domain.Vec3 `json:"position"`
	Rotation    domain.Vec3 `json:"rotation"`
}

// WorldStatePayload - полный снимок хаба для вошедшего. Это же ответ
// для ресинка: клиент, пропустивший broadcast, восстанавливается отсюда.
type WorldStatePayload struct {
	Player      HubPlayerView   `json:"player"`
	Players     []HubPlayerView `json:"players"`
	Parties     []*domain.Party `json:"parties"`
	PlayerParty *domain.Party   `json:"playerParty,omitempty"`
}

// MovePayload: обновление позиции (хаб и инстанс).
type MovePayload struct {
	Position domain.Vec3 `json:"position"`
	Rotation domain.Vec3 `json:"rotation"`
}

// PlayerMovedPayload - broadcast о перемещении.
type PlayerMovedPayload struct {
	CharacterID string      `json:"characterId"`
	Position    domain.Vec3 `json:"position"`
	Rotation    domain.Vec3 `json:"rotation"`
}

// JoinPartyPayload: вступление в существующую пати.
type JoinPartyPayload struct {
	PartyID string `json:"partyId"`
}

// StartDungeonPayload: лидер запускает подземелье.
type StartDungeonPayload struct {
	BiomeID    string `json:"biomeId"`
	Difficulty int    `json:"difficulty"`
	LayerCount int    `json:"layerCount,omitempty"` // 0 = выбрать по биому
}

// DungeonReadyPayload рассылается всем участникам пати.
type DungeonReadyPayload struct {
	InstanceID string `json:"instanceId"`
	ServerURL  string `json:"serverUrl"`
	Token      string `json:"token"`
}

// --- СОБЫТИЯ: ИНСТАНС ---

const (
	EvJoinInstance         = "join_instance"
	EvInstanceJoined       = "instance_joined"
	EvPlayerJoinedInstance = "player_joined_instance"
	EvInstanceState        = "instance_state"
	EvPlayerAttack         = "player_attack"
	EvAttackExecuted       = "attack_executed"
	EvUseAbility           = "use_ability"
	EvAbilityUsed          = "ability_used"
	EvUseFlask             = "use_flask"
	EvFlaskUsed            = "flask_used"
	EvPlayerUsedFlask      = "player_used_flask"
	EvCollectLoot          = "collect_loot"
	EvLootCollected        = "loot_collected"
	EvReturnToHub          = "return_to_hub"
	EvPlayerLeftInstance   = "player_left_instance"
	EvPlayerDefeated       = "player_defeated"
	EvProjectileHits       = "projectile_hits"
	EvEnemiesDefeated      = "enemies_defeated"
	EvBossDefeated         = "boss_defeated"
	EvDungeonComplete      = "dungeon_complete"
)

// JoinInstancePayload: подключение к инстансу с токеном из dungeon_ready.
type JoinInstancePayload struct {
	CharacterID string `json:"characterId"`
	Token       string `json:"token"`
}

// InstanceStatePayload - полный снимок инстанса. Уходит как
// instance_joined вошедшему и как instance_state при явном ресинке.
type InstanceStatePayload struct {
	InstanceID  string               `json:"instanceId"`
	Dungeon     *dungeon.Dungeon     `json:"dungeon"`
	Players     []*domain.Player     `json:"players"`
	Enemies     []*domain.Enemy      `json:"enemies"`
	Projectiles []*domain.Projectile `json:"projectiles"`
	LootDrops   []*domain.LootDrop   `json:"lootDrops"`
}

// PlayerInstanceViewPayload - broadcast о входе/выходе игрока.
type PlayerInstanceViewPayload struct {
	CharacterID string      `json:"characterId"`
	Name        string      `json:"name"`
	Class       string      `json:"class"`
	Level       int         `json:"level"`
	Position    domain.Vec3 `json:"position"`
	Health      int         `json:"health"`
	MaxHealth   int         `json:"maxHealth"`
}

// AttackPayload: атака. TargetIDs - результат клиентского рейкаста,
// сервер их перепроверяет геометрически.
type AttackPayload struct {
	Type      string      `json:"type"` // melee | ranged
	Direction domain.Vec3 `json:"direction"`
	Position  domain.Vec3 `json:"position,omitempty"`
	TargetIDs []string    `json:"targetIds,omitempty"`
}

// AbilityPayload: применение способности.
type AbilityPayload struct {
	AbilityID      string       `json:"abilityId"`
	Direction      domain.Vec3  `json:"direction"`
	Position       domain.Vec3  `json:"position,omitempty"`
	TargetPosition *domain.Vec3 `json:"targetPosition,omitempty"`
	TargetIDs      []string     `json:"targetIds,omitempty"`
}

// FlaskPayload: глоток из фляги.
type FlaskPayload struct {
	Type string `json:"type"` // health | energy
}

// CollectLootPayload: подбор дропа.
type CollectLootPayload struct {
	DropID string `json:"dropId"`
}

// AttackExecutedPayload - broadcast результата атаки.
type AttackExecutedPayload struct {
	CharacterID string      `json:"characterId"`
	Type        string      `json:"type"`
	Direction   domain.Vec3 `json:"direction"`
	Results     any         `json:"results"`
}

// AbilityUsedPayload - broadcast результата способности.
type AbilityUsedPayload struct {
	CharacterID string `json:"characterId"`
	AbilityID   string `json:"abilityId"`
	Results     any    `json:"results"`
}

// PlayerFlaskPayload - broadcast о глотке (без деталей восстановления).
type PlayerFlaskPayload struct {
	CharacterID string `json:"characterId"`
	Type        string `json:"type"`
}

// LootCollectedPayload - broadcast о подобранном дропе.
type LootCollectedPayload struct {
	CharacterID string        `json:"characterId"`
	DropID      string        `json:"dropId"`
	Items       []domain.Item `json:"items"`
}

// EnemiesDefeatedPayload - каскад смерти: убитые враги и их дропы.
type EnemiesDefeatedPayload struct {
	EnemyIDs  []string           `json:"enemyIds"`
	LootDrops []*domain.LootDrop `json:"lootDrops"`
}

// BossDefeatedPayload - босс пал; через CountdownSeconds придет
// dungeon_complete. Клиентский UI обратного отсчета завязан на это поле.
type BossDefeatedPayload struct {
	PortalPosition   domain.Vec3 `json:"portalPosition"`
	CountdownSeconds int         `json:"countdownSeconds"`
}

// PlayerDefeatedPayload: здоровье игрока дошло до нуля. Сущность
// не удаляется автоматически - только сигнал.
type PlayerDefeatedPayload struct {
	CharacterID string `json:"characterId"`
}
