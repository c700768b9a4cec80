package instance

import (
	"fmt"
	"time"

	"voxel-server/internal/combat"
	"voxel-server/internal/domain"
	"voxel-server/internal/network"
	"voxel-server/internal/store"
	"voxel-server/pkg/api"
	"voxel-server/pkg/dungeon"
	"voxel-server/pkg/logger"
	"voxel-server/pkg/loot"
	"voxel-server/pkg/rng"

	"github.com/sirupsen/logrus"
)

// Тайминги жизненного цикла инстанса.
const (
	tickInterval      = 100 * time.Millisecond
	completeCountdown = 15 * time.Second // boss_defeated -> dungeon_complete
	teardownDelay     = 5 * time.Second  // dungeon_complete -> снос инстанса
)

// CharacterSink пишет записи персонажей best-effort (выход, завершение).
type CharacterSink interface {
	Save(rec *domain.CharacterRecord) error
}

// Instance - один живой данж. Все мутации состояния проходят через
// единственный актор-цикл Run: команды сериализуются каналом, тикер
// двигает симуляцию. Store и Engine поэтому обходятся без блокировок.
type Instance struct {
	ID      string
	PartyID string
	members map[string]bool

	Dungeon    *dungeon.Dungeon
	difficulty int

	store  *store.Store
	engine *combat.Engine
	rng    *rng.Source

	Hub  *network.Broadcaster
	sink CharacterSink

	commands chan func()
	stop     chan struct{}

	completeAfter time.Duration
	teardownAfter time.Duration

	// onTeardown зовется ровно один раз после остановки цикла.
	onTeardown func(instanceID, partyID string)

	started      bool // хотя бы один игрок заходил
	bossDefeated bool
	completed    bool
	torndown     bool

	log *logrus.Entry
}

func NewInstance(rec *domain.InstanceRecord, d *dungeon.Dungeon, abilities combat.AbilityCatalog, sink CharacterSink, onTeardown func(instanceID, partyID string)) *Instance {
	members := make(map[string]bool, len(rec.Members))
	for _, m := range rec.Members {
		members[m] = true
	}

	st := store.New(d)
	inst := &Instance{
		ID:            rec.ID,
		PartyID:       rec.PartyID,
		members:       members,
		Dungeon:       d,
		difficulty:    rec.Difficulty,
		store:         st,
		engine:        combat.NewEngine(st, abilities),
		rng:           rng.New(d.Seed + 1), // независимый поток для лута
		Hub:           network.NewBroadcaster(),
		sink:          sink,
		commands:      make(chan func(), 64),
		stop:          make(chan struct{}),
		completeAfter: completeCountdown,
		teardownAfter: teardownDelay,
		onTeardown:    onTeardown,
		log:           logger.Component("instance").WithField("instance", rec.ID),
	}
	return inst
}

// Run - актор-цикл инстанса. Запускается в отдельной горутине,
// завершается при teardown-е.
func (i *Instance) Run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-i.stop:
			return
		case cmd := <-i.commands:
			cmd()
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			i.tick(dt)
		}
	}
}

// do сериализует команду через актор-цикл и дожидается выполнения.
func (i *Instance) do(cmd func()) error {
	done := make(chan struct{})
	select {
	case i.commands <- func() { cmd(); close(done) }:
	case <-i.stop:
		return fmt.Errorf("%w: instance %s is shutting down", domain.ErrUnavailable, i.ID)
	}
	select {
	case <-done:
		return nil
	case <-i.stop:
		return fmt.Errorf("%w: instance %s is shutting down", domain.ErrUnavailable, i.ID)
	}
}

// later перезапускает cmd в актор-цикле по таймеру, не блокируясь.
func (i *Instance) later(d time.Duration, cmd func()) {
	time.AfterFunc(d, func() {
		select {
		case i.commands <- cmd:
		case <-i.stop:
		}
	})
}

// --- ВХОД/ВЫХОД ---

// Join вводит игрока в инстанс. Вызывается из горутины клиента после
// проверки токена; членство в пати сверяется по списку из handshake.
func (i *Instance) Join(rec *domain.CharacterRecord, socketID string) error {
	var joinErr error
	err := i.do(func() {
		if !i.members[rec.ID] {
			joinErr = fmt.Errorf("%w: character %s is not in party %s", domain.ErrUnauthorized, rec.ID, i.PartyID)
			return
		}
		if _, ok := i.store.Player(rec.ID); ok {
			joinErr = fmt.Errorf("%w: character %s is already in the instance", domain.ErrValidation, rec.ID)
			return
		}

		player := domain.NewPlayerFromRecord(rec, socketID, i.Dungeon.StartPosition)
		i.store.AddPlayer(player)
		i.started = true

		i.Hub.SendTo(rec.ID, api.ServerEvent{
			Type:    api.EvInstanceJoined,
			Payload: i.snapshot(),
		})
		i.Hub.BroadcastExcept(rec.ID, api.ServerEvent{
			Type: api.EvPlayerJoinedInstance,
			Payload: api.PlayerInstanceViewPayload{
				CharacterID: player.ID,
				Name:        player.Name,
				Class:       player.Class,
				Level:       player.Level,
				Position:    player.Position,
				Health:      player.Health,
				MaxHealth:   player.MaxHealth,
			},
		})
		i.log.WithField("character", rec.ID).Info("Player joined instance")
	})
	if err != nil {
		return err
	}
	return joinErr
}

// Leave выводит игрока (return_to_hub или дисконнект): прогресс
// сохраняется best-effort, остальные получают player_left_instance.
// Последний ушедший делает инстанс кандидатом на снос.
func (i *Instance) Leave(characterID string) {
	_ = i.do(func() {
		player, ok := i.store.Player(characterID)
		if !ok {
			return
		}
		i.persist(player)
		i.store.RemovePlayer(characterID)

		i.Hub.Broadcast(api.ServerEvent{
			Type:    api.EvPlayerLeftInstance,
			Payload: api.PlayerInstanceViewPayload{CharacterID: characterID},
		})
		i.log.WithField("character", characterID).Info("Player left instance")

		if i.started && i.store.PlayerCount() == 0 && !i.torndown {
			i.teardown("instance is empty")
		}
	})
}

// Resync отправляет игроку полный снимок состояния.
func (i *Instance) Resync(characterID string) error {
	return i.do(func() {
		i.Hub.SendTo(characterID, api.ServerEvent{
			Type:    api.EvInstanceState,
			Payload: i.snapshot(),
		})
	})
}

// --- ИГРОВЫЕ СОБЫТИЯ ---

// Move обновляет позицию игрока.
func (i *Instance) Move(characterID string, in api.MovePayload) error {
	var opErr error
	err := i.do(func() {
		if opErr = i.store.UpdatePlayerPosition(characterID, in.Position, in.Rotation); opErr != nil {
			return
		}
		i.Hub.BroadcastExcept(characterID, api.ServerEvent{
			Type: api.EvPlayerMoved,
			Payload: api.PlayerMovedPayload{
				CharacterID: characterID,
				Position:    in.Position,
				Rotation:    in.Rotation,
			},
		})
	})
	if err != nil {
		return err
	}
	return opErr
}

// Attack разрешает атаку и запускает каскад смерти по убитым.
func (i *Instance) Attack(characterID string, in combat.AttackInput) error {
	var opErr error
	err := i.do(func() {
		results, err := i.engine.ProcessPlayerAttack(characterID, in)
		if err != nil {
			opErr = err
			return
		}

		i.Hub.Broadcast(api.ServerEvent{
			Type: api.EvAttackExecuted,
			Payload: api.AttackExecutedPayload{
				CharacterID: characterID,
				Type:        in.Type,
				Direction:   in.Direction,
				Results:     results,
			},
		})

		var killed []string
		for _, r := range results {
			if r.Killed {
				killed = append(killed, r.TargetID)
			}
		}
		i.processKills(killed)
	})
	if err != nil {
		return err
	}
	return opErr
}

// UseAbility разрешает способность и запускает каскад смерти.
func (i *Instance) UseAbility(characterID string, in combat.AbilityInput) error {
	var opErr error
	err := i.do(func() {
		results, err := i.engine.ProcessAbilityUse(characterID, in)
		if err != nil {
			opErr = err
			return
		}

		i.Hub.Broadcast(api.ServerEvent{
			Type: api.EvAbilityUsed,
			Payload: api.AbilityUsedPayload{
				CharacterID: characterID,
				AbilityID:   in.AbilityID,
				Results:     results,
			},
		})

		var killed []string
		for _, r := range results {
			if r.Killed {
				killed = append(killed, r.TargetID)
			}
		}
		i.processKills(killed)
	})
	if err != nil {
		return err
	}
	return opErr
}

// UseFlask применяет флягу: детали - только пьющему, факт - остальным.
func (i *Instance) UseFlask(characterID, flaskType string) error {
	var opErr error
	err := i.do(func() {
		result, err := i.store.UseFlask(characterID, flaskType)
		if err != nil {
			opErr = err
			return
		}

		i.Hub.SendTo(characterID, api.ServerEvent{Type: api.EvFlaskUsed, Payload: result})
		i.Hub.BroadcastExcept(characterID, api.ServerEvent{
			Type:    api.EvPlayerUsedFlask,
			Payload: api.PlayerFlaskPayload{CharacterID: characterID, Type: flaskType},
		})
	})
	if err != nil {
		return err
	}
	return opErr
}

// CollectLoot подбирает дроп в инвентарь игрока.
func (i *Instance) CollectLoot(characterID, dropID string) error {
	var opErr error
	err := i.do(func() {
		items, err := i.store.CollectLoot(dropID, characterID)
		if err != nil {
			opErr = err
			return
		}

		i.Hub.Broadcast(api.ServerEvent{
			Type: api.EvLootCollected,
			Payload: api.LootCollectedPayload{
				CharacterID: characterID,
				DropID:      dropID,
				Items:       items,
			},
		})
	})
	if err != nil {
		return err
	}
	return opErr
}

// --- СИМУЛЯЦИЯ И КАСКАДЫ ---

// tick - периодический шаг симуляции: снаряды, коллизии, каскады.
// Выполняется только внутри актор-цикла.
func (i *Instance) tick(dt float64) {
	hits := i.store.UpdateEntities(dt)
	if len(hits) == 0 {
		return
	}

	i.Hub.Broadcast(api.ServerEvent{Type: api.EvProjectileHits, Payload: hits})

	var killed []string
	for _, hit := range hits {
		switch hit.TargetKind {
		case "enemy":
			if hit.Enemy != nil && hit.Enemy.Killed {
				killed = append(killed, hit.TargetID)
			}
		case "player":
			if hit.PlayerHealth <= 0 {
				i.Hub.Broadcast(api.ServerEvent{
					Type:    api.EvPlayerDefeated,
					Payload: api.PlayerDefeatedPayload{CharacterID: hit.TargetID},
				})
			}
		}
	}
	i.processKills(killed)
}

// processKills - каскад смерти: лут генерируется по снимку врага
// ДО удаления из стора, затем enemies_defeated одним событием.
// Убитый босс запускает обратный отсчет завершения.
func (i *Instance) processKills(killed []string) {
	if len(killed) == 0 {
		return
	}

	var defeated []string
	var drops []*domain.LootDrop
	bossDied := false
	var bossPos domain.Vec3

	for _, id := range killed {
		enemy, ok := i.store.Enemy(id)
		if !ok {
			// Дубликат killed-сигнала: враг уже удален предыдущим каскадом.
			continue
		}

		items := loot.Generate(enemy, i.difficulty, i.rng)
		if len(items) > 0 {
			drops = append(drops, i.store.AddLootDrop(enemy.Position, items))
		}
		if enemy.Type == domain.EnemyTypeBoss {
			bossDied = true
			bossPos = enemy.Position
		}

		i.store.RemoveEnemy(id)
		defeated = append(defeated, id)
	}

	if len(defeated) == 0 {
		return
	}

	i.Hub.Broadcast(api.ServerEvent{
		Type: api.EvEnemiesDefeated,
		Payload: api.EnemiesDefeatedPayload{
			EnemyIDs:  defeated,
			LootDrops: drops,
		},
	})
	i.log.WithField("count", len(defeated)).Debug("Enemies defeated")

	if bossDied && !i.bossDefeated {
		i.bossDefeated = true
		i.Hub.Broadcast(api.ServerEvent{
			Type: api.EvBossDefeated,
			Payload: api.BossDefeatedPayload{
				PortalPosition:   bossPos,
				CountdownSeconds: int(i.completeAfter.Seconds()),
			},
		})
		i.log.Info("Boss defeated, completion countdown started")
		i.later(i.completeAfter, i.complete)
	}
}

// complete завершает подземелье: прогресс всех сохраняется, через
// teardownDelay инстанс сносится.
func (i *Instance) complete() {
	if i.completed || i.torndown {
		return
	}
	i.completed = true

	for _, p := range i.store.Players() {
		i.persist(p)
	}
	i.Hub.Broadcast(api.ServerEvent{Type: api.EvDungeonComplete})
	i.log.Info("Dungeon complete")

	i.later(i.teardownAfter, func() { i.teardown("dungeon complete") })
}

// teardown останавливает актор-цикл. Выполняется внутри цикла.
func (i *Instance) teardown(reason string) {
	if i.torndown {
		return
	}
	i.torndown = true
	close(i.stop)

	i.log.WithField("reason", reason).Info("Instance torn down")
	if i.onTeardown != nil {
		go i.onTeardown(i.ID, i.PartyID)
	}
}

// persist пишет состояние игрока best-effort: ошибка логируется,
// игровой поток не прерывается.
func (i *Instance) persist(p *domain.Player) {
	if i.sink == nil {
		return
	}
	rec := &domain.CharacterRecord{
		ID:        p.ID,
		Name:      p.Name,
		Class:     p.Class,
		Level:     p.Level,
		MaxHealth: p.MaxHealth,
		MaxEnergy: p.MaxEnergy,
		Flasks:    p.Flasks,
		Inventory: p.Inventory,
		Equipment: p.Equipment,
	}
	if err := i.sink.Save(rec); err != nil {
		i.log.WithError(err).WithField("character", p.ID).Warn("Failed to persist character")
	}
}

func (i *Instance) snapshot() api.InstanceStatePayload {
	return api.InstanceStatePayload{
		InstanceID:  i.ID,
		Dungeon:     i.Dungeon,
		Players:     i.store.Players(),
		Enemies:     i.store.Enemies(),
		Projectiles: i.store.Projectiles(),
		LootDrops:   i.store.LootDrops(),
	}
}

// PlayerCount - число игроков (для /health).
func (i *Instance) PlayerCount() int {
	n := 0
	_ = i.do(func() { n = i.store.PlayerCount() })
	return n
}
