package instance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"voxel-server/internal/domain"
	"voxel-server/internal/token"
	"voxel-server/pkg/logger"
	"voxel-server/pkg/utils"

	"github.com/sirupsen/logrus"
)

// Manager живет в процессе хаба: выделяет инстансы на инстанс-серверах
// и ведет реестр активных. Реализует hub.Allocator.
type Manager struct {
	mu        sync.Mutex
	instances map[string]*domain.InstanceRecord
	servers   []string // host:port инстанс-серверов
	next      int      // round-robin курсор

	signer *token.Signer
	client *http.Client

	// onReleased зовется при освобождении инстанса (teardown на сервере).
	onReleased func(partyID string)

	log *logrus.Entry
}

func NewManager(servers []string, signer *token.Signer) *Manager {
	return &Manager{
		instances: make(map[string]*domain.InstanceRecord),
		servers:   servers,
		signer:    signer,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       logger.Component("instance_manager"),
	}
}

// OnReleased устанавливает колбек возврата пати в хаб.
func (m *Manager) OnReleased(fn func(partyID string)) {
	m.onReleased = fn
}

// Allocate выделяет инстанс под пати: подписанный токен, запись в
// реестре, handshake POST /initialize на целевой сервер. Недоступный
// сервер откатывает запись целиком - пати остается в хабе как была.
func (m *Manager) Allocate(party *domain.Party, biomeID string, difficulty, layerCount int) (*domain.InstanceRecord, error) {
	if len(m.servers) == 0 {
		return nil, fmt.Errorf("%w: no instance servers configured", domain.ErrUnavailable)
	}

	id := utils.PrefixedID("inst_")
	signed, err := m.signer.Issue(id, party.ID)
	if err != nil {
		return nil, fmt.Errorf("issue instance token: %w", err)
	}

	m.mu.Lock()
	addr := m.servers[m.next%len(m.servers)]
	m.next++

	record := &domain.InstanceRecord{
		ID:         id,
		ServerURL:  "ws://" + addr + "/ws",
		Token:      signed,
		PartyID:    party.ID,
		BiomeID:    biomeID,
		Difficulty: difficulty,
		LayerCount: layerCount,
		Seed:       time.Now().UnixNano(),
		Status:     domain.InstanceCreating,
		Members:    append([]string(nil), party.Members...),
	}
	m.instances[id] = record
	m.mu.Unlock()

	if err := m.initialize(addr, record); err != nil {
		// Откат: запись не должна пережить неудавшийся handshake.
		m.mu.Lock()
		delete(m.instances, id)
		m.mu.Unlock()

		m.log.WithError(err).WithField("server", addr).Warn("Instance initialization failed, allocation rolled back")
		return nil, fmt.Errorf("%w: instance server %s: %v", domain.ErrUnavailable, addr, err)
	}

	m.mu.Lock()
	record.Status = domain.InstanceReady
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"instance": id,
		"server":   addr,
		"party":    party.ID,
		"biome":    biomeID,
	}).Info("Instance allocated")
	return record, nil
}

// initialize - handshake с инстанс-сервером.
func (m *Manager) initialize(addr string, record *domain.InstanceRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return err
	}

	resp, err := m.client.Post("http://"+addr+"/initialize", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("initialize returned %d", resp.StatusCode)
	}
	return nil
}

// Release убирает инстанс из реестра и возвращает пати в хаб.
// Вызывается по уведомлению от инстанс-сервера.
func (m *Manager) Release(instanceID string) {
	m.mu.Lock()
	record, ok := m.instances[instanceID]
	if ok {
		delete(m.instances, instanceID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	m.log.WithField("instance", instanceID).Info("Instance released")
	if m.onReleased != nil {
		m.onReleased(record.PartyID)
	}
}

// Active возвращает число активных инстансов (для /health).
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.instances)
}

// HandleReleased - HTTP-роут для уведомлений об освобождении
// (монтируется в процессе хаба).
func (m *Manager) HandleReleased(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InstanceID string `json:"instanceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.InstanceID == "" {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	m.Release(body.InstanceID)
	w.WriteHeader(http.StatusOK)
}
