package instance

import (
	"runtime"
	"sync"

	"voxel-server/pkg/dungeon"
	"voxel-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// genJob - одна заявка на генерацию подземелья.
type genJob struct {
	biomeID    string
	difficulty int
	layerCount int
	seed       int64
	reply      chan genResult
}

type genResult struct {
	dungeon *dungeon.Dungeon
	err     error
}

// GenPool гоняет генерацию подземелий в ограниченном пуле воркеров,
// чтобы всплеск start_dungeon не съел CPU игровых тиков.
// Очередь буферизована; лишние заявки ждут своей очереди, а не отклоняются.
type GenPool struct {
	gen  *dungeon.Generator
	jobs chan genJob

	closeOnce sync.Once
	log       *logrus.Entry
}

// NewGenPool запускает max(1, NumCPU-1) воркеров с очередью queueSize.
func NewGenPool(gen *dungeon.Generator, queueSize int) *GenPool {
	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}

	p := &GenPool{
		gen:  gen,
		jobs: make(chan genJob, queueSize),
		log:  logger.Component("genpool"),
	}
	for w := 0; w < workers; w++ {
		go p.worker()
	}

	p.log.WithFields(logrus.Fields{
		"workers": workers,
		"queue":   queueSize,
	}).Info("Dungeon generation pool started")
	return p
}

func (p *GenPool) worker() {
	for job := range p.jobs {
		d, err := p.gen.Generate(job.biomeID, job.difficulty, job.layerCount, job.seed)
		job.reply <- genResult{dungeon: d, err: err}
	}
}

// Generate ставит заявку в очередь и ждет результата. При полной очереди
// вызов блокируется до освобождения воркера, генерация занимает миллисекунды.
func (p *GenPool) Generate(biomeID string, difficulty, layerCount int, seed int64) (*dungeon.Dungeon, error) {
	job := genJob{
		biomeID:    biomeID,
		difficulty: difficulty,
		layerCount: layerCount,
		seed:       seed,
		reply:      make(chan genResult, 1),
	}

	p.jobs <- job
	res := <-job.reply
	return res.dungeon, res.err
}

// Close останавливает воркеров после опустошения очереди.
func (p *GenPool) Close() {
	p.closeOnce.Do(func() { close(p.jobs) })
}
