package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CreatorPay/internal/pkg/cache"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/env"
)

const defaultStatsInterval = 15 * time.Second

// Manager manages the global job queue and background tasks
type Manager struct {
	queue         *Queue
	statsInterval time.Duration
	statsTicker   *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := env.GetEnvInt("JOB_QUEUE_WORKERS", 5)
		globalManager = NewManager(NewQueue(cache.GetClient(), workerCount))
	})
	return globalManager
}

func NewManager(q *Queue) *Manager {
	return &Manager{
		queue:         q,
		statsInterval: defaultStatsInterval,
		stopCh:        make(chan struct{}),
	}
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	m.statsTicker = time.NewTicker(m.statsInterval)
	m.wg.Add(1)
	go m.statsWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.statsTicker != nil {
		m.statsTicker.Stop()
	}

	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// statsWorker publishes queue depth to the metrics gauges.
func (m *Manager) statsWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Stats worker stopping")
			return
		case <-m.statsTicker.C:
			if err := m.publishStatsOnce(context.Background()); err != nil {
				log.Errorf("[JobQueue Manager] Stats error: %v", err)
			}
		}
	}
}

func (m *Manager) publishStatsOnce(ctx context.Context) error {
	pending, err := m.queue.GetQueueSize(ctx)
	if err != nil {
		return err
	}
	processing, err := m.queue.GetProcessingSize(ctx)
	if err != nil {
		return err
	}
	m.queue.metrics.SetQueueDepth(pending, processing)
	return nil
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
