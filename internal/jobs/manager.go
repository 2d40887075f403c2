package jobs

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"podbay/internal/config"
	"podbay/internal/websocket"
)

// JobContext is an interface that provides the necessary dependencies for
// a job to run. The core.App struct implements this interface.
type JobContext interface {
	DB() *sql.DB
	Config() *config.Config
	WsHub() *websocket.Hub
	JobManager() *JobManager
}

type jobTask func(ctx JobContext)

type JobStatus struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"` // "idle", "running", "success", "failed"
	Message   string    `json:"message"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

// JobManager runs registered background jobs one at a time. A sync pass
// and a scheduled sync can never overlap through it.
type JobManager struct {
	mu      sync.Mutex
	jobs    map[string]jobTask
	status  map[string]*JobStatus
	running bool
}

func NewManager() *JobManager {
	return &JobManager{
		jobs:   make(map[string]jobTask),
		status: make(map[string]*JobStatus),
	}
}

func (jm *JobManager) Register(name string, task jobTask) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.jobs[name] = task
	jm.status[name] = &JobStatus{Name: name, Status: "idle"}
}

// RunJob starts the named job in the background. It refuses to start
// while another job is running.
func (jm *JobManager) RunJob(name string, ctx JobContext) error {
	jm.mu.Lock()
	if jm.running {
		jm.mu.Unlock()
		return fmt.Errorf("a job is already running")
	}

	task, ok := jm.jobs[name]
	if !ok {
		jm.mu.Unlock()
		return fmt.Errorf("job '%s' not found", name)
	}

	jm.running = true
	status := jm.status[name]
	status.Status = "running"
	status.StartTime = time.Now()
	status.Message = "Job started..."
	jm.mu.Unlock()

	log.Printf("Starting job: %s", name)
	go func() {
		defer func() {
			// Ensure we always update the status and unlock the manager.
			// Every status write happens under the lock; GetStatus reads
			// concurrently.
			r := recover()
			if r != nil {
				log.Printf("Job '%s' panicked: %v", name, r)
			}

			jm.mu.Lock()
			if r != nil {
				status.Status = "failed"
				status.Message = fmt.Sprintf("Job panicked: %v", r)
			}
			status.EndTime = time.Now()
			if status.Status == "running" { // If not already set to "failed"
				status.Status = "success"
				status.Message = "Job completed successfully."
			}
			jm.running = false
			jm.mu.Unlock()
			log.Printf("Finished job: %s", name)
		}()

		task(ctx)
	}()
	return nil
}

// GetStatus returns a snapshot of every registered job's status. Copies,
// so callers can read or marshal them while a job keeps running.
func (jm *JobManager) GetStatus() []*JobStatus {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	statuses := make([]*JobStatus, 0, len(jm.status))
	for _, s := range jm.status {
		snapshot := *s
		statuses = append(statuses, &snapshot)
	}
	return statuses
}
