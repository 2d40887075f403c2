package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// SyncJobName is the registered name of the full feed sync pass.
const SyncJobName = "podcast-sync"

// StartJobs starts the background job scheduler.
func StartJobs(app JobContext) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	startSyncJob(s, app)

	log.Println("Starting background job scheduler...")
	s.StartAsync()
}

func startSyncJob(s *gocron.Scheduler, app JobContext) {
	interval := app.Config().SyncInterval
	if interval == 0 {
		log.Println("Sync interval is 0, scheduled sync is disabled.")
		return
	}

	log.Printf("Scheduling job: '%s' to run every %d minutes.", SyncJobName, interval)

	_, err := s.Every(interval).Minutes().Do(func() {
		// Submit the job to the manager instead of running it directly.
		// This prevents conflicts with manually triggered syncs.
		err := app.JobManager().RunJob(SyncJobName, app)
		if err != nil {
			log.Printf("Scheduled job '%s' could not start: %v", SyncJobName, err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", SyncJobName, err)
	}
}
