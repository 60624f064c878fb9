package backup

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/hostdeck/hostdeck/internal/config"
)

// Scheduler runs automatic backups on the configured cron schedule.
type Scheduler struct {
	runner *Runner
	cron   *cron.Cron
}

func NewScheduler(runner *Runner) (*Scheduler, error) {
	s := &Scheduler{
		runner: runner,
		cron:   cron.New(),
	}
	_, err := s.cron.AddFunc(config.Cfg.BackupSchedule, func() {
		s.runner.RunAll(context.Background())
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("Backup schedule: %s", config.Cfg.BackupSchedule)
}

// Stop halts scheduling and waits for a running backup to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
