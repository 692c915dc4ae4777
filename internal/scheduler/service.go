package scheduler

import (
	"context"

	"github.com/brandbeacon/visibility-bot/internal/config"
	"github.com/brandbeacon/visibility-bot/internal/visibility"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service handles scheduling of aggregation and repair tasks
type Service struct {
	config            *config.Config
	visibilityService *visibility.Service
	cron              *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, visibilityService *visibility.Service) *Service {
	return &Service{
		config:            cfg,
		visibilityService: visibilityService,
		cron:              cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled runs
func (s *Service) Start() error {
	var cronExpression string

	switch s.config.ReportSchedule {
	case "daily":
		// Run daily at 9 AM UTC
		cronExpression = "0 0 9 * * *"
	case "weekly":
		// Run weekly on Monday at 9 AM UTC
		cronExpression = "0 0 9 * * MON"
	default:
		// Default to weekly
		cronExpression = "0 0 9 * * MON"
	}

	_, err := s.cron.AddFunc(cronExpression, func() {
		logrus.Info("Starting scheduled reaggregation run")
		if _, err := s.visibilityService.RunReaggregation(context.Background()); err != nil {
			logrus.Errorf("Scheduled reaggregation run failed: %v", err)
		}
	})

	if err != nil {
		return err
	}

	// Also repair stale citation classifications more frequently (every 4 hours)
	_, err = s.cron.AddFunc("0 0 */4 * * *", func() {
		logrus.Info("Starting citation repair pass (4-hour frequency)")
		if _, err := s.visibilityService.RunCitationRepair(context.Background()); err != nil {
			logrus.Errorf("Citation repair pass failed: %v", err)
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s schedule (plus citation repair every 4 hours)", s.config.ReportSchedule)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
