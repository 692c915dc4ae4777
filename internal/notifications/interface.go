package notifications

import "github.com/brandbeacon/visibility-bot/internal/models"

// NotificationInterface defines the contract for delivering run summaries.
type NotificationInterface interface {
	SendRunSummary(summary *models.RunSummary) error
	SendRepairSummary(summary *models.RepairSummary) error
}
