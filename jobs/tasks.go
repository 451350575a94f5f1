// Package jobs contains the background tasks that keep derived data warm.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportWarmup pre-populates the analytics and report caches.
	TaskReportWarmup = "report:warmup"
	// TaskLowStockScan sweeps the catalog for products at or below reorder level.
	TaskLowStockScan = "stock:lowscan"
)

// ReportWarmupPayload scopes a warmup run. A nil OwnerID warms every owner.
type ReportWarmupPayload struct {
	OwnerID string `json:"ownerId,omitempty"`
}

// NewReportWarmupTask constructs a warmup task.
func NewReportWarmupTask(payload ReportWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data), nil
}

// LowStockScanPayload scopes a scan run. A nil OwnerID scans every owner.
type LowStockScanPayload struct {
	OwnerID string `json:"ownerId,omitempty"`
}

// NewLowStockScanTask constructs a scan task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}
