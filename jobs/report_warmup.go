package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/analytics"
	"github.com/stocklane/stocklane/internal/report"
)

// ReportWarmupJob pre-populates the chart and report caches so the first
// dashboard hit after an invalidation does not pay the aggregation cost.
type ReportWarmupJob struct {
	Analytics *analytics.Service
	Reports   *report.Service
	Pool      *pgxpool.Pool
	Logger    *slog.Logger
	clock     func() time.Time
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(analyticsSvc *analytics.Service, reportSvc *report.Service, pool *pgxpool.Pool, logger *slog.Logger) *ReportWarmupJob {
	return &ReportWarmupJob{
		Analytics: analyticsSvc,
		Reports:   reportSvc,
		Pool:      pool,
		Logger:    logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes report warmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger()
	logger.Info("starting report warmup")

	owners, err := j.fetchOwners(ctx, payload.OwnerID)
	if err != nil {
		logger.Error("load warmup owners", slog.Any("error", err))
		return err
	}
	if len(owners) == 0 {
		logger.Info("no owners discovered for warmup")
		return nil
	}

	started := j.now()
	warmed := 0
	for _, ownerID := range owners {
		if err := j.warmOwner(ctx, ownerID); err != nil {
			logger.Error("warm owner", slog.String("owner_id", ownerID.String()), slog.Any("error", err))
			return err
		}
		warmed++
	}

	logger.Info("completed report warmup", slog.Int("owners", warmed), slog.Duration("duration", time.Since(started)))
	return nil
}

func (j *ReportWarmupJob) warmOwner(ctx context.Context, ownerID uuid.UUID) error {
	ownerCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if j.Analytics != nil {
		if _, err := j.Analytics.SalesPerDay(ownerCtx, ownerID, time.Time{}, time.Time{}); err != nil {
			return err
		}
		if _, err := j.Analytics.MonthlyProfit(ownerCtx, ownerID, analytics.DefaultMonths); err != nil {
			return err
		}
	}
	if j.Reports != nil {
		if _, err := j.Reports.Generate(ownerCtx, ownerID, time.Time{}, time.Time{}); err != nil {
			return err
		}
	}
	return nil
}

func (j *ReportWarmupJob) fetchOwners(ctx context.Context, scoped string) ([]uuid.UUID, error) {
	if scoped != "" {
		ownerID, err := uuid.Parse(scoped)
		if err != nil {
			return nil, err
		}
		return []uuid.UUID{ownerID}, nil
	}
	if j.Pool == nil {
		return nil, errors.New("report warmup: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `SELECT id FROM owners ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owners := make([]uuid.UUID, 0)
	for rows.Next() {
		var ownerID uuid.UUID
		if err := rows.Scan(&ownerID); err != nil {
			return nil, err
		}
		owners = append(owners, ownerID)
	}
	return owners, rows.Err()
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportWarmup))
}

func (j *ReportWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
