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
)

// LowStockScanJob sweeps the catalog for products at or below their reorder
// level and records an alert row per finding. Repeated scans update the
// existing alert instead of stacking duplicates.
type LowStockScanJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewLowStockScanJob wires dependencies for the scan handler.
func NewLowStockScanJob(pool *pgxpool.Pool, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes low-stock scan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("low stock scan: handler not configured")
	}
	if j.Pool == nil {
		return errors.New("low stock scan: pool not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger()
	started := j.now()

	query := `SELECT id, owner_id, name, quantity, reorder_level FROM products WHERE quantity <= reorder_level`
	args := []any{}
	if payload.OwnerID != "" {
		ownerID, err := uuid.Parse(payload.OwnerID)
		if err != nil {
			return asynq.SkipRetry
		}
		query += ` AND owner_id=$1`
		args = append(args, ownerID)
	}

	rows, err := j.Pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("scan products", slog.Any("error", err))
		return err
	}
	defer rows.Close()

	type finding struct {
		productID uuid.UUID
		ownerID   uuid.UUID
		name      string
		quantity  int64
		reorder   int64
	}
	findings := []finding{}
	for rows.Next() {
		var f finding
		if err := rows.Scan(&f.productID, &f.ownerID, &f.name, &f.quantity, &f.reorder); err != nil {
			return err
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, f := range findings {
		_, err := j.Pool.Exec(ctx, `INSERT INTO low_stock_alerts (product_id, owner_id, quantity, reorder_level, detected_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (product_id) DO UPDATE SET quantity=EXCLUDED.quantity, reorder_level=EXCLUDED.reorder_level, detected_at=EXCLUDED.detected_at`,
			f.productID, f.ownerID, f.quantity, f.reorder, started)
		if err != nil {
			logger.Error("record alert", slog.String("product_id", f.productID.String()), slog.Any("error", err))
			return err
		}
		logger.Warn("low stock",
			slog.String("product_id", f.productID.String()),
			slog.String("product", f.name),
			slog.Int64("quantity", f.quantity),
			slog.Int64("reorder_level", f.reorder))
	}

	// Restocked products drop off the alert list.
	if _, err := j.Pool.Exec(ctx, `DELETE FROM low_stock_alerts a USING products p
WHERE a.product_id = p.id AND p.quantity > p.reorder_level`); err != nil {
		logger.Error("clear stale alerts", slog.Any("error", err))
		return err
	}

	logger.Info("completed low stock scan", slog.Int("findings", len(findings)), slog.Duration("duration", time.Since(started)))
	return nil
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLowStockScan))
	}
	return slog.Default().With(slog.String("job", TaskLowStockScan))
}

func (j *LowStockScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
