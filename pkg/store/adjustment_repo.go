package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finmodel/pkg/core/adjust"
)

// AdjustmentRepo keeps an append-only audit log of scenario adjustments.
type AdjustmentRepo struct{}

// NewAdjustmentRepo creates a repository instance.
func NewAdjustmentRepo() *AdjustmentRepo {
	return &AdjustmentRepo{}
}

// Schema assumption:
// CREATE TABLE IF NOT EXISTS adjustment_log (
//   id UUID PRIMARY KEY,
//   node_name TEXT,
//   period TEXT,
//   value DOUBLE PRECISION,
//   adj_type TEXT,
//   reason TEXT,
//   scenario TEXT,
//   tags TEXT,
//   priority INT,
//   recorded_at TIMESTAMPTZ
// );

// Record appends an adjustment to the audit log.
func (r *AdjustmentRepo) Record(ctx context.Context, adj *adjust.Adjustment) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	query := `
		INSERT INTO adjustment_log (id, node_name, period, value, adj_type, reason, scenario, tags, priority, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`

	_, err := pool.Exec(ctx, query,
		adj.ID, adj.NodeName, adj.Period, adj.Value, string(adj.Type),
		adj.Reason, adj.Scenario, strings.Join(adj.TagList(), ","), adj.Priority, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record adjustment: %w", err)
	}
	return nil
}

// RecordAll appends every adjustment, stopping at the first failure.
func (r *AdjustmentRepo) RecordAll(ctx context.Context, adjs []*adjust.Adjustment) error {
	for _, adj := range adjs {
		if err := r.Record(ctx, adj); err != nil {
			return err
		}
	}
	return nil
}
