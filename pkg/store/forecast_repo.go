package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"finmodel/pkg/core/forecast"
)

// ForecastRepo stores forecast run results, one row per (node, scenario),
// upserted so reruns replace earlier output.
type ForecastRepo struct{}

// NewForecastRepo creates a repository instance.
func NewForecastRepo() *ForecastRepo {
	return &ForecastRepo{}
}

// Schema assumption:
// CREATE TABLE IF NOT EXISTS forecast_runs (
//   run_id UUID,
//   node_name TEXT,
//   scenario TEXT,
//   method TEXT,
//   base_period TEXT,
//   result_json JSONB,
//   created_at TIMESTAMPTZ,
//   PRIMARY KEY (node_name, scenario)
// );

// Save upserts a forecast result for a scenario.
func (r *ForecastRepo) Save(ctx context.Context, scenario string, result *forecast.Result) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	jsonData, err := json.Marshal(result.Values)
	if err != nil {
		return fmt.Errorf("failed to marshal forecast values: %w", err)
	}

	query := `
		INSERT INTO forecast_runs (run_id, node_name, scenario, method, base_period, result_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (node_name, scenario)
		DO UPDATE SET
			run_id = EXCLUDED.run_id,
			method = EXCLUDED.method,
			base_period = EXCLUDED.base_period,
			result_json = EXCLUDED.result_json,
			created_at = EXCLUDED.created_at;
	`

	_, err = pool.Exec(ctx, query,
		uuid.NewString(), result.NodeName, scenario, result.Method, result.BasePeriod, jsonData, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save forecast run: %w", err)
	}
	return nil
}

// Load retrieves the stored forecast result for a node and scenario.
func (r *ForecastRepo) Load(ctx context.Context, nodeName, scenario string) (*forecast.Result, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `SELECT method, base_period, result_json FROM forecast_runs WHERE node_name = $1 AND scenario = $2`

	var (
		method     string
		basePeriod string
		jsonData   []byte
	)
	err := pool.QueryRow(ctx, query, nodeName, scenario).Scan(&method, &basePeriod, &jsonData)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no forecast stored for node %s scenario %s", nodeName, scenario)
		}
		return nil, fmt.Errorf("failed to load forecast run: %w", err)
	}

	values := make(map[string]float64)
	if err := json.Unmarshal(jsonData, &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal forecast values: %w", err)
	}
	periods := make([]string, 0, len(values))
	for p := range values {
		periods = append(periods, p)
	}

	return &forecast.Result{
		NodeName:   nodeName,
		Periods:    periods,
		Values:     values,
		Method:     method,
		BasePeriod: basePeriod,
	}, nil
}
