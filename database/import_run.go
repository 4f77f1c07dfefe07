package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/fleetpay/fleetpay/model"
)

// RecordImportRun inserts a new import run record into the database
func (d Datasource) RecordImportRun(ctx context.Context, run *model.ImportRun) error {
	ctx, span := otel.Tracer("Imports").Start(ctx, "Saving import run to db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO import_runs (import_id, tenant_id, upload_id, status, total, successful, failed, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, run.ImportID, run.TenantID, run.UploadID, run.Status,
		run.Total, run.Successful, run.Failed, run.StartedAt, run.CompletedAt)

	return err
}

// GetImportRun retrieves an import run record by its ID
func (d Datasource) GetImportRun(ctx context.Context, id string) (*model.ImportRun, error) {
	ctx, span := otel.Tracer("Imports").Start(ctx, "Fetching import run from db")
	defer span.End()

	run := &model.ImportRun{}
	var completedAt sql.NullTime
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, import_id, tenant_id, upload_id, status, total, successful, failed, started_at, completed_at
		FROM import_runs
		WHERE import_id = $1
	`, id).Scan(
		&run.ID, &run.ImportID, &run.TenantID, &run.UploadID, &run.Status,
		&run.Total, &run.Successful, &run.Failed, &run.StartedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return run, nil
}

// UpdateImportRunStatus updates the status and counters of an import run
func (d Datasource) UpdateImportRunStatus(ctx context.Context, id, status string, total, successful, failed int) error {
	ctx, span := otel.Tracer("Imports").Start(ctx, "Updating import run status")
	defer span.End()

	completedAt := sql.NullTime{Time: time.Now(), Valid: status == model.StatusCompleted || status == model.StatusFailed}

	_, err := d.Conn.ExecContext(ctx, `
		UPDATE import_runs
		SET status = $2, total = $3, successful = $4, failed = $5, completed_at = $6
		WHERE import_id = $1
	`, id, status, total, successful, failed, completedAt)

	return err
}

// SaveImportProgress checkpoints an import run's batch progress
func (d Datasource) SaveImportProgress(ctx context.Context, importID string, progress model.ImportProgress) error {
	ctx, span := otel.Tracer("Imports").Start(ctx, "Saving import progress")
	defer span.End()

	return saveProgress(ctx, d.Conn, importID, progress)
}

// LoadImportProgress retrieves the last checkpointed progress for an
// import run. A run with no checkpoint yet reads back as zero progress.
func (d Datasource) LoadImportProgress(ctx context.Context, importID string) (model.ImportProgress, error) {
	ctx, span := otel.Tracer("Imports").Start(ctx, "Loading import progress")
	defer span.End()

	progress := model.ImportProgress{}
	err := loadProgress(ctx, d.Conn, importID, &progress)
	return progress, err
}

func saveProgress(ctx context.Context, conn *sql.DB, runID string, progress interface{}) error {
	payload, err := json.Marshal(progress)
	if err != nil {
		return err
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO pipeline_progress (run_id, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (run_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
	`, runID, payload)

	return err
}

func loadProgress(ctx context.Context, conn *sql.DB, runID string, progress interface{}) error {
	var payload []byte
	err := conn.QueryRowContext(ctx, `
		SELECT payload FROM pipeline_progress WHERE run_id = $1
	`, runID).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	}

	return json.Unmarshal(payload, progress)
}
