package database

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/fleetpay/fleetpay/model"
)

// RecordLinkingRun inserts a new linking run record into the database
func (d Datasource) RecordLinkingRun(ctx context.Context, run *model.LinkingRun) error {
	ctx, span := otel.Tracer("Linking").Start(ctx, "Saving linking run to db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO linking_runs (linking_id, tenant_id, status, is_dry_run, linked, failed, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, run.LinkingID, run.TenantID, run.Status, run.IsDryRun,
		run.Linked, run.Failed, run.StartedAt, run.CompletedAt)

	return err
}

// GetLinkingRun retrieves a linking run record by its ID
func (d Datasource) GetLinkingRun(ctx context.Context, id string) (*model.LinkingRun, error) {
	ctx, span := otel.Tracer("Linking").Start(ctx, "Fetching linking run from db")
	defer span.End()

	run := &model.LinkingRun{}
	var completedAt sql.NullTime
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, linking_id, tenant_id, status, is_dry_run, linked, failed, started_at, completed_at
		FROM linking_runs
		WHERE linking_id = $1
	`, id).Scan(
		&run.ID, &run.LinkingID, &run.TenantID, &run.Status, &run.IsDryRun,
		&run.Linked, &run.Failed, &run.StartedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return run, nil
}

// UpdateLinkingRunStatus updates the status and counters of a linking run
func (d Datasource) UpdateLinkingRunStatus(ctx context.Context, id, status string, linked, failed int) error {
	ctx, span := otel.Tracer("Linking").Start(ctx, "Updating linking run status")
	defer span.End()

	completedAt := sql.NullTime{Time: time.Now(), Valid: status == model.StatusCompleted || status == model.StatusFailed}

	_, err := d.Conn.ExecContext(ctx, `
		UPDATE linking_runs
		SET status = $2, linked = $3, failed = $4, completed_at = $5
		WHERE linking_id = $1
	`, id, status, linked, failed, completedAt)

	return err
}

// SaveLinkingProgress checkpoints how far through the unlinked set a run is
func (d Datasource) SaveLinkingProgress(ctx context.Context, linkingID string, progress model.LinkingProgress) error {
	ctx, span := otel.Tracer("Linking").Start(ctx, "Saving linking progress")
	defer span.End()

	return saveProgress(ctx, d.Conn, linkingID, progress)
}

// LoadLinkingProgress retrieves the last checkpointed progress for a
// linking run.
func (d Datasource) LoadLinkingProgress(ctx context.Context, linkingID string) (model.LinkingProgress, error) {
	ctx, span := otel.Tracer("Linking").Start(ctx, "Loading linking progress")
	defer span.End()

	progress := model.LinkingProgress{}
	err := loadProgress(ctx, d.Conn, linkingID, &progress)
	return progress, err
}
