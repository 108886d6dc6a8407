package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/flowcraft/corerun/internal/execstate"
)

// snapshotModel is the Postgres row for one workflow's last persisted
// ExecutionState snapshot.
type snapshotModel struct {
	bun.BaseModel `bun:"table:execution_snapshots,alias:es"`

	WorkflowID string         `bun:"workflow_id,pk"`
	Outputs    map[string]any `bun:"outputs,type:jsonb"`
	Timing     map[string]any `bun:"timing,type:jsonb"`
	Metadata   map[string]any `bun:"metadata,type:jsonb"`
	UpdatedAt  time.Time      `bun:"updated_at"`
}

// Bun is a Postgres-backed PersistenceHook, mirroring the teacher's
// ExecutionStateModel/BunStore pair: one row per workflowID, upserted
// on every Persist.
type Bun struct {
	db *bun.DB
}

// NewBun opens a Postgres connection for dsn and returns a Bun store.
// The caller must call InitSchema once before first use.
func NewBun(dsn string) *Bun {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &Bun{db: db}
}

// InitSchema creates the execution_snapshots table if it does not
// already exist. Failure here is treated as unrecoverable at startup:
// it is logged through zerolog's log.Fatal, which exits the process, so
// a non-nil error never reaches the caller.
func (b *Bun) InitSchema(ctx context.Context) error {
	_, err := b.db.NewCreateTable().Model((*snapshotModel)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize execution_snapshots schema")
	}
	return err
}

// Persist upserts the snapshot for workflowID. Both maps round-trip
// through JSON into jsonb columns, the same approach the teacher's
// ExecutionStateModel uses for its node-state blobs.
func (b *Bun) Persist(workflowID string, snap execstate.Snapshot, metadata map[string]any) {
	outputs, err := jsonRoundTrip(snap.Outputs)
	if err != nil {
		log.Error().Err(err).Str("workflow_id", workflowID).Msg("failed to encode execution snapshot outputs")
		return
	}
	timing, err := jsonRoundTrip(snap.Timing)
	if err != nil {
		log.Error().Err(err).Str("workflow_id", workflowID).Msg("failed to encode execution snapshot timing")
		return
	}

	model := &snapshotModel{
		WorkflowID: workflowID,
		Outputs:    outputs,
		Timing:     timing,
		Metadata:   metadata,
		UpdatedAt:  time.Now(),
	}
	ctx := context.Background()
	_, err = b.db.NewInsert().
		Model(model).
		On("CONFLICT (workflow_id) DO UPDATE").
		Exec(ctx)
	if err != nil {
		log.Error().Err(err).Str("workflow_id", workflowID).Msg("failed to persist execution snapshot")
	}
}

// Recover loads the last persisted snapshot for workflowID, if any.
func (b *Bun) Recover(workflowID string) (execstate.Snapshot, map[string]any, bool) {
	model := new(snapshotModel)
	ctx := context.Background()
	if err := b.db.NewSelect().Model(model).Where("workflow_id = ?", workflowID).Scan(ctx); err != nil {
		return execstate.Snapshot{}, nil, false
	}

	var snap execstate.Snapshot
	if err := decodeInto(model.Outputs, &snap.Outputs); err != nil {
		log.Error().Err(err).Str("workflow_id", workflowID).Msg("failed to decode execution snapshot outputs")
		return execstate.Snapshot{}, nil, false
	}
	if err := decodeInto(model.Timing, &snap.Timing); err != nil {
		log.Error().Err(err).Str("workflow_id", workflowID).Msg("failed to decode execution snapshot timing")
		return execstate.Snapshot{}, nil, false
	}
	return snap, model.Metadata, true
}

func jsonRoundTrip[V any](v V) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeInto[V any](m map[string]any, dst *V) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
