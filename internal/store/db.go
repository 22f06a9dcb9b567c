package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the narrow query contract every store runs against. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so a store can be rebound onto a
// transaction with WithDB.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Beginner is a DB that can open transactions. *pgxpool.Pool satisfies it.
type Beginner interface {
	DB
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Tx is a transaction-scoped DB. pgx.Tx satisfies it.
type Tx interface {
	DB
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxBeginner opens transactions as Tx values, hiding the pgx transaction
// type from callers that only need DB semantics plus commit/rollback.
type TxBeginner interface {
	BeginTx(ctx context.Context) (Tx, error)
}

type pgxTxBeginner struct {
	b Beginner
}

// NewTxBeginner adapts a pgx-style Beginner (such as *pgxpool.Pool) to
// TxBeginner.
func NewTxBeginner(b Beginner) TxBeginner {
	return pgxTxBeginner{b: b}
}

func (p pgxTxBeginner) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := p.b.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Stores bundles all entity stores over one database.
type Stores struct {
	Schedules       *ScheduleStore
	Executions      *ExecutionStore
	Destinations    *DestinationStore
	OAuthStates     *OAuthStateStore
	Audits          *AuditStore
	Sources         *SourceStore
	Transformations *TransformationStore
}

func NewStores(db DB) *Stores {
	return &Stores{
		Schedules:       NewScheduleStore(db),
		Executions:      NewExecutionStore(db),
		Destinations:    NewDestinationStore(db),
		OAuthStates:     NewOAuthStateStore(db),
		Audits:          NewAuditStore(db),
		Sources:         NewSourceStore(db),
		Transformations: NewTransformationStore(db),
	}
}
