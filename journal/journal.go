package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/carlosbrown2/credit-spreads/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS evaluations (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    evaluated_at    DATETIME NOT NULL,
    spread_type     TEXT     NOT NULL,
    principal       REAL     NOT NULL,
    stock_price     REAL     NOT NULL,
    sigma           REAL     NOT NULL,
    short_strike    REAL     NOT NULL,
    long_strike     REAL     NOT NULL,
    credit          REAL     NOT NULL,
    lots            INTEGER  NOT NULL,
    num_trades      INTEGER  NOT NULL,
    breakeven       REAL     NOT NULL,
    pop             REAL     NOT NULL,
    max_loss        REAL     NOT NULL,
    odds            REAL     NOT NULL,
    kelly           REAL     NOT NULL,
    ev              REAL     NOT NULL,
    final_principal REAL     NOT NULL,
    recommendation  TEXT     NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evaluations_at ON evaluations(evaluated_at DESC);
`

// Entry is one persisted evaluation: the inputs, the analytic quantities the
// recommendation rests on, and the simulated end state.
type Entry struct {
	ID             int64
	EvaluatedAt    time.Time
	SpreadType     string
	Params         models.TradeParameters
	Breakeven      float64
	POP            float64
	MaxLoss        float64
	Odds           float64
	Kelly          float64
	EV             float64
	FinalPrincipal float64
	Recommendation string
}

// Journal stores evaluation history in a SQLite file.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at the given path and applies
// the schema.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal.Open: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal.Open: apply schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record persists one evaluation.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	at := e.EvaluatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO evaluations (
			evaluated_at, spread_type, principal, stock_price, sigma,
			short_strike, long_strike, credit, lots, num_trades,
			breakeven, pop, max_loss, odds, kelly, ev,
			final_principal, recommendation
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		at, e.SpreadType, e.Params.Principal, e.Params.StockPrice, e.Params.Sigma,
		e.Params.ShortStrike, e.Params.LongStrike, e.Params.Credit, e.Params.Lots, e.Params.NumTrades,
		e.Breakeven, e.POP, e.MaxLoss, e.Odds, e.Kelly, e.EV,
		e.FinalPrincipal, e.Recommendation,
	)
	if err != nil {
		return fmt.Errorf("journal.Record: %w", err)
	}
	return nil
}

// Recent returns up to limit evaluations, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, evaluated_at, spread_type, principal, stock_price, sigma,
		       short_strike, long_strike, credit, lots, num_trades,
		       breakeven, pop, max_loss, odds, kelly, ev,
		       final_principal, recommendation
		FROM evaluations
		ORDER BY evaluated_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal.Recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.EvaluatedAt, &e.SpreadType,
			&e.Params.Principal, &e.Params.StockPrice, &e.Params.Sigma,
			&e.Params.ShortStrike, &e.Params.LongStrike, &e.Params.Credit,
			&e.Params.Lots, &e.Params.NumTrades,
			&e.Breakeven, &e.POP, &e.MaxLoss, &e.Odds, &e.Kelly, &e.EV,
			&e.FinalPrincipal, &e.Recommendation,
		); err != nil {
			return nil, fmt.Errorf("journal.Recent: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal.Recent: %w", err)
	}
	return entries, nil
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}
