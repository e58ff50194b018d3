package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"rdxflow/config"
	"rdxflow/internal/models"
	"rdxflow/logger"
)

// Postgres is the durable ledger backend. The upsert on the composite key
// gives the last-write-wins semantics the Store contract requires.
type Postgres struct {
	db    *sql.DB
	table string
	log   *logger.Entry
}

// NewPostgres opens the connection, verifies it and ensures the ledger table
// exists.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig) (*Postgres, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := &Postgres{
		db:    db,
		table: pq.QuoteIdentifier(cfg.Table),
		log:   logger.GetLogger().WithComponent("ledger"),
	}
	if err := p.ensureTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureTable(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		trade_date       text NOT NULL,
		ticker           text NOT NULL,
		expiry           text NOT NULL DEFAULT '',
		future_oi        double precision NOT NULL,
		future_oi_change double precision NOT NULL,
		total_call_oi    double precision NOT NULL,
		total_put_oi     double precision NOT NULL,
		pcr              double precision NOT NULL,
		inserted_at      timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (trade_date, ticker, expiry)
	)`, p.table)
	if _, err := p.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("ensure ledger table: %w", err)
	}
	return nil
}

// Append upserts one batch of summaries under the trade date inside a single
// transaction, so a failed run never leaves a partial batch behind.
func (p *Postgres) Append(ctx context.Context, tradeDate string, summaries []models.InstrumentSummary) error {
	if len(summaries) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`INSERT INTO %s
		(trade_date, ticker, expiry, future_oi, future_oi_change, total_call_oi, total_put_oi, pcr)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (trade_date, ticker, expiry) DO UPDATE SET
			future_oi        = EXCLUDED.future_oi,
			future_oi_change = EXCLUDED.future_oi_change,
			total_call_oi    = EXCLUDED.total_call_oi,
			total_put_oi     = EXCLUDED.total_put_oi,
			pcr              = EXCLUDED.pcr,
			inserted_at      = now()`, p.table)

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer prepared.Close()

	for _, s := range summaries {
		if _, err := prepared.ExecContext(ctx, tradeDate, s.Ticker, s.Expiry,
			s.FutureOI, s.FutureOIChange, s.TotalCallOI, s.TotalPutOI, s.PCR); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", s.Ticker, s.Expiry, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	p.log.WithFields(logger.Fields{"trade_date": tradeDate, "rows": len(summaries)}).Info("ledger batch appended")
	return nil
}

// ReadDate returns every summary stored for the trade date, in insertion
// order of first write.
func (p *Postgres) ReadDate(ctx context.Context, tradeDate string) ([]models.InstrumentSummary, error) {
	stmt := fmt.Sprintf(`SELECT ticker, expiry, future_oi, future_oi_change, total_call_oi, total_put_oi, pcr
		FROM %s WHERE trade_date = $1 ORDER BY inserted_at, ticker, expiry`, p.table)

	rows, err := p.db.QueryContext(ctx, stmt, tradeDate)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	out := make([]models.InstrumentSummary, 0)
	for rows.Next() {
		s := models.InstrumentSummary{TradeDate: tradeDate}
		if err := rows.Scan(&s.Ticker, &s.Expiry, &s.FutureOI, &s.FutureOIChange,
			&s.TotalCallOI, &s.TotalPutOI, &s.PCR); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}
