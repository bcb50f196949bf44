package storage

// sqlite.go — histórico de ciclos en SQLite.
//
// Tablas:
//   - `cycles`: una fila por snapshot persistido (conteos + resumen).
//   - `opportunities`: las oportunidades emitidas en cada ciclo.
//
// El detector nunca lee de aquí: cada ciclo es independiente. El histórico sirve
// solo para consulta (`arbscan -history`). Prune automático al arrancar.

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/arbscan/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cycles (
    cycle_id      TEXT PRIMARY KEY,
    analyzed_at   INTEGER NOT NULL, -- unix ms
    tokens        INTEGER NOT NULL DEFAULT 0,
    oracle_prices INTEGER NOT NULL DEFAULT 0,
    pool_prices   INTEGER NOT NULL DEFAULT 0,
    total         INTEGER NOT NULL DEFAULT 0,
    best_spread   REAL    NOT NULL DEFAULT 0,
    avg_spread    REAL    NOT NULL DEFAULT 0,
    total_profit  REAL    NOT NULL DEFAULT 0,
    rejected      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS opportunities (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    cycle_id     TEXT    NOT NULL REFERENCES cycles(cycle_id) ON DELETE CASCADE,
    base_symbol  TEXT    NOT NULL,
    quote_symbol TEXT    NOT NULL,
    buy_source   TEXT    NOT NULL,
    sell_source  TEXT    NOT NULL,
    buy_price    REAL    NOT NULL,
    sell_price   REAL    NOT NULL,
    spread_abs   REAL    NOT NULL,
    spread_pct   REAL    NOT NULL,
    est_profit   REAL    NOT NULL,
    confidence   REAL    NOT NULL,
    detected_at  TEXT    NOT NULL,
    detected_ms  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cycles_at     ON cycles(analyzed_at DESC);
CREATE INDEX IF NOT EXISTS idx_opp_detected  ON opportunities(detected_ms DESC);
CREATE INDEX IF NOT EXISTS idx_opp_symbol    ON opportunities(base_symbol);
`

const retention = 30 * 24 * time.Hour

// SQLiteHistory implementa ports.HistoryStore usando SQLite (pure Go, sin CGo).
type SQLiteHistory struct {
	db *sql.DB
}

// NewSQLiteHistory abre (o crea) la base de datos en la ruta dada,
// aplica el schema y limpia ciclos antiguos.
func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteHistory: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteHistory: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteHistory: apply schema: %w", err)
	}

	s := &SQLiteHistory{db: db}
	if n, err := s.pruneOld(context.Background(), time.Now()); err != nil {
		slog.Warn("history prune failed", "err", err)
	} else if n > 0 {
		slog.Info("history pruned", "cycles", n, "retention", retention)
	}
	return s, nil
}

// PersistSnapshot guarda el ciclo y sus oportunidades en una sola transacción.
// Un snapshot sin oportunidades igual deja su fila en `cycles`.
func (s *SQLiteHistory) PersistSnapshot(ctx context.Context, snap domain.AnalysisSnapshot) error {
	cycleID := snap.Metadata.CycleID
	if cycleID == "" {
		cycleID = uuid.NewString()
	}
	analyzedAt, err := domain.ParseTimestamp(snap.Metadata.AnalysisTime)
	if err != nil {
		analyzedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.PersistSnapshot: begin tx: %w", err)
	}
	defer tx.Rollback()

	rejected := snap.Metadata.Rejected
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cycles
			(cycle_id, analyzed_at, tokens, oracle_prices, pool_prices,
			 total, best_spread, avg_spread, total_profit, rejected)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cycleID,
		analyzedAt.UnixMilli(),
		len(snap.Metadata.TokensAnalyzed),
		len(snap.PriceData.Oracle),
		len(snap.PriceData.Pool),
		snap.Summary.TotalOpportunities,
		snap.Summary.BestSpread,
		snap.Summary.AverageSpread,
		snap.Summary.TotalEstimatedProfit,
		rejected.Validation+rejected.NotFound+rejected.SourceErrors,
	); err != nil {
		return fmt.Errorf("storage.PersistSnapshot: insert cycle: %w", err)
	}

	if len(snap.Opportunities) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO opportunities
				(cycle_id, base_symbol, quote_symbol, buy_source, sell_source,
				 buy_price, sell_price, spread_abs, spread_pct, est_profit,
				 confidence, detected_at, detected_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("storage.PersistSnapshot: prepare: %w", err)
		}
		defer stmt.Close()

		for _, o := range snap.Opportunities {
			detected, err := domain.ParseTimestamp(o.DetectedAt)
			if err != nil {
				detected = analyzedAt
			}
			if _, err := stmt.ExecContext(ctx,
				cycleID,
				o.BaseSymbol,
				o.QuoteSymbol,
				o.BuySource.String(),
				o.SellSource.String(),
				o.BuyPrice,
				o.SellPrice,
				o.SpreadAbsolute,
				o.SpreadPercent,
				o.EstimatedProfit,
				o.Confidence,
				o.DetectedAt,
				detected.UnixMilli(),
			); err != nil {
				return fmt.Errorf("storage.PersistSnapshot: insert %s: %w", o.BaseSymbol, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.PersistSnapshot: commit: %w", err)
	}
	return nil
}

// GetHistory devuelve las oportunidades detectadas en [from, to],
// más recientes primero y, dentro de un mismo instante, por profit desc.
func (s *SQLiteHistory) GetHistory(ctx context.Context, from, to time.Time) ([]domain.ArbitrageOpportunity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT base_symbol, quote_symbol, buy_source, sell_source,
		       buy_price, sell_price, spread_abs, spread_pct, est_profit,
		       confidence, detected_at
		FROM opportunities
		WHERE detected_ms BETWEEN ? AND ?
		ORDER BY detected_ms DESC, est_profit DESC, id ASC
	`, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query: %w", err)
	}
	defer rows.Close()

	var opps []domain.ArbitrageOpportunity
	for rows.Next() {
		var o domain.ArbitrageOpportunity
		var buy, sell string
		if err := rows.Scan(
			&o.BaseSymbol,
			&o.QuoteSymbol,
			&buy,
			&sell,
			&o.BuyPrice,
			&o.SellPrice,
			&o.SpreadAbsolute,
			&o.SpreadPercent,
			&o.EstimatedProfit,
			&o.Confidence,
			&o.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan row: %w", err)
		}
		if o.BuySource, err = domain.ParseSource(buy); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: %w", err)
		}
		if o.SellSource, err = domain.ParseSource(sell); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: %w", err)
		}
		opps = append(opps, o)
	}

	return opps, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteHistory) Close() error {
	return s.db.Close()
}

// pruneOld elimina ciclos (y en cascada sus oportunidades) fuera de la retención.
// Devuelve cuántos ciclos borró.
func (s *SQLiteHistory) pruneOld(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-retention).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM cycles WHERE analyzed_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("storage.pruneOld: %w", err)
	}
	return res.RowsAffected()
}
