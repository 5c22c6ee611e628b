package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kayak-destinations/models"
	"kayak-destinations/utils"

	"github.com/lib/pq"
)

// Table layouts loaded with replace semantics on every run.
const (
	destinationsTable = "destinations"
	hotelsTable       = "hotels"

	createDestinations = `
	CREATE TABLE destinations (
		rank              INTEGER          NOT NULL,
		city              TEXT             NOT NULL,
		temp_mean         DOUBLE PRECISION,
		rain_sum          DOUBLE PRECISION,
		price_mean        DOUBLE PRECISION,
		score_mean        DOUBLE PRECISION,
		lat               DOUBLE PRECISION,
		lon               DOUBLE PRECISION,
		destination_score DOUBLE PRECISION NOT NULL
	)`

	createHotels = `
	CREATE TABLE hotels (
		city      TEXT NOT NULL,
		hotelname TEXT NOT NULL,
		score     DOUBLE PRECISION,
		price_eur INTEGER,
		url       TEXT
	)`
)

var (
	destinationsColumns = []string{"rank", "city", "temp_mean", "rain_sum", "price_mean", "score_mean", "lat", "lon", "destination_score"}
	hotelsColumns       = []string{"city", "hotelname", "score", "price_eur", "url"}
)

// PostgresWriter loads the output tables into PostgreSQL
type PostgresWriter struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresWriter opens a connection pool and pings the DB
func NewPostgresWriter(ctx context.Context, connStr string, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Minute * 5)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	logger.Info("Connected to PostgreSQL successfully")
	return &PostgresWriter{db: db, logger: logger}, nil
}

// ReplaceTables drops, recreates and bulk-loads both tables inside a single
// transaction, so readers see either the previous run or this one.
func (w *PostgresWriter) ReplaceTables(ctx context.Context, destinations []*models.DestinationSummary, hotels []*models.HotelListing) (err error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = replaceTable(ctx, tx, destinationsTable, createDestinations, destinationsColumns, destinationRows(destinations)); err != nil {
		return err
	}
	if err = replaceTable(ctx, tx, hotelsTable, createHotels, hotelsColumns, hotelRows(hotels)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.logger.Info("Loaded %d destinations and %d hotels into PostgreSQL", len(destinations), len(hotels))
	return nil
}

func replaceTable(ctx context.Context, tx *sql.Tx, table, ddl string, columns []string, rows [][]any) error {
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+pq.QuoteIdentifier(table)); err != nil {
		return fmt.Errorf("failed to drop %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("failed to prepare copy into %s: %w", table, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to copy row into %s: %w", table, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to flush copy into %s: %w", table, err)
	}
	return nil
}

func destinationRows(destinations []*models.DestinationSummary) [][]any {
	rows := make([][]any, 0, len(destinations))
	for _, d := range destinations {
		rows = append(rows, []any{
			d.Rank, d.City.String(),
			nullable(d.TempMean), nullable(d.RainSum), nullable(d.PriceMean), nullable(d.ScoreMean),
			nullable(d.Lat), nullable(d.Lon),
			d.DestinationScore,
		})
	}
	return rows
}

func hotelRows(hotels []*models.HotelListing) [][]any {
	rows := make([][]any, 0, len(hotels))
	for _, h := range hotels {
		rows = append(rows, []any{h.City.String(), h.HotelName, nullable(h.Score), nullable(h.PriceEUR), nullable(h.URL)})
	}
	return rows
}

// nullable turns a nil pointer into a SQL NULL.
func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

// Close closes the database connection
func (w *PostgresWriter) Close() error {
	if w.db != nil {
		return w.db.Close()
	}
	return nil
}
