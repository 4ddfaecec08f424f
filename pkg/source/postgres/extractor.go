// Package postgres implements the extraction stage: it reads a bounded,
// ordered slice of rows from the relational source into a RecordSet.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ajitpratap0/blobcast/pkg/config"
	"github.com/ajitpratap0/blobcast/pkg/recordset"
	"github.com/ajitpratap0/blobcast/pkg/xerrors"
)

// Extractor reads the configured table slice from PostgreSQL. The table,
// ordering key and row limit are fixed at configuration time.
type Extractor struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewExtractor creates an Extractor for the configured source.
func NewExtractor(cfg *config.Config, logger *zap.Logger) *Extractor {
	return &Extractor{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "extractor")),
	}
}

// Extract opens a connection to the source, reads at most the configured
// number of rows ordered ascending by the stable key, and closes the
// connection. Any connection or query error is fatal; no partial result
// is returned.
func (e *Extractor) Extract(ctx context.Context) (*recordset.RecordSet, error) {
	pool, err := pgxpool.New(ctx, e.cfg.Postgres.DSN())
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrorTypeConnection, "failed to parse postgres connection config")
	}
	defer pool.Close()

	connectCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeouts.Connection)
	defer cancel()
	if err := pool.Ping(connectCtx); err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrorTypeConnection, "failed to connect to postgres")
	}

	query := buildQuery(e.cfg.Postgres.Table, e.cfg.Postgres.OrderBy)
	e.logger.Debug("executing extraction query",
		zap.String("query", query),
		zap.Int("limit", e.cfg.Postgres.Limit))

	rows, err := pool.Query(ctx, query, e.cfg.Postgres.Limit)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrorTypeQuery, "extraction query failed").
			WithDetail("table", e.cfg.Postgres.Table)
	}
	defer rows.Close()

	columns := make([]string, 0, len(rows.FieldDescriptions()))
	for _, fd := range rows.FieldDescriptions() {
		columns = append(columns, fd.Name)
	}

	rs := recordset.New()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, xerrors.Wrap(err, xerrors.ErrorTypeData, "failed to read row values")
		}

		record := make(recordset.Record, 0, len(columns))
		for i, value := range values {
			record = append(record, recordset.Field{
				Name:  columns[i],
				Value: convertValue(value),
			})
		}
		rs.Append(record)
	}

	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrorTypeQuery, "error iterating extraction rows")
	}

	e.logger.Info("extraction complete",
		zap.String("table", e.cfg.Postgres.Table),
		zap.Int("rows", rs.Len()),
		zap.Int("columns", len(columns)))

	return rs, nil
}

// buildQuery assembles the fixed extraction statement. Identifiers come
// from configuration, not data, and are quoted defensively; the row limit
// is bound as a parameter.
func buildQuery(table, orderBy string) string {
	return fmt.Sprintf("SELECT * FROM %s ORDER BY %s ASC LIMIT $1",
		sanitizeIdentifier(table), sanitizeIdentifier(orderBy))
}

// sanitizeIdentifier quotes a possibly schema-qualified identifier.
func sanitizeIdentifier(name string) string {
	parts := strings.Split(name, ".")
	return pgx.Identifier(parts).Sanitize()
}

// convertValue converts driver values to the pipeline's scalar set.
// Temporal values stay as time.Time; the serializer owns text rendering.
func convertValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return string(v)
	case time.Time:
		return v
	default:
		return v
	}
}
