package metrics

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/avolkhov/newspulse/pkg/logger"
)

// ClickHouseRepository implements Repository for ClickHouse
type ClickHouseRepository struct {
	db *sqlx.DB
}

// NewClickHouseRepository creates new ClickHouse repository
func NewClickHouseRepository(db *sqlx.DB) *ClickHouseRepository {
	return &ClickHouseRepository{db: db}
}

// InsertBatch inserts batch of metrics into ClickHouse table
func (r *ClickHouseRepository) InsertBatch(ctx context.Context, tableName string, values [][]interface{}) error {
	if len(values) == 0 {
		return nil
	}

	columnCount := len(values[0])
	if columnCount == 0 {
		return fmt.Errorf("values have no columns")
	}

	placeholders := make([]string, len(values))
	args := make([]interface{}, 0, len(values)*columnCount)

	for i, row := range values {
		if len(row) != columnCount {
			return fmt.Errorf("row %d has wrong column count: expected %d, got %d", i, columnCount, len(row))
		}

		cells := make([]string, columnCount)
		for j := range row {
			cells[j] = "?"
		}
		placeholders[i] = "(" + strings.Join(cells, ", ") + ")"

		args = append(args, row...)
	}

	query := fmt.Sprintf("INSERT INTO %s VALUES %s", tableName, strings.Join(placeholders, ", "))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clickhouse insert failed: %w", err)
	}

	logger.Debug("metrics batch inserted",
		zap.String("table", tableName),
		zap.Int("rows", len(values)),
	)

	return nil
}

// Close closes the underlying connection
func (r *ClickHouseRepository) Close() error {
	return r.db.Close()
}
