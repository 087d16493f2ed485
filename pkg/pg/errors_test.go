package pg_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/natvps/panel/pkg/pg"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	wrap := func(code string) error {
		return fmt.Errorf("query: %w", &pgconn.PgError{Code: code})
	}

	tests := []struct {
		name  string
		check func(error) bool
		match error
		other error
	}{
		{"not found", pg.IsNotFoundError, fmt.Errorf("get: %w", pgx.ErrNoRows), errors.New("boom")},
		{"tx closed", pg.IsTxClosedError, pgx.ErrTxClosed, pgx.ErrNoRows},
		{"duplicate key", pg.IsDuplicateKeyError, wrap("23505"), wrap("23503")},
		{"foreign key", pg.IsForeignKeyViolationError, wrap("23503"), wrap("23505")},
		{"restrict", pg.IsRestrictViolationError, wrap("23001"), wrap("P0001")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, tt.check(tt.match))
			assert.False(t, tt.check(tt.other))
			assert.False(t, tt.check(nil))
		})
	}
}
