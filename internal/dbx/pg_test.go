package dbx

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestNullableRoundTrip(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, &now, TimePtr(NullTime(&now)))
	assert.Nil(t, TimePtr(NullTime(nil)))
	assert.Equal(t, sql.NullTime{}, NullTime(nil))

	i := 3
	assert.Equal(t, &i, IntPtr(NullInt(&i)))
	assert.Nil(t, IntPtr(NullInt(nil)))
}
