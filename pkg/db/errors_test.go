package db_test

import (
	"errors"
	"fmt"
	"testing"

	"flightbooker/pkg/db"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestLockFailureCodes(t *testing.T) {
	deadlock := fmt.Errorf("claim seat: %w", &pgconn.PgError{Code: "40P01"})
	serialization := fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})
	unique := &pgconn.PgError{Code: "23505"}

	assert.True(t, db.IsDeadlock(deadlock))
	assert.False(t, db.IsSerializationFailure(deadlock))

	assert.True(t, db.IsSerializationFailure(serialization))
	assert.False(t, db.IsDeadlock(serialization))

	assert.False(t, db.IsDeadlock(unique))
	assert.False(t, db.IsSerializationFailure(unique))
	assert.False(t, db.IsDeadlock(errors.New("40P01")))
	assert.False(t, db.IsDeadlock(nil))
}
