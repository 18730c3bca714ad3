package database

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS staff_sessions`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	require.NoError(t, ApplySchema(context.Background(), mock))

	mock.ExpectExec(`CREATE TABLE`).WillReturnError(errors.New("permission denied"))
	assert.ErrorContains(t, ApplySchema(context.Background(), mock), "apply schema")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParsePort(t *testing.T) {
	port, err := parsePort("5433")
	require.NoError(t, err)
	assert.Equal(t, uint16(5433), port)

	_, err = parsePort("db")
	assert.Error(t, err)
	_, err = parsePort("0")
	assert.Error(t, err)
}
