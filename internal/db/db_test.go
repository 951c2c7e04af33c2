package db

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestWrapNotFound(t *testing.T) {
	assert.NoError(t, WrapNotFound(nil))
	assert.ErrorIs(t, WrapNotFound(pgx.ErrNoRows), ErrNotFound)

	boom := errors.New("boom")
	err := WrapNotFound(boom)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}
