package repository

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"docspace/internal/domain"
)

func TestWrapErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil passes through", err: nil, want: nil},
		{name: "no rows", err: sql.ErrNoRows, want: domain.ErrNotFound},
		{name: "bad connection", err: driver.ErrBadConn, want: domain.ErrStorageUnavailable},
		{name: "connection done", err: sql.ErrConnDone, want: domain.ErrStorageUnavailable},
		{name: "unique violation", err: &pq.Error{Code: "23505"}, want: domain.ErrConflict},
		{name: "foreign key violation", err: &pq.Error{Code: "23503"}, want: domain.ErrNotFound},
		{name: "connection failure", err: &pq.Error{Code: "08006"}, want: domain.ErrStorageUnavailable},
		{name: "server shutdown", err: &pq.Error{Code: "57P01"}, want: domain.ErrStorageUnavailable},
		{name: "serialization failure", err: &pq.Error{Code: "40001"}, want: domain.ErrStorageUnavailable},
		{name: "deadlock", err: &pq.Error{Code: "40P01"}, want: domain.ErrStorageUnavailable},
		{name: "lock not available", err: &pq.Error{Code: "55P03"}, want: domain.ErrStorageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapErr("op", tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestWrapErrKeepsUnknownErrors(t *testing.T) {
	cause := errors.New("boom")
	got := wrapErr("op", cause)
	assert.ErrorIs(t, got, cause)
	assert.NotErrorIs(t, got, domain.ErrNotFound)
	assert.NotErrorIs(t, got, domain.ErrStorageUnavailable)
}
