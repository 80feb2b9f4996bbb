package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "foreign key", err: &pgconn.PgError{Code: "23503"}, want: true},
		{name: "wrapped not null", err: fmt.Errorf("insert message: %w", &pgconn.PgError{Code: "23502"}), want: true},
		{name: "invalid text", err: &pgconn.PgError{Code: "22P02"}, want: true},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}},
		{name: "unique", err: &pgconn.PgError{Code: "23505"}},
		{name: "connection", err: errors.New("dial tcp: connection refused")},
		{name: "nil", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPermanent(tt.err))
		})
	}
}
