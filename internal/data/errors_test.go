package data

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "bad conn", err: driver.ErrBadConn, want: true},
		{name: "wrapped bad conn", err: fmt.Errorf("exec: %w", driver.ErrBadConn), want: true},
		{name: "eof", err: io.EOF, want: true},
		{name: "connection refused", err: syscall.ECONNREFUSED, want: true},
		{name: "net op error", err: &net.OpError{Op: "dial", Err: timeoutErr{}}, want: true},
		{
			name: "pg connection exception",
			err:  &pgconn.PgError{Code: "08006"}, // connection_failure
			want: true,
		},
		{
			name: "pg admin shutdown",
			err:  &pgconn.PgError{Code: "57P01"},
			want: true,
		},
		{
			name: "pg unique violation is permanent",
			err:  &pgconn.PgError{Code: "23505"},
			want: false,
		},
		{
			name: "pg undefined table is permanent",
			err:  &pgconn.PgError{Code: "42P01"},
			want: false,
		},
		{name: "plain error is permanent", err: errors.New("no steps"), want: false},
		{name: "deadline exceeded", err: fmt.Errorf("ping: %w", errTimeout()), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func errTimeout() error {
	return &net.OpError{Op: "read", Err: timeoutErr{}}
}

func TestIsTransientIgnoresElapsedTime(t *testing.T) {
	// Classification depends only on the error, never on wall time.
	err := fmt.Errorf("after %s: %w", time.Second, driver.ErrBadConn)
	assert.True(t, IsTransient(err))
}
