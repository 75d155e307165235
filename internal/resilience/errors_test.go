package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
)

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	err := NewTransientError(errors.New("store overloaded"), "53300")
	if !IsTransient(err) {
		t.Error("expected TransientError to be transient")
	}
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	inner := NewTransientError(errors.New("locked"), "")
	wrapped := eris.Wrap(inner, "sqlite: insert registration")
	if !IsTransient(wrapped) {
		t.Error("expected wrapped TransientError to be transient")
	}
}

func TestIsTransient_NilError(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
}

func TestIsTransient_RegularError(t *testing.T) {
	err := errors.New("invalid input: missing field")
	if IsTransient(err) {
		t.Error("regular error should not be transient")
	}
}

func TestIsTransient_PgErrors(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"08006", true},  // connection_failure
		{"08001", true},  // sqlclient_unable_to_establish_sqlconnection
		{"40001", true},  // serialization_failure
		{"40P01", true},  // deadlock_detected
		{"53300", true},  // too_many_connections
		{"57P01", true},  // admin_shutdown
		{"23505", false}, // unique_violation
		{"23503", false}, // foreign_key_violation
		{"42P01", false}, // undefined_table
	}
	for _, tt := range tests {
		err := eris.Wrap(&pgconn.PgError{Code: tt.code}, "postgres: insert player")
		if got := IsTransient(err); got != tt.want {
			t.Errorf("code %s: IsTransient = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestIsTransient_ConnectionReset(t *testing.T) {
	err := fmt.Errorf("write tcp: %w", syscall.ECONNRESET)
	if !IsTransient(err) {
		t.Error("ECONNRESET should be transient")
	}
}

func TestIsTransient_ConnectionRefused(t *testing.T) {
	err := fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)
	if !IsTransient(err) {
		t.Error("ECONNREFUSED should be transient")
	}
}

func TestIsTransient_NetworkTimeout(t *testing.T) {
	err := &net.DNSError{IsTimeout: true, Err: "timeout"}
	if !IsTransient(err) {
		t.Error("network timeout should be transient")
	}
}

func TestIsTransient_StringPatterns(t *testing.T) {
	patterns := []string{
		"database is locked (5) (SQLITE_BUSY)",
		"database table is locked",
		"connection reset by peer",
		"broken pipe",
		"i/o timeout",
	}
	for _, p := range patterns {
		err := errors.New(p)
		if !IsTransient(err) {
			t.Errorf("expected %q to be transient", p)
		}
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	te := NewTransientError(inner, "40001")

	if !errors.Is(te, inner) {
		t.Error("TransientError.Unwrap should return the inner error")
	}
	if te.Code != "40001" {
		t.Errorf("expected Code 40001, got %s", te.Code)
	}
}

func TestTransientError_ErrorMessage(t *testing.T) {
	inner := errors.New("something went wrong")
	te := NewTransientError(inner, "")

	if te.Error() != "something went wrong" {
		t.Errorf("expected error message %q, got %q", inner.Error(), te.Error())
	}
}

func TestFromRetryConfig(t *testing.T) {
	cfg := FromRetryConfig(5, 10, 50)
	if cfg.MaxAttempts != 5 {
		t.Errorf("expected 5 attempts, got %d", cfg.MaxAttempts)
	}
	if cfg.InitialBackoff.Milliseconds() != 10 || cfg.MaxBackoff.Milliseconds() != 50 {
		t.Errorf("unexpected backoff %v..%v", cfg.InitialBackoff, cfg.MaxBackoff)
	}

	def := FromRetryConfig(0, 0, 0)
	want := DefaultRetryConfig()
	if def.MaxAttempts != want.MaxAttempts || def.InitialBackoff != want.InitialBackoff || def.MaxBackoff != want.MaxBackoff {
		t.Errorf("zero values should keep defaults, got %+v", def)
	}
}
