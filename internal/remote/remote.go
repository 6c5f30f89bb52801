// Package remote implements the per-user remote store mirroring the three
// record collections.
//
// Every operation is scoped by the authenticated user id and reports
// failure as a *Error value; nothing panics past the package boundary.
// Three backends share the Store interface:
//   - REST: Supabase PostgREST over HTTPS
//   - Postgres: direct database/sql access for self-hosted deployments
//   - Memory: in-process, for demos and tests
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/denttrack/denttrack/internal/model"
	"go.uber.org/zap"
)

// Store is the remote persistence contract.
//
// Fetch operations return an empty, non-nil collection together with the
// error when they fail. SaveTreatment updates the record scoped to
// (existingID, userID) when existingID is set, otherwise it inserts and
// returns the server-assigned id.
type Store interface {
	FetchTreatments(ctx context.Context, userID string) ([]model.Treatment, error)
	SaveTreatment(ctx context.Context, userID string, t model.Treatment, existingID string) (string, error)
	DeleteTreatment(ctx context.Context, userID, id string) error

	FetchDentists(ctx context.Context, userID string) ([]model.Dentist, error)
	SaveDentist(ctx context.Context, userID string, d model.Dentist) (string, error)
	DeleteDentist(ctx context.Context, userID, id string) error

	FetchTeethStatus(ctx context.Context, userID string) (model.TeethStatus, error)
	SaveToothStatus(ctx context.Context, userID string, tooth model.ToothID, status model.ToothStatus) error
}

// TokenSource supplies the bearer token for authenticated requests. An
// empty token means there is no session. Implementations may refresh an
// expiring token before returning it.
type TokenSource interface {
	AccessToken(ctx context.Context) string
}

// ErrNotConfigured is returned by New when no remote backend is set up.
// It marks guest-only operation and is not a failure.
var ErrNotConfigured = errors.New("remote store not configured")

// Kind classifies a remote failure.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindUnauthorized
	KindNotFound
	KindServer
	KindDecode
)

// Sentinels matched by errors.Is against a *Error of the same kind.
var (
	ErrNetwork      = errors.New("network failure")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrServer       = errors.New("server error")
	ErrDecode       = errors.New("malformed response")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindUnauthorized:
		return ErrUnauthorized
	case KindNotFound:
		return ErrNotFound
	case KindServer:
		return ErrServer
	case KindDecode:
		return ErrDecode
	}
	return nil
}

func (k Kind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the failure value of every Store operation.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func newError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("remote %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("remote %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// Config selects and configures a backend.
type Config struct {
	Backend    string // "", "rest", "postgres" or "memory"
	URL        string
	AnonKey    string
	DSN        string
	Timeout    time.Duration
	RetryCount int
}

// New builds the configured backend. It returns ErrNotConfigured when the
// backend is empty or lacks the settings it needs.
func New(cfg Config, tokens TokenSource, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case "":
		return nil, ErrNotConfigured
	case "rest":
		if cfg.URL == "" || cfg.AnonKey == "" {
			return nil, ErrNotConfigured
		}
		return NewREST(cfg, tokens, logger.Named("rest")), nil
	case "postgres":
		if cfg.DSN == "" {
			return nil, ErrNotConfigured
		}
		return OpenPostgres(cfg.DSN, logger.Named("postgres"))
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown remote backend %q", cfg.Backend)
	}
}
