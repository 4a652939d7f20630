package authn

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/examroom/clients/identity"
)

// ErrUnauthorized is returned when a credential is missing or rejected
// by the identity backend. It propagates unchanged to the command
// boundary.
var ErrUnauthorized = errors.New("invalid or missing token")

// Role identifies the kind of caller behind a verified token.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Verification is a cached token verdict.
type Verification struct {
	Valid bool `json:"valid"`
	Role  Role `json:"role,omitempty"`
}

// IdentityClient is what the verifier needs from the identity backend.
type IdentityClient interface {
	VerifyTeacherToken(ctx context.Context, token string) (*identity.Verification, error)
	VerifyStudentToken(ctx context.Context, token string) (*identity.Verification, error)
}

// DefaultVerdictTTL bounds how long a verdict may be reused before the
// backend is asked again.
const DefaultVerdictTTL = 60 * time.Second

// Verifier validates caller tokens against the identity backend,
// checking the teacher endpoint first and falling back to the student
// endpoint. Verdicts, including negative ones, are cached for a short
// TTL so a burst of commands does not hammer the backend.
type Verifier struct {
	backend IdentityClient
	cache   VerdictCache
	ttl     time.Duration
}

// NewVerifier creates a verifier. A zero ttl falls back to
// DefaultVerdictTTL.
func NewVerifier(backend IdentityClient, cache VerdictCache, ttl time.Duration) *Verifier {
	if ttl <= 0 {
		ttl = DefaultVerdictTTL
	}
	return &Verifier{backend: backend, cache: cache, ttl: ttl}
}

// Verify returns the verdict for a token. An error means the backend
// could not be consulted; an invalid token is a verdict, not an error.
func (v *Verifier) Verify(ctx context.Context, token string) (*Verification, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	if cached, ok, err := v.cache.Get(ctx, token); err != nil {
		log.Warn().Err(err).Msg("verdict cache read failed, consulting backend")
	} else if ok {
		return cached, nil
	}

	verdict, err := v.lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := v.cache.Set(ctx, token, verdict, v.ttl); err != nil {
		log.Warn().Err(err).Msg("verdict cache write failed")
	}
	return verdict, nil
}

func (v *Verifier) lookup(ctx context.Context, token string) (*Verification, error) {
	teacher, err := v.backend.VerifyTeacherToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if teacher.Valid {
		return &Verification{Valid: true, Role: RoleTeacher}, nil
	}

	student, err := v.backend.VerifyStudentToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if student.Valid {
		return &Verification{Valid: true, Role: RoleStudent}, nil
	}
	return &Verification{Valid: false}, nil
}

// Authorize implements the gateway authorizer contract: it reduces a
// verdict to a role-or-ErrUnauthorized gate.
func (v *Verifier) Authorize(ctx context.Context, token string) (string, error) {
	verdict, err := v.Verify(ctx, token)
	if err != nil {
		return "", err
	}
	if !verdict.Valid {
		return "", ErrUnauthorized
	}
	return string(verdict.Role), nil
}
