package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMFAFailed       = errors.New("factor verification failed")
	ErrResolverExpired = errors.New("multi-factor challenge expired")
	ErrUnknownResolver = errors.New("unknown multi-factor challenge")
	errVerifierUnset   = errors.New("no factor verifier configured")
)

// resolverWindow bounds how long an interrupted sign-in stays resumable.
const resolverWindow = 5 * time.Minute

// FactorVerifier checks a challenge code against an enrolled factor. TOTP
// and SMS mechanics belong to the external provider behind this interface.
type FactorVerifier interface {
	Verify(ctx context.Context, factor Factor, code string) error
}

// FactorHint is the caller-visible description of an enrolled factor,
// presented so the user can pick which one to satisfy.
type FactorHint struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	DisplayName string `json:"displayName"`
}

// MFARequiredError interrupts a sign-in whose password check passed but
// whose account has enrolled factors. The carried Resolver completes the
// session once a factor is satisfied.
type MFARequiredError struct {
	Hints    []FactorHint
	Resolver *Resolver
}

func (e *MFARequiredError) Error() string {
	return "multi-factor verification required"
}

// Resolver is the resumable half of an interrupted sign-in. Token travels
// to the client and back; Resolve completes the session.
type Resolver struct {
	Token string

	svc     *Service
	userID  string
	expires time.Time
}

// Resolve verifies the code for the chosen factor and, on success, opens
// the session the interrupted sign-in would have opened.
func (r *Resolver) Resolve(ctx context.Context, factorID, code string) (*Session, string, error) {
	s := r.svc

	if s.now().After(r.expires) {
		s.dropResolver(r.Token)
		return nil, "", ErrResolverExpired
	}

	s.mu.Lock()
	u, ok := s.usersByID[r.userID]
	s.mu.Unlock()
	if !ok {
		return nil, "", ErrUnknownUser
	}

	var factor *Factor
	for i := range u.Factors {
		if u.Factors[i].ID == factorID {
			factor = &u.Factors[i]
			break
		}
	}
	if factor == nil {
		return nil, "", ErrUnknownFactor
	}

	if s.verifier == nil {
		return nil, "", errVerifierUnset
	}
	if err := s.verifier.Verify(ctx, *factor, code); err != nil {
		return nil, "", ErrMFAFailed
	}

	s.dropResolver(r.Token)
	return s.openSession(u)
}

// SecretMatchVerifier accepts a challenge code equal to the factor's stored
// secret. It stands in for a real TOTP or SMS provider in development
// deployments.
type SecretMatchVerifier struct{}

func (SecretMatchVerifier) Verify(_ context.Context, f Factor, code string) error {
	if subtle.ConstantTimeCompare([]byte(code), []byte(f.Secret)) != 1 {
		return ErrMFAFailed
	}
	return nil
}

// interruptForMFA builds the challenge for u and parks the resolver so a
// later request can resume the sign-in by token.
func (s *Service) interruptForMFA(u *User) *MFARequiredError {
	hints := make([]FactorHint, len(u.Factors))
	for i, f := range u.Factors {
		hints[i] = FactorHint{ID: f.ID, Kind: f.Kind, DisplayName: f.DisplayName}
	}

	r := &Resolver{
		Token:   uuid.NewString(),
		svc:     s,
		userID:  u.ID,
		expires: s.now().Add(resolverWindow),
	}

	s.mu.Lock()
	s.pending[r.Token] = r
	s.mu.Unlock()

	return &MFARequiredError{Hints: hints, Resolver: r}
}

// ResolveMFA resumes an interrupted sign-in by resolver token; the HTTP
// layer uses it since the resolver itself never leaves the process.
func (s *Service) ResolveMFA(ctx context.Context, resolverToken, factorID, code string) (*Session, string, error) {
	s.mu.Lock()
	r, ok := s.pending[resolverToken]
	s.mu.Unlock()
	if !ok {
		return nil, "", ErrUnknownResolver
	}
	return r.Resolve(ctx, factorID, code)
}

func (s *Service) dropResolver(token string) {
	s.mu.Lock()
	delete(s.pending, token)
	s.mu.Unlock()
}
