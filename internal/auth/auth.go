package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUnknownUser        = errors.New("unknown user")
	ErrUnknownFactor      = errors.New("unknown factor")
)

// User is an account record held by the service's directory.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	Factors      []Factor
}

// Factor is an enrolled second factor. Secret is opaque here; only the
// FactorVerifier interprets it.
type Factor struct {
	ID          string
	Kind        string // "totp" or "sms"
	DisplayName string
	Secret      string
}

// Service implements sign-up, sign-in, sign-out and factor management.
// It owns an in-memory user directory (the identity provider is an external
// collaborator; this is its local stand-in), issues JWT access tokens, and
// pushes session changes through the injected SessionProvider.
type Service struct {
	mu           sync.Mutex
	usersByEmail map[string]*User
	usersByID    map[string]*User
	pending      map[string]*Resolver

	secret   []byte
	tokenTTL time.Duration
	sessions *SessionProvider
	verifier FactorVerifier
	now      func() time.Time
}

func NewService(secret []byte, tokenTTL time.Duration, sessions *SessionProvider, verifier FactorVerifier) *Service {
	return &Service{
		usersByEmail: make(map[string]*User),
		usersByID:    make(map[string]*User),
		pending:      make(map[string]*Resolver),
		secret:       secret,
		tokenTTL:     tokenTTL,
		sessions:     sessions,
		verifier:     verifier,
		now:          time.Now,
	}
}

// SignUp registers a new account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (*Session, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", ErrInvalidCredentials
	}
	if len(password) < 8 {
		return nil, "", ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	if _, exists := s.usersByEmail[email]; exists {
		s.mu.Unlock()
		return nil, "", ErrEmailTaken
	}
	u := &User{ID: uuid.NewString(), Email: email, PasswordHash: hash}
	s.usersByEmail[email] = u
	s.usersByID[u.ID] = u
	s.mu.Unlock()

	return s.openSession(u)
}

// SignIn authenticates by email and password. When the account has enrolled
// factors, the error is a *MFARequiredError carrying factor hints and a
// resolver; the session opens only after Resolve succeeds.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	u, ok := s.usersByEmail[email]
	s.mu.Unlock()
	if !ok {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if len(u.Factors) > 0 {
		return nil, "", s.interruptForMFA(u)
	}
	return s.openSession(u)
}

// SignOut clears the session state.
func (s *Service) SignOut(ctx context.Context) {
	s.sessions.Set(nil)
}

// EnrollFactor registers a second factor on the account.
func (s *Service) EnrollFactor(ctx context.Context, userID, kind, displayName, secret string) (Factor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.usersByID[userID]
	if !ok {
		return Factor{}, ErrUnknownUser
	}
	f := Factor{ID: uuid.NewString(), Kind: kind, DisplayName: displayName, Secret: secret}
	u.Factors = append(u.Factors, f)
	return f, nil
}

// UnenrollFactor removes a previously enrolled factor.
func (s *Service) UnenrollFactor(ctx context.Context, userID, factorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.usersByID[userID]
	if !ok {
		return ErrUnknownUser
	}
	for i, f := range u.Factors {
		if f.ID == factorID {
			u.Factors = append(u.Factors[:i], u.Factors[i+1:]...)
			return nil
		}
	}
	return ErrUnknownFactor
}

// VerifyToken validates an access token and returns the subject user ID.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (s *Service) openSession(u *User) (*Session, string, error) {
	token, err := s.issueToken(u)
	if err != nil {
		return nil, "", err
	}
	session := &Session{UserID: u.ID, Email: u.Email}
	s.sessions.Set(session)
	return session, token, nil
}

func (s *Service) issueToken(u *User) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   u.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
