package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/25x8/uc-store/internal/ucstore/logger"
	"github.com/25x8/uc-store/internal/ucstore/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL is how long an admin bearer token stays valid
const DefaultTokenTTL = 24 * time.Hour

// CredentialValidator checks an administrator's login
type CredentialValidator interface {
	Validate(ctx context.Context, username, password string) (*models.AdminIdentity, error)
}

// StaticCredentials accepts a single configured administrator
type StaticCredentials struct {
	username     string
	passwordHash []byte
}

// NewStaticCredentials hashes password with bcrypt and returns the validator
func NewStaticCredentials(username, password string) (*StaticCredentials, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &StaticCredentials{username: username, passwordHash: hash}, nil
}

// Validate returns ErrUnauthorized on any mismatch without telling which field was wrong
func (c *StaticCredentials) Validate(_ context.Context, username, password string) (*models.AdminIdentity, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	// the hash comparison always runs so both failure modes cost the same
	passErr := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthorized)
	}
	return &models.AdminIdentity{Username: c.username}, nil
}

// SessionStore keeps issued admin sessions
type SessionStore interface {
	Save(ctx context.Context, s models.AdminSession) error
	Get(ctx context.Context, id string) (*models.AdminSession, error)
	Delete(ctx context.Context, id string) error
	PruneExpired(ctx context.Context, now time.Time) (int, error)
}

// MemorySessionStore is a process-local SessionStore
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]models.AdminSession
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]models.AdminSession)}
}

func (m *MemorySessionStore) Save(_ context.Context, s models.AdminSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (*models.AdminSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemorySessionStore) PruneExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pruned := 0
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
			pruned++
		}
	}
	return pruned, nil
}

// AdminClaims are the JWT claims of an admin bearer token
type AdminClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// SessionService authenticates administrators and verifies bearer tokens
type SessionService struct {
	validator CredentialValidator
	store     SessionStore
	secret    []byte
	ttl       time.Duration
	audit     *Auditor
	now       func() time.Time
}

// NewSessionService creates a session service signing tokens with secret
func NewSessionService(validator CredentialValidator, store SessionStore, secret string, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &SessionService{
		validator: validator,
		store:     store,
		secret:    []byte(secret),
		ttl:       ttl,
		audit:     NewAuditor(nil),
		now:       time.Now,
	}
}

// SetAuditor replaces the log-only auditor with one that persists events
func (s *SessionService) SetAuditor(a *Auditor) {
	s.audit = a
}

// Store exposes the backing session store
func (s *SessionService) Store() SessionStore {
	return s.store
}

// Login validates the credentials and issues a signed bearer token
func (s *SessionService) Login(ctx context.Context, username, password string) (string, *models.AdminSession, error) {
	identity, err := s.validator.Validate(ctx, username, password)
	if err != nil {
		s.audit.Record(ctx, logger.ActionAdminLoginFailed, "admin", username)
		return "", nil, err
	}

	now := s.now().UTC()
	session := models.AdminSession{
		ID:        uuid.New().String(),
		Username:  identity.Username,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	claims := AdminClaims{
		Username: identity.Username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   identity.Username,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}

	if err := s.store.Save(ctx, session); err != nil {
		return "", nil, err
	}

	s.audit.Record(ctx, logger.ActionAdminLogin, "admin", identity.Username, "session_id", session.ID)
	return token, &session, nil
}

// Verify checks the token signature and that its session is still live
func (s *SessionService) Verify(ctx context.Context, tokenString string) (*models.AdminIdentity, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("missing token: %w", models.ErrUnauthorized)
	}

	claims := &AdminClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid || claims.ID == "" {
		return nil, fmt.Errorf("invalid token: %w", models.ErrUnauthorized)
	}

	session, err := s.store.Get(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if session == nil || !s.now().Before(session.ExpiresAt) {
		return nil, fmt.Errorf("session %s not active: %w", claims.ID, models.ErrUnauthorized)
	}

	return &models.AdminIdentity{Username: session.Username, SessionID: session.ID}, nil
}

// Logout revokes the session behind token
func (s *SessionService) Logout(ctx context.Context, tokenString string) error {
	identity, err := s.Verify(ctx, tokenString)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, identity.SessionID); err != nil {
		return err
	}
	s.audit.Record(ctx, logger.ActionAdminLogout, "admin", identity.Username, "session_id", identity.SessionID)
	return nil
}
