package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/msomdec/decision-log/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Storage keys for the user collection and the active session.
const (
	keyUsers       = "users"
	keyCurrentUser = "currentUser"
)

// AuthService manages the registered-user collection and the single active
// session. Users are persisted with their password hash under the users key;
// the active session is persisted credential-stripped under its own key so
// it survives restarts.
//
// Registration and login report failures as sentinel errors
// (ErrDuplicateEmail, ErrInvalidCredentials), unlike the decision store's
// boolean soft-fail contract.
type AuthService struct {
	mu         sync.RWMutex
	kv         domain.KeyValueStore
	users      []domain.User
	current    *domain.User
	lastID     int64
	jwtSecret  []byte
	bcryptCost int
}

// NewAuthService creates an AuthService backed by the given store.
// Call Load before serving requests.
func NewAuthService(kv domain.KeyValueStore, jwtSecret string, bcryptCost int) *AuthService {
	return &AuthService{
		kv:         kv,
		jwtSecret:  []byte(jwtSecret),
		bcryptCost: bcryptCost,
	}
}

// ProfilePatch is a field-level partial update of the active user's profile.
type ProfilePatch struct {
	Name  *string
	Email *string
}

// Load restores the user collection and the active session from the
// key-value store. Absent keys mean no users and no session.
func (s *AuthService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.kv.Load(ctx, keyUsers)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.users = nil
	case err != nil:
		return fmt.Errorf("load users: %w", err)
	default:
		if err := json.Unmarshal(raw, &s.users); err != nil {
			return fmt.Errorf("decode users: %w", err)
		}
	}
	for _, u := range s.users {
		if u.ID > s.lastID {
			s.lastID = u.ID
		}
	}

	raw, err = s.kv.Load(ctx, keyCurrentUser)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.current = nil
	case err != nil:
		return fmt.Errorf("load session: %w", err)
	default:
		var current domain.User
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		s.current = &current
	}
	return nil
}

// Register creates a new user, persists the collection, and sets the new
// user as the active session. The returned user is credential-stripped.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email, and password are required", domain.ErrInvalidInput)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return nil, domain.ErrDuplicateEmail
		}
	}

	user := domain.User{
		ID:           s.nextID(time.Now()),
		Name:         name,
		Email:        email,
		Avatar:       avatarFor(name),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	next := append(append([]domain.User(nil), s.users...), user)
	if err := s.persistUsers(ctx, next); err != nil {
		return nil, err
	}
	s.users = next

	if err := s.setSession(ctx, user); err != nil {
		return nil, err
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// Login verifies credentials and sets the matching user as the active
// session. The returned user is credential-stripped.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email != email {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return nil, domain.ErrInvalidCredentials
		}
		if err := s.setSession(ctx, u); err != nil {
			return nil, err
		}
		sanitized := u.Sanitized()
		return &sanitized, nil
	}
	return nil, domain.ErrInvalidCredentials
}

// Logout clears the active session and removes its persisted copy.
func (s *AuthService) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, keyCurrentUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.current = nil
	return nil
}

// UpdateProfile merges the patch into the active user's record, regenerating
// the avatar when the name changes, and persists both the user collection
// and the session copy. Without an active session this is a silent no-op.
func (s *AuthService) UpdateProfile(ctx context.Context, patch ProfilePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}

	idx := -1
	for i := range s.users {
		if s.users[i].ID == s.current.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	next := append([]domain.User(nil), s.users...)
	u := &next[idx]
	if patch.Name != nil {
		u.Name = *patch.Name
		u.Avatar = avatarFor(*patch.Name)
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}

	if err := s.persistUsers(ctx, next); err != nil {
		return err
	}
	s.users = next

	return s.setSession(ctx, next[idx])
}

// CurrentUser returns a copy of the active session's user, or nil when
// logged out.
func (s *AuthService) CurrentUser() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil
	}
	current := *s.current
	return &current
}

// GetUserByID returns a credential-stripped copy of the user with the given
// id.
func (s *AuthService) GetUserByID(id int64) (*domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == id {
			sanitized := u.Sanitized()
			return &sanitized, true
		}
	}
	return nil, false
}

// IssueToken returns a signed JWT whose subject is the user's id.
func (s *AuthService) IssueToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(user.ID, 10),
		"email": user.Email,
		"name":  user.Name,
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken parses and validates a JWT token string.
// Returns the user ID from the sub claim.
func (s *AuthService) ValidateToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return 0, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, domain.ErrUnauthorized
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return 0, domain.ErrUnauthorized
	}

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, domain.ErrUnauthorized
	}

	return userID, nil
}

// setSession persists and installs the credential-stripped session copy.
// Caller must hold the lock.
func (s *AuthService) setSession(ctx context.Context, user domain.User) error {
	sanitized := user.Sanitized()
	raw, err := json.Marshal(sanitized)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Save(ctx, keyCurrentUser, raw); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.current = &sanitized
	return nil
}

// persistUsers serializes the candidate user collection and writes it
// through the key-value store. Caller must hold the lock.
func (s *AuthService) persistUsers(ctx context.Context, users []domain.User) error {
	raw, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if err := s.kv.Save(ctx, keyUsers, raw); err != nil {
		return fmt.Errorf("persist users: %w", err)
	}
	return nil
}

// nextID returns a time-based id, bumped monotonically so that two
// registrations in the same millisecond stay unique. Caller must hold the
// lock.
func (s *AuthService) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// avatarFor derives the avatar from the first rune of the name, uppercased.
func avatarFor(name string) string {
	if name == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}
