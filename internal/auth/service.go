// Package auth manages accounts and sessions for the HTTP surface.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"financas/internal/cache"
	"financas/internal/storage"
)

const minPasswordLength = 6

// UserStore is the slice of the store that holds accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u storage.UserRecord) error
	FindUserByEmail(ctx context.Context, email string) (storage.UserRecord, error)
	GetUser(ctx context.Context, id string) (storage.UserRecord, error)
}

type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

type Session struct {
	Token string
	User  User
}

const (
	ReasonSignedIn  = "signed_in"
	ReasonSignedOut = "signed_out"
	ReasonExpired   = "expired"
)

// Event reports an auth state transition. User is nil when the session
// ended.
type Event struct {
	Token  string
	User   *User
	Reason string
}

type Options struct {
	SessionTTL  time.Duration
	MaxSessions int
	BcryptCost  int
	Logger      *slog.Logger
}

type Service struct {
	users    UserStore
	sessions *cache.LRUCache[User]
	cost     int
	logger   *slog.Logger
	newToken func() string
	now      func() time.Time

	mu        sync.Mutex
	listeners map[int]func(Event)
	nextID    int
}

func NewService(users UserStore, opts Options) *Service {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Service{
		users:     users,
		cost:      opts.BcryptCost,
		logger:    opts.Logger,
		newToken:  uuid.NewString,
		now:       time.Now,
		listeners: make(map[int]func(Event)),
	}
	s.sessions = cache.NewLRUCache(cache.Options[User]{
		MaxSize: opts.MaxSessions,
		TTL:     opts.SessionTTL,
		Sliding: true,
		OnEvict: func(token string, u User) {
			s.logger.Info("Session expired", "user_id", u.ID)
			s.emit(Event{Token: token, Reason: ReasonExpired})
		},
	})
	return s
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if len(password) < minPasswordLength {
		return Session{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	rec := storage.UserRecord{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return Session{}, ErrEmailInUse
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "User signed up", "user_id", rec.ID)
	return s.startSession(toUser(rec)), nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}

	rec, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return Session{}, ErrUserNotFound
		}
		return Session{}, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrWrongPassword
	}

	return s.startSession(toUser(rec)), nil
}

func (s *Service) startSession(u User) Session {
	token := s.newToken()
	s.sessions.Set(token, u)
	s.emit(Event{Token: token, User: &u, Reason: ReasonSignedIn})
	return Session{Token: token, User: u}
}

// SignOut ends the session. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) {
	u, ok := s.sessions.Get(token)
	if !ok || !s.sessions.Delete(token) {
		return
	}
	s.logger.InfoContext(ctx, "User signed out", "user_id", u.ID)
	s.emit(Event{Token: token, Reason: ReasonSignedOut})
}

// CurrentUser resolves a session token and extends the session.
func (s *Service) CurrentUser(token string) (User, error) {
	if token == "" {
		return User{}, ErrUnauthenticated
	}
	u, ok := s.sessions.Get(token)
	if !ok {
		return User{}, ErrUnauthenticated
	}
	return u, nil
}

// OnAuthStateChange registers fn for every sign-in and sign-out and returns
// a function that removes it.
func (s *Service) OnAuthStateChange(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Service) emit(e Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}

// CleanExpired drops idle sessions; it lets the service be registered with
// a cache.Manager.
func (s *Service) CleanExpired() int {
	return s.sessions.CleanExpired()
}

// ActiveSessions counts sessions that have not expired.
func (s *Service) ActiveSessions() int {
	n := 0
	s.sessions.Range(func(string, User) bool {
		n++
		return true
	})
	return n
}

func toUser(rec storage.UserRecord) User {
	return User{ID: rec.ID, Email: rec.Email, CreatedAt: rec.CreatedAt}
}
