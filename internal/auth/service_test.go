package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"financas/internal/storage"
)

func newService(ttl time.Duration) *Service {
	return NewService(storage.NewMemoryStore(), Options{
		SessionTTL:  ttl,
		MaxSessions: 10,
		BcryptCost:  bcrypt.MinCost,
	})
}

func TestSignUpSignInSignOut(t *testing.T) {
	ctx := context.Background()
	s := newService(time.Hour)

	var mu sync.Mutex
	var events []Event
	unsubscribe := s.OnAuthStateChange(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})
	defer unsubscribe()

	sess, err := s.SignUp(ctx, "  Ana@Example.com ", "segredo")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", sess.User.Email)
	assert.NotEmpty(t, sess.Token)

	u, err := s.CurrentUser(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, u.ID)

	again, err := s.SignIn(ctx, "ana@example.com", "segredo")
	require.NoError(t, err)
	assert.NotEqual(t, sess.Token, again.Token)
	assert.Equal(t, 2, s.ActiveSessions())

	s.SignOut(ctx, sess.Token)
	_, err = s.CurrentUser(sess.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	s.SignOut(ctx, sess.Token)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 3)
	assert.Equal(t, ReasonSignedIn, events[0].Reason)
	assert.Equal(t, ReasonSignedOut, events[2].Reason)
	assert.Nil(t, events[2].User)
}

func TestSignInErrors(t *testing.T) {
	ctx := context.Background()
	s := newService(time.Hour)
	_, err := s.SignUp(ctx, "ana@example.com", "segredo")
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		want     error
		message  string
	}{
		{"unknown user", "bob@example.com", "segredo", ErrUserNotFound, "Nenhum usuário encontrado com este e-mail."},
		{"wrong password", "ana@example.com", "errada1", ErrWrongPassword, "Senha incorreta. Por favor, tente novamente."},
		{"bad email", "not-an-email", "segredo", ErrInvalidEmail, "Por favor, insira um e-mail válido."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SignIn(ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.message, Message(err))
		})
	}
}

func TestSignUpErrors(t *testing.T) {
	ctx := context.Background()
	s := newService(time.Hour)
	_, err := s.SignUp(ctx, "ana@example.com", "segredo")
	require.NoError(t, err)

	_, err = s.SignUp(ctx, "ANA@example.com", "outra-senha")
	assert.ErrorIs(t, err, ErrEmailInUse)
	assert.Equal(t, "Este e-mail já está em uso por outra conta.", Message(err))

	_, err = s.SignUp(ctx, "new@example.com", "12345")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = s.SignUp(ctx, "user@localhost", "segredo")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestExpiredSessionsNotifyListeners(t *testing.T) {
	ctx := context.Background()
	s := newService(time.Millisecond)

	expired := make(chan Event, 1)
	s.OnAuthStateChange(func(e Event) {
		if e.Reason == ReasonExpired {
			expired <- e
		}
	})

	sess, err := s.SignUp(ctx, "ana@example.com", "segredo")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 1, s.CleanExpired())
	select {
	case e := <-expired:
		assert.Equal(t, sess.Token, e.Token)
	default:
		t.Fatal("expiry was not reported")
	}
	_, err = s.CurrentUser(sess.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestMessageFallsBackToGeneric(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, genericMessage, Message(errors.New("boom")))
}
