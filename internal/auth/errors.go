package auth

import "errors"

// Error codes follow the identity provider convention the UI matches on.
var (
	ErrUserNotFound    = errors.New("auth/user-not-found")
	ErrWrongPassword   = errors.New("auth/wrong-password")
	ErrEmailInUse      = errors.New("auth/email-already-in-use")
	ErrInvalidEmail    = errors.New("auth/invalid-email")
	ErrWeakPassword    = errors.New("auth/weak-password")
	ErrUnauthenticated = errors.New("auth/unauthenticated")
)

const genericMessage = "Ocorreu um erro durante a autenticação. Por favor, tente novamente."

// Message returns the Portuguese text shown to the user for err.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUserNotFound):
		return "Nenhum usuário encontrado com este e-mail."
	case errors.Is(err, ErrWrongPassword):
		return "Senha incorreta. Por favor, tente novamente."
	case errors.Is(err, ErrEmailInUse):
		return "Este e-mail já está em uso por outra conta."
	case errors.Is(err, ErrInvalidEmail):
		return "Por favor, insira um e-mail válido."
	case errors.Is(err, ErrWeakPassword):
		return "A senha deve ter pelo menos 6 caracteres."
	case errors.Is(err, ErrUnauthenticated):
		return "Sua sessão expirou. Entre novamente."
	}
	return genericMessage
}
