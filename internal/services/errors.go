package services

import (
	"context"
	"errors"
	"strings"

	"financas/internal/auth"
	"financas/internal/core"
	"financas/internal/gateway"
	"financas/internal/storage"
)

// Category groups errors by how the UI reacts to them.
type Category string

const (
	CategoryNone        Category = ""
	CategoryValidation  Category = "validation"
	CategoryDisallowed  Category = "disallowed"
	CategoryNotFound    Category = "not-found"
	CategoryPermission  Category = "permission"
	CategoryUnavailable Category = "unavailable"
	CategoryUnknown     Category = "unknown"
)

// Classify maps err onto its category.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case core.IsValidation(err):
		return CategoryValidation
	case errors.Is(err, core.ErrInstallmentImmutable):
		return CategoryDisallowed
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrNoInstallments):
		return CategoryNotFound
	case errors.Is(err, storage.ErrPermissionDenied), errors.Is(err, auth.ErrUnauthenticated):
		return CategoryPermission
	case errors.Is(err, gateway.ErrQueueFull), errors.Is(err, gateway.ErrClosed),
		errors.Is(err, context.DeadlineExceeded), isBusy(err):
		return CategoryUnavailable
	}
	return CategoryUnknown
}

// isBusy recognises a locked SQLite database; the driver reports it only
// through the message.
func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

var validationMessages = map[error]string{
	core.ErrEmptyDescription:        "A descrição não pode ficar vazia.",
	core.ErrDescriptionTooLong:      "A descrição deve ter no máximo 200 caracteres.",
	core.ErrObservationTooLong:      "A observação deve ter no máximo 400 caracteres.",
	core.ErrInvalidAmount:           "Informe um valor maior que zero.",
	core.ErrMissingDate:             "Selecione uma data.",
	core.ErrInvalidKind:             "Tipo inválido: use receita ou despesa.",
	core.ErrInvalidStatus:           "Status inválido: use pago ou pendente.",
	core.ErrInvalidInstallmentCount: "O número de parcelas deve estar entre 1 e 480.",
	core.ErrEmptyName:               "O nome não pode ficar vazio.",
	core.ErrNameTooLong:             "O nome deve ter no máximo 200 caracteres.",
	core.ErrGroupKindMismatch:       "O grupo selecionado pertence a outro tipo de transação.",
	core.ErrKindImmutable:           "O tipo de uma transação não pode ser alterado.",
	core.ErrInvalidPeriod:           "Período inválido.",
}

const fallbackValidationMessage = "Por favor, preencha todos os campos com valores válidos."

// UserMessage returns the Portuguese text shown for err. Unknown errors are
// passed through verbatim.
func UserMessage(err error) string {
	switch Classify(err) {
	case CategoryNone:
		return ""
	case CategoryValidation:
		for target, msg := range validationMessages {
			if errors.Is(err, target) {
				return msg
			}
		}
		return fallbackValidationMessage
	case CategoryDisallowed:
		return "Parcelas não podem ser editadas ou excluídas individualmente. Exclua o parcelamento inteiro."
	case CategoryNotFound:
		if errors.Is(err, core.ErrNoInstallments) {
			return "Nenhuma parcela encontrada para este parcelamento."
		}
		return "Registro não encontrado."
	case CategoryPermission:
		return "Você não tem permissão para esta operação. Entre novamente."
	case CategoryUnavailable:
		return "O serviço está temporariamente indisponível. Tente novamente em instantes."
	}
	return err.Error()
}
