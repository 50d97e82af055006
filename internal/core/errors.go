package core

import "errors"

// Validation errors. These are detected before any write is attempted.
var (
	ErrEmptyDescription        = errors.New("empty description")
	ErrDescriptionTooLong      = errors.New("description too long (max 200 characters)")
	ErrObservationTooLong      = errors.New("observation too long (max 400 characters)")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrMissingDate             = errors.New("missing date")
	ErrInvalidKind             = errors.New("invalid tipo")
	ErrInvalidStatus           = errors.New("invalid status")
	ErrInvalidInstallmentCount = errors.New("invalid installment count")
	ErrInvalidInstallment      = errors.New("invalid installment")
	ErrEmptyName               = errors.New("empty name")
	ErrNameTooLong             = errors.New("name too long (max 200 characters)")
	ErrGroupKindMismatch       = errors.New("group tipo does not match transaction tipo")
	ErrKindImmutable           = errors.New("tipo cannot change after creation")
	ErrInvalidPeriod           = errors.New("invalid period")
)

// ErrInstallmentImmutable rejects edits or deletes aimed at a single member
// of an installment group.
var ErrInstallmentImmutable = errors.New("installment members can only be deleted as a whole group")

var (
	ErrNotFound       = errors.New("not found")
	ErrNoInstallments = errors.New("no installments found")
)

// IsValidation reports whether err is one of the validation errors above.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrEmptyDescription, ErrDescriptionTooLong, ErrObservationTooLong,
		ErrInvalidAmount, ErrMissingDate, ErrInvalidKind, ErrInvalidStatus,
		ErrInvalidInstallmentCount, ErrInvalidInstallment, ErrEmptyName,
		ErrNameTooLong, ErrGroupKindMismatch, ErrKindImmutable, ErrInvalidPeriod,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
