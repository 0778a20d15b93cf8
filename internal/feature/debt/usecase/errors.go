// Package usecase implements the business logic for the debt feature.
package usecase

import "errors"

var (
	// ErrDebtNotFound is returned when a debt does not exist or is not owned by the caller.
	ErrDebtNotFound = errors.New("debt not found")

	// ErrUserNotFound is returned by the user directory when an id does not resolve.
	ErrUserNotFound = errors.New("user not found")

	// ErrOwnerNotFound is returned when the requesting user no longer exists.
	ErrOwnerNotFound = errors.New("owner not found")

	// ErrCounterpartyNotFound is returned when the given counterparty id does not resolve to a user.
	ErrCounterpartyNotFound = errors.New("counterparty not found")

	// ErrInvalidAmount is returned when an amount is below 0.01 or has more than two decimal places.
	ErrInvalidAmount = errors.New("amount must be at least 0.01 with at most 2 decimal places")

	// ErrAmountTooLarge is returned when an amount does not fit 16 integer digits.
	ErrAmountTooLarge = errors.New("amount must not exceed 9999999999999999.99")

	// ErrTitleRequired is returned when the title is empty after trimming.
	ErrTitleRequired = errors.New("title is required")

	// ErrInvalidCurrency is returned when the currency is not a 3-letter code.
	ErrInvalidCurrency = errors.New("currency must be a 3-letter code")

	// ErrPaidDebtImmutable is returned when editing a debt that is marked as paid.
	ErrPaidDebtImmutable = errors.New("cannot modify a paid debt")

	// ErrDebtAlreadyPaid is returned when paying a debt that is already paid.
	ErrDebtAlreadyPaid = errors.New("debt is already paid")

	// ErrDebtNotPaid is returned when unpaying a debt that is still pending.
	ErrDebtNotPaid = errors.New("debt is not paid")

	// ErrUnsupportedFormat is returned by Export for formats other than json and csv.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)
