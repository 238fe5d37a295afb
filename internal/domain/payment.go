package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodCreditCard    PaymentMethod = "CREDIT_CARD"
	MethodDebitCard     PaymentMethod = "DEBIT_CARD"
	MethodCash          PaymentMethod = "CASH"
	MethodBankTransfer  PaymentMethod = "BANK_TRANSFER"
	MethodDigitalWallet PaymentMethod = "DIGITAL_WALLET"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCreditCard, MethodDebitCard, MethodCash, MethodBankTransfer, MethodDigitalWallet:
		return true
	}
	return false
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: unknown payment method %q", ErrInvalidArgument, s)
	}
	return m, nil
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:   {PaymentCompleted},
	PaymentCompleted: {PaymentRefunded},
	PaymentRefunded:  {},
}

func (s PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	if s == target {
		return s.Valid()
	}
	for _, t := range paymentTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	st := PaymentStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown payment status %q", ErrInvalidArgument, s)
	}
	return st, nil
}

type Payment struct {
	ID            int64
	Amount        decimal.Decimal
	Method        PaymentMethod
	Status        PaymentStatus
	TransactionID string
	PaidAt        time.Time
	BookingID     int64
	Reference     *string
	Notes         *string
}
