package domain

import (
	"fmt"
	"strings"
	"time"
)

// Account represents a brokerage account that trades are recorded against.
type Account struct {
	ID            int64
	Name          string
	Broker        Broker
	AccountNumber string
	IsActive      bool
	CreatedAt     time.Time
}

// Validate checks the account fields.
func (a *Account) Validate() error {
	a.Name = strings.TrimSpace(a.Name)
	a.AccountNumber = strings.TrimSpace(a.AccountNumber)
	if a.Name == "" || len(a.Name) > 100 {
		return fmt.Errorf("%w: name must be 1-100 characters", ErrInvalidAccount)
	}
	if a.AccountNumber == "" || len(a.AccountNumber) > 50 {
		return fmt.Errorf("%w: account number must be 1-50 characters", ErrInvalidAccount)
	}
	switch a.Broker {
	case BrokerIBKR, BrokerMoomoo, BrokerQuestrade, BrokerManual:
	default:
		return fmt.Errorf("%w: unknown broker %q", ErrInvalidAccount, a.Broker)
	}
	return nil
}
