package model

import "time"

// Account holds the spendable credit balance of a caller.
type Account struct {
	ID        string
	Credits   int
	UpdatedAt time.Time
}

// CreditRefund is the ledger row written once per refunded job.
type CreditRefund struct {
	JobID     string
	OwnerID   string
	Amount    int
	CreatedAt time.Time
}
