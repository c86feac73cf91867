package models

import "time"

// AccountStatus is the administrative state of an account.
type AccountStatus string

const (
	StatusPending   AccountStatus = "pending"
	StatusActivated AccountStatus = "activated"
	StatusBlocked   AccountStatus = "blocked"
)

// Valid reports whether s is a known account status.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActivated, StatusBlocked:
		return true
	}
	return false
}

// Account captures a participant's identity, role, status and balance.
// Balance is held in the smallest currency unit and never goes negative.
type Account struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Phone     string        `json:"phone,omitempty"`
	Role      Role          `json:"role"`
	Status    AccountStatus `json:"status"`
	Balance   int64         `json:"balance"`
	IsNew     bool          `json:"isNew"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Active reports whether the account may take part in a transfer.
func (a Account) Active() bool {
	return a.Status == StatusActivated
}

// AccountFilter narrows account listings. Search is matched case-insensitively
// against name and email. Admin accounts are never listed.
type AccountFilter struct {
	Search string
	Role   Role
	Limit  int
	Offset int
}
