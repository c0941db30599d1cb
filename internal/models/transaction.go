package models

import "time"

// TransactionType distinguishes the origin of a payment record.
type TransactionType string

const (
	TransactionBooking TransactionType = "BOOKING"
	TransactionCourse  TransactionType = "COURSE"
)

// TransactionStatus tracks settlement state of a payment record. Records are
// created by booking and enrollment flows as already-settled entries;
// PENDING exists for bookings awaiting instructor acceptance.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionRefunded  TransactionStatus = "REFUNDED"
)

// Transaction is a payment ledger entry.
type Transaction struct {
	ID           string            `db:"id" json:"id"`
	Type         TransactionType   `db:"type" json:"type"`
	Status       TransactionStatus `db:"status" json:"status"`
	PayerID      string            `db:"payer_id" json:"payer_id"`
	PayeeID      string            `db:"payee_id" json:"payee_id"`
	ReferenceID  string            `db:"reference_id" json:"reference_id"`
	Amount       float64           `db:"amount" json:"amount"`
	Description  string            `db:"description" json:"description"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}

// TransactionFilter captures payment history filters.
type TransactionFilter struct {
	UserID    string
	Type      *TransactionType
	Status    *TransactionStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// MonthlyEarnings aggregates completed earnings for one calendar month.
type MonthlyEarnings struct {
	Month  string  `db:"month" json:"month"`
	Amount float64 `db:"amount" json:"amount"`
	Count  int     `db:"count" json:"count"`
}

// EarningsSummary is the instructor payments dashboard payload.
type EarningsSummary struct {
	InstructorID    string            `json:"instructor_id"`
	TotalEarned     float64           `json:"total_earned"`
	PendingAmount   float64           `json:"pending_amount"`
	CompletedCount  int               `json:"completed_count"`
	PendingCount    int               `json:"pending_count"`
	Monthly         []MonthlyEarnings `json:"monthly"`
	GeneratedAt     time.Time         `json:"generated_at"`
}
