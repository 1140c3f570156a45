package domain

import (
	"time"
)

type PayoutStatus string

const (
	PayoutStatusPending  PayoutStatus = "PENDING"
	PayoutStatusApproved PayoutStatus = "APPROVED"
)

// Payout — заявка врача на вывод заработанных кредитов.
type Payout struct {
	ID          int64        `json:"id"`
	DoctorID    int64        `json:"doctor_id"`
	Credits     int          `json:"credits"`
	Status      PayoutStatus `json:"status"`
	RequestedAt time.Time    `json:"requested_at"`
	ProcessedAt *time.Time   `json:"processed_at,omitempty"`
}

type PayoutFilter struct {
	DoctorID *int64        `json:"doctor_id"`
	Status   *PayoutStatus `json:"status"`
	Limit    int           `json:"limit"`
	Offset   int           `json:"offset"`
}

type RequestPayoutDTO struct {
	Credits int `json:"credits" binding:"required,min=1"`
}

// Earnings — сводка по кредитам врача.
type Earnings struct {
	Credits        int `json:"credits"`
	PendingPayouts int `json:"pending_payouts"`
	PaidOut        int `json:"paid_out"`
}
