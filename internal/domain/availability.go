package domain

import (
	"time"

	"telemed/pkg/timewindow"
)

type AvailabilityStatus string

const (
	AvailabilityStatusAvailable AvailabilityStatus = "AVAILABLE"
	AvailabilityStatusBooked    AvailabilityStatus = "BOOKED"
	AvailabilityStatusBlocked   AvailabilityStatus = "BLOCKED"
)

// AvailabilityBlock — окно рабочего времени врача, полуоткрытый интервал
// [StartTime, EndTime). Timezone хранится явно: пациент и врач могут
// находиться в разных часовых поясах, а границы календарных дней при
// выдаче слотов считаются в поясе врача.
type AvailabilityBlock struct {
	ID        int64              `json:"id"`
	DoctorID  int64              `json:"doctor_id"`
	StartTime time.Time          `json:"start_time"`
	EndTime   time.Time          `json:"end_time"`
	Status    AvailabilityStatus `json:"status"`
	Timezone  string             `json:"timezone"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (b AvailabilityBlock) Window() timewindow.Window {
	return timewindow.Window{Start: b.StartTime, End: b.EndTime}
}

// Slot — вычисляемый интервал фиксированной длины внутри свободной части
// блока доступности. Никогда не сохраняется.
type Slot struct {
	DoctorID  int64     `json:"doctor_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Formatted string    `json:"formatted"`
	Day       string    `json:"day"`
}

// AvailableDay — слоты одного календарного дня горизонта. День без
// доступных слотов присутствует в выдаче с пустым списком.
type AvailableDay struct {
	Date        string `json:"date"`
	DisplayDate string `json:"display_date"`
	Slots       []Slot `json:"slots"`
}

type CreateAvailabilityDTO struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	Timezone  string    `json:"timezone"`
}

type AvailabilityFilter struct {
	DoctorID  *int64              `json:"doctor_id"`
	Status    *AvailabilityStatus `json:"status"`
	StartDate *time.Time          `json:"start_date"`
	EndDate   *time.Time          `json:"end_date"`
}
