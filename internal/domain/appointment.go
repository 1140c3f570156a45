package domain

import (
	"time"

	"telemed/pkg/timewindow"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "SCHEDULED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
)

// IsTerminal — из COMPLETED и CANCELLED переходов нет.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

// Appointment — запись на прием. Окно [StartTime, EndTime) полуоткрытое;
// для одного врача в любой момент времени существует не более одной
// неотмененной записи с пересекающимся окном.
type Appointment struct {
	ID                 int64             `json:"id"`
	PatientID          int64             `json:"patient_id"`
	DoctorID           int64             `json:"doctor_id"`
	StartTime          time.Time         `json:"start_time"`
	EndTime            time.Time         `json:"end_time"`
	Status             AppointmentStatus `json:"status"`
	Notes              string            `json:"notes,omitempty"`
	PatientDescription string            `json:"patient_description,omitempty"`
	VideoSessionID     *string           `json:"video_session_id,omitempty"`
	VideoSessionToken  *string           `json:"video_session_token,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`

	PatientName string `json:"patient_name,omitempty"`
	DoctorName  string `json:"doctor_name,omitempty"`
}

func (a Appointment) Window() timewindow.Window {
	return timewindow.Window{Start: a.StartTime, End: a.EndTime}
}

type BookAppointmentDTO struct {
	DoctorID    int64     `json:"doctor_id" binding:"required"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	Description string    `json:"description"`
}

type AddNotesDTO struct {
	Notes string `json:"notes" binding:"required"`
}

type AppointmentFilter struct {
	PatientID     *int64             `json:"patient_id"`
	DoctorID      *int64             `json:"doctor_id"`
	Status        *AppointmentStatus `json:"status"`
	ExcludeStatus *AppointmentStatus `json:"exclude_status"`
	StartDate     *time.Time         `json:"start_date"`
	EndDate       *time.Time         `json:"end_date"`
	Limit         int                `json:"limit"`
	Offset        int                `json:"offset"`
}

// VideoSession — реквизиты подключения к видеоконсультации.
type VideoSession struct {
	SessionID string `json:"video_session_id"`
	Token     string `json:"token"`
}
