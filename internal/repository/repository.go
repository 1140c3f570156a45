package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"telemed/internal/domain"
)

type Repositories struct {
	User         UserRepository
	Availability AvailabilityRepository
	Appointment  AppointmentRepository
	Payout       PayoutRepository
	Auth         AuthRepository
}

func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Availability: NewAvailabilityRepository(db),
		Appointment:  NewAppointmentRepository(db),
		Payout:       NewPayoutRepository(db),
		Auth:         NewAuthRepository(db),
	}
}

type UserRepository interface {
	Create(ctx context.Context, dto domain.CreateUserDTO, passwordHash string, doctor *domain.DoctorProfileDTO) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, id int64, dto domain.UpdateUserDTO) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	ListDoctors(ctx context.Context, filter domain.DoctorFilter) ([]domain.User, int, error)
	UpdateVerification(ctx context.Context, doctorID int64, status domain.VerificationStatus) error
	UpdateCredentialURL(ctx context.Context, doctorID int64, url string) error
}

type AvailabilityRepository interface {
	Create(ctx context.Context, doctorID int64, dto domain.CreateAvailabilityDTO) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.AvailabilityBlock, error)
	List(ctx context.Context, filter domain.AvailabilityFilter) ([]domain.AvailabilityBlock, error)
	UpdateStatus(ctx context.Context, id int64, status domain.AvailabilityStatus) error
	// ReleaseWindow возвращает занятый сегмент [start, end) врача обратно
	// в статус AVAILABLE; вызывается при отмене записи.
	ReleaseWindow(ctx context.Context, doctorID int64, start, end time.Time) error
	Delete(ctx context.Context, id int64) error
}

type AppointmentRepository interface {
	// CreateAtomic применяет бронирование как единое целое в одной
	// транзакции: списание кредитов пациента, начисление врачу,
	// повторная проверка пересечений, вставка записи SCHEDULED и перевод
	// покрывающего сегмента доступности в BOOKED. Частичное применение
	// исключено: любой сбой откатывает все шаги.
	//
	// Требование к хранилищу: конкурирующие бронирования одного врача
	// сериализуются advisory-блокировкой транзакции по doctor_id, поэтому
	// из двух одновременных запросов на один слот ровно один получает
	// domain.ErrStorageConflict.
	CreateAtomic(ctx context.Context, patientID int64, dto domain.BookAppointmentDTO, creditCost int) (*domain.Appointment, error)
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	List(ctx context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, error)
	CountByFilter(ctx context.Context, filter domain.AppointmentFilter) (int, error)
	// UpdateStatusCAS — compare-and-set по текущему статусу; если запись
	// уже не в expected, возвращает domain.ErrStorageConflict.
	UpdateStatusCAS(ctx context.Context, id int64, expected, next domain.AppointmentStatus) (*domain.Appointment, error)
	UpdateNotes(ctx context.Context, id int64, notes string) error
	SetVideoSession(ctx context.Context, id int64, sessionID, token string) error
}

type PayoutRepository interface {
	// Create списывает кредиты врача и создает заявку PENDING в одной
	// транзакции; при нехватке кредитов — domain.ErrInsufficientCredits.
	Create(ctx context.Context, doctorID int64, credits int) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Payout, error)
	List(ctx context.Context, filter domain.PayoutFilter) ([]domain.Payout, error)
	ApproveCAS(ctx context.Context, id int64) (*domain.Payout, error)
	EarningsByDoctor(ctx context.Context, doctorID int64) (*domain.Earnings, error)
}

type AuthRepository interface {
	CreateSession(ctx context.Context, session domain.Session) error
	GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsByUserID(ctx context.Context, userID int64) error
}
