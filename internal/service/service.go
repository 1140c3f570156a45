package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"telemed/config"
	"telemed/internal/domain"
	"telemed/internal/repository"
	"telemed/internal/storage"
	"telemed/pkg/lock"
)

// Clock внедряется во все сервисы, принимающие решения по времени:
// тесты подставляют фиксированный момент.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func NewSystemClock() Clock {
	return systemClock{}
}

type Deps struct {
	Repos       *repository.Repositories
	Logger      *zap.Logger
	Config      *config.Config
	FileStorage storage.FileStorage
	Locker      lock.Locker
	Clock       Clock
}

type Services struct {
	User         UserService
	Auth         AuthService
	Doctor       DoctorService
	Availability AvailabilityService
	Appointment  AppointmentService
	Payout       PayoutService
}

func NewServices(deps Deps) *Services {
	clock := deps.Clock
	if clock == nil {
		clock = NewSystemClock()
	}

	video := NewVideoProvisioner(deps.Config.JWT.SigningKey)

	return &Services{
		User:         NewUserService(deps.Repos.User, deps.Logger),
		Auth:         NewAuthService(deps.Repos.Auth, deps.Repos.User, deps.Config.JWT, deps.Logger),
		Doctor:       NewDoctorService(deps.Repos.User, deps.FileStorage, deps.Logger),
		Availability: NewAvailabilityService(deps.Repos.Availability, deps.Repos.Appointment, deps.Repos.User, deps.Config.Booking, clock, deps.Logger),
		Appointment:  NewAppointmentService(deps.Repos.Appointment, deps.Repos.Availability, deps.Repos.User, deps.Locker, video, deps.Config.Booking, clock, deps.Logger),
		Payout:       NewPayoutService(deps.Repos.Payout, deps.Repos.User, deps.Logger),
	}
}

type AuthService interface {
	Register(ctx context.Context, dto domain.RegisterRequest) (int64, error)
	Login(ctx context.Context, dto domain.LoginRequest, userAgent, ip string) (*domain.Tokens, error)
	RefreshTokens(ctx context.Context, refreshToken, userAgent, ip string) (*domain.Tokens, error)
	Logout(ctx context.Context, refreshToken string) error
	ParseToken(ctx context.Context, token string) (int64, domain.UserRole, error)
}

type UserService interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	Update(ctx context.Context, id int64, dto domain.UpdateUserDTO) error
	UpdatePassword(ctx context.Context, id int64, dto domain.PasswordUpdateDTO) error
}

type DoctorService interface {
	// ListVerified отдает пациентам только врачей со статусом VERIFIED.
	ListVerified(ctx context.Context, specialty *string, limit, offset int) ([]domain.User, int, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UploadCredential(ctx context.Context, doctorID int64, data []byte, filename string) (string, error)
	ListPending(ctx context.Context, limit, offset int) ([]domain.User, int, error)
	SetVerification(ctx context.Context, doctorID int64, status domain.VerificationStatus) error
}

type AvailabilityService interface {
	Create(ctx context.Context, doctorID int64, dto domain.CreateAvailabilityDTO) (int64, error)
	ListByDoctor(ctx context.Context, doctorID int64, from, to *time.Time) ([]domain.AvailabilityBlock, error)
	Delete(ctx context.Context, doctorID, blockID int64) error
	// MarkBlocked закрывает окно от бронирования, не удаляя его.
	MarkBlocked(ctx context.Context, doctorID, blockID int64) error
	// GetAvailableDays вычисляет свободные слоты врача на горизонт
	// бронирования: по одному элементу на каждый календарный день,
	// включая дни без слотов.
	GetAvailableDays(ctx context.Context, doctorID int64) ([]domain.AvailableDay, error)
}

type AppointmentService interface {
	// Book проверяет кредиты, свободу слота и время начала — в этом
	// порядке, останавливаясь на первой ошибке — и бронирует атомарно.
	Book(ctx context.Context, patientID int64, dto domain.BookAppointmentDTO) (*domain.Appointment, error)
	GetByID(ctx context.Context, userID int64, role domain.UserRole, id int64) (*domain.Appointment, error)
	List(ctx context.Context, userID int64, role domain.UserRole, filter domain.AppointmentFilter) ([]domain.Appointment, int, error)
	Cancel(ctx context.Context, userID int64, role domain.UserRole, id int64) (*domain.Appointment, error)
	Complete(ctx context.Context, doctorID, id int64, notes string) (*domain.Appointment, error)
	// JoinVideo выдает реквизиты видеосессии внутри окна подключения.
	JoinVideo(ctx context.Context, userID, id int64) (*domain.VideoSession, error)
}

type PayoutService interface {
	Request(ctx context.Context, doctorID int64, dto domain.RequestPayoutDTO) (int64, error)
	History(ctx context.Context, doctorID int64, limit, offset int) ([]domain.Payout, error)
	Earnings(ctx context.Context, doctorID int64) (*domain.Earnings, error)
	ListPending(ctx context.Context, limit, offset int) ([]domain.Payout, error)
	Approve(ctx context.Context, id int64) (*domain.Payout, error)
}
