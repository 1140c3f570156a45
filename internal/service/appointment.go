package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"telemed/config"
	"telemed/internal/domain"
	"telemed/internal/repository"
	"telemed/pkg/lock"
	"telemed/pkg/timewindow"
)

type AppointmentServiceImpl struct {
	appointmentRepo  repository.AppointmentRepository
	availabilityRepo repository.AvailabilityRepository
	userRepo         repository.UserRepository
	locker           lock.Locker
	video            *VideoProvisioner
	booking          config.BookingConfig
	clock            Clock
	logger           *zap.Logger
}

func NewAppointmentService(
	appointmentRepo repository.AppointmentRepository,
	availabilityRepo repository.AvailabilityRepository,
	userRepo repository.UserRepository,
	locker lock.Locker,
	video *VideoProvisioner,
	booking config.BookingConfig,
	clock Clock,
	logger *zap.Logger,
) *AppointmentServiceImpl {
	return &AppointmentServiceImpl{
		appointmentRepo:  appointmentRepo,
		availabilityRepo: availabilityRepo,
		userRepo:         userRepo,
		locker:           locker,
		video:            video,
		booking:          booking,
		clock:            clock,
		logger:           logger,
	}
}

func (s *AppointmentServiceImpl) Book(ctx context.Context, patientID int64, dto domain.BookAppointmentDTO) (*domain.Appointment, error) {
	window, err := timewindow.New(dto.StartTime, dto.EndTime)
	if err != nil {
		return nil, err
	}

	doctor, err := s.userRepo.GetByID(ctx, dto.DoctorID)
	if err != nil || doctor.Role != domain.UserRoleDoctor {
		return nil, domain.ErrNotFound
	}
	if doctor.VerificationStatus != domain.VerificationStatusVerified {
		return nil, errors.New("врач не прошел проверку")
	}

	// Порядок проверок фиксирован: кредиты, затем свобода слота, затем
	// время начала. Первая неудача решает исход.
	patient, err := s.userRepo.GetByID(ctx, patientID)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	if patient.Credits < s.booking.CreditCost {
		return nil, domain.ErrInsufficientCredits
	}

	if err := s.checkSlotFree(ctx, dto.DoctorID, window); err != nil {
		return nil, err
	}

	if !dto.StartTime.After(s.clock.Now()) {
		return nil, domain.ErrLeadTimeViolation
	}

	var appointment *domain.Appointment
	err = s.locker.WithDoctorLock(ctx, dto.DoctorID, func(lockCtx context.Context) error {
		created, createErr := s.appointmentRepo.CreateAtomic(lockCtx, patientID, dto, s.booking.CreditCost)
		if createErr != nil {
			return createErr
		}
		appointment = created
		return nil
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockNotAcquired) {
			return nil, domain.ErrSlotNotFree
		}
		if errors.Is(err, domain.ErrStorageConflict) ||
			errors.Is(err, domain.ErrInsufficientCredits) {
			return nil, err
		}
		s.logger.Error("ошибка бронирования",
			zap.Int64("patientId", patientID),
			zap.Int64("doctorId", dto.DoctorID),
			zap.Error(err))
		return nil, errors.New("ошибка бронирования записи")
	}

	s.logger.Info("запись создана",
		zap.Int64("appointmentId", appointment.ID),
		zap.Int64("patientId", patientID),
		zap.Int64("doctorId", dto.DoctorID))

	return appointment, nil
}

func (s *AppointmentServiceImpl) checkSlotFree(ctx context.Context, doctorID int64, window timewindow.Window) error {
	available := domain.AvailabilityStatusAvailable
	blocks, err := s.availabilityRepo.List(ctx, domain.AvailabilityFilter{
		DoctorID:  &doctorID,
		Status:    &available,
		StartDate: &window.Start,
		EndDate:   &window.End,
	})
	if err != nil {
		s.logger.Error("ошибка получения блоков доступности", zap.Int64("doctorId", doctorID), zap.Error(err))
		return errors.New("ошибка бронирования записи")
	}

	covered := false
	for _, block := range blocks {
		if block.Window().Contains(window) {
			covered = true
			break
		}
	}
	if !covered {
		return domain.ErrSlotNotFree
	}

	cancelled := domain.AppointmentStatusCancelled
	count, err := s.appointmentRepo.CountByFilter(ctx, domain.AppointmentFilter{
		DoctorID:      &doctorID,
		ExcludeStatus: &cancelled,
		StartDate:     &window.Start,
		EndDate:       &window.End,
	})
	if err != nil {
		s.logger.Error("ошибка проверки пересечений", zap.Int64("doctorId", doctorID), zap.Error(err))
		return errors.New("ошибка бронирования записи")
	}
	if count > 0 {
		return domain.ErrSlotNotFree
	}

	return nil
}

func (s *AppointmentServiceImpl) GetByID(ctx context.Context, userID int64, role domain.UserRole, id int64) (*domain.Appointment, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	if !s.canAccess(appointment, userID, role) {
		return nil, domain.ErrNotFound
	}

	return appointment, nil
}

func (s *AppointmentServiceImpl) canAccess(appointment *domain.Appointment, userID int64, role domain.UserRole) bool {
	if role == domain.UserRoleAdmin {
		return true
	}
	return appointment.PatientID == userID || appointment.DoctorID == userID
}

func (s *AppointmentServiceImpl) List(ctx context.Context, userID int64, role domain.UserRole, filter domain.AppointmentFilter) ([]domain.Appointment, int, error) {
	switch role {
	case domain.UserRolePatient:
		filter.PatientID = &userID
	case domain.UserRoleDoctor:
		filter.DoctorID = &userID
	}

	appointments, err := s.appointmentRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка получения списка записей", zap.Error(err))
		return nil, 0, errors.New("ошибка получения списка записей")
	}

	total, err := s.appointmentRepo.CountByFilter(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка подсчета записей", zap.Error(err))
		return nil, 0, errors.New("ошибка получения списка записей")
	}

	return appointments, total, nil
}

func (s *AppointmentServiceImpl) Cancel(ctx context.Context, userID int64, role domain.UserRole, id int64) (*domain.Appointment, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	if !s.canAccess(appointment, userID, role) {
		return nil, domain.ErrNotFound
	}

	if appointment.Status.IsTerminal() {
		return nil, domain.ErrAlreadyTerminal
	}

	if !s.clock.Now().Before(appointment.StartTime) {
		return nil, domain.ErrAlreadyStarted
	}

	updated, err := s.appointmentRepo.UpdateStatusCAS(ctx, id, domain.AppointmentStatusScheduled, domain.AppointmentStatusCancelled)
	if err != nil {
		if errors.Is(err, domain.ErrStorageConflict) {
			return nil, domain.ErrAlreadyTerminal
		}
		s.logger.Error("ошибка отмены записи", zap.Int64("appointmentId", id), zap.Error(err))
		return nil, errors.New("ошибка отмены записи")
	}

	// Сегмент доступности возвращается в продажу. Кредиты пациенту не
	// возвращаются.
	if err := s.availabilityRepo.ReleaseWindow(ctx, appointment.DoctorID, appointment.StartTime, appointment.EndTime); err != nil {
		s.logger.Warn("не удалось освободить сегмент доступности",
			zap.Int64("appointmentId", id),
			zap.Error(err))
	}

	s.logger.Info("запись отменена", zap.Int64("appointmentId", id), zap.Int64("userId", userID))

	return updated, nil
}

func (s *AppointmentServiceImpl) Complete(ctx context.Context, doctorID, id int64, notes string) (*domain.Appointment, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	if appointment.DoctorID != doctorID {
		return nil, domain.ErrNotFound
	}

	if appointment.Status.IsTerminal() {
		return nil, domain.ErrAlreadyTerminal
	}

	if s.clock.Now().Before(appointment.EndTime) {
		return nil, domain.ErrNotYetEndable
	}

	updated, err := s.appointmentRepo.UpdateStatusCAS(ctx, id, domain.AppointmentStatusScheduled, domain.AppointmentStatusCompleted)
	if err != nil {
		if errors.Is(err, domain.ErrStorageConflict) {
			return nil, domain.ErrAlreadyTerminal
		}
		s.logger.Error("ошибка завершения записи", zap.Int64("appointmentId", id), zap.Error(err))
		return nil, errors.New("ошибка завершения записи")
	}

	if notes != "" {
		if err := s.appointmentRepo.UpdateNotes(ctx, id, notes); err != nil {
			s.logger.Warn("не удалось сохранить заметки", zap.Int64("appointmentId", id), zap.Error(err))
		} else {
			updated.Notes = notes
		}
	}

	s.logger.Info("запись завершена", zap.Int64("appointmentId", id), zap.Int64("doctorId", doctorID))

	return updated, nil
}

func (s *AppointmentServiceImpl) JoinVideo(ctx context.Context, userID, id int64) (*domain.VideoSession, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	if appointment.PatientID != userID && appointment.DoctorID != userID {
		return nil, domain.ErrNotFound
	}

	if appointment.Status.IsTerminal() {
		return nil, domain.ErrAlreadyTerminal
	}

	// Подключение открыто от (start − joinLead) до конца приема
	// включительно.
	now := s.clock.Now()
	joinFrom := appointment.StartTime.Add(-s.booking.JoinLeadTime)
	if now.Before(joinFrom) || now.After(appointment.EndTime) {
		return nil, domain.ErrNotJoinable
	}

	sessionID := s.video.NewSessionID()
	if appointment.VideoSessionID != nil {
		sessionID = *appointment.VideoSessionID
	}

	token, err := s.video.MintToken(appointment.ID, userID, sessionID, appointment.EndTime)
	if err != nil {
		s.logger.Error("ошибка выпуска токена видеосессии", zap.Int64("appointmentId", id), zap.Error(err))
		return nil, errors.New("ошибка подключения к видеосессии")
	}

	if err := s.appointmentRepo.SetVideoSession(ctx, id, sessionID, token); err != nil {
		s.logger.Error("ошибка сохранения видеосессии", zap.Int64("appointmentId", id), zap.Error(err))
		return nil, errors.New("ошибка подключения к видеосессии")
	}

	return &domain.VideoSession{
		SessionID: sessionID,
		Token:     token,
	}, nil
}
