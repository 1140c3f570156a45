package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"telemed/internal/domain"
	"telemed/internal/repository"
	"telemed/internal/storage"
)

type DoctorServiceImpl struct {
	userRepo    repository.UserRepository
	fileStorage storage.FileStorage
	logger      *zap.Logger
}

func NewDoctorService(userRepo repository.UserRepository, fileStorage storage.FileStorage, logger *zap.Logger) *DoctorServiceImpl {
	return &DoctorServiceImpl{
		userRepo:    userRepo,
		fileStorage: fileStorage,
		logger:      logger,
	}
}

func (s *DoctorServiceImpl) ListVerified(ctx context.Context, specialty *string, limit, offset int) ([]domain.User, int, error) {
	verified := domain.VerificationStatusVerified
	filter := domain.DoctorFilter{
		Specialty:          specialty,
		VerificationStatus: &verified,
		Limit:              limit,
		Offset:             offset,
	}

	doctors, total, err := s.userRepo.ListDoctors(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка получения списка врачей", zap.Error(err))
		return nil, 0, errors.New("ошибка получения списка врачей")
	}

	return doctors, total, nil
}

func (s *DoctorServiceImpl) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	if user.Role != domain.UserRoleDoctor {
		return nil, domain.ErrNotFound
	}

	return user, nil
}

func (s *DoctorServiceImpl) UploadCredential(ctx context.Context, doctorID int64, data []byte, filename string) (string, error) {
	if _, err := s.GetByID(ctx, doctorID); err != nil {
		return "", err
	}

	url, err := s.fileStorage.UploadFile(ctx, data, filename)
	if err != nil {
		s.logger.Error("ошибка загрузки документа", zap.Int64("doctorId", doctorID), zap.Error(err))
		return "", errors.New("ошибка загрузки документа")
	}

	if err := s.userRepo.UpdateCredentialURL(ctx, doctorID, url); err != nil {
		s.logger.Error("ошибка сохранения ссылки на документ", zap.Int64("doctorId", doctorID), zap.Error(err))
		return "", errors.New("ошибка сохранения документа")
	}

	return url, nil
}

func (s *DoctorServiceImpl) ListPending(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	pending := domain.VerificationStatusPending
	filter := domain.DoctorFilter{
		VerificationStatus: &pending,
		Limit:              limit,
		Offset:             offset,
	}

	doctors, total, err := s.userRepo.ListDoctors(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка получения списка врачей на проверке", zap.Error(err))
		return nil, 0, errors.New("ошибка получения списка врачей")
	}

	return doctors, total, nil
}

func (s *DoctorServiceImpl) SetVerification(ctx context.Context, doctorID int64, status domain.VerificationStatus) error {
	if status != domain.VerificationStatusVerified && status != domain.VerificationStatusRejected {
		return errors.New("недопустимый статус проверки")
	}

	if err := s.userRepo.UpdateVerification(ctx, doctorID, status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		s.logger.Error("ошибка обновления статуса проверки", zap.Int64("doctorId", doctorID), zap.Error(err))
		return errors.New("ошибка обновления статуса проверки")
	}

	return nil
}
