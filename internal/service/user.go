package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"telemed/internal/domain"
	"telemed/internal/repository"
)

type UserServiceImpl struct {
	repo   repository.UserRepository
	logger *zap.Logger
}

func NewUserService(repo repository.UserRepository, logger *zap.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		repo:   repo,
		logger: logger,
	}
}

func (s *UserServiceImpl) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		s.logger.Error("ошибка получения пользователя", zap.Int64("id", id), zap.Error(err))
		return nil, errors.New("ошибка получения пользователя")
	}

	return user, nil
}

func (s *UserServiceImpl) Update(ctx context.Context, id int64, dto domain.UpdateUserDTO) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return domain.ErrNotFound
	}

	if err := s.repo.Update(ctx, id, dto); err != nil {
		s.logger.Error("ошибка обновления пользователя", zap.Int64("id", id), zap.Error(err))
		return errors.New("ошибка обновления пользователя")
	}

	return nil
}

func (s *UserServiceImpl) UpdatePassword(ctx context.Context, id int64, dto domain.PasswordUpdateDTO) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.ErrNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(dto.OldPassword)); err != nil {
		return errors.New("неверный текущий пароль")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("ошибка при хешировании пароля", zap.Error(err))
		return errors.New("ошибка обновления пароля")
	}

	if err := s.repo.UpdatePassword(ctx, id, string(hashed)); err != nil {
		s.logger.Error("ошибка обновления пароля", zap.Int64("id", id), zap.Error(err))
		return errors.New("ошибка обновления пароля")
	}

	return nil
}
