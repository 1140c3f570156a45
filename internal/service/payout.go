package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"telemed/internal/domain"
	"telemed/internal/repository"
)

type PayoutServiceImpl struct {
	payoutRepo repository.PayoutRepository
	userRepo   repository.UserRepository
	logger     *zap.Logger
}

func NewPayoutService(payoutRepo repository.PayoutRepository, userRepo repository.UserRepository, logger *zap.Logger) *PayoutServiceImpl {
	return &PayoutServiceImpl{
		payoutRepo: payoutRepo,
		userRepo:   userRepo,
		logger:     logger,
	}
}

func (s *PayoutServiceImpl) Request(ctx context.Context, doctorID int64, dto domain.RequestPayoutDTO) (int64, error) {
	doctor, err := s.userRepo.GetByID(ctx, doctorID)
	if err != nil || doctor.Role != domain.UserRoleDoctor {
		return 0, domain.ErrNotFound
	}

	id, err := s.payoutRepo.Create(ctx, doctorID, dto.Credits)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			return 0, domain.ErrInsufficientCredits
		}
		s.logger.Error("ошибка создания заявки на выплату", zap.Int64("doctorId", doctorID), zap.Error(err))
		return 0, errors.New("ошибка создания заявки на выплату")
	}

	s.logger.Info("заявка на выплату создана",
		zap.Int64("payoutId", id),
		zap.Int64("doctorId", doctorID),
		zap.Int("credits", dto.Credits))

	return id, nil
}

func (s *PayoutServiceImpl) History(ctx context.Context, doctorID int64, limit, offset int) ([]domain.Payout, error) {
	payouts, err := s.payoutRepo.List(ctx, domain.PayoutFilter{
		DoctorID: &doctorID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.logger.Error("ошибка получения истории выплат", zap.Int64("doctorId", doctorID), zap.Error(err))
		return nil, errors.New("ошибка получения истории выплат")
	}

	return payouts, nil
}

func (s *PayoutServiceImpl) Earnings(ctx context.Context, doctorID int64) (*domain.Earnings, error) {
	earnings, err := s.payoutRepo.EarningsByDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		s.logger.Error("ошибка получения сводки по кредитам", zap.Int64("doctorId", doctorID), zap.Error(err))
		return nil, errors.New("ошибка получения сводки по кредитам")
	}

	return earnings, nil
}

func (s *PayoutServiceImpl) ListPending(ctx context.Context, limit, offset int) ([]domain.Payout, error) {
	pending := domain.PayoutStatusPending
	payouts, err := s.payoutRepo.List(ctx, domain.PayoutFilter{
		Status: &pending,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Error("ошибка получения списка заявок", zap.Error(err))
		return nil, errors.New("ошибка получения списка заявок")
	}

	return payouts, nil
}

func (s *PayoutServiceImpl) Approve(ctx context.Context, id int64) (*domain.Payout, error) {
	payout, err := s.payoutRepo.ApproveCAS(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		if errors.Is(err, domain.ErrStorageConflict) {
			return nil, errors.New("заявка уже обработана")
		}
		s.logger.Error("ошибка подтверждения выплаты", zap.Int64("payoutId", id), zap.Error(err))
		return nil, errors.New("ошибка подтверждения выплаты")
	}

	s.logger.Info("выплата подтверждена", zap.Int64("payoutId", id))

	return payout, nil
}
