package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"telemed/config"
	"telemed/internal/domain"
	"telemed/internal/repository"
	"telemed/pkg/timewindow"
)

type AvailabilityServiceImpl struct {
	availabilityRepo repository.AvailabilityRepository
	appointmentRepo  repository.AppointmentRepository
	userRepo         repository.UserRepository
	booking          config.BookingConfig
	clock            Clock
	logger           *zap.Logger
}

func NewAvailabilityService(
	availabilityRepo repository.AvailabilityRepository,
	appointmentRepo repository.AppointmentRepository,
	userRepo repository.UserRepository,
	booking config.BookingConfig,
	clock Clock,
	logger *zap.Logger,
) *AvailabilityServiceImpl {
	return &AvailabilityServiceImpl{
		availabilityRepo: availabilityRepo,
		appointmentRepo:  appointmentRepo,
		userRepo:         userRepo,
		booking:          booking,
		clock:            clock,
		logger:           logger,
	}
}

func (s *AvailabilityServiceImpl) Create(ctx context.Context, doctorID int64, dto domain.CreateAvailabilityDTO) (int64, error) {
	window, err := timewindow.New(dto.StartTime, dto.EndTime)
	if err != nil {
		return 0, err
	}

	// Новое окно не должно пересекаться с существующими окнами врача,
	// кроме закрытых (BLOCKED).
	existing, err := s.availabilityRepo.List(ctx, domain.AvailabilityFilter{
		DoctorID:  &doctorID,
		StartDate: &dto.StartTime,
		EndDate:   &dto.EndTime,
	})
	if err != nil {
		s.logger.Error("ошибка получения блоков доступности", zap.Int64("doctorId", doctorID), zap.Error(err))
		return 0, errors.New("ошибка создания блока доступности")
	}

	for _, block := range existing {
		if block.Status == domain.AvailabilityStatusBlocked {
			continue
		}
		if window.Overlaps(block.Window()) {
			return 0, errors.New("окно пересекается с существующим блоком доступности")
		}
	}

	id, err := s.availabilityRepo.Create(ctx, doctorID, dto)
	if err != nil {
		s.logger.Error("ошибка создания блока доступности", zap.Int64("doctorId", doctorID), zap.Error(err))
		return 0, errors.New("ошибка создания блока доступности")
	}

	return id, nil
}

func (s *AvailabilityServiceImpl) ListByDoctor(ctx context.Context, doctorID int64, from, to *time.Time) ([]domain.AvailabilityBlock, error) {
	blocks, err := s.availabilityRepo.List(ctx, domain.AvailabilityFilter{
		DoctorID:  &doctorID,
		StartDate: from,
		EndDate:   to,
	})
	if err != nil {
		s.logger.Error("ошибка получения блоков доступности", zap.Int64("doctorId", doctorID), zap.Error(err))
		return nil, errors.New("ошибка получения блоков доступности")
	}

	return blocks, nil
}

func (s *AvailabilityServiceImpl) Delete(ctx context.Context, doctorID, blockID int64) error {
	block, err := s.availabilityRepo.GetByID(ctx, blockID)
	if err != nil {
		return domain.ErrNotFound
	}
	if block.DoctorID != doctorID {
		return domain.ErrNotFound
	}

	if err := s.availabilityRepo.Delete(ctx, blockID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errors.New("забронированный блок нельзя удалить")
		}
		s.logger.Error("ошибка удаления блока доступности", zap.Int64("blockId", blockID), zap.Error(err))
		return errors.New("ошибка удаления блока доступности")
	}

	return nil
}

func (s *AvailabilityServiceImpl) MarkBlocked(ctx context.Context, doctorID, blockID int64) error {
	block, err := s.availabilityRepo.GetByID(ctx, blockID)
	if err != nil {
		return domain.ErrNotFound
	}
	if block.DoctorID != doctorID {
		return domain.ErrNotFound
	}
	if block.Status == domain.AvailabilityStatusBooked {
		return errors.New("забронированный блок нельзя закрыть")
	}

	if err := s.availabilityRepo.UpdateStatus(ctx, blockID, domain.AvailabilityStatusBlocked); err != nil {
		s.logger.Error("ошибка закрытия блока доступности", zap.Int64("blockId", blockID), zap.Error(err))
		return errors.New("ошибка закрытия блока доступности")
	}

	return nil
}

func (s *AvailabilityServiceImpl) GetAvailableDays(ctx context.Context, doctorID int64) ([]domain.AvailableDay, error) {
	now := s.clock.Now()

	// Выборка с запасом в сутки с обеих сторон: принадлежность слота дню
	// горизонта решается ниже по календарной дате в поясе блока.
	fetchFrom := now.AddDate(0, 0, -1)
	fetchTo := now.AddDate(0, 0, s.booking.HorizonDays+1)

	available := domain.AvailabilityStatusAvailable
	blocks, err := s.availabilityRepo.List(ctx, domain.AvailabilityFilter{
		DoctorID:  &doctorID,
		Status:    &available,
		StartDate: &fetchFrom,
		EndDate:   &fetchTo,
	})
	if err != nil {
		s.logger.Error("ошибка получения блоков доступности", zap.Int64("doctorId", doctorID), zap.Error(err))
		return nil, errors.New("ошибка вычисления свободных слотов")
	}

	// Пояс для календаря горизонта: пояс самого раннего блока врача,
	// иначе UTC.
	loc := time.UTC
	if len(blocks) > 0 {
		if l, err := time.LoadLocation(blocks[0].Timezone); err == nil {
			loc = l
		}
	}

	dayKeys := make([]string, 0, s.booking.HorizonDays)
	days := make(map[string]*domain.AvailableDay, s.booking.HorizonDays)
	today := now.In(loc)
	for i := 0; i < s.booking.HorizonDays; i++ {
		d := today.AddDate(0, 0, i)
		key := d.Format("2006-01-02")
		dayKeys = append(dayKeys, key)
		days[key] = &domain.AvailableDay{
			Date:        key,
			DisplayDate: d.Format("Mon, 02 Jan"),
			Slots:       make([]domain.Slot, 0),
		}
	}

	occupied, err := s.occupiedWindows(ctx, doctorID, blocks)
	if err != nil {
		return nil, err
	}

	for _, block := range blocks {
		blockLoc := loc
		if l, err := time.LoadLocation(block.Timezone); err == nil {
			blockLoc = l
		}

		// Блок участвует целиком: сначала вычитаются занятые окна, потом
		// остаток режется на слоты, и только готовые слоты фильтруются по
		// дню и моменту начала.
		for _, free := range timewindow.Subtract(block.Window(), occupied) {
			for _, sw := range timewindow.Split(free, s.booking.SlotDuration) {
				if !sw.Start.After(now) {
					continue
				}

				key := sw.Start.In(blockLoc).Format("2006-01-02")
				day, ok := days[key]
				if !ok {
					continue
				}

				day.Slots = append(day.Slots, domain.Slot{
					DoctorID:  block.DoctorID,
					StartTime: sw.Start,
					EndTime:   sw.End,
					Formatted: sw.Start.In(blockLoc).Format("15:04"),
					Day:       key,
				})
			}
		}
	}

	result := make([]domain.AvailableDay, 0, len(dayKeys))
	for _, key := range dayKeys {
		day := days[key]
		sort.Slice(day.Slots, func(i, j int) bool {
			return day.Slots[i].StartTime.Before(day.Slots[j].StartTime)
		})
		result = append(result, *day)
	}

	return result, nil
}

func (s *AvailabilityServiceImpl) occupiedWindows(ctx context.Context, doctorID int64, blocks []domain.AvailabilityBlock) ([]timewindow.Window, error) {
	if len(blocks) == 0 {
		return nil, nil
	}

	minStart := blocks[0].StartTime
	maxEnd := blocks[0].EndTime
	for _, block := range blocks[1:] {
		if block.StartTime.Before(minStart) {
			minStart = block.StartTime
		}
		if block.EndTime.After(maxEnd) {
			maxEnd = block.EndTime
		}
	}

	cancelled := domain.AppointmentStatusCancelled
	appointments, err := s.appointmentRepo.List(ctx, domain.AppointmentFilter{
		DoctorID:      &doctorID,
		ExcludeStatus: &cancelled,
		StartDate:     &minStart,
		EndDate:       &maxEnd,
	})
	if err != nil {
		s.logger.Error("ошибка получения записей врача", zap.Int64("doctorId", doctorID), zap.Error(err))
		return nil, errors.New("ошибка вычисления свободных слотов")
	}

	occupied := make([]timewindow.Window, 0, len(appointments))
	for _, appointment := range appointments {
		occupied = append(occupied, appointment.Window())
	}

	return occupied, nil
}
