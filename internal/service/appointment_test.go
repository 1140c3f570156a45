package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"telemed/config"
	"telemed/internal/domain"
	"telemed/pkg/lock"
	"telemed/pkg/timewindow"
)

var testBooking = config.BookingConfig{
	CreditCost:   2,
	SlotDuration: 30 * time.Minute,
	HorizonDays:  4,
	JoinLeadTime: 30 * time.Minute,
}

type appointmentFixture struct {
	service      *AppointmentServiceImpl
	users        *fakeUserRepo
	availability *fakeAvailabilityRepo
	appointments *fakeAppointmentRepo
	locker       *fakeLocker
	now          time.Time
}

func newAppointmentFixture(t *testing.T) *appointmentFixture {
	t.Helper()

	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	users := newFakeUserRepo(
		&domain.User{ID: 1, Email: "patient@test.ru", Role: domain.UserRolePatient, Credits: 2},
		&domain.User{ID: 2, Email: "doctor@test.ru", Role: domain.UserRoleDoctor, VerificationStatus: domain.VerificationStatusVerified},
	)

	availability := &fakeAvailabilityRepo{}
	availability.blocks = append(availability.blocks, domain.AvailabilityBlock{
		ID:        1,
		DoctorID:  2,
		StartTime: now.Add(1 * time.Hour),  // 09:00
		EndTime:   now.Add(4 * time.Hour),  // 12:00
		Status:    domain.AvailabilityStatusAvailable,
		Timezone:  "UTC",
	})

	appointments := &fakeAppointmentRepo{users: users}
	locker := &fakeLocker{}

	svc := NewAppointmentService(
		appointments,
		availability,
		users,
		locker,
		NewVideoProvisioner("test-key"),
		testBooking,
		fixedClock{now: now},
		zap.NewNop(),
	)

	return &appointmentFixture{
		service:      svc,
		users:        users,
		availability: availability,
		appointments: appointments,
		locker:       locker,
		now:          now,
	}
}

func (f *appointmentFixture) bookDTO(offset time.Duration) domain.BookAppointmentDTO {
	start := f.now.Add(offset)
	return domain.BookAppointmentDTO{
		DoctorID:  2,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
	}
}

func TestAppointmentService_Book(t *testing.T) {
	t.Run("успешное бронирование", func(t *testing.T) {
		f := newAppointmentFixture(t)

		appointment, err := f.service.Book(context.Background(), 1, f.bookDTO(time.Hour))
		require.NoError(t, err)

		assert.Equal(t, domain.AppointmentStatusScheduled, appointment.Status)
		assert.Equal(t, int64(1), appointment.PatientID)
		assert.Equal(t, int64(2), appointment.DoctorID)
		assert.Equal(t, 1, f.locker.calls)

		// Кредиты списаны с пациента и начислены врачу.
		assert.Equal(t, 0, f.users.users[1].Credits)
		assert.Equal(t, 2, f.users.users[2].Credits)
	})

	t.Run("невалидное окно", func(t *testing.T) {
		f := newAppointmentFixture(t)

		dto := f.bookDTO(time.Hour)
		dto.EndTime = dto.StartTime

		_, err := f.service.Book(context.Background(), 1, dto)
		assert.ErrorIs(t, err, timewindow.ErrInvalidWindow)
	})

	t.Run("недостаточно кредитов", func(t *testing.T) {
		f := newAppointmentFixture(t)
		f.users.users[1].Credits = 1

		_, err := f.service.Book(context.Background(), 1, f.bookDTO(time.Hour))
		assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
	})

	t.Run("нехватка кредитов побеждает занятый слот", func(t *testing.T) {
		// Проверки идут в фиксированном порядке: при нехватке кредитов
		// пациент получает ошибку о кредитах, даже если слот тоже занят.
		f := newAppointmentFixture(t)
		f.users.users[1].Credits = 0
		f.appointments.appointments = append(f.appointments.appointments, domain.Appointment{
			ID:        99,
			PatientID: 3,
			DoctorID:  2,
			StartTime: f.now.Add(time.Hour),
			EndTime:   f.now.Add(90 * time.Minute),
			Status:    domain.AppointmentStatusScheduled,
		})

		_, err := f.service.Book(context.Background(), 1, f.bookDTO(time.Hour))
		assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
	})

	t.Run("слот вне блока доступности", func(t *testing.T) {
		f := newAppointmentFixture(t)

		// 12:00-12:30 — сразу за концом блока.
		_, err := f.service.Book(context.Background(), 1, f.bookDTO(4*time.Hour))
		assert.ErrorIs(t, err, domain.ErrSlotNotFree)
	})

	t.Run("слот пересекается с чужой записью", func(t *testing.T) {
		f := newAppointmentFixture(t)
		f.appointments.appointments = append(f.appointments.appointments, domain.Appointment{
			ID:        99,
			PatientID: 3,
			DoctorID:  2,
			StartTime: f.now.Add(75 * time.Minute),
			EndTime:   f.now.Add(105 * time.Minute),
			Status:    domain.AppointmentStatusScheduled,
		})

		_, err := f.service.Book(context.Background(), 1, f.bookDTO(time.Hour))
		assert.ErrorIs(t, err, domain.ErrSlotNotFree)
	})

	t.Run("отмененная запись не блокирует слот", func(t *testing.T) {
		f := newAppointmentFixture(t)
		f.appointments.appointments = append(f.appointments.appointments, domain.Appointment{
			ID:        99,
			PatientID: 3,
			DoctorID:  2,
			StartTime: f.now.Add(time.Hour),
			EndTime:   f.now.Add(90 * time.Minute),
			Status:    domain.AppointmentStatusCancelled,
		})

		_, err := f.service.Book(context.Background(), 1, f.bookDTO(time.Hour))
		assert.NoError(t, err)
	})

	t.Run("слот занят побеждает просроченное начало", func(t *testing.T) {
		// Слот в прошлом и вне блока доступности: сначала сообщается про
		// занятость, не про время.
		f := newAppointmentFixture(t)

		_, err := f.service.Book(context.Background(), 1, f.bookDTO(-2*time.Hour))
		assert.ErrorIs(t, err, domain.ErrSlotNotFree)
	})

	t.Run("начало строго в будущем", func(t *testing.T) {
		f := newAppointmentFixture(t)
		f.availability.blocks[0].StartTime = f.now.Add(-time.Hour)

		// Начало ровно в текущий момент — недопустимо.
		_, err := f.service.Book(context.Background(), 1, f.bookDTO(0))
		assert.ErrorIs(t, err, domain.ErrLeadTimeViolation)
	})

	t.Run("занятая блокировка означает занятый слот", func(t *testing.T) {
		f := newAppointmentFixture(t)
		f.locker.err = lock.ErrLockNotAcquired

		_, err := f.service.Book(context.Background(), 1, f.bookDTO(time.Hour))
		assert.ErrorIs(t, err, domain.ErrSlotNotFree)
	})

	t.Run("проигранная гонка в хранилище", func(t *testing.T) {
		f := newAppointmentFixture(t)
		f.appointments.createErr = domain.ErrStorageConflict

		_, err := f.service.Book(context.Background(), 1, f.bookDTO(time.Hour))
		assert.ErrorIs(t, err, domain.ErrStorageConflict)
	})

	t.Run("врач без верификации", func(t *testing.T) {
		f := newAppointmentFixture(t)
		f.users.users[2].VerificationStatus = domain.VerificationStatusPending

		_, err := f.service.Book(context.Background(), 1, f.bookDTO(time.Hour))
		assert.Error(t, err)
	})

	t.Run("пациент с двумя кредитами бронирует ровно один раз", func(t *testing.T) {
		f := newAppointmentFixture(t)

		_, err := f.service.Book(context.Background(), 1, f.bookDTO(time.Hour))
		require.NoError(t, err)

		_, err = f.service.Book(context.Background(), 1, f.bookDTO(2*time.Hour))
		assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
	})
}

func TestAppointmentService_Cancel(t *testing.T) {
	seed := func(f *appointmentFixture, start time.Time) {
		f.appointments.appointments = append(f.appointments.appointments, domain.Appointment{
			ID:        1,
			PatientID: 1,
			DoctorID:  2,
			StartTime: start,
			EndTime:   start.Add(30 * time.Minute),
			Status:    domain.AppointmentStatusScheduled,
		})
	}

	t.Run("отмена за минуту до начала", func(t *testing.T) {
		f := newAppointmentFixture(t)
		seed(f, f.now.Add(time.Minute))

		updated, err := f.service.Cancel(context.Background(), 1, domain.UserRolePatient, 1)
		require.NoError(t, err)

		assert.Equal(t, domain.AppointmentStatusCancelled, updated.Status)
		assert.Len(t, f.availability.released, 1)

		// Кредиты при отмене не возвращаются.
		assert.Equal(t, 2, f.users.users[1].Credits)
	})

	t.Run("отмена в момент начала запрещена", func(t *testing.T) {
		f := newAppointmentFixture(t)
		seed(f, f.now)

		_, err := f.service.Cancel(context.Background(), 1, domain.UserRolePatient, 1)
		assert.ErrorIs(t, err, domain.ErrAlreadyStarted)
	})

	t.Run("отмена после начала запрещена", func(t *testing.T) {
		f := newAppointmentFixture(t)
		seed(f, f.now.Add(-time.Minute))

		_, err := f.service.Cancel(context.Background(), 1, domain.UserRolePatient, 1)
		assert.ErrorIs(t, err, domain.ErrAlreadyStarted)
	})

	t.Run("повторная отмена", func(t *testing.T) {
		f := newAppointmentFixture(t)
		seed(f, f.now.Add(time.Hour))
		f.appointments.appointments[0].Status = domain.AppointmentStatusCancelled

		_, err := f.service.Cancel(context.Background(), 1, domain.UserRolePatient, 1)
		assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)
	})

	t.Run("чужая запись недоступна", func(t *testing.T) {
		f := newAppointmentFixture(t)
		seed(f, f.now.Add(time.Hour))

		_, err := f.service.Cancel(context.Background(), 42, domain.UserRolePatient, 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("администратор может отменить любую запись", func(t *testing.T) {
		f := newAppointmentFixture(t)
		seed(f, f.now.Add(time.Hour))

		_, err := f.service.Cancel(context.Background(), 42, domain.UserRoleAdmin, 1)
		assert.NoError(t, err)
	})
}

func TestAppointmentService_Complete(t *testing.T) {
	seed := func(f *appointmentFixture, end time.Time) {
		f.appointments.appointments = append(f.appointments.appointments, domain.Appointment{
			ID:        1,
			PatientID: 1,
			DoctorID:  2,
			StartTime: end.Add(-30 * time.Minute),
			EndTime:   end,
			Status:    domain.AppointmentStatusScheduled,
		})
	}

	t.Run("завершение до конца приема запрещено", func(t *testing.T) {
		f := newAppointmentFixture(t)
		seed(f, f.now.Add(time.Minute))

		_, err := f.service.Complete(context.Background(), 2, 1, "")
		assert.ErrorIs(t, err, domain.ErrNotYetEndable)
	})

	t.Run("завершение в момент окончания", func(t *testing.T) {
		f := newAppointmentFixture(t)
		seed(f, f.now)

		updated, err := f.service.Complete(context.Background(), 2, 1, "все хорошо")
		require.NoError(t, err)

		assert.Equal(t, domain.AppointmentStatusCompleted, updated.Status)
		assert.Equal(t, "все хорошо", updated.Notes)
	})

	t.Run("завершать может только врач записи", func(t *testing.T) {
		f := newAppointmentFixture(t)
		seed(f, f.now)

		_, err := f.service.Complete(context.Background(), 99, 1, "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("конечный статус неизменяем", func(t *testing.T) {
		f := newAppointmentFixture(t)
		seed(f, f.now)
		f.appointments.appointments[0].Status = domain.AppointmentStatusCompleted

		_, err := f.service.Complete(context.Background(), 2, 1, "")
		assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)
	})
}

func TestAppointmentService_JoinVideo(t *testing.T) {
	seed := func(f *appointmentFixture, start time.Time) {
		f.appointments.appointments = append(f.appointments.appointments, domain.Appointment{
			ID:        1,
			PatientID: 1,
			DoctorID:  2,
			StartTime: start,
			EndTime:   start.Add(30 * time.Minute),
			Status:    domain.AppointmentStatusScheduled,
		})
	}

	t.Run("подключение за 30 минут до начала", func(t *testing.T) {
		f := newAppointmentFixture(t)
		seed(f, f.now.Add(30*time.Minute))

		session, err := f.service.JoinVideo(context.Background(), 1, 1)
		require.NoError(t, err)

		assert.NotEmpty(t, session.SessionID)
		assert.NotEmpty(t, session.Token)
	})

	t.Run("слишком рано", func(t *testing.T) {
		f := newAppointmentFixture(t)
		seed(f, f.now.Add(31*time.Minute))

		_, err := f.service.JoinVideo(context.Background(), 1, 1)
		assert.ErrorIs(t, err, domain.ErrNotJoinable)
	})

	t.Run("подключение в момент окончания", func(t *testing.T) {
		f := newAppointmentFixture(t)
		seed(f, f.now.Add(-30*time.Minute))

		_, err := f.service.JoinVideo(context.Background(), 1, 1)
		assert.NoError(t, err)
	})

	t.Run("после окончания", func(t *testing.T) {
		f := newAppointmentFixture(t)
		seed(f, f.now.Add(-31*time.Minute))

		_, err := f.service.JoinVideo(context.Background(), 1, 1)
		assert.ErrorIs(t, err, domain.ErrNotJoinable)
	})

	t.Run("идентификатор сессии переиспользуется", func(t *testing.T) {
		f := newAppointmentFixture(t)
		seed(f, f.now)

		first, err := f.service.JoinVideo(context.Background(), 1, 1)
		require.NoError(t, err)

		second, err := f.service.JoinVideo(context.Background(), 2, 1)
		require.NoError(t, err)

		assert.Equal(t, first.SessionID, second.SessionID)
	})

	t.Run("посторонний не получает сессию", func(t *testing.T) {
		f := newAppointmentFixture(t)
		seed(f, f.now)

		_, err := f.service.JoinVideo(context.Background(), 42, 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("отмененная запись", func(t *testing.T) {
		f := newAppointmentFixture(t)
		seed(f, f.now)
		f.appointments.appointments[0].Status = domain.AppointmentStatusCancelled

		_, err := f.service.JoinVideo(context.Background(), 1, 1)
		assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)
	})
}
