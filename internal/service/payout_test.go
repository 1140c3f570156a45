package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"telemed/internal/domain"
)

type payoutFixture struct {
	service *PayoutServiceImpl
	users   *fakeUserRepo
	payouts *fakePayoutRepo
}

func newPayoutFixture(t *testing.T) *payoutFixture {
	t.Helper()

	users := newFakeUserRepo(
		&domain.User{ID: 1, Email: "patient@test.ru", Role: domain.UserRolePatient, Credits: 10},
		&domain.User{ID: 2, Email: "doctor@test.ru", Role: domain.UserRoleDoctor, Credits: 10},
	)
	payouts := &fakePayoutRepo{users: users}

	return &payoutFixture{
		service: NewPayoutService(payouts, users, zap.NewNop()),
		users:   users,
		payouts: payouts,
	}
}

func TestPayoutService_Request(t *testing.T) {
	t.Run("заявка резервирует кредиты", func(t *testing.T) {
		f := newPayoutFixture(t)

		id, err := f.service.Request(context.Background(), 2, domain.RequestPayoutDTO{Credits: 6})
		require.NoError(t, err)

		assert.NotZero(t, id)
		assert.Equal(t, 4, f.users.users[2].Credits)
	})

	t.Run("недостаточно кредитов", func(t *testing.T) {
		f := newPayoutFixture(t)

		_, err := f.service.Request(context.Background(), 2, domain.RequestPayoutDTO{Credits: 11})
		assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
	})

	t.Run("пациент не может запросить выплату", func(t *testing.T) {
		f := newPayoutFixture(t)

		_, err := f.service.Request(context.Background(), 1, domain.RequestPayoutDTO{Credits: 1})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPayoutService_Approve(t *testing.T) {
	t.Run("подтверждение заявки", func(t *testing.T) {
		f := newPayoutFixture(t)
		id, err := f.service.Request(context.Background(), 2, domain.RequestPayoutDTO{Credits: 5})
		require.NoError(t, err)

		payout, err := f.service.Approve(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.PayoutStatusApproved, payout.Status)
	})

	t.Run("повторное подтверждение", func(t *testing.T) {
		f := newPayoutFixture(t)
		id, err := f.service.Request(context.Background(), 2, domain.RequestPayoutDTO{Credits: 5})
		require.NoError(t, err)

		_, err = f.service.Approve(context.Background(), id)
		require.NoError(t, err)

		_, err = f.service.Approve(context.Background(), id)
		assert.Error(t, err)
	})

	t.Run("несуществующая заявка", func(t *testing.T) {
		f := newPayoutFixture(t)

		_, err := f.service.Approve(context.Background(), 99)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPayoutService_Earnings(t *testing.T) {
	t.Run("сводка учитывает баланс и заявки", func(t *testing.T) {
		f := newPayoutFixture(t)

		approvedID, err := f.service.Request(context.Background(), 2, domain.RequestPayoutDTO{Credits: 3})
		require.NoError(t, err)
		_, err = f.service.Approve(context.Background(), approvedID)
		require.NoError(t, err)

		_, err = f.service.Request(context.Background(), 2, domain.RequestPayoutDTO{Credits: 2})
		require.NoError(t, err)

		earnings, err := f.service.Earnings(context.Background(), 2)
		require.NoError(t, err)

		assert.Equal(t, 5, earnings.Credits)
		assert.Equal(t, 2, earnings.PendingPayouts)
		assert.Equal(t, 3, earnings.PaidOut)
	})

	t.Run("несуществующий врач", func(t *testing.T) {
		f := newPayoutFixture(t)

		_, err := f.service.Earnings(context.Background(), 99)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
