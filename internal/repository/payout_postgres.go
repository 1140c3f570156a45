package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telemed/internal/domain"
)

type PayoutRepo struct {
	db *pgxpool.Pool
}

func NewPayoutRepository(db *pgxpool.Pool) *PayoutRepo {
	return &PayoutRepo{
		db: db,
	}
}

const payoutColumns = `id, doctor_id, credits, status, requested_at, processed_at`

func scanPayout(row pgx.Row) (*domain.Payout, error) {
	var payout domain.Payout

	err := row.Scan(
		&payout.ID,
		&payout.DoctorID,
		&payout.Credits,
		&payout.Status,
		&payout.RequestedAt,
		&payout.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования заявки на выплату: %w", err)
	}

	return &payout, nil
}

func (r *PayoutRepo) Create(ctx context.Context, doctorID int64, credits int) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()

	// Кредиты резервируются в момент подачи заявки, иначе врач мог бы
	// запросить один и тот же остаток дважды.
	tag, err := tx.Exec(ctx,
		`UPDATE users SET credits = credits - $1, updated_at = $2 WHERE id = $3 AND credits >= $1`,
		credits, now, doctorID,
	)
	if err != nil {
		return 0, fmt.Errorf("ошибка резервирования кредитов: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, domain.ErrInsufficientCredits
	}

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO payouts (doctor_id, credits, status, requested_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		doctorID, credits, domain.PayoutStatusPending, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания заявки на выплату: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("ошибка при коммите транзакции: %w", err)
	}

	return id, nil
}

func (r *PayoutRepo) GetByID(ctx context.Context, id int64) (*domain.Payout, error) {
	query := fmt.Sprintf(`SELECT %s FROM payouts WHERE id = $1`, payoutColumns)
	return scanPayout(r.db.QueryRow(ctx, query, id))
}

func (r *PayoutRepo) List(ctx context.Context, filter domain.PayoutFilter) ([]domain.Payout, error) {
	var conditions []string
	var args []interface{}
	argCount := 1

	if filter.DoctorID != nil {
		conditions = append(conditions, fmt.Sprintf("doctor_id = $%d", argCount))
		args = append(args, *filter.DoctorID)
		argCount++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCount))
		args = append(args, *filter.Status)
		argCount++
	}

	query := fmt.Sprintf(`SELECT %s FROM payouts`, payoutColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY requested_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	payouts := make([]domain.Payout, 0)
	for rows.Next() {
		payout, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, *payout)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по строкам: %w", err)
	}

	return payouts, nil
}

func (r *PayoutRepo) ApproveCAS(ctx context.Context, id int64) (*domain.Payout, error) {
	query := `
		UPDATE payouts
		SET status = $1, processed_at = $2
		WHERE id = $3 AND status = $4
		RETURNING id
	`

	var updatedID int64
	err := r.db.QueryRow(ctx, query,
		domain.PayoutStatusApproved, time.Now(), id, domain.PayoutStatusPending,
	).Scan(&updatedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, id); errors.Is(getErr, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, domain.ErrStorageConflict
		}
		return nil, fmt.Errorf("ошибка подтверждения выплаты: %w", err)
	}

	return r.GetByID(ctx, updatedID)
}

func (r *PayoutRepo) EarningsByDoctor(ctx context.Context, doctorID int64) (*domain.Earnings, error) {
	query := `
		SELECT
			(SELECT credits FROM users WHERE id = $1),
			COALESCE(SUM(credits) FILTER (WHERE status = $2), 0),
			COALESCE(SUM(credits) FILTER (WHERE status = $3), 0)
		FROM payouts
		WHERE doctor_id = $1
	`

	var earnings domain.Earnings
	var credits *int
	err := r.db.QueryRow(ctx, query, doctorID, domain.PayoutStatusPending, domain.PayoutStatusApproved).Scan(
		&credits,
		&earnings.PendingPayouts,
		&earnings.PaidOut,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сводки по кредитам: %w", err)
	}
	if credits == nil {
		return nil, domain.ErrNotFound
	}

	earnings.Credits = *credits
	return &earnings, nil
}
