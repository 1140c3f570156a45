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

type AvailabilityRepo struct {
	db *pgxpool.Pool
}

func NewAvailabilityRepository(db *pgxpool.Pool) *AvailabilityRepo {
	return &AvailabilityRepo{
		db: db,
	}
}

const availabilityColumns = `id, doctor_id, start_time, end_time, status, timezone, created_at, updated_at`

func scanAvailabilityBlock(row pgx.Row) (*domain.AvailabilityBlock, error) {
	var block domain.AvailabilityBlock

	err := row.Scan(
		&block.ID,
		&block.DoctorID,
		&block.StartTime,
		&block.EndTime,
		&block.Status,
		&block.Timezone,
		&block.CreatedAt,
		&block.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования блока доступности: %w", err)
	}

	return &block, nil
}

func (r *AvailabilityRepo) Create(ctx context.Context, doctorID int64, dto domain.CreateAvailabilityDTO) (int64, error) {
	timezone := dto.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	query := `
		INSERT INTO availability_blocks (doctor_id, start_time, end_time, status, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(ctx, query,
		doctorID,
		dto.StartTime,
		dto.EndTime,
		domain.AvailabilityStatusAvailable,
		timezone,
		time.Now(),
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("ошибка создания блока доступности: %w", err)
	}

	return id, nil
}

func (r *AvailabilityRepo) GetByID(ctx context.Context, id int64) (*domain.AvailabilityBlock, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_blocks WHERE id = $1`, availabilityColumns)
	return scanAvailabilityBlock(r.db.QueryRow(ctx, query, id))
}

func (r *AvailabilityRepo) List(ctx context.Context, filter domain.AvailabilityFilter) ([]domain.AvailabilityBlock, error) {
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

	// Границы фильтра отбирают блоки, пересекающие интервал, а не только
	// целиком лежащие в нем.
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("end_time > $%d", argCount))
		args = append(args, *filter.StartDate)
		argCount++
	}

	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("start_time < $%d", argCount))
		args = append(args, *filter.EndDate)
		argCount++
	}

	query := fmt.Sprintf(`SELECT %s FROM availability_blocks`, availabilityColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	blocks := make([]domain.AvailabilityBlock, 0)
	for rows.Next() {
		block, err := scanAvailabilityBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, *block)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по строкам: %w", err)
	}

	return blocks, nil
}

func (r *AvailabilityRepo) UpdateStatus(ctx context.Context, id int64, status domain.AvailabilityStatus) error {
	query := `
		UPDATE availability_blocks
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	tag, err := r.db.Exec(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса блока: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *AvailabilityRepo) ReleaseWindow(ctx context.Context, doctorID int64, start, end time.Time) error {
	query := `
		UPDATE availability_blocks
		SET status = $1, updated_at = $2
		WHERE doctor_id = $3 AND start_time = $4 AND end_time = $5 AND status = $6
	`

	_, err := r.db.Exec(ctx, query,
		domain.AvailabilityStatusAvailable,
		time.Now(),
		doctorID,
		start,
		end,
		domain.AvailabilityStatusBooked,
	)
	if err != nil {
		return fmt.Errorf("ошибка освобождения сегмента доступности: %w", err)
	}

	return nil
}

func (r *AvailabilityRepo) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM availability_blocks WHERE id = $1 AND status != $2`

	tag, err := r.db.Exec(ctx, query, id, domain.AvailabilityStatusBooked)
	if err != nil {
		return fmt.Errorf("ошибка удаления блока доступности: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}
