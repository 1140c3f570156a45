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

type AppointmentRepo struct {
	db *pgxpool.Pool
}

func NewAppointmentRepository(db *pgxpool.Pool) *AppointmentRepo {
	return &AppointmentRepo{
		db: db,
	}
}

const appointmentColumns = `a.id, a.patient_id, a.doctor_id, a.start_time, a.end_time, a.status,
	COALESCE(a.notes, ''), COALESCE(a.patient_description, ''),
	a.video_session_id, a.video_session_token, a.created_at, a.updated_at,
	p.name AS patient_name, d.name AS doctor_name`

const appointmentJoins = `
	FROM appointments a
	JOIN users p ON a.patient_id = p.id
	JOIN users d ON a.doctor_id = d.id
`

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var appointment domain.Appointment

	err := row.Scan(
		&appointment.ID,
		&appointment.PatientID,
		&appointment.DoctorID,
		&appointment.StartTime,
		&appointment.EndTime,
		&appointment.Status,
		&appointment.Notes,
		&appointment.PatientDescription,
		&appointment.VideoSessionID,
		&appointment.VideoSessionToken,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
		&appointment.PatientName,
		&appointment.DoctorName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
	}

	return &appointment, nil
}

func (r *AppointmentRepo) CreateAtomic(ctx context.Context, patientID int64, dto domain.BookAppointmentDTO, creditCost int) (*domain.Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Сериализация конкурирующих бронирований одного врача: блокировка
	// снимается автоматически при завершении транзакции.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, dto.DoctorID); err != nil {
		return nil, fmt.Errorf("ошибка взятия advisory-блокировки: %w", err)
	}

	// Повторная проверка пересечений уже под блокировкой: из двух
	// одновременных запросов на один слот второй падает здесь.
	checkQuery := `
		SELECT COUNT(*)
		FROM appointments
		WHERE doctor_id = $1
		AND status != $2
		AND start_time < $3
		AND end_time > $4
	`

	var count int
	if err := tx.QueryRow(ctx, checkQuery, dto.DoctorID, domain.AppointmentStatusCancelled, dto.EndTime, dto.StartTime).Scan(&count); err != nil {
		return nil, fmt.Errorf("ошибка проверки доступности слота: %w", err)
	}
	if count > 0 {
		return nil, domain.ErrStorageConflict
	}

	blockQuery := fmt.Sprintf(`
		SELECT %s
		FROM availability_blocks
		WHERE doctor_id = $1
		AND status = $2
		AND start_time <= $3
		AND end_time >= $4
		ORDER BY start_time
		LIMIT 1
		FOR UPDATE
	`, availabilityColumns)

	block, err := scanAvailabilityBlock(tx.QueryRow(ctx, blockQuery,
		dto.DoctorID, domain.AvailabilityStatusAvailable, dto.StartTime, dto.EndTime))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrStorageConflict
		}
		return nil, err
	}

	now := time.Now()

	// Списание кредитов пациента и начисление врачу применяются в той же
	// транзакции, что и вставка записи: частичное применение невозможно.
	debitTag, err := tx.Exec(ctx,
		`UPDATE users SET credits = credits - $1, updated_at = $2 WHERE id = $3 AND credits >= $1`,
		creditCost, now, patientID,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка списания кредитов: %w", err)
	}
	if debitTag.RowsAffected() == 0 {
		return nil, domain.ErrInsufficientCredits
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET credits = credits + $1, updated_at = $2 WHERE id = $3`,
		creditCost, now, dto.DoctorID,
	); err != nil {
		return nil, fmt.Errorf("ошибка начисления кредитов врачу: %w", err)
	}

	if err := r.markSegmentBooked(ctx, tx, block, dto.StartTime, dto.EndTime, now); err != nil {
		return nil, err
	}

	insertQuery := `
		INSERT INTO appointments (patient_id, doctor_id, start_time, end_time, status, patient_description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id
	`

	var id int64
	err = tx.QueryRow(ctx, insertQuery,
		patientID,
		dto.DoctorID,
		dto.StartTime,
		dto.EndTime,
		domain.AppointmentStatusScheduled,
		dto.Description,
		now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания записи на прием: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка при коммите транзакции: %w", err)
	}

	return &domain.Appointment{
		ID:                 id,
		PatientID:          patientID,
		DoctorID:           dto.DoctorID,
		StartTime:          dto.StartTime,
		EndTime:            dto.EndTime,
		Status:             domain.AppointmentStatusScheduled,
		PatientDescription: dto.Description,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// markSegmentBooked выделяет внутри покрывающего блока сегмент BOOKED,
// оставляя края блока доступными. Блок, совпадающий с окном целиком,
// просто меняет статус.
func (r *AppointmentRepo) markSegmentBooked(ctx context.Context, tx pgx.Tx, block *domain.AvailabilityBlock, start, end time.Time, now time.Time) error {
	if block.StartTime.Equal(start) && block.EndTime.Equal(end) {
		_, err := tx.Exec(ctx,
			`UPDATE availability_blocks SET status = $1, updated_at = $2 WHERE id = $3`,
			domain.AvailabilityStatusBooked, now, block.ID,
		)
		if err != nil {
			return fmt.Errorf("ошибка бронирования блока: %w", err)
		}
		return nil
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO availability_blocks (doctor_id, start_time, end_time, status, timezone, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		block.DoctorID, start, end, domain.AvailabilityStatusBooked, block.Timezone, now,
	); err != nil {
		return fmt.Errorf("ошибка создания забронированного сегмента: %w", err)
	}

	switch {
	case block.StartTime.Before(start) && end.Before(block.EndTime):
		if _, err := tx.Exec(ctx,
			`UPDATE availability_blocks SET end_time = $1, updated_at = $2 WHERE id = $3`,
			start, now, block.ID,
		); err != nil {
			return fmt.Errorf("ошибка усечения блока: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO availability_blocks (doctor_id, start_time, end_time, status, timezone, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
			block.DoctorID, end, block.EndTime, domain.AvailabilityStatusAvailable, block.Timezone, now,
		); err != nil {
			return fmt.Errorf("ошибка создания остатка блока: %w", err)
		}
	case block.StartTime.Before(start):
		if _, err := tx.Exec(ctx,
			`UPDATE availability_blocks SET end_time = $1, updated_at = $2 WHERE id = $3`,
			start, now, block.ID,
		); err != nil {
			return fmt.Errorf("ошибка усечения блока: %w", err)
		}
	default:
		if _, err := tx.Exec(ctx,
			`UPDATE availability_blocks SET start_time = $1, updated_at = $2 WHERE id = $3`,
			end, now, block.ID,
		); err != nil {
			return fmt.Errorf("ошибка усечения блока: %w", err)
		}
	}

	return nil
}

func (r *AppointmentRepo) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE a.id = $1`, appointmentColumns, appointmentJoins)
	return scanAppointment(r.db.QueryRow(ctx, query, id))
}

func buildAppointmentConditions(filter domain.AppointmentFilter) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}
	argCount := 1

	if filter.PatientID != nil {
		conditions = append(conditions, fmt.Sprintf("a.patient_id = $%d", argCount))
		args = append(args, *filter.PatientID)
		argCount++
	}

	if filter.DoctorID != nil {
		conditions = append(conditions, fmt.Sprintf("a.doctor_id = $%d", argCount))
		args = append(args, *filter.DoctorID)
		argCount++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", argCount))
		args = append(args, *filter.Status)
		argCount++
	}

	if filter.ExcludeStatus != nil {
		conditions = append(conditions, fmt.Sprintf("a.status != $%d", argCount))
		args = append(args, *filter.ExcludeStatus)
		argCount++
	}

	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("a.end_time > $%d", argCount))
		args = append(args, *filter.StartDate)
		argCount++
	}

	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("a.start_time < $%d", argCount))
		args = append(args, *filter.EndDate)
		argCount++
	}

	return conditions, args
}

func (r *AppointmentRepo) List(ctx context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, error) {
	conditions, args := buildAppointmentConditions(filter)

	query := fmt.Sprintf(`SELECT %s %s`, appointmentColumns, appointmentJoins)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY a.start_time DESC"

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

	appointments := make([]domain.Appointment, 0)
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, *appointment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по строкам: %w", err)
	}

	return appointments, nil
}

func (r *AppointmentRepo) CountByFilter(ctx context.Context, filter domain.AppointmentFilter) (int, error) {
	conditions, args := buildAppointmentConditions(filter)

	query := `SELECT COUNT(*) FROM appointments a`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета записей: %w", err)
	}

	return count, nil
}

func (r *AppointmentRepo) UpdateStatusCAS(ctx context.Context, id int64, expected, next domain.AppointmentStatus) (*domain.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING id
	`

	var updatedID int64
	err := r.db.QueryRow(ctx, query, next, time.Now(), id, expected).Scan(&updatedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Запись либо не существует, либо статус успел измениться.
			if _, getErr := r.GetByID(ctx, id); errors.Is(getErr, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, domain.ErrStorageConflict
		}
		return nil, fmt.Errorf("ошибка обновления статуса записи: %w", err)
	}

	return r.GetByID(ctx, updatedID)
}

func (r *AppointmentRepo) UpdateNotes(ctx context.Context, id int64, notes string) error {
	query := `
		UPDATE appointments
		SET notes = $1, updated_at = $2
		WHERE id = $3
	`

	tag, err := r.db.Exec(ctx, query, notes, time.Now(), id)
	if err != nil {
		return fmt.Errorf("ошибка сохранения заметок: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *AppointmentRepo) SetVideoSession(ctx context.Context, id int64, sessionID, token string) error {
	query := `
		UPDATE appointments
		SET video_session_id = $1, video_session_token = $2, updated_at = $3
		WHERE id = $4
	`

	tag, err := r.db.Exec(ctx, query, sessionID, token, time.Now(), id)
	if err != nil {
		return fmt.Errorf("ошибка сохранения видеосессии: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}
