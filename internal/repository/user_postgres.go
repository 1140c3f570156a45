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

type UserRepo struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{
		db: db,
	}
}

const userColumns = `id, email, name, password_hash, role, credits, is_active,
	COALESCE(specialty, ''), COALESCE(experience, 0), COALESCE(description, ''),
	COALESCE(credential_url, ''), COALESCE(verification_status, ''), created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var verification string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&user.Credits,
		&user.IsActive,
		&user.Specialty,
		&user.Experience,
		&user.Description,
		&user.CredentialURL,
		&verification,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
	}

	user.VerificationStatus = domain.VerificationStatus(verification)
	return &user, nil
}

func (r *UserRepo) Create(ctx context.Context, dto domain.CreateUserDTO, passwordHash string, doctor *domain.DoctorProfileDTO) (int64, error) {
	now := time.Now()

	var id int64
	var err error

	if doctor != nil {
		query := `
			INSERT INTO users (email, name, password_hash, role, credits, is_active,
				specialty, experience, description, verification_status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 0, true, $5, $6, $7, $8, $9, $9)
			RETURNING id
		`
		err = r.db.QueryRow(ctx, query,
			dto.Email,
			dto.Name,
			passwordHash,
			dto.Role,
			doctor.Specialty,
			doctor.Experience,
			doctor.Description,
			domain.VerificationStatusPending,
			now,
		).Scan(&id)
	} else {
		query := `
			INSERT INTO users (email, name, password_hash, role, credits, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, true, $6, $6)
			RETURNING id
		`
		// Новый пациент получает стартовый баланс в 2 кредита — одна
		// бесплатная консультация.
		err = r.db.QueryRow(ctx, query,
			dto.Email,
			dto.Name,
			passwordHash,
			dto.Role,
			2,
			now,
		).Scan(&id)
	}

	if err != nil {
		return 0, fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	return id, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *UserRepo) Update(ctx context.Context, id int64, dto domain.UpdateUserDTO) error {
	var updateFields []string
	var args []interface{}

	argCount := 1

	if dto.Name != nil {
		updateFields = append(updateFields, fmt.Sprintf("name = $%d", argCount))
		args = append(args, *dto.Name)
		argCount++
	}

	if dto.Email != nil {
		updateFields = append(updateFields, fmt.Sprintf("email = $%d", argCount))
		args = append(args, *dto.Email)
		argCount++
	}

	if dto.Description != nil {
		updateFields = append(updateFields, fmt.Sprintf("description = $%d", argCount))
		args = append(args, *dto.Description)
		argCount++
	}

	if dto.IsActive != nil {
		updateFields = append(updateFields, fmt.Sprintf("is_active = $%d", argCount))
		args = append(args, *dto.IsActive)
		argCount++
	}

	if len(updateFields) == 0 {
		return nil
	}

	updateFields = append(updateFields, fmt.Sprintf("updated_at = $%d", argCount))
	args = append(args, time.Now())
	argCount++

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(updateFields, ", "), argCount)

	_, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления пользователя: %w", err)
	}

	return nil
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`

	_, err := r.db.Exec(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("ошибка обновления пароля: %w", err)
	}

	return nil
}

func (r *UserRepo) ListDoctors(ctx context.Context, filter domain.DoctorFilter) ([]domain.User, int, error) {
	conditions := []string{"role = $1"}
	args := []interface{}{domain.UserRoleDoctor}
	argCount := 2

	if filter.Specialty != nil {
		conditions = append(conditions, fmt.Sprintf("specialty = $%d", argCount))
		args = append(args, *filter.Specialty)
		argCount++
	}

	if filter.VerificationStatus != nil {
		conditions = append(conditions, fmt.Sprintf("verification_status = $%d", argCount))
		args = append(args, *filter.VerificationStatus)
		argCount++
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM users %s`, whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчета врачей: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM users %s ORDER BY name`, userColumns, whereClause)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	doctors := make([]domain.User, 0)
	for rows.Next() {
		doctor, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		doctors = append(doctors, *doctor)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ошибка при итерации по строкам: %w", err)
	}

	return doctors, total, nil
}

func (r *UserRepo) UpdateVerification(ctx context.Context, doctorID int64, status domain.VerificationStatus) error {
	query := `
		UPDATE users
		SET verification_status = $1, updated_at = $2
		WHERE id = $3 AND role = $4
	`

	tag, err := r.db.Exec(ctx, query, status, time.Now(), doctorID, domain.UserRoleDoctor)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса проверки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *UserRepo) UpdateCredentialURL(ctx context.Context, doctorID int64, url string) error {
	query := `
		UPDATE users
		SET credential_url = $1, updated_at = $2
		WHERE id = $3 AND role = $4
	`

	tag, err := r.db.Exec(ctx, query, url, time.Now(), doctorID, domain.UserRoleDoctor)
	if err != nil {
		return fmt.Errorf("ошибка сохранения ссылки на документ: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}
