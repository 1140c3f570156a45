package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"telemed/config"
	"telemed/pkg/database"
)

const demoPassword = "password123"

var specialties = []string{
	"Терапевт",
	"Кардиолог",
	"Невролог",
	"Дерматолог",
	"Педиатр",
	"Эндокринолог",
	"Офтальмолог",
	"Психотерапевт",
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	doctorCount := flag.Int("doctors", 8, "количество врачей")
	patientCount := flag.Int("patients", 20, "количество пациентов")
	flag.Parse()

	// .env не обязателен, настройки могут прийти из окружения
	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("ошибка загрузки конфигурации: %v", err)
	}

	db, err := database.NewPostgresDB(cfg.Postgres)
	if err != nil {
		log.Fatalf("ошибка подключения к базе данных: %v", err)
	}
	defer db.Close()

	gofakeit.Seed(time.Now().UnixNano())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("ошибка хеширования пароля: %v", err)
	}

	if err := seedAdmin(ctx, db, string(hash)); err != nil {
		log.Fatalf("ошибка создания администратора: %v", err)
	}

	doctorIDs, err := seedDoctors(ctx, db, string(hash), *doctorCount)
	if err != nil {
		log.Fatalf("ошибка создания врачей: %v", err)
	}

	if err := seedAvailability(ctx, db, doctorIDs); err != nil {
		log.Fatalf("ошибка создания расписания: %v", err)
	}

	if err := seedPatients(ctx, db, string(hash), *patientCount, cfg.Booking.CreditCost); err != nil {
		log.Fatalf("ошибка создания пациентов: %v", err)
	}

	log.Printf("готово: 1 администратор, %d врачей, %d пациентов (пароль для всех: %s)",
		len(doctorIDs), *patientCount, demoPassword)
}

func seedAdmin(ctx context.Context, db *pgxpool.Pool, hash string) error {
	now := time.Now()

	_, err := db.Exec(ctx, `
		INSERT INTO users (email, name, password_hash, role, credits, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, 'ADMIN', 0, TRUE, $4, $4)
		ON CONFLICT (email) DO NOTHING`,
		"admin@telemed.local", "Администратор", hash, now)

	return err
}

func seedDoctors(ctx context.Context, db *pgxpool.Pool, hash string, count int) ([]int64, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	ids := make([]int64, 0, count)

	for i := 0; i < count; i++ {
		name := gofakeit.Name()
		email := fmt.Sprintf("doctor%d@telemed.local", i+1)
		specialty := specialties[i%len(specialties)]
		experience := gofakeit.Number(2, 25)
		description := gofakeit.Sentence(12)

		var id int64
		err = tx.QueryRow(ctx, `
			INSERT INTO users (email, name, password_hash, role, credits, is_active,
				specialty, experience, description, verification_status, created_at, updated_at)
			VALUES ($1, $2, $3, 'DOCTOR', 0, TRUE, $4, $5, $6, 'VERIFIED', $7, $7)
			ON CONFLICT (email) DO UPDATE SET updated_at = EXCLUDED.updated_at
			RETURNING id`,
			email, name, hash, specialty, experience, description, now).Scan(&id)
		if err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return ids, nil
}

// seedAvailability создает каждому врачу по два блока приема в день
// на ближайшую неделю: утренний 09:00-12:00 и дневной 14:00-17:00.
func seedAvailability(ctx context.Context, db *pgxpool.Pool, doctorIDs []int64) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	for _, doctorID := range doctorIDs {
		for day := 1; day <= 7; day++ {
			date := today.AddDate(0, 0, day)

			blocks := [][2]time.Time{
				{date.Add(9 * time.Hour), date.Add(12 * time.Hour)},
				{date.Add(14 * time.Hour), date.Add(17 * time.Hour)},
			}

			for _, b := range blocks {
				_, err = tx.Exec(ctx, `
					INSERT INTO availability_blocks (doctor_id, start_time, end_time, status, timezone, created_at, updated_at)
					VALUES ($1, $2, $3, 'AVAILABLE', 'UTC', $4, $4)`,
					doctorID, b[0], b[1], now)
				if err != nil {
					return err
				}
			}
		}
	}

	return tx.Commit(ctx)
}

func seedPatients(ctx context.Context, db *pgxpool.Pool, hash string, count, credits int) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now()

	for i := 0; i < count; i++ {
		name := gofakeit.Name()
		email := fmt.Sprintf("patient%d@telemed.local", i+1)

		_, err = tx.Exec(ctx, `
			INSERT INTO users (email, name, password_hash, role, credits, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, 'PATIENT', $4, TRUE, $5, $5)
			ON CONFLICT (email) DO NOTHING`,
			email, name, hash, credits, now)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
