package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type MigrationRecord struct {
	Version   string
	Name      string
	AppliedAt time.Time
}

// RunMigrations применяет файлы вида NNN_name.sql из migrationsDir в
// лексикографическом порядке; каждая миграция идет в своей транзакции.
func RunMigrations(db *pgxpool.Pool, migrationsDir string, logger *zap.Logger) error {
	ctx := context.Background()

	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			version VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("ошибка при создании таблицы миграций: %w", err)
	}

	rows, err := db.Query(ctx, "SELECT version, name, applied_at FROM migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("ошибка при получении списка выполненных миграций: %w", err)
	}
	defer rows.Close()

	appliedMap := make(map[string]bool)
	for rows.Next() {
		var record MigrationRecord
		if err := rows.Scan(&record.Version, &record.Name, &record.AppliedAt); err != nil {
			return fmt.Errorf("ошибка при сканировании записи о миграции: %w", err)
		}
		appliedMap[record.Version] = true
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("ошибка при обработке результатов запроса: %w", err)
	}

	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("ошибка при чтении директории миграций: %w", err)
	}

	var migrationFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrationFiles = append(migrationFiles, entry.Name())
		}
	}
	sort.Strings(migrationFiles)

	for _, file := range migrationFiles {
		parts := strings.SplitN(file, "_", 2)
		if len(parts) != 2 {
			logger.Warn("неверный формат имени файла миграции", zap.String("file", file))
			continue
		}

		version := parts[0]
		name := strings.TrimSuffix(parts[1], ".sql")

		if appliedMap[version] {
			continue
		}

		content, err := os.ReadFile(filepath.Join(migrationsDir, file))
		if err != nil {
			return fmt.Errorf("ошибка при чтении файла миграции %s: %w", file, err)
		}

		logger.Info("выполнение миграции", zap.String("version", version), zap.String("name", name))

		tx, err := db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("ошибка при начале транзакции: %w", err)
		}

		_, err = tx.Exec(ctx, string(content))
		if err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("ошибка при выполнении миграции %s: %w", file, err)
		}

		_, err = tx.Exec(ctx,
			"INSERT INTO migrations (version, name, applied_at) VALUES ($1, $2, $3)",
			version, name, time.Now(),
		)
		if err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("ошибка при записи информации о выполненной миграции: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("ошибка при коммите транзакции: %w", err)
		}

		logger.Info("миграция выполнена успешно", zap.String("version", version), zap.String("name", name))
	}

	return nil
}
