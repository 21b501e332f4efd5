package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // драйвер pgx для database/sql
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/25x8/metric-bridge/internal/logger"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// gooseUp и retryOperation подменяются в тестах
var (
	gooseUp        = goose.Up
	retryOperation = retryWithBackoff
)

const upsertMeasurement = `INSERT INTO measurements (name, kind, value, updated_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (name) DO UPDATE SET kind = EXCLUDED.kind, value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

const selectMeasurements = `SELECT name, kind, value, updated_at FROM measurements ORDER BY name`

// DBStorage хранит снимок реестра в PostgreSQL
type DBStorage struct {
	db *sql.DB
}

var _ Storage = (*DBStorage)(nil)

// OpenDB открывает подключение к PostgreSQL через драйвер pgx
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// NewDBStorage проверяет соединение и применяет миграции
func NewDBStorage(ctx context.Context, db *sql.DB) (*DBStorage, error) {
	err := retryOperation(ctx, func() error {
		return db.PingContext(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("database connection check failed: %w", err)
	}

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	goose.SetTableName("goose_db_version")

	logger.Log.Info("Applying database migrations")
	err = retryOperation(ctx, func() error {
		return gooseUp(db, "migrations")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Log.Info("Database migrations applied")

	return &DBStorage{db: db}, nil
}

func (s *DBStorage) DB() *sql.DB {
	return s.db
}

// SaveSnapshot сохраняет снимок одной транзакцией
func (s *DBStorage) SaveSnapshot(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	return retryOperation(ctx, func() (err error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()

		stmt, err := tx.PrepareContext(ctx, upsertMeasurement)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err = stmt.ExecContext(ctx, r.Name, r.Kind, r.Value, r.Timestamp); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

func (s *DBStorage) LoadSnapshot(ctx context.Context) ([]Record, error) {
	var records []Record

	err := retryOperation(ctx, func() error {
		records = records[:0]

		rows, err := s.db.QueryContext(ctx, selectMeasurements)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var r Record
			if err := rows.Scan(&r.Name, &r.Kind, &r.Value, &r.Timestamp); err != nil {
				return err
			}
			records = append(records, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return records, nil
}

func (s *DBStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *DBStorage) Close() error {
	return s.db.Close()
}

// retryWithBackoff повторяет операцию при временных ошибках с паузами 1, 3 и 5 секунд
func retryWithBackoff(ctx context.Context, operation func() error) error {
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	var err error
	for i := 0; ; i++ {
		err = operation()
		if err == nil || !isRetriableError(err) || i >= len(delays) {
			return err
		}

		logger.Log.Warn("Retrying database operation",
			zap.Int("attempt", i+1),
			zap.Duration("delay", delays[i]),
			zap.Error(err),
		)

		select {
		case <-time.After(delays[i]):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// isRetriableError проверяет, является ли ошибка временной
func isRetriableError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.SerializationFailure,
			pgerrcode.DeadlockDetected,
			pgerrcode.ConnectionException,
			pgerrcode.ConnectionDoesNotExist,
			pgerrcode.ConnectionFailure,
			pgerrcode.CrashShutdown,
			pgerrcode.CannotConnectNow,
			pgerrcode.IOError:
			return true
		default:
			return false
		}
	}

	if pgconn.Timeout(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return errors.Is(err, sql.ErrConnDone)
}
