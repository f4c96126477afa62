package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/twofa/entity"
	"github.com/shandysiswandi/otpgate/internal/twofa/outbound/repository/migrations"
)

const userColumns = `id, email, name, password, otp_enabled, otp_verified, otp_base32, otp_auth_url, created_at, updated_at`

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	URL      string
	MaxConns int32
}

// Postgres stores users in the twofa_users table.
type Postgres struct {
	pool *pgxpool.Pool
	tracing
}

// NewPostgres opens a pool, pings it and applies pending migrations.
func NewPostgres(ctx context.Context, cfg PostgresConfig, ins instrument.Instrumentation) (*Postgres, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Postgres{pool: pool, tracing: tracing{ins: ins, backend: "postgresql"}}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			slog.ErrorContext(ctx, "failed to close migration connection", "error", err)
		}
	}()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

type gooseLogger struct{}

func (gooseLogger) Fatalf(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...), "component", "goose")
}

func (gooseLogger) Printf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), "component", "goose")
}

// mapError translates pgx errors into repository outcomes:
// - 23505 unique_violation → goerror.ErrConflict
// - 23514 check_violation → entity.ErrInvariant
func (p *Postgres) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return goerror.ErrConflict
		case "23514":
			return fmt.Errorf("%w: %s", entity.ErrInvariant, pgErr.ConstraintName)
		}
	}

	return err
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var u entity.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash,
		&u.OTPEnabled, &u.OTPVerified, &u.OTPSecret, &u.OTPAuthURL,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()

	return &u, nil
}

func (p *Postgres) FindByCustomField(ctx context.Context, field entity.Field, value string) (u *entity.User, err error) {
	ctx, span := p.start(ctx, "FindByCustomField")
	defer func() { p.end(span, err) }()

	if !field.Valid() {
		return nil, ErrUnsupportedField
	}
	if field == entity.FieldEmail {
		value = entity.NormalizeEmail(value)
	}

	// field is whitelisted above, so it is safe to splice into the query.
	query := `SELECT ` + userColumns + ` FROM twofa_users WHERE ` + string(field) + ` = $1 ORDER BY created_at, id LIMIT 1`

	u, err = scanUser(p.pool.QueryRow(ctx, query, value))
	if err != nil {
		return nil, p.mapError(err)
	}

	return u, nil
}

func (p *Postgres) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return p.FindByCustomField(ctx, entity.FieldEmail, email)
}

func (p *Postgres) RegisterByEmail(ctx context.Context, reg entity.Registration) (err error) {
	ctx, span := p.start(ctx, "RegisterByEmail")
	defer func() { p.end(span, err) }()

	_, err = p.pool.Exec(ctx,
		`INSERT INTO twofa_users (id, email, name, password, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)`,
		reg.ID, entity.NormalizeEmail(reg.Email), reg.Name, reg.PasswordHash, reg.CreatedAt.UTC(),
	)

	return p.mapError(err)
}

func (p *Postgres) UpdateOTP(ctx context.Context, id string, otp entity.OTP, updatedAt time.Time) (u *entity.User, err error) {
	ctx, span := p.start(ctx, "UpdateOTP")
	defer func() { p.end(span, err) }()

	if err = otp.Validate(); err != nil {
		return nil, err
	}

	u, err = scanUser(p.pool.QueryRow(ctx,
		`UPDATE twofa_users
		SET otp_enabled = $2, otp_verified = $3, otp_base32 = $4, otp_auth_url = $5,
			updated_at = GREATEST(updated_at, $6)
		WHERE id = $1
		RETURNING `+userColumns,
		id, otp.Enabled, otp.Verified, otp.Secret, otp.AuthURL, updatedAt.UTC(),
	))
	if err != nil {
		return nil, p.mapError(err)
	}

	return u, nil
}

func (p *Postgres) Ping(ctx context.Context) (err error) {
	ctx, span := p.start(ctx, "Ping")
	defer func() { p.end(span, err) }()

	return p.pool.Ping(ctx)
}

func (p *Postgres) Close(context.Context) error {
	p.pool.Close()
	return nil
}
