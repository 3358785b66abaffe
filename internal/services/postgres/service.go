// Package postgres provides PostgreSQL connectivity checks and dump operations.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/rs/zerolog"

	"github.com/avoss/pgdrive/internal/models"
)

// Service defines the interface for PostgreSQL operations.
type Service interface {
	Ping(ctx context.Context, spec models.ConnectionSpec) error
	Dump(ctx context.Context, spec models.ConnectionSpec, outputPath string) (*models.DumpResult, error)
}

// CommandExecutor allows mocking exec.Command in tests.
type CommandExecutor interface {
	ExecuteWithEnv(ctx context.Context, env []string, name string, args ...string) error
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// ExecuteWithEnv runs the command with extra environment variables appended
// to the child process environment only; the parent environment is untouched.
func (e *DefaultExecutor) ExecuteWithEnv(ctx context.Context, env []string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(output))
		if msg != "" {
			return fmt.Errorf("%s failed: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s failed: %w", name, err)
	}

	return nil
}

// Pinger allows mocking the connectivity check in tests.
type Pinger interface {
	Ping(ctx context.Context, dsn string) error
}

// sqlPinger opens and immediately closes a database/sql connection.
type sqlPinger struct{}

func (sqlPinger) Ping(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return db.PingContext(ctx)
}

// Impl implements the PostgreSQL Service interface.
type Impl struct {
	executor CommandExecutor
	pinger   Pinger
	logger   zerolog.Logger
}

// New creates a new PostgreSQL service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		executor: &DefaultExecutor{},
		pinger:   sqlPinger{},
		logger:   logger,
	}
}

// NewWithExecutor creates a new PostgreSQL service with custom executor and
// pinger (for testing).
func NewWithExecutor(logger zerolog.Logger, executor CommandExecutor, pinger Pinger) *Impl {
	return &Impl{
		executor: executor,
		pinger:   pinger,
		logger:   logger,
	}
}

// Ping verifies connectivity by opening and immediately closing a connection.
// Running this before the dump avoids wasting time and disk on a dump that
// cannot reach the database.
func (s *Impl) Ping(ctx context.Context, spec models.ConnectionSpec) error {
	s.logger.Info().
		Str("host", spec.Host).
		Int("port", spec.Port).
		Str("database", spec.Database).
		Msg("checking database connectivity")

	if err := s.pinger.Ping(ctx, DSN(spec)); err != nil {
		return fmt.Errorf("database connectivity check failed: %w", err)
	}

	s.logger.Info().Msg("database reachable")
	return nil
}

// Dump runs pg_dump in custom format, writing to outputPath. The password is
// handed to pg_dump via PGPASSWORD in the child process environment, never
// via a command-line argument.
func (s *Impl) Dump(ctx context.Context, spec models.ConnectionSpec, outputPath string) (*models.DumpResult, error) {
	s.logger.Info().
		Str("host", spec.Host).
		Int("port", spec.Port).
		Str("database", spec.Database).
		Str("output", outputPath).
		Msg("starting PostgreSQL dump")

	start := time.Now()
	result := &models.DumpResult{
		OutputPath: outputPath,
	}

	args := []string{
		"-h", spec.Host,
		"-p", fmt.Sprintf("%d", spec.Port),
	}
	if spec.User != "" {
		args = append(args, "-U", spec.User)
	}
	args = append(args,
		"-d", spec.Database,
		"-F", "c",
		"-f", outputPath,
	)

	env := []string{}
	if spec.Password != "" {
		env = append(env, fmt.Sprintf("PGPASSWORD=%s", spec.Password))
	}

	if execErr := s.executor.ExecuteWithEnv(ctx, env, "pg_dump", args...); execErr != nil {
		// Clean up partial file
		_ = os.Remove(outputPath)
		result.Error = execErr
		result.Duration = time.Since(start)
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}

	if info, err := os.Stat(outputPath); err == nil {
		result.SizeBytes = info.Size()
	}

	result.Duration = time.Since(start)

	s.logger.Info().
		Str("output", outputPath).
		Int64("size_bytes", result.SizeBytes).
		Dur("duration", result.Duration).
		Msg("PostgreSQL dump completed")

	return result, nil
}

// DSN builds a connection string for the pgx driver from a ConnectionSpec.
func DSN(spec models.ConnectionSpec) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", spec.Host, spec.Port),
		Path:   "/" + spec.Database,
	}
	if spec.User != "" {
		u.User = url.UserPassword(spec.User, spec.Password)
	} else if spec.Password != "" {
		// Empty user-info would pin the driver user to ""; the query
		// parameter leaves the user to the driver's own default, matching
		// the -U-less pg_dump invocation.
		q := url.Values{}
		q.Set("password", spec.Password)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// DumpFilename returns the artifact base name for a dump taken at t.
func DumpFilename(t time.Time) string {
	return fmt.Sprintf("backup-%s.sql", t.Format("20060102150405"))
}
