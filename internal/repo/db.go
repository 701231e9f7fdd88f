// Package repo contains all database access logic for the carpool scheduler.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here: only SQL, type mapping, and the translation of
// constraint violations into domain errors.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/carpool/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// beginner is a db that can also open a (possibly nested) transaction.
// *pgxpool.Pool opens a real transaction; pgx.Tx opens a savepoint.
type beginner interface {
	db
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repos bundles the repositories that operate on one connection or transaction.
type Repos struct {
	Slots     SlotRepo
	Vehicles  VehicleAssignmentRepo
	Children  ChildAssignmentRepo
	Directory DirectoryRepo
}

// NewRepos builds every repository on top of the same db handle.
func NewRepos(db db) Repos {
	return Repos{
		Slots:     NewSlotRepo(db),
		Vehicles:  NewVehicleAssignmentRepo(db),
		Children:  NewChildAssignmentRepo(db),
		Directory: NewDirectoryRepo(db),
	}
}

// Store hands out repositories, either bound to the pool for independent
// reads or bound to a transaction for writes that must commit together.
type Store interface {
	// Repos returns repositories that run each statement on its own.
	Repos() Repos

	// InTx runs fn inside one transaction. The transaction commits if fn
	// returns nil and rolls back otherwise, including when ctx is cancelled
	// before commit, so fn never leaves a partial write behind.
	InTx(ctx context.Context, fn func(Repos) error) error
}

type pgStore struct {
	conn  beginner
	repos Repos
}

// NewStore constructs a Store backed by the provided connection.
// Pass *pgxpool.Pool: reads through Repos may run concurrently, which a single
// pgx.Conn or pgx.Tx cannot serve.
func NewStore(conn beginner) Store {
	return &pgStore{conn: conn, repos: NewRepos(conn)}
}

func (s *pgStore) Repos() Repos {
	return s.repos
}

func (s *pgStore) InTx(ctx context.Context, fn func(Repos) error) error {
	return pgx.BeginFunc(ctx, s.conn, func(tx pgx.Tx) error {
		return fn(NewRepos(tx))
	})
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan
// helpers to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// Postgres SQLSTATE codes the repos translate into domain errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// translate maps constraint violations onto domain errors and pgx.ErrNoRows
// onto domain.ErrNotFound. Other errors are returned unchanged.
func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}
