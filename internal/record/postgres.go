package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"routectl.dev/internal/domain"
	"routectl.dev/internal/rcerrors"
)

// PostgresStore is the production Store implementation, backed by a pooled
// pgx connection. One pool is created per process and injected into the
// resolver/mutator at construction; there is no package-level singleton.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pgxpool against dsn and verifies connectivity.
func NewPostgresStore(ctx context.Context, dsn string, maxConns int32) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse record store dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open record store pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping record store: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Pool exposes the underlying pool.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) GetActiveEndpoint(ctx context.Context, route domain.RouteIdentifier) (domain.Endpoint, error) {
	row := s.pool.QueryRow(ctx, selectActiveEndpoint, route.Tenant, route.Service, route.Env, route.Version)
	ep, err := scanEndpoint(row, route)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Endpoint{}, fmt.Errorf("resolve %s: %w", route, rcerrors.ErrNotFound)
	}
	if err != nil {
		return domain.Endpoint{}, fmt.Errorf("query active endpoint: %w", rcerrors.ErrTransient)
	}
	return ep, nil
}

func (s *PostgresStore) CreateEndpoint(ctx context.Context, route domain.RouteIdentifier, url string) (Outcome, domain.Endpoint, error) {
	var outcome Outcome
	var ep domain.Endpoint

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		envID, err := s.getOrInsertHierarchy(ctx, tx, route)
		if err != nil {
			return err
		}

		row := tx.QueryRow(ctx, insertEndpoint, envID, route.Version, url)
		created, err := scanEndpoint(row, route)
		if err == nil {
			outcome = OutcomeCreated
			ep = created
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("insert endpoint: %w", rcerrors.ErrTransient)
		}

		existingRow := tx.QueryRow(ctx, selectEndpointByVersion, envID, route.Version)
		existing, err := scanEndpoint(existingRow, route)
		if err != nil {
			return fmt.Errorf("lookup existing endpoint: %w", rcerrors.ErrTransient)
		}
		if existing.URL == url && existing.IsActive {
			outcome = OutcomeAlreadyExists
			ep = existing
			return nil
		}
		return fmt.Errorf("endpoint %s already exists with a different url or inactive: %w", route, rcerrors.ErrConflict)
	})
	if err != nil {
		return OutcomeUnknown, domain.Endpoint{}, err
	}
	return outcome, ep, nil
}

func (s *PostgresStore) ActivateEndpoint(ctx context.Context, route domain.RouteIdentifier) (Outcome, domain.Endpoint, error) {
	return s.setActive(ctx, route, true, OutcomeActivated, OutcomeAlreadyActive)
}

func (s *PostgresStore) DeactivateEndpoint(ctx context.Context, route domain.RouteIdentifier) (Outcome, domain.Endpoint, error) {
	return s.setActive(ctx, route, false, OutcomeDeactivated, OutcomeAlreadyInactive)
}

func (s *PostgresStore) setActive(ctx context.Context, route domain.RouteIdentifier, active bool, applied, noop Outcome) (Outcome, domain.Endpoint, error) {
	var outcome Outcome
	var ep domain.Endpoint

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		envID, found, err := s.lookupHierarchy(ctx, tx, route)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("endpoint %s: %w", route, rcerrors.ErrNotFound)
		}

		row := tx.QueryRow(ctx, selectEndpointByVersion, envID, route.Version)
		existing, err := scanEndpoint(row, route)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("endpoint %s: %w", route, rcerrors.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lookup endpoint: %w", rcerrors.ErrTransient)
		}

		if existing.IsActive == active {
			outcome = noop
			ep = existing
			return nil
		}

		updated := tx.QueryRow(ctx, updateEndpointActive, active, existing.ID)
		ep, err = scanEndpoint(updated, route)
		if err != nil {
			return fmt.Errorf("update endpoint: %w", rcerrors.ErrTransient)
		}
		outcome = applied
		return nil
	})
	if err != nil {
		return OutcomeUnknown, domain.Endpoint{}, err
	}
	return outcome, ep, nil
}

// getOrInsertHierarchy creates tenant/service/environment rows on demand and
// returns the environment id.
func (s *PostgresStore) getOrInsertHierarchy(ctx context.Context, tx pgx.Tx, route domain.RouteIdentifier) (int64, error) {
	tenantID, err := getOrInsertOne(ctx, tx, getOrInsertTenant, selectTenantByName, []interface{}{route.Tenant}, []interface{}{route.Tenant})
	if err != nil {
		return 0, fmt.Errorf("get-or-insert tenant: %w", rcerrors.ErrTransient)
	}
	serviceID, err := getOrInsertOne(ctx, tx, getOrInsertService, selectServiceByName, []interface{}{tenantID, route.Service}, []interface{}{tenantID, route.Service})
	if err != nil {
		return 0, fmt.Errorf("get-or-insert service: %w", rcerrors.ErrTransient)
	}
	envID, err := getOrInsertOne(ctx, tx, getOrInsertEnvironment, selectEnvironmentByName, []interface{}{serviceID, route.Env}, []interface{}{serviceID, route.Env})
	if err != nil {
		return 0, fmt.Errorf("get-or-insert environment: %w", rcerrors.ErrTransient)
	}
	return envID, nil
}

// lookupHierarchy resolves the environment id for route without creating
// anything; found is false if any ancestor is missing.
func (s *PostgresStore) lookupHierarchy(ctx context.Context, tx pgx.Tx, route domain.RouteIdentifier) (int64, bool, error) {
	var tenantID int64
	if err := tx.QueryRow(ctx, selectTenantByName, route.Tenant).Scan(&tenantID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("lookup tenant: %w", rcerrors.ErrTransient)
	}
	var serviceID int64
	if err := tx.QueryRow(ctx, selectServiceByName, tenantID, route.Service).Scan(&serviceID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("lookup service: %w", rcerrors.ErrTransient)
	}
	var envID int64
	if err := tx.QueryRow(ctx, selectEnvironmentByName, serviceID, route.Env).Scan(&envID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("lookup environment: %w", rcerrors.ErrTransient)
	}
	return envID, true, nil
}

// getOrInsertOne performs the insert-returning-id / select-fallback dance
// for a single get-or-insert row, wrapped in the ambient transaction.
func getOrInsertOne(ctx context.Context, tx pgx.Tx, insertSQL, selectSQL string, insertArgs, selectArgs []interface{}) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, insertSQL, insertArgs...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	if err := tx.QueryRow(ctx, selectSQL, selectArgs...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", rcerrors.ErrTransient)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", rcerrors.ErrTransient)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEndpoint(row rowScanner, route domain.RouteIdentifier) (domain.Endpoint, error) {
	var ep domain.Endpoint
	ep.Route = route
	if err := row.Scan(&ep.ID, &ep.URL, &ep.IsActive, &ep.CreatedAt, &ep.UpdatedAt); err != nil {
		return domain.Endpoint{}, err
	}
	return ep, nil
}
