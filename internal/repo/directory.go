package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/carpool/internal/domain"
)

// DirectoryRepo reads the groups, vehicles, drivers and children the
// scheduler references. It never writes to them.
type DirectoryRepo interface {
	GetGroup(ctx context.Context, id uuid.UUID) (domain.Group, error)
	GetVehicle(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)
	GetDriver(ctx context.Context, id uuid.UUID) (domain.Driver, error)
	GetChild(ctx context.Context, id uuid.UUID) (domain.Child, error)
}

type pgDirectoryRepo struct {
	db db
}

// NewDirectoryRepo constructs a DirectoryRepo backed by the provided db connection.
func NewDirectoryRepo(db db) DirectoryRepo {
	return &pgDirectoryRepo{db: db}
}

func (r *pgDirectoryRepo) GetGroup(ctx context.Context, id uuid.UUID) (domain.Group, error) {
	const q = `SELECT id, name FROM groups WHERE id = @id`

	var (
		g   domain.Group
		gid pgtype.UUID
	)
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}).Scan(&gid, &g.Name); err != nil {
		return domain.Group{}, fmt.Errorf("repo.DirectoryRepo.GetGroup: %w", translate(err))
	}
	g.ID = uuid.UUID(gid.Bytes)
	return g, nil
}

func (r *pgDirectoryRepo) GetVehicle(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	const q = `SELECT id, group_id, name, capacity FROM vehicles WHERE id = @id`

	var (
		v        domain.Vehicle
		vid, gid pgtype.UUID
	)
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}).Scan(&vid, &gid, &v.Name, &v.Capacity); err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.DirectoryRepo.GetVehicle: %w", translate(err))
	}
	v.ID = uuid.UUID(vid.Bytes)
	v.GroupID = uuid.UUID(gid.Bytes)
	return v, nil
}

func (r *pgDirectoryRepo) GetDriver(ctx context.Context, id uuid.UUID) (domain.Driver, error) {
	const q = `SELECT id, name FROM drivers WHERE id = @id`

	var (
		d   domain.Driver
		did pgtype.UUID
	)
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}).Scan(&did, &d.Name); err != nil {
		return domain.Driver{}, fmt.Errorf("repo.DirectoryRepo.GetDriver: %w", translate(err))
	}
	d.ID = uuid.UUID(did.Bytes)
	return d, nil
}

func (r *pgDirectoryRepo) GetChild(ctx context.Context, id uuid.UUID) (domain.Child, error) {
	const q = `SELECT id, group_id, name FROM children WHERE id = @id`

	var (
		c        domain.Child
		cid, gid pgtype.UUID
	)
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}).Scan(&cid, &gid, &c.Name); err != nil {
		return domain.Child{}, fmt.Errorf("repo.DirectoryRepo.GetChild: %w", translate(err))
	}
	c.ID = uuid.UUID(cid.Bytes)
	c.GroupID = uuid.UUID(gid.Bytes)
	return c, nil
}
