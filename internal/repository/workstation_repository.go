package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soporte-bpo/incident-service/internal/domain"
)

// WorkstationRepository persists seats.
type WorkstationRepository interface {
	Create(ctx context.Context, station *domain.Workstation) error
	GetByID(ctx context.Context, id string) (*domain.Workstation, error)
	GetByStationCode(ctx context.Context, code string) (*domain.Workstation, error)
	FindOrCreateByCode(ctx context.Context, station *domain.Workstation) (*domain.Workstation, error)
	UpdateRemoteFields(ctx context.Context, id string, anydesk, cedula *string) error
}

type workstationRepository struct {
	pool *pgxpool.Pool
}

// NewWorkstationRepository instantiates the repository.
func NewWorkstationRepository(pool *pgxpool.Pool) WorkstationRepository {
	return &workstationRepository{pool: pool}
}

func (r *workstationRepository) Create(ctx context.Context, station *domain.Workstation) error {
	const query = `
        INSERT INTO workstations (station_code, location_details, sede, departamento, anydesk_address, advisor_cedula)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		station.StationCode,
		station.LocationDetails,
		station.Sede,
		station.Departamento,
		station.AnydeskAddress,
		station.AdvisorCedula,
	).Scan(&station.ID, &station.CreatedAt, &station.UpdatedAt)
}

func (r *workstationRepository) GetByID(ctx context.Context, id string) (*domain.Workstation, error) {
	return r.fetchSingle(ctx, `WHERE id=$1`, id)
}

func (r *workstationRepository) GetByStationCode(ctx context.Context, code string) (*domain.Workstation, error) {
	return r.fetchSingle(ctx, `WHERE station_code=$1`, code)
}

func (r *workstationRepository) fetchSingle(ctx context.Context, where string, arg any) (*domain.Workstation, error) {
	query := `
        SELECT id, station_code, location_details, sede, departamento, anydesk_address, advisor_cedula, created_at, updated_at
        FROM workstations ` + where
	var station domain.Workstation
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&station.ID,
		&station.StationCode,
		&station.LocationDetails,
		&station.Sede,
		&station.Departamento,
		&station.AnydeskAddress,
		&station.AdvisorCedula,
		&station.CreatedAt,
		&station.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &station, nil
}

// FindOrCreateByCode returns the existing seat with the given code or
// creates it. Callers relying on per-incident unique codes (Barranquilla)
// use Create directly instead.
func (r *workstationRepository) FindOrCreateByCode(ctx context.Context, station *domain.Workstation) (*domain.Workstation, error) {
	existing, err := r.GetByStationCode(ctx, station.StationCode)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err := r.Create(ctx, station); err != nil {
		return nil, err
	}
	return station, nil
}

func (r *workstationRepository) UpdateRemoteFields(ctx context.Context, id string, anydesk, cedula *string) error {
	const query = `
        UPDATE workstations
        SET anydesk_address = COALESCE($1, anydesk_address),
            advisor_cedula = COALESCE($2, advisor_cedula),
            updated_at = NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, anydesk, cedula, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
