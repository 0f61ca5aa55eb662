package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soporte-bpo/incident-service/internal/domain"
)

// UserRepository resolves acting users and technician candidates.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ListTechniciansForSede(ctx context.Context, sede domain.Sede) ([]domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates the repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userSelect = `
        SELECT id, username, full_name, password_hash, role, COALESCE(sede, ''), COALESCE(departamento, ''), created_at, updated_at
        FROM users`

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, userSelect+` WHERE id=$1`, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.fetchSingle(ctx, userSelect+` WHERE username=$1`, username)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.FullName,
		&user.PasswordHash,
		&user.Role,
		&user.Sede,
		&user.Departamento,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListTechniciansForSede returns assignment candidates for incidents at the
// given site. Barranquilla has no resident technicians, so its candidates
// are the Bogotá and Villavicencio staff who service it remotely.
func (r *userRepository) ListTechniciansForSede(ctx context.Context, sede domain.Sede) ([]domain.User, error) {
	sedes := []domain.Sede{sede}
	if sede == domain.SedeBarranquilla {
		sedes = []domain.Sede{domain.SedeBogota, domain.SedeVillavicencio}
	}

	placeholders := make([]string, len(sedes))
	args := make([]any, len(sedes))
	for i, candidate := range sedes {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = candidate
	}
	query := userSelect + fmt.Sprintf(
		` WHERE role = 'technician' AND sede IN (%s) ORDER BY full_name`,
		strings.Join(placeholders, ","))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.FullName,
			&user.PasswordHash,
			&user.Role,
			&user.Sede,
			&user.Departamento,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}
