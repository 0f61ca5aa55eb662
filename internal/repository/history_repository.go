package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soporte-bpo/incident-service/internal/domain"
)

// HistoryRepository reads the append-only incident ledger. Writes happen
// only inside incident transitions; there is deliberately no update or
// delete here.
type HistoryRepository interface {
	ListByIncident(ctx context.Context, incidentID string) ([]domain.HistoryEntry, error)
	ListGlobal(ctx context.Context, limit, offset int) ([]domain.LedgerEntry, error)
	Stats(ctx context.Context) (*domain.LedgerStats, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds the repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) ListByIncident(ctx context.Context, incidentID string) ([]domain.HistoryEntry, error) {
	const query = `
        SELECT id, incident_id, user_id, action, details, created_at
        FROM incident_history WHERE incident_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(&entry.ID, &entry.IncidentID, &entry.UserID, &entry.Action, &entry.Details, &entry.Timestamp); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *historyRepository) ListGlobal(ctx context.Context, limit, offset int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT ih.id, ih.incident_id, ih.user_id, ih.action, ih.details, ih.created_at,
               u.full_name, u.role, w.station_code
        FROM incident_history ih
        JOIN users u ON ih.user_id = u.id
        JOIN incidents i ON ih.incident_id = i.id
        JOIN workstations w ON i.workstation_id = w.id
        ORDER BY ih.created_at DESC
        LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.LedgerEntry
	for rows.Next() {
		var entry domain.LedgerEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.IncidentID,
			&entry.UserID,
			&entry.Action,
			&entry.Details,
			&entry.Timestamp,
			&entry.UserName,
			&entry.UserRole,
			&entry.StationCode,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *historyRepository) Stats(ctx context.Context) (*domain.LedgerStats, error) {
	stats := &domain.LedgerStats{}

	const totals = `
        SELECT COUNT(*), COUNT(DISTINCT incident_id), COUNT(DISTINCT user_id)
        FROM incident_history`
	if err := r.pool.QueryRow(ctx, totals).Scan(&stats.TotalEntries, &stats.DistinctIncidents, &stats.DistinctActors); err != nil {
		return nil, err
	}

	const byActor = `
        SELECT ih.user_id, u.full_name, COUNT(*)
        FROM incident_history ih
        JOIN users u ON ih.user_id = u.id
        GROUP BY ih.user_id, u.full_name
        ORDER BY COUNT(*) DESC`
	actorRows, err := r.pool.Query(ctx, byActor)
	if err != nil {
		return nil, err
	}
	defer actorRows.Close()
	for actorRows.Next() {
		var activity domain.ActorActivity
		if err := actorRows.Scan(&activity.UserID, &activity.UserName, &activity.Entries); err != nil {
			return nil, err
		}
		stats.ByActor = append(stats.ByActor, activity)
	}
	if err := actorRows.Err(); err != nil {
		return nil, err
	}

	const byAction = `
        SELECT action, COUNT(*)
        FROM incident_history
        GROUP BY action
        ORDER BY COUNT(*) DESC`
	actionRows, err := r.pool.Query(ctx, byAction)
	if err != nil {
		return nil, err
	}
	defer actionRows.Close()
	for actionRows.Next() {
		var activity domain.ActionActivity
		if err := actionRows.Scan(&activity.Action, &activity.Entries); err != nil {
			return nil, err
		}
		stats.ByAction = append(stats.ByAction, activity)
	}
	if err := actionRows.Err(); err != nil {
		return nil, err
	}

	const trend = `
        SELECT created_at::date AS day, COUNT(*)
        FROM incident_history
        WHERE created_at >= CURRENT_DATE - INTERVAL '6 days'
        GROUP BY day
        ORDER BY day ASC`
	trendRows, err := r.pool.Query(ctx, trend)
	if err != nil {
		return nil, err
	}
	defer trendRows.Close()
	byDay := map[string]int{}
	for trendRows.Next() {
		var day time.Time
		var count int
		if err := trendRows.Scan(&day, &count); err != nil {
			return nil, err
		}
		byDay[day.Format("2006-01-02")] = count
	}
	if err := trendRows.Err(); err != nil {
		return nil, err
	}

	// Fill the 7-day window so the trend always has one point per day.
	today := time.Now().Truncate(24 * time.Hour)
	for i := 6; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		stats.Last7Days = append(stats.Last7Days, domain.DailyActivity{
			Day:     day,
			Entries: byDay[day.Format("2006-01-02")],
		})
	}

	return stats, nil
}
