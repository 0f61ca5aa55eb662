package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/soporte-bpo/incident-service/internal/authz"
	"github.com/soporte-bpo/incident-service/internal/domain"
	"github.com/soporte-bpo/incident-service/internal/repository"
)

// memStore is the shared in-memory backing for the fake repositories. The
// incident fake implements the same guarded-transition contract as the SQL
// repository, so racing callers observe the same win/lose behavior.
type memStore struct {
	mu          sync.Mutex
	incidents   map[string]*domain.Incident
	stations    map[string]*domain.Workstation
	users       map[string]*domain.User
	history     []domain.HistoryEntry
	ratings     map[string]*domain.TechnicianRating
	attachments []domain.AttachmentReference
	alerts      map[string]*domain.SupervisionAlert
}

func newMemStore() *memStore {
	return &memStore{
		incidents: make(map[string]*domain.Incident),
		stations:  make(map[string]*domain.Workstation),
		users:     make(map[string]*domain.User),
		ratings:   make(map[string]*domain.TechnicianRating),
		alerts:    make(map[string]*domain.SupervisionAlert),
	}
}

func (s *memStore) addUser(role domain.Role, fullName string, sede domain.Sede, dept domain.Departamento) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     strings.ToLower(strings.ReplaceAll(fullName, " ", ".")),
		FullName:     fullName,
		Role:         role,
		Sede:         sede,
		Departamento: dept,
	}
	s.users[user.ID] = user
	return user
}

func (s *memStore) appendHistory(incidentID, userID string, action domain.HistoryAction, details string) {
	s.history = append(s.history, domain.HistoryEntry{
		ID:         uuid.NewString(),
		IncidentID: incidentID,
		UserID:     userID,
		Action:     action,
		Details:    details,
		Timestamp:  time.Now(),
	})
}

func (s *memStore) historyFor(incidentID string) []domain.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []domain.HistoryEntry
	for _, entry := range s.history {
		if entry.IncidentID == incidentID {
			entries = append(entries, entry)
		}
	}
	return entries
}

type fakeIncidentRepo struct {
	store *memStore
}

func (r *fakeIncidentRepo) Create(_ context.Context, incident *domain.Incident, historyDetails string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	incident.ID = uuid.NewString()
	incident.Status = domain.StatusPending
	incident.CreatedAt = time.Now()
	incident.UpdatedAt = incident.CreatedAt
	copied := *incident
	r.store.incidents[incident.ID] = &copied
	r.store.appendHistory(incident.ID, incident.ReportedByID, domain.ActionCreated, historyDetails)
	return nil
}

func (r *fakeIncidentRepo) GetByID(_ context.Context, id string) (*domain.Incident, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	incident, ok := r.store.incidents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *incident
	return &copied, nil
}

func (r *fakeIncidentRepo) GetSummary(_ context.Context, id string) (*domain.IncidentSummary, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	incident, ok := r.store.incidents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r.summarize(incident), nil
}

func (r *fakeIncidentRepo) summarize(incident *domain.Incident) *domain.IncidentSummary {
	station := r.store.stations[incident.WorkstationID]
	reporter := r.store.users[incident.ReportedByID]
	summary := &domain.IncidentSummary{
		ID:              incident.ID,
		FailureType:     incident.FailureType,
		Description:     incident.Description,
		Status:          incident.Status,
		StationCode:     station.StationCode,
		LocationDetails: station.LocationDetails,
		Sede:            station.Sede,
		Departamento:    station.Departamento,
		ReportedByID:    reporter.ID,
		ReportedByName:  reporter.FullName,
		ReporterRole:    reporter.Role,
		AssignedToID:    incident.AssignedToID,
		ReturnReason:    incident.ReturnReason,
		ReturnCount:     incident.ReturnCount,
		ReturnedAt:      incident.ReturnedAt,
		CreatedAt:       incident.CreatedAt,
		UpdatedAt:       incident.UpdatedAt,
	}
	if incident.AssignedToID != nil {
		if assigned, ok := r.store.users[*incident.AssignedToID]; ok {
			name := assigned.FullName
			summary.AssignedToName = &name
		}
	}
	return summary
}

func (r *fakeIncidentRepo) List(_ context.Context, scope authz.Scope) ([]domain.IncidentSummary, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.IncidentSummary
	if scope.DenyAll {
		return result, nil
	}
	for _, incident := range r.store.incidents {
		summary := r.summarize(incident)
		if !scope.Allows(summary.Sede, summary.Departamento, summary.ReportedByID) {
			continue
		}
		if scope.Status != nil && summary.Status != *scope.Status {
			continue
		}
		if scope.AssignedToID != nil && (summary.AssignedToID == nil || *summary.AssignedToID != *scope.AssignedToID) {
			continue
		}
		if scope.FilterDept != nil && summary.Departamento != *scope.FilterDept {
			continue
		}
		if scope.FilterSede != nil && summary.Sede != *scope.FilterSede {
			continue
		}
		if scope.CreatorRole != nil && summary.ReporterRole != *scope.CreatorRole {
			continue
		}
		result = append(result, *summary)
	}
	return result, nil
}

func (r *fakeIncidentRepo) ListReportedBy(_ context.Context, reporterID string) ([]domain.IncidentSummary, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.IncidentSummary
	for _, incident := range r.store.incidents {
		if incident.ReportedByID == reporterID {
			result = append(result, *r.summarize(incident))
		}
	}
	return result, nil
}

func (r *fakeIncidentRepo) CountsByReporter(_ context.Context, reporterID string) (*domain.StatusCounts, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	counts := &domain.StatusCounts{}
	for _, incident := range r.store.incidents {
		if incident.ReportedByID != reporterID {
			continue
		}
		counts.Total++
		switch incident.Status {
		case domain.StatusPending:
			counts.Pending++
		case domain.StatusInProgress:
			counts.InProgress++
		case domain.StatusInSupervision:
			counts.InSupervision++
		case domain.StatusApproved:
			counts.Approved++
		case domain.StatusReturned:
			counts.Returned++
		}
	}
	return counts, nil
}

func (r *fakeIncidentRepo) Apply(_ context.Context, t repository.Transition) (repository.TransitionOutcome, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	incident, ok := r.store.incidents[t.IncidentID]
	if !ok {
		return repository.TransitionNotFound, nil
	}

	if len(t.FromStatuses) > 0 {
		matched := false
		for _, status := range t.FromStatuses {
			if incident.Status == status {
				matched = true
				break
			}
		}
		if !matched {
			return repository.TransitionPreconditionFailed, nil
		}
	}
	for _, status := range t.ExcludeStatuses {
		if incident.Status == status {
			return repository.TransitionPreconditionFailed, nil
		}
	}
	if t.RequireAssignee != nil {
		if incident.AssignedToID == nil || *incident.AssignedToID != *t.RequireAssignee {
			return repository.TransitionPreconditionFailed, nil
		}
	}
	if t.RequireReporter != nil && incident.ReportedByID != *t.RequireReporter {
		return repository.TransitionPreconditionFailed, nil
	}

	switch {
	case t.PromotePending:
		if incident.Status == domain.StatusPending {
			incident.Status = domain.StatusInProgress
		}
	case t.ToStatus != "":
		incident.Status = t.ToStatus
	}
	if t.SetAssignee != nil {
		assignee := *t.SetAssignee
		incident.AssignedToID = &assignee
	}
	if t.ClearAssignee {
		incident.AssignedToID = nil
	}
	if t.IncrementReturn {
		incident.ReturnCount++
		now := time.Now()
		incident.ReturnedAt = &now
	}
	if t.SetReturnReason != nil {
		reason := *t.SetReturnReason
		incident.ReturnReason = &reason
	}
	if t.SetReturnedBy != nil {
		by := *t.SetReturnedBy
		incident.ReturnedByID = &by
	}
	if t.SetDescription != nil {
		incident.Description = *t.SetDescription
	}
	if t.SetFailureType != nil {
		incident.FailureType = *t.SetFailureType
	}
	incident.UpdatedAt = time.Now()

	r.store.appendHistory(t.IncidentID, t.ActorID, t.Action, t.Details)
	return repository.TransitionOK, nil
}

func (r *fakeIncidentRepo) StatsBySede(_ context.Context, scope authz.Scope) ([]domain.SedeStats, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	bySede := map[domain.Sede]*domain.SedeStats{}
	for _, sede := range domain.Sedes() {
		bySede[sede] = &domain.SedeStats{Sede: sede}
	}
	for _, incident := range r.store.incidents {
		station := r.store.stations[incident.WorkstationID]
		stats := bySede[station.Sede]
		stats.Total++
		switch incident.Status {
		case domain.StatusPending:
			stats.Pending++
		case domain.StatusInProgress:
			stats.InProgress++
		case domain.StatusInSupervision:
			stats.InSupervision++
		case domain.StatusApproved:
			stats.Approved++
		}
	}
	result := make([]domain.SedeStats, 0, len(bySede))
	for _, sede := range domain.Sedes() {
		result = append(result, *bySede[sede])
	}
	return result, nil
}

func (r *fakeIncidentRepo) TechnicianStatuses(_ context.Context) ([]domain.TechnicianStatus, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.TechnicianStatus
	for _, user := range r.store.users {
		if user.Role != domain.RoleTechnician {
			continue
		}
		status := domain.TechnicianStatus{ID: user.ID, FullName: user.FullName, Sede: user.Sede}
		for _, incident := range r.store.incidents {
			if incident.AssignedToID != nil && *incident.AssignedToID == user.ID &&
				(incident.Status == domain.StatusInProgress || incident.Status == domain.StatusInSupervision) {
				status.ActiveIncidents++
			}
		}
		result = append(result, status)
	}
	return result, nil
}

type fakeWorkstationRepo struct {
	store *memStore
}

func (r *fakeWorkstationRepo) Create(_ context.Context, station *domain.Workstation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	station.ID = uuid.NewString()
	station.CreatedAt = time.Now()
	station.UpdatedAt = station.CreatedAt
	copied := *station
	r.store.stations[station.ID] = &copied
	return nil
}

func (r *fakeWorkstationRepo) GetByID(_ context.Context, id string) (*domain.Workstation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	station, ok := r.store.stations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *station
	return &copied, nil
}

func (r *fakeWorkstationRepo) GetByStationCode(_ context.Context, code string) (*domain.Workstation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, station := range r.store.stations {
		if station.StationCode == code {
			copied := *station
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeWorkstationRepo) FindOrCreateByCode(ctx context.Context, station *domain.Workstation) (*domain.Workstation, error) {
	existing, err := r.GetByStationCode(ctx, station.StationCode)
	if err == nil {
		return existing, nil
	}
	if err := r.Create(ctx, station); err != nil {
		return nil, err
	}
	return station, nil
}

func (r *fakeWorkstationRepo) UpdateRemoteFields(_ context.Context, id string, anydesk, cedula *string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	station, ok := r.store.stations[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if anydesk != nil {
		station.AnydeskAddress = anydesk
	}
	if cedula != nil {
		station.AdvisorCedula = cedula
	}
	return nil
}

type fakeUserRepo struct {
	store *memStore
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) ListTechniciansForSede(_ context.Context, sede domain.Sede) ([]domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sedes := []domain.Sede{sede}
	if sede == domain.SedeBarranquilla {
		sedes = []domain.Sede{domain.SedeBogota, domain.SedeVillavicencio}
	}
	var result []domain.User
	for _, user := range r.store.users {
		if user.Role != domain.RoleTechnician {
			continue
		}
		for _, candidate := range sedes {
			if user.Sede == candidate {
				result = append(result, *user)
				break
			}
		}
	}
	return result, nil
}

type fakeHistoryRepo struct {
	store *memStore
}

func (r *fakeHistoryRepo) ListByIncident(_ context.Context, incidentID string) ([]domain.HistoryEntry, error) {
	return r.store.historyFor(incidentID), nil
}

func (r *fakeHistoryRepo) ListGlobal(_ context.Context, limit, offset int) ([]domain.LedgerEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.LedgerEntry
	for i := len(r.store.history) - 1; i >= 0; i-- {
		entry := r.store.history[i]
		user := r.store.users[entry.UserID]
		ledger := domain.LedgerEntry{HistoryEntry: entry}
		if user != nil {
			ledger.UserName = user.FullName
			ledger.UserRole = user.Role
		}
		result = append(result, ledger)
	}
	if offset > len(result) {
		offset = len(result)
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (r *fakeHistoryRepo) Stats(_ context.Context) (*domain.LedgerStats, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stats := &domain.LedgerStats{TotalEntries: len(r.store.history)}
	incidents := map[string]struct{}{}
	actors := map[string]struct{}{}
	for _, entry := range r.store.history {
		incidents[entry.IncidentID] = struct{}{}
		actors[entry.UserID] = struct{}{}
	}
	stats.DistinctIncidents = len(incidents)
	stats.DistinctActors = len(actors)
	return stats, nil
}

type fakeRatingRepo struct {
	store *memStore
}

func (r *fakeRatingRepo) Upsert(_ context.Context, rating *domain.TechnicianRating) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := rating.IncidentID + "|" + rating.TechnicianID
	if existing, ok := r.store.ratings[key]; ok {
		existing.Rating = rating.Rating
		existing.Feedback = rating.Feedback
		existing.RatedByID = rating.RatedByID
		*rating = *existing
		return nil
	}
	rating.ID = uuid.NewString()
	rating.CreatedAt = time.Now()
	copied := *rating
	r.store.ratings[key] = &copied
	return nil
}

func (r *fakeRatingRepo) ListByTechnician(_ context.Context, technicianID string) ([]domain.RatedIncident, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.RatedIncident
	for _, rating := range r.store.ratings {
		if rating.TechnicianID == technicianID {
			result = append(result, domain.RatedIncident{TechnicianRating: *rating})
		}
	}
	return result, nil
}

func (r *fakeRatingRepo) AverageForTechnician(_ context.Context, technicianID string) (*domain.RatingAverage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	average := &domain.RatingAverage{}
	sum := 0
	for _, rating := range r.store.ratings {
		if rating.TechnicianID == technicianID {
			sum += rating.Rating
			average.Total++
		}
	}
	if average.Total > 0 {
		average.Average = float64(sum) / float64(average.Total)
	}
	return average, nil
}

type fakeAttachmentRepo struct {
	store *memStore
}

func (r *fakeAttachmentRepo) Create(_ context.Context, ref *domain.AttachmentReference) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ref.ID = uuid.NewString()
	ref.CreatedAt = time.Now()
	r.store.attachments = append(r.store.attachments, *ref)
	return nil
}

func (r *fakeAttachmentRepo) ListByIncident(_ context.Context, incidentID string) ([]domain.AttachmentReference, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.AttachmentReference
	for _, ref := range r.store.attachments {
		if ref.IncidentID == incidentID {
			result = append(result, ref)
		}
	}
	return result, nil
}

type fakeAlertRepo struct {
	store *memStore
}

func (r *fakeAlertRepo) Create(_ context.Context, alert *domain.SupervisionAlert) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	alert.ID = uuid.NewString()
	alert.Status = domain.AlertActive
	alert.CreatedAt = time.Now()
	copied := *alert
	r.store.alerts[alert.ID] = &copied
	return nil
}

func (r *fakeAlertRepo) ListByRecipient(_ context.Context, recipientID string, limit int) ([]domain.SupervisionAlert, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.SupervisionAlert
	for _, alert := range r.store.alerts {
		if alert.RecipientID == recipientID {
			result = append(result, *alert)
		}
	}
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (r *fakeAlertRepo) MarkRead(_ context.Context, alertID, recipientID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	alert, ok := r.store.alerts[alertID]
	if !ok || alert.RecipientID != recipientID || alert.Status != domain.AlertActive {
		return pgx.ErrNoRows
	}
	now := time.Now()
	alert.Status = domain.AlertRead
	alert.ReadAt = &now
	return nil
}

func (r *fakeAlertRepo) Dismiss(_ context.Context, alertID, recipientID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	alert, ok := r.store.alerts[alertID]
	if !ok || alert.RecipientID != recipientID {
		return pgx.ErrNoRows
	}
	now := time.Now()
	alert.Status = domain.AlertDismissed
	alert.DismissedAt = &now
	return nil
}

func zapTestLogger() *zap.Logger {
	return zap.NewNop()
}

// newTestIncidentService wires an incident service over the shared store.
func newTestIncidentService(store *memStore) *IncidentService {
	return NewIncidentService(IncidentDependencies{
		IncidentRepo:    &fakeIncidentRepo{store: store},
		WorkstationRepo: &fakeWorkstationRepo{store: store},
		UserRepo:        &fakeUserRepo{store: store},
		HistoryRepo:     &fakeHistoryRepo{store: store},
		RatingRepo:      &fakeRatingRepo{store: store},
		AttachmentRepo:  &fakeAttachmentRepo{store: store},
		Logger:          zapTestLogger(),
	})
}

func newTestAssignmentService(store *memStore) *AssignmentService {
	return NewAssignmentService(AssignmentDependencies{
		IncidentRepo: &fakeIncidentRepo{store: store},
		UserRepo:     &fakeUserRepo{store: store},
	})
}
