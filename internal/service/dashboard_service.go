package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/visahub/crm-service/internal/auth"
	"github.com/visahub/crm-service/internal/config"
	"github.com/visahub/crm-service/internal/domain"
	"github.com/visahub/crm-service/internal/repository"
)

// DashboardStats is the aggregate snapshot rendered on the dashboard.
// Every figure is scoped to the requesting actor's visibility.
type DashboardStats struct {
	TotalLeads            int64     `json:"total_leads"`
	TotalAppointments     int64     `json:"total_appointments"`
	NewLeads              int64     `json:"new_leads"`
	ScheduledAppointments int64     `json:"scheduled_appointments"`
	GeneratedAt           time.Time `json:"generated_at"`
}

// StatsCache abstracts the Redis-backed stats cache.
type StatsCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// DashboardService aggregates role-scoped counts. A failing count never
// fails the whole snapshot; the figure degrades to zero and the miss is
// logged.
type DashboardService struct {
	leads        repository.LeadRepository
	appointments repository.AppointmentRepository
	cache        StatsCache
	cfg          config.DashboardConfig
	logger       *zap.Logger
	now          func() time.Time
}

// DashboardDependencies bundles collaborators for the dashboard service.
type DashboardDependencies struct {
	LeadRepo        repository.LeadRepository
	AppointmentRepo repository.AppointmentRepository
	Cache           StatsCache
	Config          config.DashboardConfig
	Logger          *zap.Logger
	Now             func() time.Time
}

// NewDashboardService constructs the service.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		leads:        deps.LeadRepo,
		appointments: deps.AppointmentRepo,
		cache:        deps.Cache,
		cfg:          deps.Config,
		logger:       logger,
		now:          now,
	}
}

// Stats computes the dashboard snapshot for the actor, consulting the
// cache first when one is wired.
func (s *DashboardService) Stats(ctx context.Context, actor *domain.Profile) (*DashboardStats, error) {
	cacheKey := fmt.Sprintf("dashboard:stats:%s", actor.ID)
	if cached := s.readCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	now := s.now()
	leadScope := auth.VisibleLeadScope(actor)
	appointmentScope := auth.VisibleAppointmentScope(actor)

	baseLeadFilter := repository.LeadFilter{
		AssignedAgentID: leadScope.AssignedAgentID,
		ConsultantID:    leadScope.ConsultantID,
	}

	baseAppointmentFilter := repository.AppointmentFilter{
		ConsultantID: appointmentScope.ConsultantID,
		AgentID:      appointmentScope.AgentID,
	}

	stats := &DashboardStats{GeneratedAt: now}
	stats.TotalLeads = s.countLeads(ctx, "total_leads", baseLeadFilter)
	stats.TotalAppointments = s.countAppointments(ctx, "total_appointments", baseAppointmentFilter)

	newFilter := baseLeadFilter
	windowStart := now.AddDate(0, 0, -s.cfg.NewLeadWindow)
	newFilter.CreatedFrom = &windowStart
	stats.NewLeads = s.countLeads(ctx, "new_leads", newFilter)

	scheduledFilter := baseAppointmentFilter
	scheduledFilter.Statuses = []domain.AppointmentStatus{domain.AppointmentStatusScheduled}
	stats.ScheduledAppointments = s.countAppointments(ctx, "scheduled_appointments", scheduledFilter)

	s.writeCache(ctx, cacheKey, stats)
	return stats, nil
}

func (s *DashboardService) countLeads(ctx context.Context, figure string, filter repository.LeadFilter) int64 {
	count, err := s.leads.Count(ctx, filter)
	if err != nil {
		s.logger.Warn("dashboard count failed, reporting zero",
			zap.String("figure", figure), zap.Error(err))
		return 0
	}
	return count
}

func (s *DashboardService) countAppointments(ctx context.Context, figure string, filter repository.AppointmentFilter) int64 {
	count, err := s.appointments.Count(ctx, filter)
	if err != nil {
		s.logger.Warn("dashboard count failed, reporting zero",
			zap.String("figure", figure), zap.Error(err))
		return 0
	}
	return count
}

func (s *DashboardService) readCache(ctx context.Context, key string) *DashboardStats {
	if s.cache == nil || s.cfg.CacheTTL() <= 0 {
		return nil
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == "" {
		return nil
	}
	var stats DashboardStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		s.logger.Warn("discarding malformed cached stats", zap.Error(err))
		return nil
	}
	return &stats
}

func (s *DashboardService) writeCache(ctx context.Context, key string, stats *DashboardStats) {
	if s.cache == nil || s.cfg.CacheTTL() <= 0 {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.cfg.CacheTTL()); err != nil {
		s.logger.Warn("unable to cache dashboard stats", zap.Error(err))
	}
}
