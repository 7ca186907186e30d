package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoria-api/internal/aggregate"
	"github.com/noah-isme/tutoria-api/internal/dto"
	"github.com/noah-isme/tutoria-api/internal/models"
)

type collectionReader interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
	ListAttendance(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceEvent, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL        time.Duration
	HoursPerSession float64
}

// DashboardService fetches collection snapshots and turns them into dashboard payloads.
type DashboardService struct {
	store   collectionReader
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Store   collectionReader
	Cache   *CacheService
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.HoursPerSession <= 0 {
		cfg.HoursPerSession = aggregate.DefaultHoursPerSession
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		store:   params.Store,
		cache:   params.Cache,
		metrics: params.Metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// Admin returns the global counters and attendance rate and indicates cache utilisation.
func (s *DashboardService) Admin(ctx context.Context) (*dto.AdminDashboardResponse, bool, error) {
	slot := s.cacheSlot("admin")
	var cached dto.AdminDashboardResponse
	if s.tryCache(ctx, slot, &cached) {
		return &cached, true, nil
	}

	metrics, degraded := s.compute(ctx, aggregate.Filter{})
	resp := &dto.AdminDashboardResponse{
		TotalStudents:         metrics.KPIs.TotalStudents,
		ScheduledSessions:     metrics.KPIs.ScheduledSessions,
		ActiveTutors:          metrics.KPIs.ActiveTutors,
		UniqueAttendees:       metrics.KPIs.UniqueAttendees,
		AttendanceRate:        metrics.KPIs.AttendanceRate,
		AttendanceRateDisplay: metrics.KPIs.AttendanceRateDisplay,
		Degraded:              degraded,
	}
	if !degraded {
		s.persistCache(ctx, slot, resp)
	}
	return resp, false, nil
}

// Reports returns the full metrics for the filter. A store failure yields the zero state flagged
// as degraded instead of an error.
func (s *DashboardService) Reports(ctx context.Context, filter aggregate.Filter) (*dto.ReportsResponse, bool, error) {
	slot := s.cacheSlot("reports", filter.Key())
	var cached dto.ReportsResponse
	if s.tryCache(ctx, slot, &cached) {
		return &cached, true, nil
	}

	metrics, degraded := s.compute(ctx, filter)
	resp := &dto.ReportsResponse{
		Filter:   reportFilter(filter),
		Metrics:  metrics,
		Degraded: degraded,
	}
	if !degraded {
		s.persistCache(ctx, slot, resp)
	}
	return resp, false, nil
}

// CareerTable returns the per-career rows for the filter. Unlike Reports it fails when the store
// is unavailable.
func (s *DashboardService) CareerTable(ctx context.Context, filter aggregate.Filter) ([]aggregate.CareerRow, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, asFetchError(err)
	}
	return aggregate.Compute(snap, filter).CareerTable, nil
}

// Tutor returns the tutor home-page summary.
func (s *DashboardService) Tutor(ctx context.Context, tutorID models.ID) (*dto.TutorDashboardResponse, bool, error) {
	slot := s.cacheSlot("tutor", tutorID.String())
	var cached dto.TutorDashboardResponse
	if s.tryCache(ctx, slot, &cached) {
		return &cached, true, nil
	}

	var (
		sessions []models.Session
		events   []models.AttendanceEvent
	)
	err := s.fetchParallel(
		func() (err error) {
			sessions, err = s.timedSessions(ctx, models.SessionFilter{TutorID: tutorID})
			return err
		},
		func() (err error) {
			events, err = s.timedAttendance(ctx)
			return err
		},
	)
	if err != nil {
		s.degrade("tutor", err)
		return &dto.TutorDashboardResponse{TutorSummary: aggregate.TutorSummary{TutorID: tutorID}, Degraded: true}, false, nil
	}

	resp := &dto.TutorDashboardResponse{TutorSummary: aggregate.SummarizeTutor(tutorID, sessions, events, s.cfg.HoursPerSession)}
	s.persistCache(ctx, slot, resp)
	return resp, false, nil
}

// Subjects lists the distinct subjects offered, used to populate report filters.
func (s *DashboardService) Subjects(ctx context.Context) ([]string, error) {
	sessions, err := s.timedSessions(ctx, models.SessionFilter{})
	if err != nil {
		return nil, asFetchError(err)
	}
	return aggregate.SubjectOptions(sessions), nil
}

// Snapshot reads the three collections concurrently. Each call returns its own copy.
func (s *DashboardService) Snapshot(ctx context.Context) (aggregate.Snapshot, error) {
	var snap aggregate.Snapshot
	err := s.fetchParallel(
		func() (err error) {
			start := time.Now()
			snap.Users, err = s.store.ListUsers(ctx)
			s.metrics.ObserveStoreCall("list_users", err, time.Since(start))
			return err
		},
		func() (err error) {
			snap.Sessions, err = s.timedSessions(ctx, models.SessionFilter{})
			return err
		},
		func() (err error) {
			snap.Events, err = s.timedAttendance(ctx)
			return err
		},
	)
	if err != nil {
		return aggregate.Snapshot{}, err
	}
	return snap, nil
}

func (s *DashboardService) compute(ctx context.Context, filter aggregate.Filter) (aggregate.Metrics, bool) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		s.degrade("metrics", err)
		return aggregate.Empty(), true
	}
	return aggregate.Compute(snap, filter), false
}

func (s *DashboardService) degrade(view string, err error) {
	s.metrics.RecordDegradedDashboard()
	s.logger.Warn("collection fetch failed, serving zero state", zap.String("view", view), zap.Error(err))
}

func (s *DashboardService) timedSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	start := time.Now()
	sessions, err := s.store.ListSessions(ctx, filter)
	s.metrics.ObserveStoreCall("list_sessions", err, time.Since(start))
	return sessions, err
}

func (s *DashboardService) timedAttendance(ctx context.Context) ([]models.AttendanceEvent, error) {
	start := time.Now()
	events, err := s.store.ListAttendance(ctx, models.AttendanceFilter{})
	s.metrics.ObserveStoreCall("list_attendance", err, time.Since(start))
	return events, err
}

// fetchParallel runs the reads concurrently and joins their errors.
func (s *DashboardService) fetchParallel(reads ...func() error) error {
	errs := make([]error, len(reads))
	var wg sync.WaitGroup
	for i, read := range reads {
		wg.Add(1)
		go func(i int, read func() error) {
			defer wg.Done()
			errs[i] = read()
		}(i, read)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// cacheSlot pins a dashboard key to the generation current before any data is read.
type cacheSlot struct {
	key string
	gen uint64
}

func (s *DashboardService) cacheSlot(parts ...string) cacheSlot {
	gen := s.cache.Generation()
	return cacheSlot{key: GenerationKey(gen, parts...), gen: gen}
}

func (s *DashboardService) tryCache(ctx context.Context, slot cacheSlot, dest interface{}) bool {
	if !s.cache.Enabled() {
		return false
	}
	hit, err := s.cache.Get(ctx, slot.key, dest)
	if err != nil {
		s.logger.Warn("dashboard cache lookup failed", zap.String("key", slot.key), zap.Error(err))
		return false
	}
	return hit
}

// persistCache skips the write when attendance was recorded while the payload was being computed.
func (s *DashboardService) persistCache(ctx context.Context, slot cacheSlot, value interface{}) {
	if !s.cache.Enabled() {
		return
	}
	if s.cache.Generation() != slot.gen {
		s.logger.Debug("dashboard payload outdated, not cached", zap.String("key", slot.key))
		return
	}
	if err := s.cache.Set(ctx, slot.key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache persist failed", zap.String("key", slot.key), zap.Error(err))
	}
}

func reportFilter(filter aggregate.Filter) dto.ReportFilter {
	out := dto.ReportFilter{Subject: filter.Subject}
	if !filter.DateStart.IsZero() {
		out.DateStart = filter.DateStart.Format(models.DateLayout)
	}
	if !filter.DateEnd.IsZero() {
		out.DateEnd = filter.DateEnd.Format(models.DateLayout)
	}
	return out
}
