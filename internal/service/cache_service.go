package service

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/tutoria-api/pkg/errors"
	"github.com/noah-isme/tutoria-api/pkg/jobs"
)

const dashboardCachePrefix = "tutoria:dashboard:"

// DashboardKey joins parts under the shared dashboard prefix.
func DashboardKey(parts ...string) string {
	return dashboardCachePrefix + strings.Join(parts, ":")
}

// CacheRepository is the key/value backend behind CacheService.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService wraps a CacheRepository with metrics and a kill switch. A nil or disabled service
// behaves as a permanent miss.
type CacheService struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	jitter  float64
	logger  *zap.Logger
	enabled bool

	generation atomic.Uint64
}

// CacheServiceParams groups constructor dependencies.
type CacheServiceParams struct {
	Repo    CacheRepository
	Metrics *MetricsService
	TTL     time.Duration
	// Jitter spreads expiries by up to this fraction of the TTL. Zero disables it.
	Jitter  float64
	Logger  *zap.Logger
	Enabled bool
}

// NewCacheService constructs a CacheService.
func NewCacheService(params CacheServiceParams) *CacheService {
	ttl := params.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	jitter := params.Jitter
	if jitter < 0 || jitter > 1 {
		jitter = 0
	}
	log := params.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &CacheService{
		repo:    params.Repo,
		metrics: params.Metrics,
		ttl:     ttl,
		jitter:  jitter,
		logger:  log,
		enabled: params.Enabled && params.Repo != nil,
	}
}

// Enabled reports whether reads and writes reach the repository.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled
}

// Generation identifies the current attendance state as seen by this process.
func (s *CacheService) Generation() uint64 {
	if s == nil {
		return 0
	}
	return s.generation.Load()
}

// MarkStale advances the generation. Dashboard keys built from an older generation are no longer
// read, and computations started under one are not persisted.
func (s *CacheService) MarkStale() {
	if s == nil {
		return
	}
	s.generation.Add(1)
}

// GenerationKey is DashboardKey scoped to generation gen.
func GenerationKey(gen uint64, parts ...string) string {
	return DashboardKey(append([]string{"g" + strconv.FormatUint(gen, 10)}, parts...)...)
}

// Get decodes key into dest. A miss is (false, nil); backend failures are returned.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores value under key. A non-positive ttl uses the configured default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, s.spread(ttl))
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

func (s *CacheService) spread(ttl time.Duration) time.Duration {
	if s.jitter == 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Float64()*s.jitter*float64(ttl))
}

// Invalidate deletes every key matching the glob pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	err := s.repo.DeleteByPattern(ctx, pattern)
	if err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
	return err
}

// InvalidateDashboards drops every cached dashboard payload.
func (s *CacheService) InvalidateDashboards(ctx context.Context) error {
	return s.Invalidate(ctx, dashboardCachePrefix+"*")
}

// DashboardInvalidationHandler adapts the cache to the invalidation queue. Other job types are
// ignored.
func DashboardInvalidationHandler(cache *CacheService) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		if job.Type != JobTypeInvalidateDashboards {
			return nil
		}
		return cache.InvalidateDashboards(ctx)
	}
}
