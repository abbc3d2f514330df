package repository

import (
	"context"
	"time"

	"wisefido-health/internal/models"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const allUnitsKey = "units:all"

// CachedUnitsRepo 带 TTL 的床位缓存（床位列表变化不频繁，匹配请求频繁）
type CachedUnitsRepo struct {
	inner  UnitsRepository
	cache  *cache.Cache
	logger *zap.Logger
}

// NewCachedUnitsRepo 创建床位缓存
func NewCachedUnitsRepo(inner UnitsRepository, ttl time.Duration, logger *zap.Logger) *CachedUnitsRepo {
	return &CachedUnitsRepo{
		inner:  inner,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

func (r *CachedUnitsRepo) ListUnits(ctx context.Context) ([]models.ResourceUnit, error) {
	if v, ok := r.cache.Get(allUnitsKey); ok {
		return copyUnits(v.([]models.ResourceUnit)), nil
	}

	units, err := r.inner.ListUnits(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(allUnitsKey, copyUnits(units))
	r.logger.Debug("Cached resource units", zap.Int("unit_count", len(units)))
	return units, nil
}

func (r *CachedUnitsRepo) GetUnit(ctx context.Context, unitID string) (*models.ResourceUnit, error) {
	key := "unit:" + unitID
	if v, ok := r.cache.Get(key); ok {
		u := v.(models.ResourceUnit)
		return &u, nil
	}

	u, err := r.inner.GetUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(key, *u)
	return u, nil
}

// Invalidate 清空缓存
func (r *CachedUnitsRepo) Invalidate() {
	r.cache.Flush()
}

func copyUnits(units []models.ResourceUnit) []models.ResourceUnit {
	out := make([]models.ResourceUnit, len(units))
	copy(out, units)
	return out
}
