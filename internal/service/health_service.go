package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"wisefido-health/internal/config"
	"wisefido-health/internal/coordinator"
	"wisefido-health/internal/database"
	"wisefido-health/internal/evaluator"
	"wisefido-health/internal/events"
	"wisefido-health/internal/matcher"
	"wisefido-health/internal/merge"
	"wisefido-health/internal/models"
	mqttclient "wisefido-health/internal/mqtt"
	"wisefido-health/internal/policy"
	"wisefido-health/internal/provider"
	rediscommon "wisefido-health/internal/redis"
	"wisefido-health/internal/repository"
	"wisefido-health/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// SnapshotLoader 启动时加载缓存快照
type SnapshotLoader interface {
	LoadAll(ctx context.Context) ([]models.PersonSnapshot, error)
}

// Lifecycle 需要启动/停止的组件（如 MQTT 缓冲）
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Components 服务组件（测试或宿主直接注入）
type Components struct {
	Coordinator *coordinator.Coordinator
	Matcher     *matcher.Matcher
	Units       repository.UnitsRepository
	Snapshots   SnapshotLoader // 可为 nil
	Background  []Lifecycle
}

// HealthService 健康数据服务
type HealthService struct {
	config *config.Config
	logger *zap.Logger

	coordinator *coordinator.Coordinator
	matcher     *matcher.Matcher
	units       repository.UnitsRepository
	snapshots   SnapshotLoader
	background  []Lifecycle

	// 基础设施（由 NewHealthService 创建时持有）
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttclient.Client

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHealthService 按配置创建健康数据服务
func NewHealthService(cfg *config.Config, logger *zap.Logger) (*HealthService, error) {
	ctx := context.Background()
	s := &HealthService{config: cfg, logger: logger}

	p, err := policy.LoadFile(cfg.Health.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}

	// 初始化数据库（设备样本表或床位表需要）
	if needsDatabase(cfg) {
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.db = db
	}

	// 初始化Redis（快照和事件需要）
	if cfg.Snapshot.Enabled || cfg.Events.Enabled {
		client, err := rediscommon.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			s.closeInfra()
			return nil, err
		}
		s.redisClient = client
	}

	adapters, err := s.buildAdapters(cfg, logger)
	if err != nil {
		s.closeInfra()
		return nil, err
	}

	strategy, err := merge.ParseStrategy(cfg.Health.MergeStrategy)
	if err != nil {
		s.closeInfra()
		return nil, err
	}
	engine, err := merge.NewEngine(strategy, provider.Priorities(adapters), logger)
	if err != nil {
		s.closeInfra()
		return nil, err
	}

	deps := coordinator.Dependencies{
		Adapters:  adapters,
		Engine:    engine,
		Evaluator: evaluator.NewEvaluator(p, logger),
	}
	if cfg.Snapshot.Enabled {
		snapshots := store.NewSnapshotStore(store.NewRedisKV(s.redisClient), cfg.Snapshot.KeyPrefix, cfg.SnapshotTTL(), logger)
		deps.Snapshots = snapshots
		s.snapshots = snapshots
	}
	if cfg.Events.Enabled {
		deps.Publisher = events.NewStreamPublisher(s.redisClient, cfg.Events.AlertStream, cfg.Events.MaxLen, logger)
	}

	coord, err := coordinator.NewCoordinator(coordinator.Config{
		StaleAfter:             cfg.StaleAfter(),
		MaxConcurrentProviders: cfg.Health.MaxConcurrentProviders,
	}, deps, logger)
	if err != nil {
		s.closeInfra()
		return nil, fmt.Errorf("failed to create sync coordinator: %w", err)
	}

	var units repository.UnitsRepository
	switch cfg.Units.Source {
	case config.UnitsSourcePostgres:
		units = repository.NewPostgresUnitsRepo(s.db, logger)
	default:
		units = repository.NewMemoryUnitsRepo(repository.DemoUnits()...)
	}
	if cfg.Units.CacheSeconds > 0 {
		units = repository.NewCachedUnitsRepo(units, time.Duration(cfg.Units.CacheSeconds)*time.Second, logger)
	}

	s.coordinator = coord
	s.matcher = matcher.NewMatcher(p, logger)
	s.units = units

	logger.Info("Health service created",
		zap.String("merge_strategy", string(strategy)),
		zap.Int("providers", len(adapters)),
		zap.Duration("stale_after", cfg.StaleAfter()),
		zap.String("units_source", cfg.Units.Source),
	)
	return s, nil
}

// New 用已创建的组件组装服务
func New(cfg *config.Config, c Components, logger *zap.Logger) (*HealthService, error) {
	if c.Coordinator == nil {
		return nil, errors.New("sync coordinator is required")
	}
	if c.Matcher == nil {
		c.Matcher = matcher.NewMatcher(c.Coordinator.Evaluator().Policy(), logger)
	}
	if c.Units == nil {
		c.Units = repository.NewMemoryUnitsRepo()
	}
	return &HealthService{
		config:      cfg,
		logger:      logger,
		coordinator: c.Coordinator,
		matcher:     c.Matcher,
		units:       c.Units,
		snapshots:   c.Snapshots,
		background:  c.Background,
	}, nil
}

func needsDatabase(cfg *config.Config) bool {
	device := cfg.Providers.Device
	return (device.Enabled && device.Mode == config.DeviceModePostgres) ||
		cfg.Units.Source == config.UnitsSourcePostgres
}

// buildAdapters 按配置创建数据源
func (s *HealthService) buildAdapters(cfg *config.Config, logger *zap.Logger) ([]provider.Adapter, error) {
	var adapters []provider.Adapter

	if cfg.Providers.Clinical.Enabled {
		c := cfg.Providers.Clinical
		adapters = append(adapters, provider.NewClinicalClient(provider.ClinicalConfig{
			BaseURL:    c.BaseURL,
			APIKey:     c.APIKey,
			Priority:   c.Priority,
			Timeout:    time.Duration(c.TimeoutSec) * time.Second,
			RetryCount: c.RetryCount,
		}, logger))
	}

	if cfg.Providers.Device.Enabled {
		d := cfg.Providers.Device
		switch d.Mode {
		case config.DeviceModePostgres:
			adapters = append(adapters, provider.NewDeviceRepository(s.db, d.Priority, d.LookbackDays, d.SampleLimit, logger))
		case config.DeviceModeMQTT:
			client, err := mqttclient.NewClient(&cfg.MQTT, logger)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
			}
			s.mqttClient = client
			buffer := provider.NewWearableBuffer(client, d.MQTTTopic, cfg.MQTT.QoS, d.Priority, d.LookbackDays, d.SampleLimit, logger)
			s.background = append(s.background, buffer)
			adapters = append(adapters, buffer)
		default:
			adapters = append(adapters, provider.NewSimulatedAdapter(models.ProviderDevice, d.Priority, d.LookbackDays))
		}
	}

	if len(adapters) == 0 {
		return nil, coordinator.ErrNoProviders
	}
	return adapters, nil
}

// Start 启动服务
func (s *HealthService) Start(ctx context.Context) error {
	s.logger.Info("Starting health service components")

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	// 恢复缓存快照
	if s.snapshots != nil {
		snaps, err := s.snapshots.LoadAll(ctx)
		if err != nil {
			s.logger.Warn("Failed to load health snapshots", zap.Error(err))
		} else {
			restored := s.coordinator.Restore(snaps)
			s.logger.Info("Health snapshots restored", zap.Int("persons", restored))
		}
	}

	for _, b := range s.background {
		if err := b.Start(runCtx); err != nil {
			cancel()
			return fmt.Errorf("failed to start component: %w", err)
		}
	}

	if s.config != nil && s.config.Health.MetricsReportSeconds > 0 {
		s.wg.Add(1)
		go s.reportMetrics(runCtx, time.Duration(s.config.Health.MetricsReportSeconds)*time.Second)
	}
	if s.config != nil && s.config.Health.ScheduleIntervalMinutes > 0 {
		s.wg.Add(1)
		go s.scheduleRefresh(runCtx, time.Duration(s.config.Health.ScheduleIntervalMinutes)*time.Minute)
	}

	s.logger.Info("Health service started successfully")
	return nil
}

// Stop 停止服务
func (s *HealthService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping health service")

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	for _, b := range s.background {
		if err := b.Stop(ctx); err != nil {
			s.logger.Error("Error stopping component", zap.Error(err))
		}
	}

	s.closeInfra()
	s.logger.Info("Health service stopped")
	return nil
}

func (s *HealthService) closeInfra() {
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
		s.mqttClient = nil
	}
	if s.redisClient != nil {
		if err := rediscommon.Close(s.redisClient); err != nil {
			s.logger.Error("Error closing Redis client", zap.Error(err))
		}
		s.redisClient = nil
	}
	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			s.logger.Error("Error closing database connection", zap.Error(err))
		}
		s.db = nil
	}
}

// reportMetrics 定期报告同步指标
func (s *HealthService) reportMetrics(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logMetrics()
		}
	}
}

func (s *HealthService) logMetrics() {
	m := s.coordinator.Metrics().GetSnapshot()

	completed := m.SyncsSucceeded + m.SyncsPartial + m.SyncsFailed
	successRate := 0.0
	if completed > 0 {
		successRate = float64(m.SyncsSucceeded+m.SyncsPartial) / float64(completed) * 100
	}

	fields := []zap.Field{
		zap.Int64("syncs_started", m.SyncsStarted),
		zap.Int64("syncs_succeeded", m.SyncsSucceeded),
		zap.Int64("syncs_partial", m.SyncsPartial),
		zap.Int64("syncs_failed", m.SyncsFailed),
		zap.Int64("syncs_conflict", m.SyncsConflict),
		zap.Int64("syncs_cached", m.SyncsCached),
		zap.Float64("success_rate", successRate),
		zap.Duration("avg_sync_time", m.AvgSyncTime()),
		zap.Duration("uptime", time.Since(m.StartTime)),
	}
	for kind, n := range m.ProviderFailures {
		fields = append(fields, zap.Int64("failures_"+string(kind), n))
	}
	s.logger.Info("Metrics report", fields...)
}

// scheduleRefresh 定期重新同步缓存过期的人员
func (s *HealthService) scheduleRefresh(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RefreshStale(ctx)
		}
	}
}

// RefreshStale 同步所有缓存过期的人员，返回成功同步的人数
func (s *HealthService) RefreshStale(ctx context.Context) int {
	refreshed := 0
	for _, personID := range s.coordinator.StalePersons() {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.coordinator.Sync(ctx, personID, coordinator.SyncOptions{}); err != nil {
			if !errors.Is(err, coordinator.ErrSyncInProgress) {
				s.logger.Warn("Scheduled refresh failed", zap.String("person_id", personID), zap.Error(err))
			}
			continue
		}
		refreshed++
	}
	if refreshed > 0 {
		s.logger.Info("Scheduled refresh completed", zap.Int("persons", refreshed))
	}
	return refreshed
}
