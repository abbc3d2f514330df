// Package coordinator 同步协调器
//
// 负责按人调度各数据源、合并样本、重新评估，并维护进程内的健康缓存：
// - 同一人同一时刻只允许一次同步，第二次请求立即返回 ErrSyncInProgress（不排队）
// - 不同人的同步互不阻塞
// - 所有数据源都失败时保留上一次的缓存，状态置为 error
// - 读取时数据超过 StaleAfter 会触发一次隐式同步
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"wisefido-health/internal/evaluator"
	"wisefido-health/internal/events"
	"wisefido-health/internal/merge"
	"wisefido-health/internal/models"
	"wisefido-health/internal/provider"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrSyncInProgress 该人员的同步正在进行
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrAllProvidersFailed 所有数据源都失败
	ErrAllProvidersFailed = errors.New("all providers failed")
	// ErrUnknownPerson 缓存中没有该人员
	ErrUnknownPerson = errors.New("unknown person")
	// ErrAlertNotFound 报警不存在
	ErrAlertNotFound = errors.New("alert not found")
	// ErrNoProviders 没有可用的数据源
	ErrNoProviders = errors.New("no providers configured")
)

// SnapshotStore 缓存快照持久化（可选）
type SnapshotStore interface {
	Save(ctx context.Context, snap models.PersonSnapshot) error
	Delete(ctx context.Context, personID string) error
}

// Config 协调器配置
type Config struct {
	StaleAfter             time.Duration // 缓存过期时间
	MaxConcurrentProviders int           // 单次同步内并发调用的数据源数
}

// Dependencies 协调器依赖
type Dependencies struct {
	Adapters  []provider.Adapter
	Engine    *merge.Engine
	Evaluator *evaluator.Evaluator
	Snapshots SnapshotStore    // 可为 nil
	Publisher events.Publisher // 可为 nil
}

// SyncOptions 同步选项
type SyncOptions struct {
	Sources   []models.ProviderKind // 为空表示全部数据源
	ForceSync bool                  // 忽略缓存新鲜度
}

// GetOptions 查询选项
type GetOptions struct {
	IncludeAlerts bool
	DateRange     *models.DateRange
	Sources       []models.ProviderKind
}

// personEntry 一个人的缓存
type personEntry struct {
	mu          sync.Mutex
	state       models.SyncState
	records     []models.ConsolidatedRecord
	alerts      []models.HealthAlert
	criteria    models.AccommodationCriteria
	score       models.HealthScore
	lastResults []models.SyncResult
	version     uint64 // 每次需要落盘的修改 +1

	persistMu sync.Mutex // 串行化同一人的快照写入/删除
	persisted uint64     // 已落盘的最新 version
}

// Coordinator 同步协调器
type Coordinator struct {
	cfg       Config
	adapters  []provider.Adapter
	engine    *merge.Engine
	evaluator *evaluator.Evaluator
	snapshots SnapshotStore
	publisher events.Publisher
	persons   sync.Map // person_id -> *personEntry
	metrics   *Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewCoordinator 创建同步协调器
func NewCoordinator(cfg Config, deps Dependencies, logger *zap.Logger) (*Coordinator, error) {
	if len(deps.Adapters) == 0 {
		return nil, ErrNoProviders
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("merge engine is required")
	}
	if deps.Evaluator == nil {
		deps.Evaluator = evaluator.NewEvaluator(nil, logger)
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NoopPublisher{}
	}
	if cfg.MaxConcurrentProviders <= 0 {
		cfg.MaxConcurrentProviders = len(deps.Adapters)
	}

	return &Coordinator{
		cfg:       cfg,
		adapters:  deps.Adapters,
		engine:    deps.Engine,
		evaluator: deps.Evaluator,
		snapshots: deps.Snapshots,
		publisher: deps.Publisher,
		metrics:   NewMetrics(),
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Metrics 同步指标
func (c *Coordinator) Metrics() *Metrics {
	return c.metrics
}

// Evaluator 评估器
func (c *Coordinator) Evaluator() *evaluator.Evaluator {
	return c.evaluator
}

func (c *Coordinator) entry(personID string) *personEntry {
	if v, ok := c.persons.Load(personID); ok {
		return v.(*personEntry)
	}
	v, _ := c.persons.LoadOrStore(personID, c.newEntry(personID))
	return v.(*personEntry)
}

func (c *Coordinator) newEntry(personID string) *personEntry {
	return &personEntry{
		state:    models.SyncState{PersonID: personID, Status: models.SyncNever},
		criteria: models.DefaultCriteria(),
		score:    c.evaluator.Score(nil),
	}
}

func (c *Coordinator) lookup(personID string) (*personEntry, bool) {
	v, ok := c.persons.Load(personID)
	if !ok {
		return nil, false
	}
	return v.(*personEntry), true
}

// fresh 缓存是否在有效期内
func (c *Coordinator) fresh(state *models.SyncState) bool {
	return state.LastSync != nil && c.now().Sub(*state.LastSync) < c.cfg.StaleAfter
}

func (c *Coordinator) selectAdapters(sources []models.ProviderKind) []provider.Adapter {
	if len(sources) == 0 {
		return c.adapters
	}
	out := make([]provider.Adapter, 0, len(c.adapters))
	for _, a := range c.adapters {
		for _, s := range sources {
			if a.Kind() == s {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// Sync 同步某人的健康数据
//
// 返回每个数据源的同步结果。正在同步时返回 ErrSyncInProgress；
// 所有数据源都失败时返回结果和 ErrAllProvidersFailed，缓存保持不变
func (c *Coordinator) Sync(ctx context.Context, personID string, opts SyncOptions) ([]models.SyncResult, error) {
	if personID == "" {
		return nil, fmt.Errorf("person id is required")
	}
	adapters := c.selectAdapters(opts.Sources)
	if len(adapters) == 0 {
		return nil, fmt.Errorf("%w for sources %v", ErrNoProviders, opts.Sources)
	}

	e := c.entry(personID)

	e.mu.Lock()
	if e.state.Status == models.SyncSyncing {
		e.mu.Unlock()
		c.metrics.IncrementConflict()
		c.logger.Warn("Sync rejected, already in progress", zap.String("person_id", personID))
		return nil, ErrSyncInProgress
	}
	// 指定数据源时总是重新拉取，上一次结果可能来自不同的数据源组合
	if !opts.ForceSync && len(opts.Sources) == 0 && e.state.Status == models.SyncSynced && c.fresh(&e.state) {
		results := append([]models.SyncResult{}, e.lastResults...)
		e.mu.Unlock()
		c.metrics.IncrementCached()
		return results, nil
	}
	e.state.Status = models.SyncSyncing
	e.state.Pending = true
	e.mu.Unlock()

	c.metrics.IncrementStarted()
	started := c.now()

	// 同步一旦开始就执行到结束，不随调用方取消
	runCtx := context.WithoutCancel(ctx)
	results, samples := c.fetchAll(runCtx, personID, adapters)
	duration := c.now().Sub(started)
	c.metrics.RecordCompletion(results, duration)

	var failures []string
	for _, r := range results {
		if !r.Success {
			failures = append(failures, fmt.Sprintf("%s: %s", r.Source, r.Error))
		}
	}

	if len(failures) == len(results) {
		return results, c.commitFailure(runCtx, e, results, failures)
	}

	records := c.engine.Merge(samples)
	eval := c.evaluator.Evaluate(personID, evaluator.Latest(records))

	e.mu.Lock()
	merged, added := evaluator.MergeAlerts(e.alerts, eval.Alerts)
	now := c.now().UTC()
	e.records = records
	e.alerts = merged
	e.criteria = eval.Criteria
	e.score = eval.Score
	e.lastResults = results
	e.state.Status = models.SyncSynced
	e.state.Pending = false
	e.state.LastSync = &now
	e.state.RecordCount = len(records)
	e.state.LastError = strings.Join(failures, "; ")
	state := e.state
	snap := e.snapshotLocked(now)
	e.version++
	version := e.version
	e.mu.Unlock()

	c.logger.Info("Sync completed",
		zap.String("person_id", personID),
		zap.Int("records", len(records)),
		zap.Int("alerts_added", len(added)),
		zap.Int("failed_providers", len(failures)),
		zap.Duration("duration", duration),
	)

	c.saveSnapshot(runCtx, e, version, snap)
	if len(added) > 0 {
		if err := c.publisher.PublishAlerts(runCtx, added); err != nil {
			c.logger.Warn("Failed to publish alerts", zap.String("person_id", personID), zap.Error(err))
		}
	}
	if err := c.publisher.PublishSync(runCtx, state, results); err != nil {
		c.logger.Warn("Failed to publish sync event", zap.String("person_id", personID), zap.Error(err))
	}

	return results, nil
}

// fetchAll 并发调用所有数据源，全部返回后才进入合并
func (c *Coordinator) fetchAll(ctx context.Context, personID string, adapters []provider.Adapter) ([]models.SyncResult, []models.HealthSample) {
	results := make([]models.SyncResult, len(adapters))
	perSource := make([][]models.HealthSample, len(adapters))

	g := new(errgroup.Group)
	g.SetLimit(c.cfg.MaxConcurrentProviders)

	for i, a := range adapters {
		i, a := i, a
		g.Go(func() error {
			samples, err := a.FetchSamples(ctx, personID)
			result := models.SyncResult{
				Source:    a.Kind(),
				Timestamp: c.now().UTC(),
			}
			if err != nil {
				result.Error = err.Error()
				c.logger.Warn("Provider fetch failed",
					zap.String("person_id", personID),
					zap.String("source", string(a.Kind())),
					zap.Error(err),
				)
				results[i] = result
				return nil
			}
			// 数据源返回的切片可能被共享，复制后再写入人员和来源
			owned := make([]models.HealthSample, len(samples))
			for j := range samples {
				s := samples[j]
				s.PersonID = personID
				if s.Source == "" {
					s.Source = a.Kind()
				}
				owned[j] = s
			}
			result.Success = true
			result.RecordCount = len(owned)
			results[i] = result
			perSource[i] = owned
			return nil
		})
	}
	// 每个 goroutine 都返回 nil，失败记录在 results 中
	_ = g.Wait()

	var all []models.HealthSample
	for _, s := range perSource {
		all = append(all, s...)
	}
	return results, all
}

func (c *Coordinator) commitFailure(ctx context.Context, e *personEntry, results []models.SyncResult, failures []string) error {
	msg := strings.Join(failures, "; ")

	e.mu.Lock()
	e.state.Status = models.SyncError
	e.state.Pending = false
	e.state.LastError = msg
	e.lastResults = results
	state := e.state
	e.mu.Unlock()

	c.logger.Error("Sync failed, keeping cached records",
		zap.String("person_id", state.PersonID),
		zap.Int("cached_records", state.RecordCount),
		zap.String("error", msg),
	)

	if err := c.publisher.PublishSync(ctx, state, results); err != nil {
		c.logger.Warn("Failed to publish sync event", zap.String("person_id", state.PersonID), zap.Error(err))
	}
	return fmt.Errorf("%w: %s", ErrAllProvidersFailed, msg)
}

func (e *personEntry) snapshotLocked(at time.Time) models.PersonSnapshot {
	return models.PersonSnapshot{
		State:   e.state,
		Records: append([]models.ConsolidatedRecord{}, e.records...),
		Alerts:  append([]models.HealthAlert{}, e.alerts...),
		SavedAt: at,
	}
}

// persist 按 version 顺序执行快照写入/删除
// 比已落盘版本旧的操作直接丢弃，避免旧快照覆盖新确认或复活已清空的缓存
func (c *Coordinator) persist(ctx context.Context, e *personEntry, version uint64, op func(context.Context) error) (bool, error) {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	if version <= e.persisted {
		return false, nil
	}
	if err := op(ctx); err != nil {
		return false, err
	}
	e.persisted = version
	return true, nil
}

func (c *Coordinator) saveSnapshot(ctx context.Context, e *personEntry, version uint64, snap models.PersonSnapshot) {
	if c.snapshots == nil {
		return
	}
	written, err := c.persist(ctx, e, version, func(ctx context.Context) error {
		return c.snapshots.Save(ctx, snap)
	})
	if err != nil {
		c.logger.Warn("Failed to save snapshot", zap.String("person_id", snap.State.PersonID), zap.Error(err))
		return
	}
	if !written {
		c.logger.Debug("Skipped outdated snapshot",
			zap.String("person_id", snap.State.PersonID),
			zap.Uint64("version", version),
		)
	}
}

// ensureFresh 缓存过期或从未同步时触发隐式同步
// 同步失败或冲突时继续使用缓存
func (c *Coordinator) ensureFresh(ctx context.Context, personID string) {
	e := c.entry(personID)

	e.mu.Lock()
	need := e.state.Status != models.SyncSyncing && !c.fresh(&e.state)
	e.mu.Unlock()
	if !need {
		return
	}

	if _, err := c.Sync(ctx, personID, SyncOptions{}); err != nil {
		c.logger.Warn("Implicit sync failed, serving cached data",
			zap.String("person_id", personID),
			zap.Error(err),
		)
	}
}

// GetHealthData 查询某人的健康汇总视图（必要时隐式同步）
func (c *Coordinator) GetHealthData(ctx context.Context, personID string, opts GetOptions) (*models.ConsolidatedHealthView, error) {
	if personID == "" {
		return nil, fmt.Errorf("person id is required")
	}
	c.ensureFresh(ctx, personID)

	e := c.entry(personID)
	e.mu.Lock()
	defer e.mu.Unlock()

	records := make([]models.ConsolidatedRecord, 0, len(e.records))
	seen := make(map[models.ProviderKind]bool)
	for i := range e.records {
		r := &e.records[i]
		if !opts.DateRange.Contains(r.Timestamp) || !hasAnySource(r, opts.Sources) {
			continue
		}
		records = append(records, *r)
		for _, s := range r.Sources {
			seen[s] = true
		}
	}

	sources := make([]models.ProviderKind, 0, len(seen))
	for s := range seen {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	view := &models.ConsolidatedHealthView{
		PersonID:   personID,
		Records:    records,
		Score:      e.score.Score,
		RiskLevel:  e.score.RiskLevel,
		Criteria:   e.criteria,
		SyncStatus: e.state,
		Sources:    sources,
	}
	if opts.IncludeAlerts {
		view.Alerts = append([]models.HealthAlert{}, e.alerts...)
	}
	return view, nil
}

func hasAnySource(r *models.ConsolidatedRecord, sources []models.ProviderKind) bool {
	if len(sources) == 0 {
		return true
	}
	for _, s := range sources {
		if r.HasSource(s) {
			return true
		}
	}
	return false
}

// Profile 某人的匹配画像（必要时隐式同步）
func (c *Coordinator) Profile(ctx context.Context, personID string) (*models.HealthProfile, []models.HealthAlert, error) {
	if personID == "" {
		return nil, nil, fmt.Errorf("person id is required")
	}
	c.ensureFresh(ctx, personID)

	e := c.entry(personID)
	e.mu.Lock()
	defer e.mu.Unlock()

	profile := &models.HealthProfile{
		Criteria: e.criteria,
		Score:    e.score,
	}
	if latest := evaluator.Latest(e.records); latest != nil {
		rec := *latest
		profile.Record = &rec
	}
	return profile, append([]models.HealthAlert{}, e.alerts...), nil
}

// Alerts 查询缓存中的报警（不触发同步）
func (c *Coordinator) Alerts(personID string, filter models.AlertFilter) []models.HealthAlert {
	e, ok := c.lookup(personID)
	if !ok {
		return []models.HealthAlert{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return evaluator.FilterAlerts(e.alerts, filter)
}

// AcknowledgeAlert 确认报警（已确认的报警保持原确认信息）
func (c *Coordinator) AcknowledgeAlert(ctx context.Context, personID, alertID, by string) (*models.HealthAlert, error) {
	e, ok := c.lookup(personID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPerson, personID)
	}

	e.mu.Lock()
	idx := -1
	for i := range e.alerts {
		if e.alerts[i].ID == alertID {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlertNotFound, alertID)
	}

	alert := &e.alerts[idx]
	if alert.Acknowledged {
		out := *alert
		e.mu.Unlock()
		return &out, nil
	}

	now := c.now().UTC()
	alert.Acknowledged = true
	alert.AcknowledgedBy = by
	alert.AcknowledgedAt = &now
	out := *alert
	snap := e.snapshotLocked(now)
	e.version++
	version := e.version
	e.mu.Unlock()

	c.logger.Info("Alert acknowledged",
		zap.String("person_id", personID),
		zap.String("alert_id", alertID),
		zap.String("acknowledged_by", by),
	)
	c.saveSnapshot(context.WithoutCancel(ctx), e, version, snap)
	return &out, nil
}

// ClearCache 清空某人的缓存，状态回到 never_synced
func (c *Coordinator) ClearCache(ctx context.Context, personID string) error {
	e, ok := c.lookup(personID)
	var version uint64
	if ok {
		e.mu.Lock()
		if e.state.Status == models.SyncSyncing {
			e.mu.Unlock()
			return ErrSyncInProgress
		}
		fresh := c.newEntry(personID)
		e.state = fresh.state
		e.records = nil
		e.alerts = nil
		e.criteria = fresh.criteria
		e.score = fresh.score
		e.lastResults = nil
		e.version++
		version = e.version
		e.mu.Unlock()
	}

	if c.snapshots != nil {
		del := func(ctx context.Context) error { return c.snapshots.Delete(ctx, personID) }
		var err error
		if ok {
			_, err = c.persist(ctx, e, version, del)
		} else {
			err = del(ctx)
		}
		if err != nil {
			return fmt.Errorf("failed to delete snapshot: %w", err)
		}
	}
	c.logger.Info("Health cache cleared", zap.String("person_id", personID))
	return nil
}

// Restore 从快照恢复缓存，已有数据的人员不覆盖，返回恢复的人数
func (c *Coordinator) Restore(snapshots []models.PersonSnapshot) int {
	restored := 0
	for i := range snapshots {
		snap := &snapshots[i]
		personID := snap.State.PersonID
		if personID == "" {
			continue
		}

		e := c.entry(personID)
		e.mu.Lock()
		if e.state.Status != models.SyncNever {
			e.mu.Unlock()
			continue
		}

		state := snap.State
		state.Pending = false
		if state.Status == models.SyncSyncing || state.Status == "" {
			// 保存时正在同步，按上次是否成功恢复
			state.Status = models.SyncError
			if state.LastSync != nil {
				state.Status = models.SyncSynced
			}
		}
		eval := c.evaluator.Evaluate(personID, evaluator.Latest(snap.Records))

		e.state = state
		e.state.RecordCount = len(snap.Records)
		e.records = append([]models.ConsolidatedRecord{}, snap.Records...)
		e.alerts = append([]models.HealthAlert{}, snap.Alerts...)
		e.criteria = eval.Criteria
		e.score = eval.Score
		e.mu.Unlock()
		restored++
	}
	return restored
}

// State 某人的同步状态
func (c *Coordinator) State(personID string) (models.SyncState, bool) {
	e, ok := c.lookup(personID)
	if !ok {
		return models.SyncState{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, true
}

// KnownPersons 缓存中的所有人员（排序）
func (c *Coordinator) KnownPersons() []string {
	var ids []string
	c.persons.Range(func(key, _ any) bool {
		ids = append(ids, key.(string))
		return true
	})
	sort.Strings(ids)
	return ids
}

// StalePersons 已同步过且缓存过期的人员（不含正在同步和已清空的）
func (c *Coordinator) StalePersons() []string {
	var ids []string
	c.persons.Range(func(key, value any) bool {
		e := value.(*personEntry)
		e.mu.Lock()
		status := e.state.Status
		stale := !c.fresh(&e.state)
		e.mu.Unlock()
		if stale && (status == models.SyncSynced || status == models.SyncError) {
			ids = append(ids, key.(string))
		}
		return true
	})
	sort.Strings(ids)
	return ids
}
