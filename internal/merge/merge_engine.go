// Package merge 提供多数据源健康样本合并功能
//
// 主要功能：
// - 按 UTC 日期分组：同一人同一天的样本合并为一条记录
// - 合并策略：all / prioritized（默认）/ average / latest
// - 列表字段（用药、病症、过敏）无论哪种策略都取并集去重（忽略大小写和空白）
// - 输出按时间倒序（最新记录在前）
package merge

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"wisefido-health/internal/models"

	"go.uber.org/zap"
)

// ErrUnknownStrategy 未知的合并策略（配置错误，在构造时返回）
var ErrUnknownStrategy = errors.New("unknown merge strategy")

// Strategy 合并策略
type Strategy string

const (
	StrategyAll         Strategy = "all"         // 不合并，每条样本一条记录
	StrategyPrioritized Strategy = "prioritized" // 按数据源优先级逐字段回填
	StrategyAverage     Strategy = "average"     // 数值字段取平均
	StrategyLatest      Strategy = "latest"      // 最新样本整体胜出
)

// ParseStrategy 解析合并策略
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyAll:
		return StrategyAll, nil
	case StrategyPrioritized, "":
		return StrategyPrioritized, nil
	case StrategyAverage:
		return StrategyAverage, nil
	case StrategyLatest:
		return StrategyLatest, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Engine 合并引擎
//
// 合并规则（同一天多条样本时）：
// - all：每条样本单独成为一条记录
// - prioritized：按数据源优先级排序（数值越小优先级越高），优先级最高的样本作为基础，
//   未设置的标量字段依次从低优先级样本回填，先写入者胜出，后续样本不会覆盖
// - average：数值标量取提供了该字段的样本的算术平均，血压收缩压/舒张压分别平均；
//   非数值标量（睡眠质量、紧急标记）按 prioritized 规则回填
// - latest：时间戳最新的样本的标量字段整体胜出
//
// 合并是纯函数：相同输入（含顺序）总是得到相同输出
type Engine struct {
	strategy   Strategy
	priorities map[models.ProviderKind]int
	logger     *zap.Logger
}

// NewEngine 创建合并引擎
func NewEngine(strategy Strategy, priorities map[models.ProviderKind]int, logger *zap.Logger) (*Engine, error) {
	switch strategy {
	case StrategyAll, StrategyPrioritized, StrategyAverage, StrategyLatest:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	p := make(map[models.ProviderKind]int, len(priorities))
	for k, v := range priorities {
		p[k] = v
	}

	return &Engine{
		strategy:   strategy,
		priorities: p,
		logger:     logger,
	}, nil
}

// Strategy 当前合并策略
func (e *Engine) Strategy() Strategy {
	return e.strategy
}

// indexedSample 带输入顺序的样本（用于稳定排序）
type indexedSample struct {
	sample *models.HealthSample
	index  int
}

// Merge 合并一个同步周期内所有数据源返回的样本
func (e *Engine) Merge(samples []models.HealthSample) []models.ConsolidatedRecord {
	if len(samples) == 0 {
		return []models.ConsolidatedRecord{}
	}

	// 1. 按 UTC 日期分组（保持输入顺序）
	groups := make(map[string][]indexedSample)
	var days []string
	for i := range samples {
		day := samples[i].Day()
		if _, ok := groups[day]; !ok {
			days = append(days, day)
		}
		groups[day] = append(groups[day], indexedSample{sample: &samples[i], index: i})
	}

	// 2. 逐日合并
	var records []models.ConsolidatedRecord
	for _, day := range days {
		group := groups[day]
		medications, conditions, allergies := unionGroupLists(group)

		var dayRecords []models.ConsolidatedRecord
		if len(group) == 1 {
			dayRecords = []models.ConsolidatedRecord{e.recordFromSample(day, group[0].sample)}
		} else {
			switch e.strategy {
			case StrategyAll:
				for _, s := range group {
					dayRecords = append(dayRecords, e.recordFromSample(day, s.sample))
				}
			case StrategyPrioritized:
				dayRecords = []models.ConsolidatedRecord{e.mergePrioritized(day, group)}
			case StrategyAverage:
				dayRecords = []models.ConsolidatedRecord{e.mergeAverage(day, group)}
			case StrategyLatest:
				dayRecords = []models.ConsolidatedRecord{e.mergeLatest(day, group)}
			}
		}

		for i := range dayRecords {
			dayRecords[i].Medications = medications
			dayRecords[i].Conditions = conditions
			dayRecords[i].Allergies = allergies
		}
		records = append(records, dayRecords...)
	}

	// 3. 最新记录在前（时间相同时保持原有顺序）
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.After(records[j].Timestamp)
		}
		return records[i].Date > records[j].Date
	})

	e.logger.Debug("Merged health samples",
		zap.String("strategy", string(e.strategy)),
		zap.Int("sample_count", len(samples)),
		zap.Int("day_count", len(days)),
		zap.Int("record_count", len(records)),
	)

	return records
}

// priority 数据源优先级（未配置的数据源优先级最低）
func (e *Engine) priority(kind models.ProviderKind) int {
	if p, ok := e.priorities[kind]; ok {
		return p
	}
	return math.MaxInt32
}

// orderByPriority 按优先级排序：优先级升序，其次时间倒序，最后输入顺序
func (e *Engine) orderByPriority(group []indexedSample) []indexedSample {
	ordered := make([]indexedSample, len(group))
	copy(ordered, group)
	sort.SliceStable(ordered, func(i, j int) bool {
		pi, pj := e.priority(ordered[i].sample.Source), e.priority(ordered[j].sample.Source)
		if pi != pj {
			return pi < pj
		}
		ti, tj := ordered[i].sample.Timestamp, ordered[j].sample.Timestamp
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return ordered[i].index < ordered[j].index
	})
	return ordered
}

// recordFromSample 单条样本直接成为记录
func (e *Engine) recordFromSample(day string, s *models.HealthSample) models.ConsolidatedRecord {
	rec := models.ConsolidatedRecord{
		PersonID:  s.PersonID,
		Date:      day,
		Timestamp: s.Timestamp,
		Sources:   []models.ProviderKind{s.Source},
	}
	fillScalars(&rec.HealthFields, &s.HealthFields)
	return rec
}

// mergePrioritized 按优先级逐字段回填
func (e *Engine) mergePrioritized(day string, group []indexedSample) models.ConsolidatedRecord {
	ordered := e.orderByPriority(group)

	rec := e.recordFromSample(day, ordered[0].sample)
	for _, s := range ordered[1:] {
		fillScalars(&rec.HealthFields, &s.sample.HealthFields)
	}

	rec.Timestamp = latestTimestamp(group)
	rec.Sources = e.sources(group)
	return rec
}

// mergeLatest 最新样本整体胜出（时间相同时优先级高者胜出）
func (e *Engine) mergeLatest(day string, group []indexedSample) models.ConsolidatedRecord {
	winner := group[0]
	for _, s := range group[1:] {
		if s.sample.Timestamp.After(winner.sample.Timestamp) {
			winner = s
			continue
		}
		if s.sample.Timestamp.Equal(winner.sample.Timestamp) &&
			e.priority(s.sample.Source) < e.priority(winner.sample.Source) {
			winner = s
		}
	}

	rec := e.recordFromSample(day, winner.sample)
	rec.Sources = e.sources(group)
	return rec
}

// mergeAverage 数值字段取平均
func (e *Engine) mergeAverage(day string, group []indexedSample) models.ConsolidatedRecord {
	ordered := e.orderByPriority(group)

	rec := models.ConsolidatedRecord{
		PersonID:  ordered[0].sample.PersonID,
		Date:      day,
		Timestamp: latestTimestamp(group),
		Sources:   e.sources(group),
	}

	f := &rec.HealthFields
	f.HeartRate = averageOf(group, func(h *models.HealthFields) *float64 { return h.HeartRate })
	f.Temperature = averageOf(group, func(h *models.HealthFields) *float64 { return h.Temperature })
	f.OxygenSaturation = averageOf(group, func(h *models.HealthFields) *float64 { return h.OxygenSaturation })
	f.RespiratoryRate = averageOf(group, func(h *models.HealthFields) *float64 { return h.RespiratoryRate })
	f.Weight = averageOf(group, func(h *models.HealthFields) *float64 { return h.Weight })
	f.Height = averageOf(group, func(h *models.HealthFields) *float64 { return h.Height })
	f.SleepHours = averageOf(group, func(h *models.HealthFields) *float64 { return h.SleepHours })
	f.StressLevel = averageOf(group, func(h *models.HealthFields) *float64 { return h.StressLevel })
	f.MoodScore = averageOf(group, func(h *models.HealthFields) *float64 { return h.MoodScore })
	f.AnxietyLevel = averageOf(group, func(h *models.HealthFields) *float64 { return h.AnxietyLevel })

	// 血压：收缩压/舒张压分别平均
	var sys, dia float64
	var bpCount int
	var steps, stepsCount int
	for _, s := range group {
		if bp := s.sample.BloodPressure; bp != nil {
			sys += bp.Systolic
			dia += bp.Diastolic
			bpCount++
		}
		if s.sample.Steps != nil {
			steps += *s.sample.Steps
			stepsCount++
		}
	}
	if bpCount > 0 {
		f.BloodPressure = &models.BloodPressure{
			Systolic:  sys / float64(bpCount),
			Diastolic: dia / float64(bpCount),
		}
	}
	if stepsCount > 0 {
		avg := int(math.Round(float64(steps) / float64(stepsCount)))
		f.Steps = &avg
	}

	// 非数值字段按优先级回填
	for _, s := range ordered {
		if f.SleepQuality == nil && s.sample.SleepQuality != nil {
			q := *s.sample.SleepQuality
			f.SleepQuality = &q
		}
		if f.EmergencyCondition == nil && s.sample.EmergencyCondition != nil {
			v := *s.sample.EmergencyCondition
			f.EmergencyCondition = &v
		}
	}

	return rec
}

// sources 参与合并的数据源（去重，按优先级排序）
func (e *Engine) sources(group []indexedSample) []models.ProviderKind {
	seen := make(map[models.ProviderKind]bool)
	var out []models.ProviderKind
	for _, s := range group {
		if !seen[s.sample.Source] {
			seen[s.sample.Source] = true
			out = append(out, s.sample.Source)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := e.priority(out[i]), e.priority(out[j])
		if pi != pj {
			return pi < pj
		}
		return out[i] < out[j]
	})
	return out
}

func latestTimestamp(group []indexedSample) time.Time {
	var latest time.Time
	for _, s := range group {
		if s.sample.Timestamp.After(latest) {
			latest = s.sample.Timestamp
		}
	}
	return latest
}

func averageOf(group []indexedSample, get func(*models.HealthFields) *float64) *float64 {
	var sum float64
	var n int
	for _, s := range group {
		if v := get(&s.sample.HealthFields); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// fillScalars 把 src 中 dst 未设置的标量字段写入 dst（先写入者胜出）
// 值被复制，记录不与样本共享指针
func fillScalars(dst, src *models.HealthFields) {
	fillFloat(&dst.HeartRate, src.HeartRate)
	if dst.BloodPressure == nil && src.BloodPressure != nil {
		bp := *src.BloodPressure
		dst.BloodPressure = &bp
	}
	fillFloat(&dst.Temperature, src.Temperature)
	fillFloat(&dst.OxygenSaturation, src.OxygenSaturation)
	fillFloat(&dst.RespiratoryRate, src.RespiratoryRate)
	fillFloat(&dst.Weight, src.Weight)
	fillFloat(&dst.Height, src.Height)
	if dst.Steps == nil && src.Steps != nil {
		v := *src.Steps
		dst.Steps = &v
	}
	fillFloat(&dst.SleepHours, src.SleepHours)
	if dst.SleepQuality == nil && src.SleepQuality != nil {
		q := *src.SleepQuality
		dst.SleepQuality = &q
	}
	fillFloat(&dst.StressLevel, src.StressLevel)
	fillFloat(&dst.MoodScore, src.MoodScore)
	fillFloat(&dst.AnxietyLevel, src.AnxietyLevel)
	if dst.EmergencyCondition == nil && src.EmergencyCondition != nil {
		v := *src.EmergencyCondition
		dst.EmergencyCondition = &v
	}
}

func fillFloat(dst **float64, src *float64) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}

func unionGroupLists(group []indexedSample) (medications, conditions, allergies []string) {
	var meds, conds, alls [][]string
	for _, s := range group {
		meds = append(meds, s.sample.Medications)
		conds = append(conds, s.sample.Conditions)
		alls = append(alls, s.sample.Allergies)
	}
	return UnionStrings(meds...), UnionStrings(conds...), UnionStrings(alls...)
}

// UnionStrings 多个列表取并集去重
// 比较时忽略大小写并压缩空白；结果与输入顺序无关（按规范化键排序，
// 同一键的多种写法取字典序最小者）
func UnionStrings(lists ...[]string) []string {
	chosen := make(map[string]string)
	for _, list := range lists {
		for _, item := range list {
			display := strings.Join(strings.Fields(item), " ")
			if display == "" {
				continue
			}
			key := strings.ToLower(display)
			if existing, ok := chosen[key]; !ok || display < existing {
				chosen[key] = display
			}
		}
	}
	if len(chosen) == 0 {
		return nil
	}

	keys := make([]string, 0, len(chosen))
	for k := range chosen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, chosen[k])
	}
	return out
}
