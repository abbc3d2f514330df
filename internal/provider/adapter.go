// Package provider 健康数据源适配器
//
// 每个数据源实现 Adapter 接口，引擎只依赖接口：
// - ClinicalClient：临床记录系统（HTTP）
// - DeviceRepository：可穿戴设备样本表（PostgreSQL）
// - WearableBuffer：可穿戴设备 MQTT 推送缓冲
// - SimulatedAdapter：演示数据
// - FuncAdapter：宿主或测试提供的函数
//
// 超时由适配器自己负责，引擎把超时当作普通的数据源失败
package provider

import (
	"context"
	"fmt"

	"wisefido-health/internal/models"
)

// Adapter 健康数据源
type Adapter interface {
	// Kind 数据源类型
	Kind() models.ProviderKind
	// Priority 优先级（数值越小优先级越高）
	Priority() int
	// FetchSamples 获取某人的健康样本
	FetchSamples(ctx context.Context, personID string) ([]models.HealthSample, error)
}

// FetchFunc 样本获取函数
type FetchFunc func(ctx context.Context, personID string) ([]models.HealthSample, error)

// FuncAdapter 用函数实现的数据源
type FuncAdapter struct {
	kind     models.ProviderKind
	priority int
	fetch    FetchFunc
}

// NewFuncAdapter 创建函数数据源
func NewFuncAdapter(kind models.ProviderKind, priority int, fetch FetchFunc) *FuncAdapter {
	return &FuncAdapter{kind: kind, priority: priority, fetch: fetch}
}

func (a *FuncAdapter) Kind() models.ProviderKind { return a.kind }

func (a *FuncAdapter) Priority() int { return a.priority }

func (a *FuncAdapter) FetchSamples(ctx context.Context, personID string) ([]models.HealthSample, error) {
	if a.fetch == nil {
		return nil, fmt.Errorf("provider %s has no fetch function", a.kind)
	}
	return a.fetch(ctx, personID)
}

// Priorities 数据源优先级表
func Priorities(adapters []Adapter) map[models.ProviderKind]int {
	out := make(map[models.ProviderKind]int, len(adapters))
	for _, a := range adapters {
		out[a.Kind()] = a.Priority()
	}
	return out
}

// stampSamples 补齐样本的人员 ID 和来源
func stampSamples(samples []models.HealthSample, personID string, kind models.ProviderKind) []models.HealthSample {
	for i := range samples {
		samples[i].PersonID = personID
		samples[i].Source = kind
	}
	return samples
}
