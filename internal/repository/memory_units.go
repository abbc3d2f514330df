package repository

import (
	"context"
	"sync"

	"wisefido-health/internal/models"
)

// MemoryUnitsRepo 内存床位仓库（DB 未就绪时联测 / 演示使用）
type MemoryUnitsRepo struct {
	mu    sync.RWMutex
	units map[string]models.ResourceUnit
	order []string
}

// NewMemoryUnitsRepo 创建内存床位仓库
func NewMemoryUnitsRepo(units ...models.ResourceUnit) *MemoryUnitsRepo {
	r := &MemoryUnitsRepo{units: map[string]models.ResourceUnit{}}
	for _, u := range units {
		r.UpsertUnit(u)
	}
	return r
}

// UpsertUnit 新增或替换床位（保持首次插入顺序）
func (r *MemoryUnitsRepo) UpsertUnit(u models.ResourceUnit) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.units[u.ID]; !ok {
		r.order = append(r.order, u.ID)
	}
	r.units[u.ID] = u
}

// DeleteUnit 删除床位
func (r *MemoryUnitsRepo) DeleteUnit(unitID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.units[unitID]; !ok {
		return
	}
	delete(r.units, unitID)
	for i, id := range r.order {
		if id == unitID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *MemoryUnitsRepo) ListUnits(_ context.Context) ([]models.ResourceUnit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ResourceUnit, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.units[id])
	}
	return out, nil
}

func (r *MemoryUnitsRepo) GetUnit(_ context.Context, unitID string) (*models.ResourceUnit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.units[unitID]
	if !ok {
		return nil, ErrUnitNotFound
	}
	return &u, nil
}

// DemoUnits 演示床位
func DemoUnits() []models.ResourceUnit {
	return []models.ResourceUnit{
		{ID: "bed-101", Name: "Dorm A-101", Type: models.UnitStandard, Capacity: 1, Active: true},
		{ID: "bed-102", Name: "Dorm A-102", Type: models.UnitStandard, Capacity: 1, Active: true,
			Amenities: models.Amenities{QuietZone: true, TemperatureControl: true}},
		{ID: "bed-201", Name: "Accessible B-201", Type: models.UnitAccessible, Capacity: 1, Active: true,
			Amenities: models.Amenities{Accessibility: true, StaffProximity: true, EmergencyAlert: true}},
		{ID: "bed-301", Name: "Medical C-301", Type: models.UnitMedical, Capacity: 1, MedicalCapacity: 1, Active: true,
			Amenities: models.Amenities{MedicalSupport: true, StaffProximity: true, EmergencyAlert: true,
				MedicationStorage: true, TemperatureControl: true}},
		{ID: "bed-401", Name: "Isolation D-401", Type: models.UnitIsolation, Capacity: 1, Active: true,
			Amenities: models.Amenities{QuietZone: true, TemperatureControl: true}},
		{ID: "bed-402", Name: "Isolation D-402", Type: models.UnitIsolation, Capacity: 1, Active: true, Maintenance: true,
			Amenities: models.Amenities{QuietZone: true}},
	}
}
