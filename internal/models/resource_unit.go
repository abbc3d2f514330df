package models

// UnitType 床位类型
type UnitType string

const (
	UnitStandard   UnitType = "standard"
	UnitMedical    UnitType = "medical"
	UnitAccessible UnitType = "accessible"
	UnitIsolation  UnitType = "isolation"
)

// Amenities 床位设施
type Amenities struct {
	Accessibility      bool `json:"accessibility"`
	MedicalSupport     bool `json:"medical_support"`
	QuietZone          bool `json:"quiet_zone"`
	StaffProximity     bool `json:"staff_proximity"`
	TemperatureControl bool `json:"temperature_control"`
	MedicationStorage  bool `json:"medication_storage"`
	EmergencyAlert     bool `json:"emergency_alert"`
}

// ResourceUnit 床位资源（外部管理，引擎只读）
type ResourceUnit struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Type            UnitType  `json:"type"`
	Capacity        int       `json:"capacity"`
	MedicalCapacity int       `json:"medical_capacity"` // 医疗占用上限
	Amenities       Amenities `json:"amenities"`
	Active          bool      `json:"active"`
	Maintenance     bool      `json:"maintenance"`
}

// Available 床位是否可用于匹配
func (u *ResourceUnit) Available() bool {
	return u.Active && !u.Maintenance
}

// MatchResult 床位匹配结果（每次请求重新计算，不持久化）
type MatchResult struct {
	Unit     ResourceUnit `json:"unit"`
	Score    int          `json:"score"` // 0-100
	Reasons  []string     `json:"reasons"`
	Concerns []string     `json:"concerns"`
}

// HealthProfile 床位匹配使用的健康画像
// Record 为 nil 时只按 Criteria 匹配
type HealthProfile struct {
	Criteria AccommodationCriteria `json:"criteria"`
	Record   *ConsolidatedRecord   `json:"record,omitempty"`
	Score    HealthScore           `json:"score"`
}

// Empty 画像中没有任何健康信息
func (p *HealthProfile) Empty() bool {
	return p == nil || (p.Record == nil && p.Criteria.IsDefault())
}
