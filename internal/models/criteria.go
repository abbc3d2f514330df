package models

// TemperatureRegulation 温度调节需求
type TemperatureRegulation string

const (
	TemperatureStandard TemperatureRegulation = "standard"
	TemperatureCool     TemperatureRegulation = "cool"
	TemperatureWarm     TemperatureRegulation = "warm"
)

// AccommodationCriteria 安置需求（由最新合并记录推导，不单独存储）
type AccommodationCriteria struct {
	RequiresMedicalSupervision bool                  `json:"requires_medical_supervision"`
	NeedsAccessibility         bool                  `json:"needs_accessibility"`
	RequiresQuietEnvironment   bool                  `json:"requires_quiet_environment"`
	NeedsStaffProximity        bool                  `json:"needs_staff_proximity"`
	TemperatureRegulation      TemperatureRegulation `json:"temperature_regulation"`
	NeedsMobilityAssistance    bool                  `json:"needs_mobility_assistance"`
	NeedsMedicationReminders   bool                  `json:"needs_medication_reminders"`
	NeedsEmergencyMonitoring   bool                  `json:"needs_emergency_monitoring"`
}

// DefaultCriteria 无健康数据时的默认需求（全部为 false）
func DefaultCriteria() AccommodationCriteria {
	return AccommodationCriteria{TemperatureRegulation: TemperatureStandard}
}

// IsDefault 是否没有任何特殊需求
func (c AccommodationCriteria) IsDefault() bool {
	return !c.RequiresMedicalSupervision &&
		!c.NeedsAccessibility &&
		!c.RequiresQuietEnvironment &&
		!c.NeedsStaffProximity &&
		!c.NeedsMobilityAssistance &&
		!c.NeedsMedicationReminders &&
		!c.NeedsEmergencyMonitoring &&
		!c.NonStandardTemperature()
}

// NonStandardTemperature 是否需要非标准温度调节
func (c AccommodationCriteria) NonStandardTemperature() bool {
	return c.TemperatureRegulation != "" && c.TemperatureRegulation != TemperatureStandard
}

// RiskLevel 健康风险等级
type RiskLevel string

const (
	RiskUnknown  RiskLevel = "unknown"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// HealthScore 健康评分结果
type HealthScore struct {
	Score     int       `json:"score"` // 0-100
	RiskLevel RiskLevel `json:"risk_level"`
}
