package evaluator

import (
	"wisefido-health/internal/models"
	"wisefido-health/internal/policy"
)

// DeriveCriteria 根据最新记录推导安置需求
//
// 规则相互独立、只会把标志置为 true，不会清除其他规则设置的标志：
// - 血压偏高或偏低 -> 医疗监护 + 近员工
// - 心率异常 -> 医疗监护 + 紧急监测
// - 血氧偏低 -> 医疗监护 + 紧急监测
// - 糖尿病 / 心脏病 -> 用药提醒 + 近员工
// - COPD / 哮喘 -> 安静环境 + 紧急监测
// - 慢性背痛 / 关节炎 -> 无障碍 + 行动协助
// - 压力偏高 -> 安静环境；焦虑偏高 -> 安静环境 + 近员工
// - 胰岛素 / 华法林 -> 用药提醒 + 医疗监护
// - 紧急标记 -> 紧急监测 + 医疗监护 + 近员工
// - 发热 -> 降温环境；体温过低 -> 保暖环境
// - 风险等级 high -> 近员工（可在策略表中关闭）
//
// 没有记录时返回默认需求
func (e *Evaluator) DeriveCriteria(latest *models.ConsolidatedRecord, score models.HealthScore) models.AccommodationCriteria {
	c := models.DefaultCriteria()
	if latest == nil {
		return c
	}

	t := e.policy.Criteria
	kw := e.policy.Keywords

	// 生命体征
	if e.hypertensive(latest.BloodPressure) || e.hypotensive(latest.BloodPressure) {
		c.RequiresMedicalSupervision = true
		c.NeedsStaffProximity = true
	}
	if e.abnormalHeartRate(latest.HeartRate) {
		c.RequiresMedicalSupervision = true
		c.NeedsEmergencyMonitoring = true
	}
	if e.lowOxygen(latest.OxygenSaturation) {
		c.RequiresMedicalSupervision = true
		c.NeedsEmergencyMonitoring = true
	}
	if temp := latest.Temperature; temp != nil {
		switch {
		case *temp > t.FeverTemperature:
			c.TemperatureRegulation = models.TemperatureCool
		case *temp < t.HypothermiaTemperature:
			c.TemperatureRegulation = models.TemperatureWarm
		}
	}

	// 病症
	if policy.ContainsAny(latest.Conditions, kw.Diabetes) || policy.ContainsAny(latest.Conditions, kw.Cardiac) {
		c.NeedsMedicationReminders = true
		c.NeedsStaffProximity = true
	}
	if policy.ContainsAny(latest.Conditions, kw.Respiratory) {
		c.RequiresQuietEnvironment = true
		c.NeedsEmergencyMonitoring = true
	}
	if policy.ContainsAny(latest.Conditions, kw.Mobility) {
		c.NeedsAccessibility = true
		c.NeedsMobilityAssistance = true
	}

	// 心理状态
	if latest.StressLevel != nil && *latest.StressLevel > t.HighStress {
		c.RequiresQuietEnvironment = true
	}
	if latest.AnxietyLevel != nil && *latest.AnxietyLevel > t.HighAnxiety {
		c.RequiresQuietEnvironment = true
		c.NeedsStaffProximity = true
	}

	// 用药
	if policy.ContainsAny(latest.Medications, kw.SupervisedMedications) {
		c.NeedsMedicationReminders = true
		c.RequiresMedicalSupervision = true
	}

	if latest.HasEmergency() {
		c.NeedsEmergencyMonitoring = true
		c.RequiresMedicalSupervision = true
		c.NeedsStaffProximity = true
	}

	if e.policy.HighRiskStaffProximity && score.RiskLevel == models.RiskHigh {
		c.NeedsStaffProximity = true
	}

	return c
}
