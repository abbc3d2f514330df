package evaluator

import (
	"wisefido-health/internal/models"
)

// Score 计算健康评分和风险等级
//
// 从 start（默认 100）开始扣分：血压偏高、心率异常、血氧偏低、每个慢性病、紧急标记，
// 结果限制在 [0, 100]。风险等级：紧急标记 -> critical；否则按分数分为 high / medium / low；
// 没有记录 -> unknown
func (e *Evaluator) Score(latest *models.ConsolidatedRecord) models.HealthScore {
	if latest == nil {
		return models.HealthScore{Score: 0, RiskLevel: models.RiskUnknown}
	}

	w := e.policy.Score
	score := w.Start

	if e.hypertensive(latest.BloodPressure) {
		score -= w.Hypertension
	}
	if e.abnormalHeartRate(latest.HeartRate) {
		score -= w.AbnormalHeartRate
	}
	if e.lowOxygen(latest.OxygenSaturation) {
		score -= w.LowOxygen
	}
	score -= w.PerChronicCondition * len(latest.Conditions)
	if latest.HasEmergency() {
		score -= w.Emergency
	}
	score = clamp(score, 0, 100)

	return models.HealthScore{
		Score:     score,
		RiskLevel: e.riskLevel(score, latest.HasEmergency()),
	}
}

func (e *Evaluator) riskLevel(score int, emergency bool) models.RiskLevel {
	switch {
	case emergency:
		return models.RiskCritical
	case score < e.policy.Score.HighRiskBelow:
		return models.RiskHigh
	case score < e.policy.Score.MediumRiskBelow:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
