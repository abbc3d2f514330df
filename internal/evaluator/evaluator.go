// Package evaluator 根据最新合并记录推导安置需求、健康报警和健康评分
//
// 三个评估都是纯函数：输入最新的 ConsolidatedRecord（可以为 nil），输出确定的结果，
// 阈值全部来自 policy.Policy
package evaluator

import (
	"wisefido-health/internal/models"
	"wisefido-health/internal/policy"

	"go.uber.org/zap"
)

// Evaluation 一次完整评估的结果
type Evaluation struct {
	Criteria models.AccommodationCriteria
	Alerts   []models.HealthAlert
	Score    models.HealthScore
}

// Evaluator 健康评估器
type Evaluator struct {
	policy *policy.Policy
	logger *zap.Logger
}

// NewEvaluator 创建评估器
func NewEvaluator(p *policy.Policy, logger *zap.Logger) *Evaluator {
	if p == nil {
		p = policy.Default()
	}
	return &Evaluator{
		policy: p,
		logger: logger,
	}
}

// Policy 当前策略表
func (e *Evaluator) Policy() *policy.Policy {
	return e.policy
}

// Evaluate 对最新记录做完整评估（评分 -> 需求 -> 报警）
func (e *Evaluator) Evaluate(personID string, latest *models.ConsolidatedRecord) Evaluation {
	score := e.Score(latest)
	criteria := e.DeriveCriteria(latest, score)
	alerts := e.GenerateAlerts(personID, latest)

	e.logger.Debug("Evaluated health record",
		zap.String("person_id", personID),
		zap.Int("score", score.Score),
		zap.String("risk_level", string(score.RiskLevel)),
		zap.Int("alert_count", len(alerts)),
	)

	return Evaluation{
		Criteria: criteria,
		Alerts:   alerts,
		Score:    score,
	}
}

// Latest 返回按时间倒序排列的记录中的最新一条（空列表返回 nil）
func Latest(records []models.ConsolidatedRecord) *models.ConsolidatedRecord {
	if len(records) == 0 {
		return nil
	}
	return &records[0]
}

func (e *Evaluator) hypertensive(bp *models.BloodPressure) bool {
	if bp == nil {
		return false
	}
	t := e.policy.Criteria
	return bp.Systolic > t.HypertensionSystolic || bp.Diastolic > t.HypertensionDiastolic
}

func (e *Evaluator) hypotensive(bp *models.BloodPressure) bool {
	return bp != nil && bp.Systolic < e.policy.Criteria.HypotensionSystolic
}

func (e *Evaluator) abnormalHeartRate(hr *float64) bool {
	if hr == nil {
		return false
	}
	t := e.policy.Criteria
	return *hr > t.TachycardiaHeartRate || *hr < t.BradycardiaHeartRate
}

func (e *Evaluator) lowOxygen(spo2 *float64) bool {
	return spo2 != nil && *spo2 < e.policy.Criteria.LowOxygenSaturation
}
