package matcher

import (
	"wisefido-health/internal/models"
	"wisefido-health/internal/policy"
)

// conditionRule 病症专项规则：applies 判断是否适用，satisfied 判断床位是否满足
type conditionRule struct {
	applies   func(m *Matcher, rec *models.ConsolidatedRecord) bool
	satisfied func(a models.Amenities) bool
	reason    string
	concern   string
}

var conditionRules = []conditionRule{
	{
		// 糖尿病 / 胰岛素
		applies: func(m *Matcher, rec *models.ConsolidatedRecord) bool {
			return policy.ContainsAny(rec.Conditions, m.policy.Keywords.Diabetes) ||
				policy.ContainsAny(rec.Medications, m.policy.Keywords.Insulin)
		},
		satisfied: func(a models.Amenities) bool { return a.MedicationStorage },
		reason:    "Medication storage suits diabetes care",
		concern:   "No medication storage for diabetes supplies",
	},
	{
		// 心脏病或心率异常
		applies: func(m *Matcher, rec *models.ConsolidatedRecord) bool {
			t := m.policy.Criteria
			if hr := rec.HeartRate; hr != nil && (*hr > t.TachycardiaHeartRate || *hr < t.BradycardiaHeartRate) {
				return true
			}
			return policy.ContainsAny(rec.Conditions, m.policy.Keywords.Cardiac)
		},
		satisfied: func(a models.Amenities) bool { return a.EmergencyAlert },
		reason:    "Emergency alert suits cardiac monitoring",
		concern:   "No emergency alert for cardiac risk",
	},
	{
		// 呼吸系统疾病或血氧偏低
		applies: func(m *Matcher, rec *models.ConsolidatedRecord) bool {
			if spo2 := rec.OxygenSaturation; spo2 != nil && *spo2 < m.policy.Criteria.LowOxygenSaturation {
				return true
			}
			return policy.ContainsAny(rec.Conditions, m.policy.Keywords.Respiratory)
		},
		satisfied: func(a models.Amenities) bool { return a.TemperatureControl },
		reason:    "Temperature control suits respiratory condition",
		concern:   "No temperature control for respiratory condition",
	},
	{
		// 心理健康
		applies: func(m *Matcher, rec *models.ConsolidatedRecord) bool {
			t := m.policy.Criteria
			if rec.StressLevel != nil && *rec.StressLevel > t.HighStress {
				return true
			}
			if rec.AnxietyLevel != nil && *rec.AnxietyLevel > t.HighAnxiety {
				return true
			}
			return policy.ContainsAny(rec.Conditions, m.policy.Keywords.MentalHealth)
		},
		satisfied: func(a models.Amenities) bool { return a.QuietZone },
		reason:    "Quiet zone supports mental health",
		concern:   "No quiet zone for mental health needs",
	},
	{
		// 行动不便
		applies: func(m *Matcher, rec *models.ConsolidatedRecord) bool {
			return policy.ContainsAny(rec.Conditions, m.policy.Keywords.Mobility)
		},
		satisfied: func(a models.Amenities) bool { return a.Accessibility },
		reason:    "Accessibility suits mobility condition",
		concern:   "Not accessible for mobility condition",
	},
	{
		// 高风险药物
		applies: func(m *Matcher, rec *models.ConsolidatedRecord) bool {
			return policy.ContainsAny(rec.Medications, m.policy.Keywords.HighRiskMedications)
		},
		satisfied: func(a models.Amenities) bool { return a.StaffProximity },
		reason:    "Staff nearby for high-risk medication",
		concern:   "High-risk medication without staff nearby",
	},
}

func (m *Matcher) scoreConditions(s *scorecard, unit models.ResourceUnit, rec *models.ConsolidatedRecord) {
	for _, rule := range conditionRules {
		if !rule.applies(m, rec) {
			continue
		}
		s.requirement(rule.satisfied(unit.Amenities), m.policy.Match.Condition, rule.reason, rule.concern)
	}
}
