// Package matcher 床位匹配与候补优先级
//
// 匹配流程（每个可用床位）：
// 1. 基础分（可用即得分）
// 2. 逐项需求与床位设施比对：满足加分，不满足扣分
// 3. 床位类型加分
// 4. 病症专项调整（糖尿病/胰岛素、心脏、呼吸、心理、行动、高风险药物）
// 5. 限制在 [0, 100]，稳定排序，取前 N 个
package matcher

import (
	"sort"

	"wisefido-health/internal/models"
	"wisefido-health/internal/policy"

	"go.uber.org/zap"
)

// ReasonStandardAccommodation 无健康画像时的唯一理由
const ReasonStandardAccommodation = "standard accommodation"

// Matcher 床位匹配器
type Matcher struct {
	policy *policy.Policy
	logger *zap.Logger
}

// NewMatcher 创建床位匹配器
func NewMatcher(p *policy.Policy, logger *zap.Logger) *Matcher {
	if p == nil {
		p = policy.Default()
	}
	return &Matcher{
		policy: p,
		logger: logger,
	}
}

// FindOptimalBeds 为健康画像匹配床位
// 停用或维护中的床位被跳过；maxResults <= 0 表示返回全部
func (m *Matcher) FindOptimalBeds(units []models.ResourceUnit, profile *models.HealthProfile, maxResults int) []models.MatchResult {
	results := make([]models.MatchResult, 0, len(units))
	for i := range units {
		if !units[i].Available() {
			continue
		}
		results = append(results, m.ScoreUnit(units[i], profile))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}

	m.logger.Debug("Matched resource units",
		zap.Int("unit_count", len(units)),
		zap.Int("result_count", len(results)),
		zap.Bool("empty_profile", profile.Empty()),
	)

	return results
}

// ScoreUnit 计算单个床位的匹配分（不检查可用性）
func (m *Matcher) ScoreUnit(unit models.ResourceUnit, profile *models.HealthProfile) models.MatchResult {
	if profile.Empty() {
		return models.MatchResult{
			Unit:     unit,
			Score:    m.policy.Match.Neutral,
			Reasons:  []string{ReasonStandardAccommodation},
			Concerns: []string{},
		}
	}

	s := &scorecard{score: m.policy.Match.Baseline, reasons: []string{}, concerns: []string{}}
	m.scoreCriteria(s, unit, profile.Criteria)
	m.scoreUnitType(s, unit, profile.Criteria)
	if profile.Record != nil {
		m.scoreConditions(s, unit, profile.Record)
	}

	if (profile.Score.RiskLevel == models.RiskHigh || profile.Score.RiskLevel == models.RiskCritical) &&
		!unit.Amenities.MedicalSupport {
		s.concern("High health risk without on-site medical support")
	}

	return models.MatchResult{
		Unit:     unit,
		Score:    clamp(s.score, 0, 100),
		Reasons:  s.reasons,
		Concerns: s.concerns,
	}
}

// scorecard 匹配过程中累积的分数、理由和顾虑
type scorecard struct {
	score    int
	reasons  []string
	concerns []string
}

func (s *scorecard) add(points int, reason string) {
	s.score += points
	s.reasons = append(s.reasons, reason)
}

func (s *scorecard) sub(points int, concern string) {
	s.score -= points
	s.concerns = append(s.concerns, concern)
}

func (s *scorecard) concern(concern string) {
	s.concerns = append(s.concerns, concern)
}

// requirement 满足则加分，不满足则扣分
func (s *scorecard) requirement(satisfied bool, adj policy.Adjustment, reason, concern string) {
	if satisfied {
		s.add(adj.Bonus, reason)
	} else {
		s.sub(adj.Penalty, concern)
	}
}

func (m *Matcher) scoreCriteria(s *scorecard, unit models.ResourceUnit, c models.AccommodationCriteria) {
	w := m.policy.Match
	a := unit.Amenities

	if c.RequiresMedicalSupervision {
		s.requirement(a.MedicalSupport, w.MedicalSupervision,
			"Medical support available", "No medical support for required supervision")
	}
	if c.NeedsEmergencyMonitoring {
		s.requirement(a.EmergencyAlert, w.EmergencyMonitoring,
			"Emergency alert system available", "No emergency alert system")
	}
	if c.NeedsAccessibility {
		s.requirement(a.Accessibility, w.Accessibility,
			"Accessible unit", "Unit is not accessible")
	}
	if c.NeedsStaffProximity {
		s.requirement(a.StaffProximity, w.StaffProximity,
			"Close to staff station", "Far from staff station")
	}
	if c.RequiresQuietEnvironment {
		s.requirement(a.QuietZone, w.QuietEnvironment,
			"Located in a quiet zone", "Not in a quiet zone")
	}
	if c.NeedsMobilityAssistance {
		s.requirement(a.Accessibility, w.MobilityAssistance,
			"Mobility assistance supported", "No mobility assistance features")
	}
	if c.NeedsMedicationReminders {
		switch {
		case a.MedicationStorage && a.StaffProximity:
			s.add(w.MedicationReminders.Bonus, "Medication storage with staff support for reminders")
		case a.MedicationStorage:
			s.add(w.MedicationStorageOnly, "Medication storage available")
		default:
			s.sub(w.MedicationReminders.Penalty, "No medication storage")
		}
	}
	if c.NonStandardTemperature() {
		if a.TemperatureControl {
			s.add(w.TemperatureControl, "Temperature control available")
		} else {
			s.concern("No temperature control for " + string(c.TemperatureRegulation) + " environment")
		}
	}
}

func (m *Matcher) scoreUnitType(s *scorecard, unit models.ResourceUnit, c models.AccommodationCriteria) {
	w := m.policy.Match
	switch unit.Type {
	case models.UnitMedical:
		if c.RequiresMedicalSupervision {
			s.add(w.MedicalTypeBonus, "Medical unit")
		}
	case models.UnitAccessible:
		if c.NeedsAccessibility {
			s.add(w.AccessibleTypeBonus, "Accessible unit type")
		}
	case models.UnitIsolation:
		if c.RequiresQuietEnvironment {
			s.add(w.IsolationTypeBonus, "Isolation unit provides a quiet environment")
		}
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
