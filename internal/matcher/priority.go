package matcher

import (
	"sort"

	"wisefido-health/internal/models"
)

// PriorityScore 候补优先级（越大越紧急，只用于排序，不影响资格）
func (m *Matcher) PriorityScore(c models.AccommodationCriteria, alerts []models.HealthAlert) int {
	w := m.policy.Priority
	score := 0

	if c.NeedsEmergencyMonitoring {
		score += w.EmergencyMonitoring
	}
	if c.RequiresMedicalSupervision {
		score += w.MedicalSupervision
	}
	if c.NeedsMedicationReminders {
		score += w.MedicationReminders
	}
	if c.NeedsAccessibility {
		score += w.Accessibility
	}
	if c.NeedsMobilityAssistance {
		score += w.MobilityAssistance
	}
	if c.RequiresQuietEnvironment {
		score += w.QuietEnvironment
	}
	if c.NeedsStaffProximity {
		score += w.StaffProximity
	}
	if c.NonStandardTemperature() {
		score += w.TemperatureRegulation
	}

	for i := range alerts {
		if alerts[i].IsUnacknowledgedCritical() {
			score += w.UnacknowledgedCritical
		}
	}

	if score < 0 {
		return 0
	}
	return score
}

// RankWaitlist 候补名单按优先级降序排序（相同优先级保持输入顺序）
func RankWaitlist(entries []models.WaitlistEntry) []models.WaitlistEntry {
	ranked := make([]models.WaitlistEntry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PriorityScore > ranked[j].PriorityScore
	})
	return ranked
}
