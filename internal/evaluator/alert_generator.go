package evaluator

import (
	"fmt"
	"time"

	"wisefido-health/internal/models"
	"wisefido-health/internal/policy"

	"github.com/google/uuid"
)

// 报警标题（与类别一起构成去重键）
const (
	TitleSevereHypertension = "Severe Hypertension"
	TitleHighBloodPressure  = "High Blood Pressure"
	TitleElevatedHeartRate  = "Elevated Heart Rate"
	TitleMedicationManage   = "Medication Management"
	TitleEmergencyCondition = "Emergency Health Condition"
)

// GenerateAlerts 根据最新记录生成报警（每次调用生成新的 ID 和创建时间）
//
// 报警规则：
// - 收缩压 > 180 或舒张压 > 120 -> critical 严重高血压
// - 收缩压 > 140 或舒张压 > 90（且未触发严重高血压）-> warning 高血压
// - 心率 > 120 -> warning
// - 使用胰岛素 -> info 用药管理
// - 紧急标记 -> critical 紧急状况
func (e *Evaluator) GenerateAlerts(personID string, latest *models.ConsolidatedRecord) []models.HealthAlert {
	if latest == nil {
		return nil
	}

	t := e.policy.Alerts
	now := time.Now().UTC()
	var alerts []models.HealthAlert

	if bp := latest.BloodPressure; bp != nil {
		switch {
		case bp.Systolic > t.SevereSystolic || bp.Diastolic > t.SevereDiastolic:
			alerts = append(alerts, newAlert(personID, now,
				models.SeverityCritical, models.CategoryVitalSigns, TitleSevereHypertension,
				fmt.Sprintf("Blood pressure %.0f/%.0f mmHg is in the hypertensive crisis range", bp.Systolic, bp.Diastolic),
				[]string{
					"Seek immediate medical evaluation",
					"Assign a bed with medical support",
					"Recheck blood pressure within 15 minutes",
				},
			))
		case bp.Systolic > t.HighSystolic || bp.Diastolic > t.HighDiastolic:
			alerts = append(alerts, newAlert(personID, now,
				models.SeverityWarning, models.CategoryVitalSigns, TitleHighBloodPressure,
				fmt.Sprintf("Blood pressure %.0f/%.0f mmHg is above the normal range", bp.Systolic, bp.Diastolic),
				[]string{
					"Monitor blood pressure daily",
					"Refer to a clinic for follow-up",
				},
			))
		}
	}

	if hr := latest.HeartRate; hr != nil && *hr > t.HighHeartRate {
		alerts = append(alerts, newAlert(personID, now,
			models.SeverityWarning, models.CategoryVitalSigns, TitleElevatedHeartRate,
			fmt.Sprintf("Heart rate %.0f bpm is elevated", *hr),
			[]string{
				"Recheck heart rate at rest",
				"Notify medical staff if it persists",
			},
		))
	}

	if policy.ContainsAny(latest.Medications, e.policy.Keywords.Insulin) {
		alerts = append(alerts, newAlert(personID, now,
			models.SeverityInfo, models.CategoryMedication, TitleMedicationManage,
			"Person uses insulin and needs refrigerated medication storage and scheduled doses",
			[]string{
				"Provide access to medication storage",
				"Set up medication reminders",
			},
		))
	}

	if latest.HasEmergency() {
		alerts = append(alerts, newAlert(personID, now,
			models.SeverityCritical, models.CategoryEmergency, TitleEmergencyCondition,
			"An emergency health condition was reported by a provider",
			[]string{
				"Contact emergency medical services if needed",
				"Assign a bed with emergency alert and staff proximity",
			},
		))
	}

	return alerts
}

func newAlert(personID string, now time.Time, severity models.AlertSeverity, category models.AlertCategory,
	title, description string, recommendations []string) models.HealthAlert {
	return models.HealthAlert{
		ID:              uuid.New().String(),
		PersonID:        personID,
		Severity:        severity,
		Category:        category,
		Title:           title,
		Description:     description,
		Recommendations: recommendations,
		CreatedAt:       now,
	}
}

// MergeAlerts 把新生成的报警并入已有报警
//
// 去重键为 (person, category, title)：已存在的报警保持不变（ID、创建时间、确认状态），
// 只追加新键的报警。返回合并后的列表和本次新增的报警
func MergeAlerts(existing, generated []models.HealthAlert) (merged, added []models.HealthAlert) {
	seen := make(map[string]bool, len(existing)+len(generated))
	merged = make([]models.HealthAlert, 0, len(existing)+len(generated))

	for _, a := range existing {
		key := a.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, a)
	}

	for _, a := range generated {
		key := a.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, a)
		added = append(added, a)
	}

	return merged, added
}

// FilterAlerts 按条件过滤报警
func FilterAlerts(alerts []models.HealthAlert, filter models.AlertFilter) []models.HealthAlert {
	out := make([]models.HealthAlert, 0, len(alerts))
	for i := range alerts {
		if filter.Match(&alerts[i]) {
			out = append(out, alerts[i])
		}
	}
	return out
}

// CountUnacknowledgedCritical 未确认的严重报警数
func CountUnacknowledgedCritical(alerts []models.HealthAlert) int {
	n := 0
	for i := range alerts {
		if alerts[i].IsUnacknowledgedCritical() {
			n++
		}
	}
	return n
}
