// Package policy 健康评估与床位匹配的策略表
//
// 阈值和分值来自经验值，并非临床验证结果，因此全部放在可配置的策略表中：
// - Criteria：安置需求推导阈值
// - Alerts：报警阈值
// - Score：健康评分扣分项
// - Match：床位匹配加减分
// - Priority：候补优先级分值
// - Keywords：病症/用药关键字
package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// CriteriaThresholds 安置需求推导阈值
type CriteriaThresholds struct {
	HypertensionSystolic   float64 `json:"hypertension_systolic"`   // 收缩压 > 该值为高血压
	HypertensionDiastolic  float64 `json:"hypertension_diastolic"`  // 舒张压 > 该值为高血压
	HypotensionSystolic    float64 `json:"hypotension_systolic"`    // 收缩压 < 该值为低血压
	TachycardiaHeartRate   float64 `json:"tachycardia_heart_rate"`  // 心率 > 该值
	BradycardiaHeartRate   float64 `json:"bradycardia_heart_rate"`  // 心率 < 该值
	LowOxygenSaturation    float64 `json:"low_oxygen_saturation"`   // 血氧 < 该值
	HighStress             float64 `json:"high_stress"`
	HighAnxiety            float64 `json:"high_anxiety"`
	FeverTemperature       float64 `json:"fever_temperature"`       // 体温 > 该值需要降温环境
	HypothermiaTemperature float64 `json:"hypothermia_temperature"` // 体温 < 该值需要保暖环境
}

// AlertThresholds 报警阈值
type AlertThresholds struct {
	SevereSystolic  float64 `json:"severe_systolic"`
	SevereDiastolic float64 `json:"severe_diastolic"`
	HighSystolic    float64 `json:"high_systolic"`
	HighDiastolic   float64 `json:"high_diastolic"`
	HighHeartRate   float64 `json:"high_heart_rate"`
}

// ScoreWeights 健康评分扣分项
type ScoreWeights struct {
	Start               int `json:"start"`
	Hypertension        int `json:"hypertension"`
	AbnormalHeartRate   int `json:"abnormal_heart_rate"`
	LowOxygen           int `json:"low_oxygen"`
	PerChronicCondition int `json:"per_chronic_condition"`
	Emergency           int `json:"emergency"`
	HighRiskBelow       int `json:"high_risk_below"`   // 分数 < 该值为 high
	MediumRiskBelow     int `json:"medium_risk_below"` // 分数 < 该值为 medium
}

// Adjustment 满足需求加分 / 不满足扣分
type Adjustment struct {
	Bonus   int `json:"bonus"`
	Penalty int `json:"penalty"`
}

// MatchWeights 床位匹配分值
type MatchWeights struct {
	Baseline int `json:"baseline"` // 可用床位基础分
	Neutral  int `json:"neutral"`  // 无健康画像时的中性分

	MedicalSupervision    Adjustment `json:"medical_supervision"`
	EmergencyMonitoring   Adjustment `json:"emergency_monitoring"`
	Accessibility         Adjustment `json:"accessibility"`
	StaffProximity        Adjustment `json:"staff_proximity"`
	QuietEnvironment      Adjustment `json:"quiet_environment"`
	MobilityAssistance    Adjustment `json:"mobility_assistance"`
	MedicationReminders   Adjustment `json:"medication_reminders"` // Bonus: 药品存放 + 近员工
	MedicationStorageOnly int        `json:"medication_storage_only"`
	TemperatureControl    int        `json:"temperature_control"`

	MedicalTypeBonus    int `json:"medical_type_bonus"`
	AccessibleTypeBonus int `json:"accessible_type_bonus"`
	IsolationTypeBonus  int `json:"isolation_type_bonus"`

	Condition Adjustment `json:"condition"` // 病症专项调整
}

// PriorityWeights 候补优先级分值
type PriorityWeights struct {
	EmergencyMonitoring    int `json:"emergency_monitoring"`
	MedicalSupervision     int `json:"medical_supervision"`
	MedicationReminders    int `json:"medication_reminders"`
	Accessibility          int `json:"accessibility"`
	MobilityAssistance     int `json:"mobility_assistance"`
	QuietEnvironment       int `json:"quiet_environment"`
	StaffProximity         int `json:"staff_proximity"`
	TemperatureRegulation  int `json:"temperature_regulation"`
	UnacknowledgedCritical int `json:"unacknowledged_critical"`
}

// Keywords 病症与用药关键字（不区分大小写的子串匹配）
type Keywords struct {
	Diabetes              []string `json:"diabetes"`
	Cardiac               []string `json:"cardiac"`
	Respiratory           []string `json:"respiratory"`
	Mobility              []string `json:"mobility"`
	MentalHealth          []string `json:"mental_health"`
	SupervisedMedications []string `json:"supervised_medications"` // 需要提醒+医疗监护的药物
	Insulin               []string `json:"insulin"`
	HighRiskMedications   []string `json:"high_risk_medications"`
}

// Policy 策略表
type Policy struct {
	Criteria CriteriaThresholds `json:"criteria"`
	Alerts   AlertThresholds    `json:"alerts"`
	Score    ScoreWeights       `json:"score"`
	Match    MatchWeights       `json:"match"`
	Priority PriorityWeights    `json:"priority"`
	Keywords Keywords           `json:"keywords"`

	// HighRiskStaffProximity 风险等级为 high 时追加近员工需求
	HighRiskStaffProximity bool `json:"high_risk_staff_proximity"`
}

// Default 默认策略表
func Default() *Policy {
	return &Policy{
		Criteria: CriteriaThresholds{
			HypertensionSystolic:   140,
			HypertensionDiastolic:  90,
			HypotensionSystolic:    90,
			TachycardiaHeartRate:   100,
			BradycardiaHeartRate:   60,
			LowOxygenSaturation:    95,
			HighStress:             7,
			HighAnxiety:            7,
			FeverTemperature:       38.0,
			HypothermiaTemperature: 35.5,
		},
		Alerts: AlertThresholds{
			SevereSystolic:  180,
			SevereDiastolic: 120,
			HighSystolic:    140,
			HighDiastolic:   90,
			HighHeartRate:   120,
		},
		Score: ScoreWeights{
			Start:               100,
			Hypertension:        15,
			AbnormalHeartRate:   10,
			LowOxygen:           20,
			PerChronicCondition: 5,
			Emergency:           30,
			HighRiskBelow:       40,
			MediumRiskBelow:     70,
		},
		Match: MatchWeights{
			Baseline:              20,
			Neutral:               50,
			MedicalSupervision:    Adjustment{Bonus: 25, Penalty: 30},
			EmergencyMonitoring:   Adjustment{Bonus: 20, Penalty: 25},
			Accessibility:         Adjustment{Bonus: 15, Penalty: 20},
			StaffProximity:        Adjustment{Bonus: 15, Penalty: 15},
			QuietEnvironment:      Adjustment{Bonus: 10, Penalty: 10},
			MobilityAssistance:    Adjustment{Bonus: 10, Penalty: 15},
			MedicationReminders:   Adjustment{Bonus: 15, Penalty: 10},
			MedicationStorageOnly: 8,
			TemperatureControl:    10,
			MedicalTypeBonus:      15,
			AccessibleTypeBonus:   12,
			IsolationTypeBonus:    8,
			Condition:             Adjustment{Bonus: 5, Penalty: 5},
		},
		Priority: PriorityWeights{
			EmergencyMonitoring:    100,
			MedicalSupervision:     80,
			MedicationReminders:    60,
			Accessibility:          50,
			MobilityAssistance:     40,
			QuietEnvironment:       30,
			StaffProximity:         25,
			TemperatureRegulation:  20,
			UnacknowledgedCritical: 50,
		},
		Keywords: Keywords{
			Diabetes:              []string{"diabetes"},
			Cardiac:               []string{"heart disease", "heart failure", "coronary"},
			Respiratory:           []string{"copd", "asthma"},
			Mobility:              []string{"chronic back pain", "arthritis"},
			MentalHealth:          []string{"depression", "anxiety", "ptsd", "bipolar"},
			SupervisedMedications: []string{"insulin", "warfarin"},
			Insulin:               []string{"insulin"},
			HighRiskMedications:   []string{"warfarin", "heparin", "digoxin", "methotrexate"},
		},
		HighRiskStaffProximity: true,
	}
}

// LoadFile 从 JSON 文件加载策略表（在默认值基础上覆盖）
func LoadFile(path string) (*Policy, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy file %s: %w", path, err)
	}
	return p, nil
}

// Validate 校验策略表
func (p *Policy) Validate() error {
	if p.Score.Start <= 0 || p.Score.Start > 100 {
		return fmt.Errorf("score.start must be in (0, 100], got %d", p.Score.Start)
	}
	if p.Score.HighRiskBelow > p.Score.MediumRiskBelow {
		return fmt.Errorf("score.high_risk_below (%d) must not exceed score.medium_risk_below (%d)",
			p.Score.HighRiskBelow, p.Score.MediumRiskBelow)
	}
	if p.Alerts.SevereSystolic < p.Alerts.HighSystolic || p.Alerts.SevereDiastolic < p.Alerts.HighDiastolic {
		return fmt.Errorf("severe blood pressure thresholds must not be below high thresholds")
	}

	weights := map[string]int{
		"match.baseline":                     p.Match.Baseline,
		"match.neutral":                      p.Match.Neutral,
		"match.medical_supervision.bonus":    p.Match.MedicalSupervision.Bonus,
		"match.medical_supervision.penalty":  p.Match.MedicalSupervision.Penalty,
		"match.emergency_monitoring.bonus":   p.Match.EmergencyMonitoring.Bonus,
		"match.emergency_monitoring.penalty": p.Match.EmergencyMonitoring.Penalty,
		"match.accessibility.bonus":          p.Match.Accessibility.Bonus,
		"match.accessibility.penalty":        p.Match.Accessibility.Penalty,
		"match.staff_proximity.bonus":        p.Match.StaffProximity.Bonus,
		"match.staff_proximity.penalty":      p.Match.StaffProximity.Penalty,
		"match.quiet_environment.bonus":      p.Match.QuietEnvironment.Bonus,
		"match.quiet_environment.penalty":    p.Match.QuietEnvironment.Penalty,
		"match.mobility_assistance.bonus":    p.Match.MobilityAssistance.Bonus,
		"match.mobility_assistance.penalty":  p.Match.MobilityAssistance.Penalty,
		"match.medication_reminders.bonus":   p.Match.MedicationReminders.Bonus,
		"match.medication_reminders.penalty": p.Match.MedicationReminders.Penalty,
		"match.condition.bonus":              p.Match.Condition.Bonus,
		"match.condition.penalty":            p.Match.Condition.Penalty,
		"priority.unacknowledged_critical":   p.Priority.UnacknowledgedCritical,
		"priority.emergency_monitoring":      p.Priority.EmergencyMonitoring,
		"priority.medical_supervision":       p.Priority.MedicalSupervision,
	}
	for name, v := range weights {
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %d", name, v)
		}
	}
	if p.Match.Neutral > 100 || p.Match.Baseline > 100 {
		return fmt.Errorf("match baseline/neutral must not exceed 100")
	}

	keywords := map[string][]string{
		"diabetes":               p.Keywords.Diabetes,
		"cardiac":                p.Keywords.Cardiac,
		"respiratory":            p.Keywords.Respiratory,
		"mobility":               p.Keywords.Mobility,
		"supervised_medications": p.Keywords.SupervisedMedications,
		"insulin":                p.Keywords.Insulin,
	}
	for name, list := range keywords {
		if len(list) == 0 {
			return fmt.Errorf("keywords.%s must not be empty", name)
		}
	}
	return nil
}

// ContainsAny 列表中是否有条目包含任一关键字（不区分大小写）
func ContainsAny(items []string, keywords []string) bool {
	for _, item := range items {
		lower := strings.ToLower(item)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}
