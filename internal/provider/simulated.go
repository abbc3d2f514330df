package provider

import (
	"context"
	"hash/fnv"
	"time"

	"wisefido-health/internal/models"
)

var (
	simulatedConditions  = [][]string{nil, {"Type 2 Diabetes"}, {"Asthma"}, {"Arthritis"}, {"Hypertension"}, nil}
	simulatedMedications = [][]string{nil, {"Metformin"}, {"Albuterol"}, {"Ibuprofen"}, {"Lisinopril"}, nil}
)

// SimulatedAdapter 演示数据源：同一人、同一天总是生成相同的样本
type SimulatedAdapter struct {
	kind     models.ProviderKind
	priority int
	days     int
	now      func() time.Time
}

// NewSimulatedAdapter 创建演示数据源
func NewSimulatedAdapter(kind models.ProviderKind, priority, days int) *SimulatedAdapter {
	if days <= 0 {
		days = 1
	}
	return &SimulatedAdapter{
		kind:     kind,
		priority: priority,
		days:     days,
		now:      time.Now,
	}
}

func (a *SimulatedAdapter) Kind() models.ProviderKind { return a.kind }

func (a *SimulatedAdapter) Priority() int { return a.priority }

// FetchSamples 生成最近 days 天、每天一条的样本（最新在前）
func (a *SimulatedAdapter) FetchSamples(ctx context.Context, personID string) ([]models.HealthSample, error) {
	seed := personSeed(personID)
	today := a.now().UTC().Truncate(24 * time.Hour)

	samples := make([]models.HealthSample, 0, a.days)
	for d := 0; d < a.days; d++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v := seed + uint32(d)*7919
		samples = append(samples, models.HealthSample{
			PersonID:  personID,
			Timestamp: today.Add(-time.Duration(d)*24*time.Hour + 9*time.Hour),
			Source:    a.kind,
			HealthFields: models.HealthFields{
				HeartRate:        floatVal(float64(58 + v%50)),
				BloodPressure:    &models.BloodPressure{Systolic: float64(105 + v%60), Diastolic: float64(65 + v%35)},
				Temperature:      floatVal(36.0 + float64(v%20)/10),
				OxygenSaturation: floatVal(float64(92 + v%8)),
				Steps:            intVal(int(1000 + v%9000)),
				SleepHours:       floatVal(float64(4 + v%6)),
				StressLevel:      floatVal(float64(v % 10)),
				Medications:      append([]string(nil), simulatedMedications[seed%uint32(len(simulatedMedications))]...),
				Conditions:       append([]string(nil), simulatedConditions[seed%uint32(len(simulatedConditions))]...),
			},
		})
	}
	return samples, nil
}

func personSeed(personID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(personID))
	return h.Sum32()
}

func floatVal(v float64) *float64 { return &v }

func intVal(v int) *int { return &v }
