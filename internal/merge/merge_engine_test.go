package merge

import (
	"errors"
	"testing"
	"time"

	"wisefido-health/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testPriorities = map[models.ProviderKind]int{
	models.ProviderClinical: 1,
	models.ProviderDevice:   2,
}

func newTestEngine(t *testing.T, strategy Strategy) *Engine {
	e, err := NewEngine(strategy, testPriorities, zap.NewNop())
	require.NoError(t, err)
	return e
}

func at(day, clock string) time.Time {
	ts, err := time.Parse(time.RFC3339, day+"T"+clock+"Z")
	if err != nil {
		panic(err)
	}
	return ts
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }

// sameDaySamples 同一天两个数据源的样本：设备更新更晚，临床优先级更高
func sameDaySamples() []models.HealthSample {
	return []models.HealthSample{
		{
			PersonID:  "p1",
			Timestamp: at("2026-03-01", "18:00:00"),
			Source:    models.ProviderDevice,
			HealthFields: models.HealthFields{
				HeartRate:        floatPtr(80),
				OxygenSaturation: floatPtr(96),
				Steps:            intPtr(4001),
				BloodPressure:    &models.BloodPressure{Systolic: 130, Diastolic: 85},
				Medications:      []string{"Insulin", "metformin"},
			},
		},
		{
			PersonID:  "p1",
			Timestamp: at("2026-03-01", "09:00:00"),
			Source:    models.ProviderClinical,
			HealthFields: models.HealthFields{
				HeartRate:          floatPtr(70),
				BloodPressure:      &models.BloodPressure{Systolic: 150, Diastolic: 95},
				Temperature:        floatPtr(37.2),
				Steps:              intPtr(4000),
				Medications:        []string{" insulin ", "Warfarin"},
				Conditions:         []string{"Type 2 Diabetes"},
				EmergencyCondition: boolPtr(false),
			},
		},
	}
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("Average")
	require.NoError(t, err)
	assert.Equal(t, StrategyAverage, s)

	s, err = ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyPrioritized, s)

	_, err = ParseStrategy("median")
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
}

func TestNewEngine_UnknownStrategy(t *testing.T) {
	e, err := NewEngine(Strategy("median"), testPriorities, zap.NewNop())
	assert.Nil(t, e)
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
}

func TestMerge_Empty(t *testing.T) {
	records := newTestEngine(t, StrategyPrioritized).Merge(nil)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestMerge_SingleSampleDayIsUnchanged(t *testing.T) {
	sample := sameDaySamples()[0]
	records := newTestEngine(t, StrategyAverage).Merge([]models.HealthSample{sample})

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "p1", rec.PersonID)
	assert.Equal(t, "2026-03-01", rec.Date)
	assert.Equal(t, sample.Timestamp, rec.Timestamp)
	assert.Equal(t, []models.ProviderKind{models.ProviderDevice}, rec.Sources)
	assert.Equal(t, 80.0, *rec.HeartRate)
	assert.Equal(t, 4001, *rec.Steps)
	assert.Equal(t, []string{"Insulin", "metformin"}, rec.Medications)
}

func TestMerge_Prioritized(t *testing.T) {
	records := newTestEngine(t, StrategyPrioritized).Merge(sameDaySamples())

	require.Len(t, records, 1)
	rec := records[0]

	// 临床优先级更高：已设置字段不会被设备覆盖
	assert.Equal(t, 70.0, *rec.HeartRate)
	assert.Equal(t, 150.0, rec.BloodPressure.Systolic)
	assert.Equal(t, 4000, *rec.Steps)
	// 临床未提供的字段从设备回填
	assert.Equal(t, 96.0, *rec.OxygenSaturation)
	assert.Equal(t, 37.2, *rec.Temperature)
	assert.False(t, *rec.EmergencyCondition)

	assert.Equal(t, at("2026-03-01", "18:00:00"), rec.Timestamp)
	assert.Equal(t, []models.ProviderKind{models.ProviderClinical, models.ProviderDevice}, rec.Sources)
	assert.Equal(t, []string{"Insulin", "metformin", "Warfarin"}, rec.Medications)
	assert.Equal(t, []string{"Type 2 Diabetes"}, rec.Conditions)
}

func TestMerge_PrioritizedDoesNotShareSamplePointers(t *testing.T) {
	samples := sameDaySamples()
	records := newTestEngine(t, StrategyPrioritized).Merge(samples)
	require.Len(t, records, 1)

	*records[0].HeartRate = 999
	records[0].BloodPressure.Systolic = 1

	assert.Equal(t, 70.0, *samples[1].HeartRate)
	assert.Equal(t, 150.0, samples[1].BloodPressure.Systolic)
}

func TestMerge_Latest(t *testing.T) {
	records := newTestEngine(t, StrategyLatest).Merge(sameDaySamples())

	require.Len(t, records, 1)
	rec := records[0]
	// 设备样本最新，标量整体胜出
	assert.Equal(t, 80.0, *rec.HeartRate)
	assert.Equal(t, 130.0, rec.BloodPressure.Systolic)
	assert.Nil(t, rec.Temperature)
	assert.Nil(t, rec.EmergencyCondition)
	// 列表字段仍然取并集
	assert.Equal(t, []string{"Insulin", "metformin", "Warfarin"}, rec.Medications)
	assert.Equal(t, []string{"Type 2 Diabetes"}, rec.Conditions)
}

func TestMerge_LatestTieBreaksByPriority(t *testing.T) {
	ts := at("2026-03-01", "12:00:00")
	samples := []models.HealthSample{
		{PersonID: "p1", Timestamp: ts, Source: models.ProviderDevice, HealthFields: models.HealthFields{HeartRate: floatPtr(90)}},
		{PersonID: "p1", Timestamp: ts, Source: models.ProviderClinical, HealthFields: models.HealthFields{HeartRate: floatPtr(65)}},
	}

	records := newTestEngine(t, StrategyLatest).Merge(samples)
	require.Len(t, records, 1)
	assert.Equal(t, 65.0, *records[0].HeartRate)
}

func TestMerge_Average(t *testing.T) {
	records := newTestEngine(t, StrategyAverage).Merge(sameDaySamples())

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, 75.0, *rec.HeartRate)
	assert.Equal(t, 140.0, rec.BloodPressure.Systolic)
	assert.Equal(t, 90.0, rec.BloodPressure.Diastolic)
	// 只有一个样本提供的字段取该值
	assert.Equal(t, 96.0, *rec.OxygenSaturation)
	assert.Equal(t, 37.2, *rec.Temperature)
	// 步数四舍五入
	assert.Equal(t, 4001, *rec.Steps)
	// 非数值字段按优先级回填
	assert.False(t, *rec.EmergencyCondition)
	assert.Equal(t, []string{"Insulin", "metformin", "Warfarin"}, rec.Medications)
}

func TestMerge_AllKeepsEverySample(t *testing.T) {
	samples := sameDaySamples()
	samples = append(samples, models.HealthSample{
		PersonID:  "p1",
		Timestamp: at("2026-03-01", "12:00:00"),
		Source:    models.ProviderDevice,
		HealthFields: models.HealthFields{
			HeartRate: floatPtr(88),
			Allergies: []string{"penicillin"},
		},
	})

	records := newTestEngine(t, StrategyAll).Merge(samples)

	require.Len(t, records, len(samples))
	assert.Equal(t, at("2026-03-01", "18:00:00"), records[0].Timestamp)
	assert.Equal(t, at("2026-03-01", "12:00:00"), records[1].Timestamp)
	assert.Equal(t, at("2026-03-01", "09:00:00"), records[2].Timestamp)
	for _, rec := range records {
		assert.Len(t, rec.Sources, 1)
		assert.Equal(t, []string{"penicillin"}, rec.Allergies)
		assert.Equal(t, []string{"Insulin", "metformin", "Warfarin"}, rec.Medications)
	}
}

func TestMerge_OneRecordPerDayNewestFirst(t *testing.T) {
	samples := []models.HealthSample{
		{PersonID: "p1", Timestamp: at("2026-02-27", "08:00:00"), Source: models.ProviderDevice},
		{PersonID: "p1", Timestamp: at("2026-03-01", "08:00:00"), Source: models.ProviderDevice},
		{PersonID: "p1", Timestamp: at("2026-02-28", "08:00:00"), Source: models.ProviderClinical},
		{PersonID: "p1", Timestamp: at("2026-03-01", "23:59:59"), Source: models.ProviderClinical},
		{PersonID: "p1", Timestamp: at("2026-02-28", "10:00:00"), Source: models.ProviderDevice},
	}

	for _, strategy := range []Strategy{StrategyPrioritized, StrategyAverage, StrategyLatest} {
		records := newTestEngine(t, strategy).Merge(samples)
		require.Len(t, records, 3, string(strategy))
		assert.Equal(t, "2026-03-01", records[0].Date, string(strategy))
		assert.Equal(t, "2026-02-28", records[1].Date, string(strategy))
		assert.Equal(t, "2026-02-27", records[2].Date, string(strategy))
	}

	records := newTestEngine(t, StrategyAll).Merge(samples)
	assert.Len(t, records, len(samples))
}

func TestMerge_GroupsByUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC-7", -7*3600)
	samples := []models.HealthSample{
		// 本地 3 月 1 日 20:00 = UTC 3 月 2 日 03:00
		{PersonID: "p1", Timestamp: time.Date(2026, 3, 1, 20, 0, 0, 0, loc), Source: models.ProviderDevice},
		{PersonID: "p1", Timestamp: at("2026-03-02", "10:00:00"), Source: models.ProviderClinical},
	}

	records := newTestEngine(t, StrategyPrioritized).Merge(samples)
	require.Len(t, records, 1)
	assert.Equal(t, "2026-03-02", records[0].Date)
}

func TestMerge_Deterministic(t *testing.T) {
	e := newTestEngine(t, StrategyPrioritized)
	first := e.Merge(sameDaySamples())
	second := e.Merge(sameDaySamples())
	assert.Equal(t, first, second)
}

func TestUnionStrings_OrderIndependentAndIdempotent(t *testing.T) {
	a := []string{"Asthma", "type 2  diabetes"}
	b := []string{"asthma ", "COPD"}

	ab := UnionStrings(a, b)
	ba := UnionStrings(b, a)

	assert.Equal(t, ab, ba)
	assert.Equal(t, []string{"Asthma", "COPD", "type 2 diabetes"}, ab)
	assert.Equal(t, ab, UnionStrings(ab, ab))
}

func TestUnionStrings_EmptyInputs(t *testing.T) {
	assert.Nil(t, UnionStrings())
	assert.Nil(t, UnionStrings(nil, []string{"", "   "}))
}
