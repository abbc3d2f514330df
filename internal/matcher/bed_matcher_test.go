package matcher

import (
	"testing"
	"time"

	"wisefido-health/internal/evaluator"
	"wisefido-health/internal/models"
	"wisefido-health/internal/policy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMatcher() *Matcher {
	return NewMatcher(policy.Default(), zap.NewNop())
}

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

// profileFor 用评估器从记录构建完整画像
func profileFor(fields models.HealthFields) *models.HealthProfile {
	rec := &models.ConsolidatedRecord{
		PersonID:     "p1",
		Date:         "2026-03-01",
		Timestamp:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Sources:      []models.ProviderKind{models.ProviderDevice},
		HealthFields: fields,
	}
	ev := evaluator.NewEvaluator(policy.Default(), zap.NewNop()).Evaluate("p1", rec)
	return &models.HealthProfile{Criteria: ev.Criteria, Record: rec, Score: ev.Score}
}

func crisisProfile() *models.HealthProfile {
	return profileFor(models.HealthFields{
		BloodPressure:      &models.BloodPressure{Systolic: 190, Diastolic: 130},
		HeartRate:          floatPtr(130),
		EmergencyCondition: boolPtr(true),
	})
}

func standardUnit(id string) models.ResourceUnit {
	return models.ResourceUnit{ID: id, Name: "Bed " + id, Type: models.UnitStandard, Capacity: 1, Active: true}
}

func medicalUnit(id string) models.ResourceUnit {
	return models.ResourceUnit{
		ID:       id,
		Name:     "Medical " + id,
		Type:     models.UnitMedical,
		Capacity: 1,
		Active:   true,
		Amenities: models.Amenities{
			MedicalSupport: true,
			EmergencyAlert: true,
			StaffProximity: true,
		},
	}
}

func TestScoreUnit_CrisisAgainstStandardUnit(t *testing.T) {
	m := newTestMatcher()
	r := m.ScoreUnit(standardUnit("s1"), crisisProfile())

	assert.Less(t, r.Score, 20)
	assert.Equal(t, 0, r.Score)
	assert.Contains(t, r.Concerns, "No medical support for required supervision")
	assert.Contains(t, r.Concerns, "No emergency alert system")
	assert.Contains(t, r.Concerns, "Far from staff station")
	assert.Contains(t, r.Concerns, "No emergency alert for cardiac risk")
	assert.Contains(t, r.Concerns, "High health risk without on-site medical support")
}

func TestScoreUnit_CrisisAgainstMedicalUnit(t *testing.T) {
	m := newTestMatcher()
	r := m.ScoreUnit(medicalUnit("m1"), crisisProfile())

	assert.Greater(t, r.Score, 80)
	assert.Equal(t, 100, r.Score)
	assert.Contains(t, r.Reasons, "Medical support available")
	assert.Contains(t, r.Reasons, "Medical unit")
	assert.Empty(t, r.Concerns)
}

func TestScoreUnit_MedicationReminders(t *testing.T) {
	m := newTestMatcher()
	profile := &models.HealthProfile{Criteria: models.AccommodationCriteria{
		NeedsMedicationReminders: true,
		TemperatureRegulation:    models.TemperatureStandard,
	}}

	both := standardUnit("a")
	both.Amenities = models.Amenities{MedicationStorage: true, StaffProximity: true}
	storage := standardUnit("b")
	storage.Amenities = models.Amenities{MedicationStorage: true}

	assert.Equal(t, 35, m.ScoreUnit(both, profile).Score)
	assert.Equal(t, 28, m.ScoreUnit(storage, profile).Score)
	assert.Equal(t, 10, m.ScoreUnit(standardUnit("c"), profile).Score)
}

func TestScoreUnit_TemperatureIsConcernOnly(t *testing.T) {
	m := newTestMatcher()
	profile := &models.HealthProfile{Criteria: models.AccommodationCriteria{TemperatureRegulation: models.TemperatureCool}}

	controlled := standardUnit("a")
	controlled.Amenities.TemperatureControl = true

	assert.Equal(t, 30, m.ScoreUnit(controlled, profile).Score)
	r := m.ScoreUnit(standardUnit("b"), profile)
	assert.Equal(t, 20, r.Score)
	assert.Equal(t, []string{"No temperature control for cool environment"}, r.Concerns)
}

func TestScoreUnit_TypeBonuses(t *testing.T) {
	m := newTestMatcher()

	accessible := models.ResourceUnit{ID: "a", Type: models.UnitAccessible, Active: true,
		Amenities: models.Amenities{Accessibility: true}}
	profile := &models.HealthProfile{Criteria: models.AccommodationCriteria{
		NeedsAccessibility:    true,
		TemperatureRegulation: models.TemperatureStandard,
	}}
	// 20 + 15 + 12
	assert.Equal(t, 47, m.ScoreUnit(accessible, profile).Score)

	isolation := models.ResourceUnit{ID: "i", Type: models.UnitIsolation, Active: true,
		Amenities: models.Amenities{QuietZone: true}}
	profile = &models.HealthProfile{Criteria: models.AccommodationCriteria{
		RequiresQuietEnvironment: true,
		TemperatureRegulation:    models.TemperatureStandard,
	}}
	// 20 + 10 + 8
	assert.Equal(t, 38, m.ScoreUnit(isolation, profile).Score)
}

func TestScoreUnit_ConditionLayer(t *testing.T) {
	m := newTestMatcher()
	profile := profileFor(models.HealthFields{
		Conditions:  []string{"Type 1 Diabetes"},
		Medications: []string{"insulin"},
	})

	storage := standardUnit("a")
	storage.Amenities = models.Amenities{MedicationStorage: true, StaffProximity: true}
	r := m.ScoreUnit(storage, profile)
	assert.Contains(t, r.Reasons, "Medication storage suits diabetes care")

	bare := m.ScoreUnit(standardUnit("b"), profile)
	assert.Contains(t, bare.Concerns, "No medication storage for diabetes supplies")
	assert.Greater(t, r.Score, bare.Score)
}

func TestFindOptimalBeds_SkipsUnavailableAndSorts(t *testing.T) {
	m := newTestMatcher()

	inactive := medicalUnit("inactive")
	inactive.Active = false
	maintenance := medicalUnit("maintenance")
	maintenance.Maintenance = true

	units := []models.ResourceUnit{standardUnit("s1"), inactive, medicalUnit("m1"), maintenance, medicalUnit("m2")}
	results := m.FindOptimalBeds(units, crisisProfile(), 10)

	require.Len(t, results, 3)
	assert.Equal(t, "m1", results[0].Unit.ID)
	assert.Equal(t, "m2", results[1].Unit.ID)
	assert.Equal(t, "s1", results[2].Unit.ID)
	for _, r := range results {
		assert.True(t, r.Unit.Available())
		assert.GreaterOrEqual(t, r.Score, 0)
		assert.LessOrEqual(t, r.Score, 100)
	}

	top := m.FindOptimalBeds(units, crisisProfile(), 1)
	require.Len(t, top, 1)
	assert.Equal(t, "m1", top[0].Unit.ID)
}

func TestFindOptimalBeds_EmptyProfile(t *testing.T) {
	m := newTestMatcher()

	inactive := standardUnit("x")
	inactive.Active = false
	units := []models.ResourceUnit{standardUnit("s1"), medicalUnit("m1"), inactive}

	for _, profile := range []*models.HealthProfile{nil, {Criteria: models.DefaultCriteria()}} {
		results := m.FindOptimalBeds(units, profile, 0)
		require.Len(t, results, 2)
		assert.Equal(t, "s1", results[0].Unit.ID)
		assert.Equal(t, "m1", results[1].Unit.ID)
		for _, r := range results {
			assert.Equal(t, 50, r.Score)
			assert.Equal(t, []string{ReasonStandardAccommodation}, r.Reasons)
		}
	}
}

func TestFindOptimalBeds_NoUnits(t *testing.T) {
	results := newTestMatcher().FindOptimalBeds(nil, crisisProfile(), 5)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}
