package provider

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wisefido-health/internal/models"

	"go.uber.org/zap"
)

// DeviceRepository 可穿戴设备样本仓库（wearable_samples 表）
type DeviceRepository struct {
	db       *sql.DB
	priority int
	lookback time.Duration
	limit    int
	logger   *zap.Logger
}

// NewDeviceRepository 创建可穿戴设备样本仓库
func NewDeviceRepository(db *sql.DB, priority, lookbackDays, limit int, logger *zap.Logger) *DeviceRepository {
	if limit <= 0 {
		limit = 500
	}
	return &DeviceRepository{
		db:       db,
		priority: priority,
		lookback: time.Duration(lookbackDays) * 24 * time.Hour,
		limit:    limit,
		logger:   logger,
	}
}

func (r *DeviceRepository) Kind() models.ProviderKind { return models.ProviderDevice }

func (r *DeviceRepository) Priority() int { return r.priority }

// FetchSamples 获取回看窗口内的设备样本（按时间倒序）
func (r *DeviceRepository) FetchSamples(ctx context.Context, personID string) ([]models.HealthSample, error) {
	query := `
		SELECT
			recorded_at,
			heart_rate,
			systolic,
			diastolic,
			temperature,
			oxygen_saturation,
			respiratory_rate,
			steps,
			sleep_hours,
			sleep_quality,
			stress_level,
			emergency
		FROM wearable_samples
		WHERE person_id = $1 AND recorded_at >= $2
		ORDER BY recorded_at DESC
		LIMIT $3
	`

	since := time.Now().UTC().Add(-r.lookback)
	rows, err := r.db.QueryContext(ctx, query, personID, since, r.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query wearable_samples: %w", err)
	}
	defer rows.Close()

	var samples []models.HealthSample
	for rows.Next() {
		var s models.HealthSample
		var heartRate, systolic, diastolic, temperature, spo2, respiratoryRate sql.NullFloat64
		var sleepHours, stressLevel sql.NullFloat64
		var steps sql.NullInt64
		var sleepQuality sql.NullString
		var emergency sql.NullBool

		if err := rows.Scan(
			&s.Timestamp,
			&heartRate,
			&systolic,
			&diastolic,
			&temperature,
			&spo2,
			&respiratoryRate,
			&steps,
			&sleepHours,
			&sleepQuality,
			&stressLevel,
			&emergency,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		s.Timestamp = s.Timestamp.UTC()
		s.HeartRate = nullFloat(heartRate)
		s.Temperature = nullFloat(temperature)
		s.OxygenSaturation = nullFloat(spo2)
		s.RespiratoryRate = nullFloat(respiratoryRate)
		s.SleepHours = nullFloat(sleepHours)
		s.StressLevel = nullFloat(stressLevel)
		if systolic.Valid && diastolic.Valid {
			s.BloodPressure = &models.BloodPressure{Systolic: systolic.Float64, Diastolic: diastolic.Float64}
		}
		if steps.Valid {
			v := int(steps.Int64)
			s.Steps = &v
		}
		if sleepQuality.Valid && sleepQuality.String != "" {
			q := models.SleepQuality(sleepQuality.String)
			s.SleepQuality = &q
		}
		if emergency.Valid {
			v := emergency.Bool
			s.EmergencyCondition = &v
		}

		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	r.logger.Debug("Fetched wearable samples",
		zap.String("person_id", personID),
		zap.Int("sample_count", len(samples)),
	)

	return stampSamples(samples, personID, models.ProviderDevice), nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
