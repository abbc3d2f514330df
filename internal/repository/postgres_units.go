package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wisefido-health/internal/models"

	"go.uber.org/zap"
)

// PostgresUnitsRepo 床位仓库（resource_units 表）
type PostgresUnitsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresUnitsRepo 创建床位仓库
func NewPostgresUnitsRepo(db *sql.DB, logger *zap.Logger) *PostgresUnitsRepo {
	return &PostgresUnitsRepo{db: db, logger: logger}
}

const unitColumns = `
			unit_id,
			unit_name,
			unit_type,
			capacity,
			COALESCE(medical_capacity, 0),
			accessibility,
			medical_support,
			quiet_zone,
			staff_proximity,
			temperature_control,
			medication_storage,
			emergency_alert,
			active,
			maintenance`

func (r *PostgresUnitsRepo) ListUnits(ctx context.Context) ([]models.ResourceUnit, error) {
	query := `SELECT ` + unitColumns + `
		FROM resource_units
		ORDER BY unit_name, unit_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query resource_units: %w", err)
	}
	defer rows.Close()

	var units []models.ResourceUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resource_units: %w", err)
	}

	r.logger.Debug("Loaded resource units", zap.Int("unit_count", len(units)))
	return units, nil
}

func (r *PostgresUnitsRepo) GetUnit(ctx context.Context, unitID string) (*models.ResourceUnit, error) {
	query := `SELECT ` + unitColumns + `
		FROM resource_units
		WHERE unit_id = $1
	`

	u, err := scanUnit(r.db.QueryRowContext(ctx, query, unitID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnitNotFound
		}
		return nil, err
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUnit(row rowScanner) (*models.ResourceUnit, error) {
	var u models.ResourceUnit
	var unitType string
	var name sql.NullString

	err := row.Scan(
		&u.ID,
		&name,
		&unitType,
		&u.Capacity,
		&u.MedicalCapacity,
		&u.Amenities.Accessibility,
		&u.Amenities.MedicalSupport,
		&u.Amenities.QuietZone,
		&u.Amenities.StaffProximity,
		&u.Amenities.TemperatureControl,
		&u.Amenities.MedicationStorage,
		&u.Amenities.EmergencyAlert,
		&u.Active,
		&u.Maintenance,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan resource unit: %w", err)
	}

	u.Name = name.String
	u.Type = models.UnitType(unitType)
	switch u.Type {
	case models.UnitStandard, models.UnitMedical, models.UnitAccessible, models.UnitIsolation:
	default:
		u.Type = models.UnitStandard
	}
	return &u, nil
}
