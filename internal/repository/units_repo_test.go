package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"wisefido-health/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var unitColumnNames = []string{
	"unit_id", "unit_name", "unit_type", "capacity", "medical_capacity",
	"accessibility", "medical_support", "quiet_zone", "staff_proximity",
	"temperature_control", "medication_storage", "emergency_alert", "active", "maintenance",
}

func TestPostgresUnitsRepo_ListUnits(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUnitsRepo(db, zap.NewNop())

	rows := sqlmock.NewRows(unitColumnNames).
		AddRow("bed-1", "Medical 1", "medical", 1, 1, false, true, false, true, false, true, true, true, false).
		AddRow("bed-2", nil, "penthouse", 2, 0, true, false, true, false, false, false, false, true, true)
	mock.ExpectQuery("SELECT (.+) FROM resource_units").WillReturnRows(rows)

	units, err := repo.ListUnits(context.Background())
	require.NoError(t, err)
	require.Len(t, units, 2)

	assert.Equal(t, "bed-1", units[0].ID)
	assert.Equal(t, models.UnitMedical, units[0].Type)
	assert.True(t, units[0].Amenities.MedicalSupport)
	assert.True(t, units[0].Amenities.EmergencyAlert)
	assert.True(t, units[0].Available())

	// 未知类型按 standard 处理
	assert.Equal(t, models.UnitStandard, units[1].Type)
	assert.Equal(t, "", units[1].Name)
	assert.False(t, units[1].Available())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUnitsRepo_GetUnit(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUnitsRepo(db, zap.NewNop())

	mock.ExpectQuery("SELECT (.+) FROM resource_units WHERE unit_id = \\$1").
		WithArgs("bed-1").
		WillReturnRows(sqlmock.NewRows(unitColumnNames).
			AddRow("bed-1", "Quiet 1", "isolation", 1, 0, false, false, true, false, true, false, false, true, false))

	u, err := repo.GetUnit(context.Background(), "bed-1")
	require.NoError(t, err)
	assert.Equal(t, models.UnitIsolation, u.Type)
	assert.True(t, u.Amenities.QuietZone)

	mock.ExpectQuery("SELECT (.+) FROM resource_units WHERE unit_id = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(unitColumnNames))

	_, err = repo.GetUnit(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrUnitNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUnitsRepo_QueryError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUnitsRepo(db, zap.NewNop())

	mock.ExpectQuery("SELECT (.+) FROM resource_units").WillReturnError(errors.New("boom"))
	_, err := repo.ListUnits(context.Background())
	assert.Error(t, err)
}

func TestMemoryUnitsRepo(t *testing.T) {
	repo := NewMemoryUnitsRepo(DemoUnits()...)
	ctx := context.Background()

	units, err := repo.ListUnits(ctx)
	require.NoError(t, err)
	assert.Len(t, units, len(DemoUnits()))
	assert.Equal(t, "bed-101", units[0].ID)

	updated := units[0]
	updated.Maintenance = true
	repo.UpsertUnit(updated)
	u, err := repo.GetUnit(ctx, "bed-101")
	require.NoError(t, err)
	assert.True(t, u.Maintenance)

	repo.DeleteUnit("bed-101")
	_, err = repo.GetUnit(ctx, "bed-101")
	assert.True(t, errors.Is(err, ErrUnitNotFound))
	units, _ = repo.ListUnits(ctx)
	assert.Len(t, units, len(DemoUnits())-1)
	assert.Equal(t, "bed-102", units[0].ID)
}

// countingRepo 记录底层调用次数
type countingRepo struct {
	UnitsRepository
	lists int32
	gets  int32
}

func (c *countingRepo) ListUnits(ctx context.Context) ([]models.ResourceUnit, error) {
	atomic.AddInt32(&c.lists, 1)
	return c.UnitsRepository.ListUnits(ctx)
}

func (c *countingRepo) GetUnit(ctx context.Context, id string) (*models.ResourceUnit, error) {
	atomic.AddInt32(&c.gets, 1)
	return c.UnitsRepository.GetUnit(ctx, id)
}

func TestCachedUnitsRepo(t *testing.T) {
	inner := &countingRepo{UnitsRepository: NewMemoryUnitsRepo(DemoUnits()...)}
	repo := NewCachedUnitsRepo(inner, time.Minute, zap.NewNop())
	ctx := context.Background()

	first, err := repo.ListUnits(ctx)
	require.NoError(t, err)
	second, err := repo.ListUnits(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.lists))

	// 调用方修改结果不影响缓存
	second[0].Name = "changed"
	third, _ := repo.ListUnits(ctx)
	assert.Equal(t, "Dorm A-101", third[0].Name)

	_, err = repo.GetUnit(ctx, "bed-301")
	require.NoError(t, err)
	_, err = repo.GetUnit(ctx, "bed-301")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.gets))

	_, err = repo.GetUnit(ctx, "missing")
	assert.True(t, errors.Is(err, ErrUnitNotFound))

	repo.Invalidate()
	_, _ = repo.ListUnits(ctx)
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.lists))
}
