package repository

import (
	"context"
	"errors"

	"wisefido-health/internal/models"
)

// ErrUnitNotFound 床位不存在
var ErrUnitNotFound = errors.New("resource unit not found")

// UnitsRepository 床位只读仓库（床位由外部系统管理）
type UnitsRepository interface {
	// ListUnits 列出全部床位（包括停用和维护中的床位，由匹配器过滤）
	ListUnits(ctx context.Context) ([]models.ResourceUnit, error)
	// GetUnit 获取单个床位
	GetUnit(ctx context.Context, unitID string) (*models.ResourceUnit, error)
}
