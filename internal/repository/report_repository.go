package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fleetworks/motorpool-api/internal/dto"
)

// ReportRepository aggregates fleet usage figures.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// VehicleUsage sums completed/approved trips per vehicle over a window.
func (r *ReportRepository) VehicleUsage(ctx context.Context, from, to time.Time) ([]dto.VehicleUsageRow, error) {
	const query = `SELECT v.id AS vehicle_id, v.plate_number,
       COUNT(req.id) AS trip_count,
       COALESCE(SUM(EXTRACT(EPOCH FROM (req.return_at - req.depart_at)) / 3600), 0) AS total_hours
	FROM vehicles v
	JOIN requests req ON req.vehicle_id = v.id
	WHERE req.deleted_at IS NULL
	  AND req.status IN ('APPROVED', 'COMPLETED')
	  AND req.depart_at < $2
	  AND req.return_at > $1
	GROUP BY v.id, v.plate_number
	ORDER BY trip_count DESC`
	var rows []dto.VehicleUsageRow
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("vehicle usage: %w", err)
	}
	return rows, nil
}

// DepartmentUsage sums trips per requesting department over a window.
func (r *ReportRepository) DepartmentUsage(ctx context.Context, from, to time.Time) ([]dto.DepartmentUsageRow, error) {
	const query = `SELECT req.department_id,
       COUNT(req.id) AS trip_count,
       COALESCE(SUM(EXTRACT(EPOCH FROM (req.return_at - req.depart_at)) / 3600), 0) AS total_hours
	FROM requests req
	WHERE req.deleted_at IS NULL
	  AND req.status IN ('APPROVED', 'COMPLETED')
	  AND req.depart_at < $2
	  AND req.return_at > $1
	GROUP BY req.department_id
	ORDER BY trip_count DESC`
	var rows []dto.DepartmentUsageRow
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("department usage: %w", err)
	}
	return rows, nil
}
