package payment

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/resumely/internal/models"
	"github.com/fatflowers/resumely/pkg/types"
)

const maxScanSize = 200

// ScanFields are the payment columns admin filters and sorting may reference.
var ScanFields = []string{
	"id", "user_id", "plan_type", "status", "provider_id", "currency", "amount",
	"stripe_session_id", "expires_at", "created_at", "updated_at",
}

// ScanPayments implements paginated/admin listing with filters
func (s *Service) ScanPayments(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidScanRequest)
	}
	for _, f := range req.Filters {
		if !f.Valid(ScanFields) {
			return nil, fmt.Errorf("%w: bad filter on %q", ErrInvalidScanRequest, lo.FromPtr(f).Field)
		}
	}
	if req.SortBy != "" && !lo.Contains(ScanFields, req.SortBy) {
		return nil, fmt.Errorf("%w: cannot sort by %q", ErrInvalidScanRequest, req.SortBy)
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.Size > maxScanSize {
		req.Size = maxScanSize
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Payment{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{types.FiltersAnd(req.Filters)}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}

	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: sortBy}, Desc: req.SortOrder != "asc"}}})

	var rows []*models.Payment
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return &ScanPaymentsResponse{Items: rows, Total: total}, nil
}
