package statistics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/resumely/internal/models"
	"github.com/fatflowers/resumely/pkg/types"
)

type StatisticType string

const (
	StatisticTypeDailyPaymentCount  StatisticType = "daily_payment_count"
	StatisticTypeDailyGmv           StatisticType = "daily_gmv"
	StatisticTypeTotalGmv           StatisticType = "total_gmv"
	StatisticTypeDailyNewPayerCount StatisticType = "daily_new_payer_count"
	StatisticTypeActivePlanCount    StatisticType = "active_plan_count"
	StatisticTypeDailyUsageCount    StatisticType = "daily_usage_count"
)

var statisticTypes = []StatisticType{
	StatisticTypeDailyPaymentCount,
	StatisticTypeDailyGmv,
	StatisticTypeTotalGmv,
	StatisticTypeDailyNewPayerCount,
	StatisticTypeActivePlanCount,
	StatisticTypeDailyUsageCount,
}

// validFilters lists, per filterable column, the statistics it applies to.
// A statistic requested together with a filter it does not support comes
// back empty rather than unfiltered.
var validFilters = map[string][]StatisticType{
	"plan_type":  {StatisticTypeDailyPaymentCount, StatisticTypeDailyGmv, StatisticTypeActivePlanCount},
	"currency":   {StatisticTypeDailyPaymentCount, StatisticTypeDailyGmv},
	"created_at": {StatisticTypeDailyPaymentCount, StatisticTypeDailyGmv, StatisticTypeDailyUsageCount},
	"kind":       {StatisticTypeDailyUsageCount},
}

type PaymentStatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type PaymentStatisticRequest struct {
	Filters   []*types.CommonFilter       `json:"filters"`
	DataItems []*PaymentStatisticDataItem `json:"data_items"`
}

// Validate rejects unknown statistics and filters on columns outside validFilters.
func (r *PaymentStatisticRequest) Validate() error {
	if r == nil || len(r.DataItems) == 0 {
		return fmt.Errorf("data_items is required")
	}
	for _, di := range r.DataItems {
		if di == nil || !lo.Contains(statisticTypes, di.ID) {
			return fmt.Errorf("invalid data item id: %v", lo.FromPtr(di).ID)
		}
	}
	for _, f := range r.Filters {
		if !f.Valid(lo.Keys(validFilters)) {
			return fmt.Errorf("invalid filter on %q", lo.FromPtr(f).Field)
		}
	}
	return nil
}

// applicable reports whether every filter of the request supports st.
func (r *PaymentStatisticRequest) applicable(st StatisticType) bool {
	for _, f := range r.Filters {
		if !lo.Contains(validFilters[f.Field], st) {
			return false
		}
	}
	return true
}

func (r *PaymentStatisticRequest) where() clause.Where {
	return clause.Where{Exprs: []clause.Expression{types.FiltersAnd(r.Filters)}}
}

type PaymentStatisticResponseDataItem struct {
	Date  string `json:"date,omitempty"`
	Label string `json:"label,omitempty"`
	Value int64  `json:"value"`
}

type PaymentStatisticResponse struct {
	DataItems map[StatisticType][]PaymentStatisticResponseDataItem `json:"data_items"`
}

// Service aggregates payments and usage for the admin dashboard.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Service { return &Service{db: db, now: time.Now} }

// dateExpr formats created_at as YYYY-MM-DD for the connected dialect.
func (s *Service) dateExpr() string {
	if s.db.Dialector.Name() == "postgres" {
		return "TO_CHAR(created_at, 'YYYY-MM-DD')"
	}
	return "substr(created_at, 1, 10)"
}

func (s *Service) purchases(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("provider_id != ?", types.PaymentProviderInner).
		Where("status = ?", types.PaymentStatusCompleted)
}

func (s *Service) getDailyPaymentCount(ctx context.Context, request *PaymentStatisticRequest) ([]PaymentStatisticResponseDataItem, error) {
	var results []PaymentStatisticResponseDataItem
	date := s.dateExpr()
	err := s.purchases(ctx).
		Select(date + " AS date, count(*) AS value").
		Where(request.where()).
		Group(date).
		Order("date").
		Find(&results).Error
	return results, err
}

func (s *Service) getDailyGmv(ctx context.Context, request *PaymentStatisticRequest) ([]PaymentStatisticResponseDataItem, error) {
	var results []PaymentStatisticResponseDataItem
	date := s.dateExpr()
	err := s.purchases(ctx).
		Select(date + " AS date, currency AS label, sum(amount) AS value").
		Where(request.where()).
		Group(date).
		Group("currency").
		Order("date").
		Order("label").
		Find(&results).Error
	return results, err
}

// getTotalGmv returns the running GMV per currency, one row per day with sales.
func (s *Service) getTotalGmv(ctx context.Context, _ *PaymentStatisticRequest) ([]PaymentStatisticResponseDataItem, error) {
	daily, err := s.getDailyGmv(ctx, &PaymentStatisticRequest{})
	if err != nil {
		return nil, err
	}
	totals := make(map[string]int64)
	results := make([]PaymentStatisticResponseDataItem, 0, len(daily))
	for _, d := range daily {
		totals[d.Label] += d.Value
		results = append(results, PaymentStatisticResponseDataItem{Date: d.Date, Label: d.Label, Value: totals[d.Label]})
	}
	return results, nil
}

func (s *Service) getDailyNewPayerCount(ctx context.Context, _ *PaymentStatisticRequest) ([]PaymentStatisticResponseDataItem, error) {
	var results []PaymentStatisticResponseDataItem
	firstPurchase := s.purchases(ctx).
		Select("user_id, MIN(" + s.dateExpr() + ") AS first_date").
		Group("user_id")
	err := s.db.WithContext(ctx).Table("(?) AS first_purchase", firstPurchase).
		Select("first_date AS date, count(*) AS value").
		Group("first_date").
		Order("date").
		Find(&results).Error
	return results, err
}

// getActivePlanCount counts users whose most recent completed payment has not expired, by plan.
func (s *Service) getActivePlanCount(ctx context.Context, request *PaymentStatisticRequest) ([]PaymentStatisticResponseDataItem, error) {
	var results []PaymentStatisticResponseDataItem
	latest := s.db.WithContext(ctx).Table("payment AS latest").
		Select("MAX(latest.created_at)").
		Where("latest.user_id = payment.user_id").
		Where("latest.status = ?", types.PaymentStatusCompleted)
	err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Select("plan_type AS label, count(*) AS value").
		Where("status = ?", types.PaymentStatusCompleted).
		Where("expires_at >= ?", s.now().UTC()).
		Where("created_at = (?)", latest).
		Where(request.where()).
		Group("plan_type").
		Order("label").
		Find(&results).Error
	return results, err
}

func (s *Service) getDailyUsageCount(ctx context.Context, request *PaymentStatisticRequest) ([]PaymentStatisticResponseDataItem, error) {
	var results []PaymentStatisticResponseDataItem
	date := s.dateExpr()
	err := s.db.WithContext(ctx).Model(&models.PaymentLog{}).
		Select(date+" AS date, kind AS label, sum(delta) AS value").
		Where("reason IN ?", []types.PaymentChangeReason{types.PaymentChangeReasonUsage, types.PaymentChangeReasonUsageRefund}).
		Where(request.where()).
		Group(date).
		Group("kind").
		Order("date").
		Order("label").
		Find(&results).Error
	return results, err
}

func (s *Service) getPaymentStatistic(ctx context.Context, request *PaymentStatisticRequest, dataItem *PaymentStatisticDataItem) ([]PaymentStatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeDailyPaymentCount:
		return s.getDailyPaymentCount(ctx, request)
	case StatisticTypeDailyGmv:
		return s.getDailyGmv(ctx, request)
	case StatisticTypeTotalGmv:
		return s.getTotalGmv(ctx, request)
	case StatisticTypeDailyNewPayerCount:
		return s.getDailyNewPayerCount(ctx, request)
	case StatisticTypeActivePlanCount:
		return s.getActivePlanCount(ctx, request)
	case StatisticTypeDailyUsageCount:
		return s.getDailyUsageCount(ctx, request)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", dataItem.ID)
	}
}

// GetPaymentStatistic computes the requested data items concurrently.
func (s *Service) GetPaymentStatistic(ctx context.Context, request *PaymentStatisticRequest) (*PaymentStatisticResponse, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		firstEr error
	)
	entries := make([]lo.Entry[StatisticType, []PaymentStatisticResponseDataItem], 0, len(request.DataItems))
	for _, item := range request.DataItems {
		wg.Add(1)
		go func(di *PaymentStatisticDataItem) {
			defer wg.Done()
			var (
				res []PaymentStatisticResponseDataItem
				err error
			)
			if request.applicable(di.ID) {
				res, err = s.getPaymentStatistic(ctx, request, di)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstEr == nil {
					firstEr = fmt.Errorf("failed to compute %s: %w", di.ID, err)
				}
				return
			}
			entries = append(entries, lo.Entry[StatisticType, []PaymentStatisticResponseDataItem]{Key: di.ID, Value: res})
		}(item)
	}
	wg.Wait()
	if firstEr != nil {
		return nil, firstEr
	}
	return &PaymentStatisticResponse{DataItems: lo.FromEntries(entries)}, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
