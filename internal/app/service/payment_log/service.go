package payment_log

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fatflowers/resumely/internal/models"
	"github.com/fatflowers/resumely/pkg/logctx"
	"github.com/fatflowers/resumely/pkg/tool"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// SaveEvent asynchronously persists a verification or webhook event. Nil input is ignored.
func (s *Service) SaveEvent(ctx context.Context, event *models.PaymentEventLog) {
	if event == nil {
		return
	}
	if event.ID == "" {
		event.ID = tool.GenerateUUIDV7()
	}
	if event.TraceID == "" {
		event.TraceID = logctx.TraceID(ctx)
	}
	go func() {
		if err := s.db.Save(event).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save payment event log: %v", err)
		}
	}()
}

// SaveChange asynchronously appends a counter change or insertion to payment_log.
func (s *Service) SaveChange(ctx context.Context, change *models.PaymentLog) {
	if change == nil {
		return
	}
	if change.ID == "" {
		change.ID = tool.GenerateUUIDV7()
	}
	if change.CreatedAt.IsZero() {
		change.CreatedAt = time.Now().UTC()
	}
	go func() {
		if err := s.db.Create(change).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save payment log: %v", err)
		}
	}()
}

// JSON encodes v for an event log column, returning nil on failure.
func JSON(v any) *datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	j := datatypes.JSON(b)
	return &j
}

var Module = fx.Options(
	fx.Provide(New),
)
