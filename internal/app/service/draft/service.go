package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fatflowers/resumely/internal/app/service/entitlement"
	"github.com/fatflowers/resumely/internal/models"
	"github.com/fatflowers/resumely/pkg/logctx"
	"github.com/fatflowers/resumely/pkg/tool"
)

var (
	ErrDraftNotFound = errors.New("draft not found")
	ErrInvalidDraft  = errors.New("cv_data must be a JSON object")
)

const listLimit = 50

type SaveRequest struct {
	// ID is empty to create a new draft.
	ID     string          `json:"id,omitempty"`
	Title  string          `json:"title"`
	CVData json.RawMessage `json:"cv_data" swaggertype:"object"`
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	now func() time.Time
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log, now: time.Now}
}

// List returns the user's drafts, most recently updated first.
func (s *Service) List(ctx context.Context, userID string) ([]*models.CVDraft, error) {
	if userID == "" {
		return nil, entitlement.ErrUnauthenticated
	}
	var drafts []*models.CVDraft
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(listLimit).
		Find(&drafts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return drafts, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*models.CVDraft, error) {
	if userID == "" {
		return nil, entitlement.ErrUnauthenticated
	}
	var d models.CVDraft
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	return &d, nil
}

// Save creates a draft, or overwrites one the user owns when req.ID is set.
func (s *Service) Save(ctx context.Context, userID string, req *SaveRequest) (*models.CVDraft, error) {
	if userID == "" {
		return nil, entitlement.ErrUnauthenticated
	}
	data := req.CVData
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, ErrInvalidDraft
	}

	now := s.now().UTC()
	if req.ID == "" {
		d := &models.CVDraft{
			ID:        tool.GenerateUUIDV7(),
			UserID:    userID,
			Title:     req.Title,
			CVData:    datatypes.JSON(data),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
			return nil, fmt.Errorf("failed to create draft: %w", err)
		}
		logctx.FromCtx(ctx, s.log).Infow("draft created", "draft_id", d.ID)
		return d, nil
	}

	res := s.db.WithContext(ctx).Model(&models.CVDraft{}).
		Where("id = ? AND user_id = ?", req.ID, userID).
		Updates(map[string]any{"title": req.Title, "cv_data": datatypes.JSON(data), "updated_at": now})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update draft: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrDraftNotFound
	}
	return s.Get(ctx, userID, req.ID)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return entitlement.ErrUnauthenticated
	}
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.CVDraft{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete draft: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDraftNotFound
	}
	return nil
}

var Module = fx.Options(
	fx.Provide(NewService),
)
