// Package gate runs entitlement-gated actions: AI writing assistance and
// document downloads. Each action spends one unit of allowance and gives it
// back when the paid-for work fails downstream.
package gate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/resumely/internal/app/service/draft"
	"github.com/fatflowers/resumely/internal/app/service/enhance"
	"github.com/fatflowers/resumely/internal/app/service/entitlement"
	"github.com/fatflowers/resumely/internal/app/service/usage"
	"github.com/fatflowers/resumely/internal/models"
	"github.com/fatflowers/resumely/internal/platform/gemini"
	"github.com/fatflowers/resumely/internal/platform/render"
	"github.com/fatflowers/resumely/pkg/logctx"
	"github.com/fatflowers/resumely/pkg/metrics"
	"github.com/fatflowers/resumely/pkg/types"
)

const (
	actionEnhance  = "enhance"
	actionDownload = "download"
)

var unsafeFilename = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

type AIProvider interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

type Renderer interface {
	Render(doc render.Document) ([]byte, error)
}

type DraftStore interface {
	Get(ctx context.Context, userID, id string) (*models.CVDraft, error)
}

// Ledger is the part of the usage ledger the gate spends from.
type Ledger interface {
	Record(ctx context.Context, userID string, kind types.UsageKind) (*usage.Result, error)
	Release(ctx context.Context, paymentID string, kind types.UsageKind) error
}

type EnhanceRequest struct {
	Type enhance.Type `json:"type"`
	Text string       `json:"text" binding:"required"`
}

type EnhanceResult struct {
	*enhance.Output
	Usage *usage.Result `json:"usage"`
}

type DownloadResult struct {
	Filename string
	PDF      []byte
	Usage    *usage.Result
}

type Service struct {
	log      *zap.SugaredLogger
	ledger   Ledger
	ai       AIProvider
	renderer Renderer
	drafts   DraftStore
}

func NewService(log *zap.SugaredLogger, ledger Ledger, ai AIProvider, renderer Renderer, drafts DraftStore) *Service {
	return &Service{log: log, ledger: ledger, ai: ai, renderer: renderer, drafts: drafts}
}

// Enhance spends one AI request and returns the cleaned model output. The
// provider is never called unless the request was recorded.
func (s *Service) Enhance(ctx context.Context, userID string, req *EnhanceRequest) (res *EnhanceResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveGatedAction(actionEnhance, resultLabel(err), start) }()

	if userID == "" {
		return nil, entitlement.ErrUnauthenticated
	}
	if err := enhance.Validate(req.Text); err != nil {
		return nil, err
	}
	lg := logctx.FromCtx(ctx, s.log).With("type", req.Type)

	spent, err := s.ledger.Record(ctx, userID, types.UsageKindAIRequest)
	if err != nil {
		return nil, err
	}

	prompt := enhance.PromptFor(req.Type, req.Text)
	content, err := s.ai.Generate(ctx, prompt.System, prompt.User)
	if err != nil {
		lg.Errorw("ai provider failed, releasing usage", "payment_id", spent.PaymentID, "err", err)
		s.release(ctx, spent)
		return nil, entitlement.Upstream(err)
	}
	return &EnhanceResult{Output: enhance.Process(req.Type, content), Usage: spent}, nil
}

// Download spends one download and renders the user's draft as a PDF.
func (s *Service) Download(ctx context.Context, userID, draftID string) (res *DownloadResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveGatedAction(actionDownload, resultLabel(err), start) }()

	if userID == "" {
		return nil, entitlement.ErrUnauthenticated
	}
	d, err := s.drafts.Get(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}

	spent, err := s.ledger.Record(ctx, userID, types.UsageKindDownload)
	if err != nil {
		return nil, err
	}

	pdf, err := s.renderer.Render(render.Document{Title: d.Title, Data: []byte(d.CVData)})
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("failed to render draft, releasing usage", "draft_id", d.ID, "err", err)
		s.release(ctx, spent)
		return nil, fmt.Errorf("failed to render document: %w", err)
	}
	return &DownloadResult{Filename: filename(d), PDF: pdf, Usage: spent}, nil
}

func (s *Service) release(ctx context.Context, spent *usage.Result) {
	if err := s.ledger.Release(ctx, spent.PaymentID, spent.Kind); err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("failed to release usage", "payment_id", spent.PaymentID, "kind", spent.Kind, "err", err)
	}
}

func filename(d *models.CVDraft) string {
	name := strings.Trim(unsafeFilename.ReplaceAllString(strings.TrimSpace(d.Title), "-"), "-")
	if name == "" {
		name = "cv"
	}
	return name + ".pdf"
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, enhance.ErrEmptyText), errors.Is(err, draft.ErrDraftNotFound):
		return string(entitlement.KindInvalidRequest)
	default:
		return string(entitlement.KindOf(err))
	}
}

func newService(log *zap.SugaredLogger, ledger *usage.Service, ai *gemini.Client, renderer *render.PDFRenderer, drafts *draft.Service) *Service {
	return NewService(log, ledger, ai, renderer, drafts)
}

var Module = fx.Options(
	fx.Provide(newService),
)
