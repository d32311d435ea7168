package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/resumely/internal/app/api/server"
	"github.com/fatflowers/resumely/internal/app/service/draft"
	"github.com/fatflowers/resumely/internal/app/service/entitlement"
	"github.com/fatflowers/resumely/internal/app/service/gate"
	"github.com/fatflowers/resumely/internal/app/service/payment"
	"github.com/fatflowers/resumely/internal/app/service/payment_log"
	"github.com/fatflowers/resumely/internal/app/service/statistics"
	"github.com/fatflowers/resumely/internal/app/service/usage"
	"github.com/fatflowers/resumely/internal/platform/db"
	"github.com/fatflowers/resumely/internal/platform/gemini"
	"github.com/fatflowers/resumely/internal/platform/identity"
	"github.com/fatflowers/resumely/internal/platform/lock"
	"github.com/fatflowers/resumely/internal/platform/render"
	"github.com/fatflowers/resumely/internal/platform/stripe"
	"github.com/fatflowers/resumely/pkg/config"
	"github.com/fatflowers/resumely/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	identity.Module,
	stripe.Module,
	gemini.Module,
	lock.Module,
	render.Module,
	entitlement.Module,
	payment_log.Module,
	usage.Module,
	payment.Module,
	draft.Module,
	gate.Module,
	statistics.Module,
	server.Module,
)
