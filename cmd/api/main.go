package main

// @title           Resumely Backend API
// @version         1.0
// @description     Plans, usage allowances, payments and gated actions for the résumé builder.

// @host      localhost:8888
// @BasePath  /

// @securityDefinitions.basic  BasicAuth

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/resumely/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	// the app logger may not exist yet when start fails
	fallback := zap.NewExample().Sugar()

	a := fx.New(app.Module)
	startCtx, cancel := context.WithTimeout(context.Background(), app.DefaultStartTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		fallback.Errorf("failed to start app: %v", err)
		return 1
	}

	sig := <-a.Wait()
	fallback.Infof("shutting down on %v", sig.Signal)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
	defer stopCancel()
	if err := a.Stop(stopCtx); err != nil {
		fallback.Errorf("failed to stop app: %v", err)
		return 1
	}
	return sig.ExitCode
}
