package main

import (
	"context"
	"encoding/json"
	"io"

	"smallbiznis-trustescrow/pkg/config"
	"smallbiznis-trustescrow/pkg/db"
	"smallbiznis-trustescrow/pkg/gen"
	"smallbiznis-trustescrow/pkg/hashistack/secretmanager"
	"smallbiznis-trustescrow/pkg/logger"
	"smallbiznis-trustescrow/pkg/mirror"
	"smallbiznis-trustescrow/pkg/payment"
	"smallbiznis-trustescrow/services/dispute"
	"smallbiznis-trustescrow/services/escrow"
	"smallbiznis-trustescrow/services/ledger"
	"smallbiznis-trustescrow/services/risk"
	"smallbiznis-trustescrow/services/trustscore"
	"smallbiznis-trustescrow/services/user"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// engine is the service graph the operator commands run against.
type engine struct {
	fx.In
	DB         *gorm.DB
	Ledger     *ledger.Service
	Risk       *risk.Service
	Resolver   *dispute.Resolver
	Escrow     *escrow.Service
	TrustScore *trustscore.Service
}

var engineModules = fx.Options(
	secretmanager.Options(),
	config.Options(),
	logger.Module,
	db.Module,
	gen.Module,
	mirror.Module,
	payment.Module,
	user.Module,
	ledger.Module,
	risk.Module,
	dispute.Module,
	escrow.Module,
	trustscore.Module,
)

// runEngine starts the service graph, runs fn and stops the graph.
func runEngine(ctx context.Context, fn func(ctx context.Context, e engine) error) error {
	var e engine
	app := fx.New(
		engineModules,
		fx.Invoke(func(in engine) { e = in }),
		fx.NopLogger,
	)
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = app.Stop(context.Background()) }()
	return fn(ctx, e)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "trustctl",
		Short:         "Operate the trust and escrow engine",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newMigrateCmd(),
		newScoreCmd(),
		newRiskCmd(),
		newStatusCmd(),
		newEventsCmd(),
		newVerifyChainCmd(),
		newCasesCmd(),
	)
	return root
}
