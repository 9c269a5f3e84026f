package main

import (
	"context"
	"fmt"

	"smallbiznis-trustescrow/pkg/db/pagination"
	"smallbiznis-trustescrow/services/dispute"
	"smallbiznis-trustescrow/services/escrow"
	"smallbiznis-trustescrow/services/ledger"
	"smallbiznis-trustescrow/services/risk"
	"smallbiznis-trustescrow/services/user"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// Models lists every table the engine owns or reads.
func Models() []any {
	return []any{&user.User{}, &ledger.TrustEvent{}, &escrow.Transaction{}, &dispute.Case{}}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the engine tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEngine(cmd.Context(), func(ctx context.Context, e engine) error {
				if err := e.DB.WithContext(ctx).AutoMigrate(Models()...); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrated", len(Models()), "tables")
				return nil
			})
		},
	}
}

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <user-id>",
		Short: "Recalculate and persist a user's trust score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd.Context(), func(ctx context.Context, e engine) error {
				res, err := e.TrustScore.Recalculate(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newRiskCmd() *cobra.Command {
	var req risk.Request
	var amount string
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Assess the counterparty risk of a proposed transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			req.Amount = d
			return runEngine(cmd.Context(), func(ctx context.Context, e engine) error {
				a, err := e.Risk.Assess(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), a)
			})
		},
	}
	cmd.Flags().StringVar(&req.ClientID, "client", "", "client user id")
	cmd.Flags().StringVar(&req.ProviderID, "provider", "", "provider user id")
	cmd.Flags().StringVar(&amount, "amount", "", "transaction amount")
	cmd.Flags().StringVar(&req.ServiceType, "service-type", "", "service type")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <transaction-id>",
		Short: "Show an escrow snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd.Context(), func(ctx context.Context, e engine) error {
				snap, err := e.Escrow.GetEscrowStatus(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), snap)
			})
		},
	}
}

func newEventsCmd() *cobra.Command {
	var page pagination.Pagination
	cmd := &cobra.Command{
		Use:   "events <user-id>",
		Short: "List a user's trust events, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd.Context(), func(ctx context.Context, e engine) error {
				events, info, err := e.Ledger.ListEvents(ctx, args[0], page)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"events": events, "page_info": info})
			})
		},
	}
	cmd.Flags().IntVar(&page.Limit, "limit", 50, "page size")
	cmd.Flags().StringVar(&page.Cursor, "cursor", "", "cursor from a previous page")
	return cmd
}

func newVerifyChainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-chain <user-id>...",
		Short: "Recompute the hash chain of each user's trust events",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd.Context(), func(ctx context.Context, e engine) error {
				broken := 0
				for _, id := range args {
					report, err := e.Ledger.VerifyChain(ctx, id)
					if err != nil {
						return err
					}
					if !report.Valid {
						broken++
					}
					if err := printJSON(cmd.OutOrStdout(), report); err != nil {
						return err
					}
				}
				if broken > 0 {
					return fmt.Errorf("%d of %d chains are broken", broken, len(args))
				}
				return nil
			})
		},
	}
}

func newCasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cases",
		Short: "List open dispute cases, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEngine(cmd.Context(), func(ctx context.Context, e engine) error {
				cases, err := e.Resolver.ListOpenCases(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), cases)
			})
		},
	}
}
