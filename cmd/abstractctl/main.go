package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aIcoder504/apbmt-2025-conference-system/config"
	"github.com/aIcoder504/apbmt-2025-conference-system/middleware"
	"github.com/aIcoder504/apbmt-2025-conference-system/models"
	"github.com/aIcoder504/apbmt-2025-conference-system/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "abstractctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "abstractctl",
		Short:        "Operator CLI for the abstract review database",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newMigrateCmd(),
		newBulkUpdateCmd(),
		newStatsCmd(),
	)
	return cmd
}

// openPipeline loads settings, connects and returns a ready pipeline.
func openPipeline() (*config.Settings, *services.Pipeline, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	config.InitLogging(settings.LogLevel)
	db, err := config.OpenDB(settings)
	if err != nil {
		return nil, nil, err
	}
	return settings, services.NewPipeline(db, settings), nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the abstracts, users and status history tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load()
			if err != nil {
				return err
			}
			db, err := config.OpenDB(settings)
			if err != nil {
				return err
			}
			if err := config.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
			return nil
		},
	}
}

type bulkUpdateOptions struct {
	ids     []string
	status  string
	comment string
	by      string
}

func newBulkUpdateCmd() *cobra.Command {
	var opts bulkUpdateOptions
	cmd := &cobra.Command{
		Use:     "bulk-update",
		Short:   "Change the status of several abstracts and print the summary as JSON",
		Example: "  abstractctl bulk-update --ids 10,11,12 --status approved --comment \"Well written\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pipeline, err := openPipeline()
			if err != nil {
				return err
			}
			defer pipeline.Close()
			return runBulkUpdate(cmd.Context(), cmd.OutOrStdout(), pipeline.Service, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.ids, "ids", nil, "Comma-separated abstract ids")
	cmd.Flags().StringVar(&opts.status, "status", "", "Target status")
	cmd.Flags().StringVar(&opts.comment, "comment", "", "Reviewer comment")
	cmd.Flags().StringVar(&opts.by, "by", "cli", "Actor recorded in the status history")
	_ = cmd.MarkFlagRequired("ids")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func runBulkUpdate(ctx context.Context, out io.Writer, svc *services.BulkStatusService, opts bulkUpdateOptions) error {
	req := services.NewBatchUpdateRequest(opts.ids, opts.status, opts.comment, opts.by)
	outcome, err := svc.Run(ctx, middleware.NewRequestID(), req)
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return fmt.Errorf("validation failed: %s", strings.Join(verr.Messages(), "; "))
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(services.BuildBulkResponse(outcome)); err != nil {
		return err
	}
	if outcome.OperationStatus != services.OperationSuccess {
		return fmt.Errorf("operation %s", strings.ToLower(outcome.OperationStatus))
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print abstract counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pipeline, err := openPipeline()
			if err != nil {
				return err
			}
			defer pipeline.Close()

			report, err := pipeline.Service.Statistics(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "database: %s\n", report.Database)
			for _, status := range models.ReportedStatuses {
				fmt.Fprintf(out, "%-16s %d\n", status, report.StatusCount[status])
			}
			fmt.Fprintf(out, "%-16s %d\n", "total", report.Total)
			return nil
		},
	}
}
