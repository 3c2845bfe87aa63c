package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/profile-api/internal/config"
	"github.com/couchcryptid/profile-api/internal/database"
	"github.com/couchcryptid/profile-api/internal/diagnostics"
	"github.com/couchcryptid/profile-api/internal/observability"
	"github.com/spf13/cobra"
)

var errDiagnosticsFailed = errors.New("diagnostics failed")

// newDiagCmd runs the same checks as GET /diag-db from a shell, for hosts
// where the HTTP surface is not reachable.
func newDiagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diag",
		Short: "Run connectivity diagnostics and print the report as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := observability.NewLogger(cfg)

			manager := database.NewManager(cfg.DatabaseURL, poolOptions(cfg), logger)
			defer manager.Close()

			d := diagnostics.New(manager.Probe(), manager, observability.NewMetrics(), logger,
				diagnostics.WithTimeout(cfg.ProbeTimeout))
			report := d.Run(cmd.Context())

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report.Fields()); err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
			if !report.OK() {
				return errDiagnosticsFailed
			}
			return nil
		},
	}
}
