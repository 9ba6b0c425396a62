package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/compositor"
	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/logging"
	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/server"
	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/template"
)

// newServeCmd creates the serve command.
func (a *App) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the compositor over HTTP",
		Long: `Serve POST /api/v1/compose and GET /api/v1/health.

The template is mapped into memory once and shared by every request. The
server stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}

			store, err := template.Open(cfg.Template.Path)
			if err != nil {
				logDetails(logger, err)
				return fmt.Errorf("failed to open template: %w", err)
			}
			defer store.Close()

			c, err := compositor.New(cfg.Geometry, compositor.WithLogger(logger))
			if err != nil {
				return err
			}
			if err := c.CheckTemplate(store.Bytes()); err != nil {
				return fmt.Errorf("unusable template %s: %w", store.Path(), err)
			}
			logging.NewEvent(logger.Info()).
				Add(logging.Str("template", store.Path())).
				Add(logging.Size("template_bytes", len(store.Bytes()))).
				Msg("template loaded")

			srv := server.New(server.Options{
				Config:     cfg.Server,
				Compositor: c,
				Template:   store,
				Logger:     logger,
				Version:    Version,
			})
			return srv.Run(cmd.Context())
		},
	}
}
