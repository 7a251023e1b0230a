package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/thinkwright/prompt-evals/internal/server"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		addr        string
		adminSecret string
		corsOrigin  string
		logFormat   string
		gf          gatewayFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the evaluation, deep-analysis and rubric admin HTTP API",
		Long: `Start the HTTP API:

  POST /api/evaluate            heuristic evaluation
  POST /api/analyze             deep analysis through the provider gateway
  /api/levers, /api/models      rubric admin (localhost or X-Admin-Secret)
  /api/system/health|export|import

PORT, ADMIN_SECRET and CORS_ORIGIN override the settings file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(logFormat, g.verbose, slog.LevelInfo)
			a, err := loadApp(g, logger)
			if err != nil {
				return err
			}
			if err := gf.apply(cmd, &a.settings.Analysis); err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("addr") {
				a.settings.Server.Addr = addr
			}
			if flags.Changed("admin-secret") {
				a.settings.Server.AdminSecret = adminSecret
			}
			if flags.Changed("cors-origin") {
				a.settings.Server.CORSOrigin = corsOrigin
			}

			stack, err := newAnalysisStack(a)
			if err != nil {
				return err
			}
			defer stack.Close()

			if !g.verbose {
				gin.SetMode(gin.ReleaseMode)
			}
			if a.store.Dir() == "" {
				logger.Warn("no rubric directory configured, admin changes are kept in memory only")
			}

			srv := server.New(server.Config{
				Addr:        a.settings.Server.Addr,
				AdminSecret: a.settings.Server.AdminSecret,
				CORSOrigin:  a.settings.Server.CORSOrigin,
				Version:     version,
				Logger:      logger,
			}, a.engine, a.store, stack.service)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default :3005)")
	cmd.Flags().StringVar(&adminSecret, "admin-secret", "", "Secret required for admin routes from non-localhost hosts")
	cmd.Flags().StringVar(&corsOrigin, "cors-origin", "", "Allowed CORS origin(s), comma-separated, or *")
	cmd.Flags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	gf.register(cmd)
	// Server callers send their own key with each request.
	cmd.Flags().MarkHidden("api-key-env")
	return cmd
}
