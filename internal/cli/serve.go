package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rbright/ringbell/internal/api"
	"github.com/rbright/ringbell/internal/diary"
	"github.com/rbright/ringbell/internal/feedback"
	"github.com/rbright/ringbell/internal/sentiment"
	"github.com/rbright/ringbell/internal/server"
)

func newServeCommand(env *Env) *cobra.Command {
	var noStore bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the diary server (sentiment and feedback proxy)",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := env.cfg()
			logger := env.Logger

			var store *diary.Store
			if !noStore {
				path, err := cfg.DiaryDBPath()
				if err != nil {
					return fmt.Errorf("resolve diary path: %w", err)
				}
				store, err = diary.OpenStore(path)
				if err != nil {
					return err
				}
				defer store.Close()
				logger.Info("diary store opened", zap.String("path", path))
			}

			svc := diary.NewService(
				sentiment.NewHuggingFace(cfg.Sentiment, logger),
				feedback.NewOpenAI(cfg.Feedback, logger),
				store,
				logger,
			)
			router := api.NewRouter(svc, cfg.Server.AllowedOrigins, logger)

			fmt.Fprintf(env.Stderr, "diary server listening on %s\n", cfg.Server.Addr)
			return server.New(cfg.Server, router, logger).Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not record entries in the diary database")
	return cmd
}
