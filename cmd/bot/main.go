package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"aimdot-bot/internal/config"
	"aimdot-bot/internal/constants"
	"aimdot-bot/internal/discord"
	fxmodules "aimdot-bot/internal/fx"
	"aimdot-bot/internal/middleware"
	"aimdot-bot/internal/server"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
		fx.Invoke(runGateway),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	srv *server.Server,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	if !cfg.EnableWeb {
		logger.Info().Msg("web server disabled")
		return
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           middleware.RequestID(logger)(c.Handler(srv.Handler())),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", httpSrv.Addr).Msg("server starting")
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}

func runGateway(lc fx.Lifecycle, bot *discord.Bot) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return bot.Start()
		},
		OnStop: func(context.Context) error {
			return bot.Stop()
		},
	})
}
