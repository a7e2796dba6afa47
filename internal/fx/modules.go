package fx

import (
	"context"

	"aimdot-bot/internal/api"
	"aimdot-bot/internal/auth"
	"aimdot-bot/internal/config"
	"aimdot-bot/internal/discord"
	"aimdot-bot/internal/live"
	"aimdot-bot/internal/logger"
	"aimdot-bot/internal/notify"
	"aimdot-bot/internal/repository"
	"aimdot-bot/internal/server"
	"aimdot-bot/internal/service"
	"aimdot-bot/internal/store"

	"go.uber.org/fx"
)

func ProvideGuildCounter(bot *discord.Bot) server.GuildCounter {
	return bot
}

func ProvideLiveNotifier(hub *live.Hub) service.Notifier {
	return hub
}

// RunHub ties the live hub loop to the application lifecycle.
func RunHub(lc fx.Lifecycle, hub *live.Hub) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go hub.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	store.Module,
	// repos
	fx.Provide(repository.NewPartyRepository),
	fx.Provide(repository.NewUserRecordRepository),
	fx.Provide(repository.NewWebUserRepository),
	// api client
	fx.Provide(api.NewDiscordClient),
	// svc
	fx.Provide(service.NewStatsService),
	fx.Provide(service.NewPartyService),
	// notifications
	fx.Provide(notify.NewRenderer),
	fx.Provide(
		fx.Annotate(discord.NewChatClient, fx.As(new(notify.ChatClient))),
		fx.Annotate(notify.NewPublisher, fx.As(new(service.Notifier)), fx.ResultTags(`group:"notifiers"`)),
	),
	fx.Provide(live.NewHub),
	fx.Provide(fx.Annotate(ProvideLiveNotifier, fx.ResultTags(`group:"notifiers"`))),
	fx.Invoke(RunHub),
	// discord gateway
	fx.Provide(discord.NewSession),
	fx.Provide(fx.Annotate(discord.NewPartyModule, fx.As(new(discord.Module)), fx.ResultTags(`group:"modules"`))),
	fx.Provide(discord.NewBot),
	fx.Provide(ProvideGuildCounter),
	// auth
	fx.Provide(auth.NewOAuthConfig),
	fx.Provide(auth.NewJWTManager),
	fx.Provide(auth.NewPermissionManager),
	fx.Provide(auth.NewService),
	// server
	fx.Provide(server.New),
)
