package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	maxbot "github.com/max-messenger/max-bot-api-client-go"
	"github.com/max-messenger/max-bot-api-client-go/schemes"
	"golang.org/x/time/rate"

	"github.com/SeyyedYousef/Firewall-sub001/internal/botapi"
	"github.com/SeyyedYousef/Firewall-sub001/internal/cache"
	"github.com/SeyyedYousef/Firewall-sub001/internal/config"
	"github.com/SeyyedYousef/Firewall-sub001/internal/dispatch"
	"github.com/SeyyedYousef/Firewall-sub001/internal/engine"
	"github.com/SeyyedYousef/Firewall-sub001/internal/engine/evaluators"
	"github.com/SeyyedYousef/Firewall-sub001/internal/executor"
	"github.com/SeyyedYousef/Firewall-sub001/internal/handler"
	"github.com/SeyyedYousef/Firewall-sub001/internal/metrics"
	"github.com/SeyyedYousef/Firewall-sub001/internal/repository"
	"github.com/SeyyedYousef/Firewall-sub001/internal/transport/polling"
	"github.com/SeyyedYousef/Firewall-sub001/internal/transport/webhook"
	"github.com/SeyyedYousef/Firewall-sub001/internal/votemute"
)

const (
	limiterSweepInterval = 10 * time.Minute
	limiterMaxIdle       = time.Hour
	voteSweepInterval    = time.Minute
	invitePruneInterval  = time.Hour
)

type App struct {
	cfg    *config.Config
	logger *slog.Logger
	bot    *maxbot.Api
}

func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	bot, err := maxbot.New(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot client: %w", err)
	}

	return &App{
		cfg:    cfg,
		logger: logger,
		bot:    bot,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.logger.Info("Starting group firewall bot")

	botInfo, err := a.bot.Bots.GetBot(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	a.logger.Info("Bot connected", "username", botInfo.Username, "id", botInfo.UserId)

	db, err := repository.NewPostgresDB(a.cfg.GetDSN())
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}

	settingsStore := repository.NewSettingsStore(db)
	inviteRepo := repository.NewInviteRepository(db)
	restrictionRepo := repository.NewRestrictionRepository(db)
	tempMessageRepo := repository.NewTemporaryMessageRepository(db)

	ruleCache := cache.New(settingsStore, a.logger, a.cfg.SettingsCacheTTL)
	client := botapi.NewMaxClient(a.logger, a.bot, restrictionRepo)

	limiter := evaluators.NewRateLimiter(a.cfg.DuplicateMinLength)
	membership := evaluators.NewMembershipGate(a.logger, inviteRepo, client, a.cfg.InviteResetPeriod)
	quiet := evaluators.NewQuietHours()
	content := evaluators.NewContentRules()
	eng := engine.New(a.logger, ruleCache, restrictionRepo, limiter, membership, quiet, content)

	throttle := dispatch.NewAdaptiveThrottle(
		a.cfg.ThrottleBaseDelay, a.cfg.ThrottleMaxDelay, a.cfg.ThrottleDecayInterval)
	queue := dispatch.NewQueue(a.logger, dispatch.QueueConfig{
		BufferSize:  a.cfg.QueueBufferSize,
		Concurrency: a.cfg.QueueConcurrency,
		IntervalCap: a.cfg.QueueIntervalCap,
		Interval:    rate.Limit(float64(a.cfg.QueueIntervalCap) / a.cfg.QueueInterval.Seconds()),
		WarnSize:    a.cfg.QueueWarnSize,
	})
	queue.Start(ctx)

	exec := executor.New(a.logger, client, throttle, tempMessageRepo)
	executor.NewJanitor(a.logger, client, tempMessageRepo).Start(ctx)

	votes := votemute.NewStore(a.cfg.VoteMuteRequired, a.cfg.VoteMuteWindow)

	h := handler.New(a.logger, client, eng, queue, exec, inviteRepo, votes, a.cfg.VoteMuteDuration)

	metricsSrv := metrics.NewServer(a.logger, a.cfg.MetricsAddr)
	metricsSrv.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Metrics server shutdown failed", "error", err)
		}
	}()

	a.startSweeps(ctx, limiter, quiet, votes, inviteRepo)

	var updates <-chan schemes.UpdateInterface
	var cleanup func() error

	if a.cfg.WebhookHost != "" {
		a.logger.Info("Starting in webhook mode", "host", a.cfg.WebhookHost)
		srv := webhook.NewServer(a.logger, a.bot, a.cfg.WebhookHost, a.cfg.Port, a.cfg.WebhookSecret)

		var err error
		updates, cleanup, err = srv.Start(ctx)
		if err != nil {
			return fmt.Errorf("failed to start webhook server: %w", err)
		}
		if cleanup != nil {
			defer func() {
				if err := cleanup(); err != nil {
					a.logger.Error("Cleanup failed", "error", err)
				}
			}()
		}
	} else {
		a.logger.Info("Starting in long polling mode")
		updates = polling.NewPoller(a.logger, a.bot).Start(ctx)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				h.HandleUpdate(ctx, upd)
			}
		}
	}()

	<-ctx.Done()
	a.logger.Info("Shutting down...")
	queue.Wait()

	return nil
}

// startSweeps owns the recurring maintenance work: dropping idle rate
// windows and quiet-state entries, expiring vote sessions, and pruning
// old invite records.
func (a *App) startSweeps(ctx context.Context, limiter *evaluators.RateLimiter, quiet *evaluators.QuietHours, votes *votemute.Store, invites repository.InviteRepository) {
	go func() {
		limiterTicker := time.NewTicker(limiterSweepInterval)
		voteTicker := time.NewTicker(voteSweepInterval)
		inviteTicker := time.NewTicker(invitePruneInterval)
		defer limiterTicker.Stop()
		defer voteTicker.Stop()
		defer inviteTicker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-limiterTicker.C:
				limiter.Sweep(limiterMaxIdle)
				quiet.Sweep(limiterMaxIdle)
			case <-voteTicker.C:
				votes.Sweep()
			case <-inviteTicker.C:
				cutoff := time.Now().Add(-a.cfg.InviteResetPeriod)
				if err := invites.PruneBefore(ctx, cutoff); err != nil {
					a.logger.Error("Failed to prune invite records", "error", err)
				}
			}
		}
	}()
}
