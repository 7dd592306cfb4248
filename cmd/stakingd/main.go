package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/suspectuso/nft-staking/internal/config"
	"github.com/suspectuso/nft-staking/internal/minter"
	"github.com/suspectuso/nft-staking/internal/notifier"
	"github.com/suspectuso/nft-staking/internal/staking"
	"github.com/suspectuso/nft-staking/internal/storage"
	"github.com/suspectuso/nft-staking/internal/telegram"
	"github.com/suspectuso/nft-staking/internal/tonapi"
	"github.com/suspectuso/nft-staking/internal/webhook"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	// Load config
	cfg := config.Load()

	// Setup logger
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(log)

	if envErr != nil {
		log.Debug("no .env file found")
	}

	if err := run(cfg, log); err != nil {
		log.Error("stakingd stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, err := storage.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info("storage initialized", "path", cfg.DBPath)

	// Initialize TonAPI client
	tonAPI := tonapi.NewClient(cfg.TonAPIBaseURL, cfg.TonAPIKey)
	log.Info("tonapi client initialized", "base_url", cfg.TonAPIBaseURL, "testnet", cfg.TonTestnet)

	keeper := staking.NewKeeper(store, tonAPI, tonapi.AddressCodec{Testnet: cfg.TonTestnet}, log,
		staking.WithMintPrefix(cfg.MintTokenPrefix))

	if err := bootstrap(ctx, cfg, keeper, log); err != nil {
		return err
	}

	// Mint dispatcher
	dispatcher := minter.NewDispatcher(store, minter.NewClient(cfg.MinterURL, cfg.MinterAPIKey), cfg.MintMaxAttempts, log)

	// HTTP server
	server := webhook.NewServer(keeper, store, cfg.MetricsEnabled, log)
	server.OnResponse(func(ctx context.Context, caller staking.Caller, resp *staking.Response) {
		if len(resp.Mints) > 0 {
			dispatcher.Wake()
		}
	})

	// Telegram bot and operator notifications
	var bot *telegram.Bot
	if cfg.BotToken != "" {
		bot, err = telegram.New(cfg.BotToken, keeper, log)
		if err != nil {
			return err
		}
		log.Info("telegram bot initialized")

		if cfg.OperatorChatID != 0 {
			notify := notifier.New(bot, cfg.OperatorChatID, log)
			server.OnResponse(notify.HandleResponse)
			dispatcher.OnOutcome(notify.MintOutcome)
			log.Info("operator notifications enabled", "chat_id", cfg.OperatorChatID)
		}
	} else {
		log.Info("telegram bot disabled: BOT_TOKEN not set")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(ctx, cfg.HTTPPort)
	})

	if cfg.MinterURL != "" {
		g.Go(func() error {
			dispatcher.Loop(ctx, cfg.MintDispatchInterval)
			return nil
		})
	} else {
		log.Warn("mint dispatcher disabled: MINTER_URL not set, mints stay queued")
	}

	if bot != nil {
		g.Go(func() error {
			log.Info("starting bot polling...")
			bot.Start(ctx)
			return nil
		})
	}

	err = g.Wait()
	log.Info("shutting down...")
	return err
}

// bootstrap instantiates the ledger on first start
func bootstrap(ctx context.Context, cfg *config.Config, keeper *staking.Keeper, log *slog.Logger) error {
	if !cfg.Bootstrap() {
		if _, err := keeper.QueryConfig(ctx); err != nil {
			return errors.New("ledger not instantiated: set OWNER_ADDRESS, COLLECTION_A, COLLECTION_B and REWARD_COLLECTION")
		}
		return nil
	}

	_, err := keeper.Instantiate(ctx, staking.Caller{Principal: cfg.OwnerAddress}, staking.InstantiateMsg{
		CollectionA:      cfg.CollectionA,
		CollectionB:      cfg.CollectionB,
		RewardCollection: cfg.RewardCollection,
	})
	switch {
	case err == nil:
		log.Info("ledger instantiated", "owner", cfg.OwnerAddress)
	case errors.Is(err, staking.ErrAlreadyInitialized):
		log.Debug("ledger already instantiated")
	default:
		return err
	}
	return nil
}
