package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"pacer_agent/internal/app"
	"pacer_agent/internal/domain/behavior"
	"pacer_agent/internal/domain/notification"
	"pacer_agent/internal/infra/config"
	idb "pacer_agent/internal/infra/database"
	"pacer_agent/internal/infra/ethereum"
	"pacer_agent/internal/infra/llm"
	"pacer_agent/internal/infra/logger"
	"pacer_agent/internal/infra/profilefile"
	"pacer_agent/internal/infra/redisstore"
	"pacer_agent/internal/infra/scheduler"
	"pacer_agent/internal/infra/telegram"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const startupTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Could not load application configuration")
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"admin_id":    cfg.AdminTelegramID,
		"chain":       cfg.ChainEnabled(),
		"persistence": cfg.PersistenceEnabled(),
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancelStart := context.WithTimeout(ctx, startupTimeout)
	defer cancelStart()

	// Database
	db, err := idb.NewPostgresConnection(startCtx, cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	if err := idb.EnsureSchema(startCtx, db); err != nil {
		mainLogger.WithError(err).Fatal("Could not prepare database schema")
	}
	postRepo := idb.NewPostgresPostRepository(db)
	processedRepo := idb.NewPostgresProcessedRepository(db)
	teleportRepo := idb.NewPostgresTeleportRepository(db)
	mainLogger.Info("Database ready")

	// Behavior
	profiles, err := profilefile.Load(cfg.ActivityProfilePath)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not load activity profiles")
	}
	seed := uint64(time.Now().UnixNano())
	clock := behavior.SystemClock{}
	machine := behavior.NewMachine(profiles, clock, behavior.NewRandSource(seed, seed>>17|1))

	var stateStore *redisstore.StateStore
	if cfg.PersistenceEnabled() {
		stateStore, err = redisstore.NewStateStore(startCtx, redisstore.Config{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisStateKey,
		})
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to redis")
		}
		defer stateStore.Close()
		if saved, found, err := stateStore.Load(startCtx); err != nil {
			mainLogger.WithError(err).Warn("Could not restore behavior state, starting fresh")
		} else if found {
			machine.Restore(saved)
			mainLogger.WithField("daily_count", saved.DailyActionCount).Info("Behavior state restored")
		}
	}

	// Telegram
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := logger.Component("telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
			}
			entry.Error("Telegram handler error")
		},
	})
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}
	telegramClient := telegram.NewTelebotAdapter(bot)
	collector := telegram.NewMentionCollector(bot.Me.ID, bot.Me.Username, logger.Component("mentions"))

	// LLM
	llmClient, err := llm.NewClient(llm.Config{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
	})
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create LLM client")
	}

	// Chain
	var (
		poller    scheduler.ChainPoller
		transfers app.TransferStep
		wallet    app.WalletOperator
	)
	if cfg.ChainEnabled() {
		ethClient, err := ethereum.Dial(startCtx, cfg.EthRPCURL)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to ethereum")
		}
		defer ethClient.Close()

		agentWallet, err := ethereum.NewWallet(ethClient, cfg.AgentPrivateKey)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not load agent wallet")
		}
		if !common.IsHexAddress(cfg.TeleportContractAddress) {
			mainLogger.WithField("address", cfg.TeleportContractAddress).Fatal("Invalid teleport contract address")
		}
		watcher, err := ethereum.NewTeleportWatcher(ethClient, common.HexToAddress(cfg.TeleportContractAddress),
			agentWallet.Address(), teleportRepo, logger.Component("teleport_watcher"))
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create teleport watcher")
		}
		poller = watcher
		wallet = agentWallet
		transfers = app.NewWalletService(agentWallet, teleportRepo, llmClient, cfg.MinEthBalance, cfg.MaxTransferEth, logger.Component("wallet"))
		mainLogger.WithField("wallet", agentWallet.Address().Hex()).Info("Chain access enabled")
	} else {
		mainLogger.Warn("ETH_RPC_URL, TELEPORT_CONTRACT_ADDRESS or AGENT_PRIVATE_KEY not set, chain polling and transfers disabled")
	}

	// Pipeline and run loop
	queue, err := notification.NewQueue(cfg.MinQueueSize, cfg.QueueCapacity, cfg.SeenIDCapacity)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create notification queue")
	}
	pipeline := app.NewPostingPipeline(
		postRepo,
		processedRepo,
		collector,
		queue,
		app.NewPostWriter(llmClient),
		app.NewSignificanceScorer(llmClient),
		transfers,
		telegramClient,
		cfg.TelegramChannelID,
		cfg.MinPostingSignificance,
		logger.Component("pipeline"),
	)

	var saver scheduler.StateSaver
	if stateStore != nil {
		saver = stateStore
	}
	runner := scheduler.NewRunner(machine, clock, pipeline, poller, saver, queue, scheduler.RunnerConfig{
		OuterPollInterval: cfg.OuterPollInterval,
		TickInterval:      cfg.TickInterval,
		ActionTimeout:     cfg.ActionTimeout,
		ChainPollTimeout:  cfg.ChainPollTimeout,
	}, logger.Component("runner"))

	// Operator surface
	operatorService := app.NewOperatorService(runner, queue, cfg.AdminTelegramID)
	collector.Register(bot)
	telegram.RegisterAdminHandlers(bot, operatorService, logger.Component("admin_handlers"))
	telegram.RegisterBotCommands(bot, cfg.AdminTelegramID, logger.Component("bot_commands"))

	maintenance := scheduler.NewMaintenanceScheduler(
		app.NewMaintenanceService(wallet, runner, telegramClient, cfg.AdminTelegramID, cfg.MinEthBalance, logger.Component("maintenance")),
		logger.Component("maintenance_scheduler"),
		cfg.CronSpecBalanceCheck,
		cfg.CronSpecStatusReport,
		wallet != nil,
	)
	if err := maintenance.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start maintenance scheduler")
	}
	cancelStart()

	go bot.Start()
	mainLogger.Info("Application setup complete, run loop starting")

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		mainLogger.WithError(err).Error("Run loop exited unexpectedly")
	}

	mainLogger.Info("Shutting down application...")
	bot.Stop()
	maintenance.Stop()
	mainLogger.Info("Application shut down gracefully")
}
