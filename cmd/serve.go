package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"carlink/market/internal/api"
	"carlink/market/internal/cache"
	"carlink/market/internal/db"
	"carlink/market/internal/email"
	"carlink/market/internal/events"
	"carlink/market/internal/repository"
	"carlink/market/internal/services"
	"carlink/market/internal/storage"
	"carlink/market/internal/tasks"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API and/or background workers",
	Long: `Run mode selects what this process serves:
  api  the public HTTP API
  bg   background tasks (e-mail delivery, match generation)
  img  image processing
  all  everything (default)
The service API always runs.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		switch mode {
		case "api", "bg", "img", "all":
		default:
			return fmt.Errorf("invalid run mode %q: expected api, bg, img or all", mode)
		}
		return serve(cmd.Context(), mode)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("mode", "m", "all", "run mode: api, bg, img or all")
}

func serve(ctx context.Context, mode string) error {
	cfg, log, err := setup(mode)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting", zap.String("app", app), zap.String("version", version), zap.String("mode", mode))

	// --- Infrastructure ---
	mongoClient, database, err := db.ConnectDB(ctx, cfg.MongoURI, cfg.MongoDbName, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.DisconnectDB(mongoClient, log) }()

	if err := db.EnsureIndexes(ctx, database, log); err != nil {
		return err
	}

	redisClient, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
	if err != nil {
		return err
	}
	defer func() { _ = cache.DisconnectRedis(redisClient, log) }()

	objects, err := storage.NewS3Storage(ctx, cfg, log)
	if err != nil {
		return err
	}

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()
	dispatcher := tasks.NewDispatcher(taskClient, log)

	// --- Repositories ---
	users := repository.NewUsers(database)
	listings := repository.NewListings(database)
	requests := repository.NewBuyerRequests(database)
	matches := repository.NewMatches(database)
	inquiries := repository.NewInquiries(database)
	chats := repository.NewChats(database)
	favorites := repository.NewFavorites(database)
	templates := repository.NewEmailTemplates(database)

	tx := db.NewMongoTransactor(mongoClient, cfg.MongoTransactions)

	// --- Notifications ---
	emitter := events.NewComposite(
		events.NewLog(log),
		events.NewRedis(redisClient),
		tasks.NewTaskEmitter(dispatcher, users, listings, cfg, log),
	)
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaEventsTopic != "" {
		kafkaEmitter := events.NewKafka(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaEventsTopic))
		defer func() { _ = kafkaEmitter.Close() }()
		emitter.Add(kafkaEmitter)
		log.Info("kafka event stream enabled", zap.String("topic", cfg.KafkaEventsTopic))
	}
	if cfg.FirebaseCredentialsFile != "" {
		fcm, err := events.NewFCMClient(ctx, cfg.FirebaseCredentialsFile)
		if err != nil {
			log.Warn("push notifications disabled", zap.Error(err))
		} else {
			emitter.Add(events.NewPush(fcm, users))
		}
	}
	dispatch := events.NewAsync(emitter, events.AsyncConfig{
		Workers:     cfg.EventWorkers,
		QueueSize:   cfg.EventQueueSize,
		SendTimeout: time.Duration(cfg.EventSendTimeoutSeconds) * time.Second,
	}, log)

	// --- Services ---
	userService := services.NewUserService(users, cfg, log)
	listingService := services.NewListingService(listings, objects, dispatcher, cfg, log)
	matchService := services.NewMatchService(requests, matches, listings, users, dispatcher, dispatch, cfg, log)
	favoriteService := services.NewFavoriteService(favorites, listings)
	inquiryService := services.NewInquiryService(inquiries, listings, chats, tx, dispatch, log)
	chatService := services.NewChatService(chats, users, listings, tx, dispatch, log)
	templateService := services.NewEmailTemplateService(templates, cfg.DefaultLocale)

	processor := tasks.NewTaskProcessor(cfg, email.NewFromConfig(cfg, redisClient, log),
		templateService, listingService, matchService, objects, log)

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	// Service API always runs.
	serviceSrv := &http.Server{
		Addr:              ":" + cfg.ServiceApiPort,
		Handler:           api.SetupServiceRouter(redisClient, shutdownChan, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		listen(serviceSrv, "service API", log)
	}()

	var mainSrv *http.Server
	stopCleanup := make(chan struct{})
	if mode == "api" || mode == "all" {
		router, limiter := api.SetupRouter(cfg, api.Services{
			Users:     userService,
			Listings:  listingService,
			Matches:   matchService,
			Favorites: favoriteService,
			Inquiries: inquiryService,
			Chats:     chatService,
		}, log)
		go limiter.RunCleanup(time.Minute, stopCleanup)

		mainSrv = &http.Server{
			Addr:              ":" + cfg.ApiPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			listen(mainSrv, "main API", log)
		}()
	}

	var taskSrv *asynq.Server
	isBg := mode == "bg" || mode == "all"
	isImg := mode == "img" || mode == "all"
	if srv, mux := tasks.SetupServer(redisClient, processor, isImg, isBg, log); srv != nil {
		taskSrv = srv
		if err := taskSrv.Start(mux); err != nil {
			return fmt.Errorf("starting task server: %w", err)
		}
		log.Info("task server started", zap.Bool("background", isBg), zap.Bool("images", isImg))
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case <-shutdownChan:
		log.Info("shutdown requested via service API")
	}
	close(stopCleanup)

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Error("service API shutdown", zap.Error(err))
	}
	if mainSrv != nil {
		if err := mainSrv.Shutdown(ctxShutdown); err != nil {
			log.Error("main API shutdown", zap.Error(err))
		}
	}
	if err := dispatch.Close(ctxShutdown); err != nil {
		log.Error("event dispatcher shutdown", zap.Error(err))
	}
	if taskSrv != nil {
		taskSrv.Shutdown()
	}

	wg.Wait()
	log.Info("server gracefully stopped")
	return nil
}

func listen(srv *http.Server, name string, log *zap.Logger) {
	log.Info("listening", zap.String("server", name), zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("listen failed", zap.String("server", name), zap.Error(err))
	}
	log.Info("server stopped", zap.String("server", name))
}
