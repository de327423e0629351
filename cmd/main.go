package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/senyabanana/rfq-service/internal/blob"
	"github.com/senyabanana/rfq-service/internal/db"
	"github.com/senyabanana/rfq-service/internal/handlers"
	"github.com/senyabanana/rfq-service/internal/logger"
	"github.com/senyabanana/rfq-service/internal/notify"
	"github.com/senyabanana/rfq-service/internal/router"
	"github.com/senyabanana/rfq-service/internal/router/config"
	"github.com/senyabanana/rfq-service/internal/services"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := db.OpenStore(ctx, cfg, true)
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing storage")
	}
	defer closeStore()

	blobs, err := blob.Open(ctx, blob.Config{
		Driver: blob.Driver(cfg.BlobDriver),
		FSRoot: cfg.BlobFSRoot,
		S3: blob.S3Config{
			Region:    cfg.BlobS3Region,
			Bucket:    cfg.BlobS3Bucket,
			Endpoint:  cfg.BlobS3Endpoint,
			PathStyle: cfg.BlobS3PathStyle,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing blob store")
	}

	sender, closeSender, err := notify.Open(notify.Config{
		Driver:       cfg.NotifyDriver,
		RedisAddr:    cfg.RedisAddr,
		RedisDB:      cfg.RedisDB,
		Stream:       cfg.NotifyStream,
		KafkaBrokers: cfg.Brokers(),
		KafkaTopic:   cfg.KafkaTopic,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing notifications")
	}
	dispatcher := notify.NewDispatcher(sender, cfg.NotifyBuffer)

	core := services.NewCore(store, dispatcher, nil)
	requestService := services.NewRequestService(core, cfg.RequestTTL)
	offerService := services.NewOfferService(core, cfg.OfferTTL)
	counterOfferService := services.NewCounterOfferService(core)
	orderService := services.NewOrderService(core, blobs)

	routes := router.InitRoutes(router.Handlers{
		Requests:      handlers.NewRequestHandler(requestService, cfg.HandlerTimeout),
		Offers:        handlers.NewOfferHandler(offerService, cfg.HandlerTimeout),
		CounterOffers: handlers.NewCounterOfferHandler(counterOfferService, cfg.HandlerTimeout),
		Orders:        handlers.NewOrderHandler(orderService, cfg.HandlerTimeout, cfg.MaxUploadBytes),
	}, []byte(cfg.JWTSecret))

	if cfg.SweepInterval > 0 {
		sweeper := &services.Sweeper{Requests: requestService, Offers: offerService}
		go sweeper.Run(ctx, cfg.SweepInterval)
		log.Info().Dur("interval", cfg.SweepInterval).Msg("expiry sweeper started")
	}

	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           routes,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("address", cfg.ServerAddress).Msg("server is listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	dispatcher.Close()
	if err := closeSender.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close notification sender")
	}
}
