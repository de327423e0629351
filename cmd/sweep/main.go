// Command sweep runs the expiry jobs once, for invocation by an external scheduler.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/senyabanana/rfq-service/internal/db"
	"github.com/senyabanana/rfq-service/internal/logger"
	"github.com/senyabanana/rfq-service/internal/notify"
	"github.com/senyabanana/rfq-service/internal/router/config"
	"github.com/senyabanana/rfq-service/internal/services"

	"github.com/rs/zerolog/log"
)

func main() {
	job := flag.String("job", services.JobAll, "job to run: request_expire_scan|offer_expire_scan|all")
	configPath := flag.String("config", ".", "directory containing app.env")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := db.OpenStore(ctx, cfg, false)
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing storage")
	}
	defer closeStore()

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
	dispatcher := notify.NewBlockingDispatcher(sender, cfg.NotifyBuffer)
	defer closeSender.Close()
	defer dispatcher.Close()

	core := services.NewCore(store, dispatcher, nil)
	sweeper := &services.Sweeper{
		Requests: services.NewRequestService(core, cfg.RequestTTL),
		Offers:   services.NewOfferService(core, cfg.OfferTTL),
	}

	counts, err := sweeper.RunJob(ctx, *job)
	if err != nil {
		log.Error().Err(err).Str("job", *job).Msg("sweep failed")
		dispatcher.Close()
		closeStore()
		os.Exit(1)
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s\t%d\n", name, counts[name])
	}
}
