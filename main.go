package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go-parkspot/config"
	"go-parkspot/cronjobs"
	"go-parkspot/db"
	"go-parkspot/geocode"
	"go-parkspot/logger"
	"go-parkspot/mlmodel"
	"go-parkspot/processor"
	"go-parkspot/routes"
	"go-parkspot/tracker"
	"go-parkspot/types"
	"go-parkspot/viewstate"
)

type eventStore interface {
	db.EventStore
	CheckConnection(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Event store: Firestore when credentials are configured, in-memory otherwise
	var store eventStore
	if cfg.FirebaseCredentials != "" {
		client, err := db.InitFirestore(ctx, cfg.FirebaseCredentials, cfg.FirebaseProjectID)
		if err != nil {
			log.Error("failed to initialize Firestore", "err", err)
			os.Exit(1)
		}
		fs := db.NewFirestoreStore(client, cfg.EventsCollection)
		defer fs.Close()
		store = fs
	} else {
		log.Warn("FIREBASE_CREDENTIALS not set, using in-memory event store")
		store = db.NewMemoryStore()
	}

	var predictor mlmodel.Predictor = mlmodel.Estimator{}
	if cfg.MLServiceURL != "" {
		predictor = mlmodel.NewClient(cfg.MLServiceURL)
	} else {
		log.Info("ML_SERVICE_URL not set, using location estimator")
	}
	predictions := mlmodel.NewOrchestrator(predictor, cfg.PredictionTimeout, log)

	coord := viewstate.New(store, predictions, processor.NewSubmitter(store, log), viewstate.Config{
		MarginDegrees: cfg.BBoxMarginDegrees,
		MaxResults:    cfg.EventQueryLimit,
		ToastDuration: cfg.ToastDuration,
	}, log)
	go func() {
		if err := coord.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("view state loop stopped", "err", err)
		}
	}()

	positions := tracker.NewPushProvider(cfg.LocationPermission)
	track := tracker.New(positions, coord, tracker.DefaultWatchOptions, log)
	if err := track.Start(ctx); err != nil {
		if errors.Is(err, types.ErrPermissionDenied) {
			log.Warn("location permission denied, waiting for a manual location")
			coord.LocationUnavailable()
		} else {
			log.Error("failed to start location tracking", "err", err)
			os.Exit(1)
		}
	}
	defer track.Stop()

	// Geocoding: Google first when a key is present, Nominatim as fallback
	var providers []geocode.Provider
	if cfg.MapsCredentials != "" {
		google, err := geocode.NewGoogleProvider(cfg.MapsCredentials)
		if err != nil {
			log.Warn("google geocoder disabled", "err", err)
		} else {
			providers = append(providers, google)
		}
	}
	providers = append(providers, geocode.NewNominatimProvider(cfg.NominatimURL))

	var cache geocode.Cache
	if rc := geocode.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); rc != nil {
		defer rc.Close()
		cache = geocode.NewRedisCache(rc, cfg.GeocodeCacheTTL, log)
	}
	search := geocode.NewService(cache, log, providers...)

	cr, err := cronjobs.InitCronJobs(cfg.RefreshSchedule, coord, log)
	if err != nil {
		log.Error("invalid REFRESH_SCHEDULE", "err", err)
		os.Exit(1)
	}
	if cr != nil {
		defer cr.Stop()
	}

	r := routes.SetupRouter(routes.Deps{
		ViewState: coord,
		Locator:   track,
		Positions: positions,
		Search:    search,
		Store:     store,
		Log:       log,
	})

	log.Info("starting server", "port", cfg.Port)
	errc := make(chan error, 1)
	go func() { errc <- r.Run(":" + cfg.Port) }()

	select {
	case err := <-errc:
		log.Error("failed to start server", "err", err)
	case <-ctx.Done():
		log.Info("shutting down")
	}
}
