package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sorinflow/api"
	"sorinflow/config"
	"sorinflow/logging"
	"sorinflow/models"
	"sorinflow/scheduler"
	"sorinflow/scraper"
	"sorinflow/storage"
	"sorinflow/workers"
)

var (
	scrapeCity     = flag.String("scrape", "", "Run one sweep for a city and exit")
	scrapeCategory = flag.String("category", "", "Restrict the one-shot sweep to a single category")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	logWriter, err := logging.Setup(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		log.Warn().Err(err).Msg("file logging unavailable")
	} else {
		defer logWriter.Close()
	}

	log.Info().Msg("starting sorinflow")

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load catalog")
	}
	log.Info().
		Int("cities", len(catalog.CityList())).
		Int("categories", len(catalog.CategoryList())).
		Msg("catalog loaded")

	ctx := context.Background()

	store, err := storage.NewPostgresStore(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}
	log.Info().Str("dsn", maskDSN(cfg.Database.DSN)).Msg("postgres ready")

	sessions, err := storage.NewSessionFileStore(cfg.SessionDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open session store")
	}
	defer sessions.Close()

	var picker scraper.ProxyPicker
	if cfg.Scraper.UseProxies {
		picker = store
		log.Info().Msg("proxy rotation enabled")
	}
	session := scraper.NewSession(cfg.Scraper, scraper.NewGovernor(), picker)
	defer session.Close()

	auth := scraper.NewAuthenticator(session, store, sessions, cfg.Scraper.LoginURL, cfg.Scraper.BaseURL)
	if cfg.Auth.PhoneNumber != "" {
		restored, err := auth.RestoreSession(ctx, cfg.Auth.PhoneNumber)
		if err != nil {
			log.Warn().Err(err).Msg("session restore failed")
		} else if restored {
			log.Info().Str("phone", cfg.Auth.PhoneNumber).Msg("session restored")
		} else {
			log.Info().Msg("no valid saved session, login via the API to authenticate")
		}
	}

	var images *scraper.ImageDownloader
	if cfg.Images.Download {
		var mirror scraper.Mirror
		if cfg.S3.Enabled {
			uploader, err := storage.NewS3Uploader(ctx, storage.S3Config{
				Bucket:          cfg.S3.Bucket,
				Region:          cfg.S3.Region,
				Endpoint:        cfg.S3.Endpoint,
				AccessKeyID:     cfg.S3.AccessKey,
				SecretAccessKey: cfg.S3.SecretKey,
				PublicBaseURL:   cfg.S3.PublicURL,
			})
			if err != nil {
				log.Fatal().Err(err).Msg("configure s3 uploader")
			}
			mirror = uploader
			log.Info().Str("bucket", cfg.S3.Bucket).Msg("image mirror enabled")
		}
		images = scraper.NewImageDownloader(cfg.Images.Dir, mirror)
	}

	rt := &runtime{
		cfg:      cfg,
		catalog:  catalog,
		store:    store,
		session:  session,
		proxies:  picker,
		registry: scraper.NewRegistry(),
		images:   images,
	}

	if *scrapeCity != "" {
		runOneShot(ctx, rt, *scrapeCity, *scrapeCategory)
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if images != nil {
		imageWorker := workers.NewImageWorker(store, images)
		go imageWorker.Run(runCtx, 20, 5*time.Minute)
	}

	server := api.NewServer(cfg.API.Addr, store, rt, auth, catalog)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("api server failed")
		}
	}()

	sched := scheduler.New(cfg.Scheduler, rt)
	if err := sched.Start(runCtx); err != nil {
		log.Fatal().Err(err).Msg("start scheduler")
	}

	log.Info().Msg("daemon running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	sched.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("api server shutdown")
	}
	rt.registry.Shutdown()
	log.Info().Msg("goodbye")
}

func runOneShot(ctx context.Context, rt *runtime, city, category string) {
	if _, ok := rt.catalog.City(city); !ok {
		log.Fatal().Str("city", city).Msg("unknown city")
	}
	categories := rt.categorySlugs()
	if category != "" {
		if _, ok := rt.catalog.Category(category); !ok {
			log.Fatal().Str("category", category).Msg("unknown category")
		}
		categories = []string{category}
	}

	log.Info().Str("city", city).Int("categories", len(categories)).Msg("running one-shot sweep")
	scraper.RunAllCategories(ctx, rt.newSweepJob, city, categories)
	log.Info().Msg("sweep complete")
}

// runtime wires the scraping stack behind the API and scheduler interfaces.
type runtime struct {
	cfg      *config.Config
	catalog  *config.Catalog
	store    *storage.PostgresStore
	session  *scraper.Session
	proxies  scraper.ProxyPicker
	registry *scraper.Registry
	images   *scraper.ImageDownloader
}

func (rt *runtime) newRunner(fetcher scraper.Fetcher, opts api.JobOptions) *scraper.Runner {
	runner := scraper.NewRunner(rt.store, fetcher, rt.catalog)
	runner.MaxPages = rt.cfg.Scraper.MaxPages
	if opts.MaxPages > 0 {
		runner.MaxPages = opts.MaxPages
	}
	runner.WithPhone = opts.WithPhone
	if opts.DownloadImages && rt.images != nil {
		runner.SetImageDownloader(rt.images)
	}
	return runner
}

// newJobSession gives a launched job its own browser and governor so
// concurrent jobs never share pacing state. Saved login cookies are applied
// when present.
func (rt *runtime) newJobSession(ctx context.Context) *scraper.Session {
	sess := scraper.NewSession(rt.cfg.Scraper, scraper.NewGovernor(), rt.proxies)
	if phone := rt.cfg.Auth.PhoneNumber; phone != "" {
		sc, err := rt.store.GetSession(ctx, phone)
		if err == nil && sc != nil {
			if err := sess.ApplyCookies(ctx, sc.Cookies); err != nil {
				log.Warn().Err(err).Msg("apply saved cookies to job session")
			}
		}
	}
	return sess
}

// Launch runs an accepted job in the background, registered for cancellation
// on shutdown.
func (rt *runtime) Launch(job *models.ScrapingJob, opts api.JobOptions) {
	ctx, cancel := context.WithCancel(context.Background())
	done := rt.registry.Add(job.JobID, cancel)
	go func() {
		defer done()
		sess := rt.newJobSession(ctx)
		defer sess.Close()
		if err := rt.newRunner(sess, opts).Run(ctx, job); err != nil {
			log.Error().Err(err).Str("job_id", job.JobID.String()).Msg("job failed")
		}
	}()
}

func (rt *runtime) ScrapeSingle(ctx context.Context, url string, withPhone bool) (*models.Property, error) {
	prop, err := rt.session.FetchDetail(ctx, scraper.SummaryFromURL(url), withPhone)
	if err != nil {
		return nil, err
	}
	if err := rt.store.UpsertProperty(ctx, prop); err != nil {
		return nil, err
	}
	return prop, nil
}

// Sweep runs one job per (city, category) pair for every configured sweep
// city. Scheduled sweeps share the job table with API-launched jobs.
func (rt *runtime) Sweep(ctx context.Context) error {
	categories := rt.categorySlugs()
	for _, city := range rt.cfg.Scheduler.Cities {
		if _, ok := rt.catalog.City(city); !ok {
			log.Warn().Str("city", city).Msg("skipping unknown sweep city")
			continue
		}
		scraper.RunAllCategories(ctx, rt.newSweepJob, city, categories)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (rt *runtime) newSweepJob(city, category string) (*models.ScrapingJob, *scraper.Runner, error) {
	job := &models.ScrapingJob{
		JobID:    uuid.New(),
		City:     city,
		Category: category,
		Status:   models.JobStatusPending,
	}
	if err := rt.store.CreateJob(context.Background(), job); err != nil {
		return nil, nil, err
	}
	runner := rt.newRunner(rt.session, api.JobOptions{DownloadImages: rt.cfg.Images.Download})
	return job, runner, nil
}

func (rt *runtime) categorySlugs() []string {
	list := rt.catalog.CategoryList()
	slugs := make([]string, 0, len(list))
	for _, c := range list {
		slugs = append(slugs, c.Slug)
	}
	return slugs
}

// maskDSN hides the password segment of a connection string for logs.
func maskDSN(dsn string) string {
	schemeEnd := -1
	for i := 0; i < len(dsn)-3; i++ {
		if dsn[i:i+3] == "://" {
			schemeEnd = i + 3
			break
		}
	}
	if schemeEnd < 0 {
		return dsn
	}
	colon, at := -1, -1
	for i := schemeEnd; i < len(dsn); i++ {
		if dsn[i] == ':' && colon == -1 {
			colon = i
		}
		if dsn[i] == '@' {
			at = i
			break
		}
	}
	if colon > 0 && at > colon {
		return dsn[:colon+1] + "****" + dsn[at:]
	}
	return dsn
}
