package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sorinflow/config"
	"sorinflow/models"
	"sorinflow/scraper"
	"sorinflow/storage"
)

// maxRunningJobs caps concurrently running scrape jobs. Admission control
// only; it is checked against the job table, not enforced transactionally.
const maxRunningJobs = 3

// Store is the persistence surface the API serves from. *storage.PostgresStore
// satisfies it.
type Store interface {
	ListProperties(ctx context.Context, f storage.PropertyFilter) ([]*models.Property, int, error)
	GetPropertyByID(ctx context.Context, id int64) (*models.Property, error)
	SoftDeleteProperty(ctx context.Context, id int64) error
	GetPropertyStats(ctx context.Context) (*storage.PropertyStats, error)

	CreateJob(ctx context.Context, j *models.ScrapingJob) error
	GetJobByJobID(ctx context.Context, jobID uuid.UUID) (*models.ScrapingJob, error)
	ListJobs(ctx context.Context, limit int) ([]*models.ScrapingJob, error)
	CountRunningJobs(ctx context.Context) (int, error)
	MarkJobCancelled(ctx context.Context, jobID uuid.UUID) (bool, error)
	GetJobLogs(ctx context.Context, jobID uuid.UUID, limit int) ([]models.JobLog, error)

	CreateProxy(ctx context.Context, p *models.Proxy) error
	ListProxies(ctx context.Context) ([]*models.Proxy, error)
	GetProxy(ctx context.Context, id int64) (*models.Proxy, error)
	RecordProxyResult(ctx context.Context, id int64, ok bool, responseMS float64) error
	DeleteProxy(ctx context.Context, id int64) error
}

// JobOptions tune one launched job.
type JobOptions struct {
	MaxPages       int
	DownloadImages bool
	WithPhone      bool
}

// Launcher runs accepted jobs in the background.
type Launcher interface {
	Launch(job *models.ScrapingJob, opts JobOptions)
	ScrapeSingle(ctx context.Context, url string, withPhone bool) (*models.Property, error)
}

// Auth exposes the login flow to the auth endpoints.
type Auth interface {
	State() scraper.AuthState
	LoginWithPhone(ctx context.Context, phoneNumber string) (*scraper.LoginResult, error)
	SubmitOTP(ctx context.Context, code string) (*scraper.LoginResult, error)
	GetCookieStatus(ctx context.Context, phoneNumber string) *scraper.CookieStatus
	Invalidate(ctx context.Context, phoneNumber string) error
}

type Server struct {
	store    Store
	launcher Launcher
	auth     Auth
	catalog  *config.Catalog
	probe    func(ctx context.Context, p *models.Proxy) (bool, float64)
	http     *http.Server
}

func NewServer(addr string, store Store, launcher Launcher, auth Auth, catalog *config.Catalog) *Server {
	s := &Server{
		store:    store,
		launcher: launcher,
		auth:     auth,
		catalog:  catalog,
		probe:    probeProxy,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))
	r.Use(requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/scraper", func(r chi.Router) {
			r.Post("/start", s.startJob)
			r.Post("/scrape-single", s.scrapeSingle)
			r.Get("/jobs", s.listJobs)
			r.Get("/jobs/{jobID}", s.getJob)
			r.Post("/jobs/{jobID}/cancel", s.cancelJob)
			r.Get("/jobs/{jobID}/logs", s.getJobLogs)
			r.Get("/cities", s.listCities)
			r.Get("/categories", s.listCategories)
			r.Get("/stats", s.getStats)
		})
		r.Route("/auth", func(r chi.Router) {
			r.Get("/status", s.authStatus)
			r.Post("/login", s.authLogin)
			r.Post("/verify", s.authVerify)
			r.Post("/logout", s.authLogout)
		})
		r.Route("/properties", func(r chi.Router) {
			r.Get("/", s.listProperties)
			r.Get("/{id}", s.getProperty)
			r.Delete("/{id}", s.deleteProperty)
		})
		r.Route("/proxies", func(r chi.Router) {
			r.Get("/", s.listProxies)
			r.Post("/", s.createProxy)
			r.Post("/{id}/test", s.testProxy)
			r.Delete("/{id}", s.deleteProxy)
		})
	})
	r.Get("/health", s.health)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.http.Addr).Msg("api server listening")
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
