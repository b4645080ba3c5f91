package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"sorinflow/config"
	"sorinflow/models"
	"sorinflow/scraper"
	"sorinflow/storage"
)

type fakeStore struct {
	running   int
	created   []*models.ScrapingJob
	jobs      map[uuid.UUID]*models.ScrapingJob
	cancelled map[uuid.UUID]bool
	props     []*models.Property
	proxies   []*models.Proxy
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:      make(map[uuid.UUID]*models.ScrapingJob),
		cancelled: make(map[uuid.UUID]bool),
	}
}

func (f *fakeStore) ListProperties(ctx context.Context, fl storage.PropertyFilter) ([]*models.Property, int, error) {
	return nil, 0, nil
}

// Known records live in props; unknown ids return (nil, nil) like the
// Postgres store.
func (f *fakeStore) GetPropertyByID(ctx context.Context, id int64) (*models.Property, error) {
	for _, p := range f.props {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SoftDeleteProperty(ctx context.Context, id int64) error { return nil }

func (f *fakeStore) GetPropertyStats(ctx context.Context) (*storage.PropertyStats, error) {
	return &storage.PropertyStats{Total: 7}, nil
}

func (f *fakeStore) CreateJob(ctx context.Context, j *models.ScrapingJob) error {
	f.created = append(f.created, j)
	f.jobs[j.JobID] = j
	return nil
}

// Unknown job ids return (nil, nil) like the Postgres store.
func (f *fakeStore) GetJobByJobID(ctx context.Context, jobID uuid.UUID) (*models.ScrapingJob, error) {
	return f.jobs[jobID], nil
}

func (f *fakeStore) ListJobs(ctx context.Context, limit int) ([]*models.ScrapingJob, error) {
	return f.created, nil
}

func (f *fakeStore) CountRunningJobs(ctx context.Context) (int, error) { return f.running, nil }

func (f *fakeStore) MarkJobCancelled(ctx context.Context, jobID uuid.UUID) (bool, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.Status.Terminal() {
		return false, nil
	}
	f.cancelled[jobID] = true
	return true, nil
}

func (f *fakeStore) GetJobLogs(ctx context.Context, jobID uuid.UUID, limit int) ([]models.JobLog, error) {
	return nil, nil
}

func (f *fakeStore) CreateProxy(ctx context.Context, p *models.Proxy) error {
	p.ID = int64(len(f.proxies) + 1)
	f.proxies = append(f.proxies, p)
	return nil
}

func (f *fakeStore) ListProxies(ctx context.Context) ([]*models.Proxy, error) {
	return f.proxies, nil
}

func (f *fakeStore) GetProxy(ctx context.Context, id int64) (*models.Proxy, error) {
	for _, p := range f.proxies {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) RecordProxyResult(ctx context.Context, id int64, ok bool, responseMS float64) error {
	for _, p := range f.proxies {
		if p.ID == id {
			if ok {
				p.SuccessCount++
				p.IsWorking = true
			} else {
				p.FailCount++
			}
		}
	}
	return nil
}

func (f *fakeStore) DeleteProxy(ctx context.Context, id int64) error { return nil }

type fakeLauncher struct {
	launched []*models.ScrapingJob
	opts     []JobOptions
}

func (f *fakeLauncher) Launch(job *models.ScrapingJob, opts JobOptions) {
	f.launched = append(f.launched, job)
	f.opts = append(f.opts, opts)
}

func (f *fakeLauncher) ScrapeSingle(ctx context.Context, url string, withPhone bool) (*models.Property, error) {
	return &models.Property{URL: url, Title: "scraped"}, nil
}

type fakeAuth struct {
	state scraper.AuthState
}

func (f *fakeAuth) State() scraper.AuthState { return f.state }

func (f *fakeAuth) LoginWithPhone(ctx context.Context, phone string) (*scraper.LoginResult, error) {
	f.state = scraper.AuthAwaitingCode
	return &scraper.LoginResult{RequiresCode: true}, nil
}

func (f *fakeAuth) SubmitOTP(ctx context.Context, code string) (*scraper.LoginResult, error) {
	f.state = scraper.AuthAuthenticated
	return &scraper.LoginResult{Success: true}, nil
}

func (f *fakeAuth) GetCookieStatus(ctx context.Context, phone string) *scraper.CookieStatus {
	return &scraper.CookieStatus{PhoneNumber: phone}
}

func (f *fakeAuth) Invalidate(ctx context.Context, phone string) error {
	f.state = scraper.AuthIdle
	return nil
}

func newTestServer(t *testing.T, store *fakeStore) (*Server, *fakeLauncher) {
	t.Helper()
	catalog, err := config.LoadCatalog("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	launcher := &fakeLauncher{}
	return NewServer(":0", store, launcher, &fakeAuth{state: scraper.AuthIdle}, catalog), launcher
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStartJobValidCity(t *testing.T) {
	store := newFakeStore()
	srv, launcher := newTestServer(t, store)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/scraper/start",
		startJobRequest{City: "tehran", Category: "buy-apartment", MaxPages: 3})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}
	if len(store.created) != 1 {
		t.Fatalf("created jobs = %d, want 1", len(store.created))
	}
	if len(launcher.launched) != 1 {
		t.Fatalf("launched jobs = %d, want 1", len(launcher.launched))
	}
	if launcher.opts[0].MaxPages != 3 {
		t.Errorf("MaxPages = %d, want 3", launcher.opts[0].MaxPages)
	}

	var resp startJobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.JobID == uuid.Nil {
		t.Error("response carries no job id")
	}
	if resp.Status != "pending" {
		t.Errorf("status = %q, want pending", resp.Status)
	}
}

func TestStartJobUnknownCity(t *testing.T) {
	store := newFakeStore()
	srv, launcher := newTestServer(t, store)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/scraper/start",
		startJobRequest{City: "atlantis", Category: "buy-apartment"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if len(launcher.launched) != 0 {
		t.Error("job launched despite unknown city")
	}
}

func TestStartJobUnknownCategory(t *testing.T) {
	store := newFakeStore()
	srv, _ := newTestServer(t, store)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/scraper/start",
		startJobRequest{City: "tehran", Category: "submarines"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestStartJobConcurrencyCeiling(t *testing.T) {
	store := newFakeStore()
	store.running = maxRunningJobs
	srv, launcher := newTestServer(t, store)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/scraper/start",
		startJobRequest{City: "tehran", Category: "buy-apartment"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if len(launcher.launched) != 0 {
		t.Error("job launched despite ceiling")
	}
}

func TestGetJob(t *testing.T) {
	store := newFakeStore()
	srv, _ := newTestServer(t, store)

	job := &models.ScrapingJob{JobID: uuid.New(), Status: models.JobStatusRunning, TotalItems: 4, ScrapedItems: 2}
	store.jobs[job.JobID] = job

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/scraper/jobs/"+job.JobID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var body struct {
		Progress float64 `json:"progress"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Progress != 50 {
		t.Errorf("progress = %v, want 50", body.Progress)
	}
}

func TestGetJobNotFound(t *testing.T) {
	store := newFakeStore()
	srv, _ := newTestServer(t, store)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/scraper/jobs/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusNotFound, rec.Body.String())
	}
}

func TestGetPropertyNotFound(t *testing.T) {
	store := newFakeStore()
	store.props = []*models.Property{{ID: 7, Title: "known"}}
	srv, _ := newTestServer(t, store)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/properties/7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/properties/42", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusNotFound, rec.Body.String())
	}
}

func TestCancelJob(t *testing.T) {
	store := newFakeStore()
	srv, _ := newTestServer(t, store)

	job := &models.ScrapingJob{JobID: uuid.New(), Status: models.JobStatusRunning}
	store.jobs[job.JobID] = job

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/scraper/jobs/"+job.JobID.String()+"/cancel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if !store.cancelled[job.JobID] {
		t.Error("job not marked cancelled")
	}
}

func TestCancelFinishedJobConflicts(t *testing.T) {
	store := newFakeStore()
	srv, _ := newTestServer(t, store)

	job := &models.ScrapingJob{JobID: uuid.New(), Status: models.JobStatusCompleted}
	store.jobs[job.JobID] = job

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/scraper/jobs/"+job.JobID.String()+"/cancel", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestCancelJobBadID(t *testing.T) {
	store := newFakeStore()
	srv, _ := newTestServer(t, store)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/scraper/jobs/not-a-uuid/cancel", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestScrapeSingleRejectsForeignURL(t *testing.T) {
	store := newFakeStore()
	srv, _ := newTestServer(t, store)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/scraper/scrape-single",
		scrapeSingleRequest{URL: "https://example.com/v/abc"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestScrapeSingle(t *testing.T) {
	store := newFakeStore()
	srv, _ := newTestServer(t, store)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/scraper/scrape-single",
		scrapeSingleRequest{URL: "https://divar.ir/v/some-listing/AZxyz"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var prop models.Property
	if err := json.Unmarshal(rec.Body.Bytes(), &prop); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if prop.Title != "scraped" {
		t.Errorf("title = %q, want scraped", prop.Title)
	}
}

func TestListCities(t *testing.T) {
	store := newFakeStore()
	srv, _ := newTestServer(t, store)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/scraper/cities", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body struct {
		Cities []config.City `json:"cities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Cities) != 20 {
		t.Errorf("cities = %d, want 20", len(body.Cities))
	}
}

func TestAuthLoginRejectsBadPhone(t *testing.T) {
	store := newFakeStore()
	srv, _ := newTestServer(t, store)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/auth/login",
		loginRequest{PhoneNumber: "12345"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAuthLoginFlow(t *testing.T) {
	store := newFakeStore()
	srv, _ := newTestServer(t, store)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/auth/login",
		loginRequest{PhoneNumber: "09121234567"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var res scraper.LoginResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !res.RequiresCode {
		t.Error("login did not request a code")
	}

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/api/auth/verify",
		verifyRequest{Code: "123456"})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestCreateProxyValidation(t *testing.T) {
	store := newFakeStore()
	srv, _ := newTestServer(t, store)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/proxies/",
		createProxyRequest{Address: "", Port: 8080})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/api/proxies/",
		createProxyRequest{Address: "10.0.0.5", Port: 8080})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if len(store.proxies) != 1 {
		t.Fatalf("proxies = %d, want 1", len(store.proxies))
	}
	if store.proxies[0].Protocol != "http" {
		t.Errorf("protocol = %q, want http default", store.proxies[0].Protocol)
	}
}

func TestTestProxyRecordsResult(t *testing.T) {
	store := newFakeStore()
	store.proxies = []*models.Proxy{
		{ID: 1, Address: "10.0.0.5", Port: 8080, Protocol: "http"},
	}
	srv, _ := newTestServer(t, store)
	srv.probe = func(ctx context.Context, p *models.Proxy) (bool, float64) {
		return true, 120
	}

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/proxies/1/test", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if store.proxies[0].SuccessCount != 1 || !store.proxies[0].IsWorking {
		t.Errorf("probe result not recorded: %+v", store.proxies[0])
	}

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/api/proxies/99/test", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestPropertyFilterFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/api/properties?city=tehran&min_price=1000&max_rooms=3&has_phone=true&order=asc&page=2", nil)
	f := filterFromQuery(req)

	if f.City != "tehran" {
		t.Errorf("city = %q", f.City)
	}
	if f.MinPrice == nil || *f.MinPrice != 1000 {
		t.Errorf("min price = %v, want 1000", f.MinPrice)
	}
	if f.MaxRooms == nil || *f.MaxRooms != 3 {
		t.Errorf("max rooms = %v, want 3", f.MaxRooms)
	}
	if !f.HasPhone {
		t.Error("has_phone not set")
	}
	if f.SortDesc {
		t.Error("order=asc should clear SortDesc")
	}
	if f.Page != 2 {
		t.Errorf("page = %d, want 2", f.Page)
	}
}
