package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sorinflow/models"
)

type startJobRequest struct {
	City           string `json:"city"`
	Category       string `json:"category"`
	MaxPages       int    `json:"max_pages"`
	DownloadImages bool   `json:"download_images"`
	WithPhone      bool   `json:"with_phone"`
}

type startJobResponse struct {
	JobID   uuid.UUID `json:"job_id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

func (s *Server) startJob(w http.ResponseWriter, r *http.Request) {
	var req startJobRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, ok := s.catalog.City(req.City); !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown city: %s", req.City))
		return
	}
	if _, ok := s.catalog.Category(req.Category); !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown category: %s", req.Category))
		return
	}

	running, err := s.store.CountRunningJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check running jobs")
		return
	}
	if running >= maxRunningJobs {
		writeError(w, http.StatusConflict, fmt.Sprintf("too many running jobs (%d), try again later", running))
		return
	}

	job := &models.ScrapingJob{
		JobID:    uuid.New(),
		City:     req.City,
		Category: req.Category,
		Status:   models.JobStatusPending,
	}
	if err := s.store.CreateJob(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	s.launcher.Launch(job, JobOptions{
		MaxPages:       req.MaxPages,
		DownloadImages: req.DownloadImages,
		WithPhone:      req.WithPhone,
	})
	log.Info().Str("job_id", job.JobID.String()).Str("city", req.City).Str("category", req.Category).Msg("job accepted")

	writeJSON(w, http.StatusAccepted, startJobResponse{
		JobID:   job.JobID,
		Status:  string(job.Status),
		Message: fmt.Sprintf("scraping job started for %s/%s", req.City, req.Category),
	})
}

type scrapeSingleRequest struct {
	URL       string `json:"url"`
	WithPhone bool   `json:"with_phone"`
}

func (s *Server) scrapeSingle(w http.ResponseWriter, r *http.Request) {
	var req scrapeSingleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !strings.Contains(req.URL, "divar.ir/v/") {
		writeError(w, http.StatusBadRequest, "url must be a divar.ir listing")
		return
	}
	prop, err := s.launcher.ScrapeSingle(r.Context(), req.URL, req.WithPhone)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("scrape failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, prop)
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	jobs, err := s.store.ListJobs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs, "count": len(jobs)})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseJobID(w, r)
	if !ok {
		return
	}
	job, err := s.store.GetJobByJobID(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job":      job,
		"progress": job.Progress(),
	})
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseJobID(w, r)
	if !ok {
		return
	}
	cancelled, err := s.store.MarkJobCancelled(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to cancel job")
		return
	}
	if !cancelled {
		writeError(w, http.StatusConflict, "job is not pending or running")
		return
	}
	log.Info().Str("job_id", jobID.String()).Msg("job cancellation requested")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) getJobLogs(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseJobID(w, r)
	if !ok {
		return
	}
	logs, err := s.store.GetJobLogs(r.Context(), jobID, queryInt(r, "limit", 200))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load job logs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logs, "count": len(logs)})
}

func (s *Server) listCities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"cities": s.catalog.CityList()})
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": s.catalog.CategoryList()})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetPropertyStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func parseJobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return uuid.Nil, false
	}
	return jobID, true
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
