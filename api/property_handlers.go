package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"sorinflow/storage"
)

func (s *Server) listProperties(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r)
	props, total, err := s.store.ListProperties(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list properties")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"properties": props,
		"total":      total,
		"page":       f.Page,
		"per_page":   f.PerPage,
	})
}

func (s *Server) getProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	prop, err := s.store.GetPropertyByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load property")
		return
	}
	if prop == nil {
		writeError(w, http.StatusNotFound, "property not found")
		return
	}
	writeJSON(w, http.StatusOK, prop)
}

func (s *Server) deleteProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := s.store.SoftDeleteProperty(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "property not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete property")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "property deactivated"})
}

func filterFromQuery(r *http.Request) storage.PropertyFilter {
	q := r.URL.Query()
	f := storage.PropertyFilter{
		City:        q.Get("city"),
		Category:    q.Get("category"),
		ListingType: q.Get("listing_type"),
		Search:      q.Get("search"),
		SortBy:      q.Get("sort_by"),
		SortDesc:    q.Get("order") != "asc",
		HasPhone:    q.Get("has_phone") == "true",
		Page:        queryInt(r, "page", 1),
		PerPage:     queryInt(r, "per_page", 20),
	}
	f.MinPrice = queryInt64Ptr(q.Get("min_price"))
	f.MaxPrice = queryInt64Ptr(q.Get("max_price"))
	f.MinArea = queryIntPtr(q.Get("min_area"))
	f.MaxArea = queryIntPtr(q.Get("max_area"))
	f.MinRooms = queryIntPtr(q.Get("min_rooms"))
	f.MaxRooms = queryIntPtr(q.Get("max_rooms"))
	return f
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryIntPtr(raw string) *int {
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

func queryInt64Ptr(raw string) *int64 {
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
