package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"sorinflow/models"
)

type createProxyRequest struct {
	Address  string `json:"address"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Protocol string `json:"protocol"`
}

func (s *Server) listProxies(w http.ResponseWriter, r *http.Request) {
	proxies, err := s.store.ListProxies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list proxies")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"proxies": proxies, "count": len(proxies)})
}

func (s *Server) createProxy(w http.ResponseWriter, r *http.Request) {
	var req createProxyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Address == "" || req.Port <= 0 || req.Port > 65535 {
		writeError(w, http.StatusBadRequest, "address and a valid port are required")
		return
	}
	if req.Protocol == "" {
		req.Protocol = "http"
	}
	switch req.Protocol {
	case "http", "https", "socks5":
	default:
		writeError(w, http.StatusBadRequest, "protocol must be http, https or socks5")
		return
	}

	proxy := &models.Proxy{
		Address:  req.Address,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
		Protocol: req.Protocol,
		IsActive: true,
	}
	if err := s.store.CreateProxy(r.Context(), proxy); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create proxy")
		return
	}
	writeJSON(w, http.StatusCreated, proxy)
}

func (s *Server) testProxy(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	proxy, err := s.store.GetProxy(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load proxy")
		return
	}
	if proxy == nil {
		writeError(w, http.StatusNotFound, "proxy not found")
		return
	}

	working, responseMS := s.probe(r.Context(), proxy)
	if err := s.store.RecordProxyResult(r.Context(), id, working, responseMS); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record result")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"working":     working,
		"response_ms": responseMS,
	})
}

// probeProxy issues a HEAD request to the target site through the proxy.
func probeProxy(ctx context.Context, p *models.Proxy) (bool, float64) {
	proxyURL, err := url.Parse(p.URL())
	if err != nil {
		return false, 0
	}
	client := &http.Client{
		Timeout:   15 * time.Second,
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, "https://divar.ir", nil)
	if err != nil {
		return false, 0
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		return false, elapsed
	}
	resp.Body.Close()
	return resp.StatusCode < 500, elapsed
}

func (s *Server) deleteProxy(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteProxy(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete proxy")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "proxy removed"})
}
