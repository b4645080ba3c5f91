package api

import (
	"net/http"
	"regexp"
)

var phonePattern = regexp.MustCompile(`^0?9[0-9]{9}$`)

type loginRequest struct {
	PhoneNumber string `json:"phone_number"`
}

func (s *Server) authLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !phonePattern.MatchString(req.PhoneNumber) {
		writeError(w, http.StatusBadRequest, "phone number must be an Iranian mobile number")
		return
	}
	res, err := s.auth.LoginWithPhone(r.Context(), req.PhoneNumber)
	if err != nil {
		writeError(w, http.StatusBadGateway, "login failed, browser error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type verifyRequest struct {
	Code string `json:"code"`
}

func (s *Server) authVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Code) < 4 || len(req.Code) > 6 {
		writeError(w, http.StatusBadRequest, "verification code must be 4 to 6 digits")
		return
	}
	res, err := s.auth.SubmitOTP(r.Context(), req.Code)
	if err != nil {
		writeError(w, http.StatusBadGateway, "verification failed, browser error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) authStatus(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone_number")
	status := s.auth.GetCookieStatus(r.Context(), phone)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":   s.auth.State(),
		"cookies": status,
	})
}

func (s *Server) authLogout(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.auth.Invalidate(r.Context(), req.PhoneNumber); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "session cleared"})
}
