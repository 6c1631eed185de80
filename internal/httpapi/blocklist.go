package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func (s *Server) blockDomain(w http.ResponseWriter, r *http.Request) error {
	domain, err := domainParam(r)
	if err != nil {
		return err
	}
	if err := s.blocker.BlockDomain(r.Context(), domain); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) unblockDomain(w http.ResponseWriter, r *http.Request) error {
	domain, err := domainParam(r)
	if err != nil {
		return err
	}
	if err := s.blocker.UnblockDomain(r.Context(), domain); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func domainParam(r *http.Request) (string, error) {
	domain := strings.TrimSpace(chi.URLParam(r, "domain"))
	if domain == "" || strings.ContainsAny(domain, "@/ ") {
		return "", badRequest("invalid_domain", "domain is not valid", nil)
	}
	return domain, nil
}
