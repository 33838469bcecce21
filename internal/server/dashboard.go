package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/wesm/outboundview/internal/dashboard"
	"github.com/wesm/outboundview/internal/db"
	"github.com/wesm/outboundview/internal/render"
)

// optionsResponse is the body of the option list endpoints.
type optionsResponse struct {
	Values []string `json:"values"`
	Errors []string `json:"errors"`
}

type healthResponse struct {
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
	Stats  *db.Stats `json:"stats,omitempty"`
}

func (s *Server) handleDashboardPage(
	w http.ResponseWriter, r *http.Request,
) {
	q := dashboard.ParseQuery(r.URL.Query())
	page := render.Page{Version: s.version.Version, Query: q}

	v, err := s.dash.Build(r.Context(), q)
	if err != nil {
		if handleContextError(w, err) {
			return
		}
		var ve *dashboard.ValidationError
		if !errors.As(err, &ve) {
			s.logger.Error("building dashboard", zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		// The form is still rendered so the user can correct
		// the dates.
		opts, errs, err := s.dash.Options(r.Context(), q.Account)
		if err != nil && handleContextError(w, err) {
			return
		}
		page.Invalid = ve.Message
		page.Options = opts
		page.Errors = errs
		writeHTML(w, http.StatusBadRequest, page)
		return
	}

	page.Options = v.Options
	page.View = &v
	writeHTML(w, http.StatusOK, page)
}

func (s *Server) handleDashboard(
	w http.ResponseWriter, r *http.Request,
) {
	q := dashboard.ParseQuery(r.URL.Query())
	v, err := s.dash.Build(r.Context(), q)
	if err != nil {
		if handleContextError(w, err) {
			return
		}
		var ve *dashboard.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Message)
			return
		}
		s.logger.Error("building dashboard", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleOptionList serves one of the filter option lists.
func (s *Server) handleOptionList(
	w http.ResponseWriter, r *http.Request,
	pick func(dashboard.Options) []string,
) {
	account := r.URL.Query().Get("account")
	opts, errs, err := s.dash.Options(r.Context(), account)
	if err != nil {
		if handleContextError(w, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, optionsResponse{
		Values: pick(opts),
		Errors: errs,
	})
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	s.handleOptionList(w, r, func(o dashboard.Options) []string {
		return o.Accounts
	})
}

func (s *Server) handleOrigins(w http.ResponseWriter, r *http.Request) {
	s.handleOptionList(w, r, func(o dashboard.Options) []string {
		return o.Origins
	})
}

func (s *Server) handleFunnels(w http.ResponseWriter, r *http.Request) {
	s.handleOptionList(w, r, func(o dashboard.Options) []string {
		return o.Funnels
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.dash.Refresh()
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// handleRefreshForm invalidates the caches and sends the
// browser back to the dashboard with the posted filters.
func (s *Server) handleRefreshForm(
	w http.ResponseWriter, r *http.Request,
) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	s.dash.Refresh()

	target := "/"
	if enc := dashboard.ParseQuery(r.PostForm).Values().Encode(); enc != "" {
		target += "?" + enc
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		if handleContextError(w, err) {
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status: "unavailable", Error: err.Error(),
		})
		return
	}
	stats, err := s.db.GetStats(r.Context())
	if err != nil {
		if handleContextError(w, err) {
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status: "unavailable", Error: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Stats: &stats})
}
