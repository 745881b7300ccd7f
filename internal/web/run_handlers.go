package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sloppy/nettools/internal/ping"
	"github.com/sloppy/nettools/internal/portscan"
	"github.com/sloppy/nettools/internal/runs"
)

// maxWait bounds GET /api/runs/{id}?wait=1.
const maxWait = 60 * time.Second

type startResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func runURL(id string) string {
	return "/api/runs/" + id
}

func (s *Server) handleAPIStartScan(w http.ResponseWriter, r *http.Request) {
	var req portscan.Request
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}
	id, err := s.Runs.StartScan(req)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, startResponse{ID: id, URL: runURL(id)}, http.StatusAccepted)
}

func (s *Server) handleAPIStartPing(w http.ResponseWriter, r *http.Request) {
	var req ping.Request
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}
	id, err := s.Runs.StartPing(req)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, startResponse{ID: id, URL: runURL(id)}, http.StatusAccepted)
}

func (s *Server) handleAPIStartSpeed(w http.ResponseWriter, r *http.Request) {
	id, err := s.Runs.StartSpeed()
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, startResponse{ID: id, URL: runURL(id)}, http.StatusAccepted)
}

func (s *Server) handleAPIListRuns(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, s.Runs.List(), http.StatusOK)
}

func (s *Server) handleAPIGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if r.URL.Query().Get("wait") != "" {
		ctx, cancel := context.WithTimeout(r.Context(), maxWait)
		defer cancel()
		snap, err := s.Runs.Wait(ctx, id)
		if err != nil && snap.ID == "" {
			s.errorResponse(w, err)
			return
		}
		s.jsonResponse(w, snap, http.StatusOK)
		return
	}
	snap, err := s.Runs.Snapshot(id)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, snap, http.StatusOK)
}

func (s *Server) handleAPIStopRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Runs.Stop(id); err != nil {
		s.errorResponse(w, err)
		return
	}
	snap, err := s.Runs.Snapshot(id)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, snap, http.StatusAccepted)
}

func (s *Server) handleAPIResetRun(w http.ResponseWriter, r *http.Request) {
	if err := s.Runs.Reset(chi.URLParam(r, "id")); err != nil {
		s.errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScanPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, scanPage(portscan.Request{Mode: portscan.ModeCommon, PortRange: "1-1000"}, nil))
}

func (s *Server) handleScanSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	req := portscan.Request{
		Host:      r.PostForm.Get("host"),
		Mode:      portscan.Mode(r.PostForm.Get("mode")),
		PortRange: r.PostForm.Get("port_range"),
	}
	id, err := s.Runs.StartScan(req)
	if err != nil {
		renderStatus(w, r, errorStatus(err), scanPage(req, err))
		return
	}
	http.Redirect(w, r, "/runs/"+id, http.StatusSeeOther)
}

func (s *Server) handlePingPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, pingPage(ping.Request{}, nil))
}

func (s *Server) handlePingSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	req := ping.Request{Host: r.PostForm.Get("host")}
	id, err := s.Runs.StartPing(req)
	if err != nil {
		renderStatus(w, r, errorStatus(err), pingPage(req, err))
		return
	}
	http.Redirect(w, r, "/runs/"+id, http.StatusSeeOther)
}

func (s *Server) handleSpeedPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, speedPage(nil))
}

func (s *Server) handleSpeedSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := s.Runs.StartSpeed()
	if err != nil {
		renderStatus(w, r, errorStatus(err), speedPage(err))
		return
	}
	http.Redirect(w, r, "/runs/"+id, http.StatusSeeOther)
}

func (s *Server) handleRunPage(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Runs.Snapshot(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "run not found", errorStatus(err))
		return
	}
	render(w, r, runPage(snap))
}

func (s *Server) handleRunStopForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Runs.Stop(id); err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}
	http.Redirect(w, r, "/runs/"+id, http.StatusSeeOther)
}

func (s *Server) handleRunResetForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.Runs.Snapshot(id)
	if err != nil {
		http.Error(w, "run not found", errorStatus(err))
		return
	}
	if err := s.Runs.Reset(id); err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}
	http.Redirect(w, r, toolPath(snap.Kind), http.StatusSeeOther)
}

func toolPath(kind runs.Kind) string {
	switch kind {
	case runs.KindScan:
		return "/tools/port-scanner"
	case runs.KindPing:
		return "/tools/ping-test"
	default:
		return "/tools/speed-test"
	}
}
