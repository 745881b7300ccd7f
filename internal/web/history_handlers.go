package web

import (
	"fmt"
	"net/http"

	"github.com/sloppy/nettools/internal/db"
	"github.com/sloppy/nettools/internal/export"
)

// historyLimit caps each section of the history page and API.
const historyLimit = 50

func (s *Server) loadHistory() (db.History, error) {
	if s.DB == nil {
		return db.History{}, nil
	}
	return s.DB.LoadHistory(historyLimit)
}

func (s *Server) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	h, err := s.loadHistory()
	if err != nil {
		s.Logger.Error("load history", "err", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	render(w, r, historyPage(h, s.Now()))
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		if err := s.DB.DeleteHistory(); err != nil {
			s.Logger.Error("delete history", "err", err)
			http.Error(w, "failed to clear history", http.StatusInternalServerError)
			return
		}
	}
	http.Redirect(w, r, "/history", http.StatusSeeOther)
}

func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		s.jsonResponse(w, export.HistoryExport{ExportedAt: s.Now().UTC()}, http.StatusOK)
		return
	}
	payload, err := export.Collect(s.DB, s.Now())
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, payload, http.StatusOK)
}

func (s *Server) handleAPIDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		if err := s.DB.DeleteHistory(); err != nil {
			s.errorResponse(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "history is disabled", http.StatusNotFound)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatJSON
	}
	switch format {
	case export.FormatJSON, export.FormatCSV, export.FormatText:
	default:
		http.Error(w, "unsupported format", http.StatusBadRequest)
		return
	}

	ext := format
	if format == export.FormatText {
		ext = "txt"
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"nettools-history.%s\"", ext))
	if err := export.Write(s.DB, w, format, s.Now()); err != nil {
		s.Logger.Error("export history", "format", format, "err", err)
	}
}
