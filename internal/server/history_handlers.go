package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MeKo-Tech/qrscan/internal/history"
)

func toItems(entries []history.Entry) []HistoryItem {
	items := make([]HistoryItem, len(entries))
	for i, e := range entries {
		items[i] = HistoryItem{ID: e.ID(), Data: e.Data, Symbol: e.Symbol, Links: history.Links(e.Data)}
	}
	return items
}

func (s *Server) historyListHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeErrorResponse(w, "History is disabled", http.StatusNotFound)
		return
	}
	items := toItems(s.history.List())
	s.writeJSON(w, http.StatusOK, HistoryResponse{Entries: items, Count: len(items)})
}

func (s *Server) historyClearHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeErrorResponse(w, "History is disabled", http.StatusNotFound)
		return
	}
	if err := s.history.Clear(r.Context()); err != nil {
		s.writeErrorResponse(w, "Failed to clear history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) historyDeleteHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeErrorResponse(w, "History is disabled", http.StatusNotFound)
		return
	}
	id := mux.Vars(r)["id"]
	removed, err := s.history.Delete(r.Context(), id)
	if err != nil {
		s.writeErrorResponse(w, "Failed to delete entry: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if removed == 0 {
		s.writeErrorResponse(w, "No entry with id "+id, http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// historyCopyHandler returns the payloads of the requested entries (all when
// no id is given) as plain text separated by blank lines.
func (s *Server) historyCopyHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeErrorResponse(w, "History is disabled", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.history.Copy(r.URL.Query()["id"]...)))
}
