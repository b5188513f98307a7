package web

import (
	"net/http"

	"github.com/wonlinemenu/refadmin/internal/domain"
)

type homePage struct {
	page
	Records []domain.Reference
	Error   string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	snap := s.board.Snapshot()
	if !snap.Loaded {
		// Failure is surfaced through the snapshot.
		_ = s.board.Refresh(r.Context())
		snap = s.board.Snapshot()
	}
	s.render(w, r, http.StatusOK, "home", homePage{
		page:    page{Title: "References"},
		Records: snap.Records,
		Error:   snap.Error,
	})
}
