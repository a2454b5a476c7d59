package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/forgeapp/forge-server/internal/http/response"
)

// handleEvents streams a space's events to a member. It is a plain chi
// route: Huma operations cannot hold a response open.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	spaceID := chi.URLParam(r, "spaceId")

	member, err := s.RequireMember(r.Context(), spaceID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	s.sseHandler.Serve(w, r, member.SpaceID, member.UserID)
}
