package api

import (
	"github.com/forgeapp/forge-server/internal/service"
)

// Services groups the business services used by the API server.
type Services struct {
	Auth   *service.AuthService
	Spaces *service.SpaceService
	Boards *service.BoardService
	Pages  *service.PageService
	Shares *service.ShareService
	Search *service.SearchService
}
