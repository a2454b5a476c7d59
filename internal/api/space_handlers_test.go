package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeapp/forge-server/internal/domain"
	"github.com/forgeapp/forge-server/internal/service"
)

func TestSpaces_BootstrapIsIdempotent(t *testing.T) {
	ts := setupTestServer(t)
	token, spaceID := ts.bootstrap(t, "Alice", "alice@example.com")

	resp := ts.api.Post("/api/v1/spaces/bootstrap", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)
	spaces := decode[SpacesResponse](t, resp).Data.Spaces
	require.Len(t, spaces, 1)
	assert.Equal(t, spaceID, spaces[0].ID)
	assert.Equal(t, "Alice Workspace", spaces[0].Name)

	resp = ts.api.Get("/api/v1/spaces/"+spaceID+"/boards", bearer(token))
	boards := decode[BoardsResponse](t, resp).Data.Boards
	require.Len(t, boards, 1)
	assert.Equal(t, "My Kanban", boards[0].Title)
}

func TestSpaces_CreateAndList(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.register(t, "Alice", "alice@example.com")

	resp := ts.api.Post("/api/v1/spaces", bearer(token), map[string]any{"name": "Design"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	space := decode[domain.Space](t, resp).Data
	assert.Equal(t, "Design", space.Name)
	require.Len(t, space.Members, 1)
	assert.Equal(t, domain.RoleOwner, space.Members[0].Role)

	resp = ts.api.Get("/api/v1/spaces", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)
	spaces := decode[SpacesResponse](t, resp).Data.Spaces
	require.Len(t, spaces, 1)
	assert.Equal(t, space.ID, spaces[0].ID)
}

func TestMembers_InviteGrantsAccess(t *testing.T) {
	ts := setupTestServer(t)
	aliceToken, spaceID := ts.bootstrap(t, "Alice", "alice@example.com")
	bobToken := ts.register(t, "Bob", "bob@example.com")

	resp := ts.api.Get("/api/v1/spaces/"+spaceID+"/boards", bearer(bobToken))
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/api/v1/spaces/"+spaceID+"/members", bearer(aliceToken), map[string]any{
		"email": "Bob@Example.com",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	invite := decode[service.InviteResult](t, resp).Data
	assert.Equal(t, "bob@example.com", invite.Member.Email)
	assert.Equal(t, domain.RoleMember, invite.Member.Role)
	assert.True(t, invite.EmailSent)
	assert.Len(t, invite.Members, 2)

	resp = ts.api.Get("/api/v1/spaces/"+spaceID+"/boards", bearer(bobToken))
	assert.Equal(t, http.StatusOK, resp.Code)

	// Members cannot invite.
	resp = ts.api.Post("/api/v1/spaces/"+spaceID+"/members", bearer(bobToken), map[string]any{
		"email": "carol@example.com",
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Get("/api/v1/spaces/"+spaceID+"/members", bearer(bobToken))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[MembersResponse](t, resp).Data.Members, 2)

	resp = ts.api.Delete("/api/v1/spaces/"+spaceID+"/members/"+invite.Member.UserID, bearer(aliceToken))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/spaces/"+spaceID+"/boards", bearer(bobToken))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestMembers_InviteValidation(t *testing.T) {
	ts := setupTestServer(t)
	token, spaceID := ts.bootstrap(t, "Alice", "alice@example.com")
	path := "/api/v1/spaces/" + spaceID + "/members"

	resp := ts.api.Post(path, bearer(token), map[string]any{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.api.Post(path, bearer(token), map[string]any{"email": "bob@example.com", "role": "emperor"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMembers_OwnerCannotBeRemoved(t *testing.T) {
	ts := setupTestServer(t)
	token, spaceID := ts.bootstrap(t, "Alice", "alice@example.com")

	resp := ts.api.Get("/api/v1/auth/me", bearer(token))
	me := decode[domain.User](t, resp).Data

	resp = ts.api.Delete("/api/v1/spaces/"+spaceID+"/members/"+me.ID, bearer(token))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}
