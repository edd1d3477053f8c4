package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coreflow-cms/internal/accounts"
	"coreflow-cms/internal/app"
	"coreflow-cms/internal/auth"
	"coreflow-cms/internal/casestudies"
	"coreflow-cms/internal/comments"
	"coreflow-cms/internal/config"
	"coreflow-cms/internal/taxonomy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminKey = "operator-key"

type testAPI struct {
	server *httptest.Server
	app    *app.App
	alice  accounts.User
	cases  []casestudies.CaseStudy
	terms  map[taxonomy.Kind]taxonomy.Term
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()

	cfg := &config.Config{
		StoreDriver:        config.StoreSQLite,
		DatabaseURL:        ":memory:",
		CacheTTLSeconds:    300,
		JWTSecret:          "test-secret",
		SessionTTLMinutes:  60,
		AdminAPIKey:        testAdminKey,
		RateLimitComments:  1000,
		RateLimitWindowSec: 60,
		MediaBackend:       config.MediaLocal,
		MediaURL:           "/media/",
		MediaRoot:          t.TempDir(),
		StaticURL:          "/static/",
		StaticRoot:         t.TempDir(),
		Timezone:           time.UTC,
	}
	a, err := app.New(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	handler, err := newRouter(a)
	require.NoError(t, err)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	api := &testAPI{server: server, app: a, terms: map[taxonomy.Kind]taxonomy.Term{}}
	for kind, name := range map[taxonomy.Kind]string{
		taxonomy.KindClient:   "MineraCorp",
		taxonomy.KindLocation: "Perth, Australia",
		taxonomy.KindIndustry: "Mining",
	} {
		term, err := a.Terms.Create(ctx, kind, taxonomy.UpsertRequest{Name: name})
		require.NoError(t, err)
		api.terms[kind] = term
	}
	for _, title := range []string{"Copper Mine Expansion", "Gold Mine Dewatering"} {
		item, err := a.CaseStudies.Create(ctx, api.caseStudyRequest(title))
		require.NoError(t, err)
		api.cases = append(api.cases, item)
	}

	api.alice, err = a.Accounts.Ensure(ctx, "alice", "alice@example.com", "alice-password", auth.RoleUser)
	require.NoError(t, err)
	_, err = a.Accounts.Ensure(ctx, "moder", "moder@example.com", "moder-password", auth.RoleModerator)
	require.NoError(t, err)
	_, err = a.Accounts.Ensure(ctx, "chief", "chief@example.com", "chief-password", auth.RoleAdmin)
	require.NoError(t, err)
	return api
}

func (api *testAPI) caseStudyRequest(title string) casestudies.UpsertRequest {
	return casestudies.UpsertRequest{
		Title:       title,
		ClientID:    api.terms[taxonomy.KindClient].ID,
		LocationID:  api.terms[taxonomy.KindLocation].ID,
		IndustryID:  api.terms[taxonomy.KindIndustry].ID,
		Description: "<p>Scope of work</p>",
	}
}

// token signs username in through the API and returns the bearer token.
func (api *testAPI) token(t *testing.T, username, password string) string {
	t.Helper()
	status, body := api.do(t, http.MethodPost, "/api/v1/auth/token", nil, map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var out accounts.TokenResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.AccessToken)
	return out.AccessToken
}

func (api *testAPI) do(t *testing.T, method, path string, headers map[string]string, payload interface{}) (int, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, api.server.URL+path, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := api.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"), "%s %s", method, path)
	}
	return resp.StatusCode, raw
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func (api *testAPI) publicCounts(t *testing.T) map[string]int64 {
	t.Helper()
	status, body := api.do(t, http.MethodGet, "/api/v1/case-studies", nil, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var page casestudies.Page
	require.NoError(t, json.Unmarshal(body, &page))
	counts := make(map[string]int64, len(page.Items))
	for _, item := range page.Items {
		counts[item.Slug] = item.CommentCount
	}
	return counts
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	var out struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out.Error
}

func TestApproveCommentsRefreshesPublicCounts(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	copper, gold := api.cases[0], api.cases[1]

	var ids []string
	for _, target := range []casestudies.CaseStudy{copper, copper, gold} {
		c, err := api.app.Comments.Submit(ctx, api.alice.Principal(), comments.Target{ID: target.ID, Slug: target.Slug}, "Great result")
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	// the list is now cached with nothing approved
	assert.Equal(t, map[string]int64{copper.Slug: 0, gold.Slug: 0}, api.publicCounts(t))

	modToken := api.token(t, "moder", "moder-password")
	status, body := api.do(t, http.MethodPost, "/api/v1/admin/comments/approve", bearer(modToken), map[string][]string{"ids": ids})
	require.Equal(t, http.StatusOK, status, string(body))
	var out map[string]int64
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, map[string]int64{"updated": 3}, out)

	assert.Equal(t, map[string]int64{copper.Slug: 2, gold.Slug: 1}, api.publicCounts(t))

	status, body = api.do(t, http.MethodPost, "/api/v1/admin/comments/disapprove", bearer(modToken), map[string][]string{"ids": ids[:1]})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, map[string]int64{copper.Slug: 1, gold.Slug: 1}, api.publicCounts(t))
}

func TestApproveCommentsRejectsEmptyIDs(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(t, http.MethodPost, "/api/v1/admin/comments/approve", map[string]string{"X-Admin-Key": testAdminKey}, map[string][]string{"ids": {}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation error", errorMessage(t, body))
}

func TestAdminRoutesRequireRole(t *testing.T) {
	api := newTestAPI(t)
	userToken := api.token(t, "alice", "alice-password")
	modToken := api.token(t, "moder", "moder-password")
	adminToken := api.token(t, "chief", "chief-password")

	cases := []struct {
		name    string
		method  string
		path    string
		headers map[string]string
		payload interface{}
		status  int
	}{
		{"anonymous admin list", http.MethodGet, "/api/v1/admin/case-studies", nil, nil, http.StatusUnauthorized},
		{"anonymous approve", http.MethodPost, "/api/v1/admin/comments/approve", nil, map[string][]string{"ids": {"x"}}, http.StatusUnauthorized},
		{"bad admin key", http.MethodGet, "/api/v1/admin/users", map[string]string{"X-Admin-Key": "wrong"}, nil, http.StatusUnauthorized},
		{"user approve", http.MethodPost, "/api/v1/admin/comments/approve", bearer(userToken), map[string][]string{"ids": {"x"}}, http.StatusForbidden},
		{"user admin list", http.MethodGet, "/api/v1/admin/case-studies", bearer(userToken), nil, http.StatusForbidden},
		{"moderator admin list", http.MethodGet, "/api/v1/admin/case-studies", bearer(modToken), nil, http.StatusForbidden},
		{"moderator term create", http.MethodPost, "/api/v1/admin/terms/client", bearer(modToken), map[string]string{"name": "Acme"}, http.StatusForbidden},
		{"moderator comment queue", http.MethodGet, "/api/v1/admin/comments", bearer(modToken), nil, http.StatusOK},
		{"admin user list", http.MethodGet, "/api/v1/admin/users", bearer(adminToken), nil, http.StatusOK},
		{"operator key", http.MethodGet, "/api/v1/admin/case-studies", map[string]string{"X-Admin-Key": testAdminKey}, nil, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := api.do(t, tc.method, tc.path, tc.headers, tc.payload)
			assert.Equal(t, tc.status, status, string(body))
		})
	}
}

func TestDemotedAdminLosesAPIAccess(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()

	token := api.token(t, "chief", "chief-password")
	status, _ := api.do(t, http.MethodGet, "/api/v1/admin/users", bearer(token), nil)
	require.Equal(t, http.StatusOK, status)

	chief, err := api.app.Accounts.Authenticate(ctx, "chief", "chief-password")
	require.NoError(t, err)
	status, body := api.do(t, http.MethodPatch, "/api/v1/admin/users/"+chief.ID+"/role",
		map[string]string{"X-Admin-Key": testAdminKey}, map[string]string{"role": auth.RoleUser})
	require.Equal(t, http.StatusOK, status, string(body))

	status, _ = api.do(t, http.MethodGet, "/api/v1/admin/users", bearer(token), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = api.do(t, http.MethodDelete, "/api/v1/admin/users/"+chief.ID, map[string]string{"X-Admin-Key": testAdminKey}, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	status, _ = api.do(t, http.MethodGet, "/api/v1/admin/users", bearer(token), nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAdminCRUDErrors(t *testing.T) {
	api := newTestAPI(t)
	op := map[string]string{"X-Admin-Key": testAdminKey}
	missing := "000000000000000000000000"

	t.Run("update unknown case study", func(t *testing.T) {
		status, body := api.do(t, http.MethodPut, "/api/v1/admin/case-studies/"+missing, op, api.caseStudyRequest("Silver Mine"))
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "case study not found", errorMessage(t, body))
	})

	t.Run("delete unknown case study", func(t *testing.T) {
		status, body := api.do(t, http.MethodDelete, "/api/v1/admin/case-studies/"+missing, op, nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "case study not found", errorMessage(t, body))
	})

	t.Run("duplicate title", func(t *testing.T) {
		req := api.caseStudyRequest(api.cases[0].Title)
		req.Slug = "another-slug"
		status, body := api.do(t, http.MethodPost, "/api/v1/admin/case-studies", op, req)
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "title already exists", errorMessage(t, body))
	})

	t.Run("duplicate slug", func(t *testing.T) {
		req := api.caseStudyRequest("Zinc Smelter")
		req.Slug = api.cases[0].Slug
		status, body := api.do(t, http.MethodPost, "/api/v1/admin/case-studies", op, req)
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "slug already exists", errorMessage(t, body))
	})

	t.Run("unknown term", func(t *testing.T) {
		req := api.caseStudyRequest("Zinc Smelter")
		req.ClientID = missing
		status, _ := api.do(t, http.MethodPost, "/api/v1/admin/case-studies", op, req)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("duplicate term name", func(t *testing.T) {
		status, body := api.do(t, http.MethodPost, "/api/v1/admin/terms/client", op, map[string]string{"name": "MineraCorp"})
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "name already exists", errorMessage(t, body))
	})

	t.Run("rename unknown term", func(t *testing.T) {
		status, _ := api.do(t, http.MethodPut, "/api/v1/admin/terms/client/"+missing, op, map[string]string{"name": "Acme"})
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("delete unknown user", func(t *testing.T) {
		status, body := api.do(t, http.MethodDelete, "/api/v1/admin/users/"+missing, op, nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "user not found", errorMessage(t, body))
	})

	t.Run("create then search", func(t *testing.T) {
		status, body := api.do(t, http.MethodPost, "/api/v1/admin/case-studies", op, api.caseStudyRequest("Solar Farm"))
		require.Equal(t, http.StatusCreated, status, string(body))

		status, body = api.do(t, http.MethodGet, "/api/v1/admin/case-studies?q=mine", op, nil)
		require.Equal(t, http.StatusOK, status, string(body))
		var out struct {
			Items []casestudies.CaseStudy `json:"items"`
			Total int64                   `json:"total"`
		}
		require.NoError(t, json.Unmarshal(body, &out))
		assert.EqualValues(t, 2, out.Total)
		require.Len(t, out.Items, 2)
		assert.Equal(t, "Copper Mine Expansion", out.Items[0].Title)
	})
}

func TestUnknownAPIPathReturnsJSON(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/api/v1/nope", "/api/v1/admin/nope", "/api/v1/case-studies/a/b"} {
		status, body := api.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusNotFound, status, path)
		assert.Equal(t, "not found", errorMessage(t, body), path)
	}

	status, body := api.do(t, http.MethodDelete, "/api/v1/case-studies", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, "method not allowed", errorMessage(t, body))
}
