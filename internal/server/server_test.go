package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/fit-check/internal/ai"
	"github.com/spigell/fit-check/internal/closet"
	"github.com/spigell/fit-check/internal/fitcheck"
	"github.com/spigell/fit-check/internal/session"
	"github.com/spigell/fit-check/internal/store"
	"github.com/spigell/fit-check/internal/vibe"
)

type fakeRater struct {
	calls int
}

func (f *fakeRater) Rate(_ context.Context, req ai.RatingRequest) (*ai.Rating, error) {
	f.calls++
	return &ai.Rating{
		TargetStyle: req.Style.ID,
		MatchScore:  91,
		Confidence:  0.8,
		TopMatch:    true,
		BottomMatch: false,
		Reasons:     []string{"oversized puffer"},
		Suggestions: []string{"swap the khakis"},
		Grade:       ai.Grade(91),
	}, nil
}

type fakeRubrics struct{}

func (fakeRubrics) GenerateRubric(_ context.Context, description string) (*closet.Rubric, error) {
	if description == "boom" {
		return nil, errors.New("model exploded")
	}
	return &closet.Rubric{SignatureItems: []string{"cardigan"}, AvoidItems: []string{"neon"}}, nil
}

type testEnv struct {
	srv   *Server
	auth  *JWTAuth
	rater *fakeRater
	store *store.SQLiteStore
}

func newTestEnv(t *testing.T, cfg Config, withAI bool) *testEnv {
	t.Helper()

	catalog, err := vibe.Builtin()
	require.NoError(t, err)

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "fit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	sessions := session.NewMemory(time.Hour)
	t.Cleanup(func() { sessions.Close() }) //nolint:errcheck

	deps := fitcheck.Deps{Catalog: catalog, Store: st, Sessions: sessions, Logger: zap.NewNop()}
	rater := &fakeRater{}
	if withAI {
		deps.Rater = rater
		deps.Rubrics = fakeRubrics{}
	}
	svc, err := fitcheck.New(deps)
	require.NoError(t, err)

	auth := NewJWTAuth("test-secret", time.Hour)
	srv, err := New(cfg, svc, auth, zap.NewNop())
	require.NoError(t, err)

	return &testEnv{srv: srv, auth: auth, rater: rater, store: st}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) bearer(t *testing.T, user string) map[string]string {
	t.Helper()
	token, err := e.auth.GenerateToken(user)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func pngPayload() string {
	encoded := base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nxx"))
	return fmt.Sprintf(`{"image":"data:image/png;base64,%s"}`, encoded)
}

func TestHealthAndSessionHeader(t *testing.T) {
	env := newTestEnv(t, Config{}, true)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(sessionHeader))

	rec = env.do(t, http.MethodGet, "/health", "", map[string]string{sessionHeader: "session-12345"})
	assert.Equal(t, "session-12345", rec.Header().Get(sessionHeader))

	rec = env.do(t, http.MethodGet, "/health", "", map[string]string{sessionHeader: "bad id!"})
	assert.NotEqual(t, "bad id!", rec.Header().Get(sessionHeader))
}

func TestStyles(t *testing.T) {
	env := newTestEnv(t, Config{}, true)

	rec := env.do(t, http.MethodGet, "/api/styles", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body stylesResponse
	decodeBody(t, rec, &body)
	require.NotEmpty(t, body.Styles)

	ids := make([]string, 0, len(body.Styles))
	for _, s := range body.Styles {
		ids = append(ids, s.ID)
	}
	assert.Contains(t, ids, "rapper")
}

func TestCaptureRateSuggest(t *testing.T) {
	env := newTestEnv(t, Config{}, true)
	require.NoError(t, env.store.PutItems(context.Background(), []closet.Item{
		{ID: "t1", Category: "rapper", SourceSlot: closet.SlotTop, Attributes: closet.Attributes{Type: "puffer jacket"}},
		{ID: "b1", Category: "rapper", SourceSlot: closet.SlotBottom, Attributes: closet.Attributes{Type: "stacked jeans"}},
	}))
	headers := map[string]string{sessionHeader: "session-abcdef"}

	rec := env.do(t, http.MethodPost, "/api/capture", pngPayload(), headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var capture captureResponse
	decodeBody(t, rec, &capture)
	assert.Equal(t, "session-abcdef", capture.SessionID)
	assert.Equal(t, "image/png", capture.MIMEType)

	// empty body falls back to the stored capture
	rec = env.do(t, http.MethodPost, "/api/rating/rapper", "", headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rating ai.Rating
	decodeBody(t, rec, &rating)
	assert.Equal(t, "rapper", rating.TargetStyle)
	assert.Equal(t, 91.0, rating.MatchScore)
	assert.Equal(t, 1, env.rater.calls)

	rec = env.do(t, http.MethodGet, "/api/suggestions/rapper", "", headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sugg fitcheck.Suggestions
	decodeBody(t, rec, &sugg)
	assert.False(t, sugg.NeedTops)
	assert.True(t, sugg.NeedBottoms)
	require.Len(t, sugg.Picks, 1)
	assert.Equal(t, "b1", sugg.Picks[0].ID)
	assert.Empty(t, sugg.Outfits)
}

func TestRatingErrors(t *testing.T) {
	env := newTestEnv(t, Config{}, true)

	rec := env.do(t, http.MethodPost, "/api/rating/rapper", `{}`, map[string]string{sessionHeader: "fresh-session"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), fitcheck.ErrMissingCapture.Error())

	rec = env.do(t, http.MethodPost, "/api/rating/disco", pngPayload(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/rating/rapper", `{"image":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/capture", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "image is required")
}

func TestRatingWithoutAI(t *testing.T) {
	env := newTestEnv(t, Config{}, false)

	rec := env.do(t, http.MethodPost, "/api/rating/rapper", pngPayload(), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/generate-rubric", `{"styleDescription":"cozy"}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGenerateRubric(t *testing.T) {
	env := newTestEnv(t, Config{}, true)

	rec := env.do(t, http.MethodPost, "/api/generate-rubric", `{"styleDescription":"cozy knits"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body rubricResponse
	decodeBody(t, rec, &body)
	assert.True(t, body.Success)
	assert.Equal(t, []string{"cardigan"}, body.Rubric.SignatureItems)

	rec = env.do(t, http.MethodPost, "/api/generate-rubric", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "styleDescription is required")

	rec = env.do(t, http.MethodPost, "/api/generate-rubric", `{"styleDescription":"boom"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "exploded")
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, Config{RateLimit: 0.001, RateBurst: 1}, true)

	rec := env.do(t, http.MethodPost, "/api/generate-rubric", `{"styleDescription":"cozy"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/generate-rubric", `{"styleDescription":"cozy"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// non-LLM routes are not limited
	rec = env.do(t, http.MethodGet, "/api/styles", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCustomVibesRequireAuth(t *testing.T) {
	env := newTestEnv(t, Config{}, true)

	rec := env.do(t, http.MethodGet, "/api/custom-vibes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/custom-vibes", "", map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/custom-vibes", "", map[string]string{"Authorization": "Basic abc"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCustomVibesCRUD(t *testing.T) {
	env := newTestEnv(t, Config{}, true)
	alice := env.bearer(t, "alice")
	bob := env.bearer(t, "bob")

	rec := env.do(t, http.MethodPost, "/api/custom-vibes",
		`{"name":"Cozy Knits","description":"soft","rubric":{"signature_items":["cardigan"],"avoid":["neon"]}}`, alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created store.CustomVibe
	decodeBody(t, rec, &created)
	assert.Equal(t, "custom-cozy-knits", created.ID)
	assert.Equal(t, "alice", created.UserID)

	rec = env.do(t, http.MethodPost, "/api/custom-vibes", `{"name":"No Rubric"}`, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "rubric is required")

	rec = env.do(t, http.MethodGet, "/api/custom-vibes", "", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Vibes []store.CustomVibe `json:"vibes"`
	}
	decodeBody(t, rec, &list)
	require.Len(t, list.Vibes, 1)

	rec = env.do(t, http.MethodGet, "/api/custom-vibes/custom-cozy-knits", "", alice)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/custom-vibes/custom-cozy-knits", "", bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// custom vibes rate like presets for their owner
	rec = env.do(t, http.MethodPost, "/api/rating/custom-cozy-knits", pngPayload(), alice)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodPost, "/api/rating/custom-cozy-knits", pngPayload(), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/custom-vibes", "", alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/custom-vibes?id=custom-cozy-knits", "", alice)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/custom-vibes/custom-cozy-knits", "", alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAccessLog(t *testing.T) {
	env := newTestEnv(t, Config{}, true)
	core, logs := observer.New(zap.DebugLevel)
	env.srv.logger = zap.New(core)

	env.do(t, http.MethodGet, "/api/suggestions/disco", "", map[string]string{sessionHeader: "session-logged"})

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, int64(http.StatusNotFound), fields["status"])
	assert.Equal(t, "/api/suggestions/disco", fields["path"])
	assert.Equal(t, "session-logged", fields["session_id"])
	assert.NotContains(t, fields, "user_id")
}

func TestAccessLogIncludesAuthenticatedUser(t *testing.T) {
	env := newTestEnv(t, Config{}, true)
	core, logs := observer.New(zap.DebugLevel)
	env.srv.logger = zap.New(core)

	rec := env.do(t, http.MethodGet, "/api/custom-vibes", "", env.bearer(t, "alice"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/custom-vibes", "", map[string]string{"Authorization": "Bearer nope"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].ContextMap()["user_id"])
	assert.Equal(t, int64(http.StatusUnauthorized), entries[1].ContextMap()["status"])
	assert.NotContains(t, entries[1].ContextMap(), "user_id")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", fitcheck.ErrInvalidInput), http.StatusBadRequest},
		{fitcheck.ErrMissingCapture, http.StatusBadRequest},
		{ai.ErrEmptyImage, http.StatusBadRequest},
		{fitcheck.ErrUnauthenticated, http.StatusUnauthorized},
		{fitcheck.ErrRubricNotFound, http.StatusNotFound},
		{fitcheck.ErrVibeNotFound, http.StatusNotFound},
		{fitcheck.ErrNotConfigured, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := httpStatus(tt.err); got != tt.want {
			t.Fatalf("httpStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestNewRequiresService(t *testing.T) {
	_, err := New(Config{}, nil, nil, nil)
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	env := newTestEnv(t, Config{Addr: "127.0.0.1:0"}, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
