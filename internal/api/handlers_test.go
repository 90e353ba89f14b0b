package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/config"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/logging"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/report"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 15, 14, 30, 0, 0, time.UTC)

const (
	opensCSV     = "Email,Name\nA@x.com,Ann\na@x.com,Ann again\nb@x.com,Bob\n"
	purchasesCSV = "E-mail,Valor\nA@X.com,10\nc@x.com,5\n"
)

// testClient replays the session cookie like a browser would.
type testClient struct {
	t      *testing.T
	router *chi.Mux
	cookie *http.Cookie
}

func setupTestRouter(t *testing.T, store session.Store) *testClient {
	t.Helper()
	logging.SetOutput(io.Discard)

	builder, err := report.NewBuilder(report.DefaultOptions())
	require.NoError(t, err)

	h := NewHandlers(store, builder, HandlerConfig{
		CookieName:     "convdash_session",
		SessionTTL:     time.Hour,
		MaxUploadBytes: 1 << 20,
	})
	h.now = func() time.Time { return testNow }

	hc := NewHealthChecker("memory", nil)
	return &testClient{t: t, router: SetupRoutes(h, hc, []string{"http://localhost:8080"})}
}

func (c *testClient) do(req *http.Request) *httptest.ResponseRecorder {
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rr := httptest.NewRecorder()
	c.router.ServeHTTP(rr, req)
	for _, ck := range rr.Result().Cookies() {
		if ck.Name == "convdash_session" {
			c.cookie = ck
		}
	}
	return rr
}

func (c *testClient) upload(slot, filename, content string) *httptest.ResponseRecorder {
	c.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(c.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload/"+slot, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *testClient) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func decodeAnalysis(t *testing.T, rr *httptest.ResponseRecorder) Analysis {
	t.Helper()
	var a Analysis
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &a))
	return a
}

func TestAnalysisUnavailableUntilBothUploads(t *testing.T) {
	c := setupTestRouter(t, session.NewMemoryStore(time.Hour))

	rr := c.get("/api/analysis")
	assert.Equal(t, http.StatusConflict, rr.Code)
	require.NotNil(t, c.cookie, "a session cookie is issued on first contact")
	assert.True(t, c.cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.cookie.SameSite)

	rr = c.upload("opens", "opens.csv", opensCSV)
	require.Equal(t, http.StatusOK, rr.Code)
	a := decodeAnalysis(t, rr)
	assert.True(t, a.Opens.Ready)
	assert.Equal(t, "3 rows read, 2 unique emails", a.Opens.Message)
	assert.False(t, a.Available())

	rr = c.get("/api/analysis")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "Waiting for the purchases file")
}

func TestFullAnalysisFlow(t *testing.T) {
	c := setupTestRouter(t, session.NewMemoryStore(time.Hour))
	c.upload("opens", "opens.csv", opensCSV)
	rr := c.upload("purchases", "purchases.csv", purchasesCSV)
	require.Equal(t, http.StatusOK, rr.Code)

	a := decodeAnalysis(t, rr)
	assert.Equal(t, "2 transactions, 2 unique purchasers", a.Purchases.Message)

	rr = c.get("/api/analysis")
	require.Equal(t, http.StatusOK, rr.Code)
	a = decodeAnalysis(t, rr)
	require.NotNil(t, a.Dashboard)

	res := a.Dashboard.Result
	assert.Equal(t, 2, res.Opened)
	assert.Equal(t, 2, res.Purchased)
	assert.Equal(t, 1, res.Converted)
	assert.InDelta(t, 50.0, res.Rate, 0.0001)
	assert.Equal(t, "10", res.Revenue.String())
	assert.Equal(t, []string{"a@x.com"}, res.ConvertedEmails)
	assert.Equal(t, []string{"b@x.com"}, res.OpenedNotPurchased)
	assert.Equal(t, []string{"c@x.com"}, res.PurchasedNotOpened)
	assert.Equal(t, report.RatingExcellent, a.Dashboard.Rating)
	assert.Contains(t, a.Dashboard.CopyText, "Campaign 15/10/2026")
}

func TestExportCSV(t *testing.T) {
	c := setupTestRouter(t, session.NewMemoryStore(time.Hour))
	c.upload("opens", "opens.csv", opensCSV)
	c.upload("purchases", "purchases.csv", purchasesCSV)

	tests := []struct {
		view     string
		filename string
		body     string
	}{
		{"converted", "converted_20261015.csv", "e-mail,valor,normalized_email,purchase_value\nA@X.com,10,a@x.com,10\n"},
		{"followup", "followup_20261015.csv", "email\nb@x.com\n"},
		{"organic", "organic_20261015.csv", "email\nc@x.com\n"},
	}

	for _, tt := range tests {
		t.Run(tt.view, func(t *testing.T) {
			rr := c.get("/export/" + tt.view)
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, `attachment; filename="`+tt.filename+`"`, rr.Header().Get("Content-Disposition"))
			assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
			assert.Equal(t, tt.body, rr.Body.String())
		})
	}

	rr := c.get("/export/everyone")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestExportUnavailable(t *testing.T) {
	c := setupTestRouter(t, session.NewMemoryStore(time.Hour))
	rr := c.get("/export/converted")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestUploadErrorsAreInline(t *testing.T) {
	c := setupTestRouter(t, session.NewMemoryStore(time.Hour))
	c.upload("purchases", "purchases.csv", purchasesCSV)

	tests := []struct {
		name     string
		filename string
		content  string
		contains string
	}{
		{"unsupported extension", "opens.pdf", "%PDF", "unsupported"},
		{"missing email column", "opens.csv", "name,city\nAnn,Rio\n", "missing email column"},
		{"corrupt workbook", "opens.xlsx", "not a zip archive", "could not read opens.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := c.upload("opens", tt.filename, tt.content)
			require.Equal(t, http.StatusOK, rr.Code, "user input problems never surface as 5xx")

			a := decodeAnalysis(t, rr)
			assert.False(t, a.Opens.Ready)
			assert.Contains(t, strings.ToLower(a.Opens.Error), tt.contains)
			assert.True(t, a.Purchases.Ready, "the other upload is unaffected")
			assert.Nil(t, a.Dashboard)
		})
	}
}

func TestPurchasesStatusCountsBothQuantities(t *testing.T) {
	c := setupTestRouter(t, session.NewMemoryStore(time.Hour))

	rr := c.upload("purchases", "purchases.csv", "email,valor\na@x.com,10\nA@X.com,20\nb@x.com,5\n")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "3 transactions, 2 unique purchasers", decodeAnalysis(t, rr).Purchases.Message)
}

func TestOversizeUploadIsInline(t *testing.T) {
	c := setupTestRouter(t, session.NewMemoryStore(time.Hour))
	c.upload("purchases", "purchases.csv", purchasesCSV)

	big := "email\n" + strings.Repeat("someone@example.com\n", 80000)
	require.Greater(t, len(big), 1<<20)

	rr := c.upload("opens", "opens.csv", big)
	require.Equal(t, http.StatusOK, rr.Code)

	a := decodeAnalysis(t, rr)
	assert.False(t, a.Opens.Ready)
	assert.Contains(t, a.Opens.Error, "upload limit")
	assert.True(t, a.Purchases.Ready, "the other upload is unaffected")
	assert.Nil(t, a.Dashboard)
}

func TestUploadRejectsUnknownSlotAndMissingFile(t *testing.T) {
	c := setupTestRouter(t, session.NewMemoryStore(time.Hour))

	rr := c.upload("clicks", "clicks.csv", "email\na@x.com\n")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload/opens", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr = c.do(req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCampaignUpdate(t *testing.T) {
	c := setupTestRouter(t, session.NewMemoryStore(time.Hour))
	c.upload("opens", "opens.csv", opensCSV)
	c.upload("purchases", "purchases.csv", purchasesCSV)

	post := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/campaign", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return c.do(req)
	}

	rr := post(url.Values{"name": {"Black Friday"}, "date": {"2026-11-27"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)

	a := decodeAnalysis(t, c.get("/api/analysis"))
	require.NotNil(t, a.Dashboard)
	assert.Equal(t, "Black Friday", a.Dashboard.Campaign.Name)
	assert.Equal(t, time.Date(2026, 11, 27, 0, 0, 0, 0, time.UTC), a.Dashboard.Campaign.Date)
	assert.Contains(t, a.Dashboard.CopyText, "CAMPAIGN ANALYSIS - Black Friday | 27/11/2026")
	assert.Contains(t, c.get("/").Body.String(), "<h2>Black Friday | 27/11/2026</h2>")

	// An unparsable date keeps the previous one.
	post(url.Values{"name": {"Black Friday II"}, "date": {"27/11/2026"}})
	a = decodeAnalysis(t, c.get("/api/analysis"))
	assert.Equal(t, "Black Friday II", a.Dashboard.Campaign.Name)
	assert.Equal(t, time.Date(2026, 11, 27, 0, 0, 0, 0, time.UTC), a.Dashboard.Campaign.Date)
	assert.Contains(t, c.get("/").Body.String(), "<h2>Black Friday II | 27/11/2026</h2>")
}

func TestResetClearsUploads(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	c := setupTestRouter(t, store)
	c.upload("opens", "opens.csv", opensCSV)
	c.upload("purchases", "purchases.csv", purchasesCSV)
	require.Equal(t, http.StatusOK, c.get("/api/analysis").Code)

	form := url.Values{"name": {"Launch"}}
	req := httptest.NewRequest(http.MethodPost, "/campaign", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.do(req)
	oldID := c.cookie.Value

	rr := c.do(httptest.NewRequest(http.MethodPost, "/reset", nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	assert.NotEqual(t, oldID, c.cookie.Value, "reset issues a new session")
	_, err := store.Load(context.Background(), oldID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	rr = c.get("/api/analysis")
	assert.Equal(t, http.StatusConflict, rr.Code)

	body := c.get("/").Body.String()
	assert.Contains(t, body, `value="Launch"`, "campaign metadata survives a reset")
}

func TestSessionCookieIsRefreshed(t *testing.T) {
	c := setupTestRouter(t, session.NewMemoryStore(time.Hour))
	c.get("/")
	require.NotNil(t, c.cookie)
	id := c.cookie.Value

	rr := c.get("/api/analysis")
	var refreshed *http.Cookie
	for _, ck := range rr.Result().Cookies() {
		if ck.Name == "convdash_session" {
			refreshed = ck
		}
	}
	require.NotNil(t, refreshed, "existing sessions get their cookie re-issued")
	assert.Equal(t, id, refreshed.Value)
	assert.Equal(t, int(time.Hour.Seconds()), refreshed.MaxAge)
}

func TestSessionsAreIsolated(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	alice := setupTestRouter(t, store)
	bob := setupTestRouter(t, store)

	alice.upload("opens", "opens.csv", opensCSV)
	alice.upload("purchases", "purchases.csv", purchasesCSV)

	assert.Equal(t, http.StatusOK, alice.get("/api/analysis").Code)
	assert.Equal(t, http.StatusConflict, bob.get("/api/analysis").Code)
}

func TestPageRendering(t *testing.T) {
	c := setupTestRouter(t, session.NewMemoryStore(time.Hour))

	rr := c.get("/")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	body := rr.Body.String()
	assert.Contains(t, body, "Waiting for both spreadsheets")
	assert.Contains(t, body, `accept=".xlsx,.xls,.csv"`)
	assert.Contains(t, body, "v"+Version)

	c.upload("opens", "opens.csv", opensCSV)
	c.upload("purchases", "purchases.csv", "email,valor\nA@X.com,1234.5\n<b>@x.com,5\n")

	body = c.get("/").Body.String()
	assert.NotContains(t, body, "Waiting for both spreadsheets")
	assert.Contains(t, body, "R$ 1,234.50")
	assert.Contains(t, body, `target="_blank"`)
	assert.Contains(t, body, `href="https://claude.ai/new"`)
	assert.Contains(t, body, "/export/followup")
	assert.Contains(t, body, "&lt;b&gt;@x.com", "cell values are escaped")
	assert.NotContains(t, body, "<b>@x.com")
}

func TestPagePreviewIsCapped(t *testing.T) {
	logging.SetOutput(io.Discard)
	opts := report.DefaultOptions()
	opts.PreviewRows = 2
	builder, err := report.NewBuilder(opts)
	require.NoError(t, err)

	h := NewHandlers(session.NewMemoryStore(time.Hour), builder, HandlerConfig{})
	h.now = func() time.Time { return testNow }
	c := &testClient{t: t, router: SetupRoutes(h, NewHealthChecker("memory", nil), nil)}

	c.upload("opens", "opens.csv", "email\na@x.com\nb@x.com\nc@x.com\nd@x.com\n")
	c.upload("purchases", "purchases.csv", "email\nz@x.com\n")

	body := c.get("/").Body.String()
	assert.Contains(t, body, "Showing the first 2 of 4 rows")

	export := c.get("/export/followup").Body.String()
	assert.Equal(t, "email\na@x.com\nb@x.com\nc@x.com\nd@x.com\n", export)
}

func TestHealthEndpoints(t *testing.T) {
	c := setupTestRouter(t, session.NewMemoryStore(time.Hour))

	rr := c.get("/health")
	require.Equal(t, http.StatusOK, rr.Code)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, Version, status.Version)

	assert.Equal(t, http.StatusOK, c.get("/health/live").Code)
	assert.Equal(t, http.StatusOK, c.get("/health/ready").Code)
}

func TestReadinessWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	hc := NewHealthChecker("redis", client)

	rr := httptest.NewRecorder()
	hc.HandleReadiness(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	mr.Close()
	rr = httptest.NewRecorder()
	hc.HandleReadiness(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRedisBackedSession(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := setupTestRouter(t, session.NewRedisStore(client, time.Hour))
	c.upload("opens", "opens.csv", opensCSV)
	c.upload("purchases", "purchases.csv", purchasesCSV)

	rr := c.get("/api/analysis")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decodeAnalysis(t, rr).Dashboard.Result.Converted)
}

func TestSafeErrorMessage(t *testing.T) {
	tests := []struct {
		code int
		err  string
		want string
	}{
		{400, "file field is required", "file field is required"},
		{500, "redis set session: dial tcp 127.0.0.1:6379: connection refused", "Session storage temporarily unavailable"},
		{500, "context deadline exceeded", "Request timed out"},
		{500, "template: dashboard: boom", "An internal error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			assert.Equal(t, tt.want, safeErrorMessage(tt.code, errString(tt.err)))
		})
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func TestServerHandlerServesRoutes(t *testing.T) {
	logging.SetOutput(io.Discard)
	builder, err := report.NewBuilder(report.DefaultOptions())
	require.NoError(t, err)

	h := NewHandlers(session.NewMemoryStore(time.Hour), builder, HandlerConfig{})
	srv := NewServer(config.ServerConfig{AllowedOrigins: []string{"http://localhost:8080"}}, h, NewHealthChecker("memory", nil))

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NoError(t, srv.Shutdown(context.Background()), "shutdown before start is a no-op")
}
