package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/fintrack/internal/ai"
	"fjacquet/fintrack/internal/backup"
	"fjacquet/fintrack/internal/cache"
	"fjacquet/fintrack/internal/categorizer"
	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/ocr"
	"fjacquet/fintrack/internal/pipeline"
	"fjacquet/fintrack/internal/recurring"
	"fjacquet/fintrack/internal/store"
	"fjacquet/fintrack/internal/transactions"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChat struct {
	reply string
	err   error
}

func (f *fakeChat) Chat(_ context.Context, req ai.Request) (ai.Response, error) {
	if f.err != nil {
		return ai.Response{}, f.err
	}
	return ai.Response{Response: f.reply + ": " + req.Message, Provider: "test"}, nil
}

type fixedLimiter bool

func (l fixedLimiter) Allow(context.Context, string, string, int, int) bool { return bool(l) }

type fakeSuggester struct{ calls int }

func (f *fakeSuggester) SuggestCategory(context.Context, string, []string) (string, error) {
	f.calls++
	return models.CategoryUtilities, nil
}

type fakeExtractor string

func (f fakeExtractor) ExtractText(context.Context, []byte) (string, error) { return string(f), nil }

type testServer struct {
	ds        *store.MemoryStore
	notifier  *pipeline.RecordingNotifier
	suggester *fakeSuggester
	server    *Server
}

func newTestServer(t *testing.T, allowChat bool) *testServer {
	t.Helper()
	logger := logging.NewMockLogger()
	ds := store.NewMemoryStore(logger)
	txs := transactions.NewService(ds, cache.New(cache.Options{Logger: logger}), logger)
	suggester := &fakeSuggester{}
	cat := categorizer.NewCategorizer(ds, nil, suggester, logger).
		LimitSuggestions(fixedLimiter(allowChat), 0, 0)
	sessions := pipeline.NewSessions(time.Hour)
	notifier := &pipeline.RecordingNotifier{}

	deps := Deps{
		Importer:     pipeline.NewImporter(cat, txs, notifier, logger, pipeline.WithSessions(sessions)),
		Sessions:     sessions,
		Transactions: txs,
		Categorizer:  cat,
		Recurring:    recurring.NewService(ds, logger),
		Backup:       backup.NewService(ds, logger),
		Assistant: ai.NewAssistant(&fakeChat{reply: "ok"}, ds,
			ai.AssistantOptions{Limiter: fixedLimiter(allowChat)}, logger),
		Scanner: ocr.NewScanner(fakeExtractor("COOP CITY\nMilk 2.50\nTOTAL 12.40\n"), logger),
		Logger:  logger,
	}
	return &testServer{ds: ds, notifier: notifier, suggester: suggester, server: NewServer(deps, Options{})}
}

func (ts *testServer) do(t *testing.T, method, path, user string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) doJSON(t *testing.T, method, path, user string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	return ts.do(t, method, path, user, body, "application/json")
}

func multipartBody(t *testing.T, field, name string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthAndAuth(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodGet, "/api/health", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/transactions", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestImportPreviewAndConfirm(t *testing.T) {
	ts := newTestServer(t, true)
	csv := "Date,Description,Debit,Credit\n2024-03-01,Coffee Shop,4.50,\n2024-03-02,Salary,,3000.00\n"
	body, ct := multipartBody(t, "file", "march.csv", []byte(csv))

	rec := ts.do(t, http.MethodPost, "/api/imports", "u1", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var preview previewResponse
	decode(t, rec, &preview)
	assert.Equal(t, "csv", preview.Format)
	assert.Equal(t, 2, preview.Count)
	assert.Equal(t, "Food", preview.Transactions[0].Category)
	assert.Equal(t, 0, ts.ds.Count(models.TableTransactions))

	rec = ts.do(t, http.MethodPost, "/api/imports/"+preview.ID+"/confirm", "u2", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/imports/"+preview.ID+"/confirm", "u1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Imported 2 transactions")
	assert.Equal(t, 2, ts.ds.Count(models.TableTransactions))

	rec = ts.do(t, http.MethodPost, "/api/imports/"+preview.ID+"/confirm", "u1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportCancel(t *testing.T) {
	ts := newTestServer(t, true)
	body, ct := multipartBody(t, "file", "march.json", []byte(`[{"date":"2024-03-01","description":"Coffee","amount":-3}]`))

	rec := ts.do(t, http.MethodPost, "/api/imports", "u1", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var preview previewResponse
	decode(t, rec, &preview)

	rec = ts.do(t, http.MethodDelete, "/api/imports/"+preview.ID, "u1", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/imports/"+preview.ID+"/confirm", "u1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, ts.ds.Count(models.TableTransactions))
}

func TestImportErrors(t *testing.T) {
	ts := newTestServer(t, true)

	body, ct := multipartBody(t, "file", "blob.bin", []byte{0x00, 0x01, 0x02, 0xff, 0xfe})
	rec := ts.do(t, http.MethodPost, "/api/imports", "u1", body, ct)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), "not supported")

	body, ct = multipartBody(t, "file", "empty.csv", []byte("Date,Description,Amount\n2024-03-01,Nothing,0\n"))
	rec = ts.do(t, http.MethodPost, "/api/imports", "u1", body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/imports", "u1", strings.NewReader("x"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	n, ok := ts.notifier.Last()
	require.True(t, ok)
	assert.Equal(t, pipeline.LevelError, n.Level)
}

func TestTransactionsCRUD(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.doJSON(t, http.MethodPost, "/api/transactions", "u1", map[string]string{
		"date": "2024-03-01", "description": "Lunch", "amount": "12.50", "type": "expense", "category": "Food",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Transaction
	decode(t, rec, &created)
	require.NotEmpty(t, created.ID)
	assert.False(t, strings.HasPrefix(created.ID, transactions.TempIDPrefix))

	rec = ts.do(t, http.MethodGet, "/api/transactions?category=Food", "u1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Transactions []models.Transaction `json:"transactions"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Transactions, 1)

	rec = ts.doJSON(t, http.MethodPatch, "/api/transactions/"+created.ID, "u1", map[string]string{"category": "Dining"})
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodDelete, "/api/transactions/"+created.ID, "u1", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, ts.ds.Count(models.TableTransactions))
}

func TestTransactionsValidation(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.doJSON(t, http.MethodPost, "/api/transactions", "u1", map[string]string{
		"date": "2024-03-01", "amount": "-5", "type": "expense",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please check amount")

	rec = ts.doJSON(t, http.MethodPost, "/api/transactions", "u1", map[string]string{"description": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/transactions?limit=abc", "u1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/transactions?type=gift", "u1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.ds.FailNext("select", models.TableTransactions, errors.New("503"))
	rec = ts.do(t, http.MethodGet, "/api/transactions", "u1", nil, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "server")
}

func TestCategorize(t *testing.T) {
	ts := newTestServer(t, true)
	rule := models.CategorizationRule{UserID: "u1", Keyword: "uber", Category: "Transport", Priority: 10, IsActive: true}
	require.NoError(t, ts.ds.Insert(context.Background(), models.TableCategorizationRules, &rule))

	rec := ts.doJSON(t, http.MethodPost, "/api/categorize", "u1", map[string]any{
		"description":  "UBER EATS order",
		"descriptions": []string{"Coffee Shop", "zzz"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Results []categorizeResult `json:"results"`
	}
	decode(t, rec, &out)
	require.Len(t, out.Results, 3)
	assert.Equal(t, categorizeResult{Description: "UBER EATS order", Category: "Transport", Strategy: "Rule"}, out.Results[0])
	assert.Equal(t, "Food", out.Results[1].Category)
	assert.Equal(t, models.CategoryOther, out.Results[2].Category)

	rec = ts.doJSON(t, http.MethodPost, "/api/categorize", "u1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, ts.suggester.calls)
}

func TestCategorize_Suggest(t *testing.T) {
	ts := newTestServer(t, true)
	rec := ts.doJSON(t, http.MethodPost, "/api/categorize", "u1", map[string]any{
		"descriptions": []string{"Coffee Shop", "zzz"},
		"suggest":      true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Results []categorizeResult `json:"results"`
	}
	decode(t, rec, &out)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "Keyword", out.Results[0].Strategy)
	assert.Equal(t, categorizeResult{Description: "zzz", Category: models.CategoryUtilities, Strategy: "AI"}, out.Results[1])
	assert.Equal(t, 1, ts.suggester.calls)

	limited := newTestServer(t, false)
	rec = limited.doJSON(t, http.MethodPost, "/api/categorize", "u1", map[string]any{
		"description": "zzz",
		"suggest":     true,
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Zero(t, limited.suggester.calls)
}

func TestImportPreview_NoSuggestionCalls(t *testing.T) {
	ts := newTestServer(t, true)
	body, ct := multipartBody(t, "file", "unknown.csv", []byte("Date,Description,Amount\n2024-03-01,zzqx one,-7.00\n2024-03-02,zzqx two,-8.00\n"))

	rec := ts.do(t, http.MethodPost, "/api/imports", "u1", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var preview previewResponse
	decode(t, rec, &preview)
	require.Len(t, preview.Transactions, 2)
	assert.Equal(t, models.CategoryOther, preview.Transactions[0].Category)
	assert.Zero(t, ts.suggester.calls)
}

func TestChat(t *testing.T) {
	ts := newTestServer(t, true)
	rec := ts.doJSON(t, http.MethodPost, "/api/chat", "u1", map[string]any{"message": "How much on food?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]string
	decode(t, rec, &out)
	assert.Equal(t, "ok: How much on food?", out["response"])
	assert.NotEmpty(t, out["conversation_id"])

	limited := newTestServer(t, false)
	rec = limited.doJSON(t, http.MethodPost, "/api/chat", "u1", map[string]any{"message": "again"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestReceiptScan(t *testing.T) {
	ts := newTestServer(t, true)
	body, ct := multipartBody(t, "image", "receipt.jpg", []byte{0xff, 0xd8, 0xff, 0xe0})

	rec := ts.do(t, http.MethodPost, "/api/receipts", "u1", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Draft map[string]string `json:"draft"`
	}
	decode(t, rec, &out)
	assert.Equal(t, "12.40", out.Draft["amount"])
	assert.Equal(t, "COOP CITY", out.Draft["description"])
}

func TestRecurringRoutes(t *testing.T) {
	ts := newTestServer(t, true)
	rec := ts.doJSON(t, http.MethodPost, "/api/recurring", "u1", map[string]any{
		"description": "Rent", "type": "expense", "amount": "1200", "frequency": "monthly", "start_date": "2030-01-05",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var saved models.RecurringTransaction
	decode(t, rec, &saved)
	assert.Equal(t, "2030-01-05", saved.NextDueDate)

	rec = ts.do(t, http.MethodGet, "/api/recurring", "u1", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rent")

	rec = ts.do(t, http.MethodPost, "/api/recurring/refresh", "u1", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":0}`, rec.Body.String())
}

func TestBackupAndExport(t *testing.T) {
	ts := newTestServer(t, true)
	rec := ts.doJSON(t, http.MethodPost, "/api/transactions", "u1", map[string]string{
		"date": "2024-03-01", "description": "Lunch", "amount": "12.50", "type": "expense", "category": "Food",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/export?format=csv", "u1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "2024-03-01,Lunch,Food,expense,12.50")

	rec = ts.do(t, http.MethodGet, "/api/export?format=xml", "u1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/backup", "u1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "fintrack-backup-")
	doc := rec.Body.Bytes()

	rec = ts.do(t, http.MethodPost, "/api/backup", "u2", bytes.NewReader(doc), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, ts.ds.Count(models.TableTransactions))

	rec = ts.do(t, http.MethodPost, "/api/backup", "u2", strings.NewReader(`{"version":1}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "backup file is invalid")
}
