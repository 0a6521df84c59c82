package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mboyd/fintrack/internal/domain"
	"github.com/mboyd/fintrack/internal/handler"
	"github.com/mboyd/fintrack/internal/infra/cache"
	"github.com/mboyd/fintrack/internal/infra/observability"
	"github.com/mboyd/fintrack/internal/infra/resilience"
	"github.com/mboyd/fintrack/internal/infra/sqlite"
	"github.com/mboyd/fintrack/internal/service"

	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := sqlite.Open(path, resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	reportCache := cache.New[any](time.Minute)
	bulkhead := resilience.NewBulkhead(2)

	return handler.NewRouter(handler.Services{
		Ledger:         service.NewLedgerService(store, reportCache, metrics, logger, 5),
		Imports:        service.NewImportService(store, reportCache, bulkhead, metrics, logger, 100),
		Reports:        service.NewReportService(store, reportCache, metrics, logger),
		Tags:           service.NewTagService(store, logger),
		Store:          store,
		Metrics:        metrics,
		MaxUploadBytes: 1 << 20,
	}, logger)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func createAccount(t *testing.T, router http.Handler, name string) domain.Account {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/accounts", domain.CreateAccountRequest{Name: name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode[domain.Account](t, rec)
}

func uploadCSV(t *testing.T, router http.Handler, accountID, csv string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("accountId", accountID); err != nil {
		t.Fatalf("write accountId: %v", err)
	}
	fw, err := mw.CreateFormFile("file", "statement.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(csv)); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// ============================================================
// Operational endpoints
// ============================================================

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestStats(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	stats := decode[observability.ImportStats](t, rec)
	if stats.RowsImported != 0 {
		t.Errorf("rows_imported = %d on fresh service, want 0", stats.RowsImported)
	}
}

// ============================================================
// Accounts
// ============================================================

func TestCreateAndGetAccount(t *testing.T) {
	router := newTestRouter(t)

	acc := createAccount(t, router, "Checking")
	if acc.BankName != "Default Bank" || acc.AccountNumber != "****0000" {
		t.Errorf("defaults not applied: %+v", acc)
	}

	rec := doJSON(t, router, http.MethodGet, "/accounts/"+acc.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decode[domain.Account](t, rec)
	if got.ID != acc.ID {
		t.Errorf("got account %s, want %s", got.ID, acc.ID)
	}
}

func TestCreateAccountValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/accounts", domain.CreateAccountRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing name, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rr.Code)
	}
}

func TestGetAccountNotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/accounts/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

// ============================================================
// Transactions
// ============================================================

func TestTransactionLifecycle(t *testing.T) {
	router := newTestRouter(t)
	acc := createAccount(t, router, "Checking")

	rec := doJSON(t, router, http.MethodPost, "/transactions", domain.CreateTransactionRequest{
		AccountID:   acc.ID,
		Date:        "2026-08-01",
		Description: "salary",
		Amount:      1000,
		Type:        domain.TypeCredit,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	txn := decode[domain.Transaction](t, rec)

	// Partial update: set the category.
	category := domain.CategoryIncome
	rec = doJSON(t, router, http.MethodPatch, "/transactions/"+txn.ID, domain.UpdateTransactionRequest{Category: &category})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	updated := decode[domain.Transaction](t, rec)
	if updated.Category != domain.CategoryIncome {
		t.Errorf("category = %q, want Income", updated.Category)
	}

	// Attach a tag twice: second attach is a no-op.
	for i := 0; i < 2; i++ {
		rec = doJSON(t, router, http.MethodPost, "/transactions/"+txn.ID+"/tags", domain.AttachTagRequest{Name: "payroll"})
		if rec.Code != http.StatusOK {
			t.Fatalf("attach %d: expected 200, got %d: %s", i, rec.Code, rec.Body.String())
		}
	}
	tagged := decode[domain.Transaction](t, rec)
	if len(tagged.Tags) != 1 || tagged.Tags[0].Name != "payroll" {
		t.Errorf("tags = %+v, want single payroll tag", tagged.Tags)
	}

	rec = doJSON(t, router, http.MethodGet, "/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	list := decode[[]domain.Transaction](t, rec)
	if len(list) != 1 {
		t.Errorf("got %d transactions, want 1", len(list))
	}
}

func TestUpdateTransactionNotFound(t *testing.T) {
	router := newTestRouter(t)

	comment := "hello"
	rec := doJSON(t, router, http.MethodPatch, "/transactions/missing", domain.UpdateTransactionRequest{Comment: &comment})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestCreateTransactionInvalidCategory(t *testing.T) {
	router := newTestRouter(t)
	acc := createAccount(t, router, "Checking")

	rec := doJSON(t, router, http.MethodPost, "/transactions", domain.CreateTransactionRequest{
		AccountID:   acc.ID,
		Date:        "2026-08-01",
		Description: "x",
		Amount:      1,
		Type:        domain.TypeDebit,
		Category:    "Groceries",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

// ============================================================
// Tags & categories
// ============================================================

func TestTagEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/tags", domain.CreateTagRequest{Name: "travel"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	tag := decode[domain.Tag](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/tags", domain.CreateTagRequest{Name: "travel"})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate tag, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/tags", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	tags := decode[[]domain.Tag](t, rec)
	if len(tags) != 1 {
		t.Errorf("got %d tags, want 1", len(tags))
	}

	rec = doJSON(t, router, http.MethodDelete, "/tags/"+tag.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodDelete, "/tags/"+tag.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for already-deleted tag, got %d", rec.Code)
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	categories := decode[[]string](t, rec)
	if len(categories) != 4 {
		t.Errorf("got %d categories, want 4", len(categories))
	}
}

// ============================================================
// Upload
// ============================================================

func TestUploadCSV(t *testing.T) {
	router := newTestRouter(t)
	acc := createAccount(t, router, "Checking")

	csv := "date,description,amount\n2026-08-01,Salary,1000.00\n2026-08-02,Coffee,-50.00\n"
	rec := uploadCSV(t, router, acc.ID, csv)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	result := decode[domain.ImportResult](t, rec)
	if !result.Success || result.TransactionCount != 2 {
		t.Errorf("result = %+v, want success with 2 rows", result)
	}

	got := doJSON(t, router, http.MethodGet, "/accounts/"+acc.ID, nil)
	account := decode[domain.Account](t, got)
	if account.Balance != 950 {
		t.Errorf("balance = %.2f, want 950", account.Balance)
	}
}

func TestUploadSynthetic(t *testing.T) {
	router := newTestRouter(t)
	acc := createAccount(t, router, "Checking")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("accountId", acc.ID)
	mw.WriteField("isRandom", "true")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	result := decode[domain.ImportResult](t, rec)
	if result.TransactionCount < 20 || result.TransactionCount > 50 {
		t.Errorf("generated %d rows, want 20-50", result.TransactionCount)
	}
}

func TestUploadRequiresFileOrRandom(t *testing.T) {
	router := newTestRouter(t)
	acc := createAccount(t, router, "Checking")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("accountId", acc.ID)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestUploadUnknownAccount(t *testing.T) {
	router := newTestRouter(t)

	// An accountId that resolves to nothing is rejected as bad input.
	rec := uploadCSV(t, router, "missing", "date,description,amount\n2026-08-01,Salary,5\n")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

// ============================================================
// Reports
// ============================================================

func TestReportsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	acc := createAccount(t, router, "Checking")

	csv := "date,description,amount\n2026-07-15,Salary,3000.00\n2026-08-02,Rent,-900.00\n"
	if rec := uploadCSV(t, router, acc.ID, csv); rec.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/reports?startDate=2026-07-01&endDate=2026-08-31", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	summary := decode[domain.ReportSummary](t, rec)
	if summary.TotalIncome != 3000 || summary.TotalExpense != 900 {
		t.Errorf("summary = %+v, want income 3000 expense 900", summary)
	}

	rec = doJSON(t, router, http.MethodGet, "/reports?startDate=2026-07-01&endDate=2026-08-31&groupBy=month", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	months := decode[[]domain.MonthlyReport](t, rec)
	if len(months) != 2 || months[0].Month != "2026-08" {
		t.Errorf("months = %+v, want 2026-08 first of 2", months)
	}

	rec = doJSON(t, router, http.MethodGet, "/reports?startDate=2026-07-01&endDate=2026-08-31&groupBy=account", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	accounts := decode[[]domain.AccountReport](t, rec)
	if len(accounts) != 1 || accounts[0].AccountName != "Checking" {
		t.Errorf("accounts = %+v, want single Checking row", accounts)
	}
}

func TestReportsValidation(t *testing.T) {
	router := newTestRouter(t)

	cases := []string{
		"/reports",
		"/reports?startDate=2026-07-01",
		"/reports?startDate=2026-07-01&endDate=bogus",
		"/reports?startDate=2026-07-01&endDate=2026-08-31&groupBy=week",
	}
	for _, path := range cases {
		rec := doJSON(t, router, http.MethodGet, path, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}
