package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hrpay/internal/app/server"
	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/company"
	"hrpay/internal/domain/employee"
	"hrpay/internal/domain/payroll"
	"hrpay/internal/domain/payslip"
	"hrpay/internal/platform/config"
	"hrpay/internal/platform/logger"
	"hrpay/internal/platform/metrics"
	"hrpay/internal/platform/storage"
)

const testSecret = "test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

type testApp struct {
	server   *httptest.Server
	payslips *memPayslips
}

func newTestApp(t *testing.T) testApp {
	t.Helper()
	log := logger.Discard()

	hash, err := auth.HashPassword("secret-pass")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	users := &memUsers{users: map[string]auth.User{
		"admin@hrpay.test": {ID: "u1", CompanyID: "c1", Email: "admin@hrpay.test", PasswordHash: hash, Role: auth.RoleAdmin, Status: auth.UserStatusActive},
	}}
	companies := &memCompanies{items: map[string]company.Company{
		"c1": {ID: "c1", Name: "Douala Trading SARL", Address: "Rue 1, Douala", Currency: "XAF"},
		"c2": {ID: "c2", Name: "Yaounde Logistics", Currency: "XAF"},
	}}
	slips := newMemPayslips()
	employees := &memEmployees{items: map[string]employee.Employee{}, payslips: slips}

	blobs, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}

	cfg := config.Config{
		JWTSecret:          testSecret,
		Environment:        "test",
		MaxBodyBytes:       1 << 20,
		RateLimitPerMinute: 1000,
		MetricsEnabled:     true,
	}
	collector := metrics.New()
	companySvc := company.NewService(companies)
	employeeSvc := employee.NewService(employees)
	payslipSvc := payslip.NewService(slips, employeeSvc, companySvc, payslip.Options{
		Storage: blobs,
		Metrics: collector,
		Log:     log,
	})

	router := server.NewRouter(server.Deps{
		Config:    cfg,
		Log:       log,
		Metrics:   collector,
		Auth:      auth.NewService(users, testSecret, log),
		Companies: companySvc,
		Employees: employeeSvc,
		Payslips:  payslipSvc,
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return testApp{server: ts, payslips: slips}
}

func token(t *testing.T, companyID, role string) string {
	t.Helper()
	signed, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "u-" + role, CompanyID: companyID, RoleName: role}, time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return signed
}

func TestPayslipLifecycleJourney(t *testing.T) {
	app := newTestApp(t)
	admin := token(t, "c1", auth.RoleAdmin)
	base := app.server.URL + "/api/v1"

	env := doJSON(t, http.MethodPost, base+"/employees", admin, map[string]any{
		"firstName":      "Ada",
		"lastName":       "Nkemelu",
		"baseSalary":     "300 000",
		"taxShares":      1,
		"hireDate":       "2024-03-01",
		"defaultBonuses": map[string]any{"transport": 26000},
	}, http.StatusCreated)
	var emp employee.Employee
	decodeData(t, env, &emp)
	if emp.ID == "" || emp.HireDate == nil {
		t.Fatalf("expected employee id and hire date, got %+v", emp)
	}

	env = doJSON(t, http.MethodGet, base+"/employees/"+emp.ID+"/payslip-defaults", admin, nil, http.StatusOK)
	var defaults payroll.Input
	decodeData(t, env, &defaults)
	if !defaults.Remuneration.BaseSalary.Decimal().Equal(decimal.NewFromInt(300_000)) {
		t.Fatalf("expected base salary 300000 in defaults, got %s", defaults.Remuneration.BaseSalary)
	}

	env = doJSON(t, http.MethodPost, base+"/payslips", admin, map[string]any{
		"employeeId": emp.ID,
		"period":     map[string]string{"startDate": "2026-01-01", "endDate": "2026-01-31"},
	}, http.StatusCreated)
	var slip payslip.Payslip
	decodeData(t, env, &slip)
	if slip.Status != payroll.StatusDraft {
		t.Fatalf("expected draft, got %s", slip.Status)
	}
	assertAmount(t, "net pay", slip.Result.NetPay, 267_450)
	if slip.EmployeeName != "Ada Nkemelu" {
		t.Fatalf("expected employee name on payslip, got %q", slip.EmployeeName)
	}

	env = doJSON(t, http.MethodPut, base+"/payslips/"+slip.ID, admin, map[string]any{
		"input": map[string]any{
			"remuneration": map[string]any{"baseSalary": 300000},
			"bonuses":      map[string]any{"transport": 26000},
			"deductions":   map[string]any{"advances": "50 000"},
			"taxShares":    1,
		},
	}, http.StatusOK)
	decodeData(t, env, &slip)
	assertAmount(t, "net pay after advance", slip.Result.NetPay, 217_450)

	resp, env := doJSONResponse(t, http.MethodGet, base+"/payslips?status=draft&employeeId="+emp.ID, admin, nil, http.StatusOK)
	if got := resp.Header.Get("X-Total-Count"); got != "1" {
		t.Fatalf("expected X-Total-Count 1, got %q", got)
	}
	var listed page[payslip.Payslip]
	decodeData(t, env, &listed)
	if len(listed.Items) != 1 || listed.Items[0].ID != slip.ID {
		t.Fatalf("expected the draft in the listing, got %+v", listed.Items)
	}

	slip = transition(t, base, admin, slip.ID, payroll.ActionValidate, http.StatusOK)
	if slip.Status != payroll.StatusValidated {
		t.Fatalf("expected validated, got %s", slip.Status)
	}

	env = doJSON(t, http.MethodPut, base+"/payslips/"+slip.ID, admin, map[string]any{"input": map[string]any{}}, http.StatusConflict)
	if env.Error == nil || env.Error.Code != "invalid_state" {
		t.Fatalf("expected invalid_state for edit after validation, got %+v", env.Error)
	}
	doJSON(t, http.MethodDelete, base+"/payslips/"+slip.ID, admin, nil, http.StatusConflict)

	slip = transition(t, base, admin, slip.ID, payroll.ActionPay, http.StatusOK)
	if slip.Status != payroll.StatusPaid {
		t.Fatalf("expected paid, got %s", slip.Status)
	}

	env = doJSON(t, http.MethodGet, base+"/payslips/"+slip.ID+"/history", admin, nil, http.StatusOK)
	var history []payslip.HistoryEntry
	decodeData(t, env, &history)
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[1].FromStatus != payroll.StatusValidated || history[1].ToStatus != payroll.StatusPaid {
		t.Fatalf("unexpected second history entry %+v", history[1])
	}

	env = doJSON(t, http.MethodGet, base+"/payslips/"+slip.ID+"/verify", admin, nil, http.StatusOK)
	var verify payslip.VerifyResult
	decodeData(t, env, &verify)
	if !verify.Consistent {
		t.Fatal("expected stored result to match recomputation")
	}

	env = doJSON(t, http.MethodPost, base+"/payslips/"+slip.ID+"/document", admin, nil, http.StatusCreated)
	decodeData(t, env, &slip)
	if slip.FileURL == "" {
		t.Fatal("expected file url after rendering")
	}

	resp, body := doRaw(t, http.MethodGet, base+"/payslips/"+slip.ID+"/document", admin, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", ct)
	}
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		t.Fatal("expected a PDF document")
	}

	resp, body = doRaw(t, http.MethodGet, base+"/payslips/export?format=csv&start=2026-01-01&end=2026-01-31", admin, http.StatusOK)
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "payroll-register-2026-01-01_2026-01-31.csv") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	csv := string(body)
	if !strings.Contains(csv, "net_pay") || !strings.Contains(csv, "217 450") {
		t.Fatalf("expected register header and formatted net pay, got:\n%s", csv)
	}

	env = doJSON(t, http.MethodDelete, base+"/employees/"+emp.ID, admin, nil, http.StatusConflict)
	if env.Error == nil || env.Error.Code != "invalid_state" {
		t.Fatalf("expected invalid_state deleting an employee with payslips, got %+v", env.Error)
	}

	env = doJSON(t, http.MethodGet, app.server.URL+"/metrics", "", nil, http.StatusOK)
	var snap map[string]float64
	decodeData(t, env, &snap)
	if snap["transitionsTotal"] != 2 || snap["documentsTotal"] != 1 {
		t.Fatalf("unexpected metrics snapshot %+v", snap)
	}
}

func TestComputeAcceptsFormattedAmounts(t *testing.T) {
	app := newTestApp(t)
	viewer := token(t, "c1", auth.RoleViewer)
	base := app.server.URL + "/api/v1"

	env := doJSON(t, http.MethodPost, base+"/payroll/compute", viewer, map[string]any{
		"remuneration": map[string]any{"baseSalary": "300 000 FCFA"},
		"bonuses":      map[string]any{"transport": "26,000"},
		"deductions":   map[string]any{"advances": "not a number"},
		"taxShares":    "1",
	}, http.StatusOK)
	var out struct {
		Result payroll.Result `json:"result"`
		Cached bool           `json:"cached"`
	}
	decodeData(t, env, &out)
	assertAmount(t, "net pay", out.Result.NetPay, 267_450)
	assertAmount(t, "income tax", out.Result.IncomeTax, 41_250)
	assertAmount(t, "employer cost", out.Result.EmployerCost, 365_240)
	if out.Cached {
		t.Fatal("expected a fresh computation without a cache")
	}

	env = doJSON(t, http.MethodGet, base+"/payroll/brackets", viewer, nil, http.StatusOK)
	var brackets []map[string]any
	decodeData(t, env, &brackets)
	if len(brackets) != len(payroll.Brackets()) {
		t.Fatalf("expected %d brackets, got %d", len(payroll.Brackets()), len(brackets))
	}
}

func TestTransitionErrors(t *testing.T) {
	app := newTestApp(t)
	admin := token(t, "c1", auth.RoleAdmin)
	base := app.server.URL + "/api/v1"
	slipID := seedDraft(t, base, admin)

	env := doJSON(t, http.MethodPost, base+"/payslips/"+slipID+"/transitions", admin, map[string]string{"action": payroll.ActionPay}, http.StatusConflict)
	if env.Error == nil || env.Error.Code != "invalid_state" {
		t.Fatalf("expected invalid_state paying a draft, got %+v", env.Error)
	}

	env = doJSON(t, http.MethodPost, base+"/payslips/"+slipID+"/transitions", admin, map[string]string{"action": "approve"}, http.StatusBadRequest)
	if env.Error == nil || env.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error for unknown action, got %+v", env.Error)
	}

	env = doJSON(t, http.MethodPost, base+"/payslips/"+slipID+"/transitions", admin, map[string]string{}, http.StatusBadRequest)
	if env.Error == nil || !strings.Contains(string(env.Error.Details), "action") {
		t.Fatalf("expected field details for missing action, got %+v", env.Error)
	}

	doJSON(t, http.MethodGet, base+"/payslips/missing/history", admin, nil, http.StatusNotFound)
	doJSON(t, http.MethodGet, base+"/payslips/"+slipID+"/document", admin, nil, http.StatusNotFound)
}

func TestPermissionsAndAuthentication(t *testing.T) {
	app := newTestApp(t)
	base := app.server.URL + "/api/v1"
	viewer := token(t, "c1", auth.RoleViewer)

	env := doJSON(t, http.MethodPost, base+"/payslips", viewer, map[string]any{"employeeId": "e1"}, http.StatusForbidden)
	if env.Error == nil || env.Error.Code != "forbidden" {
		t.Fatalf("expected forbidden, got %+v", env.Error)
	}
	doJSON(t, http.MethodGet, base+"/payslips", viewer, nil, http.StatusOK)
	doJSON(t, http.MethodGet, base+"/payslips", "", nil, http.StatusUnauthorized)
	doJSON(t, http.MethodGet, base+"/payslips", "not-a-token", nil, http.StatusUnauthorized)
	doJSON(t, http.MethodPost, base+"/payroll/compute", "", map[string]any{}, http.StatusUnauthorized)
}

func TestPayslipsAreScopedToCompany(t *testing.T) {
	app := newTestApp(t)
	base := app.server.URL + "/api/v1"
	slipID := seedDraft(t, base, token(t, "c1", auth.RoleAdmin))

	other := token(t, "c2", auth.RolePayrollManager)
	doJSON(t, http.MethodGet, base+"/payslips/"+slipID, other, nil, http.StatusNotFound)
	env := doJSON(t, http.MethodGet, base+"/payslips", other, nil, http.StatusOK)
	var listed page[payslip.Payslip]
	decodeData(t, env, &listed)
	if listed.Total != 0 {
		t.Fatalf("expected no payslips for another company, got %d", listed.Total)
	}
}

func TestLoginAndMe(t *testing.T) {
	app := newTestApp(t)
	base := app.server.URL + "/api/v1"

	env := doJSON(t, http.MethodPost, base+"/auth/login", "", map[string]string{"email": " ADMIN@hrpay.test ", "password": "secret-pass"}, http.StatusOK)
	var login auth.LoginResult
	decodeData(t, env, &login)
	if login.Token == "" || login.CompanyID != "c1" || login.Role != auth.RoleAdmin {
		t.Fatalf("unexpected login result %+v", login)
	}

	env = doJSON(t, http.MethodGet, base+"/auth/me", login.Token, nil, http.StatusOK)
	var me map[string]any
	decodeData(t, env, &me)
	if me["userId"] != "u1" || me["role"] != auth.RoleAdmin {
		t.Fatalf("unexpected me payload %+v", me)
	}

	env = doJSON(t, http.MethodPost, base+"/auth/login", "", map[string]string{"email": "admin@hrpay.test", "password": "wrong"}, http.StatusUnauthorized)
	if env.Error == nil || env.Error.Code != "unauthorized" {
		t.Fatalf("expected unauthorized, got %+v", env.Error)
	}
	doJSON(t, http.MethodPost, base+"/auth/login", "", map[string]string{"email": "not-an-email"}, http.StatusBadRequest)
}

func TestCompanyVisibility(t *testing.T) {
	app := newTestApp(t)
	base := app.server.URL + "/api/v1"
	admin := token(t, "c1", auth.RoleAdmin)

	resp, env := doJSONResponse(t, http.MethodGet, base+"/companies", admin, nil, http.StatusOK)
	var all page[company.Company]
	decodeData(t, env, &all)
	if all.Total != 2 || resp.Header.Get("X-Total-Count") != "2" {
		t.Fatalf("expected admin to see 2 companies, got %d", all.Total)
	}

	env = doJSON(t, http.MethodGet, base+"/companies", token(t, "c2", auth.RoleViewer), nil, http.StatusOK)
	var own page[company.Company]
	decodeData(t, env, &own)
	if len(own.Items) != 1 || own.Items[0].ID != "c2" {
		t.Fatalf("expected only the caller's company, got %+v", own.Items)
	}
	doJSON(t, http.MethodGet, base+"/companies/c1", token(t, "c2", auth.RoleViewer), nil, http.StatusNotFound)

	doJSON(t, http.MethodPost, base+"/companies", admin, map[string]string{"name": "douala trading sarl"}, http.StatusConflict)
	env = doJSON(t, http.MethodPost, base+"/companies", admin, map[string]string{"name": "Kribi Fisheries", "currency": "X1"}, http.StatusBadRequest)
	if !strings.Contains(string(env.Error.Details), "currency") {
		t.Fatalf("expected currency issue, got %s", env.Error.Details)
	}
	env = doJSON(t, http.MethodPost, base+"/companies", admin, map[string]string{"name": "Kribi Fisheries"}, http.StatusCreated)
	var created company.Company
	decodeData(t, env, &created)
	if created.Currency != company.DefaultCurrency {
		t.Fatalf("expected default currency, got %q", created.Currency)
	}
}

func TestEmployeeValidationAndSearch(t *testing.T) {
	app := newTestApp(t)
	base := app.server.URL + "/api/v1"
	admin := token(t, "c1", auth.RoleAdmin)

	env := doJSON(t, http.MethodPost, base+"/employees", admin, map[string]any{"firstName": "Ada", "hireDate": "03/01/2024"}, http.StatusBadRequest)
	details := string(env.Error.Details)
	if !strings.Contains(details, "lastName") || !strings.Contains(details, "hireDate") {
		t.Fatalf("expected lastName and hireDate issues, got %s", details)
	}

	doJSON(t, http.MethodPost, base+"/employees", admin, map[string]any{"firstName": "Ada", "lastName": "Nkemelu"}, http.StatusCreated)
	doJSON(t, http.MethodPost, base+"/employees", admin, map[string]any{"firstName": "Paul", "lastName": "Mbarga"}, http.StatusCreated)

	env = doJSON(t, http.MethodGet, base+"/employees?search=mbar", admin, nil, http.StatusOK)
	var found page[employee.Employee]
	decodeData(t, env, &found)
	if found.Total != 1 || found.Items[0].LastName != "Mbarga" {
		t.Fatalf("unexpected search result %+v", found.Items)
	}
	if !found.Items[0].TaxShares.Decimal().Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected tax shares to default to 1, got %s", found.Items[0].TaxShares)
	}
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)
	_, body := doRaw(t, http.MethodGet, app.server.URL+"/healthz", "", http.StatusOK)
	if string(body) != "ok" {
		t.Fatalf("unexpected healthz body %q", body)
	}
	resp, _ := doRaw(t, http.MethodGet, app.server.URL+"/readyz", "", http.StatusOK)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}

func seedDraft(t *testing.T, base, tok string) string {
	t.Helper()
	env := doJSON(t, http.MethodPost, base+"/employees", tok, map[string]any{"firstName": "Ada", "lastName": "Nkemelu", "baseSalary": 300000}, http.StatusCreated)
	var emp employee.Employee
	decodeData(t, env, &emp)
	env = doJSON(t, http.MethodPost, base+"/payslips", tok, map[string]any{
		"employeeId": emp.ID,
		"period":     map[string]string{"startDate": "2026-02-01", "endDate": "2026-02-28"},
	}, http.StatusCreated)
	var slip payslip.Payslip
	decodeData(t, env, &slip)
	return slip.ID
}

func transition(t *testing.T, base, tok, id, action string, want int) payslip.Payslip {
	t.Helper()
	env := doJSON(t, http.MethodPost, base+"/payslips/"+id+"/transitions", tok, map[string]string{"action": action}, want)
	var p payslip.Payslip
	decodeData(t, env, &p)
	return p
}

func assertAmount(t *testing.T, label string, got decimal.Decimal, want int64) {
	t.Helper()
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Fatalf("%s: expected %d, got %s", label, want, got)
	}
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v (%s)", err, env.Data)
	}
}

func doJSON(t *testing.T, method, url, tok string, body any, want int) envelope {
	t.Helper()
	_, env := doJSONResponse(t, method, url, tok, body, want)
	return env
}

func doJSONResponse(t *testing.T, method, url, tok string, body any, want int) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	resp, raw := send(t, method, url, tok, reader)
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, url, want, resp.StatusCode, raw)
	}
	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode envelope: %v (%s)", err, raw)
		}
	}
	return resp, env
}

func doRaw(t *testing.T, method, url, tok string, want int) (*http.Response, []byte) {
	t.Helper()
	resp, raw := send(t, method, url, tok, nil)
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, url, want, resp.StatusCode, raw)
	}
	return resp, raw
}

func send(t *testing.T, method, url, tok string, body io.Reader) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}
