package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"finanzas/internal/auth"
	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

// memRepo is an in-memory ledger.Repository for handler tests.
type memRepo struct {
	cats map[string][]core.Category
	txs  map[string][]core.Transaction
}

func newMemRepo() *memRepo {
	return &memRepo{
		cats: make(map[string][]core.Category),
		txs:  make(map[string][]core.Transaction),
	}
}

func (m *memRepo) Categories(_ context.Context, ownerID string) ([]core.Category, error) {
	out := append([]core.Category(nil), m.cats[ownerID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memRepo) InsertCategory(_ context.Context, c core.Category) error {
	for _, existing := range m.cats[c.OwnerID] {
		if existing.Name == c.Name {
			return ledger.ErrDuplicateCategory
		}
	}
	m.cats[c.OwnerID] = append(m.cats[c.OwnerID], c)
	return nil
}

func (m *memRepo) SeedCategories(_ context.Context, ownerID string, defaults []core.Category) (int, error) {
	inserted := 0
	for _, d := range defaults {
		if m.InsertCategory(context.Background(), d) == nil {
			inserted++
		}
	}
	return inserted, nil
}

func (m *memRepo) DeleteCategory(_ context.Context, ownerID, name, reassignTo string) error {
	refs := 0
	for _, t := range m.txs[ownerID] {
		if t.Category == name {
			refs++
		}
	}
	if refs > 0 {
		if reassignTo == "" || reassignTo == name {
			return ledger.ErrCategoryInUse
		}
		found := false
		for _, c := range m.cats[ownerID] {
			if c.Name == reassignTo {
				found = true
			}
		}
		if !found {
			return ledger.ErrNotFound
		}
		for i, t := range m.txs[ownerID] {
			if t.Category == name {
				m.txs[ownerID][i].Category = reassignTo
			}
		}
	}
	kept := m.cats[ownerID][:0]
	for _, c := range m.cats[ownerID] {
		if c.Name != name {
			kept = append(kept, c)
		}
	}
	m.cats[ownerID] = kept
	return nil
}

func (m *memRepo) Transactions(_ context.Context, ownerID string) ([]core.Transaction, error) {
	out := append([]core.Transaction(nil), m.txs[ownerID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *memRepo) InsertTransaction(_ context.Context, t core.Transaction) error {
	m.txs[t.OwnerID] = append(m.txs[t.OwnerID], t)
	return nil
}

func (m *memRepo) DeleteTransaction(_ context.Context, ownerID, id string) error {
	kept := m.txs[ownerID][:0]
	for _, t := range m.txs[ownerID] {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	m.txs[ownerID] = kept
	return nil
}

func (m *memRepo) GetTransaction(_ context.Context, ownerID, id string) (core.Transaction, error) {
	for _, t := range m.txs[ownerID] {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, ledger.ErrNotFound
}

type memUserRepo struct {
	users map[string]auth.User
}

func (m *memUserRepo) CreateUser(_ context.Context, u auth.User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return auth.ErrEmailTaken
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUserRepo) FindUserByEmail(_ context.Context, email string) (auth.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrUserNotFound
}

func (m *memUserRepo) FindUserByID(_ context.Context, id string) (auth.User, error) {
	u, ok := m.users[id]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mgr, err := auth.NewJWTManager("handler-test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	authService := auth.NewService(&memUserRepo{users: make(map[string]auth.User)}, mgr)
	store := ledger.NewStore(newMemRepo(), time.Minute, nil)
	s := NewServer(":0", store, authService)
	t.Cleanup(func() { s.rateLimiter.stop() })
	return s
}

func do(s *Server, method, target, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func signIn(t *testing.T, s *Server) string {
	t.Helper()
	rec := do(s, http.MethodPost, "/api/auth/signup", "",
		`{"email":"a@example.com","password":"longenough"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup = %d: %s", rec.Code, rec.Body)
	}
	rec = do(s, http.MethodPost, "/api/auth/signin", "",
		`{"email":"a@example.com","password":"longenough"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("signin = %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Token
}

func decodeList[T any](t *testing.T, rec *httptest.ResponseRecorder) []T {
	t.Helper()
	var out []T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body, err)
	}
	return out
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	if rec := do(s, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	if rec := do(s, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, target := range []string{"/api/categories", "/api/transactions", "/api/dashboard"} {
		if rec := do(s, http.MethodGet, target, "", ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token = %d, want 401", target, rec.Code)
		}
	}
	if rec := do(s, http.MethodGet, "/api/categories", "garbage-token", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token = %d, want 401", rec.Code)
	}
}

func TestSignInSeedsDefaultCategories(t *testing.T) {
	s := newTestServer(t)
	token := signIn(t, s)

	rec := do(s, http.MethodGet, "/api/categories", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list categories = %d: %s", rec.Code, rec.Body)
	}
	cats := decodeList[categoryResponse](t, rec)
	if len(cats) != len(ledger.DefaultCategories) {
		t.Errorf("got %d categories after first sign-in, want %d", len(cats), len(ledger.DefaultCategories))
	}
}

func TestSignUpErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"weak password", `{"email":"b@example.com","password":"short"}`, http.StatusBadRequest},
		{"bad email", `{"email":"nope","password":"longenough"}`, http.StatusBadRequest},
		{"malformed json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(s, http.MethodPost, "/api/auth/signup", "", tt.body); rec.Code != tt.want {
				t.Errorf("got %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}

	signIn(t, s)
	rec := do(s, http.MethodPost, "/api/auth/signup", "",
		`{"email":"a@example.com","password":"longenough"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate email = %d, want 409", rec.Code)
	}
}

func TestSignOutInvalidatesToken(t *testing.T) {
	s := newTestServer(t)
	token := signIn(t, s)

	if rec := do(s, http.MethodPost, "/api/auth/signout", token, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("signout = %d", rec.Code)
	}
	if rec := do(s, http.MethodGet, "/api/categories", token, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("request after signout = %d, want 401", rec.Code)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := signIn(t, s)

	rec := do(s, http.MethodPost, "/api/categories", token, `{"name":"Travel","kind":"expense"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body)
	}
	var created categoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.Name != "Travel" || created.Kind != "expense" || created.ID == "" {
		t.Errorf("created = %+v", created)
	}

	if rec := do(s, http.MethodPost, "/api/categories", token, `{"name":"Travel","kind":"expense"}`); rec.Code != http.StatusConflict {
		t.Errorf("duplicate = %d, want 409", rec.Code)
	}
	if rec := do(s, http.MethodPost, "/api/categories", token, `{"name":"X","kind":"stock"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad kind = %d, want 400", rec.Code)
	}

	// Reference it, then try to delete.
	rec = do(s, http.MethodPost, "/api/transactions", token,
		`{"date":"2024-06-01","amount":50,"kind":"expense","category":"Travel"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction = %d: %s", rec.Code, rec.Body)
	}

	if rec := do(s, http.MethodDelete, "/api/categories/Travel", token, ""); rec.Code != http.StatusConflict {
		t.Errorf("delete referenced = %d, want 409", rec.Code)
	}
	if rec := do(s, http.MethodDelete, "/api/categories/Travel?reassign_to=Ghost", token, ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing reassign target = %d, want 404", rec.Code)
	}
	if rec := do(s, http.MethodDelete, "/api/categories/Travel?reassign_to=Food", token, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete with reassign = %d, want 204", rec.Code)
	}

	rec = do(s, http.MethodGet, "/api/transactions", token, "")
	txs := decodeList[transactionResponse](t, rec)
	if len(txs) != 1 || txs[0].Category != "Food" {
		t.Errorf("transactions after reassign = %+v", txs)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := signIn(t, s)

	rec := do(s, http.MethodPost, "/api/transactions", token,
		`{"date":"2024-06-15","amount":"12.345","kind":"expense","category":"Food","note":"lunch"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body)
	}
	var created transactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.Amount != "12.35" {
		t.Errorf("amount = %q, want half-up rounded 12.35", created.Amount)
	}
	if created.Date != "2024-06-15" || created.Note != "lunch" {
		t.Errorf("created = %+v", created)
	}

	for name, body := range map[string]string{
		"bad date":        `{"date":"June 15","amount":"10","kind":"expense","category":"Food"}`,
		"zero amount":     `{"date":"2024-06-15","amount":"0","kind":"expense","category":"Food"}`,
		"negative amount": `{"date":"2024-06-15","amount":"-5","kind":"expense","category":"Food"}`,
		"bad kind":        `{"date":"2024-06-15","amount":"10","kind":"stock","category":"Food"}`,
		"empty category":  `{"date":"2024-06-15","amount":"10","kind":"expense","category":" "}`,
	} {
		if rec := do(s, http.MethodPost, "/api/transactions", token, body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400: %s", name, rec.Code, rec.Body)
		}
	}

	// Range filter is inclusive on both ends.
	rec = do(s, http.MethodGet, "/api/transactions?from=2024-06-15&to=2024-06-15", token, "")
	if got := decodeList[transactionResponse](t, rec); len(got) != 1 {
		t.Errorf("inclusive range returned %d rows, want 1", len(got))
	}
	rec = do(s, http.MethodGet, "/api/transactions?from=2024-07-01&to=2024-07-31", token, "")
	if got := decodeList[transactionResponse](t, rec); len(got) != 0 {
		t.Errorf("disjoint range returned %d rows, want 0", len(got))
	}
	if rec := do(s, http.MethodGet, "/api/transactions?from=2024-06-15", token, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("half range = %d, want 400", rec.Code)
	}

	if rec := do(s, http.MethodDelete, "/api/transactions/"+created.ID, token, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", rec.Code)
	}
	rec = do(s, http.MethodGet, "/api/transactions", token, "")
	if got := decodeList[transactionResponse](t, rec); len(got) != 0 {
		t.Errorf("after delete got %d rows, want 0", len(got))
	}
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t)
	token := signIn(t, s)

	seed := []string{
		`{"date":"2024-01-05","amount":"1000","kind":"income","category":"Salary"}`,
		`{"date":"2024-01-10","amount":"300","kind":"expense","category":"Food"}`,
		`{"date":"2024-01-20","amount":"200","kind":"investment","category":"Savings"}`,
	}
	for _, body := range seed {
		if rec := do(s, http.MethodPost, "/api/transactions", token, body); rec.Code != http.StatusCreated {
			t.Fatalf("seed = %d: %s", rec.Code, rec.Body)
		}
	}

	rec := do(s, http.MethodGet, "/api/dashboard?from=2024-01-01&to=2024-01-31&bucket=month", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard = %d: %s", rec.Code, rec.Body)
	}
	var resp dashboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	if resp.KPIs.Income != "1000.00" || resp.KPIs.Expense != "300.00" ||
		resp.KPIs.Investment != "200.00" || resp.KPIs.Balance != "500.00" {
		t.Errorf("kpis = %+v", resp.KPIs)
	}
	if len(resp.BalanceSeries) != 1 {
		t.Fatalf("balance series = %+v, want one monthly point", resp.BalanceSeries)
	}
	if p := resp.BalanceSeries[0]; p.Bucket != "2024-01-01" || p.Net != "500.00" || p.Cumulative != "500.00" {
		t.Errorf("series point = %+v", p)
	}
	if rows := resp.Summary["expense"]; len(rows) != 1 || rows[0].Category != "Food" ||
		rows[0].Total != "300.00" || rows[0].PercentOfTotal != 100 {
		t.Errorf("expense summary = %+v", rows)
	}

	// The series stays full-history even when the range excludes rows.
	rec = do(s, http.MethodGet, "/api/dashboard?from=2024-02-01&to=2024-02-29&bucket=month", token, "")
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.KPIs.Balance != "0.00" {
		t.Errorf("february balance = %q, want 0.00", resp.KPIs.Balance)
	}
	if len(resp.BalanceSeries) != 1 {
		t.Errorf("series outside range = %+v, want full history kept", resp.BalanceSeries)
	}
}

func TestDashboardBadParams(t *testing.T) {
	s := newTestServer(t)
	token := signIn(t, s)

	for name, target := range map[string]string{
		"bad bucket":     "/api/dashboard?bucket=week",
		"from after to":  "/api/dashboard?from=2024-02-01&to=2024-01-01",
		"half range":     "/api/dashboard?to=2024-01-01",
		"malformed date": "/api/dashboard?from=jan&to=2024-01-31",
	} {
		if rec := do(s, http.MethodGet, target, token, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", name, rec.Code)
		}
	}
}

func TestSummaryCSV(t *testing.T) {
	s := newTestServer(t)
	token := signIn(t, s)

	for _, body := range []string{
		`{"date":"2024-01-10","amount":"300","kind":"expense","category":"Food"}`,
		`{"date":"2024-01-12","amount":"100","kind":"expense","category":"Rent"}`,
	} {
		if rec := do(s, http.MethodPost, "/api/transactions", token, body); rec.Code != http.StatusCreated {
			t.Fatalf("seed = %d: %s", rec.Code, rec.Body)
		}
	}

	rec := do(s, http.MethodGet, "/api/dashboard/summary.csv?from=2024-01-01&to=2024-01-31", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("csv = %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "expense_summary_2024-01-01_2024-01-31.csv") {
		t.Errorf("content disposition = %q", cd)
	}

	want := "category,total,count,percent_of_total\n" +
		"Food,300.00,1,75.00\n" +
		"Rent,100.00,1,25.00\n"
	if rec.Body.String() != want {
		t.Errorf("csv body:\n%s\nwant:\n%s", rec.Body.String(), want)
	}

	if rec := do(s, http.MethodGet, "/api/dashboard/summary.csv?kind=stock", token, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad kind = %d, want 400", rec.Code)
	}
}

func TestRateLimitOnMutatingRequests(t *testing.T) {
	s := newTestServer(t)

	body := `{"email":"nope","password":"longenough"}`
	var last int
	for i := 0; i < 61; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(body))
		req.Header.Set("X-Forwarded-For", "10.0.0.9")
		rec := httptest.NewRecorder()
		s.Server.Handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("61st mutating request = %d, want 429", last)
	}
}
