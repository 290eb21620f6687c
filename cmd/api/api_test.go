package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/cashcard/internal/auth"
	"github.com/crucial707/cashcard/internal/config"
	"github.com/crucial707/cashcard/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const (
	selectOwned = `SELECT id, amount, owner FROM cash_card WHERE id = $1 AND owner = $2`
	countOwned  = `SELECT COUNT(*) FROM cash_card WHERE owner = $1`
	insertCard  = `INSERT INTO cash_card (amount, owner) VALUES ($1, $2) RETURNING id`
	updateCard  = `UPDATE cash_card SET amount = $1 WHERE id = $2 AND owner = $3`
	deleteCard  = `DELETE FROM cash_card WHERE id = $1 AND owner = $2`
	insertAudit = `INSERT INTO audit_log (owner, action, card_id) VALUES ($1, $2, $3)`
)

func q(sql string) string { return regexp.QuoteMeta(sql) }

func listQuery(orderBy string) string {
	return "^" + q(`SELECT id, amount, owner FROM cash_card WHERE owner = $1 ORDER BY `+orderBy+` LIMIT $2 OFFSET $3`) + "$"
}

func cardRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "amount", "owner"})
}

// testDirectory holds the fixture users with cheap hashes.
func testDirectory(t *testing.T) auth.Directory {
	t.Helper()
	seed := []struct{ name, password, role string }{
		{"Bob", "abc123", models.RoleCardOwner},
		{"Joe", "123abc", models.RoleCardOwner},
		{"John", "xyz321", models.RoleNonOwner},
	}
	var users []models.User
	for _, s := range seed {
		h, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("bcrypt: %v", err)
		}
		users = append(users, models.User{Username: s.name, PasswordHash: string(h), Role: s.role})
	}
	return auth.NewMemoryDirectory(users)
}

func newTestServer(t *testing.T) (*httptest.Server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	cfg := config.Config{JWTSecret: "test-secret-for-integration", JWTExpireHours: 1}
	srv := httptest.NewServer(newRouter(sqlx.NewDb(db, "postgres"), testDirectory(t), cfg))
	t.Cleanup(func() {
		srv.Close()
		db.Close()
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations: %v", err)
		}
	})
	return srv, mock
}

type result struct {
	status int
	header http.Header
	body   string
}

// call sends a request with Basic credentials. An empty user sends no credentials.
func call(t *testing.T, srv *httptest.Server, method, path, user, pass, body string) result {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.SetBasicAuth(user, pass)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return result{status: resp.StatusCode, header: resp.Header, body: string(b)}
}

func decodeCards(t *testing.T, body string) []models.CashCard {
	t.Helper()
	var cards []models.CashCard
	if err := json.Unmarshal([]byte(body), &cards); err != nil {
		t.Fatalf("decode cards %q: %v", body, err)
	}
	return cards
}

func TestAPI_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	res := call(t, srv, http.MethodGet, "/health", "", "", "")
	if res.status != http.StatusOK || strings.TrimSpace(res.body) != "ok" {
		t.Errorf("GET /health: got %d %q", res.status, res.body)
	}
}

func TestAPI_Ready(t *testing.T) {
	srv, _ := newTestServer(t)

	res := call(t, srv, http.MethodGet, "/ready", "", "", "")
	if res.status != http.StatusOK {
		t.Errorf("GET /ready status: got %d, want 200", res.status)
	}
}

func TestAPI_Metrics(t *testing.T) {
	srv, _ := newTestServer(t)
	call(t, srv, http.MethodGet, "/health", "", "", "")

	res := call(t, srv, http.MethodGet, "/metrics", "", "", "")
	if res.status != http.StatusOK {
		t.Fatalf("GET /metrics status: got %d, want 200", res.status)
	}
	if !strings.Contains(res.body, "http_requests_total") {
		t.Error("metrics output missing http_requests_total")
	}
}

func TestAPI_FindOwnedCard(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectQuery(q(selectOwned)).
		WithArgs(int64(99), "Bob").
		WillReturnRows(cardRows().AddRow(99, "123.45", "Bob"))

	res := call(t, srv, http.MethodGet, "/cashcards/99", "Bob", "abc123", "")
	if res.status != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.status)
	}
	var card models.CashCard
	if err := json.Unmarshal([]byte(res.body), &card); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := models.CashCard{ID: 99, Amount: decimal.RequireFromString("123.45"), Owner: "Bob"}
	if !card.Equal(want) {
		t.Errorf("card = %+v, want %+v", card, want)
	}
}

func TestAPI_OtherOwnersCardIsNotFound(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectQuery(q(selectOwned)).
		WithArgs(int64(102), "Bob").
		WillReturnRows(cardRows())

	res := call(t, srv, http.MethodGet, "/cashcards/102", "Bob", "abc123", "")
	if res.status != http.StatusNotFound {
		t.Errorf("status = %d, want 404 (never 403)", res.status)
	}
	if res.body != "" {
		t.Errorf("body = %q, want empty", res.body)
	}
}

func TestAPI_UnknownAndMalformedIDs(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectQuery(q(selectOwned)).
		WithArgs(int64(1000), "Bob").
		WillReturnRows(cardRows())

	if res := call(t, srv, http.MethodGet, "/cashcards/1000", "Bob", "abc123", ""); res.status != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", res.status)
	}
	if res := call(t, srv, http.MethodGet, "/cashcards/abc", "Bob", "abc123", ""); res.status != http.StatusNotFound {
		t.Errorf("non-numeric id status = %d, want 404", res.status)
	}
}

func TestAPI_CreateThenFind(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectQuery(q(insertCard)).
		WithArgs(decimal.RequireFromString("250.00"), "Bob").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(104))
	mock.ExpectExec(q(insertAudit)).
		WithArgs("Bob", models.AuditCreate, int64(104)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(q(selectOwned)).
		WithArgs(int64(104), "Bob").
		WillReturnRows(cardRows().AddRow(104, "250.00", "Bob"))

	res := call(t, srv, http.MethodPost, "/cashcards", "Bob", "abc123", `{"amount": 250.00, "owner": "Joe"}`)
	if res.status != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", res.status)
	}
	if res.body != "" {
		t.Errorf("create body = %q, want empty", res.body)
	}
	location := res.header.Get("Location")
	if location != srv.URL+"/cashcards/104" {
		t.Fatalf("Location = %q", location)
	}

	res = call(t, srv, http.MethodGet, strings.TrimPrefix(location, srv.URL), "Bob", "abc123", "")
	if res.status != http.StatusOK {
		t.Fatalf("find status = %d, want 200", res.status)
	}
	var card models.CashCard
	if err := json.Unmarshal([]byte(res.body), &card); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if card.ID != 104 || card.Owner != "Bob" || !card.Amount.Equal(decimal.NewFromInt(250)) {
		t.Errorf("card = %+v", card)
	}
}

func TestAPI_CreateRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, body := range []string{`{"amount":`, `{}`, `{"amount": -5}`} {
		res := call(t, srv, http.MethodPost, "/cashcards", "Bob", "abc123", body)
		if res.status != http.StatusBadRequest {
			t.Errorf("POST %s status = %d, want 400", body, res.status)
		}
	}
}

func TestAPI_ListDefaultSortedByAmount(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectQuery(listQuery("amount ASC, id ASC")).
		WithArgs("Bob", 20, 0).
		WillReturnRows(cardRows().
			AddRow(100, "1.00", "Bob").
			AddRow(99, "123.45", "Bob").
			AddRow(101, "150.00", "Bob"))
	mock.ExpectQuery(q(countOwned)).
		WithArgs("Bob").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	res := call(t, srv, http.MethodGet, "/cashcards", "Bob", "abc123", "")
	if res.status != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.status)
	}
	if got := res.header.Get("X-Total-Count"); got != "3" {
		t.Errorf("X-Total-Count = %q, want 3", got)
	}

	cards := decodeCards(t, res.body)
	wantIDs := []int64{100, 99, 101}
	if len(cards) != len(wantIDs) {
		t.Fatalf("got %d cards, want %d", len(cards), len(wantIDs))
	}
	for i, c := range cards {
		if c.ID != wantIDs[i] || c.Owner != "Bob" {
			t.Errorf("card[%d] = %+v, want id %d owned by Bob", i, c, wantIDs[i])
		}
		if i > 0 && c.Amount.LessThan(cards[i-1].Amount) {
			t.Errorf("cards not sorted by amount at %d", i)
		}
	}
}

func TestAPI_ListPageOfOneByAmountDesc(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectQuery(listQuery("amount DESC, id ASC")).
		WithArgs("Bob", 1, 0).
		WillReturnRows(cardRows().AddRow(101, "150.00", "Bob"))
	mock.ExpectQuery(q(countOwned)).
		WithArgs("Bob").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	res := call(t, srv, http.MethodGet, "/cashcards?page=0&size=1&sort=amount,desc", "Bob", "abc123", "")
	if res.status != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.status)
	}
	cards := decodeCards(t, res.body)
	if len(cards) != 1 || !cards[0].Amount.Equal(decimal.NewFromInt(150)) {
		t.Errorf("cards = %+v, want the single 150.00 card", cards)
	}
}

func TestAPI_ListEmptyIsArray(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectQuery(listQuery("amount ASC, id ASC")).
		WithArgs("Bob", 20, 40).
		WillReturnRows(cardRows())
	mock.ExpectQuery(q(countOwned)).
		WithArgs("Bob").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	res := call(t, srv, http.MethodGet, "/cashcards?page=2", "Bob", "abc123", "")
	if res.status != http.StatusOK || strings.TrimSpace(res.body) != "[]" {
		t.Errorf("got %d %q, want 200 []", res.status, res.body)
	}
}

func TestAPI_ListBadSort(t *testing.T) {
	srv, _ := newTestServer(t)

	res := call(t, srv, http.MethodGet, "/cashcards?sort=balance,asc", "Bob", "abc123", "")
	if res.status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", res.status)
	}
}

func TestAPI_UpdateExisting(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectExec(q(updateCard)).
		WithArgs(decimal.RequireFromString("19.99"), int64(99), "Bob").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(insertAudit)).
		WithArgs("Bob", models.AuditUpdate, int64(99)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(q(selectOwned)).
		WithArgs(int64(99), "Bob").
		WillReturnRows(cardRows().AddRow(99, "19.99", "Bob"))

	res := call(t, srv, http.MethodPut, "/cashcards/99", "Bob", "abc123", `{"amount": 19.99}`)
	if res.status != http.StatusNoContent {
		t.Fatalf("update status = %d, want 204", res.status)
	}

	res = call(t, srv, http.MethodGet, "/cashcards/99", "Bob", "abc123", "")
	if !strings.Contains(res.body, `"amount":19.99`) {
		t.Errorf("body after update = %s", res.body)
	}
}

func TestAPI_UpdateNonexistentDoesNotCreate(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectExec(q(updateCard)).
		WithArgs(decimal.RequireFromString("19.99"), int64(99999), "Bob").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q(updateCard)).
		WithArgs(decimal.RequireFromString("333.33"), int64(102), "Bob").
		WillReturnResult(sqlmock.NewResult(0, 0))

	res := call(t, srv, http.MethodPut, "/cashcards/99999", "Bob", "abc123", `{"amount": 19.99}`)
	if res.status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", res.status)
	}
	res = call(t, srv, http.MethodPut, "/cashcards/102", "Bob", "abc123", `{"amount": 333.33}`)
	if res.status != http.StatusNotFound {
		t.Errorf("other owner's card status = %d, want 404", res.status)
	}
}

func TestAPI_DeleteThenFind(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectExec(q(deleteCard)).
		WithArgs(int64(99), "Bob").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(insertAudit)).
		WithArgs("Bob", models.AuditDelete, int64(99)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(q(selectOwned)).
		WithArgs(int64(99), "Bob").
		WillReturnRows(cardRows())
	mock.ExpectExec(q(deleteCard)).
		WithArgs(int64(102), "Bob").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if res := call(t, srv, http.MethodDelete, "/cashcards/99", "Bob", "abc123", ""); res.status != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", res.status)
	}
	if res := call(t, srv, http.MethodGet, "/cashcards/99", "Bob", "abc123", ""); res.status != http.StatusNotFound {
		t.Errorf("find after delete status = %d, want 404", res.status)
	}
	if res := call(t, srv, http.MethodDelete, "/cashcards/102", "Bob", "abc123", ""); res.status != http.StatusNotFound {
		t.Errorf("delete of another owner's card status = %d, want 404", res.status)
	}
}

func TestAPI_Authentication(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name       string
		user, pass string
		want       int
	}{
		{"no credentials", "", "", http.StatusUnauthorized},
		{"bad password", "Bob", "BAD-PASSWORD", http.StatusUnauthorized},
		{"unknown user", "BAD-USER", "abc123", http.StatusUnauthorized},
		{"non-owner", "John", "xyz321", http.StatusForbidden},
		{"non-owner lowercase", "john", "xyz321", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, srv, http.MethodGet, "/cashcards/99", tt.user, tt.pass, "")
			if res.status != tt.want {
				t.Errorf("status = %d, want %d", res.status, tt.want)
			}
			if res.body != "" {
				t.Errorf("body = %q, want empty", res.body)
			}
			if tt.want == http.StatusUnauthorized && res.header.Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate")
			}
		})
	}
}

func TestAPI_TokenThenList(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectQuery(listQuery("amount ASC, id ASC")).
		WithArgs("Joe", 20, 0).
		WillReturnRows(cardRows().
			AddRow(103, "5.00", "Joe").
			AddRow(102, "25.00", "Joe"))
	mock.ExpectQuery(q(countOwned)).
		WithArgs("Joe").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	res := call(t, srv, http.MethodPost, "/auth/token", "joe", "123abc", "")
	if res.status != http.StatusOK {
		t.Fatalf("token status = %d, want 200", res.status)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(res.body), &out); err != nil || out.Token == "" {
		t.Fatalf("token response %q: %v", res.body, err)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/cashcards", nil)
	req.Header.Set("Authorization", "Bearer "+out.Token)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /cashcards status = %d, want 200", resp.StatusCode)
	}
	b, _ := io.ReadAll(resp.Body)
	cards := decodeCards(t, string(b))
	if len(cards) != 2 || cards[0].Owner != "Joe" || cards[1].Owner != "Joe" {
		t.Errorf("cards = %+v", cards)
	}
}

func TestAPI_TokenRejectsBadCredentials(t *testing.T) {
	srv, _ := newTestServer(t)

	res := call(t, srv, http.MethodPost, "/auth/token", "Bob", "wrong", "")
	if res.status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", res.status)
	}
}
