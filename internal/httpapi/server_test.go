package httpapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ethanesterson-creator/SignOut/internal/httpapi"
	"github.com/ethanesterson-creator/SignOut/internal/signout/credential"
	"github.com/ethanesterson-creator/SignOut/internal/signout/ledger"
	"github.com/ethanesterson-creator/SignOut/internal/signout/service"
	"github.com/ethanesterson-creator/SignOut/internal/signout/store/memory"
	"github.com/ethanesterson-creator/SignOut/internal/signout/types"
)

const adminPassword = "campfire"

type testEnv struct {
	ts     *httptest.Server
	logs   *memory.Ledger
	vans   *memory.Ledger
	roster *memory.Roster
}

// newTestServer wires up the full dependency graph using in-memory stores
// and returns an httptest.Server whose URL can be hit with a plain http.Client.
func newTestServer(t *testing.T, password string) testEnv {
	t.Helper()

	env := testEnv{
		logs: memory.NewLedger("logs", ledger.People.Columns),
		vans: memory.NewLedger("vans", ledger.Vehicles.Columns),
		roster: memory.NewRoster(
			credential.Record{Name: "Sam", Code: "1234", Active: true},
			credential.Record{Name: "Jo", Code: "7777", Active: true},
			credential.Record{Name: "Pat", Code: "5555", Active: false},
		),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := credential.NewDirectory(env.roster, time.Hour)
	opts := service.Options{Logger: logger, ViewTTL: -1}
	boards := service.NewBoards(
		service.NewCoordinator(service.PeopleBoard(env.logs, service.DefaultPeopleReasons), dir, opts),
		service.NewCoordinator(service.VehicleBoard(env.vans, service.DefaultVehicles, service.DefaultVehiclePurposes, false), dir, opts),
	)

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger: logger,
		Addr:   ":0",
		Boards: boards,
		Roster: dir,
		Admin:  service.NewAdmin(password, boards, dir, logger),
	})

	env.ts = httptest.NewServer(srv.Handler())
	t.Cleanup(env.ts.Close)
	return env
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func adminRequest(t *testing.T, method, url, password, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if password != "" {
		req.Header.Set("X-Admin-Password", password)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// ── Transitions ──────────────────────────────────────────────────────────────

func TestCheckout_People_OK(t *testing.T) {
	env := newTestServer(t, adminPassword)

	resp := postJSON(t, env.ts.URL+"/v1/boards/people/checkout", `{"actor":"Sam","code":"1234","category":"day off"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	out := decode[types.TransitionResponse](t, resp)
	if !out.OK || out.Board != "people" {
		t.Errorf("unexpected response %+v", out)
	}
	if out.Event.Subject != "Sam" || out.Event.Status != "OUT" || out.Event.Category != "Day Off" {
		t.Errorf("unexpected event %+v", out.Event)
	}
	if out.Event.ID == nil || *out.Event.ID != 1 {
		t.Errorf("expected id=1, got %v", out.Event.ID)
	}
	if env.logs.Len() != 1 {
		t.Errorf("expected 1 ledger row, got %d", env.logs.Len())
	}
}

func TestCheckout_ErrorMapping(t *testing.T) {
	env := newTestServer(t, adminPassword)
	postJSON(t, env.ts.URL+"/v1/boards/people/checkout", `{"actor":"Jo","code":"7777","category":"Day Off"}`)

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"bad json", "/v1/boards/people/checkout", `{"actor":`, http.StatusBadRequest, "bad_body"},
		{"unknown field", "/v1/boards/people/checkout", `{"actor":"Sam","pin":"1"}`, http.StatusBadRequest, "bad_body"},
		{"missing code", "/v1/boards/people/checkout", `{"actor":"Sam","category":"Day Off"}`, http.StatusBadRequest, "invalid_code"},
		{"wrong code", "/v1/boards/people/checkout", `{"actor":"Sam","code":"0000","category":"Day Off"}`, http.StatusUnauthorized, "wrong_code"},
		{"unknown actor", "/v1/boards/people/checkout", `{"actor":"Zed","code":"1234","category":"Day Off"}`, http.StatusUnauthorized, "unknown_actor"},
		{"inactive", "/v1/boards/people/checkout", `{"actor":"Pat","code":"5555","category":"Day Off"}`, http.StatusUnauthorized, "inactive_actor"},
		{"already out", "/v1/boards/people/checkout", `{"actor":"Jo","code":"7777","category":"Day Off"}`, http.StatusConflict, "already_out"},
		{"already in", "/v1/boards/people/checkin", `{"actor":"Sam","code":"1234"}`, http.StatusConflict, "already_in"},
		{"unknown board", "/v1/boards/canoes/checkout", `{"actor":"Sam","code":"1234"}`, http.StatusNotFound, "unknown_board"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, env.ts.URL+tt.path, tt.body)
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, resp.StatusCode)
			}
			out := decode[types.ErrorResponse](t, resp)
			if out.OK || out.Code != tt.wantErr {
				t.Errorf("expected code=%q, got %+v", tt.wantErr, out)
			}
		})
	}
}

func TestCheckout_StoreDown_503(t *testing.T) {
	env := newTestServer(t, adminPassword)
	env.logs.ReadErr = io.ErrUnexpectedEOF

	resp := postJSON(t, env.ts.URL+"/v1/boards/people/checkout", `{"actor":"Sam","code":"1234","category":"Day Off"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}

	board, err := http.Get(env.ts.URL + "/v1/boards/people")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer board.Body.Close()
	if board.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected board read to report 503, got %d", board.StatusCode)
	}
}

// ── Boards ───────────────────────────────────────────────────────────────────

func TestVehicleBoard_AllocatesAndReports(t *testing.T) {
	env := newTestServer(t, adminPassword)

	resp := postJSON(t, env.ts.URL+"/v1/boards/vehicles/checkout",
		`{"actor":"Sam","code":"1234","category":"Other","detail":"grocery run","passengers":[{"name":"Jo"}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	out := decode[types.TransitionResponse](t, resp)
	if out.Event.Subject != "Van 1" {
		t.Errorf("expected Van 1, got %q", out.Event.Subject)
	}

	get, err := http.Get(env.ts.URL + "/v1/boards/vehicles")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer get.Body.Close()
	board := decode[types.BoardResponse](t, get)

	if board.NextAvailable != "Van 2" {
		t.Errorf("expected next_available=Van 2, got %q", board.NextAvailable)
	}
	if len(board.Out) != 1 || board.Out[0].Actor != "Sam" {
		t.Errorf("unexpected out set %+v", board.Out)
	}
	if len(board.Pool) != 3 || board.Pool[0].Status != "OUT" || board.Pool[1].Status != "IN" {
		t.Errorf("unexpected pool %+v", board.Pool)
	}
	if board.Pool[0].Last == nil || len(board.Pool[0].Last.Passengers) != 1 {
		t.Errorf("expected passengers on last event, got %+v", board.Pool[0].Last)
	}
	if len(board.Categories) == 0 {
		t.Error("expected categories")
	}
}

func TestRoster_ListsActiveNamesOnly(t *testing.T) {
	env := newTestServer(t, adminPassword)

	resp, err := http.Get(env.ts.URL + "/v1/roster")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if bytes.Contains(body, []byte("1234")) {
		t.Error("roster response must not contain codes")
	}
	var out types.RosterResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Names) != 2 || out.Names[0] != "Sam" || out.Names[1] != "Jo" {
		t.Errorf("expected [Sam Jo], got %v", out.Names)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestServer(t, "")
	resp, err := http.Get(env.ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

// ── Protobuf ─────────────────────────────────────────────────────────────────

func TestCheckout_Protobuf(t *testing.T) {
	env := newTestServer(t, adminPassword)

	req, err := structpb.NewStruct(map[string]any{
		"actor":    "Sam",
		"code":     "1234",
		"category": "Day Off",
	})
	if err != nil {
		t.Fatalf("struct: %v", err)
	}
	body, _ := proto.Marshal(req)

	resp, err := http.Post(env.ts.URL+"/v1/boards/people/checkout", "application/x-protobuf", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-protobuf" {
		t.Fatalf("expected protobuf response, got %q", ct)
	}

	data, _ := io.ReadAll(resp.Body)
	var out structpb.Struct
	if err := proto.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	m := out.AsMap()
	if m["ok"] != true {
		t.Errorf("expected ok=true, got %v", m["ok"])
	}
	ev, _ := m["event"].(map[string]any)
	if ev["subject"] != "Sam" || ev["status"] != "OUT" {
		t.Errorf("unexpected event %v", ev)
	}
}

// ── Admin ────────────────────────────────────────────────────────────────────

func TestAdmin_RequiresPassword(t *testing.T) {
	env := newTestServer(t, adminPassword)

	if resp := adminRequest(t, http.MethodGet, env.ts.URL+"/v1/admin/boards/people/events", "", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without password, got %d", resp.StatusCode)
	}
	if resp := adminRequest(t, http.MethodGet, env.ts.URL+"/v1/admin/boards/people/events", "wrong", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong password, got %d", resp.StatusCode)
	}

	disabled := newTestServer(t, "")
	if resp := adminRequest(t, http.MethodGet, disabled.ts.URL+"/v1/admin/boards/people/events", "anything", ""); resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 when admin is disabled, got %d", resp.StatusCode)
	}
}

func TestAdmin_HistoryExportPurge(t *testing.T) {
	env := newTestServer(t, adminPassword)
	postJSON(t, env.ts.URL+"/v1/boards/people/checkout", `{"actor":"Sam","code":"1234","category":"Day Off"}`)
	postJSON(t, env.ts.URL+"/v1/boards/people/checkout", `{"actor":"Jo","code":"7777","category":"Medical"}`)

	resp := adminRequest(t, http.MethodGet, env.ts.URL+"/v1/admin/boards/people/events", adminPassword, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	hist := decode[types.HistoryResponse](t, resp)
	if len(hist.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(hist.Events))
	}

	resp = adminRequest(t, http.MethodGet, env.ts.URL+"/v1/admin/boards/people/export.csv", adminPassword, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv, got %q", ct)
	}
	csvBody, _ := io.ReadAll(resp.Body)
	if lines := strings.Count(strings.TrimSpace(string(csvBody)), "\n"); lines != 2 {
		t.Errorf("expected header + 2 rows, got %d newlines in %q", lines, csvBody)
	}

	resp = adminRequest(t, http.MethodPost, env.ts.URL+"/v1/admin/boards/people/purge", adminPassword, `{"ids":[1]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if out := decode[types.PurgeResponse](t, resp); out.Removed != 1 {
		t.Errorf("expected removed=1, got %d", out.Removed)
	}
	if env.logs.Len() != 1 {
		t.Errorf("expected 1 row left, got %d", env.logs.Len())
	}

	resp = adminRequest(t, http.MethodPost, env.ts.URL+"/v1/admin/boards/people/purge", adminPassword, `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for empty purge, got %d", resp.StatusCode)
	}
}

func TestAdmin_RefreshRoster(t *testing.T) {
	env := newTestServer(t, adminPassword)
	if err := env.roster.UpsertStaff(t.Context(), credential.Record{Name: "Lee", Code: "2468", Active: true}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	resp := adminRequest(t, http.MethodPost, env.ts.URL+"/v1/admin/roster/refresh", adminPassword, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if out := decode[types.RefreshResponse](t, resp); out.Staff != 4 {
		t.Errorf("expected 4 staff, got %d", out.Staff)
	}

	resp = postJSON(t, env.ts.URL+"/v1/boards/people/checkout", `{"actor":"Lee","code":"2468","category":"Program"}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected new staff to sign out, got %d", resp.StatusCode)
	}
}
