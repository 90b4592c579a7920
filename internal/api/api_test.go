package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"geocoin/internal/engine"
	"geocoin/internal/grid"
	"geocoin/internal/sensor"
	"geocoin/internal/store"
	"geocoin/internal/world"
)

// newTestServer wires the pinned test world (seed 1234, P=0.1, radius 1,
// one cache at -1,1 with ten coins) behind the HTTP surface.
func newTestServer(t *testing.T, source sensor.Source) (*Server, *store.Memory) {
	t.Helper()
	board, err := grid.NewBoard(0.0001, 1)
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	gen, err := engine.NewGenerator(1234, 0.1, 10)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	sess, err := world.NewSession(board, gen, world.NopView{}, 0.00005, 0.00005)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	saves := store.NewMemory()
	return NewServer(sess, saves, source), saves
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) StateResponse {
	t.Helper()
	var state StateResponse
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return state
}

func TestStateEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodGet, "/api/v1/state", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /state = %d: %s", rec.Code, rec.Body)
	}
	state := decodeState(t, rec)
	if state.Player.Row != 0 || state.Player.Col != 0 {
		t.Errorf("player at %d,%d, want 0,0", state.Player.Row, state.Player.Col)
	}
	if len(state.Caches) != 1 || state.Caches[0].Cell != "-1,1" {
		t.Fatalf("caches = %+v, want one at -1,1", state.Caches)
	}
	if len(state.Caches[0].Coins) != 10 {
		t.Errorf("cache holds %d coins, want 10", len(state.Caches[0].Coins))
	}
	if state.SensorActive {
		t.Error("sensor reported active with no source")
	}
}

func TestMoveEndpoint(t *testing.T) {
	srv, saves := newTestServer(t, nil)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/move/north", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /move/north = %d: %s", rec.Code, rec.Body)
	}
	state := decodeState(t, rec)
	if state.Player.Row != 1 || state.Player.Col != 0 {
		t.Errorf("player at %d,%d after move north, want 1,0", state.Player.Row, state.Player.Col)
	}
	if len(state.Path) != 2 {
		t.Errorf("path has %d entries, want 2", len(state.Path))
	}

	// Mutations persist a decodable snapshot.
	payload, ok, err := saves.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("no snapshot persisted after move: ok=%v err=%v", ok, err)
	}
	snap, err := world.DecodeSnapshot(payload)
	if err != nil {
		t.Fatalf("persisted snapshot undecodable: %v", err)
	}
	if snap.Row != 1 || snap.Col != 0 {
		t.Errorf("persisted player at %d,%d, want 1,0", snap.Row, snap.Col)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/move/up", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST /move/up = %d, want 400", rec.Code)
	}
}

func TestCollectAndDepositEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/collect", CollectRequest{Cell: "-1,1", Coin: "-1:1#0"})
	if rec.Code != http.StatusOK {
		t.Fatalf("collect = %d: %s", rec.Code, rec.Body)
	}
	state := decodeState(t, rec)
	if len(state.Player.Coins) != 1 || state.Player.Coins[0] != "-1:1#0" {
		t.Errorf("player coins = %v, want [-1:1#0]", state.Player.Coins)
	}

	// Collecting the same coin again: it is gone.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/collect", CollectRequest{Cell: "-1,1", Coin: "-1:1#0"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("double collect = %d, want 404", rec.Code)
	}

	// Deposit into a cell with no cache.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/deposit", DepositRequest{Cell: "-1,-1", Coins: []string{"-1:1#0"}})
	if rec.Code != http.StatusConflict {
		t.Errorf("deposit to no-cache cell = %d, want 409", rec.Code)
	}

	// Deposit back where it came from.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/deposit", DepositRequest{Cell: "-1,1", Coins: []string{"-1:1#0"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("deposit = %d: %s", rec.Code, rec.Body)
	}
	state = decodeState(t, rec)
	if len(state.Player.Coins) != 0 {
		t.Errorf("player coins = %v after deposit, want empty", state.Player.Coins)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/collect", CollectRequest{Cell: "bogus", Coin: "x"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("collect with bad cell key = %d, want 400", rec.Code)
	}
}

func TestResetEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Routes()

	fresh := decodeState(t, doJSON(t, h, http.MethodGet, "/api/v1/state", nil))

	doJSON(t, h, http.MethodPost, "/api/v1/collect", CollectRequest{Cell: "-1,1", Coin: "-1:1#3"})
	doJSON(t, h, http.MethodPost, "/api/v1/move/east", nil)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/reset", ResetRequest{Confirm: false})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unconfirmed reset = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/reset", ResetRequest{Confirm: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("reset = %d: %s", rec.Code, rec.Body)
	}
	after := decodeState(t, rec)

	freshJSON, _ := json.Marshal(fresh)
	afterJSON, _ := json.Marshal(after)
	if !bytes.Equal(freshJSON, afterJSON) {
		t.Errorf("post-reset state differs from fresh state:\n%s\n%s", freshJSON, afterJSON)
	}
}

func TestSensorEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/sensor", SensorRequest{Enabled: true})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("sensor toggle with no source = %d, want 503", rec.Code)
	}

	// Disabling is a no-op even without a source.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/sensor", SensorRequest{Enabled: false})
	if rec.Code != http.StatusOK {
		t.Errorf("sensor disable = %d, want 200", rec.Code)
	}
}

func TestSensorDrivesMovement(t *testing.T) {
	// One fix at the center of cell (2,2).
	source := sensor.NewReplay([][2]float64{{0.00025, 0.00025}}, time.Millisecond)
	srv, _ := newTestServer(t, source)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/sensor", SensorRequest{Enabled: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("sensor enable = %d: %s", rec.Code, rec.Body)
	}

	deadline := time.Now().Add(time.Second)
	for {
		state := decodeState(t, doJSON(t, h, http.MethodGet, "/api/v1/state", nil))
		if state.Player.Row == 2 && state.Player.Col == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("player never reached 2,2; at %d,%d", state.Player.Row, state.Player.Col)
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/sensor", SensorRequest{Enabled: false})
	if rec.Code != http.StatusOK {
		t.Fatalf("sensor disable = %d", rec.Code)
	}
	state := decodeState(t, doJSON(t, h, http.MethodGet, "/api/v1/state", nil))
	if state.SensorActive {
		t.Error("sensor still active after disable")
	}
}

func TestSensorDeactivatesAfterTrackEnds(t *testing.T) {
	source := sensor.NewReplay([][2]float64{{0.00025, 0.00025}}, time.Millisecond)
	srv, _ := newTestServer(t, source)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/sensor", SensorRequest{Enabled: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("sensor enable = %d: %s", rec.Code, rec.Body)
	}

	// Once the track plays out the toggle must report inactive on its own.
	deadline := time.Now().Add(time.Second)
	for {
		state := decodeState(t, doJSON(t, h, http.MethodGet, "/api/v1/state", nil))
		if !state.SensorActive {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("sensor still active after the track finished")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The source can be re-armed after a natural end.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/sensor", SensorRequest{Enabled: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("sensor re-enable = %d: %s", rec.Code, rec.Body)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", rec.Code)
	}
	var health HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("status = %q, want healthy", health.Status)
	}
}
