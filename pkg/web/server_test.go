package web

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ritzau/wordgraph/pkg/pubsub"
	"github.com/ritzau/wordgraph/pkg/rank"
	"github.com/ritzau/wordgraph/pkg/walk"
	"github.com/ritzau/wordgraph/pkg/workspace"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const scenario = "the cat sat on the mat the cat ran\n"

type fixture struct {
	server *Server
	ws     *workspace.Workspace
	pub    *pubsub.SSEPublisher
	source string
}

func newFixture(t *testing.T, content string, opts Options) *fixture {
	t.Helper()
	source := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(source, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	pub := pubsub.NewSSEPublisher()
	ws := workspace.New(source, pub)
	if opts.Rank == (rank.Options{}) {
		opts.Rank = rank.DefaultOptions()
	}
	if opts.BoostFactor == 0 {
		opts.BoostFactor = 1.2
	}
	f := &fixture{server: NewServer(ws, pub, opts), ws: ws, pub: pub, source: source}
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	if err := f.ws.Load(context.Background(), "test"); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestGraphNotLoaded(t *testing.T) {
	f := newFixture(t, scenario, Options{})

	rec := f.do(t, http.MethodGet, "/api/graph", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", rec.Code)
	}
}

func TestGraph(t *testing.T) {
	f := newFixture(t, scenario, Options{})
	f.load(t)

	rec := f.do(t, http.MethodGet, "/api/graph", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	data := decode[GraphData](t, rec)
	if len(data.Nodes) != 6 || len(data.Edges) != 7 {
		t.Errorf("Expected 6 nodes and 7 edges, got %d and %d", len(data.Nodes), len(data.Edges))
	}
	if data.Edges[0].From != "the" || data.Edges[0].To != "cat" || data.Edges[0].Weight != 2 {
		t.Errorf("Unexpected first edge %+v", data.Edges[0])
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("Missing request ID header")
	}
}

func TestPath(t *testing.T) {
	f := newFixture(t, scenario, Options{})
	f.load(t)

	rec := f.do(t, http.MethodGet, "/api/path?from=The&to=ran", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	resp := decode[PathResponse](t, rec)
	if len(resp.Results) != 1 {
		t.Fatalf("Expected one result, got %d", len(resp.Results))
	}
	if diff := cmp.Diff([]string{"the", "cat", "ran"}, resp.Results[0].Words); diff != "" {
		t.Errorf("Path mismatch (-want +got):\n%s", diff)
	}
	if resp.Results[0].Cost != 3 || resp.Fallback {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestPathFallsBackToAllTargets(t *testing.T) {
	f := newFixture(t, scenario, Options{})
	f.load(t)

	for _, target := range []string{"/api/path?from=cat", "/api/path?from=cat&to=dog"} {
		resp := decode[PathResponse](t, f.do(t, http.MethodGet, target, ""))
		if len(resp.Results) != 5 {
			t.Errorf("%s: expected 5 results, got %d", target, len(resp.Results))
		}
		if strings.Contains(target, "dog") != resp.Fallback {
			t.Errorf("%s: fallback = %v", target, resp.Fallback)
		}
	}
}

func TestPathErrors(t *testing.T) {
	f := newFixture(t, scenario, Options{})
	f.load(t)

	tests := []struct {
		target string
		want   int
	}{
		{"/api/path", http.StatusBadRequest},
		{"/api/path?from=dog&to=the", http.StatusNotFound},
	}
	for _, tt := range tests {
		if rec := f.do(t, http.MethodGet, tt.target, ""); rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.target, rec.Code, tt.want)
		}
	}
}

func TestBridgeOutcomes(t *testing.T) {
	f := newFixture(t, "w1 b w2\n", Options{})
	f.load(t)

	tests := []struct {
		target string
		status int
		want   BridgeResponse
	}{
		{"/api/bridge?w1=w1&w2=w2", http.StatusOK, BridgeResponse{W1: "w1", W2: "w2", Words: []string{"b"}, Outcome: OutcomeFound}},
		{"/api/bridge?w1=w2&w2=w1", http.StatusOK, BridgeResponse{W1: "w2", W2: "w1", Words: []string{}, Outcome: OutcomeNone}},
		{"/api/bridge?w1=x&w2=w2", http.StatusNotFound, BridgeResponse{W1: "x", W2: "w2", Words: []string{}, Outcome: OutcomeNodeMissing, Missing: "x"}},
	}
	for _, tt := range tests {
		rec := f.do(t, http.MethodGet, tt.target, "")
		if rec.Code != tt.status {
			t.Errorf("GET %s = %d, want %d", tt.target, rec.Code, tt.status)
		}
		if diff := cmp.Diff(tt.want, decode[BridgeResponse](t, rec)); diff != "" {
			t.Errorf("GET %s mismatch (-want +got):\n%s", tt.target, diff)
		}
	}

	if rec := f.do(t, http.MethodGet, "/api/bridge?w1=w1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Missing w2: status = %d, want 400", rec.Code)
	}
}

func TestAugment(t *testing.T) {
	f := newFixture(t, "w1 b w2\n", Options{})
	f.load(t)

	rec := f.do(t, http.MethodPost, "/api/augment", `{"text":"W1 w2 w2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	if got := decode[AugmentResponse](t, rec).Text; got != "w1 b w2 w2" {
		t.Errorf("Augmented text = %q", got)
	}

	if rec := f.do(t, http.MethodPost, "/api/augment", `{"text":`); rec.Code != http.StatusBadRequest {
		t.Errorf("Malformed body: status = %d, want 400", rec.Code)
	}
}

func TestRank(t *testing.T) {
	f := newFixture(t, "a b c a\n", Options{})
	f.load(t)

	resp := decode[RankResponse](t, f.do(t, http.MethodGet, "/api/rank", ""))
	if len(resp.Scores) != 3 || !resp.Converged {
		t.Fatalf("Unexpected ranking %+v", resp)
	}
	// Uniform scores are ordered by word
	if resp.Scores[0].Word != "a" {
		t.Errorf("Expected a first, got %+v", resp.Scores)
	}

	boosted := decode[RankResponse](t, f.do(t, http.MethodGet, "/api/rank?boost=C", ""))
	if boosted.Scores[0].Word != "c" {
		t.Errorf("Expected boosted c first, got %+v", boosted.Scores)
	}
	if diff := cmp.Diff([]string{"c"}, boosted.Boosted); diff != "" {
		t.Errorf("Boosted words mismatch (-want +got):\n%s", diff)
	}
}

// collectWalk reads walk events until the finished event.
func collectWalk(t *testing.T, sub pubsub.Subscription) ([]string, pubsub.WalkFinishedData) {
	t.Helper()
	var steps []string
	timeout := time.After(5 * time.Second)
	for {
		select {
		case event := <-sub.Events():
			switch event.Type {
			case pubsub.WalkStep:
				var step pubsub.WalkStepData
				if err := json.Unmarshal(event.Data, &step); err != nil {
					t.Fatal(err)
				}
				steps = append(steps, step.Word)
			case pubsub.WalkFinished:
				var done pubsub.WalkFinishedData
				if err := json.Unmarshal(event.Data, &done); err != nil {
					t.Fatal(err)
				}
				return steps, done
			}
		case <-timeout:
			t.Fatal("Timeout waiting for walk to finish")
		}
	}
}

func TestWalkStreamsSteps(t *testing.T) {
	out := filepath.Join(t.TempDir(), "walk.txt")
	f := newFixture(t, scenario, Options{
		Walker:  walk.Walker{Rand: rand.New(rand.NewPCG(1, 2))},
		WalkOut: out,
	})
	f.load(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := f.pub.Subscribe(ctx, pubsub.TopicWalk)
	if err != nil {
		t.Fatal(err)
	}

	rec := f.do(t, http.MethodPost, "/api/walk", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Status = %d, want 202", rec.Code)
	}
	started := decode[WalkResponse](t, rec)

	steps, done := collectWalk(t, sub)
	if done.RunID != started.RunID || !done.Completed {
		t.Errorf("Unexpected outcome %+v", done)
	}
	if diff := cmp.Diff(done.Visited, steps); diff != "" {
		t.Errorf("Streamed steps differ from visited (-visited +steps):\n%s", diff)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Walk not saved: %v", err)
	}
	if got := string(data); got != strings.Join(done.Visited, "\n")+"\n" {
		t.Errorf("Saved walk = %q", got)
	}

	// The finished walk no longer blocks a new one
	if rec := f.do(t, http.MethodPost, "/api/walk", ""); rec.Code != http.StatusAccepted {
		t.Errorf("Second walk: status = %d, want 202", rec.Code)
	}
	collectWalk(t, sub)
}

func TestWalkConflictAndCancel(t *testing.T) {
	f := newFixture(t, scenario, Options{Walker: walk.Walker{StepDelay: time.Hour}})
	f.load(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := f.pub.Subscribe(ctx, pubsub.TopicWalk)
	if err != nil {
		t.Fatal(err)
	}

	if rec := f.do(t, http.MethodPost, "/api/walk", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("Status = %d, want 202", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/walk", ""); rec.Code != http.StatusConflict {
		t.Errorf("Second start: status = %d, want 409", rec.Code)
	}
	if status := decode[WalkResponse](t, f.do(t, http.MethodGet, "/api/walk", "")); !status.Active {
		t.Error("Expected an active walk")
	}

	if rec := f.do(t, http.MethodDelete, "/api/walk", ""); rec.Code != http.StatusAccepted {
		t.Errorf("Stop: status = %d, want 202", rec.Code)
	}

	_, done := collectWalk(t, sub)
	if done.Status != walk.Cancelled.String() || done.Completed {
		t.Errorf("Expected cancelled walk, got %+v", done)
	}
	if rec := f.do(t, http.MethodDelete, "/api/walk", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Stop without walk: status = %d, want 404", rec.Code)
	}
}

func TestReload(t *testing.T) {
	f := newFixture(t, scenario, Options{})
	f.load(t)

	if err := os.WriteFile(f.source, []byte("a dog barked\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := f.do(t, http.MethodPost, "/api/reload", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}

	data := decode[GraphData](t, f.do(t, http.MethodGet, "/api/graph", ""))
	if len(data.Nodes) != 3 || data.Nodes[1].ID != "dog" {
		t.Errorf("Graph not reloaded: %+v", data.Nodes)
	}

	if err := os.Remove(f.source); err != nil {
		t.Fatal(err)
	}
	if rec := f.do(t, http.MethodPost, "/api/reload", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Reload of missing source: status = %d, want 503", rec.Code)
	}
}

func TestSubscribeUnknownTopic(t *testing.T) {
	f := newFixture(t, scenario, Options{})

	if rec := f.do(t, http.MethodGet, "/api/subscribe/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", rec.Code)
	}
}

func TestStaticIndex(t *testing.T) {
	f := newFixture(t, scenario, Options{})

	rec := f.do(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<title>Word Graph</title>") {
		t.Errorf("Index not served: %d", rec.Code)
	}
}

func TestLongWalkReachesSlowSubscriber(t *testing.T) {
	// One line closing a 600 edge cycle
	words := make([]string, 0, 601)
	for i := 0; i < 600; i++ {
		words = append(words, fmt.Sprintf("w%d", i))
	}
	words = append(words, "w0")
	f := newFixture(t, strings.Join(words, " ")+"\n", Options{})
	f.load(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := f.pub.Subscribe(ctx, pubsub.TopicWalk)
	if err != nil {
		t.Fatal(err)
	}

	if rec := f.do(t, http.MethodPost, "/api/walk", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("Status = %d, want 202", rec.Code)
	}

	// Let the walk run far past the subscription buffer before reading
	time.Sleep(200 * time.Millisecond)

	steps, done := collectWalk(t, sub)
	if len(steps) != 601 {
		t.Errorf("Received %d steps, want 601", len(steps))
	}
	if done.Status != walk.RepeatedEdge.String() || len(done.Visited) != 601 {
		t.Errorf("Unexpected outcome: status %s with %d words", done.Status, len(done.Visited))
	}
	if diff := cmp.Diff(done.Visited, steps); diff != "" {
		t.Errorf("Streamed steps differ from visited (-visited +steps):\n%s", diff)
	}
}

func TestWalkAfterClose(t *testing.T) {
	f := newFixture(t, scenario, Options{})
	f.load(t)
	f.server.Close()

	if rec := f.do(t, http.MethodPost, "/api/walk", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", rec.Code)
	}
	if status := decode[WalkResponse](t, f.do(t, http.MethodGet, "/api/walk", "")); status.Active {
		t.Error("Expected no active walk after close")
	}
}
