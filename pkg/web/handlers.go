package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ritzau/wordgraph/pkg/bridge"
	"github.com/ritzau/wordgraph/pkg/graph"
	"github.com/ritzau/wordgraph/pkg/logging"
	"github.com/ritzau/wordgraph/pkg/paths"
	"github.com/ritzau/wordgraph/pkg/rank"
)

// maxBodySize limits POST bodies.
const maxBodySize = 1 << 20

// GraphNode is a word in the visualization payload
type GraphNode struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Anchor string `json:"anchor"` // safe for use as a DOM id; not unique
}

// GraphData holds the word graph for visualization
type GraphData struct {
	Nodes []GraphNode  `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

// PathResponse answers /api/path.
type PathResponse struct {
	From     string       `json:"from"`
	To       string       `json:"to,omitempty"`
	Fallback bool         `json:"fallback"` // destination missing, all targets queried
	Results  []PathResult `json:"results"`
}

// PathResult is one path line. Words is empty when there is no path.
type PathResult struct {
	From  string       `json:"from"`
	To    string       `json:"to"`
	Found bool         `json:"found"`
	Cost  int          `json:"cost"`
	Words []string     `json:"words"`
	Edges []graph.Edge `json:"edges"`
}

// Bridge query outcomes.
const (
	OutcomeFound       = "found"
	OutcomeNone        = "none"
	OutcomeNodeMissing = "node_missing"
)

// BridgeResponse answers /api/bridge.
type BridgeResponse struct {
	W1      string   `json:"w1"`
	W2      string   `json:"w2"`
	Words   []string `json:"words"`
	Outcome string   `json:"outcome"`
	Missing string   `json:"missing,omitempty"`
}

// AugmentRequest is the body of POST /api/augment.
type AugmentRequest struct {
	Text string `json:"text"`
}

// AugmentResponse answers /api/augment.
type AugmentResponse struct {
	Text string `json:"text"`
}

// RankResponse answers /api/rank.
type RankResponse struct {
	Iterations int          `json:"iterations"`
	Converged  bool         `json:"converged"`
	Boosted    []string     `json:"boosted,omitempty"`
	Scores     []rank.Score `json:"scores"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.WarnContext(r.Context(), "failed to encode response", "error", err)
	}
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, graph.ErrNodeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, graph.ErrInputUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, ErrorResponse{Error: err.Error()})
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: msg})
}

// queryWord reads a single word parameter, folded the way graph keys are.
func queryWord(r *http.Request, name string) string {
	return strings.ToLower(strings.TrimSpace(r.URL.Query().Get(name)))
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.workspace.Graph()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, buildGraphData(g))
}

func buildGraphData(g *graph.Graph) *GraphData {
	data := &GraphData{
		Nodes: make([]GraphNode, 0, g.Len()),
		Edges: g.Edges(),
	}
	for _, word := range g.Words() {
		data.Nodes = append(data.Nodes, GraphNode{
			ID:     word,
			Label:  word,
			Anchor: graph.SanitizeID(word),
		})
	}
	if data.Edges == nil {
		data.Edges = []graph.Edge{}
	}
	return data
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	from, to := queryWord(r, "from"), queryWord(r, "to")
	if from == "" {
		badRequest(w, r, "missing query parameter: from")
		return
	}

	g, err := s.workspace.Graph()
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := PathResponse{From: from, To: to}
	var results []paths.Result
	if to != "" && g.HasWord(to) {
		var result paths.Result
		result, err = paths.Between(s.opts.Finder, g, from, to)
		results = []paths.Result{result}
	} else {
		if to != "" {
			logging.WarnContext(r.Context(), "destination not in graph, querying all targets", "to", to)
			resp.Fallback = true
		}
		results, err = paths.AllFrom(s.opts.Finder, g, from)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp.Results = make([]PathResult, 0, len(results))
	for _, result := range results {
		pr := PathResult{
			From:  result.From,
			To:    result.To,
			Found: result.Found(),
			Cost:  result.Cost(),
			Words: result.Words(),
			Edges: result.Edges,
		}
		if pr.Words == nil {
			pr.Words = []string{}
			pr.Edges = []graph.Edge{}
		}
		resp.Results = append(resp.Results, pr)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request) {
	w1, w2 := queryWord(r, "w1"), queryWord(r, "w2")
	if w1 == "" || w2 == "" {
		badRequest(w, r, "query parameters w1 and w2 are required")
		return
	}

	g, err := s.workspace.Graph()
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := BridgeResponse{W1: w1, W2: w2, Words: []string{}}
	words, err := bridge.Words(g, w1, w2)
	var nf *graph.NodeNotFoundError
	switch {
	case errors.As(err, &nf):
		resp.Outcome = OutcomeNodeMissing
		resp.Missing = nf.Word
		writeJSON(w, r, http.StatusNotFound, resp)
		return
	case err != nil:
		writeError(w, r, err)
		return
	case len(words) == 0:
		resp.Outcome = OutcomeNone
	default:
		resp.Outcome = OutcomeFound
		resp.Words = words
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleAugment(w http.ResponseWriter, r *http.Request) {
	var req AugmentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body: "+err.Error())
		return
	}

	g, err := s.workspace.Graph()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, AugmentResponse{Text: bridge.AugmentText(g, req.Text)})
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	g, err := s.workspace.Graph()
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := rank.Compute(g, s.opts.Rank)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := RankResponse{Iterations: res.Iterations, Converged: res.Converged}
	scores := res.Scores
	if boost := r.URL.Query().Get("boost"); boost != "" {
		for _, word := range strings.Split(boost, ",") {
			resp.Boosted = append(resp.Boosted, graph.Tokenize(word)...)
		}
		scores = rank.Boost(scores, resp.Boosted, s.opts.BoostFactor)
	}
	resp.Scores = rank.Ranked(scores)
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.workspace.Load(r.Context(), "requested"); err != nil {
		writeError(w, r, err)
		return
	}
	g, _ := s.workspace.Graph()
	writeJSON(w, r, http.StatusOK, map[string]any{
		"version": s.workspace.Version(),
		"nodes":   g.Len(),
		"edges":   g.EdgeCount(),
	})
}
