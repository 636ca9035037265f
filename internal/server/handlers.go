package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/edalab/phasornet/pkg/analysis"
	"github.com/edalab/phasornet/pkg/netlist"
	"github.com/edalab/phasornet/pkg/schematic"
	"github.com/edalab/phasornet/pkg/solver"
)

// Phasor is the JSON form of a complex quantity.
type Phasor struct {
	Re       float64 `json:"re"`
	Im       float64 `json:"im"`
	Mag      float64 `json:"mag"`
	PhaseDeg float64 `json:"phaseDeg"`
}

func phasor(z complex128) Phasor {
	return Phasor{
		Re:       real(z),
		Im:       imag(z),
		Mag:      cmplx.Abs(z),
		PhaseDeg: cmplx.Phase(z) * 180 / math.Pi,
	}
}

func phasorMap(m map[string]complex128) map[string]Phasor {
	out := make(map[string]Phasor, len(m))
	for k, v := range m {
		out[k] = phasor(v)
	}
	return out
}

// SolveRequest carries a schematic document plus per-request options.
type SolveRequest struct {
	Document schematic.Document `json:"document"`
	FreqHz   *float64           `json:"freqHz,omitempty"`
	Trace    bool               `json:"trace,omitempty"`
}

// SolveResponse is the phasor solution of the whole circuit.
type SolveResponse struct {
	Nodes          map[string]Phasor `json:"nodes"`
	ElementVoltage map[string]Phasor `json:"elementVoltage"`
	ElementCurrent map[string]Phasor `json:"elementCurrent"`
	ElementPower   map[string]Phasor `json:"elementPower"`
	Trace          []string          `json:"trace,omitempty"`
}

// PortRequest asks for the Thevenin/Norton equivalent at a node pair.
type PortRequest struct {
	Document schematic.Document `json:"document"`
	FreqHz   *float64           `json:"freqHz,omitempty"`
	NodeA    string             `json:"nodeA"`
	NodeB    string             `json:"nodeB"`
	Load     string             `json:"load,omitempty"`
}

// PortResponse is the computed port equivalent.
type PortResponse struct {
	FreqHz          float64  `json:"freqHz"`
	Vth             Phasor   `json:"vth"`
	Zth             Phasor   `json:"zth"`
	In              Phasor   `json:"in"`
	LoadOptimal     Phasor   `json:"loadOptimal"`
	PowerMax        float64  `json:"powerMax"`
	PowerApplicable bool     `json:"powerApplicable"`
	Display         []string `json:"display"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *Server) backend() solver.Option {
	if s.cfg.Solver.Backend == "sparse" {
		return solver.WithBackend(solver.BackendSparse)
	}
	return solver.WithBackend(solver.BackendDense)
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		solveDuration.WithLabelValues("solve").Observe(time.Since(start).Seconds())
	}()

	var req SolveRequest
	if err := decodeBody(w, r, s.cfg.Server.MaxRequestBytes, &req); err != nil {
		s.fail(w, r, "solve", http.StatusBadRequest, err)
		return
	}
	if err := req.Document.Validate(); err != nil {
		s.fail(w, r, "solve", http.StatusBadRequest, err)
		return
	}

	net, _, err := netlist.Build(&req.Document)
	if err != nil {
		s.fail(w, r, "solve", http.StatusUnprocessableEntity, err)
		return
	}

	freq := req.Document.FreqHz
	if req.FreqHz != nil {
		freq = *req.FreqHz
	}

	res, err := solver.Solve(net, freq, s.backend())
	if err != nil {
		s.fail(w, r, "solve", http.StatusUnprocessableEntity, err)
		return
	}

	resp := SolveResponse{
		Nodes:          phasorMap(res.NodeVoltages),
		ElementVoltage: phasorMap(res.ElementVoltage),
		ElementCurrent: phasorMap(res.ElementCurrent),
		ElementPower:   phasorMap(res.ElementPower),
	}
	if req.Trace || s.cfg.Solver.Trace {
		resp.Trace = res.Trace
	}

	solveTotal.WithLabelValues("solve", "ok").Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePort(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		solveDuration.WithLabelValues("port").Observe(time.Since(start).Seconds())
	}()

	var req PortRequest
	if err := decodeBody(w, r, s.cfg.Server.MaxRequestBytes, &req); err != nil {
		s.fail(w, r, "port", http.StatusBadRequest, err)
		return
	}
	if err := req.Document.Validate(); err != nil {
		s.fail(w, r, "port", http.StatusBadRequest, err)
		return
	}
	if req.NodeA == "" || req.NodeB == "" {
		s.fail(w, r, "port", http.StatusBadRequest, errors.New("nodeA and nodeB are required"))
		return
	}

	net, _, err := netlist.Build(&req.Document)
	if err != nil {
		s.fail(w, r, "port", http.StatusUnprocessableEntity, err)
		return
	}

	freq := req.Document.FreqHz
	if req.FreqHz != nil {
		freq = *req.FreqHz
	}

	port := analysis.Port{NodeA: req.NodeA, NodeB: req.NodeB, LoadLabel: req.Load}
	rep, err := analysis.Analyze(net, freq, port, s.backend())
	if err != nil {
		s.fail(w, r, "port", http.StatusUnprocessableEntity, err)
		return
	}

	resp := PortResponse{
		FreqHz:          rep.FreqHz,
		Vth:             phasor(rep.Vth),
		Zth:             phasor(rep.Zth),
		In:              phasor(rep.In),
		LoadOptimal:     phasor(rep.LoadOptimal),
		PowerMax:        rep.PowerMax,
		PowerApplicable: rep.PowerApplicable,
		Display:         rep.Render(),
	}

	solveTotal.WithLabelValues("port", "ok").Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, status int, err error) {
	solveTotal.WithLabelValues(op, "error").Inc()
	s.logger.Warn("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.Error(err),
	)
	writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		RequestID: chimiddleware.GetReqID(r.Context()),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
