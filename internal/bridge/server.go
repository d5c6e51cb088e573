// Package bridge connects a browser editor to a studio over a WebSocket and
// serves the health and metrics endpoints.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwbudde/algo-patchbay/internal/logging"
	"github.com/cwbudde/algo-patchbay/internal/studio"
)

const (
	writeWait  = 5 * time.Second
	maxMessage = 1 << 20
)

// Server serves one studio to any number of editor connections.
type Server struct {
	studio   *studio.Studio
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	upgrader websocket.Upgrader

	requests *prometheus.CounterVec
	peak     prometheus.Gauge
}

// New creates a bridge for st. Its collectors are registered with reg, which
// is also what /metrics serves.
func New(st *studio.Studio, reg *prometheus.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}

	f := promauto.With(reg)

	return &Server{
		studio:   st,
		logger:   logger,
		gatherer: reg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "patchbay_bridge_requests_total",
			Help: "Editor requests by type and outcome",
		}, []string{"type", "result"}),
		peak: f.NewGauge(prometheus.GaugeOpts{
			Name: "patchbay_output_peak",
			Help: "Absolute peak of the last rendered block",
		}),
	}
}

// Handler returns the HTTP routes: /ws, /metrics and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")

		if s.studio.Context().Closed() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("closed\n"))

			return
		}

		_, _ = w.Write([]byte("ok\n"))
	})

	return mux
}

// Run serves on addr and renders the studio until ctx is done or the
// listener fails.
func (s *Server) Run(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	renderDone := make(chan error, 1)

	go func() {
		renderDone <- s.studio.Run(ctx, s.meter)
	}()

	serveDone := make(chan error, 1)

	go func() {
		s.logger.Info("bridge listening", slog.String("addr", addr))
		serveDone <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveDone:
		cancel()
		<-renderDone

		return fmt.Errorf("bridge: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	<-renderDone

	return err
}

func (s *Server) meter(block []float64) {
	peak := 0.0
	for _, x := range block {
		peak = math.Max(peak, math.Abs(x))
	}

	s.peak.Set(peak)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", slog.Any("error", err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessage)

	logger := s.logger.With(slog.String("remote", r.RemoteAddr))
	logger.Info("editor connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("editor read", slog.Any("error", err))
			}

			logger.Info("editor disconnected")

			return
		}

		var req Request

		reply := Reply{Type: TypeError}

		err = json.Unmarshal(data, &req)
		if err != nil {
			reply.Error = fmt.Sprintf("bad request: %v", err)
		} else {
			reply = s.Handle(logging.WithLogger(r.Context(), logger), req)
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

		err = conn.WriteJSON(reply)
		if err != nil {
			logger.Debug("editor write", slog.Any("error", err))
			return
		}
	}
}

// Handle applies one request to the studio.
func (s *Server) Handle(ctx context.Context, req Request) Reply {
	reply, err := s.dispatch(req)
	reply.Seq = req.Seq

	result := "ok"
	if err != nil {
		result = "error"
		reply = Reply{Type: TypeError, Seq: req.Seq, Error: err.Error()}

		logging.FromContext(ctx).Warn("editor request failed",
			slog.String("type", req.Type), slog.Any("error", err))
	}

	s.requests.WithLabelValues(req.Type, result).Inc()

	return reply
}

var errMissingField = errors.New("missing field")

func (s *Server) dispatch(req Request) (Reply, error) {
	ack := Reply{Type: TypeAck}

	switch req.Type {
	case TypeLoad:
		if req.Doc == nil {
			return Reply{}, fmt.Errorf("%w: doc", errMissingField)
		}

		err := s.studio.Load(req.Doc)
		if err != nil {
			return Reply{}, err
		}

	case TypeAddNode:
		if req.Node == nil {
			return Reply{}, fmt.Errorf("%w: node", errMissingField)
		}

		id, err := s.studio.AddNode(*req.Node)
		if err != nil {
			return Reply{}, err
		}

		ack.NodeID = id

	case TypeRemoveNode:
		err := s.studio.RemoveNode(req.NodeID)
		if err != nil {
			return Reply{}, err
		}

	case TypeMoveNode:
		if req.Position == nil {
			return Reply{}, fmt.Errorf("%w: position", errMissingField)
		}

		err := s.studio.MoveNode(req.NodeID, *req.Position)
		if err != nil {
			return Reply{}, err
		}

		return ack, nil

	case TypeSetEdges:
		s.studio.SetEdges(req.Edges)

	case TypeSetParam:
		if req.Name == "" {
			return Reply{}, fmt.Errorf("%w: name", errMissingField)
		}

		err := s.studio.SetParam(req.NodeID, req.Name, req.Value)
		if err != nil {
			return Reply{}, err
		}

		return ack, nil

	case TypeSnapshot:
		return Reply{Type: TypeSnapshot, Doc: s.studio.Snapshot()}, nil

	case TypeSpectrum:
		bins, err := s.studio.Spectrum(req.NodeID)
		if err != nil {
			return Reply{}, err
		}

		return Reply{Type: TypeSpectrum, NodeID: req.NodeID, Bins: bins}, nil

	case TypeSockets:
		if req.Role == "" {
			return Reply{Type: TypeSockets, Sockets: s.studio.Sockets()}, nil
		}

		ids, err := s.studio.SocketsWithRole(req.Role)
		if err != nil {
			return Reply{}, err
		}

		return Reply{Type: TypeSockets, Sockets: ids}, nil

	default:
		return Reply{}, fmt.Errorf("unknown request type %q", req.Type)
	}

	rep := s.studio.Report()
	ack.Report = &ReportSummary{
		Connected:    rep.Connected,
		Disconnected: rep.Disconnected,
		Skipped:      rep.Skipped,
		Rejected:     rep.Rejected,
		Failures:     len(rep.Failures),
	}

	return ack, nil
}
