package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/suspectuso/nft-staking/internal/metrics"
	"github.com/suspectuso/nft-staking/internal/staking"
)

// Ledger is the set of staking operations exposed over HTTP
type Ledger interface {
	ReceiveNft(ctx context.Context, caller staking.Caller, msg staking.ReceiveMsg) (*staking.Response, error)
	Execute(ctx context.Context, caller staking.Caller, data []byte) (*staking.Response, error)
	QueryConfig(ctx context.Context) (*staking.ConfigResponse, error)
	QueryReward(ctx context.Context, staker string) (*staking.RewardResponse, error)
}

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// ResponseHook runs after a mutating request succeeded
type ResponseHook func(ctx context.Context, caller staking.Caller, resp *staking.Response)

// Server exposes the ledger to the custody gateway and to clients
type Server struct {
	ledger         Ledger
	db             Pinger
	metricsEnabled bool
	log            *slog.Logger

	mu    sync.Mutex
	hooks []ResponseHook

	server *http.Server
}

// NewServer creates a new server
func NewServer(ledger Ledger, db Pinger, metricsEnabled bool, log *slog.Logger) *Server {
	return &Server{
		ledger:         ledger,
		db:             db,
		metricsEnabled: metricsEnabled,
		log:            log,
	}
}

// OnResponse registers a hook run asynchronously after every successful
// mutating request
func (s *Server) OnResponse(h ResponseHook) {
	s.mu.Lock()
	s.hooks = append(s.hooks, h)
	s.mu.Unlock()
}

// Router returns the HTTP routes of the server
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.Path("/webhook/receive").Methods(http.MethodPost).HandlerFunc(s.wrap("receive", s.handleReceive))
	router.Path("/execute").Methods(http.MethodPost).HandlerFunc(s.wrap("execute", s.handleExecute))
	router.Path("/config").Methods(http.MethodGet).HandlerFunc(s.wrap("config", s.handleConfig))
	router.Path("/reward/{staker}").Methods(http.MethodGet).HandlerFunc(s.wrap("reward", s.handleReward))
	router.Path("/health").Methods(http.MethodGet).HandlerFunc(s.handleHealth)
	if s.metricsEnabled {
		router.Path("/metrics").Methods(http.MethodGet).Handler(metrics.Handler())
	}
	return router
}

// Start starts the server and stops it when ctx is done
func (s *Server) Start(ctx context.Context, port int) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.log.Info("starting http server", "port", port, "metrics", s.metricsEnabled)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) wrap(route string, f handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		if err := f(rec, r); err != nil {
			status := writeError(rec, err)
			if status >= http.StatusInternalServerError {
				s.log.Error("request failed", "route", route, "error", err)
			} else {
				s.log.Debug("request rejected", "route", route, "status", status, "error", err)
			}
		}
		metrics.ObserveRequest(route, rec.status, time.Since(start).Seconds())
	}
}

func callerFrom(r *http.Request, header string) (staking.Caller, error) {
	principal := r.Header.Get(header)
	if principal == "" {
		return staking.Caller{}, badRequest("missing %s header", header)
	}
	return staking.Caller{
		Principal: principal,
		RequestID: r.Header.Get("Idempotency-Key"),
	}, nil
}

func (s *Server) handleReceive(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerFrom(r, "X-Collection")
	if err != nil {
		return err
	}

	var msg staking.ReceiveMsg
	if err := parseJSON(r.Body, &msg); err != nil {
		return badRequest("receive payload: %v", err)
	}

	resp, err := s.ledger.ReceiveNft(r.Context(), caller, msg)
	metrics.ObserveAction(string(staking.ActionReceiveNft), err)
	if err != nil {
		return err
	}

	s.fire(caller, resp)
	return writeJSON(w, resp)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerFrom(r, "X-Sender")
	if err != nil {
		return err
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return badRequest("read body: %v", err)
	}

	resp, err := s.ledger.Execute(r.Context(), caller, data)
	metrics.ObserveAction(actionOf(data), err)
	if err != nil {
		return err
	}

	s.fire(caller, resp)
	return writeJSON(w, resp)
}

func actionOf(data []byte) string {
	env, err := staking.DecodeEnvelope(data)
	if err != nil {
		return "invalid"
	}
	switch env.Action {
	case staking.ActionReceiveNft, staking.ActionUnstake, staking.ActionClaimReward, staking.ActionUpdateConfig:
		return string(env.Action)
	}
	return "unknown"
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) error {
	cfg, err := s.ledger.QueryConfig(r.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, cfg)
}

func (s *Server) handleReward(w http.ResponseWriter, r *http.Request) error {
	reward, err := s.ledger.QueryReward(r.Context(), mux.Vars(r)["staker"])
	if err != nil {
		return err
	}
	return writeJSON(w, reward)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.log.Warn("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("UNAVAILABLE"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) fire(caller staking.Caller, resp *staking.Response) {
	s.mu.Lock()
	hooks := append([]ResponseHook(nil), s.hooks...)
	s.mu.Unlock()

	if len(hooks) == 0 {
		return
	}
	// Process asynchronously
	go func() {
		for _, h := range hooks {
			h(context.Background(), caller, resp)
		}
	}()
}
