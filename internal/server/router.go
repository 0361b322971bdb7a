package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/servermgr/internal/command"
	"github.com/loykin/servermgr/internal/supervisor"
)

// MaxBodyBytes bounds the command body accepted by /send.
const MaxBodyBytes = 64 << 10

// Submitter accepts commands for the child process.
type Submitter interface {
	TrySubmit(src command.Source, text string) error
}

// StatusProvider reports the supervisor state.
type StatusProvider interface {
	Status() supervisor.Status
}

// Router provides the management HTTP handlers.
// Endpoints:
//
//	POST {basePath}/send     body: one command line for the server
//	GET  {basePath}/status   supervisor state as JSON
//	GET  {basePath}/metrics  prometheus metrics
//
// Any other method on /send answers 405.
type Router struct {
	queue    Submitter
	status   StatusProvider
	metrics  http.Handler
	basePath string
}

// NewRouter constructs a Router; status and metricsHandler may be nil.
func NewRouter(queue Submitter, status StatusProvider, metricsHandler http.Handler, basePath string) *Router {
	return &Router{queue: queue, status: status, metrics: metricsHandler, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.Any("/send", r.handleSend)
	group.Any("/send/", r.handleSend)
	if r.status != nil {
		group.GET("/status", r.handleStatus)
	}
	if r.metrics != nil {
		group.GET("/metrics", gin.WrapH(r.metrics))
	}
	return g
}

// NewServer binds localhost:port and serves the router until Shutdown.
func NewServer(port int, r *Router) (*http.Server, error) {
	addr := net.JoinHostPort("localhost", strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.Serve(ln) }()
	return server, nil
}

// Shutdown stops srv, waiting at most until ctx ends.
func Shutdown(ctx context.Context, srv *http.Server) error {
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) handleSend(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.Header("Allow", http.MethodPost)
		c.Status(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))
	if err != nil {
		writeJSON(c, http.StatusRequestEntityTooLarge, errorResp{Error: err.Error()})
		return
	}
	text := strings.TrimRight(string(body), "\r\n")
	if err := r.queue.TrySubmit(command.SourceHTTP, text); err != nil {
		writeJSON(c, http.StatusServiceUnavailable, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStatus(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.status.Status())
}
