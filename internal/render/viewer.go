package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/smazurov/zmqls/internal/codec"
)

const (
	// DefaultQuality is the JPEG quality of frames pushed to browsers.
	DefaultQuality = 90

	clientBuffer   = 4
	keyBuffer      = 16
	shutdownWindow = 5 * time.Second
)

// ViewerOptions configures a Viewer.
type ViewerOptions struct {
	// Addr is the listen address, e.g. ":8080". ":0" picks a free port.
	Addr    string
	Quality int
	Logger  *slog.Logger
	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
}

// Viewer is a Renderer that pushes frames to browsers over a websocket and
// reads key presses back from them.
type Viewer struct {
	opts   ViewerOptions
	logger *slog.Logger
	engine *gin.Engine
	keys   chan int

	mu      sync.RWMutex
	clients map[*client]struct{}
	title   string
	latest  []byte
	nextID  int

	srv      *http.Server
	listener net.Listener
	served   chan error
	stopOnce sync.Once
	stopErr  error
}

func NewViewer(opts ViewerOptions) *Viewer {
	if opts.Quality <= 0 {
		opts.Quality = DefaultQuality
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	v := &Viewer{
		opts:    opts,
		logger:  opts.Logger,
		engine:  gin.New(),
		keys:    make(chan int, keyBuffer),
		clients: make(map[*client]struct{}),
	}
	v.routes()
	return v
}

func (v *Viewer) routes() {
	v.engine.Use(gin.Recovery(), v.requestLogger())

	page := gin.WrapH(pageHandler())
	v.engine.GET("/", page)
	v.engine.GET("/index.html", page)
	v.engine.GET("/ws", v.handleWebSocket)
	v.engine.GET("/snapshot.jpg", v.handleSnapshot)
	if v.opts.Metrics != nil {
		v.engine.GET("/metrics", gin.WrapH(v.opts.Metrics))
	}
}

func (v *Viewer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		v.logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// Handler exposes the router, mainly for httptest.
func (v *Viewer) Handler() http.Handler { return v.engine }

// Start listens on Addr and serves until Close or ctx ends.
func (v *Viewer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", v.opts.Addr)
	if err != nil {
		return fmt.Errorf("viewer listen %s: %w", v.opts.Addr, err)
	}
	v.listener = ln
	v.srv = &http.Server{
		Handler:           v.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	v.served = make(chan error, 1)
	go func() {
		err := v.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		v.served <- err
	}()
	context.AfterFunc(ctx, func() { _ = v.shutdown() })

	v.logger.Info("Viewer listening", "url", "http://"+ln.Addr().String()+"/")
	return nil
}

// Addr is the bound address once Start has returned.
func (v *Viewer) Addr() string {
	if v.listener == nil {
		return v.opts.Addr
	}
	return v.listener.Addr().String()
}

// Show encodes img once and queues it to every client. Slow clients miss
// frames instead of delaying the stream.
func (v *Viewer) Show(name string, img *image.RGBA) error {
	data, err := codec.Encode(img, v.opts.Quality)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.latest = data
	retitle := name != v.title
	v.title = name
	clients := make([]*client, 0, len(v.clients))
	for c := range v.clients {
		clients = append(clients, c)
	}
	v.mu.Unlock()

	for _, c := range clients {
		if retitle {
			c.queue(message{kind: websocket.TextMessage, data: []byte(name)})
		}
		c.queue(message{kind: websocket.BinaryMessage, data: data})
	}
	return nil
}

// PollKey returns the oldest unread key sent by any browser.
func (v *Viewer) PollKey(ctx context.Context, wait time.Duration) (int, bool) {
	select {
	case k := <-v.keys:
		return k, true
	default:
	}
	if wait <= 0 {
		return 0, false
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case k := <-v.keys:
		return k, true
	case <-ctx.Done():
	case <-t.C:
	}
	return 0, false
}

// Close disconnects every client and stops the HTTP server.
func (v *Viewer) Close() error {
	v.mu.Lock()
	for c := range v.clients {
		c.close()
		delete(v.clients, c)
	}
	v.mu.Unlock()
	return v.shutdown()
}

func (v *Viewer) shutdown() error {
	if v.srv == nil {
		return nil
	}
	v.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownWindow)
		defer cancel()
		if err := v.srv.Shutdown(ctx); err != nil {
			v.stopErr = err
			return
		}
		v.stopErr = <-v.served
	})
	return v.stopErr
}

// Clients reports the number of connected browsers.
func (v *Viewer) Clients() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.clients)
}

func (v *Viewer) handleSnapshot(c *gin.Context) {
	v.mu.RLock()
	data := v.latest
	v.mu.RUnlock()

	if data == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no frame yet"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/jpeg", data)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func (v *Viewer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		v.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	v.mu.Lock()
	v.nextID++
	cl := newClient("client_"+strconv.Itoa(v.nextID), conn, v)
	v.clients[cl] = struct{}{}
	title := v.title
	v.mu.Unlock()

	if title != "" {
		cl.queue(message{kind: websocket.TextMessage, data: []byte(title)})
	}
	v.logger.Info("Viewer client connected", "client", cl.id, "remote", c.Request.RemoteAddr)

	go cl.writePump()
	go cl.readPump()
}

func (v *Viewer) removeClient(c *client) {
	v.mu.Lock()
	_, ok := v.clients[c]
	delete(v.clients, c)
	v.mu.Unlock()
	if ok {
		c.close()
		v.logger.Info("Viewer client disconnected", "client", c.id)
	}
}

// pushKey never blocks the reading client; keys beyond the buffer are lost.
func (v *Viewer) pushKey(key int) {
	select {
	case v.keys <- key:
	default:
		v.logger.Debug("Key buffer full, dropping key", "key", key)
	}
}
