// Package server exposes a planning session over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"car-planner/internal/planner"
	"car-planner/internal/se2"
	"car-planner/internal/search"
)

// DefaultEpsilon is the waypoint simplification tolerance in meters.
const DefaultEpsilon = 0.05

// RouteRequest asks for a path between two poses.
type RouteRequest struct {
	Start *se2.Pose `json:"start" binding:"required"`
	Goal  *se2.Pose `json:"goal" binding:"required"`
	// Epsilon overrides the waypoint simplification tolerance; 0 disables it.
	Epsilon *float64 `json:"epsilon,omitempty" binding:"omitempty,gte=0"`
}

// RouteResponse is the result of a route or replan.
type RouteResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message,omitempty"`
	Cost      float64    `json:"cost,omitempty"`
	Length    float64    `json:"lengthMeters,omitempty"`
	Cells     []se2.Pose `json:"cells,omitempty"`
	Waypoints []se2.Pose `json:"waypoints,omitempty"`
}

// CellsRequest edits occupancy cells and optionally replans.
type CellsRequest struct {
	Cells  []planner.CellEdit `json:"cells" binding:"required,min=1"`
	Replan bool               `json:"replan"`
}

// CellsResponse reports an occupancy edit.
type CellsResponse struct {
	Changed int            `json:"changed"`
	Route   *RouteResponse `json:"route,omitempty"`
}

// Server serializes HTTP access to one planning session.
type Server struct {
	mu      sync.Mutex
	session *planner.Session
	log     *slog.Logger
	epsilon float64
	router  *gin.Engine
}

// New builds the router for session.
func New(session *planner.Session, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{session: session, log: log, epsilon: DefaultEpsilon}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware("carplan"), s.logRequests, cors)
	r.GET("/health", s.health)
	r.POST("/route", s.route)
	r.POST("/cells", s.cells)
	r.GET("/primitives", s.primitives)
	r.GET("/graph/lines", s.graphLines)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router = r
	return s
}

// Locker returns the lock guarding the session, for other writers such as a
// map watcher.
func (s *Server) Locker() sync.Locker { return &s.mu }

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("server listening", "addr", addr, "session", s.session.ID())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// cors allows browser frontends on any origin.
func cors(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusOK)
		return
	}
	c.Next()
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Debug("request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"elapsed", time.Since(start),
	)
}

func (s *Server) health(c *gin.Context) {
	s.mu.Lock()
	sr := s.session.Search()
	body := gin.H{
		"status":   "ready",
		"session":  s.session.ID(),
		"vertices": sr.Vertices(),
		"edges":    sr.Edges(),
		"hasPath":  !s.session.Path().Empty(),
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, body)
}

func (s *Server) route(c *gin.Context) {
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	eps := s.epsilon
	if req.Epsilon != nil {
		eps = *req.Epsilon
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Route(*req.Start, *req.Goal); err != nil {
		s.log.Warn("rejected route", "start", *req.Start, "goal", *req.Goal, "error", err)
		c.JSON(http.StatusUnprocessableEntity, RouteResponse{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.plan(c.Request.Context(), eps))
}

// plan runs the search and converts the outcome. The caller holds s.mu.
func (s *Server) plan(ctx context.Context, eps float64) RouteResponse {
	path, err := s.session.Plan(ctx)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, search.ErrUnreachable) {
			msg = "no path between start and goal"
		}
		return RouteResponse{Message: msg}
	}
	poses := path.Poses()
	return RouteResponse{
		Success:   true,
		Cost:      path.Cost,
		Length:    pathLength(poses),
		Cells:     path.Cells,
		Waypoints: Simplify(poses, eps),
	}
}

func (s *Server) cells(c *gin.Context) {
	var req CellsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.session.SetOccupied(req.Cells)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp := CellsResponse{Changed: n}
	if req.Replan {
		r := s.plan(c.Request.Context(), s.epsilon)
		resp.Route = &r
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) primitives(c *gin.Context) {
	var p se2.Pose
	for _, q := range []struct {
		name string
		dst  *float64
	}{{"x", &p.X}, {"y", &p.Y}, {"theta", &p.Theta}} {
		v, err := strconv.ParseFloat(c.DefaultQuery(q.name, "0"), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + q.name})
			return
		}
		*q.dst = v
	}

	s.mu.Lock()
	prims, err := s.session.Primitives(p)
	s.mu.Unlock()
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pose": p, "primitives": prims})
}

func (s *Server) graphLines(c *gin.Context) {
	s.mu.Lock()
	segs := s.session.Search().Segments()
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{
		"lines":    segs,
		"numEdges": len(segs),
	})
}
