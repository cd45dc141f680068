// Package api serves the dashboard: live status, cycle history, chart
// data, and the manual-override command endpoint.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/IsacDav66/Criptobot/internal/command"
	"github.com/IsacDav66/Criptobot/internal/events"
	"github.com/IsacDav66/Criptobot/internal/monitor"
	"github.com/IsacDav66/Criptobot/internal/status"
	"github.com/IsacDav66/Criptobot/pkg/config"
	"github.com/IsacDav66/Criptobot/pkg/db"
	binancemkt "github.com/IsacDav66/Criptobot/pkg/market/binance"
)

// Server wires HTTP endpoints around the controller's outputs.
type Server struct {
	Router   *gin.Engine
	Bus      *events.Bus
	DB       *db.Database
	Statuses *status.Store
	Commands *command.Slot
	Metrics  *monitor.Metrics
	Markets  *binancemkt.Client
	Cfg      *config.Config
}

func NewServer(
	cfg *config.Config,
	bus *events.Bus,
	database *db.Database,
	statuses *status.Store,
	commands *command.Slot,
	metrics *monitor.Metrics,
	markets *binancemkt.Client,
) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Logger())
	r.Use(RateLimit())
	r.Use(CORS())

	s := &Server{
		Router:   r,
		Bus:      bus,
		DB:       database,
		Statuses: statuses,
		Commands: commands,
		Metrics:  metrics,
		Markets:  markets,
		Cfg:      cfg,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	// REST routes get a deadline; /ws stays open indefinitely.
	api := s.Router.Group("/api", Deadline(30*time.Second))
	{
		api.GET("/status", s.getStatus)
		api.GET("/history", s.getHistory)
		api.GET("/chart", s.getChart)
		api.GET("/metrics", s.getMetrics)

		api.POST("/auth/login", s.login)

		protected := api.Group("")
		protected.Use(AuthMiddleware(s.Cfg.JWTSecret))
		{
			protected.GET("/command", s.getPendingCommand)
			protected.POST("/command", s.postCommand)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
