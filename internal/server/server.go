// Package server exposes the annotation workflow over HTTP. A GET on the root
// route runs one batch and renders the resulting public image URLs as an HTML
// gallery.
package server

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"textboxer/internal/logger"
)

//go:embed templates/*.html
var templatesFS embed.FS

// BatchRunner is the part of the workflow the HTTP layer depends on.
type BatchRunner interface {
	Run(ctx context.Context) ([]string, error)
}

// Server wires the annotation runner into a gin engine.
type Server struct {
	engine *gin.Engine
	runner BatchRunner
	log    zerolog.Logger
}

// New builds the router with logging, recovery and CORS middleware.
func New(runner BatchRunner, mode string, allowedOrigins []string) *Server {
	gin.SetMode(mode)

	s := &Server{
		engine: gin.New(),
		runner: runner,
		log:    logger.WithComponent("server"),
	}

	s.engine.Use(RequestID())
	s.engine.Use(Logger())
	s.engine.Use(Recovery())

	corsConfig := cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(string) bool { return true }
			break
		}
	}
	s.engine.Use(cors.New(corsConfig))

	s.engine.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	s.engine.GET("/", s.handleAnnotate)
	s.engine.GET("/healthz", s.handleHealthz)

	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// handleAnnotate runs one annotation batch and renders the gallery page.
func (s *Server) handleAnnotate(c *gin.Context) {
	urls, err := s.runner.Run(c.Request.Context())
	if err != nil {
		s.log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Msg("Annotation batch failed")
		c.String(http.StatusInternalServerError, "annotation batch failed: %v", err)
		return
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"ImageURLs": urls,
	})
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
