// Package server exposes the refinement page and its JSON API over HTTP.
package server

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/thywilljoshua/scholar-refine/internal/ai"
	"github.com/thywilljoshua/scholar-refine/internal/render"
	"github.com/thywilljoshua/scholar-refine/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

const defaultMaxUpload = 50 << 20

type Options struct {
	Store          *session.Store
	Refiner        ai.Refiner
	MaxUploadBytes int64
	Logger         *slog.Logger
	// Secure marks the session cookie HTTPS-only.
	Secure bool
}

type Server struct {
	store     *session.Store
	refiner   ai.Refiner
	maxUpload int64
	secure    bool
	log       *slog.Logger
	engine    *gin.Engine

	jobs sync.WaitGroup
}

func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("server: session store is required")
	}
	if opts.Refiner == nil {
		return nil, errors.New("server: refiner is required")
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"emptyMessage": func() string { return render.EmptyMessage },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:     opts.Store,
		refiner:   opts.Refiner,
		maxUpload: opts.MaxUploadBytes,
		secure:    opts.Secure,
		log:       opts.Logger,
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))
	r.SetHTMLTemplate(tmpl)
	r.MaxMultipartMemory = 8 << 20

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	app := r.Group("/", s.sessionMiddleware())
	app.GET("/", s.handleIndex)
	app.GET("/partials/files", s.handleFilesPartial)
	app.GET("/partials/result", s.handleResultPartial)
	app.GET("/ws", s.handleWebSocket)

	api := app.Group("/api")
	api.POST("/files", s.handleUpload)
	api.DELETE("/files/:index", s.handleRemoveFile)
	api.POST("/refine", s.handleRefine)
	api.GET("/session", s.handleSession)
	api.POST("/session/reset", s.handleReset)

	s.engine = r
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.engine }

// Wait blocks until every background refinement has returned.
func (s *Server) Wait() { s.jobs.Wait() }
