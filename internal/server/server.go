// Package server exposes the HTTP API: question answering, document
// uploads and ingestion, category management and chat sessions.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/marvinh/rag-assistant/internal/logger"
	"github.com/marvinh/rag-assistant/internal/rag"
	"github.com/marvinh/rag-assistant/internal/session"
)

// Server is the HTTP front of the application.
type Server struct {
	echo     *echo.Echo
	svc      *rag.Service
	sessions *session.Store
	addr     string
}

// New builds the server and registers all routes.
func New(addr string, allowedOrigins []string, svc *rag.Service, sessions *session.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	}))
	e.Use(requestLogger())

	s := &Server{
		echo:     e,
		svc:      svc,
		sessions: sessions,
		addr:     addr,
	}

	e.GET("/health", s.handleHealth)

	e.POST("/ask", s.handleAsk)
	e.POST("/upload_files", s.handleUploadFiles)
	e.POST("/process_files", s.handleProcessFiles)
	e.GET("/progress/:user_id", s.handleProgress)
	e.GET("/get_user_files/:user_id", s.handleGetUserFiles)
	e.DELETE("/delete_user_file/:user_id/:filename", s.handleDeleteUserFile)

	e.POST("/update_category", s.handleUpdateCategory)
	e.GET("/get_category/:user_id", s.handleGetCategories)
	e.DELETE("/cleanup_all_categories/:user_id", s.handleCleanupCategories)

	e.POST("/create_session", s.handleCreateSession)
	e.GET("/get_sessions/:user_id", s.handleGetSessions)
	e.GET("/get_session/:session_id", s.handleGetSession)
	e.POST("/save_session", s.handleSaveSession)
	e.DELETE("/delete_session/:session_id", s.handleDeleteSession)

	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	logger.Info("HTTP server listening on %s", s.addr)
	err := s.echo.Start(s.addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// requestLogger logs one line per request through the application
// logger.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.Debug("%s %s -> %d (%s)",
				c.Request().Method, c.Request().URL.Path,
				c.Response().Status, time.Since(start).Round(time.Millisecond))
			return nil
		}
	}
}
