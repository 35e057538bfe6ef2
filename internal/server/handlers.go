package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marvinh/rag-assistant/internal/core"
	"github.com/marvinh/rag-assistant/internal/logger"
	"github.com/marvinh/rag-assistant/internal/session"
)

type askRequest struct {
	Question   string   `json:"question"`
	UserID     string   `json:"user_id"`
	Backend    string   `json:"backend"`
	Categories []string `json:"categories"`
}

type processFilesRequest struct {
	UserID  string   `json:"user_id"`
	Backend string   `json:"backend"`
	Files   []string `json:"files"`
}

type updateCategoryRequest struct {
	UserID   string `json:"user_id"`
	Backend  string `json:"backend"`
	Filename string `json:"filename"`
	Category string `json:"category"`
}

type saveSessionRequest struct {
	SessionID string            `json:"session_id"`
	Title     string            `json:"title"`
	Messages  []session.Message `json:"messages"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (s *Server) handleAsk(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}

	answer, err := s.svc.Ask(c.Request().Context(), req.Backend, req.UserID, req.Question, req.Categories)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, answer)
}

func (s *Server) handleUploadFiles(c echo.Context) error {
	userID := c.FormValue("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form")
	}
	files := form.File["files"]
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no files provided")
	}

	uploaded := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return serviceError(err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return serviceError(err)
		}

		if err := s.svc.UploadFile(c.Request().Context(), userID, fh.Filename, data); err != nil {
			return serviceError(err)
		}
		uploaded = append(uploaded, fh.Filename)
	}

	logger.Info("Uploaded %d files for %s", len(uploaded), userID)
	return c.JSON(http.StatusOK, echo.Map{"uploaded": uploaded})
}

func (s *Server) handleProcessFiles(c echo.Context) error {
	var req processFilesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	summary, err := s.svc.Ingest(c.Request().Context(), req.Backend, req.UserID, req.Files)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) handleProgress(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"progress": s.svc.Progress(c.Param("user_id"))})
}

func (s *Server) handleGetUserFiles(c echo.Context) error {
	files, err := s.svc.ListFiles(c.Request().Context(), c.QueryParam("backend"), c.Param("user_id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"files": files})
}

func (s *Server) handleDeleteUserFile(c echo.Context) error {
	err := s.svc.DeleteFile(c.Request().Context(), c.QueryParam("backend"), c.Param("user_id"), c.Param("filename"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": c.Param("filename")})
}

func (s *Server) handleUpdateCategory(c echo.Context) error {
	var req updateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Filename == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "filename is required")
	}

	updated, err := s.svc.SetCategory(c.Request().Context(), req.Backend, req.UserID, req.Filename, req.Category)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": updated})
}

func (s *Server) handleGetCategories(c echo.Context) error {
	categories, err := s.svc.Categories(c.Request().Context(), c.QueryParam("backend"), c.Param("user_id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": categories})
}

func (s *Server) handleCleanupCategories(c echo.Context) error {
	cleared, err := s.svc.ClearCategories(c.Request().Context(), c.QueryParam("backend"), c.Param("user_id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"cleared": cleared})
}

func (s *Server) handleCreateSession(c echo.Context) error {
	var req struct {
		UserID string `json:"user_id"`
		Title  string `json:"title"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	sess, err := s.sessions.Create(c.Request().Context(), req.UserID, req.Title)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (s *Server) handleGetSessions(c echo.Context) error {
	sessions, err := s.sessions.ListByUser(c.Request().Context(), c.Param("user_id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": sessions})
}

func (s *Server) handleGetSession(c echo.Context) error {
	sess, err := s.sessions.Get(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (s *Server) handleSaveSession(c echo.Context) error {
	var req saveSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id is required")
	}

	if err := s.sessions.SaveMessages(c.Request().Context(), req.SessionID, req.Title, req.Messages); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"saved": req.SessionID})
}

func (s *Server) handleDeleteSession(c echo.Context) error {
	if err := s.sessions.Delete(c.Request().Context(), c.Param("session_id")); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": c.Param("session_id")})
}

// serviceError maps application errors onto HTTP status codes.
func serviceError(err error) error {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrUnknownBackend):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	logger.Error("Request failed: %v", err)
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
