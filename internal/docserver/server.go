// Package docserver serves a StateStorage over the remote document store
// convention: GET, PUT and DELETE on /<name>.json, with a JSON null body for
// records that do not exist.
//
// It doubles as a devtools endpoint: inspectors connecting to /devtools
// over websocket have their actions kept in a bounded buffer readable at
// /devtools/actions.
package docserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/roach88/kanstore/internal/middleware"
	"github.com/roach88/kanstore/internal/storage"
)

const (
	recordSuffix   = ".json"
	maxRecordBytes = 1 << 20
)

var nullBody = []byte("null")

// Server is the document store HTTP server.
type Server struct {
	echo     *echo.Echo
	storage  storage.StateStorage
	secret   []byte
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu         sync.Mutex
	actions    []middleware.Action
	maxActions int
}

// Option configures a Server.
type Option func(*Server)

// WithAuthSecret requires an HS256 token signed with secret in the auth
// query parameter of every record request.
func WithAuthSecret(secret []byte) Option {
	return func(s *Server) { s.secret = secret }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithActionBuffer bounds how many devtools actions are kept. Default 1000;
// negative values keep none.
func WithActionBuffer(n int) Option {
	return func(s *Server) { s.maxActions = n }
}

// New creates a server over st.
func New(st storage.StateStorage, opts ...Option) *Server {
	s := &Server{
		storage:    st,
		logger:     slog.Default(),
		maxActions: 1000,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.maxActions = max(s.maxActions, 0)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/devtools", s.devtools)
	e.GET("/devtools/actions", s.listActions)
	e.GET("/:record", s.getRecord)
	e.PUT("/:record", s.putRecord)
	e.DELETE("/:record", s.deleteRecord)
	s.echo = e
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("document server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Actions returns the buffered devtools actions, oldest first.
func (s *Server) Actions() []middleware.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]middleware.Action, len(s.actions))
	copy(out, s.actions)
	return out
}

func (s *Server) getRecord(c echo.Context) error {
	name, err := s.authorize(c)
	if err != nil {
		return err
	}

	raw, ok, err := s.storage.GetItem(c.Request().Context(), name)
	if err != nil {
		return s.storageError(c, "get", name, err)
	}
	if !ok {
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, nullBody)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, []byte(raw))
}

func (s *Server) putRecord(c echo.Context) error {
	name, err := s.authorize(c)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxRecordBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read body")
	}
	if len(body) > maxRecordBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "record too large")
	}
	if !json.Valid(body) {
		return echo.NewHTTPError(http.StatusBadRequest, "body is not valid JSON")
	}

	if err := s.storage.SetItem(c.Request().Context(), name, string(body)); err != nil {
		return s.storageError(c, "set", name, err)
	}
	s.logger.Debug("record stored", "record", name, "bytes", len(body))
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
}

func (s *Server) deleteRecord(c echo.Context) error {
	name, err := s.authorize(c)
	if err != nil {
		return err
	}

	if err := s.storage.RemoveItem(c.Request().Context(), name); err != nil {
		return s.storageError(c, "remove", name, err)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, nullBody)
}

// authorize checks the auth token and returns the record name.
func (s *Server) authorize(c echo.Context) (string, error) {
	name, ok := strings.CutSuffix(c.Param("record"), recordSuffix)
	if !ok || name == "" {
		return "", echo.NewHTTPError(http.StatusNotFound, "records are addressed as /<name>.json")
	}

	if len(s.secret) > 0 {
		if _, err := storage.VerifyToken(c.QueryParam("auth"), s.secret); err != nil {
			s.logger.Debug("rejected token", "record", name, "error", err)
			return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid auth token")
		}
	}
	return name, nil
}

func (s *Server) storageError(c echo.Context, op, name string, err error) error {
	if errors.Is(err, storage.ErrNotImplemented) {
		return echo.NewHTTPError(http.StatusNotImplemented, op+" is not supported by this backend")
	}
	s.logger.Error("storage failed", "op", op, "record", name, "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "storage failure")
}

func (s *Server) devtools(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil
	}
	defer conn.Close()

	for {
		var a middleware.Action
		if err := conn.ReadJSON(&a); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("inspector disconnected", "error", err)
			}
			return nil
		}
		s.logger.Debug("devtools action", "store", a.Store, "type", a.Type, "seq", a.Seq)
		s.record(a)
	}
}

func (s *Server) record(a middleware.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, a)
	if over := len(s.actions) - s.maxActions; over > 0 {
		s.actions = append(s.actions[:0], s.actions[over:]...)
	}
}

func (s *Server) listActions(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Actions())
}
