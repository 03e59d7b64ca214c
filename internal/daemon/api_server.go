package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"bindery/internal/api"
	"bindery/internal/book"
	"bindery/internal/config"
	"bindery/internal/logging"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", srv.handleHealth)
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("/api/plan", authMiddleware(token, srv.handlePlan))
	mux.HandleFunc("/api/sync", authMiddleware(token, srv.handleSync))
	mux.HandleFunc("/api/items", authMiddleware(token, srv.handleItems))
	mux.HandleFunc("/api/items/", authMiddleware(token, srv.handleItem))
	mux.HandleFunc("/api/settings", authMiddleware(token, srv.handleSettings))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// addr returns the bound listen address, useful when the config asked for
// port 0.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		BookDBPath:   status.BookDBPath,
		LockFilePath: status.LockFilePath,
		Workflow:     status.Workflow,
	})
}

func (s *apiServer) handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	summary := s.daemon.workflow.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.PlanResponse{
		Planned: summary.Planned,
		Current: summary.PlanCurrent,
		Chunks:  summary.Chunks,
	})
}

func (s *apiServer) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	records, err := s.daemon.store.SyncRecords(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]api.SyncRecordView, 0, len(records))
	for _, record := range records {
		views = append(views, api.SyncRecordView{
			PartNumber:            record.PartNumber,
			Status:                string(record.Status),
			LastSyncedFingerprint: record.LastSyncedFingerprint,
			RemoteObjectID:        record.RemoteObjectID,
			LastError:             record.LastError,
		})
	}
	s.writeJSON(w, http.StatusOK, api.SyncResponse{Records: views})
}

func (s *apiServer) handleItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.daemon.Items(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		views := make([]api.ItemView, 0, len(items))
		for _, item := range items {
			views = append(views, api.FromItem(item))
		}
		s.writeJSON(w, http.StatusOK, api.ItemListResponse{Items: views})
	case http.MethodPost:
		var req api.AddItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid add request")
			return
		}
		item, err := s.daemon.AddItemFromPath(r.Context(), req.SourcePath, req.Title)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusCreated, api.FromItem(*item))
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/items/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "item not found")
		return
	}

	switch {
	case r.Method == http.MethodDelete && action == "":
		removed, err := s.daemon.RemoveItem(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !removed {
			s.writeError(w, http.StatusNotFound, "item not found")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"removed": id})
	case r.Method == http.MethodPost && action == "move":
		var req api.MoveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid move request")
			return
		}
		if err := s.daemon.MoveItem(r.Context(), id, req.Position); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"moved": id})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.daemon.store.Settings(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.SettingsPayload{
			MaxChunkSizeBytes:   settings.MaxChunkSizeBytes,
			CompressionLevel:    string(settings.CompressionLevel),
			SafetyMarginPercent: settings.SafetyMarginPercent,
		})
	case http.MethodPut:
		var payload api.SettingsPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid settings payload")
			return
		}
		err := s.daemon.UpdateSettings(r.Context(), book.Settings{
			MaxChunkSizeBytes:   payload.MaxChunkSizeBytes,
			CompressionLevel:    book.CompressionLevel(payload.CompressionLevel),
			SafetyMarginPercent: payload.SafetyMarginPercent,
		})
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, payload)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}
