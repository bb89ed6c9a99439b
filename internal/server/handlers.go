package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pddg/sparkly/internal/logging"
	"github.com/pddg/sparkly/internal/protocol"
)

// maxActionSize bounds the body of POST /actions.
const maxActionSize = 64 << 10

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Started            bool            `json:"started"`
	Stage              string          `json:"stage"`
	State              json.RawMessage `json:"state"`
	CanCheckForUpdates bool            `json:"can_check_for_updates"`
	PendingCallback    string          `json:"pending_callback"`
	SessionID          string          `json:"session_id,omitempty"`
	Subscribers        int             `json:"subscribers"`
}

type StatusHandler struct {
	bridge Bridge
}

func NewStatusHandler(b Bridge) *StatusHandler {
	return &StatusHandler{bridge: b}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.bridge.Status()
	state, err := protocol.MarshalState(status.State)
	if err != nil {
		logging.FromContext(r.Context()).ErrorContext(r.Context(), "failed to encode state", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Started:            status.Started,
		Stage:              status.Stage.String(),
		State:              state,
		CanCheckForUpdates: status.CanCheckForUpdates,
		PendingCallback:    status.PendingCallback.String(),
		SessionID:          status.SessionID,
		Subscribers:        status.Subscribers,
	})
}

type SettingsHandler struct {
	bridge Bridge
}

func NewSettingsHandler(b Bridge) *SettingsHandler {
	return &SettingsHandler{bridge: b}
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.bridge.Settings())
}

// ActionHandler accepts one JSON encoded action per request. Actions have no
// result; their consequences are published as events.
type ActionHandler struct {
	ctx    context.Context
	bridge Bridge
}

func NewActionHandler(ctx context.Context, b Bridge) *ActionHandler {
	return &ActionHandler{
		ctx:    ctx,
		bridge: b,
	}
}

func (h *ActionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(h.ctx)
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxActionSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("failed to read action: %w", err))
		return
	}
	action, err := protocol.UnmarshalAction(body)
	if err != nil {
		logger.WarnContext(r.Context(), "rejected action", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.bridge.Send(action)
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	resultBytes, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(resultBytes)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: err.Error()})
}
