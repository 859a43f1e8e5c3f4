package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/domintell-bridge/internal/bridges/domintell"
	"github.com/nerrad567/domintell-bridge/internal/hub"
)

// gatewayResponse is the JSON view of one configured gateway.
type gatewayResponse struct {
	Device    string                 `json:"device"`
	Port      int                    `json:"port"`
	Connected bool                   `json:"connected"`
	Stats     domintell.GatewayStats `json:"stats"`
}

// handleListGateways returns every gateway with its connection stats.
func (s *Server) handleListGateways(w http.ResponseWriter, _ *http.Request) {
	gateways := s.gateways()
	resp := make([]gatewayResponse, 0, len(gateways))
	for _, gw := range gateways {
		resp = append(resp, gatewayResponse{
			Device:    gw.Device,
			Port:      gw.Port,
			Connected: gw.IsConnected(),
			Stats:     gw.Stats(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"gateways": resp,
		"count":    len(resp),
	})
}

// handleListEntities returns snapshots of all registered entities.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	entities := s.home.Entities()

	if component := r.URL.Query().Get("component"); component != "" {
		filtered := make([]hub.EntityState, 0, len(entities))
		for _, e := range entities {
			if e.Component == component {
				filtered = append(filtered, e)
			}
		}
		entities = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entities": entities,
		"count":    len(entities),
	})
}

// handleGetEntity returns a single entity snapshot.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	state, err := s.home.Entity(id)
	if err != nil {
		writeNotFound(w, "entity not found")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// handleTurnOn switches an entity on.
func (s *Server) handleTurnOn(w http.ResponseWriter, r *http.Request) {
	s.callService(w, r, hub.ServiceTurnOn)
}

// handleTurnOff switches an entity off.
func (s *Server) handleTurnOff(w http.ResponseWriter, r *http.Request) {
	s.callService(w, r, hub.ServiceTurnOff)
}

// callService runs service against the entity named in the URL. The new
// state is not returned: it arrives through the gateway and the WebSocket.
func (s *Server) callService(w http.ResponseWriter, r *http.Request, service string) {
	id := chi.URLParam(r, "id")

	state, err := s.home.Entity(id)
	if err != nil {
		writeNotFound(w, "entity not found")
		return
	}

	err = s.home.CallService(r.Context(), state.Component, service, id)
	switch {
	case err == nil:
	case errors.Is(err, hub.ErrEntityNotFound):
		writeNotFound(w, "entity not found")
		return
	case errors.Is(err, hub.ErrServiceNotSupported):
		writeBadRequest(w, "service "+service+" not supported by "+id)
		return
	default:
		s.logger.Warn("service call failed", "entity_id", id, "service", service, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeGateway, "gateway command failed")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"entity_id": id,
		"service":   service,
		"status":    "accepted",
	})
}
