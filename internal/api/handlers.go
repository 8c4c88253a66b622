package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mattjoyce/excbridge/internal/protocol"
	"github.com/mattjoyce/excbridge/internal/reply"
	"github.com/mattjoyce/excbridge/internal/service"
)

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(s.svc.Uptime().Seconds()),
		Fingerprint:   s.config.Fingerprint,
		Bindings:      s.svc.Bindings(),
	}
	code := http.StatusOK
	if !s.svc.Running() {
		resp.Status = "stopped"
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, resp)
}

// handleSnapshot handles GET /exc.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.svc.Snapshot()
	if !ok {
		s.writeError(w, http.StatusNotFound, "no local execution context")
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Dispatch:      s.svc.Stats(),
		EventsDropped: s.hub.Dropped(),
	}
	if s.forwarder != nil {
		fs := s.forwarder.Stats()
		resp.Forward = &fs
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleCommand handles POST /command/{opcode}. The opcode is a protocol
// name or numeric id. The request waits for the command's reply; commands
// that never reply are acknowledged with 202.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	op, err := protocol.ParseOpcode(chi.URLParam(r, "opcode"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req CommandRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	frame := protocol.Frame{Opcode: op, Arg: req.Arg}
	replies := reply.NewChan(1)
	defer replies.Close()

	err = s.endpoint.Send(protocol.Command{
		Opcode:  op,
		Arg:     frame.Payload(),
		Arg1:    req.Arg1,
		ReplyTo: replies,
	})
	switch {
	case errors.Is(err, service.ErrMailboxFull):
		s.writeError(w, http.StatusServiceUnavailable, "mailbox full")
		return
	case errors.Is(err, service.ErrNotRunning):
		s.writeError(w, http.StatusServiceUnavailable, "service not running")
		return
	case err != nil:
		s.logger.Error("command submit failed", "opcode", op.String(), "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to submit command")
		return
	}

	if !op.Known() || op.Reserved() {
		respondJSON(w, http.StatusAccepted, AcceptedResponse{Opcode: op.String(), Status: "accepted"})
		return
	}

	timer := time.NewTimer(s.config.CommandTimeout)
	defer timer.Stop()
	select {
	case rep := <-replies.C():
		respondJSON(w, http.StatusOK, CommandResponse{
			Opcode: rep.Opcode.String(),
			Status: rep.Status.String(),
			Code:   uint8(rep.Status),
			Value:  rep.Value,
		})
	case <-timer.C:
		s.writeError(w, http.StatusGatewayTimeout, "timed out waiting for reply")
	case <-r.Context().Done():
	}
}

// handleJournal handles GET /journal?limit=N.
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusNotFound, "journal not configured")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}
	records, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("journal read failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// handleOpenAPI handles GET /openapi.json (no auth).
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, buildOpenAPIDoc())
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
