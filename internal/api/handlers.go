package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kiltia/inbrief-supervisor/internal/fetch"
	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

// componentError is the body returned when a downstream component refuses
// to serve a request.
type componentError struct {
	Component           string `json:"component"`
	ComponentStatusCode int    `json:"component_status_code"`
	ComponentError      string `json:"component_error"`
}

func (s *Server) fetchUpdates(w http.ResponseWriter, r *http.Request) {
	var req supervisor.FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	resp, err := s.service.Fetch(r.Context(), requestID(r), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if resp.NothingFound {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) summarize(w http.ResponseWriter, r *http.Request) {
	var req fetch.SummarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.StoryID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "story_id required")
		return
	}
	resp, err := s.service.Summarize(r.Context(), requestID(r), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) categoryTitle(w http.ResponseWriter, r *http.Request) {
	var req fetch.CategoryTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	title, err := s.service.CategoryTitle(r.Context(), requestID(r), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"title": title})
}

// writeServiceError maps pipeline errors onto HTTP statuses. A refusing
// downstream component becomes 503 with the component named in the body.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var unavailable *supervisor.UnavailableError
	if errors.As(err, &unavailable) {
		writeJSON(w, http.StatusServiceUnavailable, componentError{
			Component:           unavailable.Op,
			ComponentStatusCode: unavailable.StatusCode,
			ComponentError:      unavailable.Error(),
		})
		return
	}
	s.logger.Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}

type addScheduleRequest struct {
	PresetID uuid.UUID `json:"preset_id"`
	ChatID   int64     `json:"chat_id"`
	UserID   int64     `json:"user_id"`
	Cron     string    `json:"cron"`
}

func (s *Server) addSchedule(w http.ResponseWriter, r *http.Request) {
	var req addScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Cron == "" {
		writeError(w, http.StatusBadRequest, "cron required")
		return
	}
	scheduleID, err := s.ids.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// New entries start inactive and are switched on explicitly via PATCH.
	entry := supervisor.ScheduleEntry{
		ScheduleID: scheduleID,
		PresetID:   req.PresetID,
		ChatID:     req.ChatID,
		UserID:     req.UserID,
		Cron:       req.Cron,
		LastRun:    s.clock.Now(),
	}
	if err := s.schedules.Add(r.Context(), entry); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"schedule_id": scheduleID.String()})
}

func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := uuid.Parse(chi.URLParam(r, "schedule_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}
	entry, err := s.schedules.Get(r.Context(), scheduleID)
	if err != nil {
		writeError(w, http.StatusNotFound, "schedule not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) listSchedules(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(chi.URLParam(r, "chat_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return
	}
	entries, err := s.schedules.ListByChat(r.Context(), chatID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []supervisor.ScheduleEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedules": entries})
}

type updateScheduleRequest struct {
	ScheduleID uuid.UUID  `json:"schedule_id"`
	PresetID   *uuid.UUID `json:"preset_id,omitempty"`
	Cron       *string    `json:"cron,omitempty"`
	Active     *bool      `json:"active,omitempty"`
	Deleted    *bool      `json:"deleted,omitempty"`
}

func (s *Server) updateSchedule(w http.ResponseWriter, r *http.Request) {
	var req updateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	entry, err := s.schedules.Get(r.Context(), req.ScheduleID)
	if err != nil {
		writeError(w, http.StatusNotFound, "schedule not found")
		return
	}

	var fields []string
	if req.PresetID != nil {
		entry.PresetID = *req.PresetID
		fields = append(fields, "preset_id")
	}
	if req.Cron != nil {
		entry.Cron = *req.Cron
		fields = append(fields, "cron")
	}
	if req.Active != nil {
		entry.Active = *req.Active
		fields = append(fields, "active")
	}
	if req.Deleted != nil {
		entry.Deleted = *req.Deleted
		fields = append(fields, "deleted")
	}
	if len(fields) == 0 {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}
	if err := s.schedules.Update(r.Context(), entry, fields); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
