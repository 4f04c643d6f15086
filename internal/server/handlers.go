package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ppiankov/yojana/internal/cache"
	"github.com/ppiankov/yojana/internal/catalog"
	"github.com/ppiankov/yojana/internal/flow"
	"github.com/ppiankov/yojana/internal/logger"
	"github.com/ppiankov/yojana/internal/model"
	"go.uber.org/zap"
)

var errSessionNotFound = errors.New("session not found")

// SessionHandler serves the onboarding flow of browser sessions
type SessionHandler struct {
	store         cache.Store
	newController func() *flow.Controller
	maxWait       time.Duration
	log           *zap.Logger
}

// NewSessionHandler creates a handler storing sessions in store. newController
// builds the controller for each new session.
func NewSessionHandler(store cache.Store, newController func() *flow.Controller, maxWait time.Duration, log *zap.Logger) *SessionHandler {
	return &SessionHandler{
		store:         store,
		newController: newController,
		maxWait:       maxWait,
		log:           logger.OrNop(log),
	}
}

type createSessionResponse struct {
	ID             string     `json:"id"`
	State          flow.State `json:"state"`
	MinResolvingMs int64      `json:"minResolvingMs"`
}

// Create starts a new session in the collecting state
func (h *SessionHandler) Create(c *gin.Context) {
	id := cache.NewSessionID()
	ctl := h.newController()
	h.store.Put(id, ctl)

	h.log.Debug("session created", zap.String("session_id", id))
	c.JSON(http.StatusCreated, createSessionResponse{
		ID:             id,
		State:          ctl.State(),
		MinResolvingMs: ctl.MinResolving().Milliseconds(),
	})
}

// Get returns the session snapshot
func (h *SessionHandler) Get(c *gin.Context) {
	ctl, ok := h.lookup(c)
	if !ok {
		return
	}
	RespondOK(c, ctl.Snapshot())
}

// SubmitProfile validates the posted profile and starts its resolution
func (h *SessionHandler) SubmitProfile(c *gin.Context) {
	ctl, ok := h.lookup(c)
	if !ok {
		return
	}

	var p model.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_json", fmt.Errorf("invalid profile body: %w", err))
		return
	}
	p.Category = model.ParseCategory(string(p.Category))

	err := ctl.SubmitProfile(p)
	var stepErr *flow.StepError
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, ctl.Snapshot())
	case errors.As(err, &stepErr):
		RespondErrorDetails(c, http.StatusBadRequest, "incomplete_step", err, flow.StepStatus{
			Step:    stepErr.Step.String(),
			Title:   stepErr.Step.Title(),
			Missing: stepErr.Missing,
		})
	case errors.Is(err, flow.ErrResolutionInFlight):
		RespondError(c, http.StatusConflict, "resolution_in_flight", err)
	case errors.Is(err, flow.ErrNotCollecting):
		RespondError(c, http.StatusConflict, "not_collecting", err)
	case errors.Is(err, flow.ErrClosed):
		RespondError(c, http.StatusNotFound, "session_not_found", errSessionNotFound)
	default:
		RespondError(c, http.StatusInternalServerError, "submit_failed", err)
	}
}

type resultResponse struct {
	Profile model.Profile        `json:"profile"`
	Result  []model.SchemeRecord `json:"result"`
}

// Result returns the schemes once the session is presenting. With
// ?wait=<duration> it blocks up to the wait (capped by the server) for
// the resolving state to end.
func (h *SessionHandler) Result(c *gin.Context) {
	ctl, ok := h.lookup(c)
	if !ok {
		return
	}

	wait, err := h.parseWait(c.Query("wait"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_wait", err)
		return
	}

	snap := ctl.Snapshot()
	if snap.State == flow.StateResolving && wait > 0 {
		ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
		snap, _ = ctl.WaitFor(ctx, flow.StatePresenting)
		cancel()
	}

	switch snap.State {
	case flow.StatePresenting:
		RespondOK(c, resultResponse{Profile: *snap.Profile, Result: snap.Result})
	case flow.StateResolving:
		c.JSON(http.StatusAccepted, snap)
	default:
		RespondError(c, http.StatusConflict, "not_submitted", errors.New("no profile submitted"))
	}
}

func (h *SessionHandler) parseWait(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid wait duration %q", raw)
	}
	if h.maxWait > 0 && d > h.maxWait {
		d = h.maxWait
	}
	return d, nil
}

// Restart discards the profile and result and returns to collecting
func (h *SessionHandler) Restart(c *gin.Context) {
	ctl, ok := h.lookup(c)
	if !ok {
		return
	}
	ctl.Restart()
	RespondOK(c, ctl.Snapshot())
}

// Delete ends the session
func (h *SessionHandler) Delete(c *gin.Context) {
	if !h.store.Delete(c.Param("id")) {
		RespondError(c, http.StatusNotFound, "session_not_found", errSessionNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) lookup(c *gin.Context) (*flow.Controller, bool) {
	ctl, ok := h.store.Get(c.Param("id"))
	if !ok {
		RespondError(c, http.StatusNotFound, "session_not_found", errSessionNotFound)
		return nil, false
	}
	return ctl, true
}

type validateResponse struct {
	Complete bool              `json:"complete"`
	Steps    []flow.StepStatus `json:"steps"`
}

// ValidateProfile reports per-step completeness of a draft profile
func ValidateProfile(c *gin.Context) {
	var p model.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_json", fmt.Errorf("invalid profile body: %w", err))
		return
	}
	p.Category = model.ParseCategory(string(p.Category))

	RespondOK(c, validateResponse{
		Complete: flow.CheckProfile(p) == nil,
		Steps:    flow.Statuses(p),
	})
}

type categoryOption struct {
	Value model.Category `json:"value"`
	Label string         `json:"label"`
}

type optionsResponse struct {
	Categories      []categoryOption      `json:"categories"`
	Castes          []string              `json:"castes"`
	EducationLevels []string              `json:"educationLevels"`
	States          []string              `json:"states"`
	IncomeBrackets  []model.IncomeBracket `json:"incomeBrackets"`
	Steps           []flow.StepStatus     `json:"steps"`
	LoadingStages   []string              `json:"loadingStages"`
}

// Options returns the enumerations the onboarding form offers
func Options(c *gin.Context) {
	resp := optionsResponse{
		Castes:          model.Castes,
		EducationLevels: model.EducationLevels,
		States:          model.States,
		IncomeBrackets:  model.IncomeBrackets,
	}
	for _, cat := range model.Categories {
		resp.Categories = append(resp.Categories, categoryOption{Value: cat, Label: cat.Label()})
	}
	for _, s := range flow.Steps {
		resp.Steps = append(resp.Steps, flow.StepStatus{Step: s.String(), Title: s.Title()})
	}
	for _, s := range flow.LoadingStages {
		resp.LoadingStages = append(resp.LoadingStages, s.Text)
	}
	RespondOK(c, resp)
}

// Catalog returns the fallback list for a category; unknown categories yield an empty list
func Catalog(c *gin.Context) {
	RespondOK(c, catalog.Lookup(model.ParseCategory(c.Param("category"))))
}
