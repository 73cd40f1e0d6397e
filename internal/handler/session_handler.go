package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clinicore/clinicore-api/internal/models"
	"github.com/clinicore/clinicore-api/internal/service"
	appErrors "github.com/clinicore/clinicore-api/pkg/errors"
	"github.com/clinicore/clinicore-api/pkg/response"
)

// SessionHandler manages session placement and patient assignment endpoints.
type SessionHandler struct {
	service *service.SessionService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// ListBySchedule godoc
// @Summary List a schedule's sessions
// @Tags Sessions
// @Produce json
// @Param id path string true "Schedule ID"
// @Param employeeId query string false "Filter by employee"
// @Param patientId query string false "Filter by patient"
// @Param day query string false "Filter by weekday"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/sessions [get]
func (h *SessionHandler) ListBySchedule(c *gin.Context) {
	filter := models.SessionFilter{
		EmployeeID: c.Query("employeeId"),
		PatientID:  c.Query("patientId"),
		Day:        models.Weekday(strings.ToUpper(c.Query("day"))),
	}
	sessions, err := h.service.ListBySchedule(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Get godoc
// @Summary Get session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Create godoc
// @Summary Place a session on a schedule
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param force query bool false "Override blocking-activity and patient-level checks"
// @Param payload body service.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.Force = forceRequested(c)
	session, err := h.service.Create(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		respondConstraintAware(c, err)
		return
	}
	response.Created(c, session)
}

// Update godoc
// @Summary Move or re-staff a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param force query bool false "Override blocking-activity and patient-level checks"
// @Param payload body service.UpdateSessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id} [put]
func (h *SessionHandler) Update(c *gin.Context) {
	var req service.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.Force = forceRequested(c)
	session, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		respondConstraintAware(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// UpdatePatients godoc
// @Summary Replace a session's patient assignment
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param force query bool false "Override patient-level checks"
// @Param payload body service.AssignPatientsRequest true "Patient assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/patients [put]
func (h *SessionHandler) UpdatePatients(c *gin.Context) {
	var req service.AssignPatientsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.Force = forceRequested(c)
	session, err := h.service.UpdatePatients(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		respondConstraintAware(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// AssignPatient godoc
// @Summary Add one patient to a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param patientId path string true "Patient ID"
// @Param force query bool false "Override patient-level checks"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/patients/{patientId} [post]
func (h *SessionHandler) AssignPatient(c *gin.Context) {
	session, err := h.service.AssignPatient(c.Request.Context(), c.Param("id"), c.Param("patientId"), forceRequested(c), actorID(c))
	if err != nil {
		respondConstraintAware(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Delete godoc
// @Summary Delete session
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func forceRequested(c *gin.Context) bool {
	force, err := strconv.ParseBool(c.DefaultQuery("force", "false"))
	return err == nil && force
}

// respondConstraintAware surfaces constraint violation details in the envelope
// meta so clients can render the reason and offer the force retry.
func respondConstraintAware(c *gin.Context, err error) {
	var violation *models.ConstraintViolationError
	if errors.As(err, &violation) {
		meta := map[string]interface{}{"violation": violation}
		response.ErrorWithMeta(c, err, meta)
		return
	}
	response.Error(c, err)
}
