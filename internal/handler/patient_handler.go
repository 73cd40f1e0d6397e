package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clinicore/clinicore-api/internal/models"
	"github.com/clinicore/clinicore-api/internal/service"
	appErrors "github.com/clinicore/clinicore-api/pkg/errors"
	"github.com/clinicore/clinicore-api/pkg/response"
)

// PatientHandler manages patient catalog endpoints.
type PatientHandler struct {
	service *service.PatientService
}

// NewPatientHandler constructs handler.
func NewPatientHandler(svc *service.PatientService) *PatientHandler {
	return &PatientHandler{service: svc}
}

// List godoc
// @Summary List patients
// @Tags Patients
// @Produce json
// @Param active query bool false "Filter by active flag"
// @Param q query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /patients [get]
func (h *PatientHandler) List(c *gin.Context) {
	var filter models.PatientFilter
	filter.Search = c.Query("q")
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	patients, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patients, pagination)
}

// Get godoc
// @Summary Get patient
// @Tags Patients
// @Produce json
// @Param id path string true "Patient ID"
// @Success 200 {object} response.Envelope
// @Router /patients/{id} [get]
func (h *PatientHandler) Get(c *gin.Context) {
	patient, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patient, nil)
}

// Create godoc
// @Summary Create patient
// @Tags Patients
// @Accept json
// @Produce json
// @Param payload body service.PatientRequest true "Patient payload"
// @Success 201 {object} response.Envelope
// @Router /patients [post]
func (h *PatientHandler) Create(c *gin.Context) {
	var req service.PatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	patient, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, patient)
}

// Update godoc
// @Summary Update patient
// @Tags Patients
// @Accept json
// @Produce json
// @Param id path string true "Patient ID"
// @Param payload body service.PatientRequest true "Patient payload"
// @Success 200 {object} response.Envelope
// @Router /patients/{id} [put]
func (h *PatientHandler) Update(c *gin.Context) {
	var req service.PatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	patient, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patient, nil)
}

// Deactivate godoc
// @Summary Deactivate patient
// @Tags Patients
// @Param id path string true "Patient ID"
// @Success 204
// @Router /patients/{id} [delete]
func (h *PatientHandler) Deactivate(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
