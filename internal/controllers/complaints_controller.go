package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/resolvehq/resolve/internal/dtos"
	"github.com/resolvehq/resolve/internal/middleware"
	"github.com/resolvehq/resolve/internal/models"
	"github.com/resolvehq/resolve/internal/services"
	"github.com/resolvehq/resolve/internal/utils"
)

type ComplaintsController struct {
	complaintService services.ComplaintService
}

func NewComplaintsController(complaintService services.ComplaintService) *ComplaintsController {
	return &ComplaintsController{complaintService: complaintService}
}

func (c *ComplaintsController) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required",
		)
		return
	}

	var req dtos.CreateComplaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", err,
		)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid complaint details", err,
		)
		return
	}

	complaint := &models.Complaint{
		Title:       req.Title,
		Description: req.Description,
		Category:    models.ComplaintCategory(req.Category),
		Priority:    models.ComplaintPriority(req.Priority),
	}

	created, err := c.complaintService.Create(r.Context(), claims, complaint)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to create complaint", err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, created)
}

func (c *ComplaintsController) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required",
		)
		return
	}

	complaints, err := c.complaintService.ListFor(r.Context(), claims)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to fetch complaints", err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, complaints)
}

func (c *ComplaintsController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid complaint ID", err,
		)
		return
	}

	var req dtos.UpdateComplaintStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", err,
		)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid status", err,
		)
		return
	}

	updated, err := c.complaintService.UpdateStatus(r.Context(), id, models.ComplaintStatus(req.Status))
	if err != nil {
		if errors.Is(err, utils.ErrComplaintNotFound) {
			utils.RespondErrorWithCode(
				w, http.StatusNotFound, utils.ErrCodeNotFound, "Complaint not found",
			)
			return
		}
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to update complaint", err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, updated)
}

func (c *ComplaintsController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid complaint ID", err,
		)
		return
	}

	if err := c.complaintService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, utils.ErrComplaintNotFound) {
			utils.RespondErrorWithCode(
				w, http.StatusNotFound, utils.ErrCodeNotFound, "Complaint not found",
			)
			return
		}
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to delete complaint", err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Complaint deleted"})
}
