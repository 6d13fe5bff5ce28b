package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"biglietto/internal/delivery/http/helpers"
	"biglietto/internal/domain"
)

type TemplateController struct {
	Logger    *slog.Logger
	Templates domain.MessageTemplateRepository
}

func NewTemplateController(logger *slog.Logger, templates domain.MessageTemplateRepository) *TemplateController {
	return &TemplateController{
		Logger:    logger,
		Templates: templates,
	}
}

// UpsertTemplateRequest is the request body for creating or updating a template.
type UpsertTemplateRequest struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Validate implements helpers.Validator.
func (r *UpsertTemplateRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, "name is required")
	}
	if r.Kind != domain.TemplateKindBirthday && r.Kind != domain.TemplateKindConfirmation {
		errs = append(errs, "kind must be birthday or confirmation")
	}
	if strings.TrimSpace(r.Subject) == "" {
		errs = append(errs, "subject is required")
	}
	if strings.TrimSpace(r.Body) == "" {
		errs = append(errs, "body is required")
	}
	return errs
}

// TemplateSuccessResponse is the success envelope for a single template.
type TemplateSuccessResponse struct {
	Data  *domain.MessageTemplate `json:"data"`
	Error *helpers.APIError       `json:"error"`
}

// TemplateListSuccessResponse is the success envelope for a template list.
type TemplateListSuccessResponse struct {
	Data  []*domain.MessageTemplate `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

// Create godoc
// @Summary Create a message template
// @Description Creates a template of the given kind. New templates start inactive; use the activate endpoint to put one into service.
// @Tags templates
// @Accept json
// @Produce json
// @Param body body controllers.UpsertTemplateRequest true "Template data"
// @Success 201 {object} controllers.TemplateSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/templates [post]
func (c *TemplateController) Create(w http.ResponseWriter, r *http.Request) {
	var req UpsertTemplateRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	t := &domain.MessageTemplate{
		Name:    strings.TrimSpace(req.Name),
		Kind:    req.Kind,
		Subject: req.Subject,
		Body:    req.Body,
	}
	if err := c.Templates.Create(r.Context(), t); err != nil {
		c.Logger.ErrorContext(r.Context(), "template create failed", "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "template could not be created")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, t)
}

// List godoc
// @Summary List message templates
// @Description Lists templates, optionally filtered by kind.
// @Tags templates
// @Produce json
// @Param kind query string false "Filter by kind (birthday or confirmation)"
// @Success 200 {object} controllers.TemplateListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/templates [get]
func (c *TemplateController) List(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" && kind != domain.TemplateKindBirthday && kind != domain.TemplateKindConfirmation {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "kind must be birthday or confirmation")
		return
	}

	list, err := c.Templates.List(r.Context(), kind)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "template list failed", "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "templates could not be listed")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

// Get godoc
// @Summary Get a message template
// @Tags templates
// @Produce json
// @Param templateID path string true "Template ID (UUID)"
// @Success 200 {object} controllers.TemplateSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/templates/{templateID} [get]
func (c *TemplateController) Get(w http.ResponseWriter, r *http.Request) {
	templateID := r.PathValue("templateID")
	if !isUUID(templateID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid templateID")
		return
	}

	t, err := c.Templates.GetByID(r.Context(), templateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "template not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "template get failed", "template_id", templateID, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "template could not be fetched")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, t)
}

// Update godoc
// @Summary Update a message template
// @Description Rewrites name, kind, subject and body. The active flag is untouched.
// @Tags templates
// @Accept json
// @Produce json
// @Param templateID path string true "Template ID (UUID)"
// @Param body body controllers.UpsertTemplateRequest true "Template data"
// @Success 200 {object} controllers.TemplateSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/templates/{templateID} [put]
func (c *TemplateController) Update(w http.ResponseWriter, r *http.Request) {
	templateID := r.PathValue("templateID")
	if !isUUID(templateID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid templateID")
		return
	}
	var req UpsertTemplateRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	t, err := c.Templates.GetByID(r.Context(), templateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "template not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "template get failed", "template_id", templateID, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "template could not be fetched")
		return
	}

	t.Name = strings.TrimSpace(req.Name)
	t.Kind = req.Kind
	t.Subject = req.Subject
	t.Body = req.Body
	if err := c.Templates.Update(r.Context(), t); err != nil {
		c.Logger.ErrorContext(r.Context(), "template update failed", "template_id", templateID, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "template could not be updated")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, t)
}

// Activate godoc
// @Summary Activate a message template
// @Description Makes this template the single active one of its kind. Every other template of the same kind is deactivated in the same transaction.
// @Tags templates
// @Produce json
// @Param templateID path string true "Template ID (UUID)"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/templates/{templateID}/activate [post]
func (c *TemplateController) Activate(w http.ResponseWriter, r *http.Request) {
	templateID := r.PathValue("templateID")
	if !isUUID(templateID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid templateID")
		return
	}

	if err := c.Templates.Activate(r.Context(), templateID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "template not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "template activate failed", "template_id", templateID, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "template could not be activated")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "activated"})
}

// Delete godoc
// @Summary Delete a message template
// @Tags templates
// @Produce json
// @Param templateID path string true "Template ID (UUID)"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/templates/{templateID} [delete]
func (c *TemplateController) Delete(w http.ResponseWriter, r *http.Request) {
	templateID := r.PathValue("templateID")
	if !isUUID(templateID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid templateID")
		return
	}

	if err := c.Templates.Delete(r.Context(), templateID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "template not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "template delete failed", "template_id", templateID, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "template could not be deleted")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "deleted"})
}
