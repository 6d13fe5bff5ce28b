package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"biglietto/internal/delivery/http/helpers"
	"biglietto/internal/domain"
)

// isUUID reports whether s is a well-formed UUID. Path and body IDs are
// checked before hitting the store so malformed input never reaches a query.
func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

type RegistrationController struct {
	Logger  *slog.Logger
	Tickets domain.TicketService
}

func NewRegistrationController(logger *slog.Logger, tickets domain.TicketService) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Tickets: tickets,
	}
}

// CreateRegistrationRequest is the request body for POST /registrations.
type CreateRegistrationRequest struct {
	EventID   string `json:"event_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	BirthDate string `json:"birth_date"` // YYYY-MM-DD
}

// Validate implements helpers.Validator.
func (r *CreateRegistrationRequest) Validate() []string {
	var errs []string
	if !isUUID(r.EventID) {
		errs = append(errs, "event_id must be a valid UUID")
	}
	if strings.TrimSpace(r.FirstName) == "" {
		errs = append(errs, "first_name is required")
	}
	if strings.TrimSpace(r.LastName) == "" {
		errs = append(errs, "last_name is required")
	}
	if strings.TrimSpace(r.Email) == "" {
		errs = append(errs, "email is required")
	}
	if _, err := time.Parse("2006-01-02", r.BirthDate); err != nil {
		errs = append(errs, "birth_date must be YYYY-MM-DD")
	}
	return errs
}

// RegistrationResult is a registration plus the user-facing delivery outcome.
// DeliveryMessage is the generic failure text only; the raw transport error is
// stored and logged, never returned.
type RegistrationResult struct {
	*domain.Registration
	DeliveryMessage string `json:"delivery_message,omitempty"`
}

func newRegistrationResult(reg *domain.Registration) *RegistrationResult {
	res := &RegistrationResult{Registration: reg}
	if reg.DeliveryStatus == domain.DeliveryStatusFailed {
		res.DeliveryMessage = domain.GenericDeliveryFailureMessage
	}
	return res
}

// RegistrationSuccessResponse is the success envelope for POST /registrations (201).
type RegistrationSuccessResponse struct {
	Data  *RegistrationResult `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// Create godoc
// @Summary Register for an event and receive the ticket by email
// @Description Creates a registration, issues its QR credential, and emails the ticket PDF. At most one registration exists per (email, event).
// @Tags registrations
// @Accept json
// @Produce json
// @Param body body controllers.CreateRegistrationRequest true "Registration data"
// @Success 201 {object} controllers.RegistrationSuccessResponse "Registration created; delivery_status reports the email outcome"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations [post]
func (c *RegistrationController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRegistrationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	birthDate, _ := time.Parse("2006-01-02", req.BirthDate)

	reg, err := c.Tickets.Issue(r.Context(), domain.RegistrationInput{
		EventID:   req.EventID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		BirthDate: birthDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		case errors.Is(err, domain.ErrNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
		case errors.Is(err, domain.ErrDuplicateRegistration):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, domain.ErrDuplicateRegistration.Error())
		case errors.Is(err, domain.ErrEventClosed):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, domain.ErrEventClosed.Error())
		default:
			c.Logger.ErrorContext(r.Context(), "registration failed", "path", r.URL.Path, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "registration could not be completed")
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, newRegistrationResult(reg))
}

// Resend godoc
// @Summary Re-send a ticket email (admin override)
// @Description Re-renders the ticket from the committed credential and dispatches it again, bypassing the automatic at-most-once gate.
// @Tags registrations
// @Produce json
// @Param registrationID path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/registrations/{registrationID}/resend [post]
func (c *RegistrationController) Resend(w http.ResponseWriter, r *http.Request) {
	registrationID := r.PathValue("registrationID")
	if !isUUID(registrationID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid registrationID")
		return
	}

	reg, err := c.Tickets.Resend(r.Context(), registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "registration not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "resend failed", "registration_id", registrationID, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "resend could not be completed")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, newRegistrationResult(reg))
}
