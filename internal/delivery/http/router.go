package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"biglietto/internal/delivery/http/controllers"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(registrationController *controllers.RegistrationController, templateController *controllers.TemplateController) *http.ServeMux {
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("POST /registrations", registrationController.Create)

	// Admin
	mux.HandleFunc("POST /admin/registrations/{registrationID}/resend", registrationController.Resend)
	mux.HandleFunc("POST /admin/templates", templateController.Create)
	mux.HandleFunc("GET /admin/templates", templateController.List)
	mux.HandleFunc("GET /admin/templates/{templateID}", templateController.Get)
	mux.HandleFunc("PUT /admin/templates/{templateID}", templateController.Update)
	mux.HandleFunc("DELETE /admin/templates/{templateID}", templateController.Delete)
	mux.HandleFunc("POST /admin/templates/{templateID}/activate", templateController.Activate)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
