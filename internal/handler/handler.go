package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Dan9191/fintrack/internal/config"
	"github.com/Dan9191/fintrack/internal/middleware"
	"github.com/Dan9191/fintrack/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

var errInvalidFrequency = errors.New("frequency must be a number of days or \"custom\"")

type envelope map[string]any

type Handler struct {
	svc *service.Service
	log *logrus.Logger
	now func() time.Time
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log, now: time.Now}
}

// NewRouter wires every route. Transaction and profile routes sit behind the
// JWT middleware; signup, login and probes are public.
func NewRouter(h *Handler, cfg *config.Config, log *logrus.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware(log))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{"success": false, "message": "Route not found."})
	})

	// Public routes
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.Ready).Methods(http.MethodGet)
	r.HandleFunc("/api/users/signup", h.Signup).Methods(http.MethodPost)
	r.HandleFunc("/api/users/login", h.Login).Methods(http.MethodPost)

	// Protected routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(cfg))
	api.HandleFunc("/users/{id}", h.GetUser).Methods(http.MethodGet)
	api.HandleFunc("/transactions", h.AddTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions", h.GetTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions/summary", h.GetSummary).Methods(http.MethodGet)
	api.HandleFunc("/transactions/export", h.ExportStatement).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}", h.UpdateTransaction).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/transactions/{id}", h.DeleteTransaction).Methods(http.MethodDelete)

	return r
}

// Health reports that the process is up
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"status": "ok"})
}

// Ready reports whether the store answers
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ready(r.Context()); err != nil {
		h.log.Warnf("Readiness check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, envelope{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, envelope{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "Server error: " + err.Error()

	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		switch svcErr.Kind {
		case service.KindValidation:
			status = http.StatusBadRequest
		case service.KindUnauthorized:
			status = http.StatusUnauthorized
		case service.KindForbidden:
			status = http.StatusForbidden
		case service.KindNotFound:
			status = http.StatusNotFound
		case service.KindConflict:
			status = http.StatusConflict
		}
		message = svcErr.Message
		if svcErr.Kind == service.KindStorage && svcErr.Err != nil {
			message = "Server error: " + svcErr.Err.Error()
		}
	}

	if status == http.StatusInternalServerError {
		h.log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Errorf("Request failed: %v", err)
	}
	writeJSON(w, status, envelope{"success": false, "message": message})
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return service.NewError(service.KindValidation, "Invalid request body.")
	}
	return nil
}

// resolveUserID picks the user a request acts for: the requested id when given,
// which must then match the token subject, otherwise the token subject itself.
func resolveUserID(r *http.Request, requested string) (string, error) {
	authID, authenticated := middleware.UserIDFromContext(r.Context())
	switch {
	case requested == "" && authenticated:
		return authID, nil
	case requested == "":
		return "", service.NewError(service.KindValidation, "userId is required.")
	case authenticated && requested != authID:
		return "", service.NewError(service.KindForbidden, "You can only access your own data.")
	}
	return requested, nil
}
