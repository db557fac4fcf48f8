// Package httpapi exposes the gateway's REST surface. It owns the mapping
// from typed domain errors to HTTP statuses; no component below this layer
// writes HTTP responses for domain failures.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/propchain/registry_gateway/internal/credentials"
	"github.com/propchain/registry_gateway/internal/errors"
	"github.com/propchain/registry_gateway/internal/httputil"
	"github.com/propchain/registry_gateway/internal/metrics"
	"github.com/propchain/registry_gateway/internal/middleware"
	"github.com/propchain/registry_gateway/internal/registry"
	"github.com/propchain/registry_gateway/internal/session"
)

// Handler bundles the HTTP endpoints over the gateway services.
type Handler struct {
	credentials *credentials.Service
	sessions    *session.Authority
	registry    *registry.Gateway
	log         zerolog.Logger
}

// NewRouter returns the gateway router. Routes past the access guard never run
// without a verified session token. A nil limiter disables throttling.
func NewRouter(creds *credentials.Service, sessions *session.Authority, reg *registry.Gateway, limiter *middleware.RateLimiter, log zerolog.Logger) *mux.Router {
	h := &Handler{credentials: creds, sessions: sessions, registry: reg, log: log}
	guard := middleware.NewAccessGuard(sessions, log)

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// No guard has run on public routes, so the limiter keys by client IP.
	public := r.NewRoute().Subrouter()
	if limiter != nil {
		public.Use(limiter.Handler)
	}
	public.HandleFunc("/register", h.register).Methods(http.MethodPost)
	public.HandleFunc("/login", h.login).Methods(http.MethodPost)

	// The limiter runs after the guard so authenticated clients get their own
	// allowance per username instead of sharing one bucket per IP.
	protected := r.NewRoute().Subrouter()
	protected.Use(guard.Handler)
	if limiter != nil {
		protected.Use(limiter.Handler)
	}
	protected.HandleFunc("/registerProperty", h.registerProperty).Methods(http.MethodPost)
	protected.HandleFunc("/transferProperty", h.transferProperty).Methods(http.MethodPost)
	protected.HandleFunc("/property/{id}", h.getProperty).Methods(http.MethodGet)
	protected.HandleFunc("/properties", h.listProperties).Methods(http.MethodGet)

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "registry-gateway",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.respondError(w, r, errors.Validation("invalid request body"))
		return
	}

	ident, err := h.credentials.Register(r.Context(), payload.Username, payload.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]string{
		"message":  "user registered successfully",
		"username": ident.Username,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.respondError(w, r, errors.Validation("invalid request body"))
		return
	}

	ok, err := h.credentials.Verify(r.Context(), payload.Username, payload.Password)
	if err != nil {
		if se := errors.GetServiceError(err); se != nil && se.Code == errors.CodeNotFound {
			h.respondError(w, r, errors.AuthenticationFailed("user not found"))
			return
		}
		h.respondError(w, r, err)
		return
	}
	if !ok {
		h.respondError(w, r, errors.AuthenticationFailed("invalid password"))
		return
	}

	token, err := h.sessions.Issue(payload.Username)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) registerProperty(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PropertyAddress string `json:"propertyAddress"`
		OwnerName       string `json:"ownerName"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.respondError(w, r, errors.Validation("invalid request body"))
		return
	}

	receipt, err := h.registry.RegisterProperty(r.Context(), payload.PropertyAddress, payload.OwnerName)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.log.Info().
		Str("user", middleware.Username(r.Context())).
		Str("property_id", receipt.PropertyID).
		Msg("property registration accepted")

	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message":    "property registered successfully",
		"propertyId": receipt.PropertyID,
		"receipt":    receipt,
	})
}

func (h *Handler) transferProperty(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PropertyID   string `json:"propertyId"`
		NewOwner     string `json:"newOwner"`
		NewOwnerName string `json:"newOwnerName"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.respondError(w, r, errors.Validation("invalid request body"))
		return
	}

	receipt, err := h.registry.TransferOwnership(r.Context(), payload.PropertyID, payload.NewOwner, payload.NewOwnerName)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.log.Info().
		Str("user", middleware.Username(r.Context())).
		Str("property_id", payload.PropertyID).
		Msg("property transfer accepted")

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "property transferred successfully",
		"receipt": receipt,
	})
}

func (h *Handler) getProperty(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	prop, err := h.registry.GetProperty(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, prop)
}

func (h *Handler) listProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := h.registry.GetAllProperties(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, properties)
}

// respondError maps a typed error to its HTTP status and body.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal("internal error", err)
	}

	event := h.log.Warn()
	if serviceErr.HTTPStatus >= http.StatusInternalServerError {
		event = h.log.Error()
	}
	event.
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Str("code", string(serviceErr.Code)).
		Int("status", serviceErr.HTTPStatus).
		Msg(serviceErr.Message)

	httputil.WriteErrorResponse(w, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, serviceErr.Details)
}

// decodeJSON tolerates unknown body fields; clients sending extras are not
// rejected.
func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	return json.NewDecoder(body).Decode(dst)
}
