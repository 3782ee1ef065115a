package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appanalysis "github.com/bryanwahyu/scamguard/internal/application/analysis"
	appauth "github.com/bryanwahyu/scamguard/internal/application/auth"
	domain "github.com/bryanwahyu/scamguard/internal/domain/analysis"
	"github.com/bryanwahyu/scamguard/internal/domain/users"
	"github.com/bryanwahyu/scamguard/internal/middleware"
	"github.com/bryanwahyu/scamguard/internal/session"
)

type Router struct {
	analysisSvc *appanalysis.Service
	authSvc     *appauth.Service
}

func NewRouter(analysisSvc *appanalysis.Service, authSvc *appauth.Service, checkers map[string]middleware.HealthChecker) http.Handler {
	r := &Router{analysisSvc: analysisSvc, authSvc: authSvc}
	mux := chi.NewRouter()

	mux.Get("/health", middleware.HealthHandler(checkers))
	mux.Get("/health/ready", middleware.ReadinessHandler)
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/api", func(rt chi.Router) {
		rt.Get("/", r.wrap(r.handleRoot))
		rt.Post("/auth/google", r.wrap(r.handleGoogleSignIn))
		rt.Post("/auth/apple", r.wrap(r.handleAppleSignIn))
		rt.Get("/me", r.wrap(r.handleMe))

		rt.Group(func(g chi.Router) {
			g.Use(middleware.OptionalSessionAuth(r.verifySession))
			g.Post("/analyze", r.wrap(r.handleAnalyze))
		})
		rt.Group(func(g chi.Router) {
			g.Use(middleware.SessionAuth(r.verifySession))
			g.Get("/analyses", r.wrap(r.handleHistory))
		})
	})

	return mux
}

// verifySession adapts the auth service to the middleware's TokenVerifier.
func (r *Router) verifySession(ctx context.Context, token string) (string, error) {
	u, err := r.authSvc.CurrentUser(ctx, token)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// errorBody is the shape every failed request returns.
type errorBody struct {
	Error     string   `json:"error"`
	Details   string   `json:"details,omitempty"`
	Timestamp string   `json:"timestamp"`
	Logs      []string `json:"logs,omitempty"`
}

// statusError forces a specific HTTP status for transport-level failures
// (malformed body, schema violations).
type statusError struct {
	status  int
	title   string
	details string
}

func (e *statusError) Error() string { return e.title + ": " + e.details }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		body := errorBody{
			Error:     "Internal server error",
			Details:   err.Error(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		status := http.StatusInternalServerError

		var serr *statusError
		var perr *domain.Error
		switch {
		case errors.As(err, &serr):
			status = serr.status
			body.Error = serr.title
			body.Details = serr.details
		case errors.As(err, &perr):
			status = statusForKind(perr.Kind)
			body.Error = titleForKind(perr.Kind)
			body.Details = perr.Details
			body.Logs = perr.Logs()
		case errors.Is(err, session.ErrInvalidToken),
			errors.Is(err, users.ErrNotFound),
			errors.Is(err, users.ErrInvalidExternalToken):
			status = http.StatusUnauthorized
			body.Error = "Authentication failed"
		case errors.Is(err, users.ErrUpstream):
			body.Error = "Identity provider unavailable"
		}

		writeJSON(w, status, body)
	}
}

func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidInput, domain.KindImageDecode:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func titleForKind(kind domain.Kind) string {
	switch kind {
	case domain.KindInvalidInput:
		return "Invalid image data"
	case domain.KindImageDecode:
		return "Image processing failed"
	case domain.KindConfiguration, domain.KindServiceInit:
		return "AI service unavailable"
	case domain.KindUpstream:
		return "AI analysis failed"
	case domain.KindResponseParse, domain.KindIncompleteResponse, domain.KindResponseShape:
		return "Invalid AI response"
	}
	return "Analysis failed"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// GET /api/
func (r *Router) handleRoot(w http.ResponseWriter, req *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Scam Detection API"})
	return nil
}

// POST /api/auth/google
// Body: {"id_token": "<google id token>"}
func (r *Router) handleGoogleSignIn(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &statusError{http.StatusBadRequest, "Invalid request body", err.Error()}
	}
	if body.IDToken == "" {
		return &statusError{http.StatusUnprocessableEntity, "Validation failed", "id_token is required"}
	}

	res, err := r.authSvc.SignInGoogle(req.Context(), body.IDToken)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// POST /api/auth/apple
// Body: {"id_token": "<apple id token>", "user_data": {...}}
// user_data only arrives on the very first Apple sign-in.
func (r *Router) handleAppleSignIn(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		IDToken  string         `json:"id_token"`
		UserData map[string]any `json:"user_data"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &statusError{http.StatusBadRequest, "Invalid request body", err.Error()}
	}
	if body.IDToken == "" {
		return &statusError{http.StatusUnprocessableEntity, "Validation failed", "id_token is required"}
	}

	res, err := r.authSvc.SignInApple(req.Context(), body.IDToken, body.UserData)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /api/me
func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) error {
	token := middleware.BearerToken(req)
	if token == "" {
		return &statusError{http.StatusUnauthorized, "Authentication failed", "missing bearer token"}
	}
	u, err := r.authSvc.CurrentUser(req.Context(), token)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, appauth.UserInfo{Email: u.Email, Name: u.Name, Picture: u.Picture})
	return nil
}

// POST /api/analyze
// Body: {"image_base64": "<base64 or data URL>"}
// A missing field is a schema violation (422); an empty or undecodable value
// is a pipeline failure (400).
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		ImageBase64 *string `json:"image_base64"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &statusError{http.StatusBadRequest, "Invalid request body", err.Error()}
	}
	if body.ImageBase64 == nil {
		return &statusError{http.StatusUnprocessableEntity, "Validation failed", "image_base64 is required"}
	}

	middleware.IncrementAnalyses()
	report, err := r.analysisSvc.Analyze(req.Context(), *body.ImageBase64, middleware.UserIDFromContext(req.Context()))
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}
	writeJSON(w, http.StatusOK, report)
	return nil
}

// GET /api/analyses?page=&page_size=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.analysisSvc.History(req.Context(), middleware.UserIDFromContext(req.Context()), page, size)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Record{}
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}
