package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"

	"shortgate/internal/models"
)

// URLService defines the interface for the core shortening and redirect business logic.
type URLService interface {
	// ShortenURL returns the mapping for the original URL, creating it on
	// first sight. created reports whether this call created the mapping.
	ShortenURL(ctx context.Context, originalURL string) (*models.URL, bool, error)

	// VerifyRedirect validates the challenge token and resolves the short code
	// into the mapping to redirect to.
	VerifyRedirect(ctx context.Context, shortCode, token, remoteIP string) (*models.URL, error)

	// GetURLStats retrieves the mapping with its access counter, without mutating it.
	GetURLStats(ctx context.Context, shortCode string) (*models.URL, error)
}

// Options carries the request-independent values handlers need.
type Options struct {
	// SiteKey is the public challenge widget identifier rendered into the
	// verification page.
	SiteKey string
	// BaseURL overrides the base used for rendered short links. When empty,
	// links are derived from the incoming request.
	BaseURL string
}

// getValidate initializes a new validator instance for validating incoming request payloads.
// It customizes tag name extraction from struct fields to match JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes and returns a new HTTP router with all routes and middleware configured.
func NewRouter(logger *httplog.Logger, urlSvc URLService, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	validate := getValidate()

	r.Get("/", handleIndexPage())

	r.Post("/api/shorten", handleShortenURL(urlSvc, validate, opts.BaseURL))
	r.Get("/api/shorten/{shortCode}/stats", handleGetURLStats(urlSvc))

	r.Route("/v/{shortCode}", func(r chi.Router) {
		r.Get("/", handleChallengePage(opts.SiteKey))
		r.Post("/", handleVerifyRedirect(urlSvc))
	})

	return r
}
