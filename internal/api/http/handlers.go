package http

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"shortgate/internal/database"
	"shortgate/internal/models"
	"shortgate/internal/verification"
	"shortgate/pkg/response"
)

// challengeTokenField is the form field the challenge widget submits.
const challengeTokenField = "cf-turnstile-response"

// shortenRequest represents the request payload for shortening a URL.
type shortenRequest struct {
	OriginalURL string `json:"originalUrl" validate:"required,url"`
}

// shortURLResponse is the public shorten payload; its shape is a compatibility contract.
type shortURLResponse struct {
	ShortURL string `json:"shortUrl"`
}

// urlStatsResponse represents the statistics payload for a shortened URL.
type urlStatsResponse struct {
	ShortCode   string    `json:"shortCode"`
	OriginalURL string    `json:"originalUrl"`
	AccessCount int64     `json:"accessCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toURLStatsResponse(url *models.URL) urlStatsResponse {
	return urlStatsResponse{
		ShortCode:   url.ShortCode,
		OriginalURL: url.OriginalURL,
		AccessCount: url.AccessCount,
		CreatedAt:   url.CreatedAt,
		UpdatedAt:   url.UpdatedAt,
	}
}

// requestBaseURL resolves the base for rendered short links: the configured
// base when set, otherwise the incoming request's scheme and host.
func requestBaseURL(r *http.Request, configured string) string {
	if configured != "" {
		return strings.TrimSuffix(configured, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host
}

// clientIP returns the caller's network origin. The RealIP middleware already
// replaced RemoteAddr for proxied requests; direct connections still carry a port.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// handleShortenURL handles POST requests to shorten a URL.
//
// Shortening is idempotent by original URL: a new mapping answers 201, an
// existing one answers 200, both with the same payload shape.
func handleShortenURL(svc URLService, validate *validator.Validate, baseURL string) http.HandlerFunc {
	const op = "api.http.handleShortenURL"

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		url, created, err := svc.ShortenURL(r.Context(), req.OriginalURL)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}

		render.Status(r, status)
		render.JSON(w, r, shortURLResponse{
			ShortURL: requestBaseURL(r, baseURL) + "/v/" + url.ShortCode,
		})
	}
}

// handleChallengePage handles GET requests to a short link.
//
// It always answers with the challenge page, whether or not the code exists:
// existence is only revealed after a solved challenge.
func handleChallengePage(siteKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderChallengePage(w, chi.URLParam(r, "shortCode"), siteKey)
	}
}

// handleVerifyRedirect handles POST requests to a short link.
//
// It verifies the submitted challenge token and, on success, redirects to the
// original URL. A rejected or indeterminate challenge answers 403 with the
// verifier's diagnostic; an unknown code answers 404 only after verification.
func handleVerifyRedirect(svc URLService) http.HandlerFunc {
	const op = "api.http.handleVerifyRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		shortCode := chi.URLParam(r, "shortCode")
		token := r.PostFormValue(challengeTokenField)

		url, err := svc.VerifyRedirect(r.Context(), shortCode, token, clientIP(r))
		if err != nil {
			if errors.Is(err, verification.ErrVerificationFailed) {
				var challengeErr *verification.Error
				if errors.As(err, &challengeErr) {
					render.Status(r, http.StatusForbidden)
					render.JSON(w, r, response.VerificationFailedResponse(challengeErr.Codes...))
					return
				}

				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.VerificationFailedResponse())
				return
			}

			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		http.Redirect(w, r, url.OriginalURL, http.StatusFound)
	}
}

// handleGetURLStats handles GET requests to retrieve usage statistics for a shortened URL.
func handleGetURLStats(svc URLService) http.HandlerFunc {
	const op = "api.http.handleGetURLStats"
	const successMsg = "The URL statistics retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.GetURLStats(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLStatsResponse(url)))
	}
}
