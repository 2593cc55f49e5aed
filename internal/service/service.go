package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"shortgate/internal/database"
	"shortgate/internal/models"
	"shortgate/internal/shortcode"
)

// ErrMaxRetriesExceeded is returned when the maximum number of retries for generating a short code is exceeded.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")

// ErrEmptyOriginalURL is returned when ShortenURL is called without an original URL.
var ErrEmptyOriginalURL = errors.New("original url is empty")

// URLRepository defines the interface for working with URL mappings at the business logic layer.
type URLRepository interface {
	// Create inserts a new mapping into the repository.
	// Returns database.ErrShortCodeExists or database.ErrOriginalURLExists on
	// the corresponding unique violation.
	Create(ctx context.Context, shortCode, originalURL string) (*models.URL, error)

	// GetByShortCode retrieves a mapping by its short code without mutating it.
	// Returns database.ErrURLNotFound if no mapping exists.
	GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// GetByOriginalURL retrieves a mapping by its original URL.
	// Returns database.ErrURLNotFound if no mapping exists.
	GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error)

	// IncrementAccessCount atomically increments the access counter for a short code.
	// Returns database.ErrURLNotFound if no mapping exists.
	IncrementAccessCount(ctx context.Context, shortCode string) error
}

// Verifier validates a human-challenge response token for a client IP.
// A nil return means the upstream verifier explicitly confirmed the token.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// URLService implements the shorten and verified-redirect flows on top of a
// URLRepository, a short code generator and a challenge verifier.
type URLService struct {
	repo            URLRepository
	verifier        Verifier
	generator       shortcode.Generator
	logger          *slog.Logger
	shortCodeLength int
}

// NewURLService creates a new URLService with the provided collaborators and base short code length.
func NewURLService(repo URLRepository, verifier Verifier, generator shortcode.Generator, logger *slog.Logger, shortCodeLength int) *URLService {
	return &URLService{
		repo:            repo,
		verifier:        verifier,
		generator:       generator,
		logger:          logger,
		shortCodeLength: shortCodeLength,
	}
}

// ShortenURL returns the mapping for the given original URL, creating it on
// first sight. Shortening is idempotent by original URL: repeated calls return
// the existing mapping with created=false.
//
// On a short code collision it regenerates with a widened length, up to a
// bounded number of attempts. A unique violation on the original URL means a
// concurrent request created the mapping first; the winner's mapping is
// re-queried and returned.
func (s *URLService) ShortenURL(ctx context.Context, originalURL string) (*models.URL, bool, error) {
	const op = "service.URLService.ShortenURL"
	const maxRetries = 5

	if originalURL == "" {
		return nil, false, fmt.Errorf("%s: %w", op, ErrEmptyOriginalURL)
	}

	url, err := s.repo.GetByOriginalURL(ctx, originalURL)
	if err == nil {
		return url, false, nil
	}
	if !errors.Is(err, database.ErrURLNotFound) {
		return nil, false, fmt.Errorf("%s: failed to check for existing url: %w", op, err)
	}

	for i := 0; i < maxRetries; i++ {
		shortCode, err := s.generator.Generate(s.shortCodeLength + i)
		if err != nil {
			return nil, false, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		url, err := s.repo.Create(ctx, shortCode, originalURL)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				continue
			}

			if errors.Is(err, database.ErrOriginalURLExists) {
				url, err := s.repo.GetByOriginalURL(ctx, originalURL)
				if err != nil {
					return nil, false, fmt.Errorf("%s: failed to get url created concurrently: %w", op, err)
				}

				return url, false, nil
			}

			return nil, false, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return url, true, nil
	}

	return nil, false, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// VerifyRedirect runs the verification-gated redirect flow for a short code:
// verify the challenge token, resolve the mapping, bump the access counter,
// and return the mapping to redirect to.
//
// Verification happens before the mapping lookup, so an unknown code still
// costs the caller a solved challenge. Any verifier outcome other than success
// aborts before the store is touched.
//
// The counter increment is best-effort bookkeeping: a failure after a
// successful lookup is logged and the redirect proceeds, so the counter may
// undercount under store-level races.
func (s *URLService) VerifyRedirect(ctx context.Context, shortCode, token, remoteIP string) (*models.URL, error) {
	const op = "service.URLService.VerifyRedirect"

	if err := s.verifier.Verify(ctx, token, remoteIP); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	url, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	if err := s.repo.IncrementAccessCount(ctx, shortCode); err != nil {
		s.logger.Warn(
			"failed to increment access count",
			slog.String("short_code", shortCode),
			slog.Any("err", err),
		)
	} else {
		url.AccessCount++
	}

	return url, nil
}

// GetURLStats retrieves the mapping for the provided short code, including its
// access counter, without mutating it.
func (s *URLService) GetURLStats(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.GetURLStats"

	url, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return url, nil
}
