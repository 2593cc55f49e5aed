package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"shortgate/internal/database"
	"shortgate/internal/models"
	"shortgate/internal/verification"
	"shortgate/pkg/response"
)

type MockURLService struct {
	mock.Mock
}

func (s *MockURLService) ShortenURL(ctx context.Context, originalURL string) (*models.URL, bool, error) {
	args := s.Called(ctx, originalURL)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Bool(1), args.Error(2)
}

func (s *MockURLService) VerifyRedirect(ctx context.Context, shortCode, token, remoteIP string) (*models.URL, error) {
	args := s.Called(ctx, shortCode, token, remoteIP)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (s *MockURLService) GetURLStats(ctx context.Context, shortCode string) (*models.URL, error) {
	args := s.Called(ctx, shortCode)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

type HandlersTestSuite struct {
	suite.Suite
	logger     *httplog.Logger
	urlSvcMock *MockURLService
	server     *httptest.Server
	e          *httpexpect.Expect
}

func (suite *HandlersTestSuite) SetupSuite() {
	suite.logger = httplog.NewLogger("", httplog.Options{Writer: io.Discard})
}

func (suite *HandlersTestSuite) SetupSubTest() {
	suite.urlSvcMock = new(MockURLService)
	router := NewRouter(suite.logger, suite.urlSvcMock, Options{SiteKey: "site-key-1"})
	suite.server = httptest.NewServer(router)
	suite.e = httpexpect.Default(suite.T(), suite.server.URL)
}

func (suite *HandlersTestSuite) TearDownSubTest() {
	suite.urlSvcMock.AssertExpectations(suite.T())
	suite.server.Close()
}

func (suite *HandlersTestSuite) TestIndexPage() {
	suite.Run("serves shorten form", func() {
		body := suite.e.GET("/").
			Expect().
			Status(http.StatusOK).
			HasContentType("text/html").
			Body()

		body.Contains("shorten-form")
		body.Contains("/api/shorten")
	})
}

func (suite *HandlersTestSuite) TestShortenURL() {
	const path = "/api/shorten"

	suite.Run("empty request body", func() {
		suite.e.POST(path).
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.EmptyRequestBodyResponse.Message)
	})

	suite.Run("invalid request body", func() {
		suite.e.POST(path).
			WithJSON("invalid body").
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.BadRequestResponse.Message)
	})

	suite.Run("validation error", func() {
		suite.e.POST(path).
			WithJSON(map[string]string{
				"originalUrl": "invalid url",
			}).
			Expect().
			Status(http.StatusBadRequest).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			ContainsKey("message").
			ContainsKey("details")
	})

	suite.Run("server error", func() {
		suite.urlSvcMock.
			On("ShortenURL", mock.Anything, "https://example.com").
			Times(1).
			Return(nil, false, errors.New("unknown error"))

		suite.e.POST(path).
			WithJSON(map[string]string{
				"originalUrl": "https://example.com",
			}).
			Expect().
			Status(http.StatusInternalServerError).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.ServerErrorResponse.Message)
	})

	suite.Run("new mapping answers created", func() {
		suite.urlSvcMock.
			On("ShortenURL", mock.Anything, "https://example.com").
			Times(1).
			Return(&models.URL{ShortCode: "ab12cd", OriginalURL: "https://example.com"}, true, nil)

		shortURL := suite.e.POST(path).
			WithJSON(map[string]string{
				"originalUrl": "https://example.com",
			}).
			Expect().
			Status(http.StatusCreated).
			HasContentType("application/json").
			JSON().Object().
			Value("shortUrl").String()

		shortURL.HasSuffix("/v/ab12cd")
	})

	suite.Run("existing mapping answers ok", func() {
		suite.urlSvcMock.
			On("ShortenURL", mock.Anything, "https://example.com").
			Times(1).
			Return(&models.URL{ShortCode: "ab12cd", OriginalURL: "https://example.com"}, false, nil)

		shortURL := suite.e.POST(path).
			WithJSON(map[string]string{
				"originalUrl": "https://example.com",
			}).
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			Value("shortUrl").String()

		shortURL.HasSuffix("/v/ab12cd")
	})
}

func (suite *HandlersTestSuite) TestChallengePage() {
	suite.Run("serves challenge page without store lookup", func() {
		body := suite.e.GET("/v/zzzzzz").
			Expect().
			Status(http.StatusOK).
			HasContentType("text/html").
			Body()

		body.Contains("cf-turnstile")
		body.Contains("site-key-1")

		suite.urlSvcMock.AssertNotCalled(suite.T(), "VerifyRedirect", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		suite.urlSvcMock.AssertNotCalled(suite.T(), "GetURLStats", mock.Anything, mock.Anything)
	})
}

func (suite *HandlersTestSuite) TestVerifyRedirect() {
	suite.Run("verification failure", func() {
		suite.urlSvcMock.
			On("VerifyRedirect", mock.Anything, "ab12cd", "bad-token", mock.Anything).
			Times(1).
			Return(nil, &verification.Error{Codes: []string{"invalid-input-response"}})

		suite.e.POST("/v/ab12cd").
			WithForm(map[string]string{challengeTokenField: "bad-token"}).
			Expect().
			Status(http.StatusForbidden).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("error", "Verification Failed").
			Value("details").Array().ContainsOnly("invalid-input-response")
	})

	suite.Run("indeterminate verification fails closed", func() {
		suite.urlSvcMock.
			On("VerifyRedirect", mock.Anything, "ab12cd", "token1", mock.Anything).
			Times(1).
			Return(nil, verification.ErrVerificationFailed)

		suite.e.POST("/v/ab12cd").
			WithForm(map[string]string{challengeTokenField: "token1"}).
			Expect().
			Status(http.StatusForbidden).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("error", "Verification Failed")
	})

	suite.Run("unknown short code", func() {
		suite.urlSvcMock.
			On("VerifyRedirect", mock.Anything, "zzzzzz", "token1", mock.Anything).
			Times(1).
			Return(nil, database.ErrURLNotFound)

		suite.e.POST("/v/zzzzzz").
			WithForm(map[string]string{challengeTokenField: "token1"}).
			Expect().
			Status(http.StatusNotFound).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.ResourceNotFoundResponse.Message)
	})

	suite.Run("server error", func() {
		suite.urlSvcMock.
			On("VerifyRedirect", mock.Anything, "ab12cd", "token1", mock.Anything).
			Times(1).
			Return(nil, errors.New("unknown error"))

		suite.e.POST("/v/ab12cd").
			WithForm(map[string]string{challengeTokenField: "token1"}).
			Expect().
			Status(http.StatusInternalServerError).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.ServerErrorResponse.Message)
	})

	suite.Run("success redirects to original url", func() {
		suite.urlSvcMock.
			On("VerifyRedirect", mock.Anything, "ab12cd", "token1", mock.Anything).
			Times(1).
			Return(&models.URL{ShortCode: "ab12cd", OriginalURL: "https://example.com", AccessCount: 1}, nil)

		suite.e.POST("/v/ab12cd").
			WithForm(map[string]string{challengeTokenField: "token1"}).
			WithRedirectPolicy(httpexpect.DontFollowRedirects).
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual("https://example.com")
	})
}

func (suite *HandlersTestSuite) TestGetURLStats() {
	suite.Run("url not found", func() {
		suite.urlSvcMock.
			On("GetURLStats", mock.Anything, "zzzzzz").
			Times(1).
			Return(nil, database.ErrURLNotFound)

		suite.e.GET("/api/shorten/zzzzzz/stats").
			Expect().
			Status(http.StatusNotFound).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusError).
			HasValue("message", response.ResourceNotFoundResponse.Message)
	})

	suite.Run("success", func() {
		suite.urlSvcMock.
			On("GetURLStats", mock.Anything, "ab12cd").
			Times(1).
			Return(&models.URL{ShortCode: "ab12cd", OriginalURL: "https://example.com", AccessCount: 42}, nil)

		suite.e.GET("/api/shorten/ab12cd/stats").
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			HasValue("status", response.StatusSuccess).
			Value("data").Object().
			HasValue("shortCode", "ab12cd").
			HasValue("originalUrl", "https://example.com").
			HasValue("accessCount", 42)
	})
}

func (suite *HandlersTestSuite) TestNotFound() {
	suite.Run("unknown path", func() {
		suite.e.GET("/unknown/path").
			Expect().
			Status(http.StatusNotFound)
	})
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
