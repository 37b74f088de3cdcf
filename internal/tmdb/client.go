package tmdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/mmcdole/cinelist/internal/domain"
)

const (
	// PageSize is the fixed number of results TMDB returns per list page
	PageSize = 20

	DefaultBaseURL = "https://api.themoviedb.org/3"
	DefaultAuthURL = "https://www.themoviedb.org"

	defaultTimeout   = 30 * time.Second
	defaultRetryWait = 500 * time.Millisecond
	userAgent        = "cinelist/1.0"
)

// ClientConfig holds what the client needs to reach TMDB
type ClientConfig struct {
	BaseURL   string
	APIKey    string
	SessionID string
	AccountID int
	Timeout   time.Duration
	RetryMax  int
	RetryWait time.Duration // Minimum wait between retries
}

// Client implements domain.WatchListSource, domain.MovieSource,
// domain.SearchClient, domain.CatalogClient and domain.AccountClient for TMDB
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger

	mu        sync.RWMutex
	sessionID string
	accountID int
}

// APIError is a non-2xx TMDB response
type APIError struct {
	Status  int    // HTTP status
	Code    int    // TMDB status_code, 0 if absent
	Message string // TMDB status_message, may be empty
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("tmdb: %s (status %d, code %d)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("tmdb: unexpected status code: %d", e.Status)
}

// Unwrap maps well-known statuses onto domain errors
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return domain.ErrAuthFailed
	case http.StatusNotFound:
		return domain.ErrNotFound
	}
	return nil
}

// NewClient creates a TMDB API client with retrying transport
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retryWait := cfg.RetryWait
	if retryWait <= 0 {
		retryWait = defaultRetryWait
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = timeout
	retryClient.RetryMax = max(cfg.RetryMax, 0)
	retryClient.RetryWaitMin = retryWait
	retryClient.RetryWaitMax = 10 * retryWait
	retryClient.Logger = &retryLogger{logger: logger}
	// Hand the last response back so status codes map to domain errors
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: retryClient.StandardClient(),
		logger:     logger,
		sessionID:  cfg.SessionID,
		accountID:  cfg.AccountID,
	}
}

// retryLogger adapts slog to retryablehttp.LeveledLogger. Per-attempt
// chatter is demoted to debug.
type retryLogger struct {
	logger *slog.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Warn("tmdb retry: "+msg, keysAndValues...)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("tmdb retry: "+msg, keysAndValues...)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("tmdb retry: "+msg, keysAndValues...)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn("tmdb retry: "+msg, keysAndValues...)
}

// SetSession updates the session used for account endpoints
func (c *Client) SetSession(sessionID string, accountID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sessionID
	c.accountID = accountID
}

// Session returns the current session id and account id
func (c *Client) Session() (string, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID, c.accountID
}

// doRequest performs a request against the API and returns the body of a 2xx response
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	if sid, _ := c.Session(); sid != "" && query.Get("session_id") == "" {
		query.Set("session_id", sid)
	}
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json;charset=utf-8")
	}

	c.logger.Debug("tmdb request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Error("tmdb request failed", "error", err, "path", path)
		return nil, domain.ErrServerOffline
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var status StatusResponse
		if json.Unmarshal(respBody, &status) == nil {
			apiErr.Code = status.StatusCode
			apiErr.Message = status.StatusMessage
		}
		c.logger.Error("tmdb request error",
			"status", resp.StatusCode, "code", apiErr.Code, "message", apiErr.Message, "path", path)
		return nil, apiErr
	}

	return respBody, nil
}

// getJSON performs a GET and decodes the body into out
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return c.decode(body, out)
}

// sendJSON performs a request with a JSON body and decodes the response into out
func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	body, err := c.doRequest(ctx, method, path, nil, in)
	if err != nil {
		return err
	}
	return c.decode(body, out)
}

func (c *Client) decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error("JSON parse error", "error", err, "bodyLen", len(body))
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// accountPath resolves /account/{id}, looking the account up once if only a
// session is known
func (c *Client) accountPath(ctx context.Context) (string, error) {
	sid, accountID := c.Session()
	if sid == "" {
		return "", domain.ErrSessionRequired
	}
	if accountID == 0 {
		acct, err := c.Account(ctx)
		if err != nil {
			return "", err
		}
		accountID = acct.ID
	}
	return "/account/" + strconv.Itoa(accountID), nil
}

// Account returns the account the session belongs to
func (c *Client) Account(ctx context.Context) (domain.Account, error) {
	sid, _ := c.Session()
	if sid == "" {
		return domain.Account{}, domain.ErrSessionRequired
	}

	var resp AccountResponse
	if err := c.getJSON(ctx, "/account", nil, &resp); err != nil {
		return domain.Account{}, err
	}

	c.mu.Lock()
	if c.sessionID == sid && c.accountID == 0 {
		c.accountID = resp.ID
	}
	c.mu.Unlock()

	return MapAccount(resp), nil
}

// FetchWatchListPage returns one page of the account's movie watch list
func (c *Client) FetchWatchListPage(ctx context.Context, page int, sort domain.SortOrder) (domain.Page[domain.Movie], error) {
	path, err := c.accountPath(ctx)
	if err != nil {
		return domain.Page[domain.Movie]{}, err
	}
	if sort == "" {
		sort = domain.SortCreatedDesc
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(max(page, 1)))
	query.Set("sort_by", string(sort))

	var resp MoviePage
	if err := c.getJSON(ctx, path+"/watchlist/movies", query, &resp); err != nil {
		return domain.Page[domain.Movie]{}, err
	}
	return MapMoviePage(resp), nil
}

// AccountStates returns the account's state for a movie
func (c *Client) AccountStates(ctx context.Context, movieID int) (AccountStates, error) {
	if sid, _ := c.Session(); sid == "" {
		return AccountStates{}, domain.ErrSessionRequired
	}
	var resp AccountStates
	path := fmt.Sprintf("/movie/%d/account_states", movieID)
	if err := c.getJSON(ctx, path, nil, &resp); err != nil {
		return AccountStates{}, err
	}
	return resp, nil
}

// ConfirmAdd adds the movie to the watch list unless it is already there
func (c *Client) ConfirmAdd(ctx context.Context, movieID int) (domain.AddConfirmation, error) {
	states, err := c.AccountStates(ctx, movieID)
	if err != nil {
		return domain.AddConfirmation{}, err
	}
	if states.Watchlist {
		return domain.AddConfirmation{AlreadyPresent: true}, nil
	}

	ok, err := c.setWatchlist(ctx, movieID, true)
	if err != nil {
		return domain.AddConfirmation{}, err
	}
	return domain.AddConfirmation{Success: ok}, nil
}

// ConfirmRemove removes the movie from the watch list
func (c *Client) ConfirmRemove(ctx context.Context, movieID int) (bool, error) {
	return c.setWatchlist(ctx, movieID, false)
}

func (c *Client) setWatchlist(ctx context.Context, movieID int, watchlist bool) (bool, error) {
	path, err := c.accountPath(ctx)
	if err != nil {
		return false, err
	}

	in := WatchlistRequest{MediaType: "movie", MediaID: movieID, Watchlist: watchlist}
	var status StatusResponse
	if err := c.sendJSON(ctx, http.MethodPost, path+"/watchlist", in, &status); err != nil {
		return false, err
	}
	if !status.OK() {
		c.logger.Warn("watch list update not accepted",
			"movieID", movieID, "watchlist", watchlist, "code", status.StatusCode, "message", status.StatusMessage)
		return false, nil
	}
	return true, nil
}

// PopularMovies returns a page of popular movies, optionally for a region
func (c *Client) PopularMovies(ctx context.Context, page int, region string) (domain.Page[domain.Movie], error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(max(page, 1)))
	if region != "" {
		query.Set("region", region)
	}

	var resp MoviePage
	if err := c.getJSON(ctx, "/movie/popular", query, &resp); err != nil {
		return domain.Page[domain.Movie]{}, err
	}
	return MapMoviePage(resp), nil
}

// SearchMovies searches the movie catalog
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (domain.Page[domain.Movie], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Page[domain.Movie]{}, nil
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(max(page, 1)))
	q.Set("include_adult", "false")

	var resp MoviePage
	if err := c.getJSON(ctx, "/search/movie", q, &resp); err != nil {
		return domain.Page[domain.Movie]{}, err
	}
	return MapMoviePage(resp), nil
}

// Genres returns the movie genre list
func (c *Client) Genres(ctx context.Context) ([]domain.Genre, error) {
	var resp GenreList
	if err := c.getJSON(ctx, "/genre/movie/list", nil, &resp); err != nil {
		return nil, err
	}
	return MapGenres(resp), nil
}

// Countries returns the countries TMDB knows about
func (c *Client) Countries(ctx context.Context) ([]domain.Country, error) {
	var resp []CountryResult
	if err := c.getJSON(ctx, "/configuration/countries", nil, &resp); err != nil {
		return nil, err
	}
	return MapCountries(resp), nil
}

// CreateRequestToken starts an authentication by requesting a fresh token
func (c *Client) CreateRequestToken(ctx context.Context) (string, error) {
	var resp RequestTokenResponse
	if err := c.getJSON(ctx, "/authentication/token/new", nil, &resp); err != nil {
		return "", err
	}
	if !resp.Success || resp.RequestToken == "" {
		return "", fmt.Errorf("request token not issued: %w", domain.ErrRemoteRejected)
	}
	c.logger.Info("request token created", "expiresAt", resp.ExpiresAt)
	return resp.RequestToken, nil
}

// ValidateWithLogin approves a request token with account credentials
func (c *Client) ValidateWithLogin(ctx context.Context, username, password, token string) (string, error) {
	in := loginRequest{Username: username, Password: password, RequestToken: token}
	var resp RequestTokenResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/authentication/token/validate_with_login", in, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", domain.ErrAuthFailed
	}
	return resp.RequestToken, nil
}

// CreateSession exchanges an approved request token for a session id.
// An unapproved token fails with domain.ErrAuthFailed.
func (c *Client) CreateSession(ctx context.Context, token string) (string, error) {
	var resp SessionResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/authentication/session/new", tokenRequest{RequestToken: token}, &resp); err != nil {
		return "", err
	}
	if !resp.Success || resp.SessionID == "" {
		return "", domain.ErrAuthFailed
	}
	c.logger.Info("session created")
	return resp.SessionID, nil
}

// DeleteSession ends the current session remotely and forgets it locally
func (c *Client) DeleteSession(ctx context.Context) error {
	sid, _ := c.Session()
	if sid == "" {
		return nil
	}

	var status StatusResponse
	err := c.sendJSON(ctx, http.MethodDelete, "/authentication/session", sessionRequest{SessionID: sid}, &status)
	c.SetSession("", 0)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
