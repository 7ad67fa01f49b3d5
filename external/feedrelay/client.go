package feedrelay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchboard/internal/domain/match"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
	"github.com/riskibarqy/matchboard/internal/platform/resilience"
	"github.com/riskibarqy/matchboard/internal/usecase"
)

const (
	DefaultRelayURL = "https://api.allorigins.win/raw"
	DefaultFileID   = "1XaNxtyayxsF_A8jQJecmHQQHArarf-u2"

	driveDownloadURL = "https://drive.google.com/uc?export=download&id="
	maxFeedBytes     = 16 << 20
)

var errRelayTransient = crerr.New("feed relay transient failure")

// DriveDownloadURL is the direct download link of a shared Drive file.
func DriveDownloadURL(fileID string) string {
	return driveDownloadURL + strings.TrimSpace(fileID)
}

type ClientConfig struct {
	HTTPClient *http.Client
	// RelayURL is the CORS relay endpoint. Empty fetches SourceURL directly.
	RelayURL       string
	SourceURL      string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client downloads the match spreadsheet export through a relay. It does
// not retry; the caller decides when to fetch again.
type Client struct {
	httpClient *http.Client
	fetchURL   string
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
}

func NewClient(cfg ClientConfig) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	sourceURL := strings.TrimSpace(cfg.SourceURL)
	if sourceURL == "" {
		sourceURL = DriveDownloadURL(DefaultFileID)
	}
	fetchURL, err := BuildFetchURL(cfg.RelayURL, sourceURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient: httpClient,
		fetchURL:   fetchURL,
		logger:     logger.With("component", "feedrelay"),
		breaker:    resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker),
	}, nil
}

// BuildFetchURL wraps sourceURL in the relay's url parameter.
func BuildFetchURL(relayURL, sourceURL string) (string, error) {
	if _, err := url.ParseRequestURI(sourceURL); err != nil {
		return "", crerr.Wrapf(err, "invalid feed source url %q", sourceURL)
	}

	relayURL = strings.TrimSpace(relayURL)
	if relayURL == "" {
		return sourceURL, nil
	}
	relay, err := url.ParseRequestURI(relayURL)
	if err != nil {
		return "", crerr.Wrapf(err, "invalid feed relay url %q", relayURL)
	}

	param := "url=" + encodeURIComponent(sourceURL)
	if relay.RawQuery == "" {
		relay.RawQuery = param
	} else {
		relay.RawQuery += "&" + param
	}
	return relay.String(), nil
}

// FetchURL is the URL requested on every fetch.
func (c *Client) FetchURL() string {
	return c.fetchURL
}

func (c *Client) FetchRecords(ctx context.Context) ([]match.RawRecord, error) {
	var records []match.RawRecord
	err := c.breaker.Execute(func() error {
		raw, err := c.executeRequest(ctx)
		if err != nil {
			return err
		}

		var rows []map[string]any
		if err := sonic.Unmarshal(raw, &rows); err != nil {
			return crerr.Wrapf(err, "decode feed payload body=%s", abbreviateBody(raw))
		}
		records = make([]match.RawRecord, 0, len(rows))
		for _, row := range rows {
			records = append(records, match.RawRecord(row))
		}
		return nil
	}, isRelayCircuitFailure)
	if crerr.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "feed relay circuit breaker rejected request", "state", c.breaker.State())
		return nil, fmt.Errorf("%w: feed relay is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) executeRequest(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fetchURL, nil)
	if err != nil {
		return nil, crerr.Wrap(err, "build request")
	}
	req.Header.Set("accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, crerr.Mark(crerr.Wrap(err, "send request"), errRelayTransient)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, crerr.Mark(crerr.Wrap(err, "read response body"), errRelayTransient)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := crerr.Newf("relay status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
		if isRetryableStatus(resp.StatusCode) {
			statusErr = crerr.Mark(statusErr, errRelayTransient)
		}
		c.logger.WarnContext(ctx, "feed relay request failed",
			"status", resp.StatusCode,
			"duration", time.Since(started),
		)
		return nil, statusErr
	}

	c.logger.DebugContext(ctx, "feed relay request done",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"duration", time.Since(started),
	)
	return raw, nil
}

func isRelayCircuitFailure(err error) bool {
	return crerr.Is(err, errRelayTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// encodeURIComponent escapes like the browser function of the same name.
func encodeURIComponent(value string) string {
	escaped := url.QueryEscape(value)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	for _, keep := range []string{"!", "'", "(", ")", "*"} {
		escaped = strings.ReplaceAll(escaped, url.QueryEscape(keep), keep)
	}
	return escaped
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
