// Package upstream adapts the slow upstream ERP form-query RPC into a
// single Go capability. It owns pagination, retry, and circuit-breaking;
// everything past this package deals only in typed records, never in the
// upstream's loose JSON.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/ashgrove-systems/mto-gateway/internal/gwerrors"
)

// Record is a loose field-name to value map as returned by the upstream
// form-query RPC. It must never be passed past the readers package's
// decoders (see internal/readers).
type Record map[string]interface{}

// Query is the capability the rest of the gateway consumes.
type Query interface {
	Query(ctx context.Context, formID string, fields []string, filter string, offset, limit int) ([]Record, error)
}

// Config carries the connection parameters for the upstream RPC.
type Config struct {
	BaseURL        string
	Account        string
	User           string
	AppID          string
	AppSecret      string
	LCID           string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	PageSize       int
	RetryCount     int
}

// Client is a thin request/response adapter over the upstream form-query
// RPC. SDK initialization is guarded by initMu because the upstream SDK is
// not reentrant during connection setup; per-call work itself is safe to
// run concurrently once initialized.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *zap.Logger

	initMu      sync.Mutex
	initialized bool

	breaker *gobreaker.CircuitBreaker
}

// NewClient constructs a Client. The SDK handle (httpClient) is built
// lazily on first use under initMu, matching the teacher's single-mutex
// SDK-initialization discipline.
func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 2000
	}
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 3
	}
	c := &Client{cfg: cfg, log: log}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "upstream-form-query",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return c
}

func (c *Client) ensureInit() {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.initialized {
		return
	}
	c.httpClient = &http.Client{Timeout: c.cfg.RequestTimeout}
	c.initialized = true
}

// Query executes formID against the upstream, paginating by offset until a
// short page arrives, bounded by limit (0 means unbounded). fields and
// filter are passed through to the upstream without interpretation; filter
// must already be a quoted, field-exact expression (internal/readers builds it).
func (c *Client) Query(ctx context.Context, formID string, fields []string, filter string, offset, limit int) ([]Record, error) {
	c.ensureInit()

	pageSize := c.cfg.PageSize
	var out []Record
	nextOffset := offset

	for {
		remaining := 0
		if limit > 0 {
			remaining = limit - len(out)
			if remaining <= 0 {
				break
			}
			if remaining < pageSize {
				pageSize = remaining
			}
		}

		page, err := c.queryOnce(ctx, formID, fields, filter, nextOffset, pageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < pageSize {
			break
		}
		nextOffset += len(page)
	}
	return out, nil
}

func (c *Client) queryOnce(ctx context.Context, formID string, fields []string, filter string, offset, limit int) ([]Record, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var page []Record
		attempt := 0
		berr := retry.Do(ctx, retry.WithMaxRetries(uint64(c.cfg.RetryCount), retry.NewExponential(200*time.Millisecond)), func(ctx context.Context) error {
			attempt++
			p, ferr := c.fetchPage(ctx, formID, fields, filter, offset, limit)
			if ferr != nil {
				if ge, ok := ferr.(*gwerrors.Error); ok && ge.Kind == gwerrors.KindUpstreamUnavailable {
					c.log.Debug("upstream retry", zap.String("form_id", formID), zap.Int("attempt", attempt), zap.Error(ferr))
					return retry.RetryableError(ferr)
				}
				return ferr
			}
			page = p
			return nil
		})
		if berr != nil {
			return nil, berr
		}
		return page, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, gwerrors.Wrap(gwerrors.KindUpstreamUnavailable, "circuit open for "+formID, err)
		}
		return nil, err
	}
	return result.([]Record), nil
}

func (c *Client) fetchPage(ctx context.Context, formID string, fields []string, filter string, offset, limit int) ([]Record, error) {
	url := fmt.Sprintf("%s/form-query/%s", c.cfg.BaseURL, formID)

	body := map[string]interface{}{
		"fields": fields,
		"filter": filter,
		"offset": offset,
		"limit":  limit,
		"lcid":   c.cfg.LCID,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindInternalError, "failed to encode query body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindInternalError, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.cfg.User, c.cfg.AppSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUpstreamUnavailable, "transport failure calling "+formID, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUpstreamUnavailable, "failed to read response body for "+formID, err)
	}

	if resp.StatusCode >= 500 {
		return nil, gwerrors.Newf(gwerrors.KindUpstreamUnavailable, "upstream %s returned status %d", formID, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, gwerrors.Newf(gwerrors.KindUpstreamQueryError, "upstream %s returned status %d: %s", formID, resp.StatusCode, string(respBody))
	}

	records, err := parseRecords(respBody)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUpstreamQueryError, "failed to parse response for "+formID, err)
	}
	return records, nil
}

// parseRecords pulls the "records" array out of the upstream's loose
// response envelope using gjson rather than a fully-typed struct, since the
// envelope shape is not contractually stable. Each element is decoded into
// a plain Record; typed decoding happens in internal/readers.
func parseRecords(body []byte) ([]Record, error) {
	result := gjson.GetBytes(body, "records")
	if !result.Exists() || !result.IsArray() {
		return nil, fmt.Errorf("response has no records array")
	}

	var records []Record
	var decodeErr error
	result.ForEach(func(_, value gjson.Result) bool {
		var rec Record
		if err := json.Unmarshal([]byte(value.Raw), &rec); err != nil {
			decodeErr = err
			return false
		}
		records = append(records, rec)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return records, nil
}
