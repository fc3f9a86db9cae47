package donorperfect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/donorsync/pkg/config"
	"github.com/fatflowers/donorsync/pkg/logctx"
	"github.com/fatflowers/donorsync/pkg/metrics"
)

const (
	ActionSaveDonor  = "dp_savedonor"
	ActionSaveGift   = "dp_savegift"
	ActionSavePledge = "dp_savepledge"
	ActionSaveCode   = "dp_savecode"
	actionQuery      = "query"

	defaultBaseURL = "https://www.donorperfect.net/prod/xmlrequest.asp"
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20
)

// Client talks to the DonorPerfect XML API. Every method is a single HTTP round trip;
// there is no retry and no caching.
type Client struct {
	apiKey     string
	baseURL    string
	userID     string
	timeout    time.Duration
	httpClient *http.Client
	log        *zap.SugaredLogger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func NewClient(cfg *config.Config, log *zap.SugaredLogger, opts ...Option) *Client {
	dp := cfg.DonorPerfect
	c := &Client{
		apiKey:  dp.APIKey,
		baseURL: dp.BaseURL,
		userID:  dp.UserID,
		timeout: dp.Timeout,
		log:     log,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.userID == "" {
		c.userID = "GiveWP_Sync"
	}
	c.httpClient = &http.Client{Timeout: c.timeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

// CallProcedure executes a stored procedure with named parameters.
func (c *Client) CallProcedure(ctx context.Context, action string, params Params) (*Result, error) {
	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("action", action)
	q.Set("params", params.Encode())
	return c.execute(ctx, action, q)
}

// Query executes a direct SELECT statement.
func (c *Client) Query(ctx context.Context, sql string) (*Result, error) {
	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("action", sql)
	return c.execute(ctx, actionQuery, q)
}

// FindDonorByEmail returns the donor id of the first donor with the given email.
// found is false when the query succeeded and matched nothing.
func (c *Client) FindDonorByEmail(ctx context.Context, email string) (int64, bool, error) {
	res, err := c.Query(ctx, fmt.Sprintf("SELECT TOP 1 donor_id FROM dp WHERE email=%s", quote(email)))
	if err != nil {
		return 0, false, err
	}
	if !res.HasRecords() {
		return 0, false, nil
	}
	v, ok := res.Records[0].Get("donor_id")
	if !ok {
		return 0, false, nil
	}
	id, err := parsePositive(v)
	if err != nil {
		return 0, false, newError(ErrProtocol, actionQuery, "invalid donor_id "+v, err)
	}
	return id, true, nil
}

func (c *Client) CreateDonor(ctx context.Context, in DonorInput) (int64, error) {
	return c.save(ctx, ActionSaveDonor, "donor_id", in.params(c.userID))
}

func (c *Client) CreateGift(ctx context.Context, in GiftInput) (int64, error) {
	return c.save(ctx, ActionSaveGift, "gift_id", in.params(c.userID))
}

func (c *Client) CreatePledge(ctx context.Context, in PledgeInput) (int64, error) {
	return c.save(ctx, ActionSavePledge, "gift_id", in.params(c.userID))
}

// CreateCode adds a code value to DPCODES.
func (c *Client) CreateCode(ctx context.Context, in CodeInput) error {
	_, err := c.CallProcedure(ctx, ActionSaveCode, in.params(c.userID))
	return err
}

// CodeExists checks DPCODES for a code under the given field name.
func (c *Client) CodeExists(ctx context.Context, fieldName, code string) (bool, error) {
	res, err := c.Query(ctx, fmt.Sprintf("SELECT code FROM DPCODES WHERE field_name=%s AND code=%s", quote(fieldName), quote(code)))
	if err != nil {
		return false, err
	}
	return res.HasRecords(), nil
}

func (c *Client) save(ctx context.Context, action, idField string, params Params) (int64, error) {
	res, err := c.CallProcedure(ctx, action, params)
	if err != nil {
		return 0, err
	}
	id, ok := res.ID(idField)
	if !ok || id <= 0 {
		return 0, newError(ErrProtocol, action, "No ID returned from API", nil)
	}
	return id, nil
}

func (c *Client) execute(ctx context.Context, action string, q url.Values) (res *Result, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		switch {
		case errors.Is(err, ErrRejected):
			outcome = "rejected"
		case errors.Is(err, ErrProtocol):
			outcome = "protocol"
		case err != nil:
			outcome = "transport"
		}
		metrics.ObserveCRMCall(action, outcome, start)
		logctx.FromCtx(ctx, c.log).Debugw("donorperfect_call", "action", action, "outcome", outcome, "elapsed_ms", time.Since(start).Milliseconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, newError(ErrTransport, action, "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newError(ErrTransport, action, "request failed", redact(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, newError(ErrTransport, action, "read body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newError(ErrTransport, action, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200)), nil)
	}
	return parseResult(action, body)
}

// redact strips the request URL, which carries the API key, from transport errors.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}

func parsePositive(s string) (int64, error) {
	var id int64
	if _, err := fmt.Sscan(strings.TrimSpace(s), &id); err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("non-positive id %d", id)
	}
	return id, nil
}

var Module = fx.Options(
	fx.Provide(func(cfg *config.Config, log *zap.SugaredLogger) *Client { return NewClient(cfg, log) }),
)
