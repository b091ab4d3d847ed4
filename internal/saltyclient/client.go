// Package saltyclient is the scraping client that authenticates against the
// betting site, reads the wallet balance and submits wagers.
package saltyclient

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/diegowsan/saltyboyC/internal/config"
	"github.com/diegowsan/saltyboyC/internal/constants"
	"github.com/diegowsan/saltyboyC/internal/domain"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

const (
	loginURL = "https://www.saltybet.com/authenticate?signin=1"
	betURL   = "https://www.saltybet.com/ajax_place_bet.php"
	indexURL = "https://www.saltybet.com/"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

var (
	balanceRe    = regexp.MustCompile(`<span[^>]*id="balance"[^>]*>([\d,]+)<`)
	balanceOldRe = regexp.MustCompile(`<span\s+id="b"[^>]*>([\d,]+)<`)
)

type Client struct {
	client   *fasthttp.Client
	limiter  *rate.Limiter
	logger   zerolog.Logger
	email    string
	password string

	mu       sync.Mutex
	session  string // PHPSESSID cookie value
	loggedIn bool
}

func New(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		client: &fasthttp.Client{
			ReadTimeout:         constants.SaltyRequestTimeout,
			WriteTimeout:        constants.SaltyRequestTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		limiter:  rate.NewLimiter(rate.Every(time.Second), 2),
		logger:   logger,
		email:    cfg.SaltyEmail,
		password: cfg.SaltyPassword,
	}
}

func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn
}

// Login posts the signin form and captures the session cookie.
func (c *Client) Login(ctx context.Context) error {
	if c.email == "" || c.password == "" {
		return fmt.Errorf("missing SALTY_EMAIL or SALTY_PASSWORD")
	}

	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("email", c.email)
	args.Set("pword", c.password)
	args.Set("authenticate", "signin")

	resp, err := c.post(ctx, loginURL, args)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer fasthttp.ReleaseResponse(resp)

	session := sessionCookie(resp)
	if session == "" {
		return fmt.Errorf("login rejected, no session cookie returned")
	}

	c.mu.Lock()
	c.session = session
	c.loggedIn = true
	c.mu.Unlock()

	c.logger.Info().Msg("logged into betting site")
	return nil
}

// Balance scrapes the wallet balance from the main page, retrying a bounded
// number of times with fixed backoff.
func (c *Client) Balance(ctx context.Context) (int64, error) {
	var balance int64
	backoff := retry.WithMaxRetries(constants.SaltyRetryAttempts, retry.NewConstant(constants.SaltyRetryBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := c.get(ctx, indexURL)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer fasthttp.ReleaseResponse(resp)

		if resp.StatusCode() != fasthttp.StatusOK {
			return retry.RetryableError(fmt.Errorf("unexpected status %d", resp.StatusCode()))
		}

		parsed, err := parseBalance(resp.Body())
		if err != nil {
			return err
		}
		balance = parsed
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("balance check failed: %w", err)
	}
	return balance, nil
}

// PlaceBet submits a wager on the given side.
func (c *Client) PlaceBet(ctx context.Context, side domain.Side, wager int64) error {
	player := "player1"
	if side == domain.SideBlue {
		player = "player2"
	}

	backoff := retry.WithMaxRetries(constants.SaltyRetryAttempts, retry.NewConstant(constants.SaltyRetryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		args := fasthttp.AcquireArgs()
		defer fasthttp.ReleaseArgs(args)
		args.Set("selectedplayer", player)
		args.Set("wager", strconv.FormatInt(wager, 10))

		resp, err := c.post(ctx, betURL, args)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer fasthttp.ReleaseResponse(resp)

		if resp.StatusCode() != fasthttp.StatusOK {
			return retry.RetryableError(fmt.Errorf("unexpected status %d", resp.StatusCode()))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to place bet: %w", err)
	}

	c.logger.Info().Int64("wager", wager).Str("side", string(side)).Msg("bet placed")
	return nil
}

func (c *Client) get(ctx context.Context, url string) (*fasthttp.Response, error) {
	return c.do(ctx, fasthttp.MethodGet, url, nil)
}

func (c *Client) post(ctx context.Context, url string, args *fasthttp.Args) (*fasthttp.Response, error) {
	return c.do(ctx, fasthttp.MethodPost, url, args)
}

// do issues a paced request with the session cookie attached. The caller
// owns the returned response and must release it.
func (c *Client) do(ctx context.Context, method, url string, args *fasthttp.Args) (*fasthttp.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.SetUserAgent(userAgent)
	req.Header.SetReferer(indexURL)
	req.Header.Set("Origin", strings.TrimSuffix(indexURL, "/"))

	c.mu.Lock()
	if c.session != "" {
		req.Header.SetCookie("PHPSESSID", c.session)
	}
	c.mu.Unlock()

	if args != nil {
		req.Header.SetContentType("application/x-www-form-urlencoded")
		req.SetBody(args.QueryString())
	}

	if err := c.client.DoTimeout(req, resp, constants.SaltyRequestTimeout); err != nil {
		fasthttp.ReleaseResponse(resp)
		return nil, err
	}
	return resp, nil
}

func sessionCookie(resp *fasthttp.Response) string {
	var session string
	resp.Header.VisitAllCookie(func(key, value []byte) {
		if string(key) != "PHPSESSID" {
			return
		}
		cookie := fasthttp.AcquireCookie()
		defer fasthttp.ReleaseCookie(cookie)
		if err := cookie.ParseBytes(value); err == nil {
			session = string(cookie.Value())
		}
	})
	return session
}

func parseBalance(body []byte) (int64, error) {
	m := balanceRe.FindSubmatch(body)
	if m == nil {
		m = balanceOldRe.FindSubmatch(body)
	}
	if m == nil {
		return 0, fmt.Errorf("balance not found on page")
	}
	raw := strings.ReplaceAll(string(m[1]), ",", "")
	return strconv.ParseInt(raw, 10, 64)
}
