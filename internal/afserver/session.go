// Package afserver drives the AlphaFold Server web UI through a single
// automated browser session. It is the only place that inspects raw page
// state; everything it reports upward is the canonical driver status
// enum. One session must never be shared by two controllers.
package afserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// Config holds the browser-side settings for one session.
type Config struct {
	ServerURL   string
	Headless    bool
	Bin         string
	DebuggerURL string
	Email       string
	Password    string

	// How long to wait for any single page element before giving up.
	ElementTimeout time.Duration
}

func (c Config) elementTimeout() time.Duration {
	if c.ElementTimeout <= 0 {
		return 15 * time.Second
	}
	return c.ElementTimeout
}

func (c Config) serverURL() string {
	if strings.TrimSpace(c.ServerURL) == "" {
		return "https://alphafoldserver.com"
	}
	return c.ServerURL
}

// Session owns the browser and the single page used for every
// submit/poll/download operation.
type Session struct {
	cfg     Config
	browser *rod.Browser
	page    *rod.Page
	logger  *zap.Logger
}

// Open launches (or attaches to) a browser, navigates to the server and
// performs the login flow. A failure here is fatal to the whole run.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	controlURL := cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(cfg.Headless)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		url, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: cfg.serverURL()})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("open server page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("load server page: %w", err)
	}

	s := &Session{cfg: cfg, browser: browser, page: page, logger: logger}
	if err := s.login(); err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("login: %w", err)
	}
	logger.Info("execution session established", zap.String("server", cfg.serverURL()))
	return s, nil
}

// Close releases the browser. The session must not be used afterwards.
func (s *Session) Close() error {
	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	s.page = nil
	return err
}

// login walks the external identity flow. Already-authenticated sessions
// (persistent browser profile) short-circuit on the submit form.
func (s *Session) login() error {
	timeout := s.cfg.elementTimeout()

	// already signed in if the entity form is reachable
	if has, _, _ := s.page.Has(selSequenceInput); has {
		return nil
	}

	signIn, err := s.page.Timeout(timeout).ElementR("button, a", "/continue|sign in/i")
	if err != nil {
		return fmt.Errorf("sign-in control not found: %w", err)
	}
	if err := signIn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click sign-in: %w", err)
	}

	email, err := s.page.Timeout(timeout).Element(`input[type="email"]`)
	if err != nil {
		return fmt.Errorf("email field not found: %w", err)
	}
	if err := email.Input(s.cfg.Email); err != nil {
		return fmt.Errorf("fill email: %w", err)
	}
	if err := email.Type(input.Enter); err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}

	password, err := s.page.Timeout(timeout).Element(`input[type="password"]`)
	if err != nil {
		return fmt.Errorf("password field not found: %w", err)
	}
	if err := password.Input(s.cfg.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	if err := password.Type(input.Enter); err != nil {
		return fmt.Errorf("confirm password: %w", err)
	}

	if err := s.page.WaitLoad(); err != nil {
		return fmt.Errorf("post-login load: %w", err)
	}
	if _, err := s.page.Timeout(timeout).Element(selSequenceInput); err != nil {
		return fmt.Errorf("submit form not reachable after login: %w", err)
	}
	return nil
}
