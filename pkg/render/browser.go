package render

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"articlegrab/pkg/config"
	errs "articlegrab/pkg/errors"
	"articlegrab/pkg/logger"
)

// clickJS clicks the first element matching the selector, reporting whether
// one was found. Already-unlocked pages simply have no unlock control.
const clickJS = `(sel) => {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.scrollIntoView({block: "center"});
	el.click();
	return true;
}`

// firstTextJS returns the first non-empty text among the selectors.
const firstTextJS = `(selectors) => {
	for (const sel of selectors) {
		const el = document.querySelector(sel);
		if (el) {
			const t = el.innerText.trim();
			if (t) return t;
		}
	}
	return "";
}`

// Browser is a Renderer backed by a headless (or visible) Chromium. One
// browser serves all pages; each Render call opens and closes its own tab.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      *config.UnlockConfig
	logger   logger.Logger
}

// Launch starts a browser and installs the session cookies so rendered
// pages see the logged-in account.
func Launch(cfg *config.Config, log logger.Logger) (*Browser, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	l := launcher.New().Headless(cfg.Unlock.Headless)
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, errs.New(errs.ErrorTypeRender, 0, "failed to launch browser: %v", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, errs.New(errs.ErrorTypeRender, 0, "failed to connect to browser: %v", err)
	}

	cookies, err := SessionCookies(cfg)
	if err != nil {
		browser.Close()
		l.Cleanup()
		return nil, err
	}
	if err := browser.SetCookies(cookies); err != nil {
		browser.Close()
		l.Cleanup()
		return nil, errs.New(errs.ErrorTypeRender, 0, "failed to set cookies: %v", err)
	}

	log.InfoWithFields("browser launched", map[string]interface{}{
		"headless": cfg.Unlock.Headless,
		"cookies":  len(cookies),
	})
	return &Browser{
		browser:  browser,
		launcher: l,
		cfg:      &cfg.Unlock,
		logger:   log,
	}, nil
}

// SessionCookies converts the configured cookies into browser cookie
// parameters scoped to the target site's registrable domain.
func SessionCookies(cfg *config.Config) ([]*proto.NetworkCookieParam, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Hostname() == "" {
		return nil, errs.New(errs.ErrorTypeRender, 0, "cannot derive cookie domain from base URL %q", cfg.BaseURL)
	}
	domain := u.Hostname()
	// Scope to the parent domain so subdomain hops keep the session.
	if parts := strings.Split(domain, "."); len(parts) > 2 {
		domain = strings.Join(parts[len(parts)-2:], ".")
	}
	domain = "." + domain

	var params []*proto.NetworkCookieParam
	for name, value := range cfg.CleanCookies() {
		params = append(params, &proto.NetworkCookieParam{
			Name:   name,
			Value:  value,
			Domain: domain,
			Path:   "/",
		})
	}
	return params, nil
}

// Render loads the page in a fresh stealth tab, clicks the unlock control
// when present and returns the settled DOM with the extracted text.
func (b *Browser) Render(ctx context.Context, rawURL string) (*Result, error) {
	page, err := stealth.Page(b.browser)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeRender, 0, "failed to open page: %v", err)
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(b.cfg.NavTimeout())
	if err := page.Navigate(rawURL); err != nil {
		return nil, errs.New(errs.ErrorTypeRender, 0, "failed to navigate to %s: %v", rawURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, errs.New(errs.ErrorTypeRender, 0, "page load timed out for %s: %v", rawURL, err)
	}
	if err := sleep(ctx, b.cfg.SettleDelay()); err != nil {
		return nil, err
	}

	clicked := false
	if res, err := page.Eval(clickJS, b.cfg.UnlockSelector); err == nil && res.Value.Bool() {
		clicked = true
		b.logger.WithField("url", rawURL).Debug("unlock control clicked")
		if err := sleep(ctx, b.cfg.RevealDelay()); err != nil {
			return nil, err
		}
	}

	result := &Result{URL: rawURL, Clicked: clicked}
	if res, err := page.Eval(firstTextJS, b.cfg.QuestionSelectors); err == nil {
		result.Question = res.Value.Str()
	}
	if res, err := page.Eval(firstTextJS, b.cfg.AnswerSelectors); err == nil {
		result.Answer = res.Value.Str()
	}

	html, err := page.HTML()
	if err != nil {
		return nil, errs.New(errs.ErrorTypeRender, 0, "failed to read page HTML: %v", err)
	}
	result.HTML = html
	return result, nil
}

// Close shuts the browser down and removes its temp profile.
func (b *Browser) Close() error {
	err := b.browser.Close()
	b.launcher.Cleanup()
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
