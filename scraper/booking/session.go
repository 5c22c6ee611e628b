package booking

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"kayak-destinations/utils"

	"github.com/chromedp/chromedp"
)

// ErrSessionClosed is returned by a Session used after Close.
var ErrSessionClosed = errors.New("browser session closed")

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 12_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// Card is one property card as read from the results page.
type Card struct {
	Title string `json:"title"`
	Score string `json:"score"`
	Price string `json:"price"`
	URL   string `json:"url"`
}

// SessionOptions configures the browser.
type SessionOptions struct {
	Headless        bool
	PageLoadTimeout time.Duration
}

// Session owns one Chrome instance for the whole run. The browser starts on
// the first FetchCards and is shut down by Close; every page reuses it.
type Session struct {
	opts   SessionOptions
	logger *utils.Logger

	mu        sync.Mutex
	browser   context.Context
	cancel    context.CancelFunc
	closed    bool
	closeOnce sync.Once
}

// NewSession creates a session. No browser is started yet.
func NewSession(opts SessionOptions, logger *utils.Logger) *Session {
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = 30 * time.Second
	}
	return &Session{opts: opts, logger: logger}
}

// context returns the browser context, starting Chrome if needed
func (s *Session) context() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.browser != nil {
		return s.browser, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("log-level", "3"), // suppress Chrome logs
		chromedp.UserAgent(userAgents[rand.IntN(len(userAgents))]),
		chromedp.WindowSize(1280, 900),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	cancel := func() {
		cancelBrowser()
		cancelAlloc()
	}

	// An empty Run launches the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	s.logger.Info("Browser session started (headless=%v)", s.opts.Headless)
	s.browser, s.cancel = browserCtx, cancel
	return s.browser, nil
}

// FetchCards loads pageURL and returns at most max property cards.
func (s *Session) FetchCards(ctx context.Context, pageURL string, max int) ([]Card, error) {
	browser, err := s.context()
	if err != nil {
		return nil, err
	}

	pageCtx, cancel := context.WithTimeout(browser, s.opts.PageLoadTimeout+30*time.Second)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	navCtx, cancelNav := context.WithTimeout(pageCtx, s.opts.PageLoadTimeout)
	err = chromedp.Run(navCtx, chromedp.Navigate(pageURL))
	cancelNav()
	if err != nil {
		return nil, fmt.Errorf("navigate failed: %w", err)
	}
	if err := chromedp.Run(pageCtx, chromedp.Sleep(3*time.Second)); err != nil {
		return nil, err
	}

	var clicked bool
	if err := chromedp.Run(pageCtx, chromedp.Evaluate(acceptCookiesJS, &clicked)); err != nil {
		s.logger.Debug("Cookie banner check failed: %v", err)
	}
	if clicked {
		s.logger.Debug("Cookie banner accepted")
		_ = chromedp.Run(pageCtx, chromedp.Sleep(time.Second))
	}

	if err := s.scroll(pageCtx); err != nil {
		return nil, fmt.Errorf("scroll failed: %w", err)
	}

	var cards []Card
	if err := chromedp.Run(pageCtx, chromedp.Evaluate(fmt.Sprintf(extractCardsJS, max), &cards)); err != nil {
		return nil, fmt.Errorf("card JS failed: %w", err)
	}
	return cards, nil
}

// scroll loads lazy results: up to 10 steps of 1200px, stopping as soon as
// the page height stops growing.
func (s *Session) scroll(ctx context.Context) error {
	var last int
	for i := 0; i < 10; i++ {
		var height int
		err := chromedp.Run(ctx,
			chromedp.Evaluate(`window.scrollBy(0, 1200)`, nil),
			chromedp.Sleep(600*time.Millisecond+rand.N(600*time.Millisecond)),
			chromedp.Evaluate(`document.body.dispatchEvent(new MouseEvent('mousemove', {clientX: 100, clientY: 200}))`, nil),
			chromedp.Evaluate(`document.body.scrollHeight`, &height),
		)
		if err != nil {
			return err
		}
		if height == last {
			break
		}
		last = height
	}
	return nil
}

// Close shuts the browser down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		if s.cancel != nil {
			s.cancel()
			s.logger.Info("Browser session closed")
		}
		s.browser, s.cancel = nil, nil
	})
}

const acceptCookiesJS = `
(function() {
	var btn = document.querySelector("button[aria-label='Accepter']");
	if (!btn) return false;
	btn.click();
	return true;
})()`

const extractCardsJS = `
(function(max) {
	var out = [];
	var cards = document.querySelectorAll("[data-testid='property-card']");
	for (var i = 0; i < cards.length && i < max; i++) {
		var card = cards[i];
		var text = function(sel) {
			var el = card.querySelector(sel);
			return el ? el.innerText.trim() : '';
		};
		var link = card.querySelector('a');
		out.push({
			title: text("[data-testid='title']"),
			score: text("[data-testid='review-score']"),
			price: text("[data-testid='price-and-discounted-price']"),
			url: link ? (link.href || '') : ''
		});
	}
	return out;
})(%d)`
