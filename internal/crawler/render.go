package crawler

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeRenderer loads a page in headless Chrome and returns the text of its
// body once the network has gone quiet.
type ChromeRenderer struct {
	timeout   time.Duration
	settle    time.Duration
	idleWait  time.Duration
	userAgent string
	execPath  string
}

func NewChromeRenderer(timeout, settle time.Duration) *ChromeRenderer {
	return &ChromeRenderer{
		timeout:   timeout,
		settle:    settle,
		idleWait:  timeout / 2,
		userAgent: BrowserUserAgent,
	}
}

// WithExecPath points the renderer at a specific Chrome binary.
func (r *ChromeRenderer) WithExecPath(path string) *ChromeRenderer {
	r.execPath = path
	return r
}

func (r *ChromeRenderer) Render(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.UserAgent(r.userAgent))
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	idle := make(chan struct{}, 1)
	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
			select {
			case idle <- struct{}{}:
			default:
			}
		}
	})

	var text string
	err := chromedp.Run(taskCtx,
		page.SetLifecycleEventsEnabled(true),
		chromedp.Navigate(rawURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			select {
			case <-idle:
			case <-time.After(r.idleWait):
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		}),
		chromedp.Sleep(r.settle),
		chromedp.Text("body", &text, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
