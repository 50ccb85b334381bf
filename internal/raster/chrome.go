package raster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeConverter renders with headless Chrome through chromedp. It needs no
// Inkscape install, only a Chrome or Chromium binary.
type ChromeConverter struct {
	ExecPath string
	Timeout  time.Duration
}

func (c *ChromeConverter) Name() string { return Chrome }

// Convert loads the SVG as a file:// page and saves a full-page PNG
// screenshot.
func (c *ChromeConverter) Convert(ctx context.Context, svgPath, pngPath string) (Result, error) {
	abs, err := filepath.Abs(svgPath)
	if err != nil {
		return Result{}, fmt.Errorf("chrome %s: %w", svgPath, err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		browserCtx, cancel = context.WithTimeout(browserCtx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	var png []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+filepath.ToSlash(abs)),
		chromedp.FullScreenshot(&png, 100),
	)
	res := Result{Duration: time.Since(start)}
	if err != nil {
		if ctx.Err() != nil {
			return res, fmt.Errorf("chrome %s: %w", svgPath, ctx.Err())
		}
		return res, &RetryableError{Converter: Chrome, Message: err.Error(), Err: err}
	}
	if err := os.WriteFile(pngPath, png, 0o644); err != nil {
		return res, fmt.Errorf("write %s: %w", pngPath, err)
	}
	res.Output = fmt.Sprintf("wrote %d bytes", len(png))
	return res, nil
}
