// Package raster converts finished SVG documents to PNG with an external
// renderer.
package raster

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Converter names accepted by New.
const (
	Inkscape = "inkscape"
	Chrome   = "chrome"
	None     = "none"
)

// Converter renders the SVG at svgPath to a PNG at pngPath.
type Converter interface {
	Convert(ctx context.Context, svgPath, pngPath string) (Result, error)
	Name() string
}

// Result describes one conversion.
type Result struct {
	Output   string        // Captured converter output, for the run log
	Duration time.Duration // Wall time of the conversion
}

// Options configures the converters returned by New.
type Options struct {
	InkscapeBin string // Inkscape executable (default "inkscape")
	ChromeBin   string // Chrome executable; empty lets chromedp find one
	Timeout     time.Duration
}

// ErrDisabled is returned by New for the "none" converter.
var ErrDisabled = errors.New("raster conversion disabled")

// New returns the converter called name.
func New(name string, opts Options) (Converter, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	switch name {
	case Inkscape, "":
		bin := opts.InkscapeBin
		if bin == "" {
			bin = "inkscape"
		}
		return &InkscapeConverter{Bin: bin, Timeout: opts.Timeout}, nil
	case Chrome:
		return &ChromeConverter{ExecPath: opts.ChromeBin, Timeout: opts.Timeout}, nil
	case None:
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unknown converter %q", name)
	}
}

// RetryableError indicates a converter failure that may succeed on retry.
type RetryableError struct {
	Converter string
	Message   string
	Err       error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable %s failure: %s", e.Converter, truncate(e.Message, 200))
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
