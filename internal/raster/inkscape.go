package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// InkscapeConverter shells out to the Inkscape command line.
type InkscapeConverter struct {
	Bin     string
	Timeout time.Duration
}

func (c *InkscapeConverter) Name() string { return Inkscape }

// Convert runs `inkscape --export-filename=<png> <svg>`. A non-zero exit is
// reported as retryable; a missing binary or a cancelled context is not.
func (c *InkscapeConverter) Convert(ctx context.Context, svgPath, pngPath string) (Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, c.Bin, "--export-filename="+pngPath, svgPath)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()

	res := Result{Output: strings.TrimSpace(out.String()), Duration: time.Since(start)}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("inkscape %s: %w", svgPath, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &RetryableError{Converter: Inkscape, Message: res.Output, Err: err}
	}
	return res, fmt.Errorf("inkscape %s: %w", svgPath, err)
}
