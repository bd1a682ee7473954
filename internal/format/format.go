// Package format provides the default rich-text message formatter.
package format

import (
	"bytes"
	"fmt"

	"github.com/starmarkhq/starmark/internal/host"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown returns a formatter that renders chat markdown to HTML. The
// formatter is fallible by contract; panics inside the renderer surface as
// errors so callers can fall back to the raw text.
func Markdown() host.Formatter {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)
	return func(text, _ string, _ bool, messageID string) (out string, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("format message %s: %v", messageID, r)
			}
		}()
		var buf bytes.Buffer
		if err := md.Convert([]byte(text), &buf); err != nil {
			return "", fmt.Errorf("format message %s: %w", messageID, err)
		}
		return buf.String(), nil
	}
}
