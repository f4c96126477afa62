// Package qrcode renders provisioning URIs as PNG QR codes for authenticator
// apps to scan.
package qrcode

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the image edge in pixels used when none is configured.
const DefaultSize = 256

var (
	ErrEmptyContent = errors.New("qrcode: empty content")
	ErrEncode       = errors.New("qrcode: encode failed")
)

// Renderer turns text into an inline image.
type Renderer interface {
	DataURI(content string) (string, error)
}

// PNG renders medium error-correction PNG codes of a fixed size.
type PNG struct {
	size int
}

func NewPNG(size int) *PNG {
	if size <= 0 {
		size = DefaultSize
	}
	return &PNG{size: size}
}

// Encode returns the raw PNG bytes for content.
func (p *PNG) Encode(content string) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	png, err := skipqrcode.Encode(content, skipqrcode.Medium, p.size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	return png, nil
}

// DataURI returns the PNG as a data:image/png;base64 URI, ready for an
// <img src>.
func (p *PNG) DataURI(content string) (string, error) {
	png, err := p.Encode(content)
	if err != nil {
		return "", err
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
