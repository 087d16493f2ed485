package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	ErrEmptyContent     = errors.New("qr code content cannot be empty")
	ErrGenerationFailed = errors.New("failed to generate qr code")
)

const (
	defaultSize = 200
	maxSize     = 1024
)

type options struct {
	size    int
	level   skipqrcode.RecoveryLevel
	noFrame bool
}

// Option configures rendering.
type Option func(*options)

// WithSize sets the image width and height in pixels. Values outside
// (0, 1024] fall back to the default of 200.
func WithSize(px int) Option {
	return func(o *options) {
		if px > 0 && px <= maxSize {
			o.size = px
		}
	}
}

// WithHighRecovery trades density for error correction, useful when the
// code is printed.
func WithHighRecovery() Option {
	return func(o *options) {
		o.level = skipqrcode.High
	}
}

// WithoutBorder drops the quiet zone.
func WithoutBorder() Option {
	return func(o *options) {
		o.noFrame = true
	}
}

// PNG renders content as a PNG image.
func PNG(content string, opts ...Option) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	o := options{size: defaultSize, level: skipqrcode.Medium}
	for _, opt := range opts {
		opt(&o)
	}

	code, err := skipqrcode.New(content, o.level)
	if err != nil {
		return nil, errors.Join(ErrGenerationFailed, err)
	}
	code.DisableBorder = o.noFrame

	img, err := code.PNG(o.size)
	if err != nil {
		return nil, errors.Join(ErrGenerationFailed, err)
	}
	return img, nil
}

// DataURI renders content as a data:image/png;base64 URI for inline <img>.
func DataURI(content string, opts ...Option) (string, error) {
	img, err := PNG(content, opts...)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(img), nil
}
