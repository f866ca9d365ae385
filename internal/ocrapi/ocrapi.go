//go:build ocr

// Package ocrapi implements the external ocr port (spec §6) over the
// Tesseract engine via gosseract, for raster regions the Image/Region
// Extractor flags as containing text (scanned figures, screenshots of
// tables) that the PDF's own text layer never covered.
//
// Tesseract requires cgo and a system install, so this file is gated
// behind the "ocr" build tag; ocrapi_stub.go provides a build without that
// requirement, returning ErrOCRNotEnabled from every call.
package ocrapi

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Client wraps Tesseract for single-region OCR.
type Client struct {
	client *gosseract.Client
}

// New creates an OCR client with the given recognition language (e.g.
// "eng", "eng+fra"). The client must be closed when no longer needed.
func New(lang string) (*Client, error) {
	client := gosseract.NewClient()
	if lang != "" {
		if err := client.SetLanguage(lang); err != nil {
			client.Close()
			return nil, fmt.Errorf("set OCR language: %w", err)
		}
	}
	return &Client{client: client}, nil
}

// Close releases Tesseract resources.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Recognize performs OCR on raster image bytes (PNG, JPEG, TIFF, etc.) and
// returns the recognized text, trimmed.
func (c *Client) Recognize(imageData []byte) (string, error) {
	if err := c.client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("set OCR image: %w", err)
	}
	text, err := c.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR recognition failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}
