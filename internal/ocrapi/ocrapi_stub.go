//go:build !ocr

// Package ocrapi implements the external ocr port (spec §6).
//
// This is the stub build used when the "ocr" tag is not set. All functions
// return ErrOCRNotEnabled; the pipeline treats this the same as any other
// recoverable extraction failure (spec §7) and continues without OCR text
// for the affected region.
package ocrapi

import "errors"

// ErrOCRNotEnabled is returned when OCR is invoked but not compiled in.
// Rebuild with -tags ocr, with Tesseract installed, to enable it.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Client is a stub OCR client that returns ErrOCRNotEnabled for everything.
type Client struct{}

// New returns an error indicating OCR support is not enabled.
func New(lang string) (*Client, error) {
	return nil, ErrOCRNotEnabled
}

// Close is a no-op, safe to call on a nil client.
func (c *Client) Close() error {
	return nil
}

// Recognize returns ErrOCRNotEnabled.
func (c *Client) Recognize(imageData []byte) (string, error) {
	return "", ErrOCRNotEnabled
}
