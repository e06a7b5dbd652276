package ocr

import "context"

// Provider defines the interface for text recognition backends. The
// pipeline treats the provider as a black box: image in, raw text out.
type Provider interface {
	// RecognizeText extracts raw text from a receipt image or PDF
	RecognizeText(ctx context.Context, imageData []byte, contentType string) (string, error)
	// Close closes the provider and releases resources
	Close() error
}
