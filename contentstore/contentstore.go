// Package contentstore is the client for the content-addressed blob store
// that holds asset bytes and descriptors. Identical bytes always map to
// the same reference; blobs are never updated or deleted.
package contentstore

import "context"

type Client interface {
	// Put stores a blob and returns its content reference.
	Put(ctx context.Context, data []byte) (string, error)
	// Get retrieves a blob by its reference.
	Get(ctx context.Context, ref string) ([]byte, error)
	// GatewayURL is the public URL a browser can fetch the blob from.
	GatewayURL(ref string) string
}
