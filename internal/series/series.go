// Package series decodes raw producer payloads into ordered point series.
package series

import (
	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/schema"
)

// ExtractPayload decodes a fetched payload according to its format, so callers
// do not depend on which fetch strategy produced it.
func ExtractPayload(payload contract.Payload, key schema.SeriesKey) ([]schema.Point, error) {
	switch payload.Format {
	case schema.MarkupPayload:
		return Extract(payload.Body, key)
	case schema.APIPayload:
		return ExtractAPI(payload.Body)
	default:
		return nil, contract.NewExtractionError("unsupported payload format "+string(payload.Format), nil)
	}
}

// Window returns the last n items in their original order.
// When n is not positive or not smaller than len(items), items is returned unchanged.
// The result shares the backing array of items.
func Window[T any](items []T, n int) []T {
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[len(items)-n:]
}
