package attributes

import "context"

// Extractor returns loosely typed attributes for a free-text query, restricted
// to allowedFields. Values are normalized by the service.
type Extractor interface {
	Extract(ctx context.Context, text string, allowedFields []string) (map[string]any, error)
}
