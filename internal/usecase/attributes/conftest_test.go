package attributes

import (
	"context"
	"sync/atomic"
)

type mockExtractor struct {
	out     map[string]any
	err     error
	calls   atomic.Int32
	fields  []string
	blockOn <-chan struct{}
}

func (m *mockExtractor) Extract(ctx context.Context, _ string, allowedFields []string) (map[string]any, error) {
	m.calls.Add(1)
	m.fields = allowedFields
	if m.blockOn != nil {
		select {
		case <-m.blockOn:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.out, nil
}
