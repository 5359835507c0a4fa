package document

import "context"

// mockStore implements the consumer interface for tests.
type mockStore struct {
	indexFn   func(ctx context.Context, index string, body []byte) (string, error)
	refreshFn func(ctx context.Context, index string) error
	countFn   func(ctx context.Context, index string) (int64, error)
	bodies    [][]byte
}

func (m *mockStore) IndexDocument(ctx context.Context, index string, body []byte) (string, error) {
	m.bodies = append(m.bodies, body)
	if m.indexFn != nil {
		return m.indexFn(ctx, index, body)
	}
	return "key-1", nil
}

func (m *mockStore) Refresh(ctx context.Context, index string) error {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, index)
	}
	return nil
}

func (m *mockStore) Count(ctx context.Context, index string) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, index)
	}
	return 0, nil
}
