package worker

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
)

type mockRecords struct {
	existsFn func(ctx context.Context, path string) (bool, error)
}

func (m *mockRecords) ExistsByPath(ctx context.Context, path string) (bool, error) {
	return m.existsFn(ctx, path)
}

//----------------------------------

type mockStorage struct {
	deleted  []string
	deleteFn func(ctx context.Context, key string) error
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	if m.deleteFn == nil {
		return nil
	}
	return m.deleteFn(ctx, key)
}

//----------------------------------

type mockCommitter struct {
	committed []kafkago.Message
}

func (m *mockCommitter) Commit(ctx context.Context, msg kafkago.Message) error {
	m.committed = append(m.committed, msg)
	return nil
}
