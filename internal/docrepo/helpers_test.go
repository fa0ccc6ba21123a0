package docrepo

import (
	"context"
	"sync"
	"time"

	"doc-repository/internal/storage/object"
)

// faultStore 包装 object.Store，按键注入错误
type faultStore struct {
	object.Store

	mu        sync.Mutex
	getErr    map[string]error
	headErr   map[string]error
	deleteErr map[string]error
	listErr   error
	listAfter int // 第几次 ListPage 开始返回 listErr（从 1 计）
	listCalls int
	sameToken bool
}

func newFaultStore(pageSize int) *faultStore {
	return &faultStore{
		Store:     object.NewMemoryStore(pageSize),
		getErr:    map[string]error{},
		headErr:   map[string]error{},
		deleteErr: map[string]error{},
	}
}

func (s *faultStore) Get(ctx context.Context, bucket, key string) (*object.Object, error) {
	s.mu.Lock()
	err := s.getErr[key]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Store.Get(ctx, bucket, key)
}

func (s *faultStore) Head(ctx context.Context, bucket, key string) (object.Metadata, error) {
	s.mu.Lock()
	err := s.headErr[key]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Store.Head(ctx, bucket, key)
}

func (s *faultStore) Delete(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	err := s.deleteErr[key]
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.Delete(ctx, bucket, key)
}

func (s *faultStore) ListPage(ctx context.Context, bucket, prefix, token string) (*object.ListPage, error) {
	s.mu.Lock()
	s.listCalls++
	calls := s.listCalls
	s.mu.Unlock()
	if s.listErr != nil && calls >= s.listAfter {
		return nil, s.listErr
	}
	page, err := s.Store.ListPage(ctx, bucket, prefix, token)
	if err != nil {
		return nil, err
	}
	if s.sameToken && token != "" {
		page.NextToken = token
	}
	return page, nil
}

func (s *faultStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

// fakeClock 可调时钟，记录读取次数
type fakeClock struct {
	mu    sync.Mutex
	t     time.Time
	reads int
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}
