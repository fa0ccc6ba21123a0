package docrepo

import (
	"context"
	"fmt"
	"iter"

	"doc-repository/internal/storage/object"
)

// Cursor 单次列举的分页游标，由调用方持有，不在多次列举之间共享
type Cursor struct {
	Token string
	done  bool
}

// Done 是否已列举完
func (c *Cursor) Done() bool {
	return c.done
}

// Next 拉取下一页键；Done 之后再调用返回 nil, nil
func (c *Cursor) Next(ctx context.Context, store object.Store, bucket, prefix string) ([]string, error) {
	if c.done {
		return nil, nil
	}
	page, err := store.ListPage(ctx, bucket, prefix, c.Token)
	if err != nil {
		return nil, err
	}
	// 后端返回相同 token 时不能继续，否则会无限循环
	if page.NextToken != "" && page.NextToken == c.Token {
		return nil, fmt.Errorf("list %s/%s: continuation token did not advance", bucket, prefix)
	}
	c.Token = page.NextToken
	c.done = page.NextToken == ""
	return page.Keys, nil
}

// ListKeys 惰性列举 prefix 下的全部键，自动跟随 continuation token。
// 每次 range 都从头开始；传输错误原样产出一次后结束，不重试。
func ListKeys(ctx context.Context, store object.Store, bucket, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var cur Cursor
		for !cur.Done() {
			keys, err := cur.Next(ctx, store, bucket, prefix)
			if err != nil {
				yield("", err)
				return
			}
			for _, key := range keys {
				if !yield(key, nil) {
					return
				}
			}
		}
	}
}

// CollectKeys 将 ListKeys 收集为切片
func CollectKeys(ctx context.Context, store object.Store, bucket, prefix string) ([]string, error) {
	var keys []string
	for key, err := range ListKeys(ctx, store, bucket, prefix) {
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
