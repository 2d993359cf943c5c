// Package streams 为 eino 流提供可随 ctx 取消的读取
package streams

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

type item[T any] struct {
	v   T
	err error
}

// Recv 与 sr.Recv 相同，但 ctx 取消时立即返回 ctx.Err()。
// 被放弃的读取会在写端关闭后结束，期间读到的数据被丢弃。
func Recv[T any](ctx context.Context, sr *schema.StreamReader[T]) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	ch := make(chan item[T], 1)
	go func() {
		v, err := sr.Recv()
		ch <- item[T]{v: v, err: err}
	}()
	select {
	case it := <-ch:
		return it.v, it.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
