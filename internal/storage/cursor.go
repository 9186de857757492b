package storage

import (
	"context"
	"fmt"
)

// pageFunc fetches up to limit rows whose key sorts strictly after the given key.
type pageFunc[T any] func(ctx context.Context, after string, limit int) ([]T, error)

// Cursor streams a filtered scan page by page using keyset pagination on the
// primary key. Only one page is held in memory, no read transaction stays
// open between pages, and rows rewritten while the scan is running are not
// visited twice.
//
//	cur := repo.DueRecurringTransactions(now)
//	for cur.Next(ctx) {
//		tx := cur.Value()
//	}
//	if err := cur.Err(); err != nil { ... }
type Cursor[T any] struct {
	fetch    pageFunc[T]
	key      func(T) string
	pageSize int

	page    []T
	pos     int
	after   string
	fetched int
	done    bool
	err     error
	cur     T
}

func newCursor[T any](pageSize int, key func(T) string, fetch pageFunc[T]) *Cursor[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Cursor[T]{fetch: fetch, key: key, pageSize: pageSize}
}

// Next advances to the next row, fetching a new page when needed. It returns
// false at the end of the scan, on error, or when ctx is done.
func (c *Cursor[T]) Next(ctx context.Context) bool {
	if c.err != nil || (c.done && c.pos >= len(c.page)) {
		return false
	}
	if c.pos >= len(c.page) {
		if err := ctx.Err(); err != nil {
			c.err = err
			return false
		}
		page, err := c.fetch(ctx, c.after, c.pageSize)
		if err != nil {
			c.err = fmt.Errorf("fetch page after %q: %w", c.after, err)
			return false
		}
		c.page, c.pos = page, 0
		if len(page) < c.pageSize {
			c.done = true
		}
		if len(page) == 0 {
			return false
		}
		c.after = c.key(page[len(page)-1])
	}
	c.cur = c.page[c.pos]
	c.pos++
	c.fetched++
	return true
}

// Value returns the row Next advanced to.
func (c *Cursor[T]) Value() T {
	return c.cur
}

// Err returns the error that stopped the scan, if any.
func (c *Cursor[T]) Err() error {
	return c.err
}

// Fetched is the number of rows yielded so far.
func (c *Cursor[T]) Fetched() int {
	return c.fetched
}
