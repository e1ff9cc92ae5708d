package mystore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type record struct {
	UID       string
	Status    string
	CreatedAt time.Time
}

var (
	base    = time.Date(2023, time.February, 27, 12, 0, 0, 0, time.UTC)
	record1 = record{UID: "123", Status: "pending", CreatedAt: base.Add(time.Minute)}
	record2 = record{UID: "456", Status: "fulfilled", CreatedAt: base}
	record3 = record{UID: "789", Status: "pending", CreatedAt: base.Add(-time.Minute)}
)

func TestStore(t *testing.T) {
	c := context.TODO()
	store, cleanup, err := NewInMemoryStore[record](c)
	assert.NoError(t, err)
	defer cleanup()

	t.Run("Get not found", func(t *testing.T) {
		_, found, err := store.Get(c, record1.UID)
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Put", func(t *testing.T) {
		assert.NoError(t, store.Put(c, record1.UID, record1))
		assert.NoError(t, store.Put(c, record2.UID, record2))
		assert.NoError(t, store.Put(c, record3.UID, record3))
	})

	t.Run("Get found", func(t *testing.T) {
		r, found, err := store.Get(c, record1.UID)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, record1, r)
	})

	t.Run("List", func(t *testing.T) {
		all, err := store.List(c)
		assert.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("Query filters and orders", func(t *testing.T) {
		pending, err := store.Query(c, []Filter{{Field: "Status", Compare: "=", Value: "pending"}}, "CreatedAt")
		assert.NoError(t, err)
		assert.Equal(t, []record{record3, record1}, pending)
	})

	t.Run("Query rejects unsupported compare", func(t *testing.T) {
		_, err := store.Query(c, []Filter{{Field: "Status", Compare: ">", Value: "a"}}, "")
		assert.Error(t, err)
	})

	t.Run("Rollback on error", func(t *testing.T) {
		err := store.RunInTransaction(c, func(c context.Context) error {
			err := store.Delete(c, record1.UID)
			assert.NoError(t, err)
			_, found, _ := store.Get(c, record1.UID)
			assert.False(t, found)
			return fmt.Errorf("abort")
		})
		assert.Error(t, err)

		_, found, _ := store.Get(c, record1.UID)
		assert.True(t, found)
	})

	t.Run("Nested transaction on other store does not deadlock", func(t *testing.T) {
		other, _, _ := NewInMemoryStore[record](c)
		err := store.RunInTransaction(c, func(c context.Context) error {
			return other.RunInTransaction(c, func(c context.Context) error {
				return other.Put(c, "x", record{UID: "x"})
			})
		})
		assert.NoError(t, err)
		_, found, _ := other.Get(c, "x")
		assert.True(t, found)
	})
}
