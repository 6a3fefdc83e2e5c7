package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("https://docs.example.com/")

	t.Run("upload and link", func(t *testing.T) {
		data := []byte("%PDF-1.7")
		require.NoError(t, store.Upload(ctx, "orders/o 1.pdf", data, "application/pdf"))
		data[0] = 'X'

		got, contentType, ok := store.Get("orders/o 1.pdf")
		require.True(t, ok)
		assert.Equal(t, "%PDF-1.7", string(got))
		assert.Equal(t, "application/pdf", contentType)

		link, err := store.DownloadURL(ctx, "orders/o 1.pdf")
		require.NoError(t, err)
		assert.Equal(t, "https://docs.example.com/orders/o%201.pdf", link)
	})

	t.Run("missing object has no link", func(t *testing.T) {
		_, err := store.DownloadURL(ctx, "nope")
		assert.Error(t, err)
	})

	t.Run("empty key", func(t *testing.T) {
		assert.ErrorIs(t, store.Upload(ctx, "", nil, ""), ErrEmptyKey)
		assert.ErrorIs(t, store.Delete(ctx, ""), ErrEmptyKey)
		_, err := store.DownloadURL(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyKey)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Upload(ctx, "b", []byte("b"), "text/plain"))
		assert.Equal(t, []string{"b", "orders/o 1.pdf"}, store.Keys())

		require.NoError(t, store.Delete(ctx, "b"))
		require.NoError(t, store.Delete(ctx, "b"))
		assert.Equal(t, []string{"orders/o 1.pdf"}, store.Keys())
	})

	t.Run("default base url", func(t *testing.T) {
		s := NewMemoryStore("")
		require.NoError(t, s.Upload(ctx, "k", []byte("v"), "text/plain"))
		link, err := s.DownloadURL(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "memory://documents/k", link)
	})
}
