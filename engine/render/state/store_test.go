package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type record struct {
	dirty bool
	width int
}

func TestGetLazilyConstructs(t *testing.T) {
	constructed := 0
	store := NewStore(WithInit(func(key string) *record {
		constructed++
		return &record{dirty: true}
	}))

	st := store.Get("a")
	assert.True(t, st.dirty)
	assert.Equal(t, 1, constructed)

	// Same key returns the same record without reconstructing.
	again := store.Get("a")
	assert.Same(t, st, again)
	assert.Equal(t, 1, constructed)
}

func TestGetWithoutInitReturnsZero(t *testing.T) {
	store := NewStore[string, int]()
	assert.Equal(t, 0, store.Get("a"))
	assert.Equal(t, 1, store.Len())
}

func TestStateIsolationAcrossKeys(t *testing.T) {
	store := NewStore(WithInit(func(key string) *record {
		return &record{dirty: true}
	}))

	a := store.Get("a")
	b := store.Get("b")

	a.dirty = false
	a.width = 1920

	assert.True(t, b.dirty)
	assert.Equal(t, 0, b.width)
}

func TestPeekDoesNotConstruct(t *testing.T) {
	store := NewStore(WithInit(func(key string) *record {
		return &record{}
	}))

	_, ok := store.Peek("a")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())

	store.Get("a")
	st, ok := store.Peek("a")
	assert.True(t, ok)
	assert.NotNil(t, st)
}

func TestRemove(t *testing.T) {
	store := NewStore[string, *record]()
	store.Set("a", &record{width: 7})

	st, ok := store.Remove("a")
	assert.True(t, ok)
	assert.Equal(t, 7, st.width)
	assert.Equal(t, 0, store.Len())

	_, ok = store.Remove("a")
	assert.False(t, ok)
}

func TestClearInvokesTeardown(t *testing.T) {
	store := NewStore[string, *record]()
	store.Set("a", &record{})
	store.Set("b", &record{})

	var torn []string
	store.Clear(func(key string, value *record) {
		torn = append(torn, key)
	})

	assert.ElementsMatch(t, []string{"a", "b"}, torn)
	assert.Equal(t, 0, store.Len())
}
