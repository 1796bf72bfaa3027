package core

import (
	"testing"

	"cosmossdk.io/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addTestActor(r *registry) ActorRef {
	ref, _ := r.nextRef()
	r.add(newActor(ref, nil, nil, NoRef, 1, log.NewNopLogger()))
	return ref
}

func TestRegistryRefsNeverReused(t *testing.T) {
	r := newRegistry()

	a := addTestActor(r)
	b := addTestActor(r)
	r.remove(b)
	c := addTestActor(r)

	assert.Equal(t, ActorRef(1), a)
	assert.Equal(t, ActorRef(2), b)
	assert.Equal(t, ActorRef(3), c)
	assert.Equal(t, []ActorRef{a, c}, r.snapshot())
}

func TestRegistryRefsExhausted(t *testing.T) {
	r := newRegistry()
	r.lastRef = ^ActorRef(0)

	ref, ok := r.nextRef()
	assert.False(t, ok)
	assert.Equal(t, NoRef, ref)
	assert.Equal(t, ^ActorRef(0), r.lastRef)
}

func TestRegistryDeferredCompaction(t *testing.T) {
	r := newRegistry()
	a := addTestActor(r)
	b := addTestActor(r)
	c := addTestActor(r)

	r.beginRound()
	_, ok := r.remove(b)
	require.True(t, ok)

	// The order slice keeps the stale entry until the round ends.
	assert.Len(t, r.order, 3)
	assert.True(t, r.dirty)
	assert.Equal(t, []ActorRef{a, c}, r.snapshot())

	r.endRound()
	assert.Equal(t, []ActorRef{a, c}, r.order)
	assert.False(t, r.dirty)
}

func TestRegistryRemoveUnknown(t *testing.T) {
	r := newRegistry()
	addTestActor(r)

	_, ok := r.remove(42)
	assert.False(t, ok)
	assert.Equal(t, 1, r.len())
}

func TestNameTable(t *testing.T) {
	names := newNameTable()

	require.NoError(t, names.bind("db", 1))
	assert.ErrorIs(t, names.bind("db", 2), ErrNameTaken)
	assert.Error(t, names.bind("", 2))

	// Rebinding a ref moves its name.
	require.NoError(t, names.bind("cache", 1))
	_, ok := names.resolve("db")
	assert.False(t, ok)
	ref, ok := names.resolve("cache")
	require.True(t, ok)
	assert.Equal(t, ActorRef(1), ref)

	require.NoError(t, names.bind("db", 2))
	assert.Equal(t, []string{"cache", "db"}, names.names())

	names.release(1)
	assert.Equal(t, []string{"db"}, names.names())
}
