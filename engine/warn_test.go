package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWarnGateFiresOnce(t *testing.T) {
	var g warnGate
	fired := 0
	g.Raise(func() { fired++ })
	g.Raise(func() { fired++ })
	assert.Equal(t, 1, fired)

	g.Clear()
	g.Raise(func() { fired++ })
	assert.Equal(t, 2, fired)
}

func TestReadinessGroup(t *testing.T) {
	assert.False(t, NewReadinessGroup().AllReady(), "empty group is never ready")

	a := newFakeConnector()
	b := newFakeConnector()
	g := NewReadinessGroup(a)
	g.Add(b)
	assert.True(t, g.AllReady())

	b.ready = false
	assert.False(t, g.AllReady())
}
