package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeLogSequence(t *testing.T) {
	var log ChangeLog
	for i := 0; i < 5; i++ {
		c := log.Append(Change{Kind: ChangeResource})
		assert.Equal(t, uint64(i+1), c.Seq)
	}
	assert.Equal(t, uint64(5), log.LastSeq())
	assert.Equal(t, 5, log.Len())

	assert.Len(t, log.After(0), 5)
	after := log.After(3)
	require.Len(t, after, 2)
	assert.Equal(t, uint64(4), after[0].Seq)
	assert.Equal(t, uint64(5), after[1].Seq)
	assert.Empty(t, log.After(5))
	assert.Empty(t, log.After(50))
}

func TestChangeLogAfterIsIdempotent(t *testing.T) {
	s := newTestGame(t)
	toMain(t, s)
	pass(t, s)
	pass(t, s)

	first := s.ChangesAfter(1)
	second := s.ChangesAfter(1)
	assert.Equal(t, first, second)

	first[0].Kind = ChangeGameOver
	assert.NotEqual(t, ChangeGameOver, s.ChangesAfter(1)[0].Kind, "callers get a copy")
}

func TestChangeLogWithBase(t *testing.T) {
	log := ChangeLog{Base: 10}
	c := log.Append(Change{Kind: ChangePhase})
	assert.Equal(t, uint64(11), c.Seq)
	assert.Len(t, log.After(0), 1)
	assert.Len(t, log.After(10), 1)
	assert.Empty(t, log.After(11))
}

func TestChangeKindString(t *testing.T) {
	assert.Equal(t, "CHANGE_PLAY_CARD", ChangePlayCard.String())
	assert.Equal(t, "CHANGE_99", ChangeKind(99).String())
}
