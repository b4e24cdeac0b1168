package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiresAfterDeadline(t *testing.T) {
	tm := New()
	deadline := time.Now().Add(20 * time.Millisecond)
	tm.Set(deadline)
	assert.True(t, tm.Pending())

	select {
	case got := <-tm.C():
		assert.Equal(t, deadline, got)
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestCancelIsIdempotentAndSuppressesFire(t *testing.T) {
	tm := New()
	tm.Cancel()
	tm.Cancel()
	assert.False(t, tm.Pending())

	tm.Set(time.Now().Add(20 * time.Millisecond))
	tm.Cancel()
	assert.False(t, tm.Pending())

	select {
	case <-tm.C():
		t.Fatal("cancelled timer must not fire")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestSetReplacesPreviousDeadline(t *testing.T) {
	tm := New()
	tm.Set(time.Now().Add(time.Hour))
	second := time.Now().Add(20 * time.Millisecond)
	tm.Set(second)

	select {
	case got := <-tm.C():
		assert.Equal(t, second, got)
	case <-time.After(time.Second):
		t.Fatal("replaced timer never fired")
	}
}

func TestSetWithPastDeadlineFiresImmediately(t *testing.T) {
	tm := New()
	past := time.Now().Add(-time.Minute)
	tm.Set(past)

	select {
	case got := <-tm.C():
		assert.Equal(t, past, got)
	case <-time.After(time.Second):
		t.Fatal("past-deadline timer never fired")
	}
}

func TestInterfaceSatisfiesTimerControl(t *testing.T) {
	var _ interface {
		Set(time.Time)
		Cancel()
	} = New()
	require.NotNil(t, New())
}
