package defers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallAllRunsInReverseOrder(t *testing.T) {
	var order []int
	d := NewDefers()
	d.Add(func() { order = append(order, 1) })
	d.Add(func() { order = append(order, 2) })
	d.AddErr(func() error {
		order = append(order, 3)
		return nil
	})

	require.NoError(t, d.CallAll())
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestCallAllRunsOnce(t *testing.T) {
	calls := 0
	d := NewDefers()
	d.Add(func() { calls++ })

	require.NoError(t, d.CallAll())
	require.NoError(t, d.CallAll())
	assert.Equal(t, 1, calls)
}

func TestCallAllJoinsErrorsAndSurvivesPanics(t *testing.T) {
	errFirst := errors.New("first")
	ran := false

	d := NewDefers()
	d.Add(func() { ran = true })
	d.Add(func() { panic("boom") })
	d.AddErr(func() error { return errFirst })

	err := d.CallAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, errFirst)

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "boom", panicErr.Value)
	assert.True(t, ran)
}
