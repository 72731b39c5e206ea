package prompt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScripted_ReplaysInOrder(t *testing.T) {
	s := &Scripted{Choices: []int{1, 0}, Inputs: []string{"  Alpha  "}}

	c, err := s.Choose("first?", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	in, err := s.Input("name?")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", in)

	c, err = s.Choose("second?", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	assert.Equal(t, []string{"first?", "name?", "second?"}, s.Asked)
}

func TestScripted_Exhausted(t *testing.T) {
	s := &Scripted{}
	_, err := s.Choose("q", []string{"a"})
	assert.True(t, errors.Is(err, ErrAborted))
	_, err = s.Input("q")
	assert.True(t, errors.Is(err, ErrAborted))
}

func TestScripted_OutOfRange(t *testing.T) {
	s := &Scripted{Choices: []int{3}}
	_, err := s.Choose("q", []string{"a", "b"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAborted))
}

func TestConfirm(t *testing.T) {
	s := &Scripted{Choices: []int{0, 1}}
	yes, err := Confirm(s, "ok?")
	require.NoError(t, err)
	assert.True(t, yes)
	yes, err = Confirm(s, "ok?")
	require.NoError(t, err)
	assert.False(t, yes)
}

func TestList(t *testing.T) {
	s := &Scripted{Inputs: []string{"rival, , friend ,old"}}
	items, err := List(s, "tags?")
	require.NoError(t, err)
	assert.Equal(t, []string{"rival", "friend", "old"}, items)
}
