package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_Validate_ValidUUID(t *testing.T) {
	id := ID("550e8400-e29b-41d4-a716-446655440000")
	assert.NoError(t, id.Validate())
}

func TestID_Validate_EmptyString(t *testing.T) {
	err := ID("").Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")
}

func TestID_Validate_InvalidFormat(t *testing.T) {
	err := ID("not-a-uuid").Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ID format")
}

func TestNewID_GeneratesValidUUID(t *testing.T) {
	id := NewID()
	assert.NoError(t, id.Validate())
	assert.NotEqual(t, id, NewID())
	assert.Equal(t, string(id), id.String())
}

func TestOrderedMap(t *testing.T) {
	m := NewOrderedMap[string, int]()
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("b", 3)

	assert.Equal(t, []string{"b", "a"}, m.Keys())
	assert.Equal(t, []int{3, 2}, m.Values())
	assert.Equal(t, 2, m.Len())
	assert.True(t, m.Has("a"))
	assert.False(t, m.Has("c"))

	v, ok := m.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestOrderedMap_SetIfAbsent(t *testing.T) {
	m := NewOrderedMap[string, string]()
	assert.True(t, m.SetIfAbsent("Smith", "DOCTOR"))
	assert.False(t, m.SetIfAbsent("Smith", "PATIENT"))
	v, _ := m.Get("Smith")
	assert.Equal(t, "DOCTOR", v)
	assert.Equal(t, 1, m.Len())
}

//Personal.AI order the ending
