package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitDocuments(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}

	train, test := SplitDocuments(ids, 0.25, 1025)
	assert.Len(t, test, 3)
	assert.Len(t, train, 9)
	assert.ElementsMatch(t, ids, append(append([]string{}, train...), test...))

	again, againTest := SplitDocuments(ids, 0.25, 1025)
	assert.Equal(t, train, again)
	assert.Equal(t, test, againTest)

	pos := make(map[string]int)
	for i, id := range ids {
		pos[id] = i
	}
	for i := 1; i < len(train); i++ {
		assert.Less(t, pos[train[i-1]], pos[train[i]])
	}
}

func TestSplitDocuments_Bounds(t *testing.T) {
	ids := []string{"a", "b", "c"}

	train, test := SplitDocuments(ids, 0.1, 1)
	assert.Empty(t, test)
	assert.Equal(t, ids, train)

	train, test = SplitDocuments(ids, 2, 1)
	assert.Empty(t, train)
	assert.Len(t, test, 3)

	train, test = SplitDocuments(nil, 0.5, 1)
	assert.Empty(t, train)
	assert.Empty(t, test)
}

//Personal.AI order the ending
