package paging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Window_Valid(t *testing.T) {
	assert.False(t, Window{}.Valid())
	assert.False(t, Window{Skip: -1, Take: 10}.Valid())
	assert.False(t, Window{Skip: 5, Take: 0}.Valid())
	assert.True(t, Window{Skip: 0, Take: 1}.Valid())
}

func Test_Window_Range(t *testing.T) {
	w := Window{Skip: 20, Take: 10}
	r := w.Range()
	assert.Equal(t, Range{From: 20, To: 30}, r)
	assert.Equal(t, 10, r.Len())
	assert.Equal(t, "[20,30)", w.String())
}

func Test_Window_IsZero(t *testing.T) {
	assert.True(t, Window{}.IsZero())
	assert.False(t, Window{Take: 1}.IsZero())
}
