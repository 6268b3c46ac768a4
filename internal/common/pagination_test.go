package common

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePaginationDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/problems", nil)
	p := ParsePagination(r)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, 0, p.Offset())
}

func TestParsePaginationExplicit(t *testing.T) {
	r := httptest.NewRequest("GET", "/problems?page=3&limit=25", nil)
	p := ParsePagination(r)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 25, p.Limit)
	assert.Equal(t, 50, p.Offset())
}

func TestParsePaginationBounds(t *testing.T) {
	r := httptest.NewRequest("GET", "/problems?page=-1&limit=5000", nil)
	p := ParsePagination(r)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.Limit)
}
