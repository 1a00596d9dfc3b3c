package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func ctxWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/list?"+query, nil)
	return c
}

func TestParse_Defaults(t *testing.T) {
	p := Parse(ctxWithQuery(""))
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, 0, p.Offset())
}

func TestParse_Explicit(t *testing.T) {
	p := Parse(ctxWithQuery("page=3&limit=25"))
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 25, p.Limit)
	assert.Equal(t, 50, p.Offset())
}

func TestParse_ClampsLimit(t *testing.T) {
	p := Parse(ctxWithQuery("limit=9999"))
	assert.Equal(t, MaxLimit, p.Limit)
}

func TestParse_IgnoresGarbage(t *testing.T) {
	p := Parse(ctxWithQuery("page=-2&limit=abc"))
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(Params{Page: 2, Limit: 10}, 45)
	assert.Equal(t, 2, m.Page)
	assert.Equal(t, 45, m.Total)
	assert.Equal(t, 5, m.TotalPages)

	empty := NewMeta(Params{Page: 1, Limit: 10}, 0)
	assert.Equal(t, 0, empty.TotalPages)
}

func TestSlice(t *testing.T) {
	p := Params{Page: 2, Limit: 10}
	start, end := p.Slice(45)
	assert.Equal(t, 10, start)
	assert.Equal(t, 20, end)

	// Past the end
	p = Params{Page: 9, Limit: 10}
	start, end = p.Slice(45)
	assert.Equal(t, 45, start)
	assert.Equal(t, 45, end)
}
