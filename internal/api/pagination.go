package api

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/types"
)

// parsePage reads page and limit; malformed values fall back to the defaults
func parsePage(c *gin.Context) types.PageQuery {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return types.PageQuery{Page: page, Limit: limit}.Normalize()
}

// newPage wraps results with the total count and absolute links to the
// neighbouring pages
func newPage[T any](c *gin.Context, page types.PageQuery, total int64, results []T) types.Page[T] {
	if results == nil {
		results = []T{}
	}
	p := types.Page[T]{Count: total, Results: results}
	if int64(page.Page)*int64(page.Limit) < total {
		next := pageURL(c, page.Page+1)
		p.Next = &next
	}
	if page.Page > 1 {
		prev := pageURL(c, page.Page-1)
		p.Previous = &prev
	}
	return p
}

func pageURL(c *gin.Context, page int) string {
	u := url.URL{Scheme: "http", Host: c.Request.Host, Path: c.Request.URL.Path}
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		u.Scheme = "https"
	}
	q := c.Request.URL.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
