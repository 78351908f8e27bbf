package shared

import "net/http"

type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit and offset from the query. Malformed values
// are reported on v; limit is capped at maxLimit.
func ParsePagination(r *http.Request, v *Validator, defaultLimit, maxLimit int) Pagination {
	query := r.URL.Query()
	page := Pagination{
		Limit:  v.NonNegativeInt("limit", query.Get("limit"), defaultLimit),
		Offset: v.NonNegativeInt("offset", query.Get("offset"), 0),
	}
	if page.Limit == 0 {
		page.Limit = defaultLimit
	}
	if maxLimit > 0 && page.Limit > maxLimit {
		page.Limit = maxLimit
	}
	return page
}
