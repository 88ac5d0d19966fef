package shared

import (
	"net/http"
	"strconv"
)

const TotalCountHeader = "X-Total-Count"

type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit/offset from the query. page and pageSize are
// accepted as an alternative; an explicit offset wins over page.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	query := r.URL.Query()
	limit := positiveInt(query.Get("limit"), 0)
	if limit == 0 {
		limit = positiveInt(query.Get("pageSize"), defaultLimit)
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}

	offset := 0
	if raw := query.Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	} else if page := positiveInt(query.Get("page"), 1); page > 1 {
		offset = (page - 1) * limit
	}
	return Pagination{Limit: limit, Offset: offset}
}

// WriteTotal exposes the unpaginated result count.
func WriteTotal(w http.ResponseWriter, total int) {
	w.Header().Set(TotalCountHeader, strconv.Itoa(total))
}

func positiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
