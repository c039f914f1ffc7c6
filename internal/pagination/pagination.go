package pagination

import "gorm.io/gorm"

// ListRequest holds limit/offset parameters parsed from query strings.
type ListRequest struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=1000"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// Defaults fills in default values when limit is not provided.
func (r *ListRequest) Defaults() {
	if r.Limit == 0 {
		r.Limit = 100
	}
}

// ListResponse wraps a windowed list of items with the total item count.
type ListResponse[T any] struct {
	Data   []T   `json:"data"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// NewListResponse creates a ListResponse from the given data and total count.
func NewListResponse[T any](data []T, req ListRequest, total int64) ListResponse[T] {
	if data == nil {
		data = []T{}
	}
	return ListResponse[T]{
		Data:   data,
		Total:  total,
		Limit:  req.Limit,
		Offset: req.Offset,
	}
}

// Window returns a GORM scope that applies OFFSET and LIMIT for the given request.
func Window(req ListRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(req.Offset).Limit(req.Limit)
	}
}
