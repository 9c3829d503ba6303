package models

// Page sizes accepted by list endpoints.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// NormalizePage clamps page and limit to the accepted range.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
	HasMore    bool  `json:"hasMore"`
}

func NewPageMeta(page, limit int, total int64) PageMeta {
	totalPages := int64(0)
	if limit > 0 {
		totalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return PageMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    total > int64(page*limit),
	}
}

type ListingPage struct {
	Listings []Listing `json:"listings"`
	Meta     PageMeta  `json:"meta"`
}

type SupplierPage struct {
	Suppliers []Supplier `json:"suppliers"`
	Meta      PageMeta   `json:"meta"`
}

type UserPage struct {
	Users []User   `json:"users"`
	Meta  PageMeta `json:"meta"`
}

type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	Meta          PageMeta       `json:"meta"`
}
