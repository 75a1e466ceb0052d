package product

import "time"

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	SellerID    string    `json:"sellerId"`
	ImageRef    string    `json:"imageRef,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	SellerID string
	Page     int
	PerPage  int
}

func (f ListFilter) limitOffset() (int, int) {
	per := f.PerPage
	if per <= 0 || per > 100 {
		per = 20
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	return per, (page - 1) * per
}
