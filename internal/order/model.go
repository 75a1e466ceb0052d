package order

import "time"

type Item struct {
	ID          string  `json:"id"`
	OrderID     string  `json:"orderId"`
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	TotalPrice  float64 `json:"totalPrice"`
	SellerID    string  `json:"sellerId"`
}

type Order struct {
	ID              string    `json:"orderId"`
	BuyerID         string    `json:"buyerId"`
	Status          Status    `json:"status"`
	TotalAmount     float64   `json:"totalAmount"`
	ShippingAddress string    `json:"shippingAddress,omitempty"`
	PaymentMethod   string    `json:"paymentMethod,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	Items           []Item    `json:"items"`
}
