package company

import "time"

const DefaultCurrency = "XAF"

type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required,max=200"`
	Address   string    `json:"address" validate:"max=500"`
	Currency  string    `json:"currency" validate:"omitempty,len=3,alpha"`
	CreatedAt time.Time `json:"createdAt"`
}

type ListResult struct {
	Items []Company
	Total int
}
