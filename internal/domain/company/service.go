package company

import (
	"context"
	"strings"
)

type Service struct {
	Store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store}
}

func (s *Service) Create(ctx context.Context, c Company) (Company, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Address = strings.TrimSpace(c.Address)
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	return s.Store.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, id string) (Company, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) (ListResult, error) {
	return s.Store.List(ctx, limit, offset)
}
