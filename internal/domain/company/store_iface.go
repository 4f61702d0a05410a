package company

import "context"

type StoreAPI interface {
	Create(ctx context.Context, c Company) (Company, error)
	Get(ctx context.Context, id string) (Company, error)
	List(ctx context.Context, limit, offset int) (ListResult, error)
}
