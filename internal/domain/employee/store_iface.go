package employee

import "context"

type StoreAPI interface {
	Create(ctx context.Context, e Employee) (Employee, error)
	Get(ctx context.Context, companyID, id string) (Employee, error)
	Update(ctx context.Context, e Employee) (Employee, error)
	List(ctx context.Context, companyID string, filter ListFilter) (ListResult, error)
	Delete(ctx context.Context, companyID, id string) error
}
