package port

import "context"

// ProductLocker serializes work on a set of products.
// Lock blocks until every id is held and returns a function releasing all of them.
// Implementations acquire ids in the order given, so callers pass them sorted and distinct.
type ProductLocker interface {
	Lock(ctx context.Context, productIDs []string) (unlock func(), err error)
}
