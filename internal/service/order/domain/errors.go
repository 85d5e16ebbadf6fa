package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidOrder      = errors.New("invalid order request")
	ErrCustomerNotFound  = errors.New("customer does not exist")
	ErrProductNotFound   = errors.New("one or more products do not exist")
	ErrInsufficientStock = errors.New("insufficient quantity")
	ErrStorage           = errors.New("storage failure")
)

// ProductNotFoundError names the requested ids that the catalog could not resolve.
type ProductNotFoundError struct {
	IDs []string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrProductNotFound, strings.Join(e.IDs, ", "))
}

func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrProductNotFound
}

// InsufficientStockError identifies the product whose availability cannot cover the request.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("%s for the product: %s (requested %d, available %d)", ErrInsufficientStock, name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// StorageError is an infrastructure failure (connectivity, timeout, constraint violation).
// Transient marks failures a caller may retry; nothing in this service retries them.
type StorageError struct {
	Op        string
	Err       error
	Transient bool
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorage, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// NewStorageError wraps err unless it already carries a domain error kind.
func NewStorageError(op string, err error, transient bool) error {
	if err == nil {
		return nil
	}
	if IsValidationError(err) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err, Transient: transient}
}

// IsValidationError reports whether err is a caller-facing validation failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidOrder) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrInsufficientStock)
}

// IsTransient reports whether err is a storage failure marked as transient.
func IsTransient(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Transient
}
