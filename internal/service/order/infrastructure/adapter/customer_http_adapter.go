package adapter

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"storefront/internal/pkg/httpclient"
	"storefront/internal/service/order/domain"
)

// CustomerHTTPAdapter implements domain.CustomerLookup against a customer service:
// GET {baseURL}/customers/{id}.
type CustomerHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewCustomerHTTPAdapter(client *httpclient.Client, baseURL string) *CustomerHTTPAdapter {
	return &CustomerHTTPAdapter{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

type customerPayload struct {
	ID string `json:"id"`
}

func (a *CustomerHTTPAdapter) FindByID(ctx context.Context, id string) (*domain.Customer, error) {
	var payload customerPayload
	err := a.client.GetJSON(ctx, a.baseURL+"/customers/"+url.PathEscape(id), &payload)
	if err == nil {
		if payload.ID == "" {
			payload.ID = id
		}
		return &domain.Customer{ID: payload.ID}, nil
	}

	var se *httpclient.StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusNotFound:
			return nil, domain.ErrCustomerNotFound
		case se.StatusCode >= http.StatusInternalServerError:
			return nil, domain.NewStorageError("find customer", err, true)
		}
		return nil, domain.NewStorageError("find customer", err, false)
	}
	// transport failures and timeouts
	return nil, domain.NewStorageError("find customer", err, true)
}
