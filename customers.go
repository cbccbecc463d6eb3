package backoffice

import (
	"context"
	"net/url"
	"strconv"

	"github.com/spdeepak/backoffice/money"
	"github.com/spdeepak/backoffice/normalize"
	"github.com/spdeepak/backoffice/query"
)

// Customer is a registered storefront user.
type Customer struct {
	ID                    string `json:"id"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	FullName              string `json:"full_name"`
	Email                 string `json:"email"`
	PhoneNumber           string `json:"phone_number"`
	IsEmailVerified       bool   `json:"is_email_verified"`
	IsPhoneNumberVerified bool   `json:"is_phone_number_verified"`
	CreatedAt             string `json:"created_at"`
	UpdatedAt             string `json:"updated_at,omitempty"`
}

type CartItem struct {
	ID               string      `json:"id"`
	ProductID        string      `json:"product_id"`
	Quantity         int         `json:"quantity"`
	ProductName      string      `json:"product_name"`
	SalePrice        money.Paisa `json:"sale_price_in_paisa"`
	SalePriceInRupee float64     `json:"sale_price_in_rupee"`
	Description      string      `json:"description,omitempty"`
	PrimaryImage     *Image      `json:"primary_image,omitempty"`
}

type Cart struct {
	ID           string      `json:"id"`
	Items        []CartItem  `json:"items"`
	ItemsCount   int         `json:"items_count"`
	Total        money.Paisa `json:"total_in_paisa"`
	TotalInRupee float64     `json:"total_in_rupee"`
	CreatedAt    string      `json:"created_at"`
	UpdatedAt    string      `json:"updated_at,omitempty"`
}

// CustomerWithCart is the customer detail response.
type CustomerWithCart struct {
	Customer Customer `json:"customer"`
	Cart     *Cart    `json:"cart,omitempty"`
}

// CustomerListParams filters the customer list. Customers page by page number.
type CustomerListParams struct {
	Page   int
	Limit  int
	Search string
}

func (p CustomerListParams) normalized() CustomerListParams {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	return p
}

// Values encodes the params as query parameters.
func (p CustomerListParams) Values() url.Values {
	p = p.normalized()
	values := url.Values{}
	values.Set("page", strconv.Itoa(p.Page))
	values.Set("limit", strconv.Itoa(p.Limit))
	setString(values, "search", p.Search)
	return values
}

// ListCustomers returns one page of customers.
func (a *Admin) ListCustomers(ctx context.Context, params CustomerListParams) (normalize.Page[Customer], error) {
	params = params.normalized()
	values := params.Values()
	offset := (params.Page - 1) * params.Limit
	return query.Get(ctx, a.queries, CustomerKeys.List(values), func(ctx context.Context) (normalize.Page[Customer], error) {
		raw, err := a.api.Get(ctx, "/customers", values)
		if err != nil {
			return normalize.Page[Customer]{}, err
		}
		return normalize.Collection[Customer](raw, "customers", offset, params.Limit), nil
	})
}

// GetCustomer returns a customer with their cart.
func (a *Admin) GetCustomer(ctx context.Context, id string) (CustomerWithCart, error) {
	return getEntity[CustomerWithCart](ctx, a, CustomerKeys, id, resourcePath("customers", id))
}
