package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Customers lists all store customers.
func (c *Client) Customers(ctx context.Context) ([]Customer, error) {
	var out []Customer
	if err := c.do(ctx, http.MethodGet, "/customers", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchCustomers filters customers by name, email or phone.
func (c *Client) SearchCustomers(ctx context.Context, q string) ([]Customer, error) {
	query := url.Values{}
	if q != "" {
		query.Set("q", q)
	}
	var out []Customer
	if err := c.do(ctx, http.MethodGet, "/customers/search", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Orders lists all store orders.
func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := c.do(ctx, http.MethodGet, "/orders", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CustomerOrders lists the orders placed by one customer.
func (c *Client) CustomerOrders(ctx context.Context, customerID int64) ([]Order, error) {
	var out []Order
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/customers/%d/orders", customerID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchOrders returns recent orders (last 45 days) matching the query,
// capped for autocomplete use.
func (c *Client) SearchOrders(ctx context.Context, q string) ([]Order, error) {
	query := url.Values{}
	if q != "" {
		query.Set("q", q)
	}
	var out []Order
	if err := c.do(ctx, http.MethodGet, "/search/orders", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WordPressAccounts lists linked site accounts.
func (c *Client) WordPressAccounts(ctx context.Context) ([]WordPressAccount, error) {
	var out []WordPressAccount
	if err := c.do(ctx, http.MethodGet, "/wordpress-accounts", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Posts lists social posts, optionally filtered by platform.
func (c *Client) Posts(ctx context.Context, platform string) ([]Post, error) {
	query := url.Values{}
	if platform != "" {
		query.Set("platform", platform)
	}
	var out []Post
	if err := c.do(ctx, http.MethodGet, "/posts", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
