// Package shopper holds the cache effects of the storefront's customer
// mutations.
//
// Addresses are cached below the customer profile, which embeds them. Product
// lists and their items are cached under their own roots so that a list can be
// marked stale without touching items written by the same mutation.
package shopper

import "github.com/huykn/mutation-cache/key"

// Key segment names.
const (
	SegCustomer        = "customer"
	SegAddresses       = "addresses"
	SegOrders          = "orders"
	SegProductLists    = "productLists"
	SegProductList     = "productList"
	SegProductListItem = "productListItem"
)

// CustomerKey identifies a customer profile and, as a pattern, everything
// cached under that customer.
func CustomerKey(customerID string) key.Key {
	return key.New(SegCustomer, customerID)
}

// AddressKey identifies one customer address.
func AddressKey(customerID, addressID string) key.Key {
	return CustomerKey(customerID).Append(SegAddresses, addressID)
}

// OrdersKey identifies the order history of a customer.
func OrdersKey(customerID string) key.Key {
	return CustomerKey(customerID).Append(SegOrders)
}

// ProductListsKey identifies the collection of a customer's product lists.
func ProductListsKey(customerID string) key.Key {
	return key.New(SegProductLists, customerID)
}

// ProductListKey identifies one product list. With an empty listID it matches
// every list of the customer.
func ProductListKey(customerID, listID string) key.Key {
	if listID == "" {
		return key.New(SegProductList, customerID)
	}
	return key.New(SegProductList, customerID, listID)
}

// ProductListItemKey identifies one item of a product list.
func ProductListItemKey(customerID, listID, itemID string) key.Key {
	return key.New(SegProductListItem, customerID, listID, itemID)
}
