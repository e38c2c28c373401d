package shopper

import (
	"github.com/huykn/mutation-cache/effect"
	"github.com/huykn/mutation-cache/key"
)

// Mutation kinds.
const (
	UpdateCustomer                = "updateCustomer"
	UpdateCustomerPassword        = "updateCustomerPassword"
	CreateCustomerAddress         = "createCustomerAddress"
	UpdateCustomerAddress         = "updateCustomerAddress"
	RemoveCustomerAddress         = "removeCustomerAddress"
	DeleteAddress                 = "deleteAddress"
	CreateCustomerProductList     = "createCustomerProductList"
	CreateCustomerProductListItem = "createCustomerProductListItem"
	UpdateCustomerProductListItem = "updateCustomerProductListItem"
	DeleteCustomerProductListItem = "deleteCustomerProductListItem"
)

// CustomerMutations returns the registry for customer mutations.
//
// Request parameters use customerId, addressName (or addressId), listId and
// itemId. updateCustomer also accepts id. Responses are the objects returned
// by the API, decoded into map[string]any.
//
// Product list item mutations without a listId cannot name the list they
// touched. They invalidate every product list of the customer, and every item
// of the customer in place of writing or removing the single item entry.
func CustomerMutations() effect.Registry {
	return effect.Registry{
		UpdateCustomer:                updateCustomer,
		UpdateCustomerPassword:        updateCustomerPassword,
		CreateCustomerAddress:         createCustomerAddress,
		UpdateCustomerAddress:         updateCustomerAddress,
		RemoveCustomerAddress:         removeCustomerAddress,
		DeleteAddress:                 removeCustomerAddress,
		CreateCustomerProductList:     createCustomerProductList,
		CreateCustomerProductListItem: createCustomerProductListItem,
		UpdateCustomerProductListItem: updateCustomerProductListItem,
		DeleteCustomerProductListItem: deleteCustomerProductListItem,
	}
}

func customerID(params map[string]any) string {
	if id := effect.Param(params, "customerId"); id != "" {
		return id
	}
	return effect.Param(params, "id")
}

func addressID(params map[string]any) string {
	if id := effect.Param(params, "addressName"); id != "" {
		return id
	}
	return effect.Param(params, "addressId")
}

func updateCustomer(params map[string]any, response any) effect.Descriptor {
	return effect.Descriptor{
		Update: []effect.Update{effect.Set(CustomerKey(customerID(params)), response)},
	}
}

// A password change rotates the session, so nothing cached for the customer
// can be trusted.
func updateCustomerPassword(params map[string]any, _ any) effect.Descriptor {
	id := customerID(params)
	return effect.Descriptor{
		Invalidate: effect.Keys(
			CustomerKey(id),
			ProductListsKey(id),
			ProductListKey(id, ""),
			key.New(SegProductListItem, id),
		),
	}
}

// The profile embeds the address book, so address changes refetch the whole
// customer subtree.
func createCustomerAddress(params map[string]any, _ any) effect.Descriptor {
	return effect.Descriptor{
		Invalidate: effect.Keys(CustomerKey(customerID(params))),
	}
}

func updateCustomerAddress(params map[string]any, _ any) effect.Descriptor {
	return effect.Descriptor{
		Invalidate: effect.Keys(CustomerKey(customerID(params))),
	}
}

func removeCustomerAddress(params map[string]any, _ any) effect.Descriptor {
	id := customerID(params)
	return effect.Descriptor{
		Invalidate: effect.Keys(CustomerKey(id)),
		Remove:     effect.Keys(AddressKey(id, addressID(params))),
	}
}

func createCustomerProductList(params map[string]any, response any) effect.Descriptor {
	id := customerID(params)
	d := effect.Descriptor{
		Invalidate: effect.Keys(ProductListsKey(id)),
	}
	if listID := effect.Field(response, "id"); listID != "" {
		d.Update = []effect.Update{effect.Set(ProductListKey(id, listID), response)}
	}
	return d
}

func createCustomerProductListItem(params map[string]any, response any) effect.Descriptor {
	id, listID := customerID(params), effect.Param(params, "listId")
	d := effect.Descriptor{
		Invalidate: effect.Keys(ProductListsKey(id), ProductListKey(id, listID)),
	}
	if itemID := effect.Field(response, "id"); itemID != "" {
		d = withItem(d, id, listID, itemID, response)
	}
	return d
}

func updateCustomerProductListItem(params map[string]any, response any) effect.Descriptor {
	id, listID := customerID(params), effect.Param(params, "listId")
	d := effect.Descriptor{
		Invalidate: effect.Keys(ProductListsKey(id), ProductListKey(id, listID)),
	}
	return withItem(d, id, listID, effect.Param(params, "itemId"), response)
}

func deleteCustomerProductListItem(params map[string]any, _ any) effect.Descriptor {
	id, listID := customerID(params), effect.Param(params, "listId")
	d := effect.Descriptor{
		Invalidate: effect.Keys(ProductListsKey(id), ProductListKey(id, listID)),
	}
	if listID == "" {
		d.Invalidate = append(d.Invalidate, customerItemsKey(id))
		return d
	}
	d.Remove = effect.Keys(ProductListItemKey(id, listID, effect.Param(params, "itemId")))
	return d
}

// withItem adds the write of one item entry to d, or the invalidation of all
// of the customer's items when the list is unknown.
func withItem(d effect.Descriptor, id, listID, itemID string, item any) effect.Descriptor {
	if listID == "" {
		d.Invalidate = append(d.Invalidate, customerItemsKey(id))
		return d
	}
	d.Update = []effect.Update{effect.Set(ProductListItemKey(id, listID, itemID), item)}
	return d
}

func customerItemsKey(customerID string) key.Key {
	return key.New(SegProductListItem, customerID)
}
