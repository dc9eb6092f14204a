package service

import (
	"encoding/json"
	"sort"

	"github.com/Alan-Alkalifa/upj-cart-sub001/model"
)

// ShippingSelection is the buyer's chosen courier service for one merchant
// group, priced by the rate resolver before submission.
type ShippingSelection struct {
	CourierCode    string `json:"courier_code"`
	CourierService string `json:"courier_service"`
	Cost           int64  `json:"cost"`
}

// SplitCart partitions the cart by merchant and builds one order draft per
// merchant group, all tagged with the same payment-group id. Validation is
// all-or-nothing: if any merchant lacks a shipping selection no draft is
// returned, so nothing downstream is persisted.
//
// Returns the drafts and the grand total, which is by construction the exact
// amount the snap token must be requested for.
func SplitCart(items []model.CartItem, selections map[uint]ShippingSelection, groupID string, userID, addressID uint, addr model.AddressSnapshot, couponID *uint) ([]model.Order, int64, error) {
	groups := make(map[uint][]model.CartItem)
	for _, it := range items {
		groups[it.MerchantID] = append(groups[it.MerchantID], it)
	}

	// Validation gate before any draft is built.
	merchantIDs := make([]uint, 0, len(groups))
	for mid := range groups {
		merchantIDs = append(merchantIDs, mid)
	}
	sort.Slice(merchantIDs, func(i, j int) bool { return merchantIDs[i] < merchantIDs[j] })

	for _, mid := range merchantIDs {
		if _, ok := selections[mid]; !ok {
			return nil, 0, ErrMissingShipping{MerchantID: mid}
		}
	}

	addrJSON, err := json.Marshal(addr)
	if err != nil {
		return nil, 0, err
	}

	var orders []model.Order
	var grandTotal int64

	for _, mid := range merchantIDs {
		sel := selections[mid]

		var subtotal int64
		var weight int
		var orderItems []model.OrderItem

		for _, it := range groups[mid] {
			subtotal += it.Price * int64(it.Qty)
			weight += it.Weight * it.Qty
			orderItems = append(orderItems, model.OrderItem{
				VariantID: it.VariantID,
				Name:      it.Name,
				Qty:       it.Qty,
				Price:     it.Price,
				Weight:    it.Weight,
			})
		}

		total := subtotal + sel.Cost
		grandTotal += total

		orders = append(orders, model.Order{
			UserID:          userID,
			MerchantID:      mid,
			AddressID:       addressID,
			AddressSnapshot: addrJSON,
			CourierCode:     sel.CourierCode,
			CourierService:  sel.CourierService,
			ShippingCost:    sel.Cost,
			TotalWeight:     weight,
			TotalAmount:     total,
			Status:          model.StatusPending,
			PaymentGroupID:  groupID,
			CouponID:        couponID,
			Items:           orderItems,
		})
	}

	return orders, grandTotal, nil
}
