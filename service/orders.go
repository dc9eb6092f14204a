package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Alan-Alkalifa/upj-cart-sub001/model"
)

// ListUserOrders returns the buyer's orders, cache-aside over redis.
func (s *CheckoutService) ListUserOrders(ctx context.Context, userID uint) ([]model.Order, error) {
	cacheKey := fmt.Sprintf("orders:%d", userID)

	if s.Redis != nil {
		cached, err := s.Redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var list []model.Order
			if json.Unmarshal([]byte(cached), &list) == nil {
				return list, nil
			}
		}
	}

	orders, err := s.Store.OrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if js, err := json.Marshal(orders); err == nil {
			s.Redis.Set(ctx, cacheKey, js, 5*time.Minute)
		}
	}

	return orders, nil
}

// GetOrder returns one order after checking ownership.
func (s *CheckoutService) GetOrder(ctx context.Context, orderID, userID uint) (model.Order, error) {
	order, err := s.Store.OrderByID(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if order.UserID != userID {
		return model.Order{}, ErrNotOwner
	}
	return order, nil
}
