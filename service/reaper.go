package service

import (
	"context"
	"log"
	"time"

	"github.com/Alan-Alkalifa/upj-cart-sub001/metrics"
)

// ReapOrphanedOrders cancels payment groups whose orders never received a
// snap token and have been pending longer than ttl. A token-issuance failure
// mid-checkout leaves such groups behind; this sweep runs the same
// compensation path as a gateway cancellation.
func (s *CheckoutService) ReapOrphanedOrders(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)

	groups, err := s.Store.OrphanedPendingGroups(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, groupID := range groups {
		transitioned, err := cancelGroup(ctx, s.Store, groupID)
		if err != nil {
			log.Printf("reaper: cancel group %s failed: %v", groupID, err)
			continue
		}
		for _, o := range transitioned {
			s.invalidateOrderCache(ctx, o.UserID)
			reaped++
		}
		metrics.OrdersReaped.Add(float64(len(transitioned)))
	}

	return reaped, nil
}

// RunReaper sweeps on the given interval until ctx is cancelled.
func (s *CheckoutService) RunReaper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.ReapOrphanedOrders(ctx, ttl); err != nil {
				log.Printf("reaper sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("reaper cancelled %d orphaned pending orders", n)
			}
		}
	}
}
