package service

import (
	"github.com/pcforge/pcforge-backend/internal/app/model"
	"github.com/pcforge/pcforge-backend/internal/app/repository"
	"github.com/pcforge/pcforge-backend/internal/cartstream"
	"github.com/pcforge/pcforge-backend/pkg/logger"
)

type LineOutcome string

const (
	OutcomeFulfilled LineOutcome = "fulfilled"
	OutcomeRejected  LineOutcome = "rejected"
)

type RejectReason string

const (
	ReasonInsufficientStock RejectReason = "insufficient_stock"
	ReasonStoreError        RejectReason = "store_error"
)

// CheckoutLineResult is the terminal state of one cart line after checkout
type CheckoutLineResult struct {
	ProductID uint         `json:"product_id"`
	Quantity  int          `json:"quantity"`
	Outcome   LineOutcome  `json:"outcome"`
	Reason    RejectReason `json:"reason,omitempty"`
}

// CheckoutResult itemizes the outcome of every line in the checkout,
// in cart order
type CheckoutResult struct {
	Lines     []CheckoutLineResult `json:"lines"`
	Fulfilled int                  `json:"fulfilled"`
	Rejected  int                  `json:"rejected"`
}

// CheckoutService converts a user's cart into stock decrements.
//
// Checkout is deliberately per-line best-effort, not an all-or-nothing
// order: one line's stock shortfall never prevents the other lines from
// being fulfilled, and the cart is cleared regardless of how many lines
// were rejected. Decrements already applied are kept even if the caller
// goes away mid-call; there is no compensating rollback.
type CheckoutService interface {
	Checkout(userID uint) (*CheckoutResult, error)
}

type checkoutService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	stream      *cartstream.Broker
}

func NewCheckoutService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	stream *cartstream.Broker,
) CheckoutService {
	return &checkoutService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		stream:      stream,
	}
}

// Checkout snapshots the user's cart, attempts a conditional stock
// decrement per line, clears the cart, and reports per-line outcomes.
//
// A storage failure while decrementing one line rejects that line only.
// A storage failure while reading or clearing the cart is fatal to the
// whole call; the cart is left untouched in that case, so retrying is
// safe.
func (s *checkoutService) Checkout(userID uint) (*CheckoutResult, error) {
	logger.Info("Starting checkout", map[string]interface{}{
		"user_id": userID,
	})

	// Point-in-time snapshot: lines added after this read belong to the
	// next checkout.
	lines, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to snapshot cart for checkout", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	result := &CheckoutResult{
		Lines: make([]CheckoutLineResult, 0, len(lines)),
	}

	for _, line := range lines {
		lineResult := CheckoutLineResult{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		}

		ok, err := s.productRepo.TryDecrementStock(line.ProductID, line.Quantity)
		switch {
		case err != nil:
			logger.Error("Stock decrement failed with store error, rejecting line", err, map[string]interface{}{
				"user_id":    userID,
				"product_id": line.ProductID,
				"quantity":   line.Quantity,
			})
			lineResult.Outcome = OutcomeRejected
			lineResult.Reason = ReasonStoreError
		case !ok:
			logger.Warn("Rejecting checkout line: insufficient stock", map[string]interface{}{
				"user_id":    userID,
				"product_id": line.ProductID,
				"quantity":   line.Quantity,
			})
			lineResult.Outcome = OutcomeRejected
			lineResult.Reason = ReasonInsufficientStock
		default:
			lineResult.Outcome = OutcomeFulfilled
		}

		if lineResult.Outcome == OutcomeFulfilled {
			result.Fulfilled++
		} else {
			result.Rejected++
		}
		result.Lines = append(result.Lines, lineResult)
	}

	// Fulfilled and rejected lines alike are removed: a line that could
	// not be satisfied does not linger for a retry.
	if err := s.cartRepo.DeleteByUserID(userID); err != nil {
		logger.Error("Failed to clear cart after checkout", err, map[string]interface{}{
			"user_id":   userID,
			"fulfilled": result.Fulfilled,
			"rejected":  result.Rejected,
		})
		return nil, err
	}

	s.stream.Publish(userID, []model.CartItem{})

	logger.Info("Checkout completed", map[string]interface{}{
		"user_id":   userID,
		"lines":     len(result.Lines),
		"fulfilled": result.Fulfilled,
		"rejected":  result.Rejected,
	})
	return result, nil
}
