package service

import (
	"context"
	"errors"

	"github.com/pcforge/pcforge-backend/internal/app/model"
	"github.com/pcforge/pcforge-backend/internal/app/repository"
	"github.com/pcforge/pcforge-backend/internal/cartstream"
	"github.com/pcforge/pcforge-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// CartService maintains each user's cart as a set of unique
// (product, quantity) lines and exposes it as a live stream.
// Stock is never validated here; that is checkout's job.
type CartService interface {
	AddToCart(userID, productID uint, quantity int) error
	GetLines(userID uint) ([]model.CartItem, error)
	ObserveCart(ctx context.Context, userID uint) (*cartstream.Subscription, []model.CartItem, error)
	GetProduct(productID uint) (*model.Product, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	stream      *cartstream.Broker
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	stream *cartstream.Broker,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		stream:      stream,
	}
}

// AddToCart increments the line quantity for (userID, productID),
// creating the line if absent. The upsert is a single store-level statement,
// so concurrent adds for the same pair accumulate instead of racing into
// duplicate lines.
func (s *cartService) AddToCart(userID, productID uint, quantity int) error {
	logger.Info("Adding item to cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity < 1 {
		logger.Warn("Rejecting non-positive cart quantity", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"quantity":   quantity,
		})
		return ErrInvalidQuantity
	}

	if err := s.cartRepo.UpsertLine(userID, productID, quantity); err != nil {
		logger.Error("Failed to add item to cart", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return err
	}

	s.publishSnapshot(userID)

	logger.Info("Cart line added successfully", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})
	return nil
}

// GetLines returns the user's current cart lines. An unknown user simply
// has an empty cart.
func (s *cartService) GetLines(userID uint) ([]model.CartItem, error) {
	logger.Debug("Fetching user cart", map[string]interface{}{
		"user_id": userID,
	})

	lines, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to fetch user cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	return lines, nil
}

// ObserveCart subscribes to the user's cart and returns the subscription
// together with the current snapshot. Updates are pushed on the
// subscription channel whenever the cart changes; cancelling ctx ends the
// stream.
func (s *cartService) ObserveCart(ctx context.Context, userID uint) (*cartstream.Subscription, []model.CartItem, error) {
	// Subscribe before reading the snapshot so a mutation landing between
	// the two is pushed rather than lost. A duplicate snapshot is harmless.
	sub := s.stream.Subscribe(ctx, userID)

	lines, err := s.GetLines(userID)
	if err != nil {
		// The caller cancels ctx on error, which tears down the subscription.
		return nil, nil, err
	}

	logger.Debug("Cart observation started", map[string]interface{}{
		"user_id": userID,
		"count":   len(lines),
	})
	return sub, lines, nil
}

// GetProduct is a read-through lookup used to join cart lines with catalog
// display data. A missing product yields (nil, nil), not an error.
func (s *cartService) GetProduct(productID uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Debug("Product lookup found nothing", map[string]interface{}{
				"product_id": productID,
			})
			return nil, nil
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}

	return product, nil
}

// publishSnapshot pushes the current line list to stream subscribers.
// Failures here degrade the live view only; the write already succeeded.
func (s *cartService) publishSnapshot(userID uint) {
	lines, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		logger.Warn("Failed to load cart snapshot for stream", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return
	}
	s.stream.Publish(userID, lines)
}
