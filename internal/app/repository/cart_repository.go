package repository

import (
	"errors"

	"github.com/pcforge/pcforge-backend/internal/app/model"
	"github.com/pcforge/pcforge-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	UpsertLine(userID, productID uint, quantity int) error
	FindByUserID(userID uint) ([]model.CartItem, error)
	FindByUserAndProduct(userID, productID uint) (*model.CartItem, error)
	DeleteByUserID(userID uint) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

// UpsertLine inserts a new cart line or accumulates quantity onto the
// existing line for (userID, productID), as a single store-level statement.
// The ON CONFLICT clause is what makes two racing adds for the same pair
// serialize at the database instead of both observing "absent".
func (r *cartRepository) UpsertLine(userID, productID uint, quantity int) error {
	logger.Debug("Upserting cart line in database", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	line := model.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity": gorm.Expr("cart_items.quantity + ?", quantity),
		}),
	}).Create(&line).Error
	if err != nil {
		logger.Error("Failed to upsert cart line in database", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"quantity":   quantity,
		})
		return err
	}

	logger.Debug("Cart line upserted in database", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})
	return nil
}

func (r *cartRepository) FindByUserID(userID uint) ([]model.CartItem, error) {
	logger.Debug("Finding cart lines by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var lines []model.CartItem
	err := r.db.Where("user_id = ?", userID).
		Preload("Product").
		Order("id").
		Find(&lines).Error
	if err != nil {
		logger.Error("Failed to find cart lines by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Cart lines found by user ID in database", map[string]interface{}{
		"user_id": userID,
		"count":   len(lines),
	})
	return lines, nil
}

func (r *cartRepository) FindByUserAndProduct(userID, productID uint) (*model.CartItem, error) {
	logger.Debug("Finding cart line by user and product in database", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	var line model.CartItem
	err := r.db.Where("user_id = ? AND product_id = ?", userID, productID).
		First(&line).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find cart line by user and product in database", err, map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
		}
		return nil, err
	}

	return &line, nil
}

func (r *cartRepository) DeleteByUserID(userID uint) error {
	logger.Debug("Deleting cart lines by user ID from database", map[string]interface{}{
		"user_id": userID,
	})

	if err := r.db.Where("user_id = ?", userID).Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to delete cart lines by user ID from database", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}

	logger.Debug("Cart lines deleted by user ID from database", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}
