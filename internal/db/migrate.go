package db

import (
	"github.com/oakmart/storefront-backend/internal/app/model"
	"github.com/oakmart/storefront-backend/pkg/logger"
	"github.com/oakmart/storefront-backend/pkg/util"
)

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := []interface{}{
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.ReportSubscription{},
	}

	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	// One live cart per owner. Partial indexes because user_id and session_id
	// are each nullable, and tombstoned carts must not block new ones.
	// Concurrent find-or-create relies on these to surface a unique violation
	// to the loser of the race.
	ownershipIndexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_owner_user ON carts (user_id) WHERE user_id IS NOT NULL AND deleted_at IS NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_owner_session ON carts (session_id) WHERE user_id IS NULL AND deleted_at IS NULL",
	}
	for _, stmt := range ownershipIndexes {
		if err := DB.Exec(stmt).Error; err != nil {
			logger.Error("Failed to create cart ownership index", err)
			return err
		}
	}

	if err := seedInitialData(); err != nil {
		logger.Error("Failed to seed initial data during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed adds initial data to the database (optional)
func Seed() error {
	return seedInitialData()
}

func seedInitialData() error {
	logger.Info("Seeding initial data...")

	if err := seedCategories(); err != nil {
		logger.Error("Failed to seed categories", err)
		return err
	}

	if err := seedReportSubscriptions(); err != nil {
		logger.Error("Failed to seed report subscriptions", err)
		return err
	}

	logger.Info("Initial data seeded successfully")
	return nil
}

func seedCategories() error {
	var count int64
	if err := DB.Model(&model.Category{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		logger.Info("Categories already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	logger.Info("Seeding category data...")

	names := []string{
		"Electronics",
		"Home & Kitchen",
		"Clothing",
		"Books",
		"Sports & Outdoors",
		"Toys & Games",
	}

	for _, name := range names {
		category := model.Category{
			Name: name,
			Slug: util.Slugify(name),
		}
		if err := DB.Create(&category).Error; err != nil {
			logger.Error("Failed to create category", err, map[string]interface{}{
				"category": name,
			})
			return err
		}
	}

	logger.Info("Categories seeded successfully", map[string]interface{}{
		"total_categories": len(names),
	})
	return nil
}

func seedReportSubscriptions() error {
	var count int64
	if err := DB.Model(&model.ReportSubscription{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	logger.Info("Seeding report subscriptions...")

	// Recipients start empty; the scheduler skips a report until an admin
	// registers at least one address.
	subscriptions := []model.ReportSubscription{
		{Kind: model.ReportLowStock, Enabled: true},
		{Kind: model.ReportDailySales, Enabled: true},
	}

	for _, sub := range subscriptions {
		if err := DB.Create(&sub).Error; err != nil {
			logger.Error("Failed to create report subscription", err, map[string]interface{}{
				"kind": sub.Kind,
			})
			return err
		}
	}

	return nil
}
