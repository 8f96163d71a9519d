package service

import (
	"context"
	"errors"
	"time"

	"github.com/oakmart/storefront-backend/internal/app/model"
	"github.com/oakmart/storefront-backend/internal/app/repository"
	"github.com/oakmart/storefront-backend/pkg/logger"
	"github.com/oakmart/storefront-backend/pkg/redis"
	"github.com/oakmart/storefront-backend/pkg/util"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrDuplicateSlug    = errors.New("product slug already exists")
	ErrCategoryNotFound = errors.New("category not found")
)

const (
	popularProductsCacheKey = "products:popular"
	popularProductsCacheTTL = 5 * time.Minute
)

type CreateProductInput struct {
	CategoryID        uint
	Name              string
	Description       string
	Price             decimal.Decimal
	StockQuantity     int
	LowStockThreshold *int
	ImageURL          string
}

type UpdateProductInput struct {
	CategoryID        *uint
	Name              *string
	Description       *string
	Price             *decimal.Decimal
	StockQuantity     *int
	LowStockThreshold *int
	ImageURL          *string
}

type ProductService interface {
	CreateProduct(input CreateProductInput) (*model.Product, error)
	GetProduct(id uint) (*model.Product, error)
	GetProductBySlug(slug string) (*model.Product, error)
	ListProducts(filter repository.ProductFilter) ([]model.Product, int64, error)
	ListPopularProducts(ctx context.Context, limit int) ([]model.Product, error)
	UpdateProduct(id uint, input UpdateProductInput) (*model.Product, error)
	DeleteProduct(id uint) error
}

type productService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
) ProductService {
	return &productService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

func (s *productService) CreateProduct(input CreateProductInput) (*model.Product, error) {
	logger.Info("Creating product", map[string]interface{}{
		"name":        input.Name,
		"category_id": input.CategoryID,
	})

	if _, err := s.categoryRepo.FindByID(input.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	slug, err := s.uniqueSlug(input.Name)
	if err != nil {
		return nil, err
	}

	product := &model.Product{
		CategoryID:    input.CategoryID,
		Name:          input.Name,
		Description:   input.Description,
		Slug:          slug,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		ImageURL:      input.ImageURL,
	}
	if input.LowStockThreshold != nil {
		product.LowStockThreshold = *input.LowStockThreshold
	}

	if err := s.productRepo.Create(product); err != nil {
		return nil, err
	}

	s.invalidatePopularCache()

	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"slug":       product.Slug,
	})
	return s.productRepo.FindByID(product.ID)
}

// uniqueSlug derives a slug from the name and retries with a random suffix
// when the plain form is taken.
func (s *productService) uniqueSlug(name string) (string, error) {
	slug := util.Slugify(name)
	_, err := s.productRepo.FindBySlug(slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return slug, nil
	}
	if err != nil {
		return "", err
	}

	for i := 0; i < 3; i++ {
		candidate := slug + "-" + util.RandomSuffix(6)
		_, err := s.productRepo.FindBySlug(candidate)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", ErrDuplicateSlug
}

func (s *productService) GetProduct(id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if err := s.productRepo.IncrementViewCount(id); err != nil {
		// View counting is best effort, the product read still succeeds.
		logger.Warn("Failed to increment product view count", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
	}

	return product, nil
}

func (s *productService) GetProductBySlug(slug string) (*model.Product, error) {
	product, err := s.productRepo.FindBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if err := s.productRepo.IncrementViewCount(product.ID); err != nil {
		logger.Warn("Failed to increment product view count", map[string]interface{}{
			"product_id": product.ID,
			"error":      err.Error(),
		})
	}

	return product, nil
}

func (s *productService) ListProducts(filter repository.ProductFilter) ([]model.Product, int64, error) {
	return s.productRepo.FindWithFilter(filter)
}

// ListPopularProducts serves the storefront's most viewed in-stock products,
// cached in Redis for a short window since view counts move constantly.
func (s *productService) ListPopularProducts(ctx context.Context, limit int) ([]model.Product, error) {
	var cached []model.Product
	found, err := redis.GetCachedJSON(ctx, popularProductsCacheKey, &cached)
	if err != nil {
		logger.Warn("Popular products cache read failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if found && len(cached) >= limit {
		return cached[:limit], nil
	}

	products, err := s.productRepo.FindPopular(limit)
	if err != nil {
		return nil, err
	}

	if err := redis.CacheJSON(ctx, popularProductsCacheKey, products, popularProductsCacheTTL); err != nil {
		logger.Warn("Popular products cache write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return products, nil
}

func (s *productService) UpdateProduct(id uint, input UpdateProductInput) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if input.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(*input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCategoryNotFound
			}
			return nil, err
		}
		product.CategoryID = *input.CategoryID
	}
	if input.Name != nil && *input.Name != product.Name {
		product.Name = *input.Name
		slug, err := s.uniqueSlug(*input.Name)
		if err != nil {
			return nil, err
		}
		product.Slug = slug
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.StockQuantity != nil {
		product.StockQuantity = *input.StockQuantity
	}
	if input.LowStockThreshold != nil {
		product.LowStockThreshold = *input.LowStockThreshold
	}
	if input.ImageURL != nil {
		product.ImageURL = *input.ImageURL
	}

	if err := s.productRepo.Update(product); err != nil {
		return nil, err
	}

	s.invalidatePopularCache()

	logger.Info("Product updated", map[string]interface{}{
		"product_id": product.ID,
	})
	return s.productRepo.FindByID(product.ID)
}

func (s *productService) DeleteProduct(id uint) error {
	if err := s.productRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	s.invalidatePopularCache()

	logger.Info("Product deleted", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

func (s *productService) invalidatePopularCache() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redis.InvalidatePrefix(ctx, popularProductsCacheKey); err != nil {
		logger.Warn("Popular products cache invalidation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
