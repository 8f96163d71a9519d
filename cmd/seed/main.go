package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/oakmart/storefront-backend/config"
	"github.com/oakmart/storefront-backend/internal/app/model"
	"github.com/oakmart/storefront-backend/internal/app/repository"
	"github.com/oakmart/storefront-backend/internal/db"
	"github.com/oakmart/storefront-backend/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Catalog import tool. Reads an XLSX with the columns
// category | name | description | price | stock | image_url
// and bulk inserts the products.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	productRepo := repository.NewProductRepository(db.GetDB())
	categoryRepo := repository.NewCategoryRepository(db.GetDB())

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	products, skipped, err := readProductsFromXLSX(filePath, categoryRepo)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Total products to import: %d (skipped %d rows)\n", len(products), skipped)

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	batchSize := 500
	fmt.Printf("Starting bulk import with batch size: %d\n", batchSize)
	if err := productRepo.BulkCreate(products, batchSize); err != nil {
		log.Fatal("Failed to bulk create products:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total products imported: %d\n", len(products))
}

func readProductsFromXLSX(filePath string, categoryRepo repository.CategoryRepository) ([]model.Product, int, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, 0, fmt.Errorf("no sheets found in XLSX file")
	}

	fmt.Printf("Reading sheet: %s\n", sheetName)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("no data found in XLSX file")
	}

	// Categories are created on first use and cached by name.
	categoryIDs := make(map[string]uint)
	usedSlugs := make(map[string]bool)

	var products []model.Product
	skipped := 0

	for i, row := range rows {
		if i == 0 {
			fmt.Printf("Headers: %v\n", row)
			continue
		}
		if len(row) < 5 {
			skipped++
			continue
		}

		categoryName := strings.TrimSpace(row[0])
		name := strings.TrimSpace(row[1])
		description := strings.TrimSpace(row[2])
		priceRaw := strings.TrimSpace(row[3])
		stockRaw := strings.TrimSpace(row[4])
		imageURL := ""
		if len(row) > 5 {
			imageURL = strings.TrimSpace(row[5])
		}

		if categoryName == "" || name == "" {
			skipped++
			continue
		}

		price, err := decimal.NewFromString(priceRaw)
		if err != nil || price.IsNegative() {
			fmt.Printf("Row %d: invalid price %q, skipping\n", i+1, priceRaw)
			skipped++
			continue
		}

		stock, err := strconv.Atoi(stockRaw)
		if err != nil || stock < 0 {
			fmt.Printf("Row %d: invalid stock %q, skipping\n", i+1, stockRaw)
			skipped++
			continue
		}

		categoryID, err := resolveCategory(categoryRepo, categoryIDs, categoryName)
		if err != nil {
			return nil, 0, err
		}

		slug := util.Slugify(name)
		if usedSlugs[slug] {
			slug = slug + "-" + util.RandomSuffix(6)
		}
		usedSlugs[slug] = true

		products = append(products, model.Product{
			CategoryID:    categoryID,
			Name:          name,
			Description:   description,
			Slug:          slug,
			Price:         price,
			StockQuantity: stock,
			ImageURL:      imageURL,
		})
	}

	return products, skipped, nil
}

func resolveCategory(categoryRepo repository.CategoryRepository, cache map[string]uint, name string) (uint, error) {
	if id, ok := cache[name]; ok {
		return id, nil
	}

	slug := util.Slugify(name)
	category, err := categoryRepo.FindBySlug(slug)
	if err == nil {
		cache[name] = category.ID
		return category.ID, nil
	}
	if err != gorm.ErrRecordNotFound {
		return 0, err
	}

	created := &model.Category{Name: name, Slug: slug}
	if err := categoryRepo.Create(created); err != nil {
		return 0, err
	}
	fmt.Printf("Created category: %s\n", name)
	cache[name] = created.ID
	return created.ID, nil
}
