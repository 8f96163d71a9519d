package repository

import (
	"github.com/oakmart/storefront-backend/internal/app/model"
	"github.com/oakmart/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type ReportRepository interface {
	FindByKind(kind model.ReportKind) (*model.ReportSubscription, error)
	Save(sub *model.ReportSubscription) error
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) FindByKind(kind model.ReportKind) (*model.ReportSubscription, error) {
	var sub model.ReportSubscription
	err := r.db.Where("kind = ?", kind).First(&sub).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find report subscription in database", err, map[string]interface{}{
				"kind": kind,
			})
		}
		return nil, err
	}
	return &sub, nil
}

func (r *reportRepository) Save(sub *model.ReportSubscription) error {
	if err := r.db.Save(sub).Error; err != nil {
		logger.Error("Failed to save report subscription in database", err, map[string]interface{}{
			"kind": sub.Kind,
		})
		return err
	}
	return nil
}
