package scheduler

import (
	"context"
	"time"

	"github.com/oakmart/storefront-backend/config"
	"github.com/oakmart/storefront-backend/internal/app/service"
	"github.com/oakmart/storefront-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// ReportScheduler drives the recurring back-office reports: the low-stock
// alert sweep and the daily sales summary.
type ReportScheduler struct {
	cron          *cron.Cron
	reportService service.ReportService
	cfg           config.ReportsConfig
}

func NewReportScheduler(reportService service.ReportService, cfg config.ReportsConfig) *ReportScheduler {
	return &ReportScheduler{
		cron:          cron.New(),
		reportService: reportService,
		cfg:           cfg,
	}
}

func (s *ReportScheduler) Start() error {
	_, err := s.cron.AddFunc(s.cfg.LowStockCron, func() {
		logger.Info("Starting scheduled low stock report", nil)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := s.reportService.SendLowStockReport(ctx); err != nil {
			logger.Error("Scheduled low stock report failed", err, nil)
			return
		}
	})
	if err != nil {
		logger.Error("Failed to add cron job for low stock report", err, map[string]interface{}{
			"spec": s.cfg.LowStockCron,
		})
		return err
	}

	_, err = s.cron.AddFunc(s.cfg.DailySalesCron, func() {
		logger.Info("Starting scheduled daily sales report", nil)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		// The morning run reports on the previous calendar day.
		yesterday := time.Now().AddDate(0, 0, -1)
		if err := s.reportService.SendDailySalesReport(ctx, yesterday); err != nil {
			logger.Error("Scheduled daily sales report failed", err, nil)
			return
		}
	})
	if err != nil {
		logger.Error("Failed to add cron job for daily sales report", err, map[string]interface{}{
			"spec": s.cfg.DailySalesCron,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Report scheduler started", map[string]interface{}{
		"low_stock_cron":   s.cfg.LowStockCron,
		"daily_sales_cron": s.cfg.DailySalesCron,
	})
	return nil
}

func (s *ReportScheduler) Stop() {
	logger.Info("Stopping report scheduler...", nil)
	s.cron.Stop()
	logger.Info("Report scheduler stopped", nil)
}
