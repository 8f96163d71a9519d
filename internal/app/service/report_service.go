package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oakmart/storefront-backend/internal/app/model"
	"github.com/oakmart/storefront-backend/internal/app/repository"
	"github.com/oakmart/storefront-backend/pkg/logger"
	"github.com/oakmart/storefront-backend/pkg/mailer"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var ErrSubscriptionNotFound = errors.New("report subscription not found")

// DailySalesSummary aggregates one day of orders for the sales report.
type DailySalesSummary struct {
	Date        time.Time
	OrderCount  int
	TotalAmount decimal.Decimal
	Lines       []DailySalesLine
}

// DailySalesLine is the per-product breakdown inside a daily summary.
type DailySalesLine struct {
	ProductID   uint
	ProductName string
	Quantity    int
	Revenue     decimal.Decimal
}

type ReportService interface {
	// SendLowStockReport mails the list of products at or below their
	// threshold to the low-stock subscribers. No-op when nothing is low.
	SendLowStockReport(ctx context.Context) error

	// SendDailySalesReport mails yesterday's sales summary with an XLSX
	// breakdown attached.
	SendDailySalesReport(ctx context.Context, day time.Time) error

	BuildDailySalesSummary(day time.Time) (*DailySalesSummary, error)

	GetSubscription(kind model.ReportKind) (*model.ReportSubscription, error)
	UpdateSubscription(kind model.ReportKind, recipients []string, enabled bool) (*model.ReportSubscription, error)
}

type reportService struct {
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	reportRepo  repository.ReportRepository
	mail        *mailer.Client
	notifier    StockAlertNotifier
}

func NewReportService(
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	reportRepo repository.ReportRepository,
	mail *mailer.Client,
	notifier StockAlertNotifier,
) ReportService {
	return &reportService{
		productRepo: productRepo,
		orderRepo:   orderRepo,
		reportRepo:  reportRepo,
		mail:        mail,
		notifier:    notifier,
	}
}

// recipients returns the enabled subscriber list for a report kind, or nil
// when the report should not go out.
func (s *reportService) recipients(kind model.ReportKind) ([]string, error) {
	sub, err := s.reportRepo.FindByKind(kind)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !sub.Enabled || len(sub.Recipients) == 0 {
		return nil, nil
	}
	return sub.Recipients, nil
}

func (s *reportService) SendLowStockReport(ctx context.Context) error {
	products, err := s.productRepo.FindLowStock()
	if err != nil {
		return err
	}
	if len(products) == 0 {
		logger.Debug("Low stock report skipped: nothing is low", nil)
		return nil
	}

	// Connected admins hear about low stock even when nobody gets the email.
	if s.notifier != nil {
		for _, p := range products {
			s.notifier.NotifyLowStock(p)
		}
	}

	to, err := s.recipients(model.ReportLowStock)
	if err != nil {
		return err
	}
	if to == nil {
		logger.Debug("Low stock email skipped: no enabled recipients", nil)
		return nil
	}

	var b strings.Builder
	b.WriteString("<h2>Low stock alert</h2>")
	b.WriteString("<table border=\"1\" cellpadding=\"4\"><tr><th>Product</th><th>Stock</th><th>Threshold</th></tr>")
	for _, p := range products {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td>%d</td></tr>",
			p.Name, p.StockQuantity, p.LowStockThreshold)
	}
	b.WriteString("</table>")

	_, err = s.mail.Send(ctx, mailer.SendRequest{
		To:      to,
		Subject: fmt.Sprintf("Low stock alert: %d products", len(products)),
		HTML:    b.String(),
	})
	if err != nil {
		logger.Error("Failed to send low stock report", err, map[string]interface{}{
			"recipients": len(to),
			"products":   len(products),
		})
		return err
	}

	logger.Info("Low stock report sent", map[string]interface{}{
		"recipients": len(to),
		"products":   len(products),
	})
	return nil
}

// BuildDailySalesSummary aggregates the non-cancelled orders of the given
// calendar day per product.
func (s *reportService) BuildDailySalesSummary(day time.Time) (*DailySalesSummary, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.Add(24 * time.Hour)

	orders, err := s.orderRepo.FindCreatedBetween(from, to)
	if err != nil {
		return nil, err
	}

	summary := &DailySalesSummary{
		Date:        from,
		OrderCount:  len(orders),
		TotalAmount: decimal.Zero,
	}

	byProduct := make(map[uint]*DailySalesLine)
	var seen []uint
	for _, o := range orders {
		summary.TotalAmount = summary.TotalAmount.Add(o.TotalAmount)
		for _, item := range o.OrderItems {
			line, ok := byProduct[item.ProductID]
			if !ok {
				line = &DailySalesLine{
					ProductID:   item.ProductID,
					ProductName: item.Product.Name,
					Revenue:     decimal.Zero,
				}
				byProduct[item.ProductID] = line
				seen = append(seen, item.ProductID)
			}
			line.Quantity += item.Quantity
			line.Revenue = line.Revenue.Add(item.Subtotal())
		}
	}

	for _, id := range seen {
		summary.Lines = append(summary.Lines, *byProduct[id])
	}
	return summary, nil
}

// buildSalesWorkbook renders the summary as an XLSX file.
func buildSalesWorkbook(summary *DailySalesSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sales"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Product ID", "Product", "Quantity", "Revenue"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for row, line := range summary.Lines {
		values := []interface{}{line.ProductID, line.ProductName, line.Quantity, line.Revenue.StringFixed(2)}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *reportService) SendDailySalesReport(ctx context.Context, day time.Time) error {
	to, err := s.recipients(model.ReportDailySales)
	if err != nil {
		return err
	}
	if to == nil {
		logger.Debug("Daily sales report skipped: no enabled recipients", nil)
		return nil
	}

	summary, err := s.BuildDailySalesSummary(day)
	if err != nil {
		return err
	}

	workbook, err := buildSalesWorkbook(summary)
	if err != nil {
		logger.Error("Failed to build sales workbook", err, nil)
		return err
	}

	date := summary.Date.Format("2006-01-02")
	html := fmt.Sprintf(
		"<h2>Daily sales for %s</h2><p>%d orders, %s total revenue. Per-product breakdown attached.</p>",
		date, summary.OrderCount, summary.TotalAmount.StringFixed(2),
	)

	_, err = s.mail.Send(ctx, mailer.SendRequest{
		To:      to,
		Subject: "Daily sales report " + date,
		HTML:    html,
		Attachments: []mailer.Attachment{
			mailer.EncodeAttachment("sales-"+date+".xlsx", workbook),
		},
	})
	if err != nil {
		logger.Error("Failed to send daily sales report", err, map[string]interface{}{
			"date":       date,
			"recipients": len(to),
		})
		return err
	}

	logger.Info("Daily sales report sent", map[string]interface{}{
		"date":       date,
		"orders":     summary.OrderCount,
		"recipients": len(to),
	})
	return nil
}

func (s *reportService) GetSubscription(kind model.ReportKind) (*model.ReportSubscription, error) {
	sub, err := s.reportRepo.FindByKind(kind)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (s *reportService) UpdateSubscription(kind model.ReportKind, recipients []string, enabled bool) (*model.ReportSubscription, error) {
	sub, err := s.reportRepo.FindByKind(kind)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sub = &model.ReportSubscription{Kind: kind}
		} else {
			return nil, err
		}
	}

	sub.Recipients = recipients
	sub.Enabled = enabled
	if err := s.reportRepo.Save(sub); err != nil {
		return nil, err
	}

	logger.Info("Report subscription updated", map[string]interface{}{
		"kind":       kind,
		"recipients": len(recipients),
		"enabled":    enabled,
	})
	return sub, nil
}
