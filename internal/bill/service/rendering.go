package service

import (
	"context"
	"strings"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/jewelbill/internal/bill/domain"
	"github.com/smallbiznis/jewelbill/internal/bill/render"
	"github.com/smallbiznis/jewelbill/internal/config"
	"go.uber.org/zap"
)

const pdfContentType = "application/pdf"

func (s *Service) RenderHTML(ctx context.Context, id string) (string, error) {
	view, err := s.view(ctx, id)
	if err != nil {
		return "", err
	}
	html, err := s.renderer.RenderHTML(view)
	if err != nil {
		return "", err
	}
	s.metrics.RecordDocumentRendered(ctx, "html")
	return html, nil
}

func (s *Service) RenderPDF(ctx context.Context, id string) (domain.Document, error) {
	view, err := s.view(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}
	body, err := s.pdf.RenderBill(ctx, view)
	if err != nil {
		s.log.Error("bill.render_pdf.failed", zap.String("bill_number", view.BillNumber), zap.Error(err))
		return domain.Document{}, err
	}
	s.metrics.RecordDocumentRendered(ctx, "pdf")
	return domain.Document{
		Filename:    documentFilename(view.Customer.Name, view.BillNumber),
		ContentType: pdfContentType,
		Body:        body,
	}, nil
}

// view loads the frozen bill and formats it. Nothing is recomputed.
func (s *Service) view(ctx context.Context, id string) (render.View, error) {
	bill, err := s.GetByID(ctx, id)
	if err != nil {
		return render.View{}, err
	}
	return render.BuildView(bill, companyFrom(s.billing.Get()), s.loc)
}

func companyFrom(cfg config.BillingConfig) render.Company {
	return render.Company{
		Name:         cfg.Company.Name,
		ShortName:    cfg.Company.ShortName,
		AddressLines: cfg.Company.AddressLines,
		Phone:        cfg.Company.Phone,
		GSTIN:        cfg.Company.GSTIN,
		StateCode:    cfg.Company.StateCode,
		Email:        cfg.Company.Email,
		LogoPath:     cfg.Company.LogoPath,
		FooterNote:   cfg.FooterNote,
	}
}

// documentFilename yields "<customer>-<number>.pdf" with both parts slugged.
func documentFilename(customer, number string) string {
	parts := make([]string, 0, 2)
	for _, raw := range []string{customer, number} {
		if s := slug.Make(raw); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "bill.pdf"
	}
	return strings.Join(parts, "-") + ".pdf"
}
