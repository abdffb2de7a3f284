// Package pdf draws bill views as A4 tax invoices.
package pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/smallbiznis/jewelbill/internal/bill/render"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("pdf",
	fx.Provide(New),
)

var ErrEmptyDocument = errors.New("empty_pdf_document")

// Provider renders a bill view into PDF bytes.
type Provider interface {
	RenderBill(ctx context.Context, view render.View) ([]byte, error)
}

type Params struct {
	fx.In

	Log *zap.Logger
}

type PDFProvider struct {
	log *zap.Logger
}

func New(p Params) Provider {
	return &PDFProvider{log: p.Log.Named("pdf.provider")}
}

func (p *PDFProvider) RenderBill(ctx context.Context, view render.View) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logo := loadLogo(view.Company.LogoPath)
	if logo == nil && view.Company.LogoPath != "" {
		p.log.Debug("logo unavailable, using text letterhead", zap.String("path", view.Company.LogoPath))
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithMaxGridSize(gridSize).
		WithLeftMargin(pageMargin).
		WithRightMargin(pageMargin).
		WithTopMargin(pageMargin).
		Build()

	m := maroto.New(cfg)
	for _, section := range Layout(view, logo) {
		m.AddRows(section.Rows...)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	body := doc.GetBytes()
	if len(body) == 0 {
		return nil, ErrEmptyDocument
	}
	return body, nil
}

// Logo is an embeddable letterhead image.
type Logo struct {
	Bytes     []byte
	Extension extension.Type
}

func loadLogo(path string) *Logo {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	var ext extension.Type
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		ext = extension.Png
	case ".jpg", ".jpeg":
		ext = extension.Jpg
	default:
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return nil
	}
	return &Logo{Bytes: data, Extension: ext}
}
