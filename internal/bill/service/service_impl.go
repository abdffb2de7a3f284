package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/jewelbill/internal/bill/domain"
	"github.com/smallbiznis/jewelbill/internal/bill/format"
	"github.com/smallbiznis/jewelbill/internal/bill/render"
	"github.com/smallbiznis/jewelbill/internal/clock"
	"github.com/smallbiznis/jewelbill/internal/config"
	obsmetrics "github.com/smallbiznis/jewelbill/internal/observability/metrics"
	productdomain "github.com/smallbiznis/jewelbill/internal/product/domain"
	pdfprovider "github.com/smallbiznis/jewelbill/internal/providers/pdf"
	"github.com/smallbiznis/jewelbill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Config   config.Config
	Billing  *config.BillingConfigHolder
	Repo     domain.Repository
	Products productdomain.Service
	Renderer render.Renderer
	PDF      pdfprovider.Provider
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	loc      *time.Location
	billing  *config.BillingConfigHolder
	repo     domain.Repository
	products productdomain.Service
	renderer render.Renderer
	pdf      pdfprovider.Provider
	metrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("bill.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		loc:      p.Config.Location(),
		billing:  p.Billing,
		repo:     p.Repo,
		products: p.Products,
		renderer: p.Renderer,
		pdf:      p.PDF,
		metrics:  p.Metrics,
	}
}

// Create prices the request, numbers it and stores the frozen bill in one
// transaction.
func (s *Service) Create(ctx context.Context, req domain.CreateBillRequest) (*domain.Bill, error) {
	now := s.clock.Now().UTC()
	bill, err := s.build(ctx, req, now)
	if err != nil {
		s.rejected(ctx, err)
		return nil, err
	}

	template := s.billing.Get().NumberTemplate
	billDate := format.BillDate(now, s.loc)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := s.repo.NextSequence(ctx, tx, billDate, now)
		if err != nil {
			return err
		}
		number, err := format.FormatBillNumber(template, now.In(s.loc), seq)
		if err != nil {
			return err
		}

		bill.ID = s.genID.Generate()
		bill.BillNumber = number
		bill.BillDate = billDate
		for i := range bill.Items {
			bill.Items[i].ID = s.genID.Generate()
		}
		return s.repo.Insert(ctx, tx, bill)
	})
	if err != nil {
		s.rejected(ctx, err)
		s.log.Error("bill.create.failed", zap.Error(err))
		return nil, err
	}

	s.metrics.RecordBillCreated(ctx, string(bill.Currency))
	s.log.Info("bill.created",
		zap.String("bill_id", bill.ID.String()),
		zap.String("bill_number", bill.BillNumber),
		zap.String("currency", string(bill.Currency)),
		zap.String("total", bill.Currency.String(bill.Total)),
		zap.Int("items", len(bill.Items)),
	)
	return bill, nil
}

// Preview runs the same computation as Create without numbering or storing.
func (s *Service) Preview(ctx context.Context, req domain.CreateBillRequest) (*domain.Bill, error) {
	return s.build(ctx, req, s.clock.Now().UTC())
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Bill, error) {
	billID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || billID == 0 {
		return nil, domain.ErrInvalidBillID
	}
	return s.repo.FindByID(ctx, s.db, billID)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*domain.Bill, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.FindByNumber(ctx, s.db, number)
}

func (s *Service) List(ctx context.Context, req domain.ListBillRequest) (domain.ListBillResponse, error) {
	if req.CreatedFrom != nil && req.CreatedTo != nil && req.CreatedFrom.After(*req.CreatedTo) {
		return domain.ListBillResponse{}, domain.ErrInvalidDateRange
	}

	limit := req.Limit()
	filter := domain.ListFilter{
		Search:      req.Search,
		CreatedFrom: utcPtr(req.CreatedFrom),
		CreatedTo:   utcPtr(req.CreatedTo),
		Limit:       limit + 1,
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.ListBillResponse{}, err
	}
	if cursor != nil {
		afterID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListBillResponse{}, pagination.ErrInvalidPageToken
		}
		afterCreatedAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return domain.ListBillResponse{}, pagination.ErrInvalidPageToken
		}
		filter.AfterID = &afterID
		filter.AfterCreatedAt = &afterCreatedAt
	}

	bills, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListBillResponse{}, err
	}

	page, info, err := pagination.BuildCursorPageInfo(bills, limit, func(b domain.Bill) pagination.Cursor {
		return pagination.Cursor{
			ID:        b.ID.String(),
			CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	})
	if err != nil {
		return domain.ListBillResponse{}, err
	}
	if page == nil {
		page = []domain.Bill{}
	}
	return domain.ListBillResponse{PageInfo: info, Bills: page}, nil
}

func (s *Service) rejected(ctx context.Context, err error) {
	reason := "validation"
	switch {
	case errors.Is(err, domain.ErrTotalsMismatch):
		reason = "totals_mismatch"
	case errors.Is(err, domain.ErrIntegrity):
		reason = "integrity"
	case errors.Is(err, domain.ErrDuplicateNumber):
		reason = "duplicate_number"
	}
	s.metrics.RecordBillRejected(ctx, reason)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
