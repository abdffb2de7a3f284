package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/jewelbill/internal/config"
)

// Endpoint names a rate-limited route family.
type Endpoint string

const (
	EndpointBillCreate Endpoint = "bills.create"
	EndpointBillPDF    Endpoint = "bills.pdf"
)

const keyPattern = "jewelbill:ratelimit:%s:%s"

type policy struct {
	perSecond float64
	burst     int
}

// Limiter applies the per-client budgets of the public billing endpoints.
type Limiter struct {
	bucket   Bucket
	policies map[Endpoint]policy
}

func NewLimiter(cfg config.Config, bucket Bucket) *Limiter {
	rl := cfg.RateLimit
	policies := map[Endpoint]policy{}
	if rl.BillCreatePerMinute > 0 && rl.BillCreateBurst > 0 {
		policies[EndpointBillCreate] = policy{perSecond: rl.BillCreatePerMinute / 60, burst: rl.BillCreateBurst}
	}
	if rl.PDFPerMinute > 0 && rl.PDFBurst > 0 {
		policies[EndpointBillPDF] = policy{perSecond: rl.PDFPerMinute / 60, burst: rl.PDFBurst}
	}
	return &Limiter{bucket: bucket, policies: policies}
}

// Allow checks one request from client against the endpoint budget. An
// endpoint without a policy is unlimited.
func (l *Limiter) Allow(ctx context.Context, endpoint Endpoint, client string) (*Result, error) {
	if l == nil || l.bucket == nil {
		return &Result{Allowed: true}, nil
	}
	p, ok := l.policies[endpoint]
	if !ok {
		return &Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyPattern, endpoint, strings.TrimSpace(client))
	return l.bucket.Allow(ctx, key, p.perSecond, p.burst)
}
