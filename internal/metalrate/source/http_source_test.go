package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/jewelbill/internal/metalrate/domain"
	"github.com/smallbiznis/jewelbill/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feeds(t *testing.T, spot string, spotStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/spot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(spotStatus)
		_, _ = w.Write([]byte(spot))
	})
	mux.HandleFunc("/fx", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"base":"USD","rates":{"INR":83.5,"BHD":0.376,"EUR":0.9}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchObjectSpot(t *testing.T) {
	srv := feeds(t, `{"gold":2000,"silver":25}`, http.StatusOK)
	src := NewHTTPSource(srv.URL+"/spot", srv.URL+"/fx", time.Second, srv.Client())

	quote, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SourceLive, quote.Source)
	assert.Equal(t, "5369.17", quote.India[domain.Grade{Metal: domain.MetalGold, Purity: domain.Purity24K}].StringFixed(2))
	assert.Equal(t, "0.376", quote.BHDPerUSD.String())
}

func TestFetchListSpot(t *testing.T) {
	srv := feeds(t, `[{"gold":2000.0},{"silver":"25"},{"platinum":900}]`, http.StatusOK)
	src := NewHTTPSource(srv.URL+"/spot", srv.URL+"/fx", time.Second, srv.Client())

	quote, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, quote.Bahrain, 4)
}

func TestFetchUpstreamFailures(t *testing.T) {
	cases := map[string]*httptest.Server{
		"status":  feeds(t, `oops`, http.StatusBadGateway),
		"garbage": feeds(t, `not json`, http.StatusOK),
		"missing": feeds(t, `{"gold":2000}`, http.StatusOK),
	}
	for name, srv := range cases {
		t.Run(name, func(t *testing.T) {
			src := NewHTTPSource(srv.URL+"/spot", srv.URL+"/fx", time.Second, srv.Client())
			_, err := src.Fetch(context.Background())
			assert.ErrorIs(t, err, metrics.ErrUpstream)
		})
	}
}

func TestFetchDisabledWithoutURLs(t *testing.T) {
	_, err := NewHTTPSource("", "", 0, nil).Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrSourceDisabled)
}
