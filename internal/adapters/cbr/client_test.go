package cbr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/cbr_rates/internal/apperrors"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/SscSPs/cbr_rates/internal/core/ports/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FetchDailyHTML(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	doc, err := c.FetchDaily(context.Background(), civil.Date{Year: 2022, Month: time.February, Day: 1})
	require.NoError(t, err)

	assert.Equal(t, "/currency_base/daily/", gotPath)
	assert.Equal(t, "01.02.2022", gotQuery["UniDbQuery.To"][0])
	assert.Equal(t, "True", gotQuery["UniDbQuery.Posted"][0])
	assert.Equal(t, sources.DailyHTML, doc.Kind)
	assert.Equal(t, "<html></html>", string(doc.Body))
	assert.Equal(t, c.Source(), doc.Source)
	assert.False(t, doc.FetchedAt.IsZero())
}

func TestClient_FetchDailyXML(t *testing.T) {
	var gotPath, gotDate string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotDate = r.URL.Query().Get("date_req")
		_, _ = w.Write([]byte("<ValCurs/>"))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second, WithDailyKind(sources.DailyXML))
	require.NoError(t, err)

	doc, err := c.FetchDaily(context.Background(), civil.Date{Year: 2024, Month: time.March, Day: 2})
	require.NoError(t, err)
	assert.Equal(t, "/scripts/XML_daily.asp", gotPath)
	assert.Equal(t, "02.03.2024", gotDate)
	assert.Equal(t, sources.DailyXML, doc.Kind)
}

func TestClient_FetchPeriod(t *testing.T) {
	var q map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query()
		_, _ = w.Write([]byte("<ValCurs/>"))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	eur, _ := domain.LookupCurrency(domain.EUR)
	doc, err := c.FetchPeriod(context.Background(), eur,
		civil.Date{Year: 2024, Month: time.March, Day: 1},
		civil.Date{Year: 2024, Month: time.March, Day: 31})
	require.NoError(t, err)

	assert.Equal(t, sources.PeriodXML, doc.Kind)
	assert.Equal(t, "01/03/2024", q["date_req1"][0])
	assert.Equal(t, "31/03/2024", q["date_req2"][0])
	assert.Equal(t, "R01239", q["VAL_NM_RQ"][0])
}

func TestClient_ServerErrorIsSourceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = c.FetchDaily(context.Background(), civil.Date{Year: 2024, Month: time.March, Day: 2})
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestClient_UnreachableIsSourceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, time.Second)
	require.NoError(t, err)

	_, err = c.FetchDaily(context.Background(), civil.Date{Year: 2024, Month: time.March, Day: 2})
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

func TestClient_TimeoutIsSourceUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(srv.URL, 50*time.Millisecond)
	require.NoError(t, err)

	_, err = c.FetchDaily(context.Background(), civil.Date{Year: 2024, Month: time.March, Day: 2})
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("not a url", time.Second)
	assert.Error(t, err)

	_, err = NewClient("https://www.cbr.ru", time.Second, WithDailyKind(sources.PeriodXML))
	assert.Error(t, err)

	c, err := NewClient("", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "www.cbr.ru", c.Source())
}
