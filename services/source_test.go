package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/models"
	"github.com/fenilmodi00/ipo-calendar-sync/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"
)

const thirtyEightFixture = `<html><head><title>38커뮤니케이션</title></head><body>
<table summary="공모주 청약일정">
  <tr><th>종목명</th><th>공모주일정</th><th>확정공모가</th><th>희망공모가</th><th>청약경쟁률</th><th>주간사</th></tr>
  <tr>
    <td><a href="/html/fund/?o=v&no=2101">에이피알(유가)</a></td>
    <td>01.14~01.15</td>
    <td>250,000</td>
    <td>210,000~250,000</td>
    <td>1,000.00:1</td>
    <td>신한투자증권,KB증권</td>
  </tr>
  <tr>
    <td>데이원컴퍼니</td>
    <td>01.20~01.21</td>
    <td>-</td>
    <td>14,500~16,500</td>
    <td></td>
    <td>대신증권</td>
  </tr>
  <tr>
    <td>미트박스글로벌</td>
    <td>02.03~02.04</td>
    <td></td>
    <td></td>
    <td></td>
    <td>-</td>
  </tr>
  <tr><td colspan="6">광고</td></tr>
  <tr><td></td><td>02.10~02.11</td><td></td><td></td><td></td><td></td></tr>
</table>
</body></html>`

const kindFixture = `<html><body>
<table class="list">
  <thead><tr><th>회사명</th><th>진행상황</th><th>청약일</th><th>상장일</th><th>공모가</th><th>주관사</th></tr></thead>
  <tbody>
    <tr>
      <td><a href="#" onclick="fnDetailView('12345')">삼양엔씨켐(코스닥)</a></td>
      <td>상장</td>
      <td>2025.01.08 ~ 2025.01.09</td>
      <td>2025.01.17</td>
      <td>12,000</td>
      <td>NH투자증권</td>
    </tr>
    <tr>
      <td>LG씨엔에스</td>
      <td>상장예정</td>
      <td>2025.01.21 ~ 2025.01.22</td>
      <td>2025.02.05</td>
      <td>61,900</td>
      <td>KB증권</td>
    </tr>
    <tr>
      <td>아이지넷</td>
      <td>수요예측</td>
      <td>2025.02.10 ~ 2025.02.11</td>
      <td>-</td>
      <td>4,900~5,500</td>
      <td>유안타증권</td>
    </tr>
  </tbody>
</table>
</body></html>`

func testServiceConfig() shared.ServiceConfig {
	return shared.ServiceConfig{
		FetchDriver:        "resty",
		UserAgent:          "ipo-calendar-sync-test",
		HTTPRequestTimeout: 2 * time.Second,
		RequestRateLimit:   0,
		MaxRetryAttempts:   1,
		RetryBaseDelay:     time.Millisecond,
	}
}

func encodeEUCKR(t *testing.T, s string) []byte {
	t.Helper()
	encoded, err := korean.EUCKR.NewEncoder().String(s)
	require.NoError(t, err)
	return []byte(encoded)
}

func byCompany(records []models.ScrapedRecord) map[string]models.ScrapedRecord {
	out := make(map[string]models.ScrapedRecord, len(records))
	for _, rec := range records {
		out[rec.CompanyName] = rec
	}
	return out
}

func TestThirtyEightSource_Fetch(t *testing.T) {
	body := encodeEUCKR(t, thirtyEightFixture)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "http://www.38.co.kr/", r.Header.Get("Referer"))
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "text/html; charset=euc-kr")
		_, _ = w.Write(body)
	}))
	defer server.Close()

	source := NewThirtyEightSource(NewRestyDocumentFetcher(testServiceConfig(), nil), server.URL,
		fixedClock(time.Date(2025, time.January, 20, 9, 0, 0, 0, kst)))

	result := source.Fetch(context.Background())

	require.NoError(t, result.Err)
	assert.Equal(t, ThirtyEightSourceName, result.Source)
	require.Len(t, result.Records, 3)

	records := byCompany(result.Records)

	apr := records["에이피알"]
	assert.Equal(t, ThirtyEightSourceName, apr.Source)
	assert.True(t, day(2025, 1, 14).Equal(*apr.SubscriptionStart))
	assert.True(t, day(2025, 1, 15).Equal(*apr.SubscriptionEnd))
	assert.Equal(t, int64(210000), *apr.PriceRangeLow)
	assert.Equal(t, int64(250000), *apr.PriceRangeHigh)
	assert.Equal(t, int64(250000), *apr.FinalPrice)
	assert.Equal(t, "신한투자증권,KB증권", *apr.LeadUnderwriter)
	assert.Equal(t, models.IPOStatusCompleted, apr.Status)

	dayOne := records["데이원컴퍼니"]
	assert.Equal(t, int64(14500), *dayOne.PriceRangeLow)
	assert.Equal(t, int64(16500), *dayOne.PriceRangeHigh)
	assert.Nil(t, dayOne.FinalPrice)
	assert.Equal(t, models.IPOStatusSubscription, dayOne.Status)

	meatbox := records["미트박스글로벌"]
	assert.Nil(t, meatbox.PriceRangeLow)
	assert.Nil(t, meatbox.FinalPrice)
	assert.Nil(t, meatbox.LeadUnderwriter)
	assert.Nil(t, meatbox.ListingDate)
	assert.Equal(t, models.IPOStatusUpcoming, meatbox.Status)

	for _, rec := range result.Records {
		assert.True(t, time.Date(2025, time.January, 20, 9, 0, 0, 0, kst).Equal(rec.StatusDerivedAt), rec.CompanyName)
	}
}

func TestThirtyEightSource_MissingTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(encodeEUCKR(t, "<html><body>서비스 점검중입니다</body></html>"))
	}))
	defer server.Close()

	source := NewThirtyEightSource(NewRestyDocumentFetcher(testServiceConfig(), nil), server.URL, fixedClock(day(2025, 1, 20)))
	result := source.Fetch(context.Background())

	require.Error(t, result.Err)
	assert.False(t, result.OK())
	assert.Equal(t, shared.ErrorCategoryDocument, shared.ErrorCategoryOf(result.Err))
	assert.NotNil(t, result.Records)
	assert.Empty(t, result.Records)
}

func TestThirtyEightSource_ServerError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	source := NewThirtyEightSource(NewRestyDocumentFetcher(testServiceConfig(), nil), server.URL, fixedClock(day(2025, 1, 20)))
	result := source.Fetch(context.Background())

	require.Error(t, result.Err)
	assert.Equal(t, shared.ErrorCategoryNetwork, shared.ErrorCategoryOf(result.Err))
	assert.Equal(t, int32(2), hits.Load())
	assert.Empty(t, result.Records)
}

func TestKINDSource_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "searchPubofrProgComSub", r.PostForm.Get("method"))
		assert.Equal(t, "100", r.PostForm.Get("currentPageSize"))
		assert.Equal(t, "1", r.PostForm.Get("pageIndex"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(kindFixture))
	}))
	defer server.Close()

	source := NewKINDSource(NewRestyDocumentFetcher(testServiceConfig(), nil), server.URL,
		fixedClock(time.Date(2025, time.January, 20, 9, 0, 0, 0, kst)))

	result := source.Fetch(context.Background())

	require.NoError(t, result.Err)
	assert.Equal(t, KINDSourceName, result.Source)
	require.Len(t, result.Records, 3)

	records := byCompany(result.Records)

	samyang := records["삼양엔씨켐"]
	assert.Equal(t, models.IPOStatusListed, samyang.Status)
	assert.True(t, day(2025, 1, 8).Equal(*samyang.SubscriptionStart))
	assert.True(t, day(2025, 1, 9).Equal(*samyang.SubscriptionEnd))
	assert.True(t, day(2025, 1, 17).Equal(*samyang.ListingDate))
	assert.Equal(t, int64(12000), *samyang.FinalPrice)
	assert.Equal(t, "NH투자증권", *samyang.LeadUnderwriter)

	lgcns := records["LG씨엔에스"]
	assert.Equal(t, models.IPOStatusCompleted, lgcns.Status)
	assert.True(t, day(2025, 2, 5).Equal(*lgcns.ListingDate))

	// No keyword match, so status comes from the dates
	iginet := records["아이지넷"]
	assert.Equal(t, models.IPOStatusUpcoming, iginet.Status)
	assert.Nil(t, iginet.ListingDate)
	assert.Equal(t, int64(4900), *iginet.PriceRangeLow)
	assert.Equal(t, int64(5500), *iginet.PriceRangeHigh)
	assert.Nil(t, iginet.FinalPrice)
	assert.False(t, iginet.StatusDerivedAt.IsZero())
	assert.True(t, samyang.StatusDerivedAt.IsZero())
	assert.True(t, lgcns.StatusDerivedAt.IsZero())
}

func TestKINDSource_MissingTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><table class="board"><tr><td>x</td></tr></table></body></html>`))
	}))
	defer server.Close()

	source := NewKINDSource(NewRestyDocumentFetcher(testServiceConfig(), nil), server.URL, fixedClock(day(2025, 1, 20)))
	result := source.Fetch(context.Background())

	require.Error(t, result.Err)
	assert.Equal(t, shared.ErrorCategoryDocument, shared.ErrorCategoryOf(result.Err))
	assert.Empty(t, result.Records)
}

func TestKINDSource_EmptyTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<table class="list"><thead><tr><th>회사명</th></tr></thead><tbody></tbody></table>`))
	}))
	defer server.Close()

	source := NewKINDSource(NewRestyDocumentFetcher(testServiceConfig(), nil), server.URL, fixedClock(day(2025, 1, 20)))
	result := source.Fetch(context.Background())

	require.NoError(t, result.Err)
	assert.NotNil(t, result.Records)
	assert.Empty(t, result.Records)
}

func TestSourcesFeedTheSyncEndToEnd(t *testing.T) {
	thirtyEight := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(encodeEUCKR(t, thirtyEightFixture))
	}))
	defer thirtyEight.Close()

	kind := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(kindFixture))
	}))
	defer kind.Close()

	fetcher := NewRestyDocumentFetcher(testServiceConfig(), nil)
	clock := fixedClock(time.Date(2025, time.January, 20, 9, 0, 0, 0, kst))
	store := newFakeStore()
	service := newSyncService(store,
		NewThirtyEightSource(fetcher, thirtyEight.URL, clock),
		NewKINDSource(fetcher, kind.URL, clock),
	)

	first := service.RunSync(context.Background())
	assert.Equal(t, 6, first.Added)
	assert.Empty(t, first.Errors)

	second := service.RunSync(context.Background())
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 6, second.Updated)
}
