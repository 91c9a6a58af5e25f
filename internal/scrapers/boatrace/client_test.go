package boatrace

import (
	"boatrace-results/internal/components/telemetry"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
)

const venueListPage = `<html><head><meta charset="utf-8"></head><body>
<div class="table1">
  <table>
    <tbody>
      <tr>
        <td><a href="/owpc/pc/race/raceindex?jcd=02&hd=20250805"><img src="/static/02.png" alt="戸田"></a></td>
        <td>第12回</td>
      </tr>
    </tbody>
    <tbody>
      <tr>
        <td><img src="/static/no-link.png" alt="リンクなし"></td>
      </tr>
    </tbody>
    <tbody>
      <tr>
        <td><a href="/owpc/pc/race/raceindex?jcd=05&hd=20250805">多摩川</a></td>
      </tr>
    </tbody>
    <tbody>
      <tr>
        <td><a href="/owpc/pc/data/stadium?jcd=09"><img src="/static/09.png" alt="津"></a></td>
        <td><a href="/owpc/pc/race/raceindex?jcd=12&hd=20250805">開催中</a></td>
      </tr>
    </tbody>
    <tbody>
      <tr>
        <td><a href="/owpc/pc/race/raceindex?hd=20250805"><img src="/static/x.png" alt="コードなし"></a></td>
      </tr>
    </tbody>
  </table>
</div>
</body></html>`

const raceIndexPage = `<html><body>
<div class="table1">
  <table>
    <tbody>
      <tr>
        <td class="is-fBold"><a href="/owpc/pc/race/racelist?rno=1&jcd=02&hd=20250805">1R</a></td>
        <td>15:17</td>
      </tr>
      <tr>
        <td class="is-fBold"><a href="/owpc/pc/race/racelist?rno=2&jcd=02&hd=20250805"> 2R </a></td>
        <td>15:45</td>
      </tr>
      <tr>
        <td class="is-fBold"><a href="/owpc/pc/race/racelist?rno=12&jcd=02&hd=20250805">12R</a></td>
        <td>20:40</td>
      </tr>
      <tr>
        <td><a href="/owpc/pc/race/beforeinfo?rno=1&jcd=02&hd=20250805">直前情報</a></td>
      </tr>
    </tbody>
  </table>
</div>
</body></html>`

const payoutPage = `<html><body>
<div class="table1">
  <table><tbody><tr><td>1</td><td>4342</td><td>山田</td></tr></tbody></table>
</div>
<div class="table1 is-payout">
  <table>
    <thead><tr><th>勝式</th><th>組番</th><th>払戻金</th><th>人気</th></tr></thead>
    <tbody>
      <tr><td>3連単</td><td><span>1</span><span>-</span><span>2</span><span>-</span><span>3</span></td><td>10,230</td><td>25</td></tr>
    </tbody>
    <tbody>
      <tr><td>3連複</td><td>1=2=3</td><td>1,480</td><td>5</td></tr>
    </tbody>
    <tbody>
      <tr><td>単勝</td><td>1</td><td>230</td><td></td></tr>
    </tbody>
    <tbody>
      <tr><td rowspan="2">複勝</td><td>1</td><td>100</td><td></td></tr>
      <tr><td>2</td><td>180</td></tr>
      <tr><td>複勝</td><td>2</td><td>180</td></tr>
    </tbody>
    <tbody>
      <tr><td>返還</td><td>3</td><td>100</td></tr>
      <tr><td>不成立</td></tr>
    </tbody>
  </table>
</div>
</body></html>`

const fallbackPayoutPage = `<html><body>
<div class="table1">
  <table><tbody><tr><td>1</td><td>4342</td><td>山田</td></tr></tbody></table>
</div>
<div class="table1">
  <table><tbody>
    <tr><td>単勝</td><td>4</td><td>1,050</td></tr>
    <tr><td>2連単</td><td>4-1</td><td>3,020</td></tr>
  </tbody></table>
</div>
<div class="table1">
  <table><tbody><tr><td>単勝</td><td>9</td><td>999</td></tr></tbody></table>
</div>
</body></html>`

const unsettledPage = `<html><body>
<div class="table1">
  <table><tbody><tr><td>1</td><td>4342</td><td>山田</td></tr></tbody></table>
</div>
<p>データがありません</p>
</body></html>`

const noRecognizedRowsPage = `<html><body>
<div class="table1 is-payout">
  <table><tbody>
    <tr><td>返還</td><td>3</td><td>100</td></tr>
    <tr><td>単勝</td><td>1</td></tr>
  </tbody></table>
</div>
</body></html>`

type fakeSite struct {
	t      *testing.T
	server *httptest.Server

	mutex    sync.Mutex
	requests []string
	// pages are keyed by "<path>?<sorted query>"
	pages map[string]fakePage
}

type fakePage struct {
	status      int
	contentType string
	body        []byte
}

func newFakeSite(t *testing.T) *fakeSite {
	site := &fakeSite{t: t, pages: map[string]fakePage{}}
	site.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("%s?%s", r.URL.Path, r.URL.Query().Encode())

		site.mutex.Lock()
		site.requests = append(site.requests, key)
		page, ok := site.pages[key]
		site.mutex.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		contentType := page.contentType
		if contentType == "" {
			contentType = "text/html; charset=utf-8"
		}
		w.Header().Set("Content-Type", contentType)
		status := page.status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		w.Write(page.body)
	}))
	t.Cleanup(site.server.Close)
	return site
}

func (s *fakeSite) serve(key string, page fakePage) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.pages[key] = page
}

func (s *fakeSite) serveHtml(key, body string) {
	s.serve(key, fakePage{body: []byte(body)})
}

func (s *fakeSite) client(tel telemetry.API) Client {
	client, err := NewClient(Options{BaseUrl: s.server.URL}, tel)
	if err != nil {
		s.t.Fatal(err)
	}
	return client
}

func TestVenues(t *testing.T) {
	site := newFakeSite(t)
	site.serveHtml("/owpc/pc/race/index?hd=20250805", venueListPage)

	venues, err := site.client(&telemetry.Recorder{}).Venues(context.Background(), "20250805")
	require.NoError(t, err)
	require.Equal(t, []Venue{
		{Date: "20250805", Code: "02", Name: "戸田"},
		{Date: "20250805", Code: "12", Name: "津"},
	}, venues)
}

func TestVenuesNoneScheduled(t *testing.T) {
	site := newFakeSite(t)
	site.serveHtml("/owpc/pc/race/index?hd=20250806", `<html><body><p>本日の開催はありません</p></body></html>`)

	venues, err := site.client(&telemetry.Recorder{}).Venues(context.Background(), "20250806")
	require.NoError(t, err)
	require.Empty(t, venues)
}

func TestVenuesStatusError(t *testing.T) {
	site := newFakeSite(t)
	site.serve("/owpc/pc/race/index?hd=20250805", fakePage{status: http.StatusServiceUnavailable})

	recorder := &telemetry.Recorder{}
	_, err := site.client(recorder).Venues(context.Background(), "20250805")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	require.Len(t, recorder.Find(telemetry.LevelBroken, report_client_venues), 1)
}

func TestVenuesShiftJIS(t *testing.T) {
	encode := func(s string) []byte {
		out, err := japanese.ShiftJIS.NewEncoder().String(s)
		if err != nil {
			t.Fatal(err)
		}
		return []byte(out)
	}
	page := `<html><head><meta http-equiv="Content-Type" content="text/html; charset=Shift_JIS"></head><body>
<div class="table1"><table><tbody><tr><td>
<a href="/owpc/pc/race/raceindex?jcd=02&hd=20250805"><img alt="戸田"></a>
</td></tr></tbody></table></div></body></html>`

	cases := []struct {
		name        string
		contentType string
	}{
		{name: "header", contentType: "text/html; charset=Shift_JIS"},
		{name: "meta", contentType: "text/html"},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			site := newFakeSite(t)
			site.serve("/owpc/pc/race/index?hd=20250805", fakePage{
				contentType: test.contentType,
				body:        encode(page),
			})

			venues, err := site.client(&telemetry.Recorder{}).Venues(context.Background(), "20250805")
			require.NoError(t, err)
			require.Equal(t, []Venue{{Date: "20250805", Code: "02", Name: "戸田"}}, venues)
		})
	}
}

func TestRaces(t *testing.T) {
	site := newFakeSite(t)
	site.serveHtml("/owpc/pc/race/raceindex?hd=20250805&jcd=02", raceIndexPage)
	site.serveHtml("/owpc/pc/race/raceindex?hd=20250805&jcd=05", `<html><body><div class="table1"></div></body></html>`)

	client := site.client(&telemetry.Recorder{})

	races, err := client.Races(context.Background(), "20250805", "02")
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2", "12"}, races)

	races, err = client.Races(context.Background(), "20250805", "05")
	require.NoError(t, err)
	require.Empty(t, races)

	_, err = client.Races(context.Background(), "20250805", "24")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestPayout(t *testing.T) {
	site := newFakeSite(t)
	site.serveHtml("/owpc/pc/race/raceresult?hd=20250805&jcd=02&rno=1", payoutPage)

	recorder := &telemetry.Recorder{}
	record, ok := site.client(recorder).Payout(context.Background(), "20250805", "02", "1")
	require.True(t, ok)
	require.Equal(t, PayoutRecord{
		RaceNum: "1",
		Payouts: Payouts{
			BetTrifecta: {{Combination: "1-2-3", Payout: "10230"}},
			BetTrio:     {{Combination: "1=2=3", Payout: "1480"}},
			BetWin:      {{Combination: "1", Payout: "230"}},
			BetPlace: {
				{Combination: "1", Payout: "100"},
				{Combination: "2", Payout: "180"},
			},
		},
	}, record)
	for betType := range record.Payouts {
		require.True(t, betType.Recognized(), betType)
	}

	var logged []string
	for _, report := range recorder.Find(telemetry.LevelDebug, "payout rows") {
		logged = append(logged, fmt.Sprintf("%v=%v", report.Params[0], report.Params[1]))
	}
	require.Equal(t, []string{"single-win=1", "place=2", "trifecta=1", "trio=1"}, logged)
}

func TestPayoutMarkerScanSkipsScripts(t *testing.T) {
	site := newFakeSite(t)
	site.serveHtml("/owpc/pc/race/raceresult?hd=20250805&jcd=02&rno=5", `<html><body>
<div class="table1">
  <script>var labels = ["単勝", "複勝"];</script>
  <table><tbody><tr><td>1</td><td>4342</td><td>山田</td></tr></tbody></table>
</div>
<div class="table1">
  <table><tbody><tr><td>単勝</td><td>2</td><td>310</td></tr></tbody></table>
</div>
</body></html>`)

	record, ok := site.client(&telemetry.Recorder{}).Payout(context.Background(), "20250805", "02", "5")
	require.True(t, ok)
	require.Equal(t, Payouts{BetWin: {{Combination: "2", Payout: "310"}}}, record.Payouts)
}

func TestPayoutRequiresIdentifiers(t *testing.T) {
	site := newFakeSite(t)
	client := site.client(&telemetry.Recorder{})

	require.Panics(t, func() { client.Payout(context.Background(), "20250805", "02", "") })
	require.Panics(t, func() { client.Payout(context.Background(), "20250805", "", "1") })
	require.Panics(t, func() { client.Races(context.Background(), "20250805", "") })
}

func TestClientTimeouts(t *testing.T) {
	client, err := NewClient(Options{BaseUrl: "http://127.0.0.1"}, &telemetry.Recorder{})
	require.NoError(t, err)

	httpClient := client.http.GetClient()
	require.Equal(t, ConnectTimeout+ReadTimeout, httpClient.Timeout)
	transport, ok := httpClient.Transport.(*http.Transport)
	require.True(t, ok)
	require.Equal(t, ConnectTimeout, transport.TLSHandshakeTimeout)
	require.Equal(t, ReadTimeout, transport.ResponseHeaderTimeout)
	require.Equal(t, 5*time.Second, ConnectTimeout)
	require.Equal(t, 30*time.Second, ReadTimeout)
}

func TestTransportStalledResponse(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	httpClient := &http.Client{Transport: newTransport(time.Second, 100*time.Millisecond)}
	start := time.Now()
	_, err := httpClient.Get(server.URL)
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestTransportConnectTimeout(t *testing.T) {
	// non-routable, the dial either hangs until the timeout or fails right away
	transport := newTransport(100*time.Millisecond, time.Second)
	transport.Proxy = nil
	httpClient := &http.Client{Transport: transport}
	start := time.Now()
	_, err := httpClient.Get("http://10.255.255.1:81")
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestClientUserAgent(t *testing.T) {
	cases := []struct {
		name     string
		opts     Options
		expected string
	}{
		{name: "default", expected: DefaultUserAgent},
		{name: "browser transport", opts: Options{BrowserTransport: true}, expected: DefaultUserAgent},
		{name: "override", opts: Options{UserAgent: "boatrace-results/1.0"}, expected: "boatrace-results/1.0"},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			received := make(chan string, 1)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				received <- r.UserAgent()
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Write([]byte("<html><body></body></html>"))
			}))
			t.Cleanup(server.Close)

			opts := test.opts
			opts.BaseUrl = server.URL
			client, err := NewClient(opts, &telemetry.Recorder{})
			require.NoError(t, err)

			_, err = client.Venues(context.Background(), "20250805")
			require.NoError(t, err)
			require.Equal(t, test.expected, <-received)
		})
	}
}

func TestPayoutFallbackLookup(t *testing.T) {
	site := newFakeSite(t)
	site.serveHtml("/owpc/pc/race/raceresult?hd=20250805&jcd=02&rno=3", fallbackPayoutPage)

	record, ok := site.client(&telemetry.Recorder{}).Payout(context.Background(), "20250805", "02", "3")
	require.True(t, ok)
	require.Equal(t, PayoutRecord{
		RaceNum: "3",
		Payouts: Payouts{
			BetWin:    {{Combination: "4", Payout: "1050"}},
			BetExacta: {{Combination: "4-1", Payout: "3020"}},
		},
	}, record)
}

func TestPayoutNotFound(t *testing.T) {
	site := newFakeSite(t)
	site.serveHtml("/owpc/pc/race/raceresult?hd=20250805&jcd=02&rno=1", unsettledPage)
	site.serveHtml("/owpc/pc/race/raceresult?hd=20250805&jcd=02&rno=2", noRecognizedRowsPage)
	site.serve("/owpc/pc/race/raceresult?hd=20250805&jcd=02&rno=3", fakePage{status: http.StatusInternalServerError})

	cases := []struct {
		race  string
		level telemetry.Level
	}{
		{race: "1", level: telemetry.LevelWarning},
		{race: "2", level: telemetry.LevelWarning},
		{race: "3", level: telemetry.LevelBroken},
		// not served at all, 404
		{race: "4", level: telemetry.LevelBroken},
	}

	for _, test := range cases {
		recorder := &telemetry.Recorder{}
		record, ok := site.client(recorder).Payout(context.Background(), "20250805", "02", test.race)
		require.False(t, ok, test.race)
		require.Equal(t, PayoutRecord{}, record)
		require.Len(t, recorder.Find(test.level, report_client_payout), 1, test.race)
	}
}

func TestPayoutCanceledContext(t *testing.T) {
	site := newFakeSite(t)
	site.serveHtml("/owpc/pc/race/raceresult?hd=20250805&jcd=02&rno=1", payoutPage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := site.client(&telemetry.Recorder{}).Payout(ctx, "20250805", "02", "1")
	require.False(t, ok)
}

func TestBetTypes(t *testing.T) {
	require.Len(t, BetTypes, 7)
	for _, betType := range BetTypes {
		require.True(t, betType.Recognized())
	}
	require.Equal(t, "quinella-place", BetQuinellaPlace.Name())
	require.False(t, BetType("返還").Recognized())
	require.Equal(t, "返還", BetType("返還").Name())
}
