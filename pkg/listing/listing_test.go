package listing

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abraxas-365/realtor/pkg/errx"
	"github.com/Abraxas-365/realtor/pkg/httpx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// fakeRapidAPI serves canned bodies by path and records the last request
type fakeRapidAPI struct {
	routes   map[string]string
	lastReq  *http.Request
	lastBody []byte
}

func (f *fakeRapidAPI) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.lastReq = r
		f.lastBody, _ = io.ReadAll(r.Body)
		body, ok := f.routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const zillowProperty = `{
  "zpid": 2080473,
  "price": 450000,
  "bedrooms": 3,
  "listed_by": {"agent": "x"},
  "priceHistory": [{"price": 1}],
  "resoFacts": {"a": 1},
  "taxHistory": [{"tax": 1}],
  "nearbyHomes": [{"zpid": 1, "price": 300000}, {"zpid": 2, "price": 320000}]
}`

func newZillow(t *testing.T, routes map[string]string) (*Zillow, *fakeRapidAPI) {
	fake := &fakeRapidAPI{routes: routes}
	srv := fake.server(t)
	return NewZillow(httpx.NewClient(0), Config{APIKey: "key", BaseURL: srv.URL}), fake
}

func TestZillow_FindZPID(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"object", `{"zpid": 2080473}`, "2080473"},
		{"array", `[{"zpid": 111}, {"zpid": 222}]`, "111"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, fake := newZillow(t, map[string]string{"/propertyExtendedSearch": tt.body})

			zpid, err := z.FindZPID(context.Background(), "1 Main St, Palm Springs, CA 92262")
			require.NoError(t, err)
			assert.Equal(t, tt.want, zpid)

			assert.Equal(t, "key", fake.lastReq.Header.Get("X-RapidAPI-Key"))
			assert.Equal(t, "zillow-com1.p.rapidapi.com", fake.lastReq.Header.Get("X-RapidAPI-Host"))
			assert.Equal(t, "1", fake.lastReq.URL.Query().Get("page"))
			assert.Equal(t, "1 Main St, Palm Springs, CA 92262", fake.lastReq.URL.Query().Get("location"))
		})
	}
}

func TestZillow_FindZPID_NotFound(t *testing.T) {
	z, _ := newZillow(t, map[string]string{"/propertyExtendedSearch": `{"results": []}`})

	_, err := z.FindZPID(context.Background(), "somewhere")
	require.Error(t, err)
	assert.True(t, errx.IsCode(err, CodeAddressNotFound))
}

func TestZillow_PropertyStripsHistory(t *testing.T) {
	z, fake := newZillow(t, map[string]string{
		"/propertyExtendedSearch": `{"zpid": 2080473}`,
		"/property":               zillowProperty,
	})

	got, err := z.Property(context.Background(), "1 Main St")
	require.NoError(t, err)

	doc := gjson.ParseBytes(got)
	assert.Equal(t, int64(450000), doc.Get("price").Int())
	for _, f := range zillowStripped {
		assert.False(t, doc.Get(f).Exists(), f)
	}
	assert.Equal(t, "2080473", fake.lastReq.URL.Query().Get("zpid"))
}

func TestZillow_NearbyHomes(t *testing.T) {
	z, _ := newZillow(t, map[string]string{
		"/propertyExtendedSearch": `{"zpid": 1}`,
		"/property":               zillowProperty,
	})

	got, err := z.NearbyHomes(context.Background(), "1 Main St")
	require.NoError(t, err)
	assert.Len(t, gjson.ParseBytes(got).Array(), 2)
}

func TestZillow_ProviderError(t *testing.T) {
	z, _ := newZillow(t, map[string]string{})

	_, err := z.Property(context.Background(), "1 Main St")
	require.Error(t, err)
	assert.True(t, errx.IsCode(err, CodeProviderFailed))
	status, ok := httpx.StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, status)
}

const realtorDetail = `{
  "data": {
    "home": {
      "property_id": "9118263398",
      "list_price": 515000,
      "description": {"beds": 3, "baths": 2},
      "advertisers": [], "buyers": [], "consumer_advertisers": [], "flags": {},
      "home_tours": {}, "lead_attributes": {}, "property_history": [], "other_listings": {},
      "products": {}, "source": {}, "matterport": null, "tags": [], "primary_photo": {},
      "suppression_flags": {}, "href": "https://realtor.com/x",
      "photos": [{"href": "https://img/1.jpg"}, {"href": "https://img/2.jpg"}, {"title": "no href"}],
      "tax_history": [{"year": 2023}, {"year": 2022}, {"year": 2021}, {"year": 2020}, {"year": 2019}],
      "estimates": {"historical_values": [{"source": "x", "estimates": [{"v": 1}, {"v": 2}, {"v": 3}]}]}
    }
  }
}`

func newRealtor(t *testing.T, routes map[string]string) (*Realtor, *fakeRapidAPI) {
	fake := &fakeRapidAPI{routes: routes}
	srv := fake.server(t)
	return NewRealtor(httpx.NewClient(0), Config{APIKey: "key", BaseURL: srv.URL}), fake
}

func realtorRoutes() map[string]string {
	return map[string]string{
		"/auto-complete":     `{"autocomplete": [{"_id": "addr:9118263398", "line": "1 Main St"}]}`,
		"/properties/detail": realtorDetail,
	}
}

func TestRealtor_FindPropertyID(t *testing.T) {
	r, fake := newRealtor(t, realtorRoutes())

	id, err := r.FindPropertyID(context.Background(), "1 Main St")
	require.NoError(t, err)
	assert.Equal(t, "9118263398", id)
	assert.Equal(t, "1 Main St", fake.lastReq.URL.Query().Get("input"))
	assert.Equal(t, "realtor-com4.p.rapidapi.com", fake.lastReq.Header.Get("X-RapidAPI-Host"))
}

func TestRealtor_FindPropertyID_NotFound(t *testing.T) {
	for _, body := range []string{`{"autocomplete": []}`, `{"autocomplete": [{"_id": "city"}]}`} {
		r, _ := newRealtor(t, map[string]string{"/auto-complete": body})
		_, err := r.FindPropertyID(context.Background(), "nowhere")
		assert.True(t, errx.IsCode(err, CodeAddressNotFound), body)
	}
}

func TestRealtor_Details(t *testing.T) {
	r, fake := newRealtor(t, realtorRoutes())

	got, err := r.Details(context.Background(), "1 Main St")
	require.NoError(t, err)

	home := gjson.GetBytes(got, "data.home")
	assert.Equal(t, int64(515000), home.Get("list_price").Int())
	assert.True(t, home.Get("description").Exists())
	for _, f := range realtorStripped {
		assert.False(t, home.Get(f).Exists(), f)
	}
	assert.Equal(t, "9118263398", fake.lastReq.URL.Query().Get("property_id"))
}

func TestRealtor_TaxAndPriceHistory(t *testing.T) {
	r, _ := newRealtor(t, realtorRoutes())

	got, err := r.TaxAndPriceHistory(context.Background(), "1 Main St")
	require.NoError(t, err)

	doc := gjson.ParseBytes(got)
	assert.Len(t, doc.Get(`0.Tax History`).Array(), taxHistoryLimit)
	assert.Equal(t, int64(2023), doc.Get(`0.Tax History.0.year`).Int())
	assert.Len(t, doc.Get(`1.Price History`).Array(), 3)
}

func TestRealtor_Photos(t *testing.T) {
	r, _ := newRealtor(t, realtorRoutes())

	photos, err := r.Photos(context.Background(), "1 Main St")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img/1.jpg", "https://img/2.jpg"}, photos)
}

func TestRealtor_Search(t *testing.T) {
	props := `[`
	for i := range 7 {
		if i > 0 {
			props += ","
		}
		props += `{"property_id": "p` + string(rune('0'+i)) + `", "list_price": 1, "branding": [], "flags": {}, "photos": [], "source": {}}`
	}
	props += `]`
	r, fake := newRealtor(t, map[string]string{
		"/properties/list": `{"data": {"home_search": {"properties": ` + props + `}}}`,
	})

	got, err := r.Search(context.Background(), SearchParams{StateCode: "CA", City: "Palm Springs", Beds: 3, SoldPrice: 400000})
	require.NoError(t, err)

	results := gjson.ParseBytes(got).Array()
	require.Len(t, results, searchResultLimit)
	assert.Equal(t, "p0", results[0].Get("property_id").String())
	for _, res := range results {
		for _, f := range searchStripped {
			assert.False(t, res.Get(f).Exists(), f)
		}
	}

	sent := gjson.ParseBytes(fake.lastBody)
	assert.Equal(t, http.MethodPost, fake.lastReq.Method)
	assert.Equal(t, `["for_sale","ready_to_build"]`, sent.Get("query.status").Raw)
	assert.Equal(t, "CA", sent.Get("query.state_code").String())
	assert.Equal(t, float64(400000), sent.Get("query.list_price.min").Float())
	assert.Equal(t, float64(3), sent.Get("query.beds.max").Float())
	assert.False(t, sent.Get("query.baths").Exists())
	assert.Equal(t, int64(42), sent.Get("limit").Int())
	assert.Equal(t, int64(100), sent.Get("radius").Int())
	assert.Equal(t, "list_date", sent.Get("sort.field").String())
}
