package places

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Abraxas-365/realtor/pkg/errx"
	"github.com/Abraxas-365/realtor/pkg/httpx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	home   = "13545 Cielo Azul Way, Desert Hot Springs, CA 92240"
	school = "12105 Palm Dr, Desert Hot Springs, CA 92240"
)

const searchBody = `{
  "status": "OK",
  "results": [
    {"name": "Palm Elementary", "formatted_address": "` + school + `", "rating": 4.2, "place_id": "p1"},
    {"name": "Desert Middle", "formatted_address": "66 Hacienda Ave, Desert Hot Springs, CA 92240", "place_id": "p2"}
  ]
}`

func distanceBody(status string) string {
	return `{
  "status": "OK",
  "origin_addresses": ["` + home + `, USA"],
  "destination_addresses": ["` + school + `, USA"],
  "rows": [{"elements": [{"status": "` + status + `", "distance": {"text": "1.9 mi"}, "duration": {"text": "5 mins"}}]}]
}`
}

type recorder struct {
	queries []string
}

func newTestClient(t *testing.T, routes map[string]string) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.queries = append(rec.queries, r.URL.Path+"?"+r.URL.RawQuery)
		body, ok := routes[strings.TrimPrefix(r.URL.Path, "/maps/api")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewClient(httpx.NewClient(0), Config{APIKey: "gkey", BaseURL: srv.URL + "/maps/api"}), rec
}

func TestLooksLikeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{home, true},
		{"I am interested in 18070 Langlois Rd SPACE 212, Desert Hot Springs, CA 92241", true},
		{"the nearest Costco", false},
		{"Desert Hot Springs, CA", false},
		{"12 Main St, Springfield, ca 12345", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LooksLikeAddress(tt.in), tt.in)
	}

	addr, ok := FindAddress("price of " + home + "?")
	require.True(t, ok)
	assert.Equal(t, home, addr)
}

func TestSearch(t *testing.T) {
	c, rec := newTestClient(t, map[string]string{"/place/textsearch/json": searchBody})

	got, err := c.Search(context.Background(), "schools near "+home, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Place{Name: "Palm Elementary", Address: school, Rating: 4.2, PlaceID: "p1"}, got[0])
	assert.Contains(t, rec.queries[0], "key=gkey")

	all, err := c.Search(context.Background(), "schools", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSearch_RequestDenied(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{
		"/place/textsearch/json": `{"status": "REQUEST_DENIED", "error_message": "bad key", "results": []}`,
	})

	_, err := c.Search(context.Background(), "x", 5)
	require.Error(t, err)
	assert.True(t, errx.IsCode(err, CodeProviderFailed))
}

func TestDistance(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{"/distancematrix/json": distanceBody("OK")})

	d, err := c.Distance(context.Background(), home, school)
	require.NoError(t, err)
	assert.Equal(t, "1.9 mi", d.Distance)
	assert.Equal(t, "5 mins", d.Duration)
	assert.Equal(t,
		"Distance from "+school+", USA to "+home+", USA is 1.9 mi and the duration is 5 mins",
		d.String())
}

func TestDistance_NotFound(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{"/distancematrix/json": distanceBody("NOT_FOUND")})

	_, err := c.Distance(context.Background(), home, "nowhere")
	require.Error(t, err)
	assert.True(t, errx.IsCode(err, CodeDistanceNotFound))
}

func TestFindDistance_ResolvesLandmark(t *testing.T) {
	c, rec := newTestClient(t, map[string]string{
		"/place/textsearch/json": searchBody,
		"/distancematrix/json":   distanceBody("OK"),
	})

	d, err := c.FindDistance(context.Background(), home, "elementary school")
	require.NoError(t, err)
	assert.Equal(t, "1.9 mi", d.Distance)

	require.Len(t, rec.queries, 2)
	assert.Contains(t, rec.queries[0], "textsearch")
	assert.Contains(t, rec.queries[1], "distancematrix")
}

func TestFindDistance_AddressSkipsSearch(t *testing.T) {
	c, rec := newTestClient(t, map[string]string{"/distancematrix/json": distanceBody("OK")})

	_, err := c.FindDistance(context.Background(), home, school)
	require.NoError(t, err)
	assert.Len(t, rec.queries, 1)
}

func TestFindDistance_NoPlace(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{
		"/place/textsearch/json": `{"status": "ZERO_RESULTS", "results": []}`,
	})

	_, err := c.FindDistance(context.Background(), home, "unicorn stable")
	assert.True(t, errx.IsCode(err, CodePlaceNotFound))
}

func TestAnnotateDistances(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{"/distancematrix/json": distanceBody("OK")})

	in := []Place{{Name: "Palm Elementary", Address: school}, {Name: "No address"}}
	out := c.AnnotateDistances(context.Background(), in, home)

	assert.Equal(t, "1.9 mi", out[0].Distance)
	assert.Empty(t, out[1].Distance)
	assert.Empty(t, in[0].Distance)
}

func TestFormat(t *testing.T) {
	assert.Contains(t, Format(nil), "did not find")

	text := Format([]Place{{Name: "Palm Elementary", Address: school, Rating: 4.2, Distance: "1.9 mi"}})
	assert.Equal(t, "1. Palm Elementary\nAddress: "+school+"\nRating: 4.2\nDistance: 1.9 mi", text)
}
