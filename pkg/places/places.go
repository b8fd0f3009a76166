// Package places wraps the Google Places text search and Distance Matrix
// APIs used to answer "what is near this house" questions.
package places

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/Abraxas-365/realtor/pkg/errx"
	"github.com/Abraxas-365/realtor/pkg/httpx"
	"github.com/Abraxas-365/realtor/pkg/logx"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "https://maps.googleapis.com/maps/api"

	// DistanceNotFoundMessage is what the model is told when no route exists
	DistanceNotFoundMessage = "Sorry, couldn't find the distance"
)

var ErrRegistry = errx.NewRegistry("PLACES")

var (
	CodeDistanceNotFound = ErrRegistry.Register("DISTANCE_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, DistanceNotFoundMessage)
	CodePlaceNotFound    = ErrRegistry.Register("PLACE_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "No place matched the query")
	CodeProviderFailed   = ErrRegistry.Register("PROVIDER_FAILED", errx.TypeExternal, http.StatusBadGateway, "Google Maps request failed")
)

// addressPattern matches a US street address such as
// "13545 Cielo Azul Way, Desert Hot Springs, CA 92240"
var addressPattern = regexp.MustCompile(`\d+\s[A-Za-z0-9\s]+,\s[A-Za-z\s]+,\s[A-Z]{2}\s\d{5}`)

// LooksLikeAddress reports whether s contains a full street address
func LooksLikeAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// FindAddress returns the first street address in s
func FindAddress(s string) (string, bool) {
	m := addressPattern.FindString(s)
	return m, m != ""
}

type Config struct {
	APIKey  string
	BaseURL string
}

type Client struct {
	http    *httpx.Client
	key     string
	baseURL string
}

func NewClient(client *httpx.Client, cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{http: client, key: cfg.APIKey, baseURL: strings.TrimRight(base, "/")}
}

// Place is one text search result
type Place struct {
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	Rating   float64 `json:"rating,omitempty"`
	PlaceID  string  `json:"place_id,omitempty"`
	Distance string  `json:"distance,omitempty"`
}

// Search runs a text search and returns at most topK places
func (c *Client) Search(ctx context.Context, query string, topK int) ([]Place, error) {
	body, err := c.get(ctx, "/place/textsearch/json", url.Values{"query": {query}})
	if err != nil {
		return nil, err
	}

	var out []Place
	for _, r := range gjson.GetBytes(body, "results").Array() {
		if topK > 0 && len(out) >= topK {
			break
		}
		out = append(out, Place{
			Name:    r.Get("name").String(),
			Address: r.Get("formatted_address").String(),
			Rating:  r.Get("rating").Float(),
			PlaceID: r.Get("place_id").String(),
		})
	}
	return out, nil
}

// Distance is a driving distance between two resolved addresses
type Distance struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Distance    string `json:"distance"`
	Duration    string `json:"duration"`
}

func (d Distance) String() string {
	return fmt.Sprintf("Distance from %s to %s is %s and the duration is %s",
		d.Destination, d.Origin, d.Distance, d.Duration)
}

// Distance queries the Distance Matrix for one origin/destination pair
func (c *Client) Distance(ctx context.Context, origin, destination string) (Distance, error) {
	body, err := c.get(ctx, "/distancematrix/json", url.Values{
		"origins":      {origin},
		"destinations": {destination},
	})
	if err != nil {
		return Distance{}, err
	}

	doc := gjson.ParseBytes(body)
	el := doc.Get("rows.0.elements.0")
	if status := el.Get("status").String(); status != "OK" {
		return Distance{}, ErrRegistry.New(CodeDistanceNotFound).
			WithDetail("status", status).
			WithDetail("origin", origin).
			WithDetail("destination", destination)
	}

	return Distance{
		Origin:      doc.Get("origin_addresses.0").String(),
		Destination: doc.Get("destination_addresses.0").String(),
		Distance:    el.Get("distance.text").String(),
		Duration:    el.Get("duration.text").String(),
	}, nil
}

// FindDistance measures from origin to destination. A destination that is
// not a street address ("the nearest Costco") is first resolved with a
// places search near origin.
func (c *Client) FindDistance(ctx context.Context, origin, destination string) (Distance, error) {
	if !LooksLikeAddress(destination) {
		found, err := c.Search(ctx, destination+" near "+origin, 1)
		if err != nil {
			return Distance{}, err
		}
		if len(found) == 0 || found[0].Address == "" {
			return Distance{}, ErrRegistry.New(CodePlaceNotFound).WithDetail("query", destination)
		}
		logx.WithFields(logx.Fields{
			"query":    destination,
			"resolved": found[0].Address,
		}).Debug("resolved destination via places search")
		destination = found[0].Address
	}
	return c.Distance(ctx, origin, destination)
}

// AnnotateDistances fills in the distance from address to each place.
// Places whose distance cannot be found keep an empty Distance.
func (c *Client) AnnotateDistances(ctx context.Context, found []Place, address string) []Place {
	out := make([]Place, len(found))
	copy(out, found)
	for i := range out {
		if out[i].Address == "" {
			continue
		}
		d, err := c.Distance(ctx, address, out[i].Address)
		if err != nil {
			logx.WithFields(logx.Fields{
				"place": out[i].Name,
				"error": err.Error(),
			}).Debug("distance lookup failed")
			continue
		}
		out[i].Distance = d.Distance
	}
	return out
}

// Format renders places as numbered text for the model
func Format(found []Place) string {
	if len(found) == 0 {
		return "Google Places did not find any places that match the description"
	}
	var b strings.Builder
	for i, p := range found {
		fmt.Fprintf(&b, "%d. %s\nAddress: %s\n", i+1, p.Name, p.Address)
		if p.Rating > 0 {
			fmt.Fprintf(&b, "Rating: %.1f\n", p.Rating)
		}
		if p.Distance != "" {
			fmt.Fprintf(&b, "Distance: %s\n", p.Distance)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	query.Set("key", c.key)
	body, err := c.http.Get(ctx, c.baseURL+path, query, nil)
	if err != nil {
		return nil, ErrRegistry.New(CodeProviderFailed).WithCause(err).WithDetail("path", path)
	}

	switch status := gjson.GetBytes(body, "status").String(); status {
	case "OK", "ZERO_RESULTS", "":
		return body, nil
	default:
		return nil, ErrRegistry.New(CodeProviderFailed).
			WithDetail("path", path).
			WithDetail("status", status).
			WithDetail("error_message", gjson.GetBytes(body, "error_message").String())
	}
}
