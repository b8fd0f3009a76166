package listing

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/Abraxas-365/realtor/pkg/httpx"
	"github.com/tidwall/gjson"
)

// realtorStripped are dropped from data.home in /properties/detail responses
var realtorStripped = []string{
	"advertisers", "buyers", "consumer_advertisers", "flags", "estimates",
	"home_tours", "lead_attributes", "property_history", "other_listings",
	"photos", "products", "source", "tax_history", "matterport", "tags",
	"primary_photo", "suppression_flags", "href",
}

// searchStripped are dropped from each /properties/list result
var searchStripped = []string{
	"branding", "lead_attributes", "flags", "photos", "primary_photo", "products", "source",
}

const (
	taxHistoryLimit    = 4
	priceEstimateLimit = 48
	searchResultLimit  = 5
)

// Realtor is the realtor-com4 RapidAPI client
type Realtor struct {
	api rapidAPI
}

func NewRealtor(client *httpx.Client, cfg Config) *Realtor {
	if cfg.Host == "" {
		cfg.Host = "realtor-com4.p.rapidapi.com"
	}
	return &Realtor{api: newRapidAPI(client, cfg)}
}

// FindPropertyID resolves an address through the auto-complete endpoint
func (r *Realtor) FindPropertyID(ctx context.Context, address string) (string, error) {
	body, err := r.api.get(ctx, "/auto-complete", url.Values{"input": {address}})
	if err != nil {
		return "", err
	}

	// ids look like "addr:9118263398"
	id := gjson.GetBytes(body, "autocomplete.0._id").String()
	_, pid, ok := strings.Cut(id, ":")
	if !ok || pid == "" {
		return "", ErrAddressNotFound(address)
	}
	if i := strings.IndexByte(pid, ':'); i >= 0 {
		pid = pid[:i]
	}
	return pid, nil
}

func (r *Realtor) detail(ctx context.Context, address string) ([]byte, error) {
	pid, err := r.FindPropertyID(ctx, address)
	if err != nil {
		return nil, err
	}
	return r.api.get(ctx, "/properties/detail", url.Values{"property_id": {pid}})
}

// Details returns the listing detail for address with bulky sections removed
func (r *Realtor) Details(ctx context.Context, address string) (json.RawMessage, error) {
	body, err := r.detail(ctx, address)
	if err != nil {
		return nil, err
	}
	body, err = strip(body, "data.home", realtorStripped...)
	if err != nil {
		return nil, ErrRegistry.New(CodeBadPayload).WithCause(err)
	}
	return body, nil
}

type history struct {
	TaxHistory   json.RawMessage `json:"Tax History,omitempty"`
	PriceHistory json.RawMessage `json:"Price History,omitempty"`
}

// TaxAndPriceHistory returns the latest tax records and the price estimate series
func (r *Realtor) TaxAndPriceHistory(ctx context.Context, address string) (json.RawMessage, error) {
	body, err := r.detail(ctx, address)
	if err != nil {
		return nil, err
	}

	home := gjson.GetBytes(body, "data.home")
	out := []history{
		{TaxHistory: firstN(home.Get("tax_history"), taxHistoryLimit)},
		{PriceHistory: firstN(home.Get("estimates.historical_values.0.estimates"), priceEstimateLimit)},
	}
	return json.Marshal(out)
}

// Photos returns the photo URLs of the listing at address
func (r *Realtor) Photos(ctx context.Context, address string) ([]string, error) {
	body, err := r.detail(ctx, address)
	if err != nil {
		return nil, err
	}

	var photos []string
	for _, href := range gjson.GetBytes(body, "data.home.photos.#.href").Array() {
		if s := href.String(); s != "" {
			photos = append(photos, s)
		}
	}
	return photos, nil
}

// SearchParams narrow a listing search. Zero values are ignored.
type SearchParams struct {
	StateCode string  `json:"state_code,omitempty"`
	City      string  `json:"city,omitempty"`
	Beds      float64 `json:"beds,omitempty"`
	Baths     float64 `json:"baths,omitempty"`
	SoldPrice float64 `json:"sold_price,omitempty"`
	Sqft      float64 `json:"sqft,omitempty"`
	YearBuilt float64 `json:"year_built,omitempty"`
}

type bound struct {
	Min float64 `json:"min,omitempty"`
	Max float64 `json:"max,omitempty"`
}

type searchQuery struct {
	Status    []string `json:"status"`
	StateCode string   `json:"state_code,omitempty"`
	City      string   `json:"city,omitempty"`
	ListPrice *bound   `json:"list_price,omitempty"`
	Baths     *bound   `json:"baths,omitempty"`
	Sqft      *bound   `json:"sqft,omitempty"`
	Beds      *bound   `json:"beds,omitempty"`
	YearBuilt *bound   `json:"year_built,omitempty"`
}

type searchSort struct {
	Direction string `json:"direction"`
	Field     string `json:"field"`
}

type searchPayload struct {
	Query  searchQuery `json:"query"`
	Limit  int         `json:"limit"`
	Radius int         `json:"radius"`
	Offset int         `json:"offset"`
	Sort   searchSort  `json:"sort"`
}

func (p SearchParams) payload() searchPayload {
	q := searchQuery{
		Status:    []string{"for_sale", "ready_to_build"},
		StateCode: p.StateCode,
		City:      p.City,
	}
	if p.SoldPrice > 0 {
		q.ListPrice = &bound{Min: p.SoldPrice}
	}
	if p.Baths > 0 {
		q.Baths = &bound{Min: p.Baths}
	}
	if p.Sqft > 0 {
		q.Sqft = &bound{Max: p.Sqft}
	}
	if p.Beds > 0 {
		q.Beds = &bound{Max: p.Beds}
	}
	if p.YearBuilt > 0 {
		q.YearBuilt = &bound{Min: p.YearBuilt}
	}
	return searchPayload{
		Query:  q,
		Limit:  42,
		Radius: 100,
		Sort:   searchSort{Direction: "desc", Field: "list_date"},
	}
}

// Search lists the newest homes for sale matching p
func (r *Realtor) Search(ctx context.Context, p SearchParams) (json.RawMessage, error) {
	body, err := r.api.post(ctx, "/properties/list", p.payload())
	if err != nil {
		return nil, err
	}

	results := gjson.GetBytes(body, "data.home_search.properties").Array()
	if len(results) > searchResultLimit {
		results = results[:searchResultLimit]
	}

	items := make([]json.RawMessage, 0, len(results))
	for _, res := range results {
		item, err := strip([]byte(res.Raw), "", searchStripped...)
		if err != nil {
			return nil, ErrRegistry.New(CodeBadPayload).WithCause(err)
		}
		items = append(items, item)
	}
	return json.Marshal(items)
}
