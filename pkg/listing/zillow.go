package listing

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/Abraxas-365/realtor/pkg/httpx"
	"github.com/Abraxas-365/realtor/pkg/logx"
	"github.com/tidwall/gjson"
)

// zillowStripped are dropped from /property responses
var zillowStripped = []string{"nearbyHomes", "listed_by", "priceHistory", "resoFacts", "taxHistory"}

// Zillow is the zillow-com1 RapidAPI client
type Zillow struct {
	api rapidAPI
}

func NewZillow(client *httpx.Client, cfg Config) *Zillow {
	if cfg.Host == "" {
		cfg.Host = "zillow-com1.p.rapidapi.com"
	}
	return &Zillow{api: newRapidAPI(client, cfg)}
}

// FindZPID resolves an address to Zillow's property id
func (z *Zillow) FindZPID(ctx context.Context, address string) (string, error) {
	body, err := z.api.get(ctx, "/propertyExtendedSearch", url.Values{
		"location": {address},
		"page":     {"1"},
	})
	if err != nil {
		return "", err
	}

	// an exact match returns an object, a fuzzy one a list
	res := gjson.ParseBytes(body)
	if res.IsArray() {
		res = res.Get("0")
	}
	zpid := res.Get("zpid")
	if !zpid.Exists() || zpid.String() == "" {
		logx.WithField("address", address).Debug("zillow returned no zpid")
		return "", ErrAddressNotFound(address)
	}
	return zpid.String(), nil
}

func (z *Zillow) property(ctx context.Context, address string) ([]byte, error) {
	zpid, err := z.FindZPID(ctx, address)
	if err != nil {
		return nil, err
	}
	return z.api.get(ctx, "/property", url.Values{"zpid": {zpid}})
}

// Property returns the listing for address without history and nearby homes
func (z *Zillow) Property(ctx context.Context, address string) (json.RawMessage, error) {
	body, err := z.property(ctx, address)
	if err != nil {
		return nil, err
	}
	body, err = strip(body, "", zillowStripped...)
	if err != nil {
		return nil, ErrRegistry.New(CodeBadPayload).WithCause(err)
	}
	return body, nil
}

// NearbyHomes returns the listed homes Zillow reports near address
func (z *Zillow) NearbyHomes(ctx context.Context, address string) (json.RawMessage, error) {
	body, err := z.property(ctx, address)
	if err != nil {
		return nil, err
	}
	return orEmptyArray(gjson.GetBytes(body, "nearbyHomes")), nil
}
