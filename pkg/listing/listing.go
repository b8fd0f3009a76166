// Package listing fetches property data from the Zillow and Realtor.com
// RapidAPI endpoints. Payloads are passed through as JSON with the fields
// that only waste model context removed.
package listing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/Abraxas-365/realtor/pkg/errx"
	"github.com/Abraxas-365/realtor/pkg/httpx"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// AddressNotFoundMessage is what the model is told when an address cannot be resolved
const AddressNotFoundMessage = "Sorry, could you please give full address"

var ErrRegistry = errx.NewRegistry("LISTING")

var (
	CodeAddressNotFound = ErrRegistry.Register("ADDRESS_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, AddressNotFoundMessage)
	CodeProviderFailed  = ErrRegistry.Register("PROVIDER_FAILED", errx.TypeExternal, http.StatusBadGateway, "Listing provider request failed")
	CodeBadPayload      = ErrRegistry.Register("BAD_PAYLOAD", errx.TypeExternal, http.StatusBadGateway, "Listing provider returned an unexpected payload")
)

func ErrAddressNotFound(address string) *errx.Error {
	return ErrRegistry.New(CodeAddressNotFound).WithDetail("address", address)
}

func ErrProviderFailed(err error) *errx.Error {
	return ErrRegistry.New(CodeProviderFailed).WithCause(err)
}

// Config addresses one RapidAPI host
type Config struct {
	APIKey  string
	Host    string // X-RapidAPI-Host, e.g. zillow-com1.p.rapidapi.com
	BaseURL string // defaults to https://<Host>
}

type rapidAPI struct {
	http    *httpx.Client
	key     string
	host    string
	baseURL string
}

func newRapidAPI(client *httpx.Client, cfg Config) rapidAPI {
	base := cfg.BaseURL
	if base == "" {
		base = "https://" + cfg.Host
	}
	return rapidAPI{
		http:    client,
		key:     cfg.APIKey,
		host:    cfg.Host,
		baseURL: strings.TrimRight(base, "/"),
	}
}

func (r rapidAPI) headers() map[string]string {
	return map[string]string{
		"X-RapidAPI-Key":  r.key,
		"X-RapidAPI-Host": r.host,
	}
}

func (r rapidAPI) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	body, err := r.http.Get(ctx, r.baseURL+path, query, r.headers())
	if err != nil {
		return nil, ErrProviderFailed(err).WithDetail("path", path)
	}
	if !gjson.ValidBytes(body) {
		return nil, ErrRegistry.New(CodeBadPayload).WithDetail("path", path)
	}
	return body, nil
}

func (r rapidAPI) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := r.http.PostJSON(ctx, r.baseURL+path, r.headers(), payload)
	if err != nil {
		return nil, ErrProviderFailed(err).WithDetail("path", path)
	}
	if !gjson.ValidBytes(body) {
		return nil, ErrRegistry.New(CodeBadPayload).WithDetail("path", path)
	}
	return body, nil
}

// strip removes each field under prefix ("" for the document root)
func strip(doc []byte, prefix string, fields ...string) ([]byte, error) {
	var err error
	for _, f := range fields {
		path := f
		if prefix != "" {
			path = prefix + "." + f
		}
		if doc, err = sjson.DeleteBytes(doc, path); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// firstN returns the first n elements of a JSON array as a new array
func firstN(arr gjson.Result, n int) json.RawMessage {
	items := arr.Array()
	if len(items) > n {
		items = items[:n]
	}
	raws := make([]string, 0, len(items))
	for _, it := range items {
		raws = append(raws, it.Raw)
	}
	return json.RawMessage("[" + strings.Join(raws, ",") + "]")
}

func orEmptyArray(r gjson.Result) json.RawMessage {
	if !r.Exists() {
		return json.RawMessage("[]")
	}
	return json.RawMessage(r.Raw)
}
