package lead

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/Abraxas-365/realtor/pkg/ai/llm/toolx"
	"github.com/Abraxas-365/realtor/pkg/errx"
	"github.com/Abraxas-365/realtor/pkg/listing"
	"github.com/Abraxas-365/realtor/pkg/places"
)

// Tool names
const (
	ToolPropertyDetails    = "property_details"
	ToolListingDetails     = "listing_details"
	ToolNearbyHomes        = "nearby_homes"
	ToolTaxAndPriceHistory = "tax_and_price_history"
	ToolSearchListings     = "search_listings"
	ToolGooglePlaces       = "google_places"
	ToolFindDistance       = "find_distance"
)

const placesTopK = 5

type PropertySource interface {
	Property(ctx context.Context, address string) (json.RawMessage, error)
	NearbyHomes(ctx context.Context, address string) (json.RawMessage, error)
}

type ListingSource interface {
	Details(ctx context.Context, address string) (json.RawMessage, error)
	TaxAndPriceHistory(ctx context.Context, address string) (json.RawMessage, error)
	Photos(ctx context.Context, address string) ([]string, error)
	Search(ctx context.Context, p listing.SearchParams) (json.RawMessage, error)
}

type PlacesSource interface {
	Search(ctx context.Context, query string, topK int) ([]places.Place, error)
	FindDistance(ctx context.Context, origin, destination string) (places.Distance, error)
	AnnotateDistances(ctx context.Context, found []places.Place, address string) []places.Place
}

// Toolset builds the agent's tools. Any source may be nil, in which case
// its tools are left out.
type Toolset struct {
	Zillow  PropertySource
	Realtor ListingSource
	Places  PlacesSource
}

type addressArgs struct {
	Address string `json:"address"`
}

type queryArgs struct {
	Query string `json:"query"`
}

type distanceArgs struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

const addressHelp = "full street address, e.g. 18070 Langlois Rd SPACE 212, Desert Hot Springs, CA 92241"

// For returns the tools for a conversation about the property at address.
// address may be empty.
func (t Toolset) For(address string) *toolx.ToolxClient {
	var tools []toolx.Toolx

	if t.Zillow != nil {
		tools = append(tools,
			toolx.NewFuncTool(ToolPropertyDetails,
				"Useful when you need info about a house, but not about places near it. The input should be the address of the house.",
				toolx.StringParams("address", addressHelp),
				func(ctx context.Context, a addressArgs) (any, error) {
					return modelSafe(t.Zillow.Property(ctx, a.Address))
				}),
			toolx.NewFuncTool(ToolNearbyHomes,
				"Useful when you need info about other houses that are listed near an address, but not about places near it.",
				toolx.StringParams("address", addressHelp),
				func(ctx context.Context, a addressArgs) (any, error) {
					return modelSafe(t.Zillow.NearbyHomes(ctx, a.Address))
				}),
		)
	}

	if t.Realtor != nil {
		tools = append(tools,
			toolx.NewFuncTool(ToolListingDetails,
				"Realtor.com listing details for a house: description, features, schools and listing status.",
				toolx.StringParams("address", addressHelp),
				func(ctx context.Context, a addressArgs) (any, error) {
					return modelSafe(t.Realtor.Details(ctx, a.Address))
				}),
			toolx.NewFuncTool(ToolTaxAndPriceHistory,
				"Useful for questions about a house's price, price history or property tax.",
				toolx.StringParams("address", addressHelp),
				func(ctx context.Context, a addressArgs) (any, error) {
					return modelSafe(t.Realtor.TaxAndPriceHistory(ctx, a.Address))
				}),
			toolx.NewFuncTool(ToolSearchListings,
				"Search homes for sale without a specific address, by location and requirements.",
				searchParamsSchema,
				func(ctx context.Context, p listing.SearchParams) (any, error) {
					return t.Realtor.Search(ctx, p)
				}),
		)
	}

	if t.Places != nil {
		tools = append(tools,
			toolx.NewFuncTool(ToolGooglePlaces,
				"A wrapper around Google Places. Useful when you need to find the address of some place near the property, discover addresses from ambiguous text or validate an address. Input should be a search query.",
				toolx.StringParams("query", "search query, e.g. elementary schools near 13545 Cielo Azul Way, Desert Hot Springs, CA 92240"),
				func(ctx context.Context, q queryArgs) (any, error) {
					found, err := t.Places.Search(ctx, q.Query, placesTopK)
					if err != nil {
						return nil, err
					}
					if address != "" {
						found = t.Places.AnnotateDistances(ctx, found, address)
					}
					return places.Format(found), nil
				}),
			toolx.NewFuncTool(ToolFindDistance,
				"Useful when you need the distance between two addresses. The destination may also be a place name, which is looked up near the origin.",
				distanceSchema,
				func(ctx context.Context, a distanceArgs) (any, error) {
					origin := strings.TrimSpace(a.Origin)
					if origin == "" {
						origin = address
					}
					d, err := t.Places.FindDistance(ctx, origin, a.Destination)
					if errx.IsCode(err, places.CodeDistanceNotFound) {
						return places.DistanceNotFoundMessage, nil
					}
					if err != nil {
						return nil, err
					}
					return d.String(), nil
				}),
		)
	}

	return toolx.FromToolx(tools...)
}

// modelSafe turns an unresolvable address into the message the model relays
// to the lead
func modelSafe(doc json.RawMessage, err error) (any, error) {
	var e *errx.Error
	if errors.As(err, &e) && e.Code == listing.CodeAddressNotFound {
		return listing.AddressNotFoundMessage, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

var searchParamsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"state_code": map[string]any{"type": "string", "description": "Location state code"},
		"city":       map[string]any{"type": "string", "description": "Location city"},
		"beds":       map[string]any{"type": "number", "description": "Requirement number of bedrooms"},
		"baths":      map[string]any{"type": "number", "description": "Requirement number of bathrooms"},
		"sold_price": map[string]any{"type": "number", "description": "Preferred house price"},
		"sqft":       map[string]any{"type": "number", "description": "Preferred square feet value"},
		"year_built": map[string]any{"type": "number", "description": "Preferred year built value"},
	},
}

var distanceSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"origin":      map[string]any{"type": "string", "description": "address to measure from; defaults to the property being discussed"},
		"destination": map[string]any{"type": "string", "description": "address or place name to measure to"},
	},
	"required": []string{"destination"},
}
