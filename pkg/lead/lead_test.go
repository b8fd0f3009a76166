package lead

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Abraxas-365/realtor/pkg/ai/llm"
	"github.com/Abraxas-365/realtor/pkg/ai/llm/memoryx"
	"github.com/Abraxas-365/realtor/pkg/ai/llm/toolx"
	"github.com/Abraxas-365/realtor/pkg/errx"
	"github.com/Abraxas-365/realtor/pkg/listing"
	"github.com/Abraxas-365/realtor/pkg/places"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookRequest_SessionKey(t *testing.T) {
	tests := []struct {
		name string
		req  WebhookRequest
		want string
	}{
		{"contact id wins", WebhookRequest{ContactID: "c1", Email: "a@b.co", Phone: "555"}, "c1"},
		{"email next", WebhookRequest{Email: "a@b.co", Phone: "555"}, "a@b.co"},
		{"phone last", WebhookRequest{Phone: " 555 "}, "555"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.SessionKey()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := WebhookRequest{ContactID: "  "}.SessionKey()
	assert.True(t, errx.IsCode(err, CodeMissingSessionKey))
}

func TestWebhookRequest_Query(t *testing.T) {
	req := WebhookRequest{CustomData: CustomData{Message: "Is it still available?", Address: "1 Main St, Palm Springs, CA 92262"}}
	assert.Equal(t, "Is it still available? +  I am interested in 1 Main St, Palm Springs, CA 92262", req.Query())

	req.CustomData.Address = ""
	assert.Equal(t, "Is it still available?", req.Query())
}

func TestNewSessionView(t *testing.T) {
	log := memoryx.NewLog(100)
	require.NoError(t, log.AddExchange("hi", "hello"))

	view := NewSessionView("c1", log)
	assert.Equal(t, "c1", view.Key)
	assert.Equal(t, 7, view.Length)
	assert.Equal(t, 100, view.MaxLength)
	assert.Equal(t, []TurnView{{Role: memoryx.RoleUser, Text: "hi"}, {Role: memoryx.RoleAgent, Text: "hello"}}, view.Turns)
}

func TestRefinePrompt(t *testing.T) {
	p := RefinePrompt("It has 3 bedrooms.")
	assert.Contains(t, p, "named Rick")
	assert.Contains(t, p, "use it only when it is related to the user message:\nIt has 3 bedrooms.")
}

type fakeZillow struct{ err error }

func (f fakeZillow) Property(_ context.Context, address string) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"address":"` + address + `","price":450000}`), nil
}

func (f fakeZillow) NearbyHomes(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`[]`), f.err
}

type fakeRealtor struct {
	params listing.SearchParams
}

func (f *fakeRealtor) Details(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`{"data":{}}`), nil
}
func (f *fakeRealtor) TaxAndPriceHistory(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`[]`), nil
}
func (f *fakeRealtor) Photos(context.Context, string) ([]string, error) { return nil, nil }
func (f *fakeRealtor) Search(_ context.Context, p listing.SearchParams) (json.RawMessage, error) {
	f.params = p
	return json.RawMessage(`[{"property_id":"p1"}]`), nil
}

type fakePlaces struct {
	origin, destination string
	distanceErr         error
}

func (f *fakePlaces) Search(context.Context, string, int) ([]places.Place, error) {
	return []places.Place{{Name: "Palm Elementary", Address: "12105 Palm Dr, Desert Hot Springs, CA 92240"}}, nil
}

func (f *fakePlaces) FindDistance(_ context.Context, origin, destination string) (places.Distance, error) {
	f.origin, f.destination = origin, destination
	if f.distanceErr != nil {
		return places.Distance{}, f.distanceErr
	}
	return places.Distance{Origin: origin, Destination: destination, Distance: "1.9 mi", Duration: "5 mins"}, nil
}

func (f *fakePlaces) AnnotateDistances(_ context.Context, found []places.Place, _ string) []places.Place {
	for i := range found {
		found[i].Distance = "1.9 mi"
	}
	return found
}

func callTool(t *testing.T, client *toolx.ToolxClient, name, args string) string {
	t.Helper()
	msg := client.Call(context.Background(), llm.ToolCall{ID: "c", Function: llm.FunctionCall{Name: name, Arguments: args}})
	return msg.Content
}

func TestToolset_For(t *testing.T) {
	realtor := &fakeRealtor{}
	pl := &fakePlaces{}
	tools := Toolset{Zillow: fakeZillow{}, Realtor: realtor, Places: pl}.For("1 Main St, Palm Springs, CA 92262")

	assert.Equal(t, 7, tools.Len())

	assert.JSONEq(t, `{"address":"2 Oak Ave","price":450000}`,
		callTool(t, tools, ToolPropertyDetails, `{"address":"2 Oak Ave"}`))

	assert.JSONEq(t, `[{"property_id":"p1"}]`,
		callTool(t, tools, ToolSearchListings, `{"state_code":"CA","city":"Palm Springs","beds":3}`))
	assert.Equal(t, listing.SearchParams{StateCode: "CA", City: "Palm Springs", Beds: 3}, realtor.params)

	assert.Contains(t, callTool(t, tools, ToolGooglePlaces, `{"query":"schools"}`), "Distance: 1.9 mi")

	reply := callTool(t, tools, ToolFindDistance, `{"destination":"Costco"}`)
	assert.Equal(t, "1 Main St, Palm Springs, CA 92262", pl.origin)
	assert.Equal(t, "Distance from Costco to 1 Main St, Palm Springs, CA 92262 is 1.9 mi and the duration is 5 mins", reply)
}

func TestToolset_OnlyConfiguredSources(t *testing.T) {
	assert.Equal(t, 0, Toolset{}.For("").Len())
	assert.Equal(t, 2, Toolset{Zillow: fakeZillow{}}.For("").Len())
}

func TestToolset_NotFoundMessages(t *testing.T) {
	pl := &fakePlaces{distanceErr: places.ErrRegistry.New(places.CodeDistanceNotFound)}
	tools := Toolset{
		Zillow: fakeZillow{err: listing.ErrAddressNotFound("x")},
		Places: pl,
	}.For("")

	assert.Equal(t, listing.AddressNotFoundMessage, callTool(t, tools, ToolPropertyDetails, `{"address":"x"}`))
	assert.Equal(t, places.DistanceNotFoundMessage, callTool(t, tools, ToolFindDistance, `{"origin":"a","destination":"b"}`))
}

func TestToolset_ProviderErrorReachesModel(t *testing.T) {
	tools := Toolset{Zillow: fakeZillow{err: errors.New("rapidapi quota exceeded")}}.For("")
	assert.Equal(t, toolx.ToolErrorPrefix+"rapidapi quota exceeded",
		callTool(t, tools, ToolNearbyHomes, `{"address":"x"}`))
}
