package carquery

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSONP = `?({"Trims":[{"model_make_id":"toyota","model_name":"Camry","model_year":"2012","model_trim":"LE","model_body":"Sedan",
"model_engine_power_ps":"181","model_engine_torque_nm":null,"model_top_speed_kph":"","model_0_to_100_kph":"9.5",
"model_weight_kg":"1460","model_length_mm":null,"model_width_mm":null,"model_height_mm":null,"model_wheelbase_mm":"2776",
"model_lkm_hwy":"6.9","model_lkm_city":null,"model_lkm_mixed":null,"model_fuel_cap_l":"70","model_sold_in_us":"1","make_country":"Japan"},
{"model_make_id":"toyota","model_name":"Yaris","model_sold_in_us":"0","make_country":null}]});`

func newServer(t *testing.T, status int, body string, seen *url.Values) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen = r.URL.Query()
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/")
}

func TestSearch_FormatsTrims(t *testing.T) {
	var seen url.Values
	c := newServer(t, http.StatusOK, sampleJSONP, &seen)

	trims, err := c.Search(context.Background(), Query{Brandname: "Toyota", Cartype: "Sedan", Productionarea: "Asia"})
	require.NoError(t, err)

	assert.Equal(t, "toyota", seen.Get("make"))
	assert.Equal(t, "Sedan", seen.Get("body"))
	assert.Equal(t, "getTrims", seen.Get("cmd"))
	assert.Equal(t, "2012", seen.Get("year"))
	assert.Equal(t, "?", seen.Get("callback"))

	require.Len(t, trims, 2)
	camry := trims[0]
	assert.Equal(t, "Camry", camry.Model)
	assert.Equal(t, "181 PS", camry.Engine.Power)
	assert.Equal(t, "Unknown", camry.Engine.Torque)
	assert.Equal(t, "Unknown", camry.Performance.TopSpeed)
	assert.Equal(t, "9.5s (0-100 KPH)", camry.Performance.Acceleration)
	assert.Equal(t, "1460 kg", camry.Dimensions.Weight)
	assert.Equal(t, "2776 mm", camry.Dimensions.Wheelbase)
	assert.Equal(t, "6.9 L/100km", camry.FuelEconomy.Highway)
	assert.Equal(t, "70 L", camry.FuelEconomy.FuelCapacity)
	assert.True(t, camry.SoldInUS)
	assert.Equal(t, "Japan", camry.Productionarea)

	yaris := trims[1]
	assert.False(t, yaris.SoldInUS)
	assert.Equal(t, "Asia", yaris.Productionarea)
}

func TestSearch_ProductionareaFallsBackToUnknown(t *testing.T) {
	c := newServer(t, http.StatusOK, `?({"Trims":[{"model_make_id":"bmw"}]});`, nil)
	trims, err := c.Search(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, trims, 1)
	assert.Equal(t, "Unknown", trims[0].Productionarea)
}

func TestSearch_PlainJSONAccepted(t *testing.T) {
	c := newServer(t, http.StatusOK, `{"Trims":[]}`, nil)
	trims, err := c.Search(context.Background(), Query{})
	require.NoError(t, err)
	assert.Empty(t, trims)
}

func TestSearch_UnexpectedFormat(t *testing.T) {
	c := newServer(t, http.StatusOK, `<html>maintenance</html>`, nil)
	_, err := c.Search(context.Background(), Query{})
	var rerr *ResponseError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "Invalid API response format", rerr.Reason)
}

func TestSearch_BrokenJSONP(t *testing.T) {
	c := newServer(t, http.StatusOK, `?({"Trims":[);`, nil)
	_, err := c.Search(context.Background(), Query{})
	var rerr *ResponseError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "Failed to parse external API response", rerr.Reason)
}

func TestSearch_UpstreamStatus(t *testing.T) {
	c := newServer(t, http.StatusBadGateway, ``, nil)
	_, err := c.Search(context.Background(), Query{})
	require.Error(t, err)
	var rerr *ResponseError
	assert.False(t, errors.As(err, &rerr))
}
