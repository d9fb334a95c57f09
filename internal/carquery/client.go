// Package carquery looks up trim data for a make/body pair on the public
// CarQuery API, which answers in JSONP.
package carquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://www.carqueryapi.com/api/0.3/"
	trimYear       = "2012"
	unknown        = "Unknown"
)

var jsonpEnvelope = regexp.MustCompile(`(?s)\?\((.*)\);`)

// ResponseError is a reply from CarQuery that could not be understood.
type ResponseError struct {
	Reason  string
	Message string
}

func (e *ResponseError) Error() string { return e.Reason + ": " + e.Message }

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type Query struct {
	Brandname      string
	Cartype        string
	Productionarea string
}

type Engine struct {
	Position     any    `json:"position"`
	CC           any    `json:"cc"`
	Cylinders    any    `json:"cylinders"`
	Type         any    `json:"type"`
	ValvesPerCyl any    `json:"valves_per_cyl"`
	Power        string `json:"power"`
	PowerRPM     any    `json:"power_rpm"`
	Torque       string `json:"torque"`
	TorqueRPM    any    `json:"torque_rpm"`
	Fuel         any    `json:"fuel"`
}

type Performance struct {
	TopSpeed     string `json:"top_speed"`
	Acceleration string `json:"acceleration"`
}

type Dimensions struct {
	Weight    string `json:"weight"`
	Length    string `json:"length"`
	Width     string `json:"width"`
	Height    string `json:"height"`
	Wheelbase string `json:"wheelbase"`
}

type FuelEconomy struct {
	Highway      string `json:"highway"`
	City         string `json:"city"`
	Mixed        string `json:"mixed"`
	FuelCapacity string `json:"fuel_capacity"`
}

type Trim struct {
	Brandname      any         `json:"brandname"`
	Model          any         `json:"model"`
	Year           any         `json:"year"`
	Trim           any         `json:"trim"`
	Cartype        any         `json:"cartype"`
	Engine         Engine      `json:"engine"`
	Performance    Performance `json:"performance"`
	Dimensions     Dimensions  `json:"dimensions"`
	Drive          any         `json:"drive"`
	Transmission   any         `json:"transmission"`
	Seats          any         `json:"seats"`
	Doors          any         `json:"doors"`
	FuelEconomy    FuelEconomy `json:"fuel_economy"`
	SoldInUS       bool        `json:"sold_in_us"`
	CO2            any         `json:"co2"`
	Productionarea any         `json:"productionarea"`
}

func (c *Client) Search(ctx context.Context, q Query) ([]Trim, error) {
	params := url.Values{}
	params.Set("cmd", "getTrims")
	params.Set("year", trimYear)
	if q.Brandname != "" {
		params.Set("make", strings.ToLower(q.Brandname))
	}
	if q.Cartype != "" {
		params.Set("body", q.Cartype)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?callback=?&"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("carquery responded with status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	raw, err := unwrap(body)
	if err != nil {
		return nil, err
	}
	return format(raw, q.Productionarea), nil
}

// unwrap returns the decoded payload of a JSONP ?(...); reply. Plain JSON
// objects are accepted as is.
func unwrap(body []byte) (map[string]any, error) {
	var payload map[string]any
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &payload); err == nil {
			return payload, nil
		}
	}

	m := jsonpEnvelope.FindSubmatch(body)
	if m == nil {
		return nil, &ResponseError{
			Reason:  "Invalid API response format",
			Message: "The external API returned an unexpected format",
		}
	}
	if err := json.Unmarshal(m[1], &payload); err != nil {
		return nil, &ResponseError{
			Reason:  "Failed to parse external API response",
			Message: "The car information service returned an invalid response",
		}
	}
	return payload, nil
}

func format(payload map[string]any, productionarea string) []Trim {
	rawTrims, _ := payload["Trims"].([]any)
	out := make([]Trim, 0, len(rawTrims))
	for _, rt := range rawTrims {
		t, ok := rt.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Trim{
			Brandname: t["model_make_id"],
			Model:     t["model_name"],
			Year:      t["model_year"],
			Trim:      t["model_trim"],
			Cartype:   t["model_body"],
			Engine: Engine{
				Position:     t["model_engine_position"],
				CC:           t["model_engine_cc"],
				Cylinders:    t["model_engine_cyl"],
				Type:         t["model_engine_type"],
				ValvesPerCyl: t["model_engine_valves_per_cyl"],
				Power:        withUnit(t["model_engine_power_ps"], " PS"),
				PowerRPM:     t["model_engine_power_rpm"],
				Torque:       withUnit(t["model_engine_torque_nm"], " Nm"),
				TorqueRPM:    t["model_engine_torque_rpm"],
				Fuel:         t["model_engine_fuel"],
			},
			Performance: Performance{
				TopSpeed:     withUnit(t["model_top_speed_kph"], " KPH"),
				Acceleration: withUnit(t["model_0_to_100_kph"], "s (0-100 KPH)"),
			},
			Dimensions: Dimensions{
				Weight:    withUnit(t["model_weight_kg"], " kg"),
				Length:    withUnit(t["model_length_mm"], " mm"),
				Width:     withUnit(t["model_width_mm"], " mm"),
				Height:    withUnit(t["model_height_mm"], " mm"),
				Wheelbase: withUnit(t["model_wheelbase_mm"], " mm"),
			},
			Drive:        t["model_drive"],
			Transmission: t["model_transmission_type"],
			Seats:        t["model_seats"],
			Doors:        t["model_doors"],
			FuelEconomy: FuelEconomy{
				Highway:      withUnit(t["model_lkm_hwy"], " L/100km"),
				City:         withUnit(t["model_lkm_city"], " L/100km"),
				Mixed:        withUnit(t["model_lkm_mixed"], " L/100km"),
				FuelCapacity: withUnit(t["model_fuel_cap_l"], " L"),
			},
			SoldInUS:       t["model_sold_in_us"] == "1",
			CO2:            t["model_co2"],
			Productionarea: firstPresent(t["make_country"], productionarea, unknown),
		})
	}
	return out
}

func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case float64:
		return x != 0
	case bool:
		return x
	default:
		return true
	}
}

func withUnit(v any, unit string) string {
	if !present(v) {
		return unknown
	}
	return fmt.Sprint(v) + unit
}

func firstPresent(vals ...any) any {
	for _, v := range vals {
		if present(v) {
			return v
		}
	}
	return nil
}
