package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/google/uuid"

	"github.com/Skotchmaster/car_dealership/internal/models"
	"github.com/Skotchmaster/car_dealership/internal/transport"
)

const carMapping = `{
  "mappings": {
    "properties": {
      "id":             {"type": "keyword"},
      "brandname":      {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "cartype":        {"type": "text"},
      "price":          {"type": "double"},
      "productionarea": {"type": "text"}
    }
  }
}`

// CarIndex keeps a searchable copy of the car inventory.
type CarIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewCarIndex(client *elasticsearch.Client, index string) *CarIndex {
	return &CarIndex{ES: client, Index: index}
}

func (i *CarIndex) EnsureIndex(ctx context.Context) error {
	res, err := i.ES.Indices.Exists([]string{i.Index}, i.ES.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es: index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = i.ES.Indices.Create(i.Index,
		i.ES.Indices.Create.WithContext(ctx),
		i.ES.Indices.Create.WithBody(strings.NewReader(carMapping)),
	)
	if err != nil {
		return fmt.Errorf("es: create index: %w", err)
	}
	return checkResponse("create index", res)
}

func (i *CarIndex) IndexCar(ctx context.Context, car models.Car) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(transport.NewCarSummary(car)); err != nil {
		return fmt.Errorf("es: encode car: %w", err)
	}

	res, err := i.ES.Index(i.Index, &buf,
		i.ES.Index.WithContext(ctx),
		i.ES.Index.WithDocumentID(car.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("es: index car: %w", err)
	}
	return checkResponse("index car", res)
}

func (i *CarIndex) DeleteCar(ctx context.Context, id uuid.UUID) error {
	res, err := i.ES.Delete(i.Index, id.String(), i.ES.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es: delete car: %w", err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return nil
	}
	return checkResponse("delete car", res)
}

func (i *CarIndex) Search(ctx context.Context, query string, from, size int) (int64, []transport.CarSummary, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"brandname^2", "cartype", "productionarea"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("es: encode query: %w", err)
	}

	res, err := i.ES.Search(
		i.ES.Search.WithContext(ctx),
		i.ES.Search.WithIndex(i.Index),
		i.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("es: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("es: search: %s: %s", res.Status(), msg)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source transport.CarSummary `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("es: decode search: %w", err)
	}

	cars := make([]transport.CarSummary, len(r.Hits.Hits))
	for n, hit := range r.Hits.Hits {
		cars[n] = hit.Source
	}
	return r.Hits.Total.Value, cars, nil
}

func checkResponse(op string, res *esapi.Response) error {
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("es: %s: %s: %s", op, res.Status(), msg)
	}
	return nil
}
