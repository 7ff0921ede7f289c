// Package stores holds the retail store adapters the fulfillment worker
// submits orders to.
package stores

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ALI7-sys/CopIt/internal/application"
)

// Registry resolves a store adapter by its case-insensitive name.
type Registry struct {
	adapters map[string]application.StoreAdapter
}

func NewRegistry(adapters ...application.StoreAdapter) *Registry {
	m := make(map[string]application.StoreAdapter, len(adapters))
	for _, a := range adapters {
		m[strings.ToLower(a.Name())] = a
	}
	return &Registry{adapters: m}
}

func (r *Registry) Lookup(store string) (application.StoreAdapter, error) {
	adapter, ok := r.adapters[strings.ToLower(store)]
	if !ok {
		return nil, fmt.Errorf("unknown store: %s", store)
	}
	return adapter, nil
}

// StoreError is an error response from a store API.
type StoreError struct {
	Store      string
	Message    string
	StatusCode int
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s error [%d]: %s", e.Store, e.StatusCode, e.Message)
}

type storeErrorResponse struct {
	Message string `json:"message"`
}

func sendRequest[Req any, Resp any](httpClient *http.Client, ctx context.Context, store, apiKey, method, url string, reqBody *Req) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		var errResp storeErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			errResp.Message = string(body)
		}
		return nil, &StoreError{
			Store:      store,
			Message:    errResp.Message,
			StatusCode: resp.StatusCode,
		}
	}

	var storeResp Resp
	if err := json.NewDecoder(resp.Body).Decode(&storeResp); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &storeResp, nil
}
