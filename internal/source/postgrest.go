package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/context/ctxhttp"

	"fjacquet/sales-etl/internal/table"
)

const maxErrorBody = 512

// PostgRESTClient reads table rows from a PostgREST endpoint such as the one
// Supabase exposes under /rest/v1.
type PostgRESTClient struct {
	baseURL string
	key     string
	client  *http.Client
}

// NewPostgRESTClient creates a client for baseURL authenticated with key.
// A zero timeout leaves the http.Client without one.
func NewPostgRESTClient(baseURL, key string, timeout time.Duration) *PostgRESTClient {
	return &PostgRESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		client:  &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient replaces the underlying http.Client.
func (c *PostgRESTClient) WithHTTPClient(client *http.Client) *PostgRESTClient {
	c.client = client
	return c
}

// FetchRange requests rows from..to (inclusive) of tableName using an item
// Range header.
func (c *PostgRESTClient) FetchRange(ctx context.Context, tableName string, from, to int) ([]table.Record, error) {
	if from < 0 || to < from {
		return nil, fmt.Errorf("invalid range %d-%d", from, to)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?select=*", c.baseURL, url.PathEscape(tableName))
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Range-Unit", "items")
	req.Header.Set("Range", fmt.Sprintf("%d-%d", from, to))

	resp, err := ctxhttp.Do(ctx, c.client, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	// 416 means the requested range starts past the last row.
	if resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	records, err := DecodeRecords(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return records, nil
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// DecodeRecords decodes a JSON array of objects keeping each object's key
// order. Numbers become float64; nested objects and arrays are kept as their
// JSON text.
func DecodeRecords(r io.Reader) ([]table.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	records := []table.Record{}
	for dec.More() {
		rec, err := decodeObject(dec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}

	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return records, nil
}

func decodeObject(dec *json.Decoder) (table.Record, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var rec table.Record
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		value, err := scalar(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		rec = append(rec, table.KV{Key: key, Value: value})
	}

	return rec, expectDelim(dec, '}')
}

func scalar(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool:
		return x, nil
	case json.Number:
		return x.Float64()
	default:
		encoded, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		return string(encoded), nil
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected end of input, want %q", want)
	}
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("unexpected token %v, want %q", tok, want)
	}
	return nil
}
