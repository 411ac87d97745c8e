package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/photosync/gallerysync/internal/models"
)

// Client queries the remote record store for approved photo records.
type Client struct {
	baseURL    string
	token      string
	recordType string
	pageSize   int
	httpClient *http.Client
}

// NewClient creates a new record-query Client.
func NewClient(baseURL, token, recordType string, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		recordType: recordType,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type queryRequest struct {
	Query              query  `json:"query"`
	ResultsLimit       int    `json:"resultsLimit"`
	ContinuationMarker string `json:"continuationMarker,omitempty"`
}

type query struct {
	RecordType string   `json:"recordType"`
	FilterBy   []filter `json:"filterBy"`
}

type filter struct {
	FieldName  string      `json:"fieldName"`
	Comparator string      `json:"comparator"`
	FieldValue filterValue `json:"fieldValue"`
}

type filterValue struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

type queryResponse struct {
	Records            []models.Record `json:"records"`
	ContinuationMarker string          `json:"continuationMarker"`
}

// FetchAll returns every approved record, following continuation markers
// until the server reports the last page. Server ordering is preserved.
func (c *Client) FetchAll(ctx context.Context) ([]models.Record, error) {
	var all []models.Record
	marker := ""

	for {
		page, err := c.queryPage(ctx, marker)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Records...)

		if page.ContinuationMarker == "" {
			return all, nil
		}
		marker = page.ContinuationMarker
	}
}

func (c *Client) queryPage(ctx context.Context, marker string) (*queryResponse, error) {
	body := queryRequest{
		Query: query{
			RecordType: c.recordType,
			FilterBy: []filter{
				{
					FieldName:  "status",
					Comparator: "EQUALS",
					FieldValue: filterValue{Value: "approved", Type: "STRING"},
				},
			},
		},
		ResultsLimit:       c.pageSize,
		ContinuationMarker: marker,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrQueryFailed, err)
	}

	endpoint := c.baseURL + "/records/query?ckAPIToken=" + url.QueryEscape(c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrQueryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrQueryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", models.ErrQueryFailed, resp.StatusCode)
	}

	var page queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrQueryFailed, err)
	}

	return &page, nil
}
