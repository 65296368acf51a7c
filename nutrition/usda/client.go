// Package usda is a FoodData Central client implementing caloriebot.FoodDatabase.
package usda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"caloriebot"
	"caloriebot/retry"
)

// FoodData Central nutrient ids.
const (
	nutrientEnergyKcal = 1008
	nutrientProtein    = 1003
	nutrientFat        = 1004
	nutrientCarbs      = 1005
)

const (
	opSearch  = "USDA search"
	opDetails = "USDA food details"
)

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL    string
	apiKey     string
	pageSize   int
	timeout    time.Duration
	httpClient doer
	retry      *retry.Executor
}

type Option func(*Client)

// WithRetry replaces the default retry executor.
func WithRetry(e *retry.Executor) Option {
	return func(c *Client) { c.retry = e }
}

func NewClient(cfg caloriebot.NutritionConfig, httpClient doer, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.USDABaseURL, "/"),
		apiKey:     cfg.USDAAPIKey,
		pageSize:   cfg.PageSize,
		timeout:    cfg.RequestTimeout,
		httpClient: httpClient,
		retry:      retry.New("usda"),
	}
	if c.pageSize <= 0 {
		c.pageSize = 10
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchRequest struct {
	Query    string `json:"query"`
	PageSize int    `json:"pageSize"`
}

type searchResponse struct {
	Foods []struct {
		FdcID       *int64   `json:"fdcId"`
		Description string   `json:"description"`
		DataType    string   `json:"dataType"`
		Score       *float64 `json:"score"`
	} `json:"foods"`
}

type detailsResponse struct {
	Description   string   `json:"description"`
	ServingSize   *float64 `json:"servingSize"`
	FoodNutrients []struct {
		Nutrient struct {
			ID int `json:"id"`
		} `json:"nutrient"`
		Amount float64 `json:"amount"`
	} `json:"foodNutrients"`
}

// SearchFoods returns the hits for query that carry both an id and a description.
func (c *Client) SearchFoods(ctx context.Context, query string) ([]caloriebot.SearchHit, error) {
	payload, err := json.Marshal(searchRequest{Query: strings.TrimSpace(query), PageSize: c.pageSize})
	if err != nil {
		return nil, err
	}

	var out searchResponse
	err = c.retry.Run(ctx, func(ctx context.Context) error {
		out = searchResponse{}
		return c.do(ctx, http.MethodPost, c.endpoint("/foods/search"), payload, opSearch, &out)
	})
	if err != nil {
		return nil, err
	}

	hits := make([]caloriebot.SearchHit, 0, len(out.Foods))
	for _, f := range out.Foods {
		desc := strings.TrimSpace(f.Description)
		if f.FdcID == nil || desc == "" {
			continue
		}
		hits = append(hits, caloriebot.SearchHit{
			ExternalID:     *f.FdcID,
			Description:    desc,
			DataSourceTag:  f.DataType,
			RelevanceScore: f.Score,
		})
	}

	slog.Debug("USDA: Search complete", "query", query, "hits", len(hits))
	return hits, nil
}

// FoodDetails fetches per-100 g macros for id. It fails with
// caloriebot.ErrInvalidNutrients when no macro is positive.
func (c *Client) FoodDetails(ctx context.Context, id int64) (caloriebot.NutrientProfile, error) {
	var out detailsResponse
	err := c.retry.Run(ctx, func(ctx context.Context) error {
		out = detailsResponse{}
		return c.do(ctx, http.MethodGet, c.endpoint("/food/"+strconv.FormatInt(id, 10)), nil, opDetails, &out)
	})
	if err != nil {
		return caloriebot.NutrientProfile{}, err
	}

	amounts := make(map[int]float64, len(out.FoodNutrients))
	for _, n := range out.FoodNutrients {
		if _, seen := amounts[n.Nutrient.ID]; !seen {
			amounts[n.Nutrient.ID] = n.Amount
		}
	}

	profile := caloriebot.NutrientProfile{
		Description:          strings.TrimSpace(out.Description),
		CaloriesPer100g:      amounts[nutrientEnergyKcal],
		ProteinPer100g:       amounts[nutrientProtein],
		FatPer100g:           amounts[nutrientFat],
		CarbsPer100g:         amounts[nutrientCarbs],
		ReferenceAmountGrams: out.ServingSize,
	}
	if !profile.Valid() {
		return caloriebot.NutrientProfile{}, fmt.Errorf("food %d: %w", id, caloriebot.ErrInvalidNutrients)
	}
	return profile, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path + "?api_key=" + url.QueryEscape(c.apiKey)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, op string, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return caloriebot.NewStatusError(op, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: %w", op, caloriebot.ErrMalformedResponse, err)
	}
	return nil
}
