// Package firstchat talks to the message-generation API, turning a scraped
// record into an opening-message request.
package firstchat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/RomanSlack/FirstChat-BackEnd/models"
)

// MatchBio is the scraped profile as the API expects it.
type MatchBio struct {
	Name      string   `json:"name"`
	Age       *int     `json:"age,omitempty"`
	Bio       string   `json:"bio"`
	Interests []string `json:"interests"`
}

// GenerateRequest is the /generate_message request body. Image fields carry
// base64 data URIs.
type GenerateRequest struct {
	Image1        string   `json:"image1"`
	Image2        string   `json:"image2"`
	UserBio       string   `json:"user_bio"`
	MatchBio      MatchBio `json:"match_bio"`
	SentenceCount int      `json:"sentence_count"`
	Tone          string   `json:"tone"`
	Creativity    float64  `json:"creativity"`
}

// GenerateResponse is the minimal response shape we need.
type GenerateResponse struct {
	Status string `json:"status"`
	Data   struct {
		GeneratedMessage string `json:"generated_message"`
	} `json:"data"`
	ProcessingTime float64 `json:"processing_time"`
}

// apiError captures an error body from the API.
type apiError struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Client is a lightweight client for the message-generation API.
// It uses net/http directly, no SDK needed.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// NewClient creates a client for the given /generate_message endpoint.
// Pass a nil http.Client to use a default one.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient, endpoint: endpoint}
}

// Generate sends the request and returns the generated message.
func (c *Client) Generate(ctx context.Context, genReq GenerateRequest) (*GenerateResponse, error) {
	bodyBytes, err := json.Marshal(genReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeMessageGen, "message API request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeMessageGen, "failed to read message API response", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("message API returned %d", resp.StatusCode)
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil {
			if apiErr.Error != "" {
				msg = fmt.Sprintf("%s: %s", msg, apiErr.Error)
			} else if apiErr.Detail != "" {
				msg = fmt.Sprintf("%s: %s", msg, apiErr.Detail)
			}
		}
		return nil, models.NewScrapeError(models.ErrCodeMessageGen, msg, nil)
	}

	var genResp GenerateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeMessageGen, "failed to parse message API response", err)
	}
	if genResp.Data.GeneratedMessage == "" {
		return nil, models.NewScrapeError(models.ErrCodeMessageGen, "message API returned no message", nil)
	}
	return &genResp, nil
}
