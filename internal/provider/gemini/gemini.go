package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nafisa/promptpix/internal/provider"
	"github.com/nafisa/promptpix/pkg/models"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash-image"
	defaultTimeout = 120 * time.Second
)

type apiRequest struct {
	Contents         []apiContent         `json:"contents"`
	GenerationConfig *apiGenerationConfig `json:"generationConfig,omitempty"`
}

type apiContent struct {
	Parts []apiPart `json:"parts"`
}

type apiPart struct {
	Text       string         `json:"text,omitempty"`
	InlineData *apiInlineData `json:"inlineData,omitempty"`
}

type apiInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type apiGenerationConfig struct {
	ResponseModalities []string        `json:"responseModalities,omitempty"`
	ImageConfig        *apiImageConfig `json:"imageConfig,omitempty"`
}

type apiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type apiResponse struct {
	Candidates []apiCandidate `json:"candidates"`
	Error      *apiError      `json:"error,omitempty"`
}

type apiCandidate struct {
	Content      *apiContent `json:"content"`
	FinishReason string      `json:"finishReason,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type Provider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	verbose    bool
}

func New(cfg *provider.Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, provider.ErrAPIKeyRequired
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	timeout := defaultTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	return &Provider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		verbose: cfg.Verbose,
	}, nil
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) Generate(ctx context.Context, req *models.Request) (*models.Response, error) {
	apiReq := buildAPIRequest(req)

	jsonData, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, p.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	p.logRequest(http.MethodPost, url, httpReq.Header, jsonData)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	p.logResponse(resp.StatusCode, resp.Header, body)

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if apiResp.Error != nil {
		return nil, fmt.Errorf("%w: %s", provider.ErrGenerationFailed, apiResp.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", provider.ErrGenerationFailed, resp.StatusCode)
	}

	return buildResponse(apiResp)
}

func buildAPIRequest(req *models.Request) *apiRequest {
	apiReq := &apiRequest{
		Contents: []apiContent{
			{Parts: []apiPart{{Text: req.Prompt}}},
		},
		GenerationConfig: &apiGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	if req.AspectRatio != "" {
		apiReq.GenerationConfig.ImageConfig = &apiImageConfig{
			AspectRatio: req.AspectRatio.String(),
		}
	}

	return apiReq
}

func buildResponse(apiResp apiResponse) (*models.Response, error) {
	response := &models.Response{}

	if len(apiResp.Candidates) == 0 || apiResp.Candidates[0].Content == nil {
		return response, nil
	}

	for i, part := range apiResp.Candidates[0].Content.Parts {
		out := models.Part{Text: part.Text}

		if part.InlineData != nil && part.InlineData.Data != "" {
			decoded, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode image part %d: %w", i, err)
			}
			out.Data = decoded
			out.MIMEType = part.InlineData.MIMEType
		}

		response.Parts = append(response.Parts, out)
	}

	return response, nil
}

func (p *Provider) logRequest(method, url string, headers http.Header, body []byte) {
	if !p.verbose {
		return
	}

	fmt.Fprintln(os.Stderr, "--- REQUEST ---")
	fmt.Fprintf(os.Stderr, "%s %s\n", method, url)
	fmt.Fprintln(os.Stderr, "Headers:")
	for key, values := range headers {
		for _, value := range values {
			if strings.ToLower(key) == "x-goog-api-key" {
				value = "[REDACTED]"
			}
			fmt.Fprintf(os.Stderr, "  %s: %s\n", key, value)
		}
	}
	if len(body) > 0 {
		fmt.Fprintln(os.Stderr, "Body:")
		var prettyJSON bytes.Buffer
		if err := json.Indent(&prettyJSON, body, "  ", "  "); err == nil {
			fmt.Fprintf(os.Stderr, "  %s\n", prettyJSON.String())
		} else {
			fmt.Fprintf(os.Stderr, "  %s\n", string(body))
		}
	}
	fmt.Fprintln(os.Stderr, "---------------")
}

func (p *Provider) logResponse(statusCode int, headers http.Header, body []byte) {
	if !p.verbose {
		return
	}

	fmt.Fprintln(os.Stderr, "--- RESPONSE ---")
	fmt.Fprintf(os.Stderr, "Status: %d\n", statusCode)
	fmt.Fprintln(os.Stderr, "Headers:")
	for key, values := range headers {
		for _, value := range values {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", key, value)
		}
	}
	if len(body) > 0 {
		fmt.Fprintln(os.Stderr, "Body:")
		// Truncate large base64 data in responses for readability
		truncatedBody := truncateInlineDataInJSON(body)
		var prettyJSON bytes.Buffer
		if err := json.Indent(&prettyJSON, truncatedBody, "  ", "  "); err == nil {
			fmt.Fprintf(os.Stderr, "  %s\n", prettyJSON.String())
		} else {
			fmt.Fprintf(os.Stderr, "  %s\n", string(truncatedBody))
		}
	}
	fmt.Fprintln(os.Stderr, "----------------")
}

func truncateInlineDataInJSON(body []byte) []byte {
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}

	truncateDataFields(data)

	result, err := json.Marshal(data)
	if err != nil {
		return body
	}
	return result
}

func truncateDataFields(data map[string]interface{}) {
	for key, value := range data {
		switch v := value.(type) {
		case string:
			if key == "data" && len(v) > 100 {
				data[key] = v[:100] + "... [truncated]"
			}
		case map[string]interface{}:
			truncateDataFields(v)
		case []interface{}:
			for _, item := range v {
				if m, ok := item.(map[string]interface{}); ok {
					truncateDataFields(m)
				}
			}
		}
	}
}
