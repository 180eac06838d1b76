package layout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	azureAPIVersion   = "2024-11-30"
	azureLayoutModel  = "prebuilt-layout"
	azureMaxBody      = 64 << 20
	azurePollInterval = 2 * time.Second
)

// AzureAnalyzer calls the Azure Document Intelligence layout model.
type AzureAnalyzer struct {
	endpoint     string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
}

func NewAzureAnalyzer(endpoint, apiKey string) *AzureAnalyzer {
	return &AzureAnalyzer{
		endpoint:     strings.TrimRight(endpoint, "/"),
		apiKey:       apiKey,
		pollInterval: azurePollInterval,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type azureResult struct {
	Status        string `json:"status"`
	AnalyzeResult *struct {
		Pages []struct {
			PageNumber int `json:"pageNumber"`
			Lines      []struct {
				Content string `json:"content"`
			} `json:"lines"`
		} `json:"pages"`
		Paragraphs []struct {
			Role            string `json:"role"`
			Content         string `json:"content"`
			BoundingRegions []struct {
				PageNumber int `json:"pageNumber"`
			} `json:"boundingRegions"`
		} `json:"paragraphs"`
	} `json:"analyzeResult"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *AzureAnalyzer) Analyze(ctx context.Context, r io.Reader, filename string) (*Document, error) {
	url := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s",
		a.endpoint, azureLayoutModel, azureAPIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, io.LimitReader(r, azureMaxBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Ocp-Apim-Subscription-Key", a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("azure analyze: %w", err)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("azure analyze status %d: %s", resp.StatusCode, string(body))
	}
	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return nil, fmt.Errorf("azure analyze: missing Operation-Location header")
	}

	result, err := a.poll(ctx, opURL)
	if err != nil {
		return nil, err
	}
	return convertAzure(result), nil
}

func (a *AzureAnalyzer) poll(ctx context.Context, opURL string) (*azureResult, error) {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create poll request: %w", err)
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", a.apiKey)

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("azure poll: %w", err)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, azureMaxBody))
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read poll response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("azure poll status %d: %s", resp.StatusCode, string(body))
		}

		var result azureResult
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("decode poll response: %w", err)
		}
		switch result.Status {
		case "succeeded":
			if result.AnalyzeResult == nil {
				return nil, fmt.Errorf("azure analyze: empty result")
			}
			return &result, nil
		case "failed", "canceled":
			if result.Error != nil {
				return nil, fmt.Errorf("azure analyze %s: %s: %s", result.Status, result.Error.Code, result.Error.Message)
			}
			return nil, fmt.Errorf("azure analyze %s", result.Status)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func convertAzure(res *azureResult) *Document {
	doc := &Document{}
	ar := res.AnalyzeResult
	for _, p := range ar.Pages {
		page := Page{Number: p.PageNumber}
		for _, l := range p.Lines {
			page.Lines = append(page.Lines, l.Content)
		}
		doc.Pages = append(doc.Pages, page)
	}
	for _, p := range ar.Paragraphs {
		page := 0
		if len(p.BoundingRegions) > 0 {
			page = p.BoundingRegions[0].PageNumber
		}
		role := Role(p.Role)
		if p.Role == "" {
			role = RoleBody
		}
		doc.Paragraphs = append(doc.Paragraphs, Paragraph{
			Index:   len(doc.Paragraphs),
			Role:    role,
			Content: p.Content,
			Page:    page,
		})
	}
	return doc
}
