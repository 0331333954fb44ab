package vendors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	pkgerrors "github.com/yungbote/partbase-backend/internal/pkg/errors"
	"github.com/yungbote/partbase-backend/internal/pkg/logger"
)

type mouserClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewMouserClient(log *logger.Logger) (PartSource, error) {
	apiKey := strings.TrimSpace(os.Getenv("MOUSER_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing MOUSER_API_KEY")
	}
	baseURL := strings.TrimSpace(os.Getenv("MOUSER_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.mouser.com"
	}
	return &mouserClient{
		log:        log.With("service", "MouserClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *mouserClient) Name() string { return "mouser" }

type mouserSearchRequest struct {
	SearchByPartRequest struct {
		MouserPartNumber  string `json:"mouserPartNumber"`
		PartSearchOptions string `json:"partSearchOptions"`
	} `json:"SearchByPartRequest"`
}

type mouserSearchResponse struct {
	Errors []struct {
		Message string `json:"Message"`
	} `json:"Errors"`
	SearchResults struct {
		NumberOfResult int `json:"NumberOfResult"`
		Parts          []struct {
			ManufacturerPartNumber string `json:"ManufacturerPartNumber"`
			Manufacturer           string `json:"Manufacturer"`
			Description            string `json:"Description"`
			DataSheetUrl           string `json:"DataSheetUrl"`
			LifecycleStatus        string `json:"LifecycleStatus"`
			ProductAttributes      []struct {
				AttributeName  string `json:"AttributeName"`
				AttributeValue string `json:"AttributeValue"`
			} `json:"ProductAttributes"`
		} `json:"Parts"`
	} `json:"SearchResults"`
}

func (c *mouserClient) search(ctx context.Context, mpn string) (*mouserSearchResponse, error) {
	var reqBody mouserSearchRequest
	reqBody.SearchByPartRequest.MouserPartNumber = mpn
	reqBody.SearchByPartRequest.PartSearchOptions = "Exact"

	raw, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v1/search/partnumber?apiKey=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mouser http %d: %s", resp.StatusCode, string(body))
	}

	var out mouserSearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("mouser decode: %w", err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("mouser api error: %s", out.Errors[0].Message)
	}
	return &out, nil
}

func (c *mouserClient) Lookup(ctx context.Context, mpn string) (*PartData, error) {
	out, err := c.search(ctx, mpn)
	if err != nil {
		return nil, err
	}
	if out.SearchResults.NumberOfResult == 0 || len(out.SearchResults.Parts) == 0 {
		return nil, pkgerrors.ErrNotFound
	}

	part := out.SearchResults.Parts[0]
	data := &PartData{
		MPN:             part.ManufacturerPartNumber,
		Manufacturer:    part.Manufacturer,
		Description:     part.Description,
		DatasheetURL:    part.DataSheetUrl,
		LifecycleStatus: part.LifecycleStatus,
		Specs:           map[string]any{},
	}
	for _, attr := range part.ProductAttributes {
		switch strings.ToLower(attr.AttributeName) {
		case "package / case", "package":
			data.PackageRaw = attr.AttributeValue
		default:
			key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(attr.AttributeName), " ", "_"))
			if key != "" {
				data.Specs[key] = attr.AttributeValue
			}
		}
	}
	return data, nil
}

// SearchFamily enumerates variants by keyword search on the base MPN.
func (c *mouserClient) SearchFamily(ctx context.Context, baseMPN string) ([]string, error) {
	out, err := c.search(ctx, baseMPN)
	if err != nil {
		return nil, err
	}
	var mpns []string
	for _, part := range out.SearchResults.Parts {
		if strings.HasPrefix(strings.ToUpper(part.ManufacturerPartNumber), strings.ToUpper(baseMPN)) {
			mpns = append(mpns, part.ManufacturerPartNumber)
		}
	}
	return mpns, nil
}
