package vendors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	pkgerrors "github.com/yungbote/partbase-backend/internal/pkg/errors"
	"github.com/yungbote/partbase-backend/internal/pkg/logger"
)

type lcscClient struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

// NewLCSCClient needs no API key; the public search endpoint is used.
func NewLCSCClient(log *logger.Logger) PartSource {
	baseURL := strings.TrimSpace(os.Getenv("LCSC_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://wmsc.lcsc.com/wmsc"
	}
	return &lcscClient{
		log:        log.With("service", "LCSCClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *lcscClient) Name() string { return "lcsc" }

type lcscSearchResponse struct {
	Code   int `json:"code"`
	Result struct {
		ProductSearchResultVO struct {
			ProductList []struct {
				ProductCode    string `json:"productCode"`
				ProductModel   string `json:"productModel"`
				BrandNameEn    string `json:"brandNameEn"`
				ProductIntroEn string `json:"productIntroEn"`
				PdfUrl         string `json:"pdfUrl"`
				EncapStandard  string `json:"encapStandard"`
				ParamVOList    []struct {
					ParamNameEn  string `json:"paramNameEn"`
					ParamValueEn string `json:"paramValueEn"`
				} `json:"paramVOList"`
			} `json:"productList"`
		} `json:"productSearchResultVO"`
	} `json:"result"`
}

func (c *lcscClient) Lookup(ctx context.Context, mpn string) (*PartData, error) {
	endpoint := fmt.Sprintf("%s/search/global?keyword=%s", c.baseURL, url.QueryEscape(mpn))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

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
		return nil, fmt.Errorf("lcsc http %d: %s", resp.StatusCode, string(body))
	}

	var out lcscSearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("lcsc decode: %w", err)
	}

	products := out.Result.ProductSearchResultVO.ProductList
	for _, p := range products {
		if !strings.EqualFold(strings.TrimSpace(p.ProductModel), strings.TrimSpace(mpn)) {
			continue
		}
		data := &PartData{
			MPN:          p.ProductModel,
			Manufacturer: p.BrandNameEn,
			Description:  p.ProductIntroEn,
			DatasheetURL: p.PdfUrl,
			PackageRaw:   p.EncapStandard,
			Specs:        map[string]any{},
		}
		for _, param := range p.ParamVOList {
			key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(param.ParamNameEn), " ", "_"))
			if key != "" {
				data.Specs[key] = param.ParamValueEn
			}
		}
		return data, nil
	}
	return nil, pkgerrors.ErrNotFound
}
