package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"

	"leads-organizer-backend/config"
	"leads-organizer-backend/utils"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const connectorCMS = "cms"

// Property is the slice of CMS metadata a lead carries.
type Property struct {
	PostID int64
	Code   string
	Title  string
	Price  decimal.Decimal
}

type wpPost struct {
	ID    int64 `json:"id"`
	Title struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
	Meta map[string]json.RawMessage `json:"meta"`
}

// WordPressCatalog reads property posts from the WordPress REST API.
type WordPressCatalog struct {
	http     *resty.Client
	postType string
}

func NewWordPressCatalog(cfg config.CMSConfig, opts ...Option) *WordPressCatalog {
	postType := cfg.PostType
	if postType == "" {
		postType = "imovel"
	}
	return &WordPressCatalog{
		http:     newRestClient(cfg.BaseURL, opts),
		postType: postType,
	}
}

func (c *WordPressCatalog) FindProperty(ctx context.Context, id string) (*Property, error) {
	var post wpPost
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"type": c.postType,
			"id":   strings.TrimSpace(id),
		}).
		SetResult(&post).
		Get("/wp-json/wp/v2/{type}/{id}")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return nil, &ConnectorError{Connector: connectorCMS, Op: "find property", StatusCode: http.StatusNotFound, Err: ErrPropertyNotFound}
	}
	if err := checkResponse(connectorCMS, "find property", resp, err); err != nil {
		return nil, err
	}

	prop := &Property{
		PostID: post.ID,
		Code:   metaString(post.Meta["property_id"]),
		Title:  html.UnescapeString(strings.TrimSpace(post.Title.Rendered)),
	}
	if raw := metaString(post.Meta["property_price"]); raw != "" {
		price, err := parseMetaPrice(raw)
		if err != nil {
			return nil, &ConnectorError{Connector: connectorCMS, Op: "find property", Err: fmt.Errorf("%w: price %q", ErrUnexpectedResponse, raw)}
		}
		prop.Price = price
	}
	return prop, nil
}

// metaString reads a meta value registered either as a single value or as a list.
func metaString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return strings.TrimSpace(list[0])
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// parseMetaPrice accepts the raw numeric meta ("1200000", "1200000.50") and
// falls back to the locale format editors sometimes type in.
func parseMetaPrice(raw string) (decimal.Decimal, error) {
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return decimal.NewFromString(raw)
	}
	return utils.ParseLocalePrice(raw)
}
