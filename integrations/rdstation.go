package integrations

import (
	"context"
	"fmt"

	"leads-organizer-backend/config"
	"leads-organizer-backend/models"
	"leads-organizer-backend/utils"

	"github.com/go-resty/resty/v2"
)

const (
	rdStationBaseTag       = "SITE"
	rdStationContactIdent  = "CONTATO VIA SITE"
	rdStationPropertyIdent = "Imóvel Cod. %s - SITE"
)

// RDStationClient posts conversions to the marketing inbox.
type RDStationClient struct {
	http     *resty.Client
	endpoint string
	token    string
}

func NewRDStationClient(cfg config.RDStationConfig, opts ...Option) *RDStationClient {
	return &RDStationClient{
		http:     newRestClient("", opts),
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
	}
}

// ConversionFields builds the form the conversion endpoint expects.
func (c *RDStationClient) ConversionFields(lead *models.Lead, source models.LeadSource) map[string]string {
	fields := map[string]string{
		"token_rdstation": c.token,
		"name":            lead.Name,
		"email_lead":      lead.Email,
		"personal_phone":  lead.Phone,
		"tags":            rdStationBaseTag,
		"identificador":   rdStationContactIdent,
	}
	if source == models.SourcePropertyInquiry {
		fields["identificador"] = fmt.Sprintf(rdStationPropertyIdent, models.Value(lead.PropertyID))
		if tier, ok := utils.PriceTier(models.Value(lead.PropertyPrice)); ok {
			fields["tags"] += ", " + tier
		}
	}
	return fields
}

func (c *RDStationClient) SubmitConversion(ctx context.Context, lead *models.Lead, source models.LeadSource) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(c.ConversionFields(lead, source)).
		Post(c.endpoint)
	return checkResponse(models.ConnectorRDStation, "submit conversion", resp, err)
}
