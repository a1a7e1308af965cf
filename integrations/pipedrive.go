package integrations

import (
	"context"
	"fmt"
	"strconv"

	"leads-organizer-backend/config"
	"leads-organizer-backend/models"
	"leads-organizer-backend/utils"

	"github.com/go-resty/resty/v2"
)

type pipedriveEntity struct {
	ID int64 `json:"id"`
}

type pipedriveResponse[T any] struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    T      `json:"data"`
}

// PipedriveClient registers leads as persons and deals in the CRM.
type PipedriveClient struct {
	http *resty.Client
	cfg  config.PipedriveConfig
}

func NewPipedriveClient(cfg config.PipedriveConfig, opts ...Option) *PipedriveClient {
	client := newRestClient(cfg.BaseURL, opts).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("api_token", cfg.APIToken)
	return &PipedriveClient{http: client, cfg: cfg}
}

// UpsertDealForLead resolves the person by email, creating it when absent,
// and opens a deal for the lead. It returns the deal id.
func (c *PipedriveClient) UpsertDealForLead(ctx context.Context, lead *models.Lead, source models.LeadSource) (int64, error) {
	personID, err := c.findPerson(ctx, lead.Email)
	if err != nil {
		return 0, err
	}
	if personID == 0 {
		personID, err = c.createPerson(ctx, lead)
		if err != nil {
			return 0, err
		}
	}
	return c.createDeal(ctx, c.dealPayload(lead, source, personID))
}

func (c *PipedriveClient) findPerson(ctx context.Context, email string) (int64, error) {
	var result pipedriveResponse[[]pipedriveEntity]
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"term":            email,
			"search_by_email": "1",
		}).
		SetResult(&result).
		Get("/persons/find")
	if err := c.check("find person", resp, err, result.Success, result.Error); err != nil {
		return 0, err
	}
	if len(result.Data) == 0 {
		return 0, nil
	}
	return result.Data[0].ID, nil
}

func (c *PipedriveClient) createPerson(ctx context.Context, lead *models.Lead) (int64, error) {
	body := map[string]any{
		"name":  lead.Name,
		"email": lead.Email,
		"phone": lead.Phone,
	}
	if c.cfg.OriginFieldKey != "" {
		body[c.cfg.OriginFieldKey] = c.cfg.OriginValue
	}

	var result pipedriveResponse[*pipedriveEntity]
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/persons")
	if err := c.check("create person", resp, err, result.Success, result.Error); err != nil {
		return 0, err
	}
	if result.Data == nil || result.Data.ID == 0 {
		return 0, &ConnectorError{Connector: models.ConnectorPipedrive, Op: "create person", Err: fmt.Errorf("%w: missing person id", ErrUnexpectedResponse)}
	}
	return result.Data.ID, nil
}

func (c *PipedriveClient) dealPayload(lead *models.Lead, source models.LeadSource, personID int64) map[string]any {
	body := map[string]any{"person_id": personID}
	if c.cfg.OwnerUserID != "" {
		if id, err := strconv.ParseInt(c.cfg.OwnerUserID, 10, 64); err == nil {
			body["user_id"] = id
		} else {
			body["user_id"] = c.cfg.OwnerUserID
		}
	}

	switch source {
	case models.SourcePropertyInquiry:
		title := models.Value(lead.PropertyTitle)
		if title == "" {
			title = lead.Name
		}
		body["title"] = title
		if value, ok := utils.DealValue(models.Value(lead.PropertyPrice)); ok {
			body["value"] = value.InexactFloat64()
		}
	default:
		body["title"] = lead.Name + " — website contact"
		body["value"] = 0
		if c.cfg.MessageFieldKey != "" {
			body[c.cfg.MessageFieldKey] = models.Value(lead.Message)
		}
	}
	return body
}

func (c *PipedriveClient) createDeal(ctx context.Context, body map[string]any) (int64, error) {
	var result pipedriveResponse[*pipedriveEntity]
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/deals")
	if err := c.check("create deal", resp, err, result.Success, result.Error); err != nil {
		return 0, err
	}
	if result.Data == nil || result.Data.ID == 0 {
		return 0, &ConnectorError{Connector: models.ConnectorPipedrive, Op: "create deal", Err: fmt.Errorf("%w: missing deal id", ErrUnexpectedResponse)}
	}
	return result.Data.ID, nil
}

func (c *PipedriveClient) check(op string, resp *resty.Response, err error, success bool, apiErr string) error {
	if err := checkResponse(models.ConnectorPipedrive, op, resp, err); err != nil {
		return err
	}
	if !success {
		return &ConnectorError{
			Connector:  models.ConnectorPipedrive,
			Op:         op,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("%w: %s", ErrUnexpectedResponse, apiErr),
		}
	}
	return nil
}
