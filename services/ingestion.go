package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"leads-organizer-backend/integrations"
	"leads-organizer-backend/logger"
	"leads-organizer-backend/models"
	"leads-organizer-backend/store"
	"leads-organizer-backend/utils"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Website form field names.
const (
	FieldName       = "FORMIMO_NOME"
	FieldPhone      = "FORMIMO_CELULAR"
	FieldEmail      = "FORMIMO_EMAIL"
	FieldMessage    = "FORMIMO_MSG"
	FieldPropertyID = "FORMIMO_IDIMOB"
)

type LeadStore interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Insert(ctx context.Context, lead *models.Lead) error
}

type PropertyCatalog interface {
	FindProperty(ctx context.Context, id string) (*integrations.Property, error)
}

type CRM interface {
	UpsertDealForLead(ctx context.Context, lead *models.Lead, source models.LeadSource) (int64, error)
}

type Marketing interface {
	SubmitConversion(ctx context.Context, lead *models.Lead, source models.LeadSource) error
}

type DeliveryRecorder interface {
	Record(ctx context.Context, d *models.Delivery) error
}

// SubmitResult describes what happened to one submission. Connector errors
// are reported here and never returned from Submit.
type SubmitResult struct {
	Lead         *models.Lead
	Inserted     bool
	DealID       int64
	PriceTier    string
	CRMErr       error
	MarketingErr error
}

// IngestionService stores website leads and forwards them to the CRM and
// the marketing inbox.
type IngestionService struct {
	leads      LeadStore
	catalog    PropertyCatalog
	crm        CRM
	marketing  Marketing
	deliveries DeliveryRecorder
	validate   *validator.Validate
	log        *zap.Logger
}

// NewIngestionService wires the pipeline. catalog and deliveries may be nil.
func NewIngestionService(leads LeadStore, catalog PropertyCatalog, crm CRM, marketing Marketing, deliveries DeliveryRecorder, log *zap.Logger) *IngestionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &IngestionService{
		leads:      leads,
		catalog:    catalog,
		crm:        crm,
		marketing:  marketing,
		deliveries: deliveries,
		validate:   validator.New(),
		log:        log,
	}
}

// SourceForFields picks the form a submission came from.
func SourceForFields(fields map[string]string) models.LeadSource {
	if strings.TrimSpace(fields[FieldPropertyID]) != "" {
		return models.SourcePropertyInquiry
	}
	return models.SourceContact
}

// Submit runs one submission through the pipeline. The lead is inserted only
// when its email is new; both connectors are called either way. The returned
// error is set only when storage failed.
func (s *IngestionService) Submit(ctx context.Context, fields map[string]string, source models.LeadSource) (*SubmitResult, error) {
	log := logger.FromContext(ctx, s.log).With(zap.String("source", string(source)))

	lead := s.shapeLead(ctx, log, fields, source)
	s.reportValidationGaps(log, lead)

	result := &SubmitResult{Lead: lead}
	if source == models.SourcePropertyInquiry {
		result.PriceTier, _ = utils.PriceTier(models.Value(lead.PropertyPrice))
	}

	storeErr := s.store(ctx, lead, result)
	if storeErr != nil {
		log.Error("lead not stored", zap.String("email", lead.Email), zap.Error(storeErr))
	}

	result.DealID, result.CRMErr = s.crm.UpsertDealForLead(ctx, lead, source)
	s.recordDelivery(ctx, log, lead, source, models.ConnectorPipedrive, result.DealID, result.CRMErr, map[string]any{
		"property_id": models.Value(lead.PropertyID),
		"deal_id":     result.DealID,
	})

	result.MarketingErr = s.marketing.SubmitConversion(ctx, lead, source)
	s.recordDelivery(ctx, log, lead, source, models.ConnectorRDStation, 0, result.MarketingErr, map[string]any{
		"property_id": models.Value(lead.PropertyID),
		"price_tier":  result.PriceTier,
	})

	log.Info("lead processed",
		zap.String("email", lead.Email),
		zap.Bool("inserted", result.Inserted),
		zap.Int64("deal_id", result.DealID),
		zap.String("price_tier", result.PriceTier),
		zap.Bool("crm_ok", result.CRMErr == nil),
		zap.Bool("marketing_ok", result.MarketingErr == nil),
	)
	return result, storeErr
}

func (s *IngestionService) shapeLead(ctx context.Context, log *zap.Logger, fields map[string]string, source models.LeadSource) *models.Lead {
	field := func(key string) string { return strings.TrimSpace(fields[key]) }

	lead := &models.Lead{
		Name:   utils.Clip(field(FieldName), models.NameMaxLen),
		Phone:  utils.Clip(field(FieldPhone), models.PhoneMaxLen),
		Email:  utils.Clip(strings.ToLower(field(FieldEmail)), models.EmailMaxLen),
		Source: source,
	}

	switch source {
	case models.SourcePropertyInquiry:
		if id := field(FieldPropertyID); id != "" {
			s.attachProperty(ctx, log, lead, id)
		}
	case models.SourceContact:
		msg := fields[FieldMessage]
		lead.Message = &msg
	}
	return lead
}

func (s *IngestionService) attachProperty(ctx context.Context, log *zap.Logger, lead *models.Lead, id string) {
	if s.catalog == nil {
		log.Warn("no property catalog configured", zap.String("property", id))
		return
	}
	prop, err := s.catalog.FindProperty(ctx, id)
	if err != nil {
		log.Warn("property lookup failed", zap.String("property", id), zap.Error(err))
		return
	}

	code := utils.Clip(prop.Code, models.PropertyIDMaxLen)
	lead.PropertyID = &code
	if prop.Title != "" {
		title := utils.Clip(prop.Title, models.PropertyTitleMaxLen)
		lead.PropertyTitle = &title
	}
	if prop.Price.IsPositive() {
		price := utils.Clip(utils.FormatLocalePrice(prop.Price), models.PropertyPriceMaxLen)
		lead.PropertyPrice = &price
	}
}

// reportValidationGaps logs every rule the shaped lead breaks. Leads are
// stored regardless.
func (s *IngestionService) reportValidationGaps(log *zap.Logger, lead *models.Lead) {
	err := s.validate.Struct(lead)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		log.Warn("validation gap", zap.Error(err))
		return
	}
	for _, fe := range verrs {
		log.Warn("validation gap",
			zap.String("field", fe.Field()),
			zap.String("rule", fe.Tag()),
			zap.String("email", lead.Email),
		)
	}
}

func (s *IngestionService) store(ctx context.Context, lead *models.Lead, result *SubmitResult) error {
	exists, err := s.leads.ExistsByEmail(ctx, lead.Email)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := s.leads.Insert(ctx, lead); err != nil {
		// another request stored the same email first
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil
		}
		return err
	}
	result.Inserted = true
	return nil
}

func (s *IngestionService) recordDelivery(ctx context.Context, log *zap.Logger, lead *models.Lead, source models.LeadSource, connector string, externalID int64, callErr error, payload map[string]any) {
	d := &models.Delivery{
		Connector: connector,
		Email:     lead.Email,
		Source:    source,
		Status:    models.DeliverySucceeded,
	}
	if externalID != 0 {
		d.ExternalID = strconv.FormatInt(externalID, 10)
	}
	if callErr != nil {
		d.Status = models.DeliveryFailed
		d.Error = callErr.Error()
		log.Warn("lead forwarding failed", zap.String("connector", connector), zap.Error(callErr))
	}

	if s.deliveries == nil {
		return
	}
	if raw, err := json.Marshal(payload); err == nil {
		d.Payload = datatypes.JSON(raw)
	}
	if err := s.deliveries.Record(ctx, d); err != nil {
		log.Error("delivery not recorded", zap.String("connector", connector), zap.Error(err))
	}
}
