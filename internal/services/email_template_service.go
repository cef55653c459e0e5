package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/robe-lope/bookbuddy-swapper/internal/models"
)

// Default notification templates, used when the database has none for the
// requested event and locale. Fields: app_name, username, match_id, event.
var defaultEmailTemplates = map[models.EventKind]models.EmailTemplate{
	models.EventMatchFound: {
		TemplateID: string(models.EventMatchFound),
		Locale:     "en-US",
		Subject:    "{{.app_name}}: you have a new swap match",
		Body:       "Hi {{.username}}, someone wants a book you offer and offers one you want. Open match {{.match_id}} to accept or decline.",
	},
	models.EventMatchAccepted: {
		TemplateID: string(models.EventMatchAccepted),
		Locale:     "en-US",
		Subject:    "{{.app_name}}: swap accepted",
		Body:       "Hi {{.username}}, match {{.match_id}} was accepted. You can now arrange the swap in the chat.",
	},
	models.EventMatchDeclined: {
		TemplateID: string(models.EventMatchDeclined),
		Locale:     "en-US",
		Subject:    "{{.app_name}}: swap declined",
		Body:       "Hi {{.username}}, match {{.match_id}} was declined.",
	},
	models.EventMatchCompleted: {
		TemplateID: string(models.EventMatchCompleted),
		Locale:     "en-US",
		Subject:    "{{.app_name}}: swap completed",
		Body:       "Hi {{.username}}, match {{.match_id}} is marked as completed. Enjoy your new book!",
	},
	models.EventMessageReceived: {
		TemplateID: string(models.EventMessageReceived),
		Locale:     "en-US",
		Subject:    "{{.app_name}}: new message about your swap",
		Body:       "Hi {{.username}}, you have a new message on match {{.match_id}}.",
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
}

const emailTemplatesCollection = "email_templates"

// EmailTemplateService handles operations related to email templates
type EmailTemplateService struct {
	db *mongo.Database
}

// NewEmailTemplateService creates a new instance of EmailTemplateService.
// A nil database serves the built-in defaults only.
func NewEmailTemplateService(db *mongo.Database) *EmailTemplateService {
	return &EmailTemplateService{
		db: db,
	}
}

// DefaultTemplate returns the built-in template for an event kind.
func DefaultTemplate(templateID string) (*models.EmailTemplate, bool) {
	tmpl, ok := defaultEmailTemplates[models.EventKind(templateID)]
	if !ok {
		return nil, false
	}
	return &tmpl, true
}

// GetTemplate retrieves an email template by ID and locale
func (s *EmailTemplateService) GetTemplate(ctx context.Context, templateID string, locale string) (*models.EmailTemplate, error) {
	if s.db == nil {
		if tmpl, ok := DefaultTemplate(templateID); ok {
			return tmpl, nil
		}
		return nil, fmt.Errorf("template not found: %s (locale: %s)", templateID, locale)
	}

	filter := bson.M{
		"template_id": templateID,
		"locale":      locale,
	}

	var template models.EmailTemplate
	err := s.db.Collection(emailTemplatesCollection).FindOne(ctx, filter).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// If template not found in DB, try to get from defaults
			if tmpl, ok := DefaultTemplate(templateID); ok {
				return tmpl, nil
			}
			return nil, fmt.Errorf("template not found: %s (locale: %s)", templateID, locale)
		}
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}

	return &template, nil
}

// SaveTemplate upserts a template keyed by (template_id, locale).
func (s *EmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	template.GenIDIfEmpty()
	filter := bson.M{
		"template_id": template.TemplateID,
		"locale":      template.Locale,
	}
	update := bson.M{
		"$set":         bson.M{"subject": template.Subject, "body": template.Body},
		"$setOnInsert": bson.M{"_id": template.ID},
	}
	opts := options.Update().SetUpsert(true)

	_, err := s.db.Collection(emailTemplatesCollection).UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}

	return nil
}
