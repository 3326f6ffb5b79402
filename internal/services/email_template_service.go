package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"

	"go.mongodb.org/mongo-driver/mongo"

	"carlink/market/internal/models"
)

const (
	TemplateNewInquiry      = "new_inquiry"
	TemplateInquiryResponse = "inquiry_response"
	TemplateNewMessage      = "new_message"
	TemplateNewMatches      = "new_matches"
)

// Default email templates used as fallback when not found in database
var defaultEmailTemplates = map[string]models.EmailTemplate{
	TemplateNewInquiry: {
		TemplateID: TemplateNewInquiry,
		Locale:     "en-US",
		Subject:    "New inquiry about {{.listing_title}}",
		Body:       "{{.actor_name}} asked about {{.listing_title}}:\n\n{{.preview}}\n\nReply: {{.base_url}}/chat/{{.room_id}}",
	},
	TemplateInquiryResponse: {
		TemplateID: TemplateInquiryResponse,
		Locale:     "en-US",
		Subject:    "The seller replied about {{.listing_title}}",
		Body:       "{{.actor_name}} replied:\n\n{{.preview}}\n\nContinue the conversation: {{.base_url}}/chat/{{.room_id}}",
	},
	TemplateNewMessage: {
		TemplateID: TemplateNewMessage,
		Locale:     "en-US",
		Subject:    "New message from {{.actor_name}}",
		Body:       "{{.preview}}\n\nOpen the chat: {{.base_url}}/chat/{{.room_id}}",
	},
	TemplateNewMatches: {
		TemplateID: TemplateNewMatches,
		Locale:     "en-US",
		Subject:    "New cars match your search",
		Body:       "We found new listings for your saved search.\n\nSee them: {{.base_url}}/requests/{{.request_id}}/matches",
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	SaveTemplate(ctx context.Context, t *models.EmailTemplate) error
	// Render executes the template's subject and body against data.
	Render(ctx context.Context, templateID, locale string, data map[string]interface{}) (subject, body string, err error)
}

type emailTemplateService struct {
	store         EmailTemplateStore
	defaultLocale string
}

func NewEmailTemplateService(store EmailTemplateStore, defaultLocale string) IEmailTemplateService {
	if defaultLocale == "" {
		defaultLocale = "en-US"
	}
	return &emailTemplateService{store: store, defaultLocale: defaultLocale}
}

// GetTemplate looks the template up for locale, then the default locale, then
// the built-in defaults.
func (s *emailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	locales := []string{locale}
	if locale != s.defaultLocale {
		locales = append(locales, s.defaultLocale)
	}
	for _, loc := range locales {
		if loc == "" {
			continue
		}
		t, err := s.store.Find(ctx, templateID, loc)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("error retrieving template: %w", err)
		}
	}
	if t, ok := defaultEmailTemplates[templateID]; ok {
		return &t, nil
	}
	return nil, fmt.Errorf("template %s (locale: %s): %w", templateID, locale, ErrNotFound)
}

func (s *emailTemplateService) SaveTemplate(ctx context.Context, t *models.EmailTemplate) error {
	if t.TemplateID == "" || t.Locale == "" {
		return invalid("template id and locale are required")
	}
	for _, src := range []string{t.Subject, t.Body} {
		if _, err := template.New(t.TemplateID).Parse(src); err != nil {
			return invalid("template does not parse: %v", err)
		}
	}
	return s.store.Save(ctx, t)
}

func (s *emailTemplateService) Render(ctx context.Context, templateID, locale string, data map[string]interface{}) (string, string, error) {
	t, err := s.GetTemplate(ctx, templateID, locale)
	if err != nil {
		return "", "", err
	}
	subject, err := execute(t.TemplateID+".subject", t.Subject, data)
	if err != nil {
		return "", "", err
	}
	body, err := execute(t.TemplateID+".body", t.Body, data)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

func execute(name, src string, data map[string]interface{}) (string, error) {
	tmpl, err := template.New(name).Parse(src)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
