package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carlink/market/internal/models"
)

func TestEmailTemplateService_Fallbacks(t *testing.T) {
	store := &fakeTemplates{}
	svc := NewEmailTemplateService(store, "en-US")
	ctx := context.Background()

	tmpl, err := svc.GetTemplate(ctx, TemplateNewMatches, "sw-KE")
	require.NoError(t, err)
	assert.Equal(t, "New cars match your search", tmpl.Subject)

	require.NoError(t, svc.SaveTemplate(ctx, &models.EmailTemplate{
		TemplateID: TemplateNewMatches, Locale: "en-US",
		Subject: "Matches!", Body: "{{.count}} new",
	}))
	tmpl, err = svc.GetTemplate(ctx, TemplateNewMatches, "sw-KE")
	require.NoError(t, err)
	assert.Equal(t, "Matches!", tmpl.Subject)

	require.NoError(t, svc.SaveTemplate(ctx, &models.EmailTemplate{
		TemplateID: TemplateNewMatches, Locale: "sw-KE",
		Subject: "Magari mapya", Body: "{{.count}} mapya",
	}))
	subject, body, err := svc.Render(ctx, TemplateNewMatches, "sw-KE", map[string]interface{}{"count": 3})
	require.NoError(t, err)
	assert.Equal(t, "Magari mapya", subject)
	assert.Equal(t, "3 mapya", body)

	_, err = svc.GetTemplate(ctx, "no_such_template", "en-US")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmailTemplateService_RejectsBrokenTemplate(t *testing.T) {
	svc := NewEmailTemplateService(&fakeTemplates{}, "")
	err := svc.SaveTemplate(context.Background(), &models.EmailTemplate{
		TemplateID: TemplateNewMessage, Locale: "en-US", Subject: "{{.oops", Body: "x",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEmailTemplateService_RenderDefaults(t *testing.T) {
	svc := NewEmailTemplateService(&fakeTemplates{}, "en-US")
	subject, body, err := svc.Render(context.Background(), TemplateNewInquiry, "en-US", map[string]interface{}{
		"listing_title": "RAV4 2019",
		"actor_name":    "Amina",
		"preview":       "Still available?",
		"base_url":      "https://carlink.example",
		"room_id":       "ROOM1",
	})
	require.NoError(t, err)
	assert.Equal(t, "New inquiry about RAV4 2019", subject)
	assert.Contains(t, body, "https://carlink.example/chat/ROOM1")
}
