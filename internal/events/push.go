package events

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"carlink/market/internal/utils"
)

// PushSender is the subset of *messaging.Client used for push.
type PushSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// DeviceTokens resolves the push token registered for a user, "" if none.
type DeviceTokens interface {
	DeviceToken(ctx context.Context, userID utils.SixID) (string, error)
}

// NewFCMClient creates a Firebase Cloud Messaging client from a service account file.
func NewFCMClient(ctx context.Context, credentialsFile string) (*messaging.Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase messaging: %w", err)
	}
	return client, nil
}

// Push sends a mobile notification to recipients with a registered device.
type Push struct {
	sender PushSender
	tokens DeviceTokens
}

func NewPush(sender PushSender, tokens DeviceTokens) *Push {
	return &Push{sender: sender, tokens: tokens}
}

func (p *Push) Emit(ctx context.Context, e Event) error {
	token, err := p.tokens.DeviceToken(ctx, e.RecipientID)
	if err != nil {
		return fmt.Errorf("failed to look up device token: %w", err)
	}
	if token == "" {
		return nil
	}

	data := map[string]string{"type": string(e.Type)}
	if e.RoomID != nil {
		data["room_id"] = e.RoomID.String()
	}
	if e.ListingID != nil {
		data["listing_id"] = e.ListingID.String()
	}
	if e.InquiryID != nil {
		data["inquiry_id"] = e.InquiryID.String()
	}

	_, err = p.sender.Send(ctx, &messaging.Message{
		Token:        token,
		Notification: &messaging.Notification{Title: e.Title(), Body: e.Preview},
		Data:         data,
	})
	if err != nil {
		return fmt.Errorf("failed to send push: %w", err)
	}
	return nil
}
