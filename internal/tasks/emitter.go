package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"carlink/market/internal/config"
	"carlink/market/internal/events"
	"carlink/market/internal/services"
	"carlink/market/internal/utils"
)

// MatchDigestDelay is how long match e-mails for one request are held so a
// single generation run produces a single e-mail.
var MatchDigestDelay = time.Minute

// TaskEmitter turns events into e-mail delivery tasks, honouring each
// recipient's notification preferences.
type TaskEmitter struct {
	dispatcher *Dispatcher
	users      services.UserStore
	listings   services.ListingStore
	cfg        *config.Config
	log        *zap.Logger
}

func NewTaskEmitter(dispatcher *Dispatcher, users services.UserStore, listings services.ListingStore, cfg *config.Config, log *zap.Logger) *TaskEmitter {
	return &TaskEmitter{dispatcher: dispatcher, users: users, listings: listings, cfg: cfg, log: log}
}

// emailKinds maps event types to template and preference kind.
var emailKinds = map[events.Type]struct{ template, kind string }{
	events.InquiryCreated:   {services.TemplateNewInquiry, "inquiry"},
	events.InquiryResponded: {services.TemplateInquiryResponse, "inquiry"},
	events.MessageSent:      {services.TemplateNewMessage, "message"},
	events.MatchCreated:     {services.TemplateNewMatches, "match"},
}

func (e *TaskEmitter) Emit(ctx context.Context, ev events.Event) error {
	k, ok := emailKinds[ev.Type]
	if !ok {
		return nil
	}
	recipient, err := e.users.FindByID(ctx, ev.RecipientID)
	if err != nil {
		return fmt.Errorf("recipient %s: %w", ev.RecipientID, err)
	}
	if recipient.Email == "" || !recipient.WantsEmail(k.kind) {
		return nil
	}

	data := map[string]interface{}{
		"app_name":       e.cfg.AppName,
		"base_url":       e.cfg.AppBaseURL,
		"recipient_name": recipient.Name,
		"preview":        ev.Preview,
	}
	if !ev.ActorID.IsZero() {
		if actor, err := e.users.FindByID(ctx, ev.ActorID); err == nil {
			data["actor_name"] = actor.Name
		}
	}
	if ev.ListingID != nil {
		data["listing_id"] = ev.ListingID.String()
		if l, err := e.listings.FindByID(ctx, *ev.ListingID); err == nil {
			data["listing_title"] = l.Title
		}
	}
	for name, id := range map[string]*utils.SixID{"room_id": ev.RoomID, "inquiry_id": ev.InquiryID, "request_id": ev.RequestID} {
		if id != nil {
			data[name] = id.String()
		}
	}

	payload := EmailTaskPayload{
		To:         recipient.Email,
		TemplateID: k.template,
		Locale:     e.cfg.DefaultLocale,
		Data:       data,
	}
	var opts []asynq.Option
	if ev.Type == events.MatchCreated && ev.RequestID != nil {
		opts = append(opts,
			asynq.TaskID("new_matches:"+ev.RequestID.String()),
			asynq.ProcessIn(MatchDigestDelay))
	}
	return e.dispatcher.EnqueueEmail(ctx, payload, opts...)
}
