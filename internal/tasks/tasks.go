package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"carlink/market/internal/config"
	"carlink/market/internal/email"
	"carlink/market/internal/services"
	"carlink/market/internal/storage"
	"carlink/market/internal/utils"
)

// TaskType defines the type of a background task.
const (
	TypeEmailDelivery = "email:deliver"
	TypeImageProcess  = "image:process"
	TypeMatchGenerate = "match:generate"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
	QueueImages   = "images"
)

// RedisOpt builds the asynq connection from an existing redis client.
func RedisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	o := rdb.Options()
	return asynq.RedisClientOpt{Addr: o.Addr, Password: o.Password, DB: o.DB}
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(RedisOpt(rdb))
}

// ObjectStore is the part of storage.IS3Storage used by image processing.
type ObjectStore interface {
	GetObject(ctx context.Context, key string) ([]byte, string, error)
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg       *config.Config
	sender    email.Sender
	templates services.IEmailTemplateService
	listings  services.IListingService
	matches   services.IMatchService
	objects   ObjectStore
	log       *zap.Logger
}

func NewTaskProcessor(
	cfg *config.Config,
	sender email.Sender,
	templates services.IEmailTemplateService,
	listings services.IListingService,
	matches services.IMatchService,
	objects ObjectStore,
	log *zap.Logger,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:       cfg,
		sender:    sender,
		templates: templates,
		listings:  listings,
		matches:   matches,
		objects:   objects,
		log:       log,
	}
}

// SetupServer builds the asynq server and the handler mux for the worker
// roles enabled. It returns nil when neither role is enabled.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isImageWorker, isBgWorker bool, log *zap.Logger) (*asynq.Server, *asynq.ServeMux) {
	if !isBgWorker && !isImageWorker {
		return nil, nil
	}

	queues := map[string]int{}
	mux := asynq.NewServeMux()
	if isBgWorker {
		queues[QueueCritical] = 6
		queues[QueueDefault] = 3
		queues[QueueLow] = 1
		mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
		mux.HandleFunc(TypeMatchGenerate, processor.HandleMatchGenerateTask)
		log.Info("registered background task handlers")
	}
	if isImageWorker {
		queues[QueueImages] = 5
		mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
		log.Info("registered image processing task handlers")
	}

	srv := asynq.NewServer(RedisOpt(rdb), asynq.Config{
		Queues: queues,
		Logger: log.Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("task failed",
				zap.String("type", task.Type()),
				zap.ByteString("payload", task.Payload()),
				zap.Error(err))
		}),
	})
	return srv, mux
}

// --- Task Handlers ---

type EmailTaskPayload struct {
	To         string                 `json:"to"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"`
	Data       map[string]interface{} `json:"data"`
}

// HandleEmailDeliveryTask renders the template and sends the e-mail.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}

	locale := payload.Locale
	if locale == "" {
		locale = p.cfg.DefaultLocale
	}
	subject, body, err := p.templates.Render(ctx, payload.TemplateID, locale, payload.Data)
	if err != nil {
		p.log.Error("failed to render email template",
			zap.String("template", payload.TemplateID),
			zap.String("locale", locale),
			zap.Error(err))
		return fmt.Errorf("email template %s: %v: %w", payload.TemplateID, err, asynq.SkipRetry)
	}

	msg := email.Message{
		To:         []string{payload.To},
		Subject:    subject,
		TextBody:   body,
		TemplateID: payload.TemplateID,
	}
	if err := p.sender.Send(ctx, msg); err != nil {
		p.log.Warn("email sending failed", zap.String("template", payload.TemplateID), zap.Error(err))
		return err
	}

	p.log.Debug("email task processed", zap.String("template", payload.TemplateID))
	return nil
}

type ImageTaskPayload struct {
	S3Key     string `json:"s3_key"`
	ListingID string `json:"listing_id"`
}

// HandleImageProcessTask normalises an uploaded photo and attaches it to the
// listing. Oversized images are shrunk to fit ImageMaxDimension and re-encoded
// as JPEG in place.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}
	listingID, err := utils.ParseSixID(payload.ListingID)
	if err != nil || listingID.IsZero() {
		return fmt.Errorf("invalid listing ID %q in payload: %w", payload.ListingID, asynq.SkipRetry)
	}
	log := p.log.With(zap.String("key", payload.S3Key), zap.Stringer("listing_id", listingID))

	imgData, contentType, err := p.objects.GetObject(ctx, payload.S3Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			log.Warn("uploaded image not found")
			return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
		}
		return err
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(imgData)) > maxSizeBytes {
		log.Warn("image exceeds max size", zap.Int("bytes", len(imgData)), zap.Int64("max", maxSizeBytes))
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	processed, outType, err := normalizeImage(imgData, contentType, uint(p.cfg.ImageMaxDimension))
	if err != nil {
		log.Warn("image rejected", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if int64(len(processed)) > maxSizeBytes {
		return fmt.Errorf("resized image still exceeds max size: %w", asynq.SkipRetry)
	}

	if len(processed) != len(imgData) || outType != contentType {
		if err := p.objects.PutObject(ctx, payload.S3Key, processed, outType); err != nil {
			return err
		}
	}

	if err := p.listings.AddImageToListing(ctx, listingID, payload.S3Key); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return fmt.Errorf("listing gone: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to update listing with processed image: %w", err)
	}
	log.Info("image processed")
	return nil
}

// normalizeImage decodes data and, when either side exceeds maxDim, returns a
// JPEG thumbnail that fits. Images within bounds are returned unchanged.
func normalizeImage(data []byte, contentType string, maxDim uint) ([]byte, string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("unsupported image format or corrupt image: %w", err)
	}
	b := img.Bounds()
	if maxDim == 0 || (uint(b.Dx()) <= maxDim && uint(b.Dy()) <= maxDim) {
		return data, contentType, nil
	}

	resized := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, "", fmt.Errorf("failed to re-encode resized image: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

type MatchTaskPayload struct {
	RequestID string `json:"request_id"`
}

// HandleMatchGenerateTask runs match generation for a buyer request.
func (p *TaskProcessor) HandleMatchGenerateTask(ctx context.Context, t *asynq.Task) error {
	var payload MatchTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal match task payload: %v: %w", err, asynq.SkipRetry)
	}
	requestID, err := utils.ParseSixID(payload.RequestID)
	if err != nil || requestID.IsZero() {
		return fmt.Errorf("invalid request ID %q in payload: %w", payload.RequestID, asynq.SkipRetry)
	}

	created, err := p.matches.GenerateMatches(ctx, requestID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	p.log.Debug("match task processed", zap.Stringer("request_id", requestID), zap.Int("created", len(created)))
	return nil
}
