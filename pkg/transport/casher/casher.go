// Package casher provides Redis-based fallback storage for unsynced
// editor drafts. Drafts are written on every builder mutation and read
// only on manual recovery, never rehydrated automatically.
package casher

import (
	"context"
	"fmt"

	"github.com/formloom/formloom/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DRAFT_KEY_TEMPLATE namespaces draft keys per form id.
const DRAFT_KEY_TEMPLATE = "form-draft-%s"

// Casher handles draft caching operations using Redis as the backend.
type Casher struct {
	client *redis.Client
	logger *logger.Logger
}

// Init creates a new Casher instance with the provided Redis client.
func Init(client *redis.Client, logger *logger.Logger) *Casher {
	return &Casher{
		client: client,
		logger: logger,
	}
}

func (c *Casher) Close() error {
	return c.client.Close()
}

func (c *Casher) IsHealthy() bool {
	return c.client.Ping(context.Background()).Err() == nil
}

// PutDraft stores the serialized builder snapshot for one form. Drafts
// have no expiry; they live until the form is deleted.
func (c *Casher) PutDraft(ctx context.Context, formID string, payload []byte) error {
	res := c.client.Set(ctx, fmt.Sprintf(DRAFT_KEY_TEMPLATE, formID), payload, 0)

	if err := res.Err(); err != nil {
		c.logger.Error("failed to cache draft",
			zap.String("form_id", formID),
			zap.Error(err),
		)
		return err
	}

	return nil
}

// GetDraft retrieves the stored draft for one form.
func (c *Casher) GetDraft(ctx context.Context, formID string) ([]byte, error) {
	res := c.client.Get(ctx, fmt.Sprintf(DRAFT_KEY_TEMPLATE, formID))
	if err := res.Err(); err != nil {
		c.logger.Error("error get draft",
			zap.String("form_id", formID),
			zap.Error(err),
		)
		return nil, err
	}

	data, err := res.Bytes()
	if err != nil {
		c.logger.Error("error get draft bytes",
			zap.String("form_id", formID),
			zap.Error(err),
		)
		return nil, err
	}

	return data, nil
}

// RemoveDraft drops the draft, used when the owning form is deleted.
func (c *Casher) RemoveDraft(ctx context.Context, formID string) error {
	res := c.client.Del(ctx, fmt.Sprintf(DRAFT_KEY_TEMPLATE, formID))

	if err := res.Err(); err != nil {
		c.logger.Error("error delete draft",
			zap.String("form_id", formID),
			zap.Error(err))
		return err
	}

	return nil
}
