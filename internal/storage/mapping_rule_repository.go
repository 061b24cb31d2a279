package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"media_gateway/internal/models"
)

// InvalidationChannel is the Redis pub/sub channel the configuration CRUD
// layer publishes to whenever an operator edits providers or mapping rules.
const InvalidationChannel = "media_gateway:config:invalidate"

// MappingRuleRepository handles mapping rule database operations
type MappingRuleRepository struct {
	db *DB
}

// NewMappingRuleRepository creates a new mapping rule repository
func NewMappingRuleRepository(db *DB) *MappingRuleRepository {
	return &MappingRuleRepository{db: db}
}

// ListForProvider returns every mapping rule scoped to the provider,
// provider-wide and model-specific alike. Results are cached per provider.
func (r *MappingRuleRepository) ListForProvider(ctx context.Context, providerID uuid.UUID) ([]models.MappingRule, error) {
	cacheKey := "rules:" + providerID.String()
	if cached, found := r.db.ruleCache.Get(cacheKey); found {
		return cached.([]models.MappingRule), nil
	}

	query := `
		SELECT id, provider_id, model_name, kind, source_field, target_field,
		       fixed_value, value_type, created_at, updated_at
		FROM mapping_rules
		WHERE provider_id = $1
		ORDER BY model_name, created_at
	`

	var rules []models.MappingRule
	if err := r.db.conn.SelectContext(ctx, &rules, query, providerID); err != nil {
		return nil, fmt.Errorf("failed to list mapping rules: %w", err)
	}

	r.db.ruleCache.Set(cacheKey, rules)
	return rules, nil
}

// StartInvalidationListener subscribes to the config invalidation channel
// and drops the provider and rule caches whenever a message arrives. It
// returns after the subscription is established and listens until the
// context is cancelled.
func StartInvalidationListener(ctx context.Context, db *DB, client *redis.Client, logger zerolog.Logger) error {
	sub := client.Subscribe(ctx, InvalidationChannel)
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", InvalidationChannel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				db.InvalidateConfigCaches()
				logger.Debug().Str("payload", msg.Payload).Msg("config caches invalidated")
			}
		}
	}()

	return nil
}
