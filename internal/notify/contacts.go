package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisContactResolver reads the contact hash maintained by the user
// service. An unknown user resolves to an empty Contact, which makes the
// dispatcher skip the email/SMS channels rather than fail them.
type RedisContactResolver struct {
	client *redis.Client
}

func NewRedisContactResolver(client *redis.Client) *RedisContactResolver {
	return &RedisContactResolver{client: client}
}

func (r *RedisContactResolver) Resolve(ctx context.Context, tenantID, userID string) (Contact, error) {
	key := fmt.Sprintf("contact:%s:%s", tenantID, userID)
	values, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return Contact{}, fmt.Errorf("resolve contact %s: %w", key, err)
	}

	return Contact{
		Email: values["email"],
		Phone: values["phone"],
	}, nil
}
