package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisIndexKey     = "screenshots"
	redisRecordPrefix = "screenshot:"
)

// RedisDatabase stores every screenshot as a hash and keeps the ids in a set.
type RedisDatabase struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisDatabase(connectionString string) (*RedisDatabase, error) {
	options, err := redis.ParseURL(connectionString)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return newRedisDatabase(redis.NewClient(options)), nil
}

func newRedisDatabase(client *redis.Client) *RedisDatabase {
	return &RedisDatabase{client: client, now: time.Now}
}

// CreateDatabase only verifies connectivity; Redis needs no schema.
func (r *RedisDatabase) CreateDatabase(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisDatabase) DoesDatabaseExist(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}

func (r *RedisDatabase) Close() error {
	return r.client.Close()
}

func (r *RedisDatabase) ListScreenshots(ctx context.Context) ([]*Screenshot, error) {
	ids, err := r.client.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list screenshot ids: %w", err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, recordKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load screenshots: %w", err)
	}

	screenshots := make([]*Screenshot, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// deleted between SMEMBERS and HGETALL
			continue
		}
		screenshot, err := decodeRedisScreenshot(ids[i], fields)
		if err != nil {
			return nil, err
		}
		screenshots = append(screenshots, screenshot)
	}
	sortScreenshots(screenshots)
	return screenshots, nil
}

func (r *RedisDatabase) GetScreenshotByID(ctx context.Context, id string) (*Screenshot, error) {
	fields, err := r.client.HGetAll(ctx, recordKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get screenshot %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return decodeRedisScreenshot(id, fields)
}

func (r *RedisDatabase) CreateScreenshot(ctx context.Context, fields *NewScreenshot) (*Screenshot, error) {
	screenshot, err := newScreenshot(fields, r.now())
	if err != nil {
		return nil, err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, recordKey(screenshot.ID), encodeRedisScreenshot(screenshot))
		pipe.SAdd(ctx, redisIndexKey, screenshot.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("insert screenshot: %w", err)
	}
	return screenshot, nil
}

func (r *RedisDatabase) UpdateScreenshot(ctx context.Context, id string, update ScreenshotUpdate) (*Screenshot, error) {
	key := recordKey(id)
	var updated *Screenshot

	// WATCH guards against resurrecting a record deleted between read and write.
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return ErrNotFound
		}
		screenshot, err := decodeRedisScreenshot(id, fields)
		if err != nil {
			return err
		}
		update.apply(screenshot, r.now())

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, encodeRedisScreenshot(screenshot))
			return nil
		})
		if err != nil {
			return err
		}
		updated = screenshot
		return nil
	}, key)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update screenshot %s: %w", id, err)
	}
	return updated, nil
}

func (r *RedisDatabase) DeleteScreenshot(ctx context.Context, id string) error {
	var deleted *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, recordKey(id))
		pipe.SRem(ctx, redisIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete screenshot %s: %w", id, err)
	}
	if deleted.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func recordKey(id string) string {
	return redisRecordPrefix + id
}

func encodeRedisScreenshot(s *Screenshot) map[string]any {
	return map[string]any{
		"title":       s.Title,
		"description": s.Description,
		"position":    s.Position,
		"image_data":  s.ImageData,
		"mime_type":   s.MimeType,
		"file_name":   s.FileName,
		"created_at":  s.CreatedAt.UnixNano(),
		"updated_at":  s.UpdatedAt.UnixNano(),
	}
}

func decodeRedisScreenshot(id string, fields map[string]string) (*Screenshot, error) {
	position, err := strconv.Atoi(fields["position"])
	if err != nil {
		return nil, fmt.Errorf("screenshot %s has invalid position %q: %w", id, fields["position"], err)
	}
	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("screenshot %s has invalid created_at: %w", id, err)
	}
	updatedAt, err := strconv.ParseInt(fields["updated_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("screenshot %s has invalid updated_at: %w", id, err)
	}

	return &Screenshot{
		ID:          id,
		Title:       fields["title"],
		Description: fields["description"],
		Position:    position,
		ImageData:   []byte(fields["image_data"]),
		MimeType:    fields["mime_type"],
		FileName:    fields["file_name"],
		CreatedAt:   time.Unix(0, createdAt),
		UpdatedAt:   time.Unix(0, updatedAt),
	}, nil
}
