package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/twofa/entity"
)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	URL    string
	Prefix string
}

// Redis keeps each user in a hash and maintains two secondary indexes:
//
//	{prefix}user:{id}      hash of the user fields
//	{prefix}email:{email}  user id, claimed with SETNX
//	{prefix}name:{name}    sorted set of user ids scored by creation time
type Redis struct {
	client *redis.Client
	prefix string
	tracing
}

// NewRedis parses the URL, connects and pings.
func NewRedis(ctx context.Context, cfg RedisConfig, ins instrument.Instrumentation) (*Redis, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "otpgate:"
	}

	return &Redis{client: client, prefix: prefix, tracing: tracing{ins: ins, backend: "redis"}}, nil
}

func (r *Redis) userKey(id string) string      { return r.prefix + "user:" + id }
func (r *Redis) emailKey(email string) string { return r.prefix + "email:" + email }
func (r *Redis) nameKey(name string) string    { return r.prefix + "name:" + name }

func (r *Redis) mapError(err error) error {
	if errors.Is(err, redis.Nil) {
		return goerror.ErrNotFound
	}
	return err
}

func (r *Redis) load(ctx context.Context, id string) (*entity.User, error) {
	fields, err := r.client.HGetAll(ctx, r.userKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, goerror.ErrNotFound
	}

	return decodeRedisUser(fields)
}

func decodeRedisUser(fields map[string]string) (*entity.User, error) {
	u := &entity.User{
		ID:           fields["id"],
		Email:        fields["email"],
		Name:         fields["name"],
		PasswordHash: fields["password"],
		OTPEnabled:   fields["otp_enabled"] == "1",
		OTPVerified:  fields["otp_verified"] == "1",
	}
	if v, ok := fields["otp_base32"]; ok {
		u.OTPSecret = &v
	}
	if v, ok := fields["otp_auth_url"]; ok {
		u.OTPAuthURL = &v
	}

	var err error
	if u.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	if u.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("decode updated_at: %w", err)
	}

	return u, nil
}

func redisBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (r *Redis) FindByCustomField(ctx context.Context, field entity.Field, value string) (u *entity.User, err error) {
	ctx, span := r.start(ctx, "FindByCustomField")
	defer func() { r.end(span, err) }()

	var id string
	switch field {
	case entity.FieldID:
		id = value
	case entity.FieldEmail:
		id, err = r.client.Get(ctx, r.emailKey(entity.NormalizeEmail(value))).Result()
	case entity.FieldName:
		var ids []string
		ids, err = r.client.ZRange(ctx, r.nameKey(value), 0, 0).Result()
		if err == nil && len(ids) == 0 {
			err = goerror.ErrNotFound
		}
		if err == nil {
			id = ids[0]
		}
	default:
		return nil, ErrUnsupportedField
	}
	if err != nil {
		return nil, r.mapError(err)
	}

	u, err = r.load(ctx, id)
	return u, r.mapError(err)
}

func (r *Redis) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.FindByCustomField(ctx, entity.FieldEmail, email)
}

func (r *Redis) RegisterByEmail(ctx context.Context, reg entity.Registration) (err error) {
	ctx, span := r.start(ctx, "RegisterByEmail")
	defer func() { r.end(span, err) }()

	email := entity.NormalizeEmail(reg.Email)

	claimed, err := r.client.SetNX(ctx, r.emailKey(email), reg.ID, 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return goerror.ErrConflict
	}

	created := reg.CreatedAt.UTC()
	written, err := r.client.HSetNX(ctx, r.userKey(reg.ID), "id", reg.ID).Result()
	if err == nil && !written {
		err = goerror.ErrConflict
	}
	if err == nil {
		_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, r.userKey(reg.ID),
				"email", email,
				"name", reg.Name,
				"password", reg.PasswordHash,
				"otp_enabled", redisBool(false),
				"otp_verified", redisBool(false),
				"created_at", created.Format(time.RFC3339Nano),
				"updated_at", created.Format(time.RFC3339Nano),
			)
			pipe.ZAdd(ctx, r.nameKey(reg.Name), redis.Z{Score: float64(created.UnixNano()), Member: reg.ID})
			return nil
		})
	}
	if err != nil {
		// release the email claim, and the partial hash when this call created it
		keys := []string{r.emailKey(email)}
		if written {
			keys = append(keys, r.userKey(reg.ID))
		}
		if delErr := r.client.Del(context.WithoutCancel(ctx), keys...).Err(); delErr != nil {
			err = errors.Join(err, delErr)
		}
		return err
	}

	return nil
}

func (r *Redis) UpdateOTP(ctx context.Context, id string, otp entity.OTP, updatedAt time.Time) (u *entity.User, err error) {
	ctx, span := r.start(ctx, "UpdateOTP")
	defer func() { r.end(span, err) }()

	if err = otp.Validate(); err != nil {
		return nil, err
	}

	key := r.userKey(id)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return goerror.ErrNotFound
		}
		current, err := decodeRedisUser(fields)
		if err != nil {
			return err
		}
		u = current.Apply(otp, updatedAt.UTC())

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"otp_enabled", redisBool(u.OTPEnabled),
				"otp_verified", redisBool(u.OTPVerified),
				"updated_at", u.UpdatedAt.Format(time.RFC3339Nano),
			)
			if u.OTPSecret != nil {
				pipe.HSet(ctx, key, "otp_base32", *u.OTPSecret, "otp_auth_url", *u.OTPAuthURL)
			} else {
				pipe.HDel(ctx, key, "otp_base32", "otp_auth_url")
			}
			return nil
		})
		return err
	}, key)
	if err != nil {
		return nil, r.mapError(err)
	}

	return u, nil
}

func (r *Redis) Ping(ctx context.Context) (err error) {
	ctx, span := r.start(ctx, "Ping")
	defer func() { r.end(span, err) }()

	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close(context.Context) error {
	return r.client.Close()
}
