package repository

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// negativeEntry caches registry misses so a chatty unmapped device does not
// hammer the store.
const negativeEntry = "-"

// CachedRegistry is a read-through Redis cache in front of the sub-device
// registry. Sub-device lookups run once per hub data message, which makes
// them the hot path of the resolver. The registry is read-only to this
// service, so TTL expiry is the only invalidation.
type CachedRegistry struct {
	inner  *RegistryRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedRegistry wraps a registry repository with a Redis cache.
func NewCachedRegistry(inner *RegistryRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedRegistry {
	return &CachedRegistry{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// FindPatientBySubDevice resolves through the cache. Cache failures degrade
// to a direct registry read.
func (c *CachedRegistry) FindPatientBySubDevice(ctx context.Context, macField, bleAddr string) (primitive.ObjectID, bool, error) {
	key := "registry:sub:" + macField + ":" + bleAddr

	if cached, err := c.client.Get(ctx, key).Result(); err == nil {
		if cached == negativeEntry {
			return primitive.NilObjectID, false, nil
		}
		if oid, err := primitive.ObjectIDFromHex(cached); err == nil {
			return oid, true, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Registry cache read failed", zap.String("key", key), zap.Error(err))
	}

	patientID, found, err := c.inner.FindPatientBySubDevice(ctx, macField, bleAddr)
	if err != nil {
		return primitive.NilObjectID, false, err
	}

	value := negativeEntry
	if found {
		value = patientID.Hex()
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warn("Registry cache write failed", zap.String("key", key), zap.Error(err))
	}

	return patientID, found, nil
}

// FindPatientByWatchIMEI resolves through the cache.
func (c *CachedRegistry) FindPatientByWatchIMEI(ctx context.Context, imei string) (primitive.ObjectID, bool, error) {
	key := "registry:watch:" + imei

	if cached, err := c.client.Get(ctx, key).Result(); err == nil {
		if cached == negativeEntry {
			return primitive.NilObjectID, false, nil
		}
		if oid, err := primitive.ObjectIDFromHex(cached); err == nil {
			return oid, true, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Registry cache read failed", zap.String("key", key), zap.Error(err))
	}

	patientID, found, err := c.inner.FindPatientByWatchIMEI(ctx, imei)
	if err != nil {
		return primitive.NilObjectID, false, err
	}

	value := negativeEntry
	if found {
		value = patientID.Hex()
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warn("Registry cache write failed", zap.String("key", key), zap.Error(err))
	}

	return patientID, found, nil
}
