package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	goredis "github.com/redis/go-redis/v9"

	"github.com/hupe1980/imgdedup"
	"github.com/hupe1980/imgdedup/blobstore"
	minioblob "github.com/hupe1980/imgdedup/blobstore/minio"
	redisblob "github.com/hupe1980/imgdedup/blobstore/redis"
	s3blob "github.com/hupe1980/imgdedup/blobstore/s3"
	"github.com/hupe1980/imgdedup/internal/config"
	"github.com/hupe1980/imgdedup/lock"
	ddblock "github.com/hupe1980/imgdedup/lock/dynamodb"
	redislock "github.com/hupe1980/imgdedup/lock/redis"
	"github.com/hupe1980/imgdedup/persistence"
	"github.com/hupe1980/imgdedup/store"
)

// cmdContext holds the resources shared by commands.
type cmdContext struct {
	Config  *config.Config
	Logger  *imgdedup.Logger
	Store   *store.Store
	Service *imgdedup.Service

	redis   *goredis.Client
	closers []func() error
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.Logger.Warn("close failed", "error", err)
		}
	}
}

// initContext loads the config and wires the store and service. Extra
// service options are appended after the ones derived from the config.
func initContext(ctx context.Context, optFns ...imgdedup.Option) *cmdContext {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitError("%v", err)
	}

	c, err := newContext(ctx, cfg, optFns...)
	if err != nil {
		exitError("%v", err)
	}
	return c
}

func newContext(ctx context.Context, cfg *config.Config, optFns ...imgdedup.Option) (*cmdContext, error) {
	c := &cmdContext{
		Config: cfg,
		Logger: newLogger(cfg.Log),
	}

	blobs, err := c.blobStore(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	locker, err := c.locker(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	ct, err := persistence.ParseCompression(cfg.Storage.Compression)
	if err != nil {
		c.Close()
		return nil, err
	}

	storeOpts := []store.Option{
		store.WithCompression(ct),
		store.WithLogger(c.Logger.Logger),
		store.WithRetry(store.RetryConfig{
			MaxRetries:     cfg.Retry.MaxRetries,
			InitialBackoff: cfg.Retry.InitialBackoff.Duration,
			MaxBackoff:     cfg.Retry.MaxBackoff.Duration,
			JitterFraction: cfg.Retry.Jitter,
		}),
	}
	if locker != nil {
		storeOpts = append(storeOpts, store.WithLocker(locker))
	}
	c.Store = store.New(blobs, storeOpts...)

	svcOpts := []imgdedup.Option{
		imgdedup.WithLogger(c.Logger),
		imgdedup.WithDefaultHashSize(cfg.Defaults.HashSize),
		imgdedup.WithDefaultCollection(cfg.Defaults.Collection),
	}
	if cfg.Defaults.MaxParallel > 0 {
		svcOpts = append(svcOpts, imgdedup.WithMaxParallel(cfg.Defaults.MaxParallel))
	}
	c.Service = imgdedup.New(c.Store, append(svcOpts, optFns...)...)

	return c, nil
}

func newLogger(cfg config.Log) *imgdedup.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	if cfg.Format == "json" {
		return imgdedup.NewJSONLogger(level)
	}
	return imgdedup.NewTextLogger(level)
}

func (c *cmdContext) blobStore(ctx context.Context) (blobstore.BlobStore, error) {
	st := c.Config.Storage

	switch st.Backend {
	case "local":
		if err := os.MkdirAll(st.Root, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage root: %w", err)
		}
		ls, err := blobstore.NewLocalStore(st.Root)
		if err != nil {
			return nil, err
		}
		return ls, nil
	case "memory":
		return blobstore.NewMemoryStore(), nil
	case "s3":
		awsCfg, err := c.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if st.Endpoint != "" {
				o.BaseEndpoint = aws.String(st.Endpoint)
				o.UsePathStyle = true
			}
		})
		return s3blob.NewStore(client, st.Bucket, st.Prefix), nil
	case "minio":
		client, err := minio.New(st.Endpoint, &minio.Options{
			Creds:  miniocreds.NewStaticV4(st.AccessKey, st.SecretKey, ""),
			Secure: st.UseSSL,
			Region: st.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		return minioblob.NewStore(client, st.Bucket, st.Prefix), nil
	case "redis":
		prefix := st.Prefix
		if prefix == "" {
			prefix = redisblob.DefaultPrefix
		}
		return redisblob.NewStore(c.redisClient(), prefix), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", st.Backend)
	}
}

// locker returns the cross-process locker, or nil when in-process locks
// suffice. The auto backend takes file locks next to local storage.
func (c *cmdContext) locker(ctx context.Context) (lock.Locker, error) {
	lc := c.Config.Lock

	switch lc.Backend {
	case "local":
		return nil, nil
	case "auto":
		if c.Config.Storage.Backend != "local" || !lock.FileLocksSupported() {
			if c.Config.Storage.Backend != "memory" {
				c.Logger.Warn("no cross-process lock configured; concurrent writers may lose updates",
					"storage", c.Config.Storage.Backend)
			}
			return nil, nil
		}
		fallthrough
	case "file":
		l, err := lock.NewFileLocker(c.Config.LockDir())
		if err != nil {
			return nil, fmt.Errorf("failed to create file locker: %w", err)
		}
		return l, nil
	case "redis":
		return redislock.New(c.redisClient(), redislock.WithTTL(lc.TTL.Duration)), nil
	case "dynamodb":
		awsCfg, err := c.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		return ddblock.New(dynamodb.NewFromConfig(awsCfg), lc.Table, ddblock.WithTTL(lc.TTL.Duration)), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", lc.Backend)
	}
}

// redisClient returns the client shared by the redis store and locker.
func (c *cmdContext) redisClient() *goredis.Client {
	if c.redis == nil {
		c.redis = goredis.NewClient(&goredis.Options{
			Addr: c.Config.Storage.RedisAddr,
			DB:   c.Config.Storage.RedisDB,
		})
		c.closers = append(c.closers, c.redis.Close)
	}
	return c.redis
}

func (c *cmdContext) awsConfig(ctx context.Context) (aws.Config, error) {
	st := c.Config.Storage

	var optFns []func(*awsconfig.LoadOptions) error
	if st.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(st.Region))
	}
	if st.AccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(st.AccessKey, st.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}
