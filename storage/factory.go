package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lawweapons/bevisdrive/config"
	"github.com/lawweapons/bevisdrive/logger"
	"github.com/mitchellh/mapstructure"
)

// New builds the blob store selected by cfg.Storage.Type. Backend options
// come from the free-form options map.
func New(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	switch cfg.Storage.Type {
	case "local":
		return newLocalFromOptions(cfg.Storage.Options, cfg.Server.PublicBaseURL, cfg.JWT.Secret)
	case "s3":
		return newS3FromOptions(ctx, cfg.Storage.Options)
	default:
		return nil, fmt.Errorf("unknown storage type: %q", cfg.Storage.Type)
	}
}

func newLocalFromOptions(options map[string]any, publicBaseURL string, fallbackSecret string) (*LocalStore, error) {
	type localOptions struct {
		Path          string `mapstructure:"path"`
		Bucket        string `mapstructure:"bucket"`
		SigningSecret string `mapstructure:"signing_secret"`
	}

	var opts localOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("decode local storage options: %w", err)
	}
	if opts.Path == "" {
		opts.Path = "./data/blobs"
	}
	if opts.SigningSecret == "" {
		opts.SigningSecret = fallbackSecret
	}

	store, err := NewLocalStore(LocalStoreConfig{
		BasePath:      opts.Path,
		Bucket:        opts.Bucket,
		PublicBaseURL: publicBaseURL,
		SigningSecret: opts.SigningSecret,
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("local blob store initialized: path=%s bucket=%s", store.basePath, store.bucket)
	return store, nil
}

func newS3FromOptions(ctx context.Context, options map[string]any) (*S3Store, error) {
	type s3Options struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var opts s3Options
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("decode s3 storage options: %w", err)
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}
	if opts.Region == "" {
		return nil, fmt.Errorf("s3 storage: region is required")
	}

	loadOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	if opts.MaxRetries > 0 {
		loadOptions = append(loadOptions, awsConfig.WithRetryMaxAttempts(opts.MaxRetries))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// MinIO and other S3-compatible endpoints need path-style addressing.
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	store, err := NewS3Store(ctx, S3StoreConfig{
		Client:    client,
		Bucket:    opts.Bucket,
		KeyPrefix: opts.KeyPrefix,
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("s3 blob store initialized: bucket=%s region=%s prefix=%s", opts.Bucket, opts.Region, opts.KeyPrefix)
	return store, nil
}
