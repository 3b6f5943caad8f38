package main

import (
	"context"
	"fmt"

	"github.com/hupe1980/stitchgo"
	"github.com/hupe1980/stitchgo/blobstore"
	"github.com/hupe1980/stitchgo/blobstore/minio"
	"github.com/hupe1980/stitchgo/blobstore/s3"
	"github.com/hupe1980/stitchgo/config"
	"github.com/hupe1980/stitchgo/ledger"
	"github.com/hupe1980/stitchgo/notify"
)

func openStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	sc := cfg.Store
	switch sc.Backend {
	case "memory":
		return blobstore.NewMemoryStore(), nil
	case "local":
		return blobstore.NewLocalStore(sc.Path), nil
	case "s3":
		opts := []s3.Option{s3.WithPrefix(sc.Prefix)}
		if sc.Region != "" {
			opts = append(opts, s3.WithRegion(sc.Region))
		}
		if sc.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(sc.Endpoint))
		}
		return s3.New(ctx, sc.Bucket, opts...)
	case "minio":
		store, err := minio.Dial(sc.Endpoint, sc.AccessKey, sc.SecretKey, sc.Secure, sc.Bucket, sc.Prefix)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}

func openLedger(ctx context.Context, cfg *config.Config) (ledger.Ledger, error) {
	switch cfg.Ledger.Backend {
	case "memory":
		return ledger.NewMemoryLedger(), nil
	case "dynamo":
		return ledger.DialDynamo(ctx, cfg.Ledger.Table, cfg.Ledger.Region)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

func openNotifier(cfg *config.Config, logger *stitchgo.Logger) (notify.Notifier, func(), error) {
	if cfg.MQTT.Broker == "" {
		return notify.Noop{}, func() {}, nil
	}

	n, client, err := notify.DialMQTT(notify.MQTTConfig{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Topic:    cfg.MQTT.Topic,
		QoS:      cfg.MQTT.QoS,
	}, logger.Logger)
	if err != nil {
		return nil, nil, err
	}
	return n, func() { client.Disconnect(250) }, nil
}
