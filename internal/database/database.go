// Package database ouvre les connexions vers les services externes : Redis,
// ScyllaDB, Elasticsearch et MinIO.
package database

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/config"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// =============================================
// REDIS
// =============================================

func ConnectRedis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Host,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connexion Redis %s: %w", cfg.Host, err)
	}
	log.Info("connecté à Redis", zap.String("addr", cfg.Host), zap.Int("db", cfg.DB))
	return client, nil
}

// =============================================
// SCYLLA DB
// =============================================

func newScyllaCluster(cfg config.ScyllaConfig, keyspace string) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.NumConns = 4
	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = time.Second
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	return cluster
}

// ConnectScylla crée le keyspace s'il n'existe pas puis ouvre une session dessus.
func ConnectScylla(cfg config.ScyllaConfig, log *zap.Logger) (*gocql.Session, error) {
	bootstrap, err := newScyllaCluster(cfg, "").CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connexion ScyllaDB: %w", err)
	}
	err = bootstrap.Query(fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`,
		cfg.Keyspace,
	)).Exec()
	bootstrap.Close()
	if err != nil {
		return nil, fmt.Errorf("création keyspace %s: %w", cfg.Keyspace, err)
	}

	session, err := newScyllaCluster(cfg, cfg.Keyspace).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("session ScyllaDB %s: %w", cfg.Keyspace, err)
	}
	log.Info("connecté à ScyllaDB", zap.Strings("hosts", cfg.Hosts), zap.String("keyspace", cfg.Keyspace))
	return session, nil
}

// =============================================
// ELASTICSEARCH
// =============================================

func ConnectElastic(cfg config.ElasticConfig, log *zap.Logger) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("client Elasticsearch: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("connexion Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("connexion Elasticsearch: %s", res.Status())
	}

	log.Info("connecté à Elasticsearch", zap.String("url", cfg.URL))
	return client, nil
}

// =============================================
// MINIO
// =============================================

// ConnectMinio vérifie le bucket des images et le crée si besoin.
func ConnectMinio(ctx context.Context, cfg config.MinioConfig, log *zap.Logger) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("client MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("vérification bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("création bucket %s: %w", cfg.Bucket, err)
		}
		log.Info("bucket MinIO créé", zap.String("bucket", cfg.Bucket))
	}

	log.Info("connecté à MinIO", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket))
	return client, nil
}
