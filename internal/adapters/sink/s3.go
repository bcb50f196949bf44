package sink

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/alejandrodnm/arbscan/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configura el espejo de snapshots en un bucket S3 (o compatible:
// MinIO, R2, iDrive e2 vía Endpoint + ForcePathStyle).
type S3Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	Prefix         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
	// KeepHistory además sube una copia por ciclo bajo {prefix}/history/AAAA/MM/DD/.
	KeepHistory bool
}

// s3PutAPI es el subconjunto del cliente S3 que usa el espejo.
type s3PutAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror sube cada snapshot a {prefix}/latest.json.
type S3Mirror struct {
	client      s3PutAPI
	bucket      string
	prefix      string
	keepHistory bool
}

// NewS3Mirror crea el cliente S3 con credenciales estáticas si se dieron;
// si no, usa la cadena de credenciales por defecto de AWS.
func NewS3Mirror(ctx context.Context, cfg S3Config) (*S3Mirror, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("sink.NewS3Mirror: bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("sink.NewS3Mirror: region is required")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("sink.NewS3Mirror: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(normaliseEndpoint(cfg.Endpoint))
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return newS3Mirror(client, cfg), nil
}

func newS3Mirror(client s3PutAPI, cfg S3Config) *S3Mirror {
	return &S3Mirror{
		client:      client,
		bucket:      cfg.Bucket,
		prefix:      strings.Trim(cfg.Prefix, "/"),
		keepHistory: cfg.KeepHistory,
	}
}

// PersistSnapshot implementa ports.SnapshotSink.
func (m *S3Mirror) PersistSnapshot(ctx context.Context, snap domain.AnalysisSnapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("sink.S3Mirror: %w", err)
	}

	keys := []string{m.latestKey()}
	if m.keepHistory {
		keys = append(keys, m.historyKey(snap))
	}

	for _, key := range keys {
		if _, err := m.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(m.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		}); err != nil {
			return fmt.Errorf("sink.S3Mirror: put object %s: %w", key, err)
		}
	}
	return nil
}

func (m *S3Mirror) latestKey() string {
	return path.Join(m.prefix, "latest.json")
}

// historyKey: {prefix}/history/2026/01/01/<cycleID>.json
func (m *S3Mirror) historyKey(snap domain.AnalysisSnapshot) string {
	day := "unknown"
	if t, err := domain.ParseTimestamp(snap.Metadata.AnalysisTime); err == nil {
		day = t.Format("2006/01/02")
	}
	name := snap.Metadata.CycleID
	if name == "" {
		name = strings.NewReplacer(":", "", ".", "").Replace(snap.Metadata.AnalysisTime)
	}
	return path.Join(m.prefix, "history", day, name+".json")
}

// normaliseEndpoint agrega https:// si el endpoint no trae esquema.
// "host:port" no cuenta como esquema aunque url.Parse lo lea así.
func normaliseEndpoint(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "https://" + endpoint
}
