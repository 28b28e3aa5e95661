package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"schema-manager/core/schema"
	"schema-manager/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a named snapshot does not exist in the bucket.
var ErrNotFound = errors.New("snapshot not found")

// volatileKeys are remote-managed collection keys dropped from a dump.
var volatileKeys = []string{"created", "updated"}

// Lister returns every collection of the remote.
type Lister interface {
	ListCollections(ctx context.Context) ([]schema.Collection, error)
}

// Info describes one stored snapshot.
type Info struct {
	Name         string    `json:"name"`
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Name returns the default snapshot name for t.
func Name(t time.Time) string {
	return "schema_" + t.UTC().Format("20060102_150405")
}

// Dump reads the remote schema and returns it in definition form with webhook secrets
// redacted. System collections (names starting with "_") are skipped unless includeSystem.
func Dump(ctx context.Context, lister Lister, includeSystem bool) (schema.Definition, error) {
	all, err := lister.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read remote schema: %w", err)
	}

	def := make(schema.Definition, 0, len(all))
	for _, c := range all {
		if !includeSystem && strings.HasPrefix(c.Name, "_") {
			continue
		}
		def = append(def, Clean(c).Redacted())
	}
	return def, nil
}

// Clean strips remote-assigned identifiers and timestamps so the collection can be
// declared in a definition file.
func Clean(c schema.Collection) schema.Collection {
	out := c
	out.ID = ""

	if len(c.Extra) > 0 {
		out.Extra = make(map[string]json.RawMessage, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
		for _, k := range volatileKeys {
			delete(out.Extra, k)
		}
		if len(out.Extra) == 0 {
			out.Extra = nil
		}
	}

	out.Fields = make([]schema.Field, len(c.Fields))
	for i, f := range c.Fields {
		f = f.Clone()
		f.ID = ""
		out.Fields[i] = f
	}
	return out
}

// Encode renders a definition as indented JSON.
func Encode(def schema.Definition) ([]byte, error) {
	if def == nil {
		def = schema.Definition{}
	}
	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteFile writes def to path, creating parent directories as needed.
func WriteFile(path string, def schema.Definition) error {
	data, err := Encode(def)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Store keeps snapshots in an object storage bucket under a key prefix.
type Store struct {
	client storage.Client
	bucket string
	region string
	prefix string
	logger *zap.Logger
}

// NewStore creates a snapshot store on client.
func NewStore(client storage.Client, cfg storage.Config, prefix string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name+".json")
}

func (s *Store) listPrefix() string {
	if s.prefix == "" {
		return ""
	}
	return s.prefix + "/"
}

// Upload stores def under name and returns the object key.
func (s *Store) Upload(ctx context.Context, name string, def schema.Definition) (string, error) {
	if name == "" {
		return "", errors.New("snapshot name is required")
	}
	data, err := Encode(def)
	if err != nil {
		return "", err
	}
	if err := storage.EnsureBucket(ctx, s.client, s.bucket, s.region); err != nil {
		return "", err
	}

	key := s.key(name)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot %s: %w", key, err)
	}

	s.logger.Info("Snapshot uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("collections", len(def)),
	)
	return key, nil
}

// List returns the stored snapshots, newest first.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	prefix := s.listPrefix()
	var infos []Info
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list snapshots: %w", obj.Err)
		}
		rel := strings.TrimPrefix(obj.Key, prefix)
		if !strings.HasSuffix(rel, ".json") || strings.Contains(rel, "/") {
			continue
		}
		infos = append(infos, Info{
			Name:         strings.TrimSuffix(rel, ".json"),
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if !infos[i].LastModified.Equal(infos[j].LastModified) {
			return infos[i].LastModified.After(infos[j].LastModified)
		}
		return infos[i].Name > infos[j].Name
	})
	return infos, nil
}

// Load downloads and parses the snapshot called name.
func (s *Store) Load(ctx context.Context, name string) (schema.Definition, error) {
	key := s.key(name)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}
	return schema.ParseDefinition(data)
}

// Prune removes all but the newest keep snapshots and returns the removed names.
func (s *Store) Prune(ctx context.Context, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	infos, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(infos) <= keep {
		return nil, nil
	}

	var removed []string
	for _, info := range infos[keep:] {
		if err := s.client.RemoveObject(ctx, s.bucket, info.Key, minio.RemoveObjectOptions{}); err != nil {
			return removed, fmt.Errorf("failed to remove snapshot %s: %w", info.Key, err)
		}
		removed = append(removed, info.Name)
	}
	s.logger.Info("Snapshots pruned", zap.Int("removed", len(removed)), zap.Int("kept", keep))
	return removed, nil
}
