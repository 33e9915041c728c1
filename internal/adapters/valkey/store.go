package valkey

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/core/ports"
)

const (
	keyPoints  = "footpath:points"
	keyEntries = "footpath:distance_cache"
)

// Store implements ports.SnapshotStore on Valkey (Redis-compatible).
// Points are one JSON string; the distance cache is a hash of key -> entry.
type Store struct {
	client valkey.Client
}

// New creates a new Valkey store client.
func New(addr string) (*Store, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:  []string{addr},
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Store{client: client}, nil
}

// LoadPoints reads the points snapshot.
func (s *Store) LoadPoints(ctx context.Context) ([]domain.Point, error) {
	b, err := s.client.Do(ctx, s.client.B().Get().Key(keyPoints).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, ports.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}

	var points []domain.Point
	if err := json.Unmarshal(b, &points); err != nil {
		return nil, fmt.Errorf("decode %s: %w", keyPoints, err)
	}
	return points, nil
}

// SavePoints replaces the points snapshot.
func (s *Store) SavePoints(ctx context.Context, points []domain.Point) error {
	if points == nil {
		points = []domain.Point{}
	}
	data, err := json.Marshal(points)
	if err != nil {
		return err
	}
	return s.client.Do(ctx, s.client.B().Set().Key(keyPoints).Value(string(data)).Build()).Error()
}

// LoadEntries reads the whole distance cache. A missing hash is an empty
// cache: Valkey does not keep empty hashes.
func (s *Store) LoadEntries(ctx context.Context) (map[string]domain.DistanceEntry, error) {
	raw, err := s.client.Do(ctx, s.client.B().Hgetall().Key(keyEntries).Build()).AsStrMap()
	if err != nil {
		return nil, err
	}

	entries := make(map[string]domain.DistanceEntry, len(raw))
	for k, v := range raw {
		var e domain.DistanceEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("decode %s[%s]: %w", keyEntries, k, err)
		}
		entries[k] = e
	}
	return entries, nil
}

// SaveEntries replaces the distance cache atomically (MULTI/DEL/HSET/EXEC).
func (s *Store) SaveEntries(ctx context.Context, entries map[string]domain.DistanceEntry) error {
	cmds := valkey.Commands{
		s.client.B().Multi().Build(),
		s.client.B().Del().Key(keyEntries).Build(),
	}

	if len(entries) > 0 {
		fv := s.client.B().Hset().Key(keyEntries).FieldValue()
		for k, e := range entries {
			data, err := json.Marshal(e)
			if err != nil {
				return err
			}
			fv = fv.FieldValue(k, string(data))
		}
		cmds = append(cmds, fv.Build())
	}
	cmds = append(cmds, s.client.B().Exec().Build())

	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return err
		}
	}
	return nil
}

// Ping reports whether Valkey is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (s *Store) Close() error {
	s.client.Close()
	return nil
}
