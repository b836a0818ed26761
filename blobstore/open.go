package blobstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Open creates a store from a location:
//
//	""                       file store in DefaultDir
//	memory://                in-process map
//	file:///path/dir, /path  file store in a directory
//	sqlite:///path/canvas.db sqlite database (sqlite://:memory: for a private one)
//	redis://host:6379/0      redis server
//	mongodb://host/db        MongoDB, optional ?collection=name
func Open(ctx context.Context, location string) (Store, error) {
	switch {
	case location == "":
		return NewFileStore("")
	case strings.HasPrefix(location, "memory:"):
		return NewMemoryStore(), nil
	case strings.HasPrefix(location, "file://"):
		return NewFileStore(strings.TrimPrefix(location, "file://"))
	case strings.HasPrefix(location, "sqlite://"):
		return NewSQLiteStore(ctx, strings.TrimPrefix(location, "sqlite://"))
	case strings.HasPrefix(location, "redis://"), strings.HasPrefix(location, "rediss://"):
		return NewRedisStore(ctx, RedisConfig{URL: location})
	case strings.HasPrefix(location, "mongodb://"), strings.HasPrefix(location, "mongodb+srv://"):
		cfg, err := parseMongoLocation(location)
		if err != nil {
			return nil, err
		}
		return NewMongoStore(ctx, cfg)
	case strings.Contains(location, "://"):
		return nil, fmt.Errorf("blobstore: unsupported location %q", location)
	default:
		return NewFileStore(location)
	}
}

func parseMongoLocation(location string) (MongoConfig, error) {
	u, err := url.Parse(location)
	if err != nil {
		return MongoConfig{}, fmt.Errorf("blobstore: parse mongo url: %w", err)
	}
	cfg := MongoConfig{
		Database:   strings.Trim(u.Path, "/"),
		Collection: u.Query().Get("collection"),
	}
	q := u.Query()
	q.Del("collection")
	u.RawQuery = q.Encode()
	cfg.URI = u.String()
	return cfg, nil
}
