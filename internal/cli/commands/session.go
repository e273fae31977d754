package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/conduit-lang/serializer/internal/cli/config"
	"github.com/conduit-lang/serializer/internal/cli/ui"
	"github.com/conduit-lang/serializer/internal/schema"
	"github.com/conduit-lang/serializer/pkg/cache"
	"github.com/conduit-lang/serializer/pkg/resource"
	"github.com/conduit-lang/serializer/pkg/serializer"
)

// session holds what a command needs to render: configuration, logger,
// the schema registry and an optional fragment store
type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *resource.Registry
	store    cache.Store
	metrics  *prometheus.Registry
}

// loadConfig reads the --config file or the nearest serializer.yml
func loadConfig(global *globalOptions, stderr io.Writer) (*config.Config, error) {
	path := global.configPath
	if path == "" {
		found, err := config.FindConfigFile()
		if err != nil {
			return nil, err
		}
		path = found
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprint(stderr, ui.ConfigError(err.Error(), global.noColor))
		return nil, reportedError{err}
	}
	return cfg, nil
}

func openSession(ctx context.Context, global *globalOptions, schemaPath string, stderr io.Writer) (*session, error) {
	cfg, err := loadConfig(global, stderr)
	if err != nil {
		return nil, err
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger, metrics: prometheus.NewRegistry()}
	if schemaPath == "" {
		s.registry = resource.NewRegistry()
	} else {
		sch, err := schema.LoadFile(schemaPath)
		if err != nil {
			s.Close()
			return nil, err
		}
		if s.registry, err = sch.Registry(); err != nil {
			s.Close()
			return nil, fmt.Errorf("%s: %w", schemaPath, err)
		}
	}

	if s.store, err = cfg.NewStore(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open fragment store: %w", err)
	}
	return s, nil
}

// serializer builds a serializer over the session registry. The fragment
// cache is attached only when caching is enabled.
func (s *session) serializer() (*serializer.Serializer, error) {
	sc, err := s.cfg.SerializerConfig()
	if err != nil {
		return nil, err
	}

	opts := []serializer.Option{serializer.WithConfig(sc), serializer.WithLogger(s.logger)}
	if fragments := s.cfg.NewFragments(s.store, s.logger, cache.WithMetrics(s.metrics)); fragments != nil {
		opts = append(opts, serializer.WithFragments(fragments))
	}
	return serializer.New(s.registry, opts...)
}

// resourceNames lists the schema resources for suggestions
func (s *session) resourceNames() []string {
	descriptors := s.registry.Descriptors()
	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Name()
	}
	return names
}

// Close releases the store and flushes the logger
func (s *session) Close() {
	if closer, ok := s.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn("failed to close fragment store", zap.Error(err))
		}
	}
	_ = s.logger.Sync()
}
