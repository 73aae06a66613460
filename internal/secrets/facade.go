// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/keystash/internal/log"
)

// ErrWatchUnsupported is returned by Watch when the selected backend cannot
// report changes.
var ErrWatchUnsupported = errors.New("backend does not support watching secrets")

const tracerName = "github.com/tombee/keystash/internal/secrets"

// Facade is the entry point for callers. It validates ids, routes every
// operation to the backend chosen by its Selector and records a log line,
// metrics and a span per operation. Payload bytes never reach any of them.
type Facade struct {
	selector *Selector
	logger   *slog.Logger
	tracer   trace.Tracer
}

// FacadeOption configures a Facade.
type FacadeOption func(*Facade)

// WithLogger sets the facade logger.
func WithLogger(logger *slog.Logger) FacadeOption {
	return func(f *Facade) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithTracerProvider sets the provider used for operation spans.
// Defaults to the global otel provider.
func WithTracerProvider(tp trace.TracerProvider) FacadeOption {
	return func(f *Facade) {
		if tp != nil {
			f.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewFacade creates a facade over selector.
func NewFacade(selector *Selector, opts ...FacadeOption) *Facade {
	f := &Facade{
		selector: selector,
		logger:   log.Discard(),
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = log.WithComponent(f.logger, "secrets")
	return f
}

// Name returns the selected backend name, or "none".
func (f *Facade) Name() string {
	s, err := f.selector.Select()
	if err != nil {
		return "none"
	}
	return s.Name()
}

// Available reports whether any backend could be selected.
func (f *Facade) Available() bool {
	_, err := f.selector.Select()
	return err == nil
}

// Backend returns the selected backend.
func (f *Facade) Backend() (Store, error) {
	return f.selector.Select()
}

// Selector returns the underlying selector.
func (f *Facade) Selector() *Selector {
	return f.selector
}

// Has reports whether a secret exists for id.
func (f *Facade) Has(ctx context.Context, id string) (bool, error) {
	return f.do(ctx, "has", id, func(ctx context.Context, s Store) (bool, error) {
		return s.Has(ctx, id)
	})
}

// Get returns the payload for id. A missing secret is (nil, false, nil).
func (f *Facade) Get(ctx context.Context, id string) ([]byte, bool, error) {
	var payload []byte
	found, err := f.do(ctx, "get", id, func(ctx context.Context, s Store) (bool, error) {
		p, ok, err := s.Get(ctx, id)
		payload = p
		return ok, err
	})
	if err != nil || !found {
		return nil, false, err
	}
	return payload, true, nil
}

// Set creates or replaces the payload for id.
func (f *Facade) Set(ctx context.Context, id string, payload []byte) error {
	_, err := f.do(ctx, "set", id, func(ctx context.Context, s Store) (bool, error) {
		return true, s.Set(ctx, id, payload)
	})
	return err
}

// Delete removes the secret for id. Deleting a missing secret succeeds.
func (f *Facade) Delete(ctx context.Context, id string) error {
	_, err := f.do(ctx, "delete", id, func(ctx context.Context, s Store) (bool, error) {
		return true, s.Delete(ctx, id)
	})
	return err
}

// Watch streams changes to id when the selected backend supports it.
func (f *Facade) Watch(ctx context.Context, id string) (<-chan SecretChange, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	s, err := f.selector.Select()
	if err != nil {
		return nil, err
	}
	w, ok := s.(Watcher)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWatchUnsupported, s.Name())
	}
	return w.Watch(ctx, id)
}

// Migrate re-encodes stored secrets with the current coder. Backends that
// do not encode secrets themselves have nothing to migrate.
func (f *Facade) Migrate(ctx context.Context) (int, error) {
	s, err := f.selector.Select()
	if err != nil {
		return 0, err
	}
	m, ok := s.(Migrator)
	if !ok {
		f.logger.Info("backend has nothing to migrate", slog.String(log.BackendKey, s.Name()))
		return 0, nil
	}

	ctx, span := f.tracer.Start(ctx, "secrets.migrate",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("secret.backend", s.Name())),
	)
	defer span.End()

	n, err := m.Migrate(ctx)
	span.SetAttributes(attribute.Int("secret.migrated", n))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		f.logger.Warn("migration failed", slog.String(log.BackendKey, s.Name()), slog.Int("migrated", n), log.Error(err))
		return n, err
	}
	span.SetStatus(codes.Ok, "")
	f.logger.Info("migration complete", slog.String(log.BackendKey, s.Name()), slog.Int("migrated", n))
	return n, nil
}

// do runs one operation with validation, backend selection and
// instrumentation. fn reports whether the secret was found.
func (f *Facade) do(ctx context.Context, op, id string, fn func(context.Context, Store) (bool, error)) (bool, error) {
	start := time.Now()

	ctx, span := f.tracer.Start(ctx, "secrets."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("secret.op", op),
			attribute.String("secret.id", id),
		),
	)
	defer span.End()

	backend := "none"
	found, err := func() (bool, error) {
		if err := ValidateID(id); err != nil {
			return false, err
		}
		s, err := f.selector.Select()
		if err != nil {
			return false, err
		}
		backend = s.Name()
		span.SetAttributes(attribute.String("secret.backend", backend))
		return fn(ctx, s)
	}()

	elapsed := time.Since(start)
	result := resultOf(err, found)
	recordMetrics(backend, op, elapsed.Seconds(), result)
	span.SetAttributes(attribute.String("secret.result", result))

	attrs := []any{
		log.Operation(op),
		log.SecretID(id),
		slog.String(log.BackendKey, backend),
		log.Duration("duration", elapsed.Milliseconds()),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		f.logger.Warn("secret operation failed", append(attrs, log.Error(err))...)
		return false, err
	}

	span.SetStatus(codes.Ok, "")
	f.logger.Debug("secret operation", append(attrs, slog.Bool("found", found))...)
	return found, nil
}
