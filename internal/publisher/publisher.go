package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/icon-generator/internal/model"
	"github.com/aliskhannn/icon-generator/internal/storage/file"
)

// bucket defines the interface for the remote storage icons are mirrored to.
type bucket interface {
	Save(ctx context.Context, prefix, filename string, src io.Reader) (string, error)
}

// producer defines the interface for announcing finished runs.
type producer interface {
	Produce(ctx context.Context, ev model.RunEvent) error
}

// Publisher mirrors a finished run to object storage and announces it.
// Both targets are optional; unset targets are skipped.
type Publisher struct {
	bucket   bucket
	prefix   string
	producer producer
	strategy retry.Strategy
	log      zerolog.Logger
}

// New creates a new Publisher without targets.
func New(s retry.Strategy, log zerolog.Logger) *Publisher {
	if s.Attempts < 1 {
		s.Attempts = 1
	}

	return &Publisher{strategy: s, log: log}
}

// WithBucket mirrors icons to b under the key prefix.
func (p *Publisher) WithBucket(b bucket, prefix string) *Publisher {
	p.bucket = b
	p.prefix = prefix
	return p
}

// WithProducer announces every published run through pr.
func (p *Publisher) WithProducer(pr producer) *Publisher {
	p.producer = pr
	return p
}

// Publish uploads every written icon plus the extra files (names relative to
// the run's output directory), then sends the run event. Upload failures do
// not stop other uploads or the event; all failures are joined into the
// returned error. Returns the object key of each uploaded file by name.
func (p *Publisher) Publish(ctx context.Context, res model.RunResult, extra ...string) (map[string]string, error) {
	objects := make(map[string]string)
	var errs []error

	if p.bucket != nil {
		local := file.NewStorage(res.OutputDir)

		names := make([]string, 0, len(res.Written)+len(extra))
		for _, w := range res.Written {
			names = append(names, w.Name)
		}
		names = append(names, extra...)

		for _, name := range names {
			key, err := p.upload(ctx, local, name)
			if err != nil {
				p.log.Error().Err(err).Str("entry", name).Msg("failed to upload icon")
				errs = append(errs, fmt.Errorf("upload %s: %w", name, err))
				continue
			}

			objects[name] = key
			p.log.Debug().Str("entry", name).Str("object", key).Msg("icon uploaded")
		}
	}

	if p.producer != nil {
		ev := model.NewRunEvent(res, objects)
		if err := p.producer.Produce(ctx, ev); err != nil {
			p.log.Error().Err(err).Msg("failed to publish run event")
			errs = append(errs, fmt.Errorf("publish event: %w", err))
		}
	}

	return objects, errors.Join(errs...)
}

// upload copies one local file to the bucket, reopening it on every attempt.
func (p *Publisher) upload(ctx context.Context, local *file.Storage, name string) (string, error) {
	var key string

	err := retry.Do(func() error {
		rc, err := local.Load(ctx, "", name)
		if err != nil {
			return err
		}
		defer rc.Close()

		key, err = p.bucket.Save(ctx, p.prefix, name, rc)
		return err
	}, p.strategy)
	if err != nil {
		return "", err
	}

	return key, nil
}
