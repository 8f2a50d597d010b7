package repository

import (
	"context"
	"errors"
	"fmt"

	"SmartLoan/internal/domain/models"
	domrepo "SmartLoan/internal/domain/repository"
	applogger "SmartLoan/pkg/logger"
)

// NamedSink labels a sink for metrics and logs.
type NamedSink struct {
	Name string
	Sink domrepo.DecisionSink
}

// FanoutSink records each decision to every sink in order. A failing sink
// does not stop the others; their errors are joined.
type FanoutSink struct {
	sinks   []NamedSink
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewFanoutSink(metrics domrepo.Metrics, l *applogger.Logger, sinks ...NamedSink) *FanoutSink {
	if l == nil {
		l = applogger.Nop()
	}
	return &FanoutSink{sinks: sinks, metrics: metrics, l: l}
}

func (f *FanoutSink) Len() int { return len(f.sinks) }

func (f *FanoutSink) Record(ctx context.Context, d *models.Decision) error {
	var errs []error
	for _, s := range f.sinks {
		err := s.Sink.Record(ctx, d)
		if f.metrics != nil {
			f.metrics.RecordSinkWrite(s.Name, err == nil)
		}
		if err != nil {
			f.l.Warn("decision sink write failed",
				applogger.String("sink", s.Name),
				applogger.String("decision_id", d.ID),
				applogger.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and reports all failures.
func (f *FanoutSink) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

var _ domrepo.DecisionSink = (*FanoutSink)(nil)
