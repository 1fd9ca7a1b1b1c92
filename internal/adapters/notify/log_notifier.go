// Package notify contains signal subscribers that announce progression
// milestones without side effects on progression state.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/ecoprog/internal/core/effects"
	"github.com/example/ecoprog/internal/ports/secondary"
)

// LogNotifier writes every delivered signal to the structured log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger discards output.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("notify")}
}

// Name identifies the subscriber.
func (n *LogNotifier) Name() string { return "log" }

// HandleSignal logs the milestone.
func (n *LogNotifier) HandleSignal(ctx context.Context, signal effects.Signal) error {
	fields := []zap.Field{
		zap.String("school_id", signal.School()),
		zap.String("dedupe_key", signal.DedupeKey()),
	}

	switch s := signal.(type) {
	case effects.StageCompleted:
		fields = append(fields, zap.String("stage", s.Stage.String()), zap.Int("round", s.Round))
		n.logger.Info("stage completed", fields...)
	case effects.AwardCompleted:
		fields = append(fields, zap.Int("round", s.Round))
		n.logger.Info("award completed", fields...)
	default:
		n.logger.Info("progression signal", append(fields, zap.String("type", signal.EffectType()))...)
	}
	return nil
}

var _ secondary.SignalSubscriber = (*LogNotifier)(nil)
