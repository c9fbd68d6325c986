package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/charlesng35/leadflow/internal/auditctx"
)

// LogMoves records every completed board move with the actor that made it.
func LogMoves(log *zap.Logger) MoveObserver {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, move Move) {
		from := ""
		if move.FromStage != nil {
			from = *move.FromStage
		}
		fields := []zap.Field{
			zap.String("lead_id", move.Lead.ID),
			zap.String("from_stage", from),
			zap.String("to_stage", move.ToStage),
			zap.String("from_status", string(move.FromStatus)),
			zap.String("to_status", string(move.Lead.Status)),
		}
		if actor, ok := auditctx.FromContext(ctx); ok {
			fields = append(fields, zap.String("actor", actor.Label()))
		}
		log.Info("lead moved", fields...)
	}
}
