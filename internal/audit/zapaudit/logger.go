// Package zapaudit implements gate.AuditLogger on a zap logger, emitting one
// structured entry per resolution, gate result, bypass, and system error.
package zapaudit

import (
	"context"

	"go.uber.org/zap"

	"github.com/TheNeerajGarg/gatekeeper/pkg/gate"
)

// Logger implements gate.AuditLogger with structured zap output.
type Logger struct {
	log *zap.Logger
}

var _ gate.AuditLogger = (*Logger)(nil)

// New creates an audit logger writing through log.
func New(log *zap.Logger) *Logger {
	return &Logger{log: log}
}

// LogResolution implements gate.AuditLogger.
func (l *Logger) LogResolution(ctx context.Context, res gate.Resolution) error {
	active := res.Active()
	activeNames := make([]string, 0, len(active))
	for _, g := range active {
		activeNames = append(activeNames, g.Name)
	}
	var exempted []string
	for _, g := range res.Gates {
		if g.Exempted {
			exempted = append(exempted, g.Name)
		}
	}

	l.log.Info("policy resolved",
		zap.String("policy_id", res.PolicyID),
		zap.String("stage", res.Stage),
		zap.String("branch", res.Branch),
		zap.Int("changed_files", len(res.Files)),
		zap.Strings("active_gates", activeNames),
		zap.Strings("exempted_gates", exempted),
		zap.Strings("matched_rules", res.MatchedRules),
	)
	return nil
}

// LogGateResult implements gate.AuditLogger.
func (l *Logger) LogGateResult(ctx context.Context, result gate.Result, policyID, stage string) error {
	fields := []zap.Field{
		zap.String("gate", result.Gate),
		zap.String("status", string(result.Status)),
		zap.Bool("required", result.Required),
		zap.Duration("duration", result.Duration),
		zap.String("policy_id", policyID),
		zap.String("stage", stage),
	}
	if result.Message != "" {
		fields = append(fields, zap.String("message", result.Message))
	}
	if result.SkipReason != "" {
		fields = append(fields, zap.String("skip_reason", result.SkipReason))
	}

	if result.Status == gate.StatusFailed {
		l.log.Warn("gate failed", fields...)
	} else {
		l.log.Info("gate finished", fields...)
	}
	return nil
}

// LogBypass implements gate.AuditLogger.
func (l *Logger) LogBypass(ctx context.Context, rec gate.BypassRecord) error {
	l.log.Warn("emergency bypass",
		zap.String("id", rec.ID),
		zap.String("reason", rec.Reason),
		zap.String("user", rec.User),
		zap.String("branch", rec.Branch),
		zap.String("stage", rec.Stage),
		zap.Strings("skipped_gates", rec.SkippedGates),
		zap.Strings("suggestions", rec.Suggestions),
	)
	return nil
}

// LogSystemError implements gate.AuditLogger.
func (l *Logger) LogSystemError(ctx context.Context, systemError error, branch, stage, policyID string) error {
	l.log.Error("system error",
		zap.Error(systemError),
		zap.String("branch", branch),
		zap.String("stage", stage),
		zap.String("policy_id", policyID),
	)
	return nil
}
