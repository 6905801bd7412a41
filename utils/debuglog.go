package utils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/moodclient/videotex"
)

// LevelNone is below every level a handler is normally configured with, so events
// logged at it are discarded
const LevelNone slog.Level = -8

type DebugLogConfig struct {
	EncounteredErrorLevel slog.Level
	OutboundDataLevel     slog.Level
	TelegramLevel         slog.Level
	FailedTelegramLevel   slog.Level
	KeyReceivedLevel      slog.Level
}

// DebugLog writes every terminal event to a slog.Logger
type DebugLog struct {
	logger *slog.Logger
	config DebugLogConfig
}

func NewDebugLog(terminal *videotex.Terminal, logger *slog.Logger, config DebugLogConfig) *DebugLog {
	log := &DebugLog{logger: logger, config: config}

	terminal.RegisterEncounteredErrorHook(log.logError)
	terminal.RegisterOutboundDataHook(log.logOutboundData)
	terminal.RegisterTelegramHook(log.logTelegram)
	terminal.RegisterKeyReceivedHook(log.logKey)

	return log
}

func (l *DebugLog) logError(terminal *videotex.Terminal, err error) {
	l.logger.LogAttrs(context.Background(), l.config.EncounteredErrorLevel, "Encountered error", slog.Any("error", err))
}

func (l *DebugLog) logOutboundData(terminal *videotex.Terminal, data []byte) {
	l.logger.LogAttrs(context.Background(), l.config.OutboundDataLevel, "Sent", slog.String("data", videotex.SequenceString(data)))
}

func (l *DebugLog) logTelegram(terminal *videotex.Terminal, event videotex.TelegramEvent) {
	level := l.config.TelegramLevel
	if !event.Matched {
		level = l.config.FailedTelegramLevel
	}

	l.logger.LogAttrs(context.Background(), level, event.Name,
		slog.String("request", videotex.SequenceString(event.Request)),
		slog.String("response", videotex.SequenceString(event.Response)),
		slog.Bool("matched", event.Matched),
		slog.Duration("elapsed", event.Elapsed),
	)
}

func (l *DebugLog) logKey(terminal *videotex.Terminal, key videotex.KeyEvent) {
	l.logger.LogAttrs(context.Background(), l.config.KeyReceivedLevel, "Key",
		slog.String("key", key.String()),
		slog.String("code", fmt.Sprintf("0x%X", key.Code)),
	)
}
