package logger

import "go.uber.org/zap"

// Log is a no-op logger until Init is called.
var Log = zap.NewNop()

func Init() {
	Log = zap.Must(zap.NewProduction())
}
