package pricing

import "github.com/mightyoctopus/worthbrain/pkg/contextx"

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals
