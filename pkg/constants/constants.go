package constants

import (
	"github.com/go-playground/validator/v10"
)

type ContextKey string

const (
	LoggerKey    ContextKey = "logger"
	ActorKey     ContextKey = "actor"
	LocalizerKey ContextKey = "localizer"
	LocaleKey    ContextKey = "locale"
	RequestIDKey ContextKey = "request-id"
)

var Validate = validator.New(validator.WithRequiredStructEnabled())

// MaxRequestMemory bounds the in-memory part of parsed multipart bodies.
const MaxRequestMemory = 32 << 20
