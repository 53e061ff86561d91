package executors

import (
	"context"
	"runtime/debug"
	"time"

	jsoniter "github.com/json-iterator/go"
	logger "github.com/sirupsen/logrus"

	"tradejournal/src/model"
)

type exceptionRepository interface {
	Create(ctx context.Context, exception *model.Exception) error
}

// Capture records a system exception, logs it locally, and optionally
// persists it in the database.
func Capture(
	ctx context.Context,
	repo exceptionRepository,
	service string,
	module string,
	method string,
	level string,
	err error,
	contextData map[string]interface{},
) {

	if err == nil {
		return
	}

	var ctxJSON string
	if contextData != nil {
		if b, e := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(contextData); e == nil {
			ctxJSON = string(b)
		}
	}

	exc := &model.Exception{
		Service:   service,
		Module:    module,
		Method:    method,
		Message:   err.Error(),
		Stack:     string(debug.Stack()),
		Level:     level,
		Context:   ctxJSON,
		CreatedAt: time.Now().UTC(),
	}

	logger.WithFields(map[string]interface{}{
		"service": service,
		"module":  module,
		"method":  method,
		"level":   level,
	}).WithError(err).Error("System exception captured")

	if repo != nil {
		// persist even when the run was cancelled
		if e := repo.Create(context.WithoutCancel(ctx), exc); e != nil {
			logger.WithError(e).Error("Failed to persist exception")
		}
	}
}
