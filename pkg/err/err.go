package errprocess

import (
	"fmt"

	"campus_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// Wrap log errMsg and return an error matching kind via errors.Is
func Wrap(kind error, errMsg string, fields ...zap.Field) error {
	logger.Log.Error(errMsg, append(fields, zap.String("kind", kind.Error()))...)
	return fmt.Errorf("%s: %w", errMsg, kind)
}
