package errprocess

import (
	"errors"
	"testing"

	"campus_chat_service/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsKind(t *testing.T) {
	logger.SetNewNop()
	kind := errors.New("store unavailable")

	err := Wrap(kind, "append message")

	assert.ErrorIs(t, err, kind)
	assert.Equal(t, "append message: store unavailable", err.Error())
}
