package tasks

import (
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeCheckpointTask_RoundTrip(t *testing.T) {
	task, opts, err := NewCodeCheckpointTask("r1")
	require.NoError(t, err)
	assert.Equal(t, TypeCodeCheckpoint, task.Type())
	assert.NotEmpty(t, opts)

	p, err := ParseCodeCheckpointPayload(task)
	require.NoError(t, err)
	assert.Equal(t, "r1", p.RoomID)
}

func TestParseCodeCheckpointPayload_Invalid(t *testing.T) {
	_, err := ParseCodeCheckpointPayload(asynq.NewTask(TypeCodeCheckpoint, []byte("{")))
	assert.Error(t, err)

	_, err = ParseCodeCheckpointPayload(asynq.NewTask(TypeCodeCheckpoint, []byte(`{}`)))
	assert.Error(t, err)
}
