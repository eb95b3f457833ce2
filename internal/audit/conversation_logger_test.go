package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationLoggerWritesPerUserNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewConversationLogger(ConversationLogConfig{
		Enabled:   true,
		Dir:       dir,
		QueueSize: 16,
	}, nil)
	require.NoError(t, err)

	score := 85
	logger.Log(ConversationLogEvent{UserID: 42, EventType: EventProblemGenerated, Topic: "Arrays", Mission: "Two Sum"})
	logger.Log(ConversationLogEvent{UserID: 42, EventType: EventSubmissionGraded, Score: &score, Feedback: "ok"})
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(dir, "42.ndjson"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first, second ConversationLogEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, EventProblemGenerated, first.EventType)
	assert.Equal(t, "Two Sum", first.Mission)
	assert.NotEmpty(t, first.Timestamp)
	require.NotNil(t, second.Score)
	assert.Equal(t, 85, *second.Score)
}

func TestConversationLoggerIgnoresEventsAfterClose(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewConversationLogger(ConversationLogConfig{Enabled: true, Dir: dir}, nil)
	require.NoError(t, err)
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	logger.Log(ConversationLogEvent{UserID: 1, EventType: EventProblemGenerated})
	_, err = os.Stat(filepath.Join(dir, "1.ndjson"))
	assert.True(t, os.IsNotExist(err))
}

func TestDisabledConversationLoggerIsNoop(t *testing.T) {
	logger, err := NewConversationLogger(ConversationLogConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, NoopLogger{}, logger)
	logger.Log(ConversationLogEvent{UserID: 1})
	assert.NoError(t, logger.Close())
}
