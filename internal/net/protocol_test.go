package net

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterkuimelis/clash/internal/log"
)

func TestLogMessageDecodes(t *testing.T) {
	ev := log.NewDamageEvent(2, "Hero", "Imp", 5, 1, 0)
	data, err := json.Marshal(ServerMessage{Type: MsgLog, Log: &ev})
	require.NoError(t, err)

	var msg ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	require.NotNil(t, msg.Log)
	assert.Equal(t, log.EventDamage, msg.Log.Type)
	assert.Equal(t, log.FormatEvent(ev), log.FormatEvent(*msg.Log))
}
