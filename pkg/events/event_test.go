package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeCarriesTypeAndId(t *testing.T) {
	evt := New("CHAT_TURN_COMPLETED", map[string]interface{}{"tokens": 12})

	raw, err := json.Marshal(ToEnvelope(evt))
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	decoded := env.Event()

	assert.Equal(t, evt.Id, decoded.EventID())
	assert.Equal(t, "CHAT_TURN_COMPLETED", decoded.EventType())
	assert.Equal(t, float64(12), decoded.Payload()["tokens"])
	assert.True(t, evt.OccurredAt.Equal(decoded.Timestamp()))
	assert.Equal(t, "events.CHAT_TURN_COMPLETED", Subject(decoded.EventType()))
}
