package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumber_AcceptsNumbersAndStrings(t *testing.T) {
	var req CreateConsumptionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"liters": 40.25}`), &req))
	assert.Equal(t, "40.25", req.Liters.String())

	require.NoError(t, json.Unmarshal([]byte(`{"liters": "abc"}`), &req))
	assert.Equal(t, "abc", req.Liters.String())

	var upd UpdateConsumptionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"operator": "Dana"}`), &upd))
	assert.Nil(t, upd.Liters.StringPtr())

	require.NoError(t, json.Unmarshal([]byte(`{"liters": 5}`), &upd))
	require.NotNil(t, upd.Liters.StringPtr())
	assert.Equal(t, "5", *upd.Liters.StringPtr())
}

func TestUpdateConsumptionRequest_ImmutableFieldsAreDetected(t *testing.T) {
	var upd UpdateConsumptionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"recordedAt": "not-even-a-time"}`), &upd))

	p := upd.ToPatch()
	assert.NotNil(t, p.RecordedAt)
	assert.Nil(t, p.CreatedAt)
	assert.Nil(t, p.TankIdentifier)
}
