package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/researchaccelerator-hub/channel-analytics/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSuccess(t *testing.T) {
	r := From(42, nil)
	assert.True(t, r.OK)
	assert.Equal(t, 42, r.Value)
	assert.Nil(t, r.Error)
}

func TestFromAppError(t *testing.T) {
	err := apperror.New(apperror.CodeFakeDataNotFound, "missing", apperror.SeverityError,
		map[string]any{"channelId": "UC-001"})

	r := From("ignored", err)
	assert.False(t, r.OK)
	require.NotNil(t, r.Error)
	assert.Equal(t, apperror.CodeFakeDataNotFound, r.Error.Code)
	assert.Equal(t, "missing", r.Error.Message)
	assert.Equal(t, "UC-001", r.Error.Context["channelId"])
}

func TestFromForeignError(t *testing.T) {
	r := Fail[int](errors.New("boom"))
	require.NotNil(t, r.Error)
	assert.Equal(t, apperror.CodeUnknown, r.Error.Code)
	assert.Equal(t, "boom", r.Error.Cause)
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, OK(map[string]string{"mode": "fake"}).Write(&buf))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, true, decoded["ok"])
	assert.Equal(t, map[string]any{"mode": "fake"}, decoded["value"])
	_, hasError := decoded["error"]
	assert.False(t, hasError)

	buf.Reset()
	require.NoError(t, Fail[string](apperror.New(apperror.CodeModeInvalid, "bad", apperror.SeverityError, nil)).Write(&buf))
	decoded = nil
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, false, decoded["ok"])
	assert.Equal(t, apperror.CodeModeInvalid, decoded["error"].(map[string]any)["code"])
}

func TestWriteFailureOmitsValue(t *testing.T) {
	type status struct {
		Mode string `json:"mode"`
	}

	var buf bytes.Buffer
	err := apperror.New(apperror.CodeModeUnavailable, "not configured", apperror.SeverityError, nil)
	require.NoError(t, From(status{Mode: "real"}, err).Write(&buf))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, false, decoded["ok"])
	_, hasValue := decoded["value"]
	assert.False(t, hasValue)
}

func TestWriteZeroValueSuccess(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, OK(0).Write(&buf))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, float64(0), decoded["value"])
}
