package archive2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload_Dispatch(t *testing.T) {
	cfg := DefaultConfig()

	v, err := DecodePayload(RDAStatusData, rdaStatusBytes(1900), cfg)
	require.NoError(t, err)
	assert.IsType(t, &RDAStatus{}, v)

	v, err = DecodePayload(ClutterFilterMapData, encodeClutterFilterMap(sampleClutterFilterMap(1, 3)), cfg)
	require.NoError(t, err)
	assert.IsType(t, &ClutterFilterMap{}, v)

	v, err = DecodePayload(DigitalRadarDataGenericFormat, genericHeaderBytes(genericHeaderSpec{radar: "KTST"}), cfg)
	require.NoError(t, err)
	assert.IsType(t, &Message31{}, v)

	// recognized, no decoder
	v, err = DecodePayload(RDAAdaptationData, []byte{1, 2, 3}, cfg)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDecodePayload_NestedCeiling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxNestedCount = 2

	_, err := DecodePayload(ClutterFilterMapData, encodeClutterFilterMap(sampleClutterFilterMap(1, 3)), cfg)
	assert.ErrorIs(t, err, ErrCountOutOfRange)
}

func TestRegisterPayloadDecoder(t *testing.T) {
	_, ok := PayloadDecoderFor(RDAConsoleMessage)
	require.False(t, ok)

	RegisterPayloadDecoder(RDAConsoleMessage, func(c *Cursor, _ Config) (interface{}, error) {
		size := c.Uint16("console message size")
		return c.Text(int(size), "console message"), c.Err()
	})
	defer func() {
		registryMtx.Lock()
		delete(payloadDecoders, RDAConsoleMessage)
		registryMtx.Unlock()
	}()

	v, err := DecodePayload(RDAConsoleMessage, []byte{0, 5, 'h', 'e', 'l', 'l', 'o'}, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}
