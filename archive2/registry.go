package archive2

import "sync"

// PayloadDecoder turns a message payload into its typed value. The cursor starts at the
// first payload byte.
type PayloadDecoder func(c *Cursor, cfg Config) (interface{}, error)

var (
	registryMtx     sync.RWMutex
	payloadDecoders = map[MessageType]PayloadDecoder{
		RDAStatusData: func(c *Cursor, _ Config) (interface{}, error) {
			return DecodeRDAStatus(c)
		},
		ClutterFilterMapData: func(c *Cursor, cfg Config) (interface{}, error) {
			return DecodeClutterFilterMap(c, cfg.MaxNestedCount)
		},
		DigitalRadarDataGenericFormat: func(c *Cursor, _ Config) (interface{}, error) {
			return DecodeMessage31(c)
		},
	}
)

// PayloadDecoderFor returns the decoder registered for mt. Recognized types without a
// decoder return false and are handed to callers as raw bytes.
func PayloadDecoderFor(mt MessageType) (PayloadDecoder, bool) {
	registryMtx.RLock()
	defer registryMtx.RUnlock()
	dec, ok := payloadDecoders[mt]
	return dec, ok
}

// RegisterPayloadDecoder plugs in (or replaces) the decoder for a message type.
func RegisterPayloadDecoder(mt MessageType, dec PayloadDecoder) {
	registryMtx.Lock()
	defer registryMtx.Unlock()
	payloadDecoders[mt] = dec
}

// DecodePayload runs the registered decoder over payload. The result is nil, without an
// error, for types that have no decoder.
func DecodePayload(mt MessageType, payload []byte, cfg Config) (interface{}, error) {
	dec, ok := PayloadDecoderFor(mt)
	if !ok {
		return nil, nil
	}
	return dec(NewCursor(payload), cfg)
}
