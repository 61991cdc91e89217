package h2

import (
	"sync"

	"github.com/gvsurenderreddy/http-2/http2utils"
)

var _ Frame = (*Settings)(nil)

// SettingID identifies one SETTINGS key. §4.2 specifies draft-06 framing,
// where each settings pair is an 8-byte (4-byte id, 4-byte value) tuple
// rather than the final RFC's 2-byte id.
type SettingID uint32

const (
	SettingHeaderTableSize      SettingID = 0x1
	SettingEnablePush           SettingID = 0x2
	SettingMaxConcurrentStreams SettingID = 0x3
	SettingInitialWindowSize    SettingID = 0x4
	SettingMaxFrameSize         SettingID = 0x5
	SettingMaxHeaderListSize    SettingID = 0x6

	// SettingFlowControlOptions carries the "flow_control_options" key of
	// the Settings snapshot (§3): 0 = flow control on, 1 = disabled
	// forever (§4.3 "flow_control_allowed?").
	SettingFlowControlOptions SettingID = 0x7
)

type setting struct {
	id    SettingID
	value uint32
}

// Settings is the SETTINGS frame: a flat, unordered dict of connection
// parameters (§4.2). A Settings with the ACK flag set carries no payload.
type Settings struct {
	ack    bool
	values []setting
}

var settingsPool = sync.Pool{New: func() interface{} { return &Settings{} }}

func acquireSettingsFrame() *Settings  { return settingsPool.Get().(*Settings) }
func releaseSettingsFrame(s *Settings) { settingsPool.Put(s) }

func (s *Settings) Type() FrameType { return FrameSettings }

func (s *Settings) Reset() {
	s.ack = false
	s.values = s.values[:0]
}

func (s *Settings) IsAck() bool     { return s.ack }
func (s *Settings) SetAck(ack bool) { s.ack = ack }

func (s *Settings) get(id SettingID) (uint32, bool) {
	for _, kv := range s.values {
		if kv.id == id {
			return kv.value, true
		}
	}
	return 0, false
}

func (s *Settings) set(id SettingID, value uint32) {
	for i := range s.values {
		if s.values[i].id == id {
			s.values[i].value = value
			return
		}
	}
	s.values = append(s.values, setting{id: id, value: value})
}

// HeaderTableSize returns SETTINGS_HEADER_TABLE_SIZE, defaulting to 4096.
func (s *Settings) HeaderTableSize() uint32 {
	v, ok := s.get(SettingHeaderTableSize)
	if !ok {
		return 4096
	}
	return v
}

func (s *Settings) SetHeaderTableSize(v uint32) { s.set(SettingHeaderTableSize, v) }

// MaxConcurrentStreams returns SETTINGS_MAX_CONCURRENT_STREAMS, or (0, false)
// if unset (unset means unlimited, per §6.5.2).
func (s *Settings) MaxConcurrentStreams() (uint32, bool) {
	return s.get(SettingMaxConcurrentStreams)
}

func (s *Settings) SetMaxConcurrentStreams(v uint32) { s.set(SettingMaxConcurrentStreams, v) }

// InitialWindowSize returns SETTINGS_INITIAL_WINDOW_SIZE, defaulting to
// DefaultWindowSize.
func (s *Settings) InitialWindowSize() uint32 {
	v, ok := s.get(SettingInitialWindowSize)
	if !ok {
		return DefaultWindowSize
	}
	return v
}

func (s *Settings) SetInitialWindowSize(v uint32) { s.set(SettingInitialWindowSize, v) }

// MaxFrameSize returns SETTINGS_MAX_FRAME_SIZE, defaulting to DefaultMaxFrameLen.
func (s *Settings) MaxFrameSize() uint32 {
	v, ok := s.get(SettingMaxFrameSize)
	if !ok {
		return DefaultMaxFrameLen
	}
	return v
}

func (s *Settings) SetMaxFrameSize(v uint32) { s.set(SettingMaxFrameSize, v) }

// EnablePush reports SETTINGS_ENABLE_PUSH, defaulting to true.
func (s *Settings) EnablePush() bool {
	v, ok := s.get(SettingEnablePush)
	if !ok {
		return true
	}
	return v != 0
}

func (s *Settings) SetEnablePush(enabled bool) {
	var v uint32
	if enabled {
		v = 1
	}
	s.set(SettingEnablePush, v)
}

// MaxHeaderListSize returns SETTINGS_MAX_HEADER_LIST_SIZE, or (0, false) if
// unset (unset means unlimited).
func (s *Settings) MaxHeaderListSize() (uint32, bool) {
	return s.get(SettingMaxHeaderListSize)
}

func (s *Settings) SetMaxHeaderListSize(v uint32) { s.set(SettingMaxHeaderListSize, v) }

// FlowControlOptions returns SETTINGS_FLOW_CONTROL_OPTIONS, or (0, false)
// if unset (unset means flow control stays on).
func (s *Settings) FlowControlOptions() (uint32, bool) {
	return s.get(SettingFlowControlOptions)
}

func (s *Settings) SetFlowControlOptions(v uint32) { s.set(SettingFlowControlOptions, v) }

// ForEach calls fn once per key/value pair in wire order.
func (s *Settings) ForEach(fn func(id SettingID, value uint32)) {
	for _, kv := range s.values {
		fn(kv.id, kv.value)
	}
}

func (s *Settings) Deserialize(fr *FrameHeader) error {
	if fr.Flags().Has(FlagAck) {
		s.ack = true
		if len(fr.payload) != 0 {
			return ErrFrameSizeError
		}
		return nil
	}

	if len(fr.payload)%8 != 0 {
		return ErrFrameSizeError
	}

	for i := 0; i+8 <= len(fr.payload); i += 8 {
		id := SettingID(http2utils.BytesToUint32(fr.payload[i : i+4]))
		value := http2utils.BytesToUint32(fr.payload[i+4 : i+8])
		s.set(id, value)
	}

	return nil
}

func (s *Settings) Serialize(fr *FrameHeader) {
	if s.ack {
		fr.SetFlags(fr.Flags().Add(FlagAck))
		fr.setPayload(nil)
		return
	}

	payload := make([]byte, 0, len(s.values)*8)
	for _, kv := range s.values {
		payload = http2utils.AppendUint32Bytes(payload, uint32(kv.id))
		payload = http2utils.AppendUint32Bytes(payload, kv.value)
	}

	fr.setPayload(payload)
}
