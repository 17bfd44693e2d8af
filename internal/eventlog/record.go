package eventlog

import (
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
)

// Event is one immutable ingested record. ID is assigned by the store on
// append and never reused. TS is the collector-supplied (or server-stamped)
// unix-seconds timestamp; it is advisory and may be non-monotonic.
type Event struct {
	ID       int64           `json:"id"`
	TS       int64           `json:"ts"`
	Source   string          `json:"source,omitempty"`
	Severity string          `json:"severity,omitempty"`
	Msg      string          `json:"msg,omitempty"`
	Meta     map[string]any  `json:"meta,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// Entry encoding: varint headerLen | header | payload | crc32c(header|payload).
// The header is the 8-byte big-endian event timestamp in milliseconds.

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func encodeEntry(tsMs int64, payload []byte) []byte {
	var header [8]byte
	binary.BigEndian.PutUint64(header[:], uint64(tsMs))

	out := make([]byte, 0, 10+len(header)+len(payload)+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(header)))
	out = append(out, tmp[:n]...)
	out = append(out, header[:]...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header[:])
	crc = crc32.Update(crc, castagnoli, payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	out = append(out, crcb[:]...)
	return out
}

func decodeEntry(b []byte) (tsMs int64, payload []byte, ok bool) {
	if len(b) < 1+4 {
		return 0, nil, false
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 || int(n)+int(hlen)+4 > len(b) {
		return 0, nil, false
	}
	header := b[n : n+int(hlen)]
	payload = b[n+int(hlen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return 0, nil, false
	}
	if len(header) >= 8 {
		tsMs = int64(binary.BigEndian.Uint64(header[:8]))
	}
	return tsMs, append([]byte(nil), payload...), true
}

// decodeEvent rebuilds an Event from an entry value. The sequence from the
// key is authoritative for ID regardless of what the payload carries.
func decodeEvent(seq uint64, value []byte) (Event, bool) {
	_, payload, ok := decodeEntry(value)
	if !ok {
		return Event{}, false
	}
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, false
	}
	ev.ID = int64(seq)
	return ev, true
}
