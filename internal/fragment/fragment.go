// Package fragment splits a MiAuth packet into MTU-sized chunks for
// writing across UPNP/AVDTP, and reassembles chunks received from a
// notification stream back into the original packet.
package fragment

import (
	"errors"
	"fmt"
)

// HeaderLen is the 2-byte (index_lo, index_hi) fragment header every
// chunk, including the leading count announcement, carries.
const HeaderLen = 2

// DefaultMTU is the typical BLE MTU this protocol negotiates.
const DefaultMTU = 20

// DefaultMaxReassembled bounds how many payload bytes a Reassembler will
// accumulate before giving up, guarding against a corrupt total-count byte
// driving unbounded allocation.
const DefaultMaxReassembled = 4096

var (
	ErrChunkTooShort = errors.New("fragment: chunk shorter than header")
	ErrFragGap       = errors.New("fragment: sequence gap or chunk before count announcement")
	ErrFragOverflow  = errors.New("fragment: too many chunks or too many accumulated bytes")
)

// Split breaks payload into chunks of at most mtu-HeaderLen opaque bytes
// each, prefixed by the chunk-0 count announcement. mtu must be greater
// than HeaderLen.
func Split(payload []byte, mtu int) ([][]byte, error) {
	if mtu <= HeaderLen {
		return nil, fmt.Errorf("fragment: mtu %d too small for %d-byte header", mtu, HeaderLen)
	}
	dataCap := mtu - HeaderLen

	total := len(payload) / dataCap
	if len(payload)%dataCap != 0 {
		total++
	}
	if total > 0xFF {
		return nil, fmt.Errorf("%w: payload needs %d chunks, max 255", ErrFragOverflow, total)
	}

	chunks := make([][]byte, 0, total+1)
	chunks = append(chunks, []byte{0x00, byte(total)})

	for i := 0; i < total; i++ {
		start := i * dataCap
		end := start + dataCap
		if end > len(payload) {
			end = len(payload)
		}
		seq := uint16(i + 1)
		chunk := make([]byte, HeaderLen+(end-start))
		chunk[0] = byte(seq)
		chunk[1] = byte(seq >> 8)
		copy(chunk[HeaderLen:], payload[start:end])
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Reassembler accumulates chunks delivered in order on a single
// characteristic and yields the reassembled packet once the announced
// chunk count is satisfied.
type Reassembler struct {
	maxBytes int

	started bool
	total   int
	nextSeq int
	buf     []byte
	done    bool
}

// NewReassembler creates a Reassembler that aborts once more than
// maxBytes payload bytes have accumulated. maxBytes <= 0 uses
// DefaultMaxReassembled.
func NewReassembler(maxBytes int) *Reassembler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxReassembled
	}
	return &Reassembler{maxBytes: maxBytes}
}

// Feed consumes one chunk. It returns complete=true and the reassembled
// payload once the last expected chunk arrives. Any error is terminal —
// the Reassembler must not be reused after one.
func (r *Reassembler) Feed(chunk []byte) (complete bool, payload []byte, err error) {
	if r.done {
		return false, nil, fmt.Errorf("fragment: reassembler already complete")
	}
	if len(chunk) < HeaderLen {
		return false, nil, ErrChunkTooShort
	}

	lo, hi := chunk[0], chunk[1]

	if !r.started {
		if lo != 0x00 {
			return false, nil, fmt.Errorf("%w: first chunk is not the count announcement", ErrFragGap)
		}
		r.started = true
		r.total = int(hi)
		r.nextSeq = 1
		if r.total == 0 {
			r.done = true
			return true, []byte{}, nil
		}
		return false, nil, nil
	}

	seq := int(uint16(lo) | uint16(hi)<<8)
	if seq != r.nextSeq {
		r.done = true
		return false, nil, fmt.Errorf("%w: got seq %d, want %d", ErrFragGap, seq, r.nextSeq)
	}

	data := chunk[HeaderLen:]
	if len(r.buf)+len(data) > r.maxBytes {
		r.done = true
		return false, nil, fmt.Errorf("%w: exceeded %d bytes", ErrFragOverflow, r.maxBytes)
	}
	r.buf = append(r.buf, data...)
	r.nextSeq++

	if r.nextSeq > r.total {
		r.done = true
		return true, r.buf, nil
	}
	return false, nil, nil
}

// Reassemble is a convenience wrapper for feeding a complete, in-order
// slice of chunks (as produced by Split) in one call.
func Reassemble(chunks [][]byte, maxBytes int) ([]byte, error) {
	r := NewReassembler(maxBytes)
	for _, c := range chunks {
		complete, payload, err := r.Feed(c)
		if err != nil {
			return nil, err
		}
		if complete {
			return payload, nil
		}
	}
	return nil, fmt.Errorf("fragment: ran out of chunks before reassembly completed")
}
