package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	recordVersion = 1

	policySize       = 27 // bps(2) + cap flag(1) + cap(8) + min payout(8) + y0(8)
	progressSize     = 53 // start(8) + daily(8) + carry(8) + cursor(4) + complete(1) + locked(8) + pool(8) + claimed(8)
	globalConfigSize = 32 // creator(32)

	// version(1) + progress + policy flag(1) + policy
	streamRecordSize = 1 + progressSize + 1 + policySize
)

// EncodePolicy serializes a policy to its fixed 27-byte layout.
func EncodePolicy(p *Policy) []byte {
	buf := make([]byte, policySize)
	binary.BigEndian.PutUint16(buf[0:2], p.InvestorFeeShareBps)
	if p.DailyCap != nil {
		buf[2] = 1
		binary.BigEndian.PutUint64(buf[3:11], *p.DailyCap)
	}
	binary.BigEndian.PutUint64(buf[11:19], p.MinPayout)
	binary.BigEndian.PutUint64(buf[19:27], p.Y0Baseline)
	return buf
}

// DecodePolicy parses the layout written by EncodePolicy.
func DecodePolicy(data []byte) (*Policy, error) {
	if len(data) != policySize {
		return nil, fmt.Errorf("%w: policy expected %d bytes, got %d", ErrInvalidRecord, policySize, len(data))
	}
	p := &Policy{
		InvestorFeeShareBps: binary.BigEndian.Uint16(data[0:2]),
		MinPayout:           binary.BigEndian.Uint64(data[11:19]),
		Y0Baseline:          binary.BigEndian.Uint64(data[19:27]),
	}
	switch data[2] {
	case 0:
	case 1:
		c := binary.BigEndian.Uint64(data[3:11])
		p.DailyCap = &c
	default:
		return nil, fmt.Errorf("%w: daily cap flag %d", ErrInvalidRecord, data[2])
	}
	return p, nil
}

// EncodeProgress serializes progress to its fixed 53-byte layout.
func EncodeProgress(p *EpochProgress) []byte {
	buf := make([]byte, progressSize)
	binary.BigEndian.PutUint64(buf[0:8], uint64(p.LastEpochStart))
	binary.BigEndian.PutUint64(buf[8:16], p.DailyDistributed)
	binary.BigEndian.PutUint64(buf[16:24], p.CarryOver)
	binary.BigEndian.PutUint32(buf[24:28], p.PageCursor)
	if p.EpochComplete {
		buf[28] = 1
	}
	binary.BigEndian.PutUint64(buf[29:37], p.TotalLocked)
	binary.BigEndian.PutUint64(buf[37:45], p.InvestorPool)
	binary.BigEndian.PutUint64(buf[45:53], p.ClaimedQuote)
	return buf
}

// DecodeProgress parses the layout written by EncodeProgress.
func DecodeProgress(data []byte) (*EpochProgress, error) {
	if len(data) != progressSize {
		return nil, fmt.Errorf("%w: progress expected %d bytes, got %d", ErrInvalidRecord, progressSize, len(data))
	}
	if data[28] > 1 {
		return nil, fmt.Errorf("%w: complete flag %d", ErrInvalidRecord, data[28])
	}
	return &EpochProgress{
		LastEpochStart:   int64(binary.BigEndian.Uint64(data[0:8])),
		DailyDistributed: binary.BigEndian.Uint64(data[8:16]),
		CarryOver:        binary.BigEndian.Uint64(data[16:24]),
		PageCursor:       binary.BigEndian.Uint32(data[24:28]),
		EpochComplete:    data[28] == 1,
		TotalLocked:      binary.BigEndian.Uint64(data[29:37]),
		InvestorPool:     binary.BigEndian.Uint64(data[37:45]),
		ClaimedQuote:     binary.BigEndian.Uint64(data[45:53]),
	}, nil
}

// encodeStream serializes the mutable part of a stream record. The stream
// address itself is the storage key.
func encodeStream(s *StreamState) []byte {
	buf := make([]byte, streamRecordSize)
	buf[0] = recordVersion
	copy(buf[1:1+progressSize], EncodeProgress(&s.Progress))
	off := 1 + progressSize
	if s.Policy != nil {
		buf[off] = 1
		copy(buf[off+1:], EncodePolicy(s.Policy))
	}
	return buf
}

// decodeStream parses a record written by encodeStream.
func decodeStream(stream solana.PublicKey, data []byte) (*StreamState, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty stream record", ErrInvalidRecord)
	}
	if data[0] != recordVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[0])
	}
	if len(data) != streamRecordSize {
		return nil, fmt.Errorf("%w: stream record expected %d bytes, got %d", ErrInvalidRecord, streamRecordSize, len(data))
	}

	progress, err := DecodeProgress(data[1 : 1+progressSize])
	if err != nil {
		return nil, err
	}
	s := &StreamState{Stream: stream, Progress: *progress}

	off := 1 + progressSize
	switch data[off] {
	case 0:
	case 1:
		if s.Policy, err = DecodePolicy(data[off+1:]); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: policy flag %d", ErrInvalidRecord, data[off])
	}
	return s, nil
}

// EncodeGlobalConfig serializes the global configuration.
func EncodeGlobalConfig(g *GlobalConfig) []byte {
	buf := make([]byte, globalConfigSize)
	copy(buf, g.Creator[:])
	return buf
}

// DecodeGlobalConfig parses the layout written by EncodeGlobalConfig.
func DecodeGlobalConfig(data []byte) (*GlobalConfig, error) {
	if len(data) != globalConfigSize {
		return nil, fmt.Errorf("%w: global config expected %d bytes, got %d", ErrInvalidRecord, globalConfigSize, len(data))
	}
	var g GlobalConfig
	copy(g.Creator[:], data)
	return &g, nil
}
