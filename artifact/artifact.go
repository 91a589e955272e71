package artifact

import (
	"bytes"
	"encoding/gob"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/YuminosukeSato/matprop/pkg/errors"
)

// FormatVersion is written into every envelope. Envelopes with another
// version are rejected by Unmarshal.
const FormatVersion = 1

// ErrCorrupt wraps every decoding failure of an envelope.
var ErrCorrupt = errors.New("artifact: corrupt envelope")

// magic prefixes every encoded envelope ahead of the zstd frame.
var magic = []byte("MPRA")

// Artifact is a trained model plus the metadata needed to serve it.
type Artifact struct {
	Version    int
	Family     string
	Algorithm  string
	Target     string
	Vocabulary []string
	NFeatures  int
	NSamples   int
	RunID      string
	TrainedAt  time.Time
	Payload    []byte
}

var (
	encoderPool sync.Pool
	decoderPool sync.Pool
)

func getEncoder() (*zstd.Encoder, error) {
	if v := encoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getDecoder() (*zstd.Decoder, error) {
	if v := decoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// Marshal gob-encodes a and compresses the result.
func Marshal(a *Artifact) ([]byte, error) {
	if a == nil {
		return nil, errors.NewValueError("artifact.Marshal", "nil artifact")
	}
	env := *a
	env.Version = FormatVersion

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(&env); err != nil {
		return nil, errors.Wrap(err, "encode artifact")
	}

	enc, err := getEncoder()
	if err != nil {
		return nil, errors.Wrap(err, "create zstd encoder")
	}
	defer encoderPool.Put(enc)

	out := make([]byte, 0, len(magic)+raw.Len()/2)
	out = append(out, magic...)
	return enc.EncodeAll(raw.Bytes(), out), nil
}

// Unmarshal reverses Marshal. Any failure is reported as ErrCorrupt.
func Unmarshal(data []byte) (*Artifact, error) {
	if !bytes.HasPrefix(data, magic) {
		return nil, errors.Wrap(ErrCorrupt, "missing header")
	}

	dec, err := getDecoder()
	if err != nil {
		return nil, errors.Wrap(err, "create zstd decoder")
	}
	defer decoderPool.Put(dec)

	raw, err := dec.DecodeAll(data[len(magic):], nil)
	if err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "decompress: %v", err)
	}

	var a Artifact
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&a); err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "decode: %v", err)
	}
	if a.Version != FormatVersion {
		return nil, errors.Wrapf(ErrCorrupt, "unsupported version %d", a.Version)
	}
	return &a, nil
}

// State is the lifecycle slot of a stored model.
type State string

const (
	Candidate  State = "candidate"
	Production State = "production"
)

// Canonical turns a target property name into a file-safe token:
// "d33 (pC/N)" becomes "d33_pC_N" and "Tc (C)" becomes "Tc_C".
func Canonical(target string) string {
	var b strings.Builder
	b.Grow(len(target))
	for _, r := range target {
		switch {
		case r == '(' || r == ')':
		case r == ' ' || r == '/':
			b.WriteByte('_')
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Name returns the storage name of a target's model in the given state.
func Name(target string, state State) string {
	return string(state) + "_" + Canonical(target) + ".model"
}

// DatasetName is where the most recently uploaded training CSV is kept.
const DatasetName = "datasets/current_data.csv"
