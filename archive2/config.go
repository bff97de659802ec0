package archive2

import "fmt"

// Framing selects how a decompressed segment is cut into message records.
type Framing string

const (
	// FramingFixed cuts every record at DefaultMetadataRecordLength bytes.
	FramingFixed Framing = "fixed"
	// FramingSized sizes Message 31 records from their header (User 3.2.4.17), every
	// other type keeps the fixed length.
	FramingSized Framing = "sized"
)

// Config tunes the decoder. The zero value is not usable, start from DefaultConfig.
type Config struct {
	// Strict turns a compressed length that disagrees with the control word into an error.
	Strict bool `yaml:"strict" toml:"strict"`

	// AllowNegativeControlWord reads a negative control word as its absolute value
	// (RDA/RPG 7.3.4) instead of failing.
	AllowNegativeControlWord bool `yaml:"allow_negative_control_word" toml:"allow_negative_control_word"`

	// MaxSegmentSize is the largest control word accepted, in bytes.
	MaxSegmentSize int64 `yaml:"max_segment_size" toml:"max_segment_size"`

	// MaxDecompressedSize bounds the output of a single segment, in bytes.
	MaxDecompressedSize int64 `yaml:"max_decompressed_size" toml:"max_decompressed_size"`

	// MaxNestedCount is the ceiling on any count field of a variable-length payload.
	MaxNestedCount int `yaml:"max_nested_count" toml:"max_nested_count"`

	Framing Framing `yaml:"framing" toml:"framing"`

	// Workers used by DecodeAll. 1 decodes sequentially.
	Workers int `yaml:"workers" toml:"workers"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxSegmentSize:      64 << 20,
		MaxDecompressedSize: 256 << 20,
		MaxNestedCount:      4096,
		Framing:             FramingFixed,
		Workers:             1,
	}
}

// Validate reports settings the decoder cannot run with.
func (c Config) Validate() error {
	if c.MaxSegmentSize <= 0 {
		return fmt.Errorf("max segment size must be positive, got %d", c.MaxSegmentSize)
	}
	if c.MaxDecompressedSize <= 0 {
		return fmt.Errorf("max decompressed size must be positive, got %d", c.MaxDecompressedSize)
	}
	if c.MaxNestedCount <= 0 {
		return fmt.Errorf("max nested count must be positive, got %d", c.MaxNestedCount)
	}
	switch c.Framing {
	case FramingFixed, FramingSized:
	default:
		return fmt.Errorf("unknown framing %q", c.Framing)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}
