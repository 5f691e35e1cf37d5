// Package compression compresses encoded record batches before an output
// hands them to its transport. Algorithm selection is per-output and can
// fall back to size-based auto-selection when the operator does not pin one.
package compression

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm identifies a compression codec.
type Algorithm string

const (
	AlgorithmGzip   Algorithm = "gzip"
	AlgorithmZlib   Algorithm = "zlib"
	AlgorithmZstd   Algorithm = "zstd"
	AlgorithmLZ4    Algorithm = "lz4"
	AlgorithmSnappy Algorithm = "snappy"
	AlgorithmAuto   Algorithm = "auto"
	AlgorithmNone   Algorithm = "none"
)

// Config configures a Compressor.
type Config struct {
	DefaultAlgorithm Algorithm `yaml:"default_algorithm"`
	MinBytes         int       `yaml:"min_bytes"`

	Algorithms map[Algorithm]AlgorithmConfig `yaml:"algorithms"`

	// PerOutput overrides the algorithm for a named output (e.g. a
	// kafkaout sink), keyed by the output's configured name.
	PerOutput map[string]OutputCompressionConfig `yaml:"per_output"`
}

// AlgorithmConfig tunes one codec.
type AlgorithmConfig struct {
	Enabled bool `yaml:"enabled"`
	Level   int  `yaml:"level"`
	MinSize int  `yaml:"min_size"`
}

// OutputCompressionConfig overrides compression behavior for one output.
type OutputCompressionConfig struct {
	Algorithm Algorithm `yaml:"algorithm"`
	Enabled   bool      `yaml:"enabled"`
}

// Compressor compresses and decompresses output batches, pooling writers
// per algorithm so a busy output doesn't allocate one per batch.
type Compressor struct {
	config Config
	pools  map[Algorithm]*codecPool
}

// codecPool holds the reusable writer for one algorithm. Only the field
// matching the algorithm the pool was built for is ever populated.
type codecPool struct {
	gzipPool sync.Pool
	zlibPool sync.Pool
	zstdPool sync.Pool
	lz4Pool  sync.Pool
}

// Result is the outcome of compressing one batch.
type Result struct {
	Data           []byte
	Algorithm      Algorithm
	OriginalSize   int
	CompressedSize int
	Ratio          float64
}

// New constructs a Compressor, filling in defaults for any algorithm left
// unconfigured.
func New(config Config) *Compressor {
	if config.DefaultAlgorithm == "" {
		config.DefaultAlgorithm = AlgorithmGzip
	}
	if config.MinBytes == 0 {
		config.MinBytes = 1024
	}
	if config.Algorithms == nil {
		config.Algorithms = make(map[Algorithm]AlgorithmConfig)
	}

	defaults := map[Algorithm]AlgorithmConfig{
		AlgorithmGzip:   {Enabled: true, Level: 6, MinSize: 1024},
		AlgorithmZlib:   {Enabled: true, Level: 6, MinSize: 1024},
		AlgorithmZstd:   {Enabled: true, Level: 3, MinSize: 1024},
		AlgorithmLZ4:    {Enabled: true, Level: 1, MinSize: 1024},
		AlgorithmSnappy: {Enabled: true, MinSize: 1024},
	}
	for alg, cfg := range defaults {
		if _, exists := config.Algorithms[alg]; !exists {
			config.Algorithms[alg] = cfg
		}
	}

	c := &Compressor{config: config, pools: make(map[Algorithm]*codecPool)}
	c.initPools()
	return c
}

func (c *Compressor) initPools() {
	for algorithm, algCfg := range c.config.Algorithms {
		pool := &codecPool{}
		level := algCfg.Level
		switch algorithm {
		case AlgorithmGzip:
			pool.gzipPool.New = func() interface{} {
				w, _ := gzip.NewWriterLevel(nil, level)
				return w
			}
		case AlgorithmZlib:
			pool.zlibPool.New = func() interface{} {
				w, _ := zlib.NewWriterLevel(nil, level)
				return w
			}
		case AlgorithmZstd:
			pool.zstdPool.New = func() interface{} {
				w, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
				return w
			}
		case AlgorithmLZ4:
			pool.lz4Pool.New = func() interface{} {
				return lz4.NewWriter(nil)
			}
		case AlgorithmSnappy:
			// stateless, no pool needed
		}
		c.pools[algorithm] = pool
	}
}

// Compress compresses data for the named output, honoring any per-output
// override and falling back to size-based auto-selection for
// AlgorithmAuto. Batches shorter than MinBytes, or belonging to a disabled
// algorithm, pass through uncompressed.
func (c *Compressor) Compress(data []byte, algorithm Algorithm, outputName string) (Result, error) {
	passthrough := Result{Data: data, Algorithm: AlgorithmNone, OriginalSize: len(data), CompressedSize: len(data), Ratio: 1.0}

	if len(data) < c.config.MinBytes {
		return passthrough, nil
	}

	if outCfg, exists := c.config.PerOutput[outputName]; exists {
		if !outCfg.Enabled {
			return passthrough, nil
		}
		algorithm = outCfg.Algorithm
	}

	if algorithm == AlgorithmAuto {
		algorithm = c.selectAlgorithm(data)
	}
	if algorithm == "" {
		algorithm = c.config.DefaultAlgorithm
	}

	algCfg, exists := c.config.Algorithms[algorithm]
	if !exists || !algCfg.Enabled {
		return passthrough, nil
	}

	compressed, err := c.compressWith(data, algorithm)
	if err != nil {
		return Result{}, fmt.Errorf("compression failed with %s: %w", algorithm, err)
	}

	return Result{
		Data:           compressed,
		Algorithm:      algorithm,
		OriginalSize:   len(data),
		CompressedSize: len(compressed),
		Ratio:          float64(len(compressed)) / float64(len(data)),
	}, nil
}

// selectAlgorithm picks a codec by batch size: fast codecs for small and
// very large batches, ratio-favoring codecs for the middle range where the
// CPU cost is still worth paying.
func (c *Compressor) selectAlgorithm(data []byte) Algorithm {
	size := len(data)
	switch {
	case size < 4*1024:
		return AlgorithmLZ4
	case size < 64*1024:
		return AlgorithmGzip
	case size < 1024*1024:
		return AlgorithmZstd
	default:
		return AlgorithmLZ4
	}
}

func (c *Compressor) compressWith(data []byte, algorithm Algorithm) ([]byte, error) {
	switch algorithm {
	case AlgorithmGzip:
		return c.compressGzip(data)
	case AlgorithmZlib:
		return c.compressZlib(data)
	case AlgorithmZstd:
		return c.compressZstd(data)
	case AlgorithmLZ4:
		return c.compressLZ4(data)
	case AlgorithmSnappy:
		return snappy.Encode(nil, data), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}

func (c *Compressor) compressGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	pool := c.pools[AlgorithmGzip]
	writer := pool.gzipPool.Get().(*gzip.Writer)
	defer pool.gzipPool.Put(writer)

	writer.Reset(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Compressor) compressZlib(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	pool := c.pools[AlgorithmZlib]
	writer := pool.zlibPool.Get().(*zlib.Writer)
	defer pool.zlibPool.Put(writer)

	writer.Reset(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Compressor) compressZstd(data []byte) ([]byte, error) {
	pool := c.pools[AlgorithmZstd]
	encoder := pool.zstdPool.Get().(*zstd.Encoder)
	defer pool.zstdPool.Put(encoder)
	return encoder.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func (c *Compressor) compressLZ4(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	pool := c.pools[AlgorithmLZ4]
	writer := pool.lz4Pool.Get().(*lz4.Writer)
	defer pool.lz4Pool.Put(writer)

	writer.Reset(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ContentEncoding returns the wire identifier a kafkaout header or similar
// transport metadata field should carry for algorithm.
func ContentEncoding(algorithm Algorithm) string {
	switch algorithm {
	case AlgorithmGzip:
		return "gzip"
	case AlgorithmZlib:
		return "deflate"
	case AlgorithmZstd:
		return "zstd"
	case AlgorithmLZ4:
		return "lz4"
	case AlgorithmSnappy:
		return "snappy"
	default:
		return ""
	}
}

// Decompress reverses Compress for algorithm.
func (c *Compressor) Decompress(data []byte, algorithm Algorithm) ([]byte, error) {
	switch algorithm {
	case AlgorithmGzip:
		return decompressGzip(data)
	case AlgorithmZlib:
		return decompressZlib(data)
	case AlgorithmZstd:
		return decompressZstd(data)
	case AlgorithmLZ4:
		return decompressLZ4(data)
	case AlgorithmSnappy:
		return snappy.Decode(nil, data)
	default:
		return nil, fmt.Errorf("unsupported decompression algorithm: %s", algorithm)
	}
}

func decompressGzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func decompressZlib(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func decompressZstd(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()
	return decoder.DecodeAll(data, nil)
}

func decompressLZ4(data []byte) ([]byte, error) {
	reader := lz4.NewReader(bytes.NewReader(data))
	return io.ReadAll(reader)
}
