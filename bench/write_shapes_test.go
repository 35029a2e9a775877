package bench

import (
	"path/filepath"
	"testing"

	"github.com/saworbit/ioprimer/pkg/config"
	"github.com/saworbit/ioprimer/pkg/filewrite"
)

// benchmarkShape rewrites one file b.N times with the given policy and shape
// and reports throughput.
func benchmarkShape(b *testing.B, policy string, shape filewrite.Shape, size int) {
	path := filepath.Join(b.TempDir(), "bench.bin")
	payload := make([]byte, size)
	w := filewrite.New(filewrite.WithPolicy(policy))

	write := w.Write
	if shape == filewrite.ShapeWriteAll {
		write = w.WriteAll
	}

	b.ReportAllocs()
	b.SetBytes(int64(size))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := write(path, payload); err != nil {
			b.Fatalf("write: %v", err)
		}
	}
}

func BenchmarkWriteAllSmall(b *testing.B) {
	benchmarkShape(b, config.PolicyRemove, filewrite.ShapeWriteAll, 24)
}

func BenchmarkWriteSmall(b *testing.B) {
	benchmarkShape(b, config.PolicyRemove, filewrite.ShapeWrite, 24)
}

func BenchmarkWriteAll1MiB(b *testing.B) {
	benchmarkShape(b, config.PolicyRemove, filewrite.ShapeWriteAll, 1<<20)
}

func BenchmarkWrite1MiB(b *testing.B) {
	benchmarkShape(b, config.PolicyRemove, filewrite.ShapeWrite, 1<<20)
}

func BenchmarkAtomic1MiB(b *testing.B) {
	benchmarkShape(b, config.PolicyAtomic, filewrite.ShapeWrite, 1<<20)
}
