// Package simd selects a squared-L2 distance kernel once at process start,
// based on detected CPU features, and exposes it as a package-level function
// variable so every call site pays no per-call dispatch cost.
package simd

import "golang.org/x/sys/cpu"

// Kernel computes the squared Euclidean distance between two equal-length
// float32 slices.
type Kernel func(x, y []float32) float32

// L2Sqr is the selected kernel. Assigned once in init; never reassigned
// afterwards, so callers may treat it as a plain function value.
var L2Sqr Kernel

// Width names the SIMD lane width a kernel is modeled after. Go has no
// portable way to emit real vector instructions without cgo or hand-written
// assembly, neither of which can be validated without a build step here;
// these kernels are pure-Go loops manually unrolled to the lane count a real
// kernel of that width would process per iteration, chosen via runtime CPU
// feature detection exactly as a real dispatch table would.
type Width int

const (
	WidthScalar Width = iota
	Width128
	Width256
	Width512
)

// Selected records which kernel init picked, for diagnostics/tests.
var Selected Width

func init() {
	switch {
	case cpu.X86.HasAVX512F:
		L2Sqr = l2sqr512
		Selected = Width512
	case cpu.X86.HasAVX2:
		L2Sqr = l2sqr256
		Selected = Width256
	case cpu.X86.HasSSE2:
		L2Sqr = l2sqr128
		Selected = Width128
	default:
		L2Sqr = l2sqrScalar
		Selected = WidthScalar
	}
}

func l2sqrScalar(x, y []float32) float32 {
	var sum float32
	for i := range x {
		d := x[i] - y[i]
		sum += d * d
	}
	return sum
}

// l2sqr128 processes 4 lanes per iteration, matching a 128-bit register of
// float32 elements.
func l2sqr128(x, y []float32) float32 {
	n := len(x)
	var sum0, sum1, sum2, sum3 float32
	i := 0
	for ; i+4 <= n; i += 4 {
		d0 := x[i] - y[i]
		d1 := x[i+1] - y[i+1]
		d2 := x[i+2] - y[i+2]
		d3 := x[i+3] - y[i+3]
		sum0 += d0 * d0
		sum1 += d1 * d1
		sum2 += d2 * d2
		sum3 += d3 * d3
	}
	sum := sum0 + sum1 + sum2 + sum3
	for ; i < n; i++ {
		d := x[i] - y[i]
		sum += d * d
	}
	return sum
}

// l2sqr256 processes 8 lanes per iteration, matching a 256-bit register.
func l2sqr256(x, y []float32) float32 {
	n := len(x)
	var acc [8]float32
	i := 0
	for ; i+8 <= n; i += 8 {
		for lane := 0; lane < 8; lane++ {
			d := x[i+lane] - y[i+lane]
			acc[lane] += d * d
		}
	}
	var sum float32
	for _, v := range acc {
		sum += v
	}
	for ; i < n; i++ {
		d := x[i] - y[i]
		sum += d * d
	}
	return sum
}

// l2sqr512 processes 16 lanes per iteration, matching a 512-bit register.
func l2sqr512(x, y []float32) float32 {
	n := len(x)
	var acc [16]float32
	i := 0
	for ; i+16 <= n; i += 16 {
		for lane := 0; lane < 16; lane++ {
			d := x[i+lane] - y[i+lane]
			acc[lane] += d * d
		}
	}
	var sum float32
	for _, v := range acc {
		sum += v
	}
	for ; i < n; i++ {
		d := x[i] - y[i]
		sum += d * d
	}
	return sum
}
