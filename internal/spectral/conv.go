// Package spectral evaluates non-local interaction forces by FFT
// convolution with Gaussian kernels.
//
// The kernel transform is the closed-form Fourier transform of the
// Gaussian, sampled at the discrete wavenumbers of the periodic
// convolution domain. Using the analytic transform instead of a
// numerically transformed real-space kernel avoids any discretization
// mismatch between the kernel and its spectral counterpart.
package spectral

import (
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/epifield/internal/grid"
	"github.com/san-kum/epifield/internal/sir"
)

// Conv1D convolves 1D density fields with a fixed Gaussian kernel on the
// periodic domain of its grid. The kernel transform is computed once at
// construction and reused for every call.
type Conv1D struct {
	n    int
	khat []float64
}

// NewConv1D precomputes the kernel transform for the given grid.
func NewConv1D(g *grid.Uniform1D, k sir.Kernel) *Conv1D {
	n := g.Len()
	period := float64(n) * g.Spacing()
	khat := make([]float64, n)
	for m := range khat {
		khat[m] = gaussHat1D(k, wavenumber(m, n, period))
	}
	return &Conv1D{n: n, khat: khat}
}

// Convolve computes (K * src) at every grid point, writing into dst.
// If dst is nil a new slice is allocated. src is not modified.
func (c *Conv1D) Convolve(dst, src []float64) []float64 {
	coeff := fft.FFTReal(src)
	for m := range coeff {
		coeff[m] *= complex(c.khat[m], 0)
	}
	// Inputs are real, so the residual imaginary part of the inverse
	// transform is roundoff and is discarded.
	out := fft.IFFT(coeff)
	if dst == nil {
		dst = make([]float64, c.n)
	}
	for i := range dst {
		dst[i] = real(out[i])
	}
	return dst
}

// Conv2D convolves flat row-major 2D density fields with a fixed
// Gaussian kernel on the periodic domain of its grid.
type Conv2D struct {
	n    int
	khat []float64 // n*n, row-major
	rows [][]float64
}

// NewConv2D precomputes the kernel transform for the given grid.
func NewConv2D(g *grid.Uniform2D, k sir.Kernel) *Conv2D {
	n := g.N
	period := float64(n) * g.Spacing()
	khat := make([]float64, n*n)
	for my := 0; my < n; my++ {
		ky := wavenumber(my, n, period)
		for mx := 0; mx < n; mx++ {
			kx := wavenumber(mx, n, period)
			khat[my*n+mx] = gaussHat2D(k, math.Hypot(kx, ky))
		}
	}
	return &Conv2D{n: n, khat: khat, rows: make([][]float64, n)}
}

// Convolve computes (K * src) at every grid point, writing into dst.
// If dst is nil a new slice is allocated. src is not modified.
func (c *Conv2D) Convolve(dst, src []float64) []float64 {
	n := c.n
	for iy := 0; iy < n; iy++ {
		c.rows[iy] = src[iy*n : (iy+1)*n]
	}
	coeff := fft.FFT2Real(c.rows)
	for iy := 0; iy < n; iy++ {
		for ix := 0; ix < n; ix++ {
			coeff[iy][ix] *= complex(c.khat[iy*n+ix], 0)
		}
	}
	out := fft.IFFT2(coeff)
	if dst == nil {
		dst = make([]float64, n*n)
	}
	for iy := 0; iy < n; iy++ {
		row := out[iy]
		for ix := 0; ix < n; ix++ {
			dst[iy*n+ix] = real(row[ix])
		}
	}
	return dst
}

// wavenumber maps DFT bin m to its signed wavenumber 2*pi*m'/period
// with m' in (-n/2, n/2].
func wavenumber(m, n int, period float64) float64 {
	if m > n/2 {
		m -= n
	}
	return 2 * math.Pi * float64(m) / period
}

// gaussHat1D is the Fourier transform of A*exp(-d^2/(2r^2)) in 1D.
func gaussHat1D(kr sir.Kernel, k float64) float64 {
	return kr.Amplitude * kr.Range * math.Sqrt(2*math.Pi) * math.Exp(-0.5*kr.Range*kr.Range*k*k)
}

// gaussHat2D is the radial Fourier transform of the same kernel in 2D.
func gaussHat2D(kr sir.Kernel, k float64) float64 {
	return kr.Amplitude * 2 * math.Pi * kr.Range * kr.Range * math.Exp(-0.5*kr.Range*kr.Range*k*k)
}
