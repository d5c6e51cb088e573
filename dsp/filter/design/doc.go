// Package design provides RBJ-style biquad coefficient designers.
//
// Every designer returns [biquad.Coefficients] normalized to a0 = 1. A
// frequency outside (0, Nyquist) or a non-finite sample rate yields the zero
// section, which outputs silence; a non-positive Q falls back to 1/sqrt(2).
package design
