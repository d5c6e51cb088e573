// Package biquad provides the second-order IIR section that filter units run.
//
// A [Section] implements Direct Form II Transposed processing for one set of
// [Coefficients]. Coefficients may be replaced between blocks without
// clearing the delay state, which is how automated filter parameters are
// followed. Coefficient design lives in dsp/filter/design.
package biquad
