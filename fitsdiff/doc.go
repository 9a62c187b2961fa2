// Package fitsdiff compares two FITS files HDU by HDU.
//
// Headers are compared card by card and image data value by value, under
// rules that tolerate the differences expected between two runs of the
// pipeline: free text COMMENT cards, the comment on SIMPLE, blank cards and
// floating point drift below an absolute tolerance. Decoding is done by
// github.com/astrogo/fitsio.
package fitsdiff
