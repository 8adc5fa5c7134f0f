// Package frame holds the fixed-size frame buffer shared by capture, inference
// feed and transmission, and the pixel codec converting sensor samples into
// the accelerator's signed input format.
package frame
