// Package transform chains invertible stages into the XML text ⇄ document
// tree pipeline.
package transform

import "github.com/dgallion1/teiedit/internal/diag"

// Invertible is a stage with a forward transform and a best-effort inverse.
// Transform fails only on input it cannot read at all; Invert always
// produces a value and reports what it could not preserve.
type Invertible[A, B any] interface {
	Transform(A) (B, error)
	Invert(B) (A, diag.Errors)
}

// Funcs adapts a pair of functions to Invertible.
type Funcs[A, B any] struct {
	TransformFunc func(A) (B, error)
	InvertFunc    func(B) (A, diag.Errors)
}

func (f Funcs[A, B]) Transform(a A) (B, error)    { return f.TransformFunc(a) }
func (f Funcs[A, B]) Invert(b B) (A, diag.Errors) { return f.InvertFunc(b) }

type composed[A, B, C any] struct {
	f Invertible[A, B]
	g Invertible[B, C]
}

// Compose runs f then g forward, and g's inverse then f's backward. Errors
// from both inverses are returned in that order.
func Compose[A, B, C any](f Invertible[A, B], g Invertible[B, C]) Invertible[A, C] {
	return composed[A, B, C]{f: f, g: g}
}

func (c composed[A, B, C]) Transform(a A) (C, error) {
	b, err := c.f.Transform(a)
	if err != nil {
		var zero C
		return zero, err
	}
	return c.g.Transform(b)
}

func (c composed[A, B, C]) Invert(v C) (A, diag.Errors) {
	b, gErrs := c.g.Invert(v)
	a, fErrs := c.f.Invert(b)
	var errs diag.Errors
	errs = append(errs, gErrs...)
	errs = append(errs, fErrs...)
	return a, errs
}
