// Copyright 2018 The EdgeQL Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errors defines shared types for handling EdgeQL errors.
//
// The pivotal error type is the interface type Error. The information
// available in such errors can be most easily retrieved using the Kind,
// Positions, and Print functions.
package errors

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"edgeql.org/go/edgeql/token"
)

// New is a convenience wrapper for errors.New in the core library.
// It does not return an EdgeQL error.
func New(msg string) error {
	return errors.New(msg)
}

// Unwrap returns the result of calling the Unwrap method on err, if err
// implements Unwrap. Otherwise, Unwrap returns nil.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches the type to
// which target points, and if so, sets the target to its value and
// returns true.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// A Kind classifies an error at the compiler boundary.
type Kind int

const (
	// GenericKind is used for errors created outside this package.
	GenericKind Kind = iota

	// SyntaxKind marks lexer and parser errors.
	SyntaxKind

	// ReferenceKind marks unresolved names, pointers, and function
	// signatures.
	ReferenceKind

	// TypeKind marks type inference failures and incompatible operands.
	TypeKind

	// ExpressionKind marks invalid casts, shapes, and non-concept
	// subjects of IS/INSERT/UPDATE/DELETE.
	ExpressionKind

	// CardinalityKind marks a singleton context receiving a multi-set.
	CardinalityKind

	// ConstraintKind marks schema-invariant violations surfaced during
	// IR construction.
	ConstraintKind

	// PointerKind marks pointer-specific schema violations.
	PointerKind

	// InternalKind marks invariant violations inside the compiler.
	InternalKind
)

var kindNames = map[Kind]string{
	GenericKind:     "error",
	SyntaxKind:      "SyntaxError",
	ReferenceKind:   "ReferenceError",
	TypeKind:        "TypeError",
	ExpressionKind:  "ExpressionError",
	CardinalityKind: "CardinalityError",
	ConstraintKind:  "ConstraintError",
	PointerKind:     "PointerError",
	InternalKind:    "InternalError",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "error"
}

// Sentinel values usable with Is to test an error's kind without
// retrieving the full Error value.
var (
	ErrSyntax      = &kindSentinel{SyntaxKind}
	ErrReference   = &kindSentinel{ReferenceKind}
	ErrType        = &kindSentinel{TypeKind}
	ErrExpression  = &kindSentinel{ExpressionKind}
	ErrCardinality = &kindSentinel{CardinalityKind}
	ErrConstraint  = &kindSentinel{ConstraintKind}
	ErrPointer     = &kindSentinel{PointerKind}
	ErrInternal    = &kindSentinel{InternalKind}
)

type kindSentinel struct{ kind Kind }

func (s *kindSentinel) Error() string { return s.kind.String() }

// A Message implements the error interface and carries a format string
// and its arguments for deferred rendering.
type Message struct {
	format string
	args   []interface{}
}

// NewMessagef creates an error message for human consumption.
func NewMessagef(format string, args ...interface{}) Message {
	if false {
		// Let go vet know that we're expecting printf-like arguments.
		_ = fmt.Sprintf(format, args...)
	}
	return Message{format: format, args: args}
}

// Msg returns a printf-style format string and its arguments.
func (m *Message) Msg() (format string, args []interface{}) {
	return m.format, m.args
}

func (m *Message) Error() string {
	return fmt.Sprintf(m.format, m.args...)
}

// Error is the common EdgeQL error interface. Every error carries a
// span (its primary position) and a kind from the compiler taxonomy.
type Error interface {
	// Position returns the primary position of an error. If multiple
	// positions contribute equally, this reflects one of them.
	Position() token.Pos

	// InputPositions reports positions that contributed to an error.
	InputPositions() []token.Pos

	// Kind reports the error class at the compiler boundary.
	Kind() Kind

	// Hint returns a suggestion on how to address the error, or "".
	Hint() string

	// Error reports the error message without position information.
	Error() string

	// Msg returns the unformatted error message and its arguments.
	Msg() (format string, args []interface{})
}

// Positions returns all positions returned by an error, sorted by
// relevance when possible and with duplicates removed.
func Positions(err error) []token.Pos {
	e := Error(nil)
	if !errors.As(err, &e) {
		return nil
	}

	a := make([]token.Pos, 0, 3)

	pos := e.Position()
	if pos.IsValid() {
		a = append(a, pos)
	}
	sortOffset := len(a)

	for _, p := range e.InputPositions() {
		if p.IsValid() && p != pos {
			a = append(a, p)
		}
	}

	byPos := a[sortOffset:]
	sort.Slice(byPos, func(i, j int) bool { return comparePos(byPos[i], byPos[j]) == -1 })
	k := 0
	for _, p := range byPos {
		if k == 0 || p != byPos[k-1] {
			byPos[k] = p
			k++
		}
	}
	return a[:sortOffset+k]
}

func comparePos(a, b token.Pos) int {
	if a.Filename() != b.Filename() {
		if a.Filename() < b.Filename() {
			return -1
		}
		return +1
	}
	return a.Compare(b)
}

// KindOf reports the kind of err, or GenericKind if err carries none.
func KindOf(err error) Kind {
	if e := Error(nil); errors.As(err, &e) {
		return e.Kind()
	}
	return GenericKind
}

// Newf creates an Error with the associated position and message.
func Newf(p token.Pos, format string, args ...interface{}) Error {
	return &posError{
		pos:     p,
		Message: NewMessagef(format, args...),
	}
}

// NewKindf creates an Error of the given kind with the associated
// position and message.
func NewKindf(k Kind, p token.Pos, format string, args ...interface{}) Error {
	return &posError{
		kind:    k,
		pos:     p,
		Message: NewMessagef(format, args...),
	}
}

// WithHint returns a copy of err with the given hint attached.
func WithHint(err Error, hint string) Error {
	if pe, ok := err.(*posError); ok {
		e := *pe
		e.hint = hint
		return &e
	}
	return &wrapped{main: &posError{
		kind:    err.Kind(),
		pos:     err.Position(),
		hint:    hint,
		Message: NewMessagef("%s", err.Error()),
	}}
}

// WithPos returns err with its primary position set to p if err does
// not already carry a valid position.
func WithPos(err Error, p token.Pos) Error {
	if err.Position().IsValid() || !p.IsValid() {
		return err
	}
	if pe, ok := err.(*posError); ok {
		e := *pe
		e.pos = p
		return &e
	}
	return Wrap(&posError{kind: err.Kind(), pos: p}, err)
}

// Wrapf creates an Error with the associated position and message. The
// provided error is added for inspection context.
func Wrapf(err error, p token.Pos, format string, args ...interface{}) Error {
	pErr := &posError{
		pos:     p,
		Message: NewMessagef(format, args...),
	}
	return Wrap(pErr, err)
}

// Wrap creates a new error where child is a subordinate error of
// parent. If child is a list of Errors, the result will itself be a
// list of errors where child is a subordinate error of each parent.
func Wrap(parent Error, child error) Error {
	if child == nil {
		return parent
	}
	a, ok := child.(list)
	if !ok {
		return &wrapped{parent, child}
	}
	b := make(list, len(a))
	for i, err := range a {
		b[i] = &wrapped{parent, err}
	}
	return b
}

type wrapped struct {
	main Error
	wrap error
}

// Error implements the error interface.
func (e *wrapped) Error() string {
	switch msg := e.main.Error(); {
	case e.wrap == nil:
		return msg
	case msg == "":
		return e.wrap.Error()
	default:
		return fmt.Sprintf("%s: %s", msg, e.wrap)
	}
}

func (e *wrapped) Is(target error) bool {
	if s, ok := target.(*kindSentinel); ok {
		return e.Kind() == s.kind
	}
	return Is(e.main, target)
}

func (e *wrapped) As(target interface{}) bool {
	return As(e.main, target)
}

func (e *wrapped) Msg() (format string, args []interface{}) {
	return e.main.Msg()
}

func (e *wrapped) Kind() Kind {
	if k := e.main.Kind(); k != GenericKind {
		return k
	}
	return KindOf(e.wrap)
}

func (e *wrapped) Hint() string {
	if h := e.main.Hint(); h != "" {
		return h
	}
	if w, ok := e.wrap.(Error); ok {
		return w.Hint()
	}
	return ""
}

func (e *wrapped) InputPositions() []token.Pos {
	return append(e.main.InputPositions(), Positions(e.wrap)...)
}

func (e *wrapped) Position() token.Pos {
	if p := e.main.Position(); p != token.NoPos {
		return p
	}
	if wrap, ok := e.wrap.(Error); ok {
		return wrap.Position()
	}
	return token.NoPos
}

func (e *wrapped) Unwrap() error { return e.wrap }

// Promote converts a regular Go error to an Error if it isn't already
// one.
func Promote(err error, msg string) Error {
	switch x := err.(type) {
	case Error:
		return x
	default:
		return Wrapf(err, token.NoPos, "%s", msg)
	}
}

var _ Error = &posError{}

// In a list, an error is represented by a *posError. The position pos,
// if valid, points to the beginning of the offending token, and the
// error condition is described by Message.
type posError struct {
	kind Kind
	pos  token.Pos
	hint string
	Message
}

func (e *posError) Kind() Kind                  { return e.kind }
func (e *posError) Hint() string                { return e.hint }
func (e *posError) InputPositions() []token.Pos { return nil }
func (e *posError) Position() token.Pos         { return e.pos }

func (e *posError) Is(target error) bool {
	if s, ok := target.(*kindSentinel); ok {
		return e.kind == s.kind
	}
	return false
}

// Append combines two errors, flattening lists as necessary.
func Append(a, b Error) Error {
	switch x := a.(type) {
	case nil:
		return b
	case list:
		return appendToList(x, b)
	}
	// Preserve order of errors.
	return appendToList(list{a}, b)
}

// Errors reports the individual errors associated with an error, which
// is the error itself if there is only one or, if the underlying type
// is a list, its individual elements. If the given error is not an
// Error, it will be promoted to one.
func Errors(err error) []Error {
	if err == nil {
		return nil
	}
	var listErr list
	var errorErr Error
	switch {
	case As(err, &listErr):
		return listErr
	case As(err, &errorErr):
		return []Error{errorErr}
	default:
		return []Error{Promote(err, "")}
	}
}

func appendToList(a list, err Error) list {
	switch x := err.(type) {
	case nil:
		return a
	case list:
		if len(a) == 0 {
			return x
		}
		for _, e := range x {
			a = appendToList(a, e)
		}
		return a
	default:
		for _, e := range a {
			if e == err {
				return a
			}
		}
		return append(a, err)
	}
}

// list is a list of Errors.
// The zero value for a list is an empty list ready to use.
type list []Error

func (p list) Is(target error) bool {
	for _, e := range p {
		if errors.Is(e, target) {
			return true
		}
	}
	return false
}

func (p list) As(target interface{}) bool {
	for _, e := range p {
		if errors.As(e, target) {
			return true
		}
	}
	return false
}

// A List collects multiple errors during processing.
type List = list

// AddNewf adds an Error with given position and error message to a
// list.
func (p *list) AddNewf(pos token.Pos, msg string, args ...interface{}) {
	err := &posError{kind: SyntaxKind, pos: pos, Message: Message{format: msg, args: args}}
	*p = append(*p, err)
}

// Add adds an Error with given position and error message to a list.
func (p *list) Add(err Error) {
	*p = appendToList(*p, err)
}

// Reset resets a list to no errors.
func (p *list) Reset() { *p = (*p)[:0] }

// Sort sorts a list. *posError entries are sorted by position, other
// errors are sorted by error message.
func (p list) Sort() {
	sort.Slice(p, func(i, j int) bool {
		if c := comparePos(p[i].Position(), p[j].Position()); c != 0 {
			return c == -1
		}
		return p[i].Error() < p[j].Error()
	})
}

// Sanitize sorts multiple errors and removes duplicates on a best
// effort basis. If err represents a single or no error, it returns the
// error as is.
func Sanitize(err Error) Error {
	if l, ok := err.(list); ok && err != nil {
		a := make(list, len(l))
		copy(a, l)
		a.Sort()
		k := 0
		for i, e := range a {
			if i == 0 || !approximateEqual(a[i-1], e) {
				a[k] = e
				k++
			}
		}
		a = a[:k]
		if len(a) == 1 {
			return a[0]
		}
		return a
	}
	return err
}

func approximateEqual(a, b Error) bool {
	aPos := a.Position()
	bPos := b.Position()
	if aPos == token.NoPos || bPos == token.NoPos {
		return a.Error() == b.Error()
	}
	return comparePos(aPos, bPos) == 0
}

// An error list implements the error interface.
func (p list) Error() string {
	format, args := p.Msg()
	return fmt.Sprintf(format, args...)
}

// Msg reports the unformatted error message for the first error, if
// any.
func (p list) Msg() (format string, args []interface{}) {
	switch len(p) {
	case 0:
		return "no errors", nil
	case 1:
		return p[0].Msg()
	}
	return "%s (and %d more errors)", []interface{}{p[0], len(p) - 1}
}

// Position reports the primary position for the first error, if any.
func (p list) Position() token.Pos {
	if len(p) == 0 {
		return token.NoPos
	}
	return p[0].Position()
}

// InputPositions reports the input positions for the first error, if
// any.
func (p list) InputPositions() []token.Pos {
	if len(p) == 0 {
		return nil
	}
	return p[0].InputPositions()
}

// Kind reports the kind of the first error, if any.
func (p list) Kind() Kind {
	if len(p) == 0 {
		return GenericKind
	}
	return p[0].Kind()
}

// Hint reports the hint of the first error, if any.
func (p list) Hint() string {
	if len(p) == 0 {
		return ""
	}
	return p[0].Hint()
}

// Err returns an error equivalent to this error list.
// If the list is empty, Err returns nil.
func (p list) Err() error {
	if len(p) == 0 {
		return nil
	}
	return p
}

// Print is a utility function that prints a list of errors to w, one
// error per line, if the err parameter is a list. Otherwise it prints
// the err string.
func Print(w io.Writer, err error) {
	for _, e := range Errors(err) {
		printError(w, e)
	}
}

// Details is a convenience wrapper for Print to return the error text
// as a string.
func Details(err error) string {
	var b strings.Builder
	Print(&b, err)
	return b.String()
}

func printError(w io.Writer, err Error) {
	if err == nil {
		return
	}
	if k := err.Kind(); k != GenericKind {
		fmt.Fprintf(w, "%s: ", k)
	}
	fmt.Fprintf(w, "%s", err.Error())
	if h := err.Hint(); h != "" {
		fmt.Fprintf(w, " (hint: %s)", h)
	}

	positions := Positions(err)
	if len(positions) == 0 {
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintln(w, ":")
	for _, p := range positions {
		fmt.Fprintf(w, "    %s\n", p.Position())
	}
}
