package parser

import (
	"bytes"
)

// structuredMode selects how records are delimited.
type structuredMode uint8

const (
	modeAuto structuredMode = iota
	modeLines
	modeArray
)

// arrayPhase tracks the position within a top-level JSON array.
type arrayPhase uint8

const (
	phaseOpen arrayPhase = iota
	phaseBetween
	phaseElement
	phaseClosed
)

// Structured parses JSON records, either one per line or as elements of a
// top-level array.
type Structured struct {
	mode     structuredMode
	decoder  *TextDecoder
	walker   recordWalker
	sink     RowSink
	buf      []byte
	err      error
	finished bool

	// Array mode element tracking.
	phase    arrayPhase
	depth    int
	inString bool
	escaped  bool
	scalar   bool
}

// NewStructured creates a JSON parser. FormatJSON picks the mode from the
// first non-whitespace byte.
func NewStructured(format Format, opts Options, sink RowSink) (*Structured, error) {
	dec, err := NewTextDecoder(opts.Encoding)
	if err != nil {
		return nil, err
	}

	mode := modeAuto

	switch format {
	case FormatJSONLines:
		mode = modeLines
	case FormatJSONArray:
		mode = modeArray
	case FormatJSON:
	default:
		return nil, &UnknownFormatError{Name: string(format)}
	}

	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	return &Structured{
		mode:    mode,
		decoder: dec,
		walker:  recordWalker{maxDepth: maxDepth},
		sink:    sink,
	}, nil
}

// Feed parses one chunk.
func (s *Structured) Feed(chunk []byte) error {
	if s.finished {
		return ErrFinished
	}

	if s.err != nil {
		return s.err
	}

	text, err := s.decoder.Decode(chunk)
	if err != nil {
		return err
	}

	s.feed(text)

	return s.err
}

// Finish parses the trailing record.
func (s *Structured) Finish() error {
	if s.finished {
		return ErrFinished
	}

	s.finished = true

	if held := s.decoder.Flush(); len(held) > 0 {
		s.feed(held)
	}

	if s.err != nil {
		return s.err
	}

	switch s.mode {
	case modeLines:
		s.record(s.buf)
	case modeArray:
		if s.phase == phaseElement {
			if s.scalar {
				s.record(s.buf)
			} else {
				s.sink.Malformed()
			}
		}
	case modeAuto:
	}

	s.buf = nil

	return s.err
}

// Buffered returns the size of the partial record carried between chunks.
func (s *Structured) Buffered() int {
	return len(s.buf)
}

// Streaming is always true for structured text.
func (s *Structured) Streaming() bool {
	return true
}

func (s *Structured) feed(text []byte) {
	if s.mode == modeAuto {
		trimmed := bytes.TrimLeft(text, " \t\r\n")
		if len(trimmed) == 0 {
			return
		}

		text = trimmed
		s.mode = modeLines

		if text[0] == '[' {
			s.mode = modeArray
		}
	}

	if s.mode == modeLines {
		s.feedLines(text)
	} else {
		s.feedArray(text)
	}
}

func (s *Structured) feedLines(text []byte) {
	for s.err == nil {
		nl := bytes.IndexByte(text, '\n')
		if nl < 0 {
			s.buf = append(s.buf, text...)

			return
		}

		line := text[:nl]
		if len(s.buf) > 0 {
			s.buf = append(s.buf, line...)
			line = s.buf
		}

		s.record(line)
		s.buf = s.buf[:0]
		text = text[nl+1:]
	}
}

// feedArray tracks string and nesting state byte by byte and hands every
// completed top-level element to record.
func (s *Structured) feedArray(text []byte) {
	for i := 0; i < len(text) && s.err == nil; i++ {
		c := text[i]

		switch s.phase {
		case phaseOpen:
			if c == '[' {
				s.phase = phaseBetween
			} else if !isJSONSpace(c) {
				s.sink.Malformed()
				s.phase = phaseClosed
			}
		case phaseBetween:
			switch {
			case c == ']':
				s.phase = phaseClosed
			case c == ',' || isJSONSpace(c):
			default:
				s.startElement(c)
			}
		case phaseElement:
			s.elementByte(c)
		case phaseClosed:
			return
		}
	}
}

func (s *Structured) startElement(c byte) {
	s.phase = phaseElement
	s.buf = append(s.buf[:0], c)
	s.depth, s.inString, s.escaped, s.scalar = 0, false, false, false

	switch c {
	case '{', '[':
		s.depth = 1
	case '"':
		s.inString = true
		s.scalar = true
	default:
		s.scalar = true
	}
}

func (s *Structured) elementByte(c byte) {
	if s.inString {
		s.buf = append(s.buf, c)

		switch {
		case s.escaped:
			s.escaped = false
		case c == '\\':
			s.escaped = true
		case c == '"':
			s.inString = false
		}

		return
	}

	if s.scalar && s.depth == 0 && (c == ',' || c == ']' || isJSONSpace(c)) {
		s.completeElement()

		if c == ']' {
			s.phase = phaseClosed
		}

		return
	}

	s.buf = append(s.buf, c)

	switch c {
	case '"':
		s.inString = true
	case '{', '[':
		s.depth++
	case '}', ']':
		s.depth--
		if s.depth == 0 {
			s.completeElement()
		}
	}
}

func (s *Structured) completeElement() {
	s.record(s.buf)
	s.buf = s.buf[:0]
	s.phase = phaseBetween
}

func (s *Structured) record(raw []byte) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return
	}

	fields, ok := s.walker.walk(raw)
	if !ok {
		s.sink.Malformed()

		return
	}

	s.err = s.sink.Row(fields)
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
