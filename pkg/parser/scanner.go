package parser

// scanState is the position of the delimited scanner within a field.
type scanState uint8

const (
	stateFieldStart scanState = iota
	stateUnquoted
	stateQuoted
	stateQuoteInQuoted
)

const (
	quoteByte = '"'
	crByte    = '\r'
	lfByte    = '\n'
)

// Scanner splits delimited text into records. Input may be cut at any byte;
// a partial record is carried over to the next Feed. Quoted fields may hold
// delimiters, doubled quotes, and line breaks. A CR directly before an LF
// outside quotes is dropped, and lines without any content are skipped.
type Scanner struct {
	delim byte
	state scanState

	field   []byte
	record  []string
	content bool
	crHeld  bool
}

// NewScanner returns a scanner for the given field delimiter.
func NewScanner(delim byte) *Scanner {
	return &Scanner{delim: delim}
}

// Buffered returns the number of bytes held for the incomplete record.
func (s *Scanner) Buffered() int {
	n := len(s.field)
	for _, f := range s.record {
		n += len(f)
	}

	return n
}

// Feed scans chunk and calls emit for every record it completes. The record
// slice is reused between calls. Scanning stops early when emit returns false,
// in which case Feed returns false and the rest of chunk is discarded.
func (s *Scanner) Feed(chunk []byte, emit func(record []string) bool) bool {
	for _, c := range chunk {
		if s.crHeld {
			s.crHeld = false

			if c == lfByte {
				if !s.endRecord(emit) {
					return false
				}

				continue
			}

			s.byteOutsideQuotes(crByte)
		}

		if !s.step(c, emit) {
			return false
		}
	}

	return true
}

// Flush completes an unterminated final record, if any.
func (s *Scanner) Flush(emit func(record []string) bool) bool {
	if s.crHeld {
		s.crHeld = false
		s.byteOutsideQuotes(crByte)
	}

	if !s.content {
		s.reset()

		return true
	}

	return s.endRecord(emit)
}

// Reset drops any partial record.
func (s *Scanner) Reset() {
	s.crHeld = false
	s.reset()
}

func (s *Scanner) step(c byte, emit func([]string) bool) bool {
	switch s.state {
	case stateQuoted:
		if c == quoteByte {
			s.state = stateQuoteInQuoted
		} else {
			s.field = append(s.field, c)
		}

		return true
	case stateQuoteInQuoted:
		if c == quoteByte {
			s.field = append(s.field, quoteByte)
			s.state = stateQuoted

			return true
		}
	case stateFieldStart, stateUnquoted:
	}

	switch c {
	case s.delim:
		s.content = true
		s.endField()
	case lfByte:
		return s.endRecord(emit)
	case crByte:
		s.crHeld = true
	case quoteByte:
		s.content = true

		if s.state == stateFieldStart {
			s.state = stateQuoted
		} else {
			s.field = append(s.field, c)
			s.state = stateUnquoted
		}
	default:
		s.byteOutsideQuotes(c)
	}

	return true
}

// byteOutsideQuotes appends a literal byte to an unquoted field, or to a
// quoted field after its closing quote.
func (s *Scanner) byteOutsideQuotes(c byte) {
	s.content = true
	s.field = append(s.field, c)
	s.state = stateUnquoted
}

func (s *Scanner) endField() {
	s.record = append(s.record, string(s.field))
	s.field = s.field[:0]
	s.state = stateFieldStart
}

func (s *Scanner) endRecord(emit func([]string) bool) bool {
	if !s.content {
		s.reset()

		return true
	}

	s.endField()
	ok := emit(s.record)
	s.reset()

	return ok
}

func (s *Scanner) reset() {
	s.field = s.field[:0]
	s.record = s.record[:0]
	s.state = stateFieldStart
	s.content = false
}
