package yenc

// Phase tracks where the incremental decoder sits relative to line framing:
// yEnc lines are CRLF-terminated and dot-stuffed like any other NNTP
// multi-line body, and a decoder reading straight off the wire (rather than
// through line-buffered reads) must track this itself.
type Phase int

const (
	// PhaseLineStart is the initial state ("last seen CRLF" in spec terms):
	// the next byte may start a dot-stuffed line, a yEnc control line
	// (=ybegin/=ypart/=yend), or ordinary encoded data.
	PhaseLineStart Phase = iota
	// PhaseBody is mid-line, decoding ordinary encoded bytes.
	PhaseBody
	// PhaseEscaped means the previous byte was a yEnc escape introducer
	// ('='); the next byte decodes via the escaped formula.
	PhaseEscaped
)

// State is the incremental decoder's carried state between DecodeIncremental
// calls.
type State struct {
	Phase Phase
}

// Initial returns the decoder's starting state, corresponding to having just
// seen a CRLF (the position at the top of the yEnc body).
func Initial() State {
	return State{Phase: PhaseLineStart}
}

// End indicates why DecodeIncremental stopped before exhausting its input.
type End int

const (
	// EndNone means the chunk was fully consumed; more data is expected.
	EndNone End = iota
	// EndControl means a yEnc control line (starting "=y") was reached;
	// the unconsumed remainder of the chunk is left for the caller to
	// parse as text.
	EndControl
	// EndArticle means the bare NNTP terminator line "." was reached
	// in-band, with no yEnc trailer.
	EndArticle
)

// Result is what DecodeIncremental returns for one call.
type Result struct {
	Data     []byte
	Consumed int
	State    State
	End      End
}

// DecodeIncremental feeds chunk through the yEnc decode state machine
// starting from state, decoding dot-unstuffed, escape-unescaped bytes until
// it either exhausts the chunk, reaches a yEnc control line, or reaches the
// bare NNTP terminator line. It never blocks and never looks past the end
// of chunk: when a decision needs a byte beyond the chunk's end (to
// disambiguate dot-stuffing, an escape, or a CRLF), it stops and returns
// with Consumed short of len(chunk) so the caller can resubmit the
// remainder together with more data.
func DecodeIncremental(chunk []byte, state State) Result {
	out := make([]byte, 0, len(chunk))
	i := 0
	phase := state.Phase

	partial := func() Result {
		return Result{Data: out, Consumed: i, State: State{Phase: phase}, End: EndNone}
	}

	for i < len(chunk) {
		b := chunk[i]

		switch phase {
		case PhaseLineStart:
			switch {
			case b == '.':
				if i+1 >= len(chunk) {
					return partial()
				}
				switch chunk[i+1] {
				case '.':
					// Dot-stuffed: drop the stuffing dot, decode the rest
					// of the line as ordinary body bytes.
					i++
					phase = PhaseBody
					continue
				case '\r':
					if i+2 >= len(chunk) {
						return partial()
					}
					if chunk[i+2] == '\n' {
						i += 3
						return Result{Data: out, Consumed: i, State: State{Phase: PhaseLineStart}, End: EndArticle}
					}
					// Bare CR not followed by LF: treat defensively as
					// body data rather than failing the whole stream.
					phase = PhaseBody
					continue
				default:
					// A lone, un-doubled leading dot should not occur from
					// a compliant server (dot-stuffing always doubles it);
					// fall back to treating it as ordinary body data.
					phase = PhaseBody
					continue
				}

			case b == '=':
				if i+1 >= len(chunk) {
					return partial()
				}
				if chunk[i+1] == 'y' {
					// Control line (=ybegin/=ypart/=yend): stop before
					// consuming it, hand the rest of the chunk back as text.
					return Result{Data: out, Consumed: i, State: State{Phase: PhaseLineStart}, End: EndControl}
				}
				i++
				phase = PhaseEscaped
				continue

			case b == '\r':
				if i+1 >= len(chunk) {
					return partial()
				}
				if chunk[i+1] == '\n' {
					// Blank line.
					i += 2
					continue
				}
				i++
				continue

			default:
				phase = PhaseBody
				continue
			}

		case PhaseBody:
			switch {
			case b == '=':
				if i+1 >= len(chunk) {
					return partial()
				}
				i++
				phase = PhaseEscaped
				continue
			case b == '\r':
				if i+1 >= len(chunk) {
					return partial()
				}
				if chunk[i+1] == '\n' {
					i += 2
					phase = PhaseLineStart
					continue
				}
				i++
				continue
			default:
				out = append(out, b-42)
				i++
			}

		case PhaseEscaped:
			out = append(out, b-64-42)
			i++
			phase = PhaseBody
		}
	}

	return Result{Data: out, Consumed: i, State: State{Phase: phase}, End: EndNone}
}
