// Package yenc implements the yEnc binary-to-ASCII framing used to carry
// binary article bodies over NNTP: control-line parsing (=ybegin, =ypart,
// =yend), an incremental decode state machine, and the body pipeline that
// drives that state machine against a socket's raw byte stream.
package yenc

import (
	"fmt"
	"strconv"
	"strings"
)

// Headers is the parsed form of a =ybegin line, optionally combined with a
// following =ypart line.
type Headers struct {
	Line      uint16
	Size      int64
	Name      string
	Part      *uint16
	Total     *uint16
	PartBegin *int64
	PartEnd   *int64
}

// Trailer is the parsed form of a =yend line.
type Trailer struct {
	Size   int64
	CRC32  *uint32
	PCRC32 *uint32
	Part   *uint16
}

// MalformedError indicates the yEnc preamble or a control line (=ybegin,
// =ypart, =yend) was missing a mandatory field or appeared where it was not
// expected.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("yenc: malformed stream: %s", e.Reason)
}

// ParseBegin parses the payload of a =ybegin line (everything after
// "=ybegin "). The "name=" field may itself contain spaces and is always
// the last field on the line, so it is extracted first by locating
// " name=" and taking everything after it; the remaining tokens in front of
// it are parsed as key=value pairs.
func ParseBegin(payload string) (Headers, error) {
	name, rest, err := splitName(payload)
	if err != nil {
		return Headers{}, err
	}

	kv := parseKV(rest)

	lineStr, ok := kv["line"]
	if !ok {
		return Headers{}, &MalformedError{Reason: "=ybegin missing mandatory field \"line\""}
	}
	line, err := strconv.ParseUint(lineStr, 10, 16)
	if err != nil {
		return Headers{}, &MalformedError{Reason: "=ybegin has non-numeric \"line\""}
	}

	sizeStr, ok := kv["size"]
	if !ok {
		return Headers{}, &MalformedError{Reason: "=ybegin missing mandatory field \"size\""}
	}
	size, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil {
		return Headers{}, &MalformedError{Reason: "=ybegin has non-numeric \"size\""}
	}

	h := Headers{Line: uint16(line), Size: size, Name: name}

	if partStr, ok := kv["part"]; ok {
		part, err := strconv.ParseUint(partStr, 10, 16)
		if err != nil {
			return Headers{}, &MalformedError{Reason: "=ybegin has non-numeric \"part\""}
		}
		p := uint16(part)
		h.Part = &p
	}
	if totalStr, ok := kv["total"]; ok {
		total, err := strconv.ParseUint(totalStr, 10, 16)
		if err != nil {
			return Headers{}, &MalformedError{Reason: "=ybegin has non-numeric \"total\""}
		}
		t := uint16(total)
		h.Total = &t
	}

	return h, nil
}

// ApplyPart merges a =ypart line's begin/end fields into Headers produced
// by ParseBegin.
func ApplyPart(h Headers, payload string) (Headers, error) {
	kv := parseKV(payload)

	beginStr, ok := kv["begin"]
	if !ok {
		return h, &MalformedError{Reason: "=ypart missing mandatory field \"begin\""}
	}
	begin, err := strconv.ParseInt(beginStr, 10, 64)
	if err != nil {
		return h, &MalformedError{Reason: "=ypart has non-numeric \"begin\""}
	}

	endStr, ok := kv["end"]
	if !ok {
		return h, &MalformedError{Reason: "=ypart missing mandatory field \"end\""}
	}
	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return h, &MalformedError{Reason: "=ypart has non-numeric \"end\""}
	}

	h.PartBegin = &begin
	h.PartEnd = &end
	return h, nil
}

// ParseEnd parses the payload of a =yend line.
func ParseEnd(payload string) (Trailer, error) {
	kv := parseKV(payload)

	sizeStr, ok := kv["size"]
	if !ok {
		return Trailer{}, &MalformedError{Reason: "=yend missing mandatory field \"size\""}
	}
	size, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil {
		return Trailer{}, &MalformedError{Reason: "=yend has non-numeric \"size\""}
	}

	t := Trailer{Size: size}

	if crcStr, ok := kv["crc32"]; ok {
		v, err := parseHex32(crcStr)
		if err != nil {
			return Trailer{}, &MalformedError{Reason: "=yend has non-hex \"crc32\""}
		}
		t.CRC32 = &v
	}
	if pcrcStr, ok := kv["pcrc32"]; ok {
		v, err := parseHex32(pcrcStr)
		if err != nil {
			return Trailer{}, &MalformedError{Reason: "=yend has non-hex \"pcrc32\""}
		}
		t.PCRC32 = &v
	}
	if partStr, ok := kv["part"]; ok {
		v, err := strconv.ParseUint(partStr, 10, 16)
		if err != nil {
			return Trailer{}, &MalformedError{Reason: "=yend has non-numeric \"part\""}
		}
		p := uint16(v)
		t.Part = &p
	}

	return t, nil
}

// CRC prefers pcrc32 over crc32, per spec: "if either pcrc32 (preferred when
// present) or crc32 is provided". Returns (value, true) if either is set.
func (t Trailer) CRC() (uint32, bool) {
	if t.PCRC32 != nil {
		return *t.PCRC32, true
	}
	if t.CRC32 != nil {
		return *t.CRC32, true
	}
	return 0, false
}

func parseHex32(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// splitName extracts the " name=..." suffix (name may contain spaces and is
// always the final field) and returns (name, everythingBefore).
func splitName(payload string) (name string, rest string, err error) {
	idx := strings.Index(payload, " name=")
	if idx < 0 {
		return "", "", &MalformedError{Reason: "=ybegin missing mandatory field \"name\""}
	}
	name = payload[idx+len(" name="):]
	rest = payload[:idx]
	return name, rest, nil
}

// parseKV tokenises a "key=value key=value ..." string on spaces.
func parseKV(s string) map[string]string {
	out := make(map[string]string)
	for _, tok := range strings.Fields(s) {
		eq := strings.IndexByte(tok, '=')
		if eq < 0 {
			continue
		}
		out[tok[:eq]] = tok[eq+1:]
	}
	return out
}
