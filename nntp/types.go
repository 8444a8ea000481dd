package nntp

// Response is a single NNTP status line: a three-digit code and the message
// that follows it. Exported copy of internal/wire.Response so callers of
// this package never need to import an internal package to spell the type
// of a returned value.
type Response struct {
	Code    int
	Message string
}

// ArticleRecord is the parsed result of an ARTICLE, HEAD or BODY command: the
// status line plus the dot-unstuffed body lines.
type ArticleRecord struct {
	Code      int
	Message   string
	Number    int64
	MessageID string
	Lines     []string
}

// StatResult is the sealed outcome of a STAT command: exactly one of Found
// or NotFound is non-nil. 430/423 are data here, not errors, because a
// caller probing for an article's existence should not have to catch an
// error to learn it is absent.
type StatResult struct {
	Found    *StatFound
	NotFound *StatNotFound
}

// StatFound is the outcome when the server reports 223.
type StatFound struct {
	Number    int64
	MessageID string
}

// StatNotFound is the outcome when the server reports 430 or 423.
type StatNotFound struct {
	Code    int
	Message string
}

// GroupRecord is the parsed result of a GROUP command.
type GroupRecord struct {
	Code    int
	Message string
	Count   int64
	Low     int64
	High    int64
	Name    string
}

// ListGroupRecord is a GroupRecord plus the ordered article numbers LISTGROUP
// returned in its body.
type ListGroupRecord struct {
	GroupRecord
	Articles []int64
}

// YencHeaders is the parsed form of a yEnc =ybegin line, optionally combined
// with a following =ypart line, surfaced at the public API boundary so
// callers never need to import internal/yenc.
type YencHeaders struct {
	Line      uint16
	Size      int64
	Name      string
	Part      *uint16
	Total     *uint16
	PartBegin *int64
	PartEnd   *int64
}
