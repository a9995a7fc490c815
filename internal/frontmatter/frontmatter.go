// Package frontmatter splits markdown documents into TOML metadata blocks and
// bodies, and decides whether a post file holds a single post or a thread.
package frontmatter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pelletier/go-toml/v2"

	"github.com/starford/saffi/internal/names"
)

// Delimiter opens and closes a metadata block when it stands alone on a line.
const Delimiter = "---"

var (
	ErrMissingFrontmatter   = errors.New("document does not begin with frontmatter")
	ErrMalformedFrontmatter = errors.New("frontmatter is not closed")
)

// DecodeError reports a metadata block that does not fit its target shape:
// an unknown field, a wrong type, or a missing required field.
type DecodeError struct {
	Block int // 1-based position of the block in the document
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("frontmatter block %d: %v", e.Block, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// PageMetadata is the frontmatter of an ordinary page.
type PageMetadata struct {
	Title string `toml:"title"`
	Draft bool   `toml:"draft"`
}

// Validate validates the page metadata.
func (m *PageMetadata) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.Title, validation.Required),
	)
}

// PostFrontmatter is the first metadata block of a post. Its tags are shared
// by every entry when the post turns out to be a thread.
type PostFrontmatter struct {
	Draft bool            `toml:"draft"`
	Tags  []names.TagName `toml:"tags"`
}

// EntryFrontmatter is every metadata block after the first in a thread.
type EntryFrontmatter struct {
	Draft bool            `toml:"draft"`
	Date  *toml.LocalDate `toml:"date"`
}

// Validate validates the thread entry metadata.
func (m *EntryFrontmatter) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.Date, validation.Required),
	)
}

// Segment is one metadata block and the markdown body following it.
type Segment struct {
	Meta string
	Body string
}

// Entry is one dated section of a post.
type Entry struct {
	Draft bool
	Date  time.Time
	Body  string
}

// Post is a parsed post file. A single post has exactly one entry; a thread
// has two or more, in document order.
type Post struct {
	Tags    []names.TagName
	Entries []Entry
}

// IsThread reports whether the post holds more than one entry.
func (p *Post) IsThread() bool { return len(p.Entries) > 1 }

func isDelimiter(line string) bool {
	return strings.TrimRight(line, " \t\r\n") == Delimiter
}

// nextDelimiter returns the index of the first delimiter line at or after from.
func nextDelimiter(lines []string, from int) int {
	for i := from; i < len(lines); i++ {
		if isDelimiter(lines[i]) {
			return i
		}
	}
	return -1
}

func splitHead(doc string) (meta string, lines []string, rest int, err error) {
	doc = strings.TrimPrefix(doc, "\uFEFF")
	lines = strings.SplitAfter(doc, "\n")
	if len(lines) == 0 || !isDelimiter(lines[0]) {
		return "", nil, 0, ErrMissingFrontmatter
	}
	closing := nextDelimiter(lines, 1)
	if closing < 0 {
		return "", nil, 0, ErrMalformedFrontmatter
	}
	return strings.Join(lines[1:closing], ""), lines, closing + 1, nil
}

// Split breaks doc into metadata/body segments. The first segment always
// exists; each later one is opened by a delimiter line and closed by the next
// delimiter line. A trailing unmatched delimiter stays part of the body.
func Split(doc string) ([]Segment, error) {
	meta, lines, pos, err := splitHead(doc)
	if err != nil {
		return nil, err
	}
	var segments []Segment
	for {
		open := nextDelimiter(lines, pos)
		if open < 0 {
			break
		}
		closing := nextDelimiter(lines, open+1)
		if closing < 0 {
			break
		}
		segments = append(segments, Segment{Meta: meta, Body: strings.Join(lines[pos:open], "")})
		meta = strings.Join(lines[open+1:closing], "")
		pos = closing + 1
	}
	segments = append(segments, Segment{Meta: meta, Body: strings.Join(lines[pos:], "")})
	return segments, nil
}

// Decode strictly decodes a TOML metadata block into v and runs its
// validation rules when v implements validation.Validatable.
func Decode(meta string, v any) error {
	dec := toml.NewDecoder(strings.NewReader(meta))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if val, ok := v.(validation.Validatable); ok {
		return val.Validate()
	}
	return nil
}

// ParsePage parses a page document. Only the leading block is metadata;
// everything after it is the body.
func ParsePage(doc string) (PageMetadata, string, error) {
	var md PageMetadata
	meta, lines, pos, err := splitHead(doc)
	if err != nil {
		return md, "", err
	}
	if err := Decode(meta, &md); err != nil {
		return md, "", &DecodeError{Block: 1, Err: err}
	}
	return md, strings.Join(lines[pos:], ""), nil
}

// ParsePost parses a post document whose filename carries date. One metadata
// block yields a single post; more blocks turn the document into a thread
// whose tags come from the first block only.
func ParsePost(doc string, date time.Time) (*Post, error) {
	segments, err := Split(doc)
	if err != nil {
		return nil, err
	}

	var first PostFrontmatter
	if err := Decode(segments[0].Meta, &first); err != nil {
		return nil, &DecodeError{Block: 1, Err: err}
	}

	post := &Post{
		Tags:    first.Tags,
		Entries: make([]Entry, 0, len(segments)),
	}
	post.Entries = append(post.Entries, Entry{Draft: first.Draft, Date: date, Body: segments[0].Body})

	for i, seg := range segments[1:] {
		var em EntryFrontmatter
		if err := Decode(seg.Meta, &em); err != nil {
			return nil, &DecodeError{Block: i + 2, Err: err}
		}
		post.Entries = append(post.Entries, Entry{
			Draft: em.Draft,
			Date:  em.Date.AsTime(time.UTC),
			Body:  seg.Body,
		})
	}
	return post, nil
}
