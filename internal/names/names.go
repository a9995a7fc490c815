// Package names defines the validated identifiers used to key site content:
// group names, tag names and page names.
package names

import (
	"fmt"

	"github.com/google/uuid"
)

// InvalidCharError reports the first disallowed character found in a raw name.
type InvalidCharError struct {
	Kind string // "group", "tag" or "page"
	Raw  string
	Char rune
}

func (e *InvalidCharError) Error() string {
	return fmt.Sprintf("%s name %q contains invalid char %q", e.Kind, e.Raw, e.Char)
}

func isLowerAlpha(c rune) bool { return c >= 'a' && c <= 'z' }

func isDigit(c rune) bool { return c >= '0' && c <= '9' }

// firstInvalid returns the first rune in raw rejected by allowed.
func firstInvalid(raw string, allowed func(rune) bool) (rune, bool) {
	for _, c := range raw {
		if !allowed(c) {
			return c, true
		}
	}
	return 0, false
}

func groupChar(c rune) bool { return isLowerAlpha(c) || c == '-' }

func pageChar(c rune) bool { return isLowerAlpha(c) || isDigit(c) || c == '-' }

// GroupName names a first-level content directory. The zero value is Root,
// the group of files placed directly under the content root.
type GroupName struct {
	name  string
	named bool
}

// Root is the group of content placed directly under the content root.
var Root = GroupName{}

// ParseGroupName validates raw as a named group: lowercase ASCII letters and dashes.
func ParseGroupName(raw string) (GroupName, error) {
	if c, bad := firstInvalid(raw, groupChar); bad {
		return GroupName{}, &InvalidCharError{Kind: "group", Raw: raw, Char: c}
	}
	return GroupName{name: raw, named: true}, nil
}

// IsRoot reports whether g is the root group.
func (g GroupName) IsRoot() bool { return !g.named }

// String returns the group's name, or "" for Root.
func (g GroupName) String() string { return g.name }

// TagName is a validated tag: lowercase ASCII letters and dashes.
type TagName string

// ParseTagName validates raw as a tag name.
func ParseTagName(raw string) (TagName, error) {
	if c, bad := firstInvalid(raw, groupChar); bad {
		return "", &InvalidCharError{Kind: "tag", Raw: raw, Char: c}
	}
	return TagName(raw), nil
}

// UnmarshalText lets metadata decoders validate tags while decoding.
func (t *TagName) UnmarshalText(text []byte) error {
	parsed, err := ParseTagName(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t TagName) String() string { return string(t) }

// PageName identifies a page within its group. It is either a named page
// (lowercase ASCII letters, digits and dashes) or a group's index page, which
// carries a generated id rather than anything derived from a filename.
type PageName struct {
	index uuid.UUID
	name  string
}

// NewIndexPageName returns a fresh index page name.
func NewIndexPageName() PageName {
	return PageName{index: uuid.New()}
}

// ParsePageName validates raw as a named page.
func ParsePageName(raw string) (PageName, error) {
	if c, bad := firstInvalid(raw, pageChar); bad {
		return PageName{}, &InvalidCharError{Kind: "page", Raw: raw, Char: c}
	}
	return PageName{name: raw}, nil
}

// IsIndex reports whether p is a group index page name.
func (p PageName) IsIndex() bool { return p.index != uuid.Nil }

// String returns the page's name; index pages render as "_index".
func (p PageName) String() string {
	if p.IsIndex() {
		return "_index"
	}
	return p.name
}

// ID returns the generated id of an index page name, or uuid.Nil.
func (p PageName) ID() uuid.UUID { return p.index }
