package names

import (
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func properties(t *testing.T) *gopter.Properties {
	t.Helper()
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4269)
	parameters.MinSuccessfulTests = 200
	return gopter.NewProperties(parameters)
}

func invalidRune(allowed func(rune) bool) gopter.Gen {
	return gen.Rune().SuchThat(func(r rune) bool {
		return utf8.ValidRune(r) && !allowed(r)
	})
}

func TestGroupAndTagNameProperties(t *testing.T) {
	props := properties(t)

	props.Property("valid group names round-trip", prop.ForAll(
		func(raw string) bool {
			g, err := ParseGroupName(raw)
			return err == nil && !g.IsRoot() && g.String() == raw
		},
		gen.RegexMatch(`[a-z-]*`),
	))

	props.Property("valid tag names round-trip", prop.ForAll(
		func(raw string) bool {
			tag, err := ParseTagName(raw)
			return err == nil && tag.String() == raw
		},
		gen.RegexMatch(`[a-z-]*`),
	))

	props.Property("group name rejects the inserted char", prop.ForAll(
		func(prefix string, bad rune, suffix string) bool {
			_, err := ParseGroupName(prefix + string(bad) + suffix)
			var ice *InvalidCharError
			return errors.As(err, &ice) && ice.Char == bad && ice.Kind == "group"
		},
		gen.RegexMatch(`[a-z-]*`),
		invalidRune(groupChar),
		gen.RegexMatch(`[a-z-]*`),
	))

	props.Property("tag name rejects the inserted char", prop.ForAll(
		func(prefix string, bad rune, suffix string) bool {
			_, err := ParseTagName(prefix + string(bad) + suffix)
			var ice *InvalidCharError
			return errors.As(err, &ice) && ice.Char == bad && ice.Kind == "tag"
		},
		gen.RegexMatch(`[a-z-]*`),
		invalidRune(groupChar),
		gen.RegexMatch(`[a-z-]*`),
	))

	props.TestingRun(t)
}

func TestPageNameProperties(t *testing.T) {
	props := properties(t)

	props.Property("valid page names round-trip", prop.ForAll(
		func(raw string) bool {
			p, err := ParsePageName(raw)
			return err == nil && !p.IsIndex() && p.String() == raw
		},
		gen.RegexMatch(`[a-z0-9-]*`),
	))

	props.Property("page name rejects the inserted char", prop.ForAll(
		func(prefix string, bad rune, suffix string) bool {
			_, err := ParsePageName(prefix + string(bad) + suffix)
			var ice *InvalidCharError
			return errors.As(err, &ice) && ice.Char == bad && ice.Kind == "page"
		},
		gen.RegexMatch(`[a-z0-9-]*`),
		invalidRune(pageChar),
		gen.RegexMatch(`[a-z0-9-]*`),
	))

	props.TestingRun(t)
}

func TestParseGroupName_Digits(t *testing.T) {
	_, err := ParseGroupName("posts2")
	var ice *InvalidCharError
	if !errors.As(err, &ice) || ice.Char != '2' {
		t.Fatalf("err = %v, want invalid char '2'", err)
	}
}

func TestParsePageName_FirstInvalidReported(t *testing.T) {
	_, err := ParsePageName("Hello World")
	var ice *InvalidCharError
	if !errors.As(err, &ice) {
		t.Fatalf("err = %v, want *InvalidCharError", err)
	}
	if ice.Char != 'H' {
		t.Errorf("char = %q, want 'H'", ice.Char)
	}
	if ice.Error() != `page name "Hello World" contains invalid char 'H'` {
		t.Errorf("message = %q", ice.Error())
	}
}

func TestRootIsDistinct(t *testing.T) {
	named, err := ParseGroupName("")
	if err != nil {
		t.Fatal(err)
	}
	if named == Root {
		t.Error("named empty group must differ from Root")
	}
	if !Root.IsRoot() || named.IsRoot() {
		t.Error("IsRoot mismatch")
	}
}

func TestIndexPageNames(t *testing.T) {
	a, b := NewIndexPageName(), NewIndexPageName()
	if !a.IsIndex() || !b.IsIndex() {
		t.Fatal("expected index page names")
	}
	if a == b {
		t.Error("index page names should be unique")
	}
	if a.String() != "_index" {
		t.Errorf("String() = %q", a.String())
	}
	named, _ := ParsePageName("about")
	if named.IsIndex() {
		t.Error("named page reported as index")
	}
}

func TestTagName_UnmarshalText(t *testing.T) {
	var tag TagName
	if err := tag.UnmarshalText([]byte("go-lang")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tag != "go-lang" {
		t.Errorf("tag = %q", tag)
	}
	if err := tag.UnmarshalText([]byte("Go")); err == nil {
		t.Error("expected error for uppercase tag")
	}
}
