package jsonvalue

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParsePreservesOrderAndNumbers(t *testing.T) {
	v, err := Parse([]byte(`{"z":1.50,"a":[true,null,"x"],"m":{"k":-0}}`))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if got := v.String(); got != `{"z":1.50,"a":[true,null,"x"],"m":{"k":-0}}` {
		t.Fatalf("unexpected encoding: %s", got)
	}
	members := v.Members()
	if len(members) != 3 || members[0].Key != "z" || members[2].Key != "m" {
		t.Fatalf("member order lost: %+v", members)
	}
}

func TestParseDuplicateKeyKeepsFirstPosition(t *testing.T) {
	v := MustParse(`{"a":1,"b":2,"a":3}`)
	if got := v.String(); got != `{"a":3,"b":2}` {
		t.Fatalf("duplicate key handling mismatch: %s", got)
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	if _, err := Parse([]byte(`{} {}`)); err == nil {
		t.Fatalf("expected error for trailing data")
	}
	if _, err := Parse([]byte(`{"a":`)); err == nil {
		t.Fatalf("expected error for truncated input")
	}
}

func TestQuoteMatchesJSONStringify(t *testing.T) {
	cases := map[string]string{
		"plain":       `"plain"`,
		"<a&b>":       `"<a&b>"`,
		"line\nbreak": `"line\nbreak"`,
		"tab\tq\"":    `"tab\tq\""`,
		"\x01":        `"\u0001"`,
		"\u2028":      "\"\u2028\"",
		"ünïcödé":     `"ünïcödé"`,
		`back\slash`:  `"back\\slash"`,
	}
	for in, want := range cases {
		if got := Quote(in); got != want {
			t.Fatalf("Quote(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := MustParse(`{"list":[{"n":1}]}`)
	clone := orig.Clone()
	clone.members[0].Value.items[0].members[0].Value = Int(2)
	if orig.String() != `{"list":[{"n":1}]}` {
		t.Fatalf("clone shares storage with original: %s", orig)
	}
}

func TestGetAndHas(t *testing.T) {
	v := MustParse(`{"errors":null,"data":{}}`)
	if !v.Has("errors") {
		t.Fatalf("null member should still be present")
	}
	if _, ok := v.Get("missing"); ok {
		t.Fatalf("missing key reported present")
	}
	if String("x").Has("x") {
		t.Fatalf("scalar should not have members")
	}
}

func TestJSONMarshalerRoundTrip(t *testing.T) {
	type wrapper struct {
		Body Value `json:"body"`
	}
	var w wrapper
	if err := json.Unmarshal([]byte(`{"body":{"b":1,"a":2}}`), &w); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	out, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if string(out) != `{"body":{"b":1,"a":2}}` {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestFindPaths(t *testing.T) {
	body := MustParse(`{"key1":{"a":"nope","b":["test",1,"a test",["test2",{"something":[0,"xtest"],"value":"test"}]],"c":null}}`)
	matches := body.Find("test")
	want := []string{
		".key1.b[0]",
		".key1.b[2]",
		".key1.b[3][0]",
		".key1.b[3][1].something[1]",
		".key1.b[3][1].value",
	}
	if len(matches) != len(want) {
		t.Fatalf("expected %d matches, got %d: %+v", len(want), len(matches), matches)
	}
	for i, m := range matches {
		if m.Path != want[i] {
			t.Fatalf("match %d path = %s, want %s", i, m.Path, want[i])
		}
	}
}

func TestFindNumericKeysAndScalars(t *testing.T) {
	body := MustParse(`{"7":{"flag":true},"n":12,"z":null}`)
	matches := body.Find("true")
	if len(matches) != 1 || matches[0].Path != "[7].flag" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
	if got := body.Find("1"); len(got) != 1 || got[0].Path != ".n" {
		t.Fatalf("number scalar should match on its text: %+v", got)
	}
	if got := body.Find("null"); len(got) != 0 {
		t.Fatalf("null must never match: %+v", got)
	}
	if got := String("test").Find("test"); got != nil {
		t.Fatalf("scalar root should yield nothing: %+v", got)
	}
}

func TestPathSegmentNumericKeys(t *testing.T) {
	cases := map[string]string{
		"12":        "[12]",
		" 12":       "[ 12]",
		"12\n":      "[12\n]",
		"-1.5e3":    "[-1.5e3]",
		".5":        "[.5]",
		"1.":        "[1.]",
		"0x10":      "[0x10]",
		"0B101":     "[0B101]",
		"0o17":      "[0o17]",
		"Infinity":  "[Infinity]",
		"-Infinity": "[-Infinity]",
		"inf":       ".inf",
		"infinity":  ".infinity",
		"NaN":       ".NaN",
		"":          ".",
		"   ":       ".   ",
		"-0x10":     ".-0x10",
		"0x":        ".0x",
		"1_000":     ".1_000",
		"12px":      ".12px",
		"1e":        ".1e",
	}
	for key, want := range cases {
		if got := PathSegment(key); got != want {
			t.Errorf("PathSegment(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestFindVisitsIndexKeysFirst(t *testing.T) {
	body := MustParse(`{"b":"hit","10":"hit","a":"hit","2":"hit","01":"hit","4294967295":"hit"}`)
	matches := body.Find("hit")
	want := []string{"[2]", "[10]", ".b", ".a", "[01]", "[4294967295]"}
	if len(matches) != len(want) {
		t.Fatalf("expected %d matches, got %+v", len(want), matches)
	}
	for i, m := range matches {
		if m.Path != want[i] {
			t.Fatalf("match %d path = %s, want %s", i, m.Path, want[i])
		}
	}
}

func TestFindQuotesParticipate(t *testing.T) {
	body := MustParse(`{"a":"x"}`)
	if got := body.Find(`"x"`); len(got) != 1 {
		t.Fatalf("string scalars are matched on their JSON text: %+v", got)
	}
}

func TestFromYAMLKeepsOrderAndTypes(t *testing.T) {
	src := `
b: 1
a:
  - true
  - ~
  - 2.5
  - "text"
c: 0x10
`
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(src), &node); err != nil {
		t.Fatalf("yaml error: %v", err)
	}
	v, err := FromYAML(&node)
	if err != nil {
		t.Fatalf("convert error: %v", err)
	}
	if got := v.String(); got != `{"b":1,"a":[true,null,2.5,"text"],"c":16}` {
		t.Fatalf("unexpected conversion: %s", got)
	}
}

func TestFromYAMLRejectsNaN(t *testing.T) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte("v: .nan\n"), &node); err != nil {
		t.Fatalf("yaml error: %v", err)
	}
	if _, err := FromYAML(&node); err == nil {
		t.Fatalf("expected NaN to be rejected")
	}
}
