package diagnostics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/api-replay/internal/jsonvalue"
	"github.com/any-hub/api-replay/internal/models"
)

func TestFindPathsNestedObject(t *testing.T) {
	body := jsonvalue.MustParse(`{"key1":{"a":"no","b":"a test"},"key2":"the test"}`)
	matches := FindPaths(body, "test")
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %+v", matches)
	}
	if matches[0].Path != ".key1.b" || matches[0].Value.String() != `"a test"` {
		t.Fatalf("unexpected first match: %+v", matches[0])
	}
	if matches[1].Path != ".key2" || matches[1].Value.String() != `"the test"` {
		t.Fatalf("unexpected second match: %+v", matches[1])
	}
}

func bodyWithMatches(n int) jsonvalue.Value {
	items := make([]jsonvalue.Value, n)
	for i := range items {
		items[i] = jsonvalue.String(fmt.Sprintf("needle-%d", i))
	}
	return jsonvalue.Object(jsonvalue.Member{Key: "items", Value: jsonvalue.Array(items...)})
}

func TestDeveloperHelpEmitsExactlyOneNotice(t *testing.T) {
	cases := []struct {
		matches int
		want    HelpKind
	}{
		{matches: 0, want: HelpNoMatch},
		{matches: 1, want: HelpSnippet},
		{matches: MatchCeiling, want: HelpSnippet},
		{matches: MatchCeiling + 1, want: HelpTooMany},
	}
	for _, tc := range cases {
		var sink Collector
		kind := DeveloperHelp(&sink, HelpInput{
			ID:       "responseFor1",
			Body:     bodyWithMatches(tc.matches),
			FilePath: "responses/responseFor1.json",
			Find:     "needle",
		})
		if kind != tc.want {
			t.Fatalf("%d matches: kind = %s, want %s", tc.matches, kind, tc.want)
		}
		if got := len(sink.Notices()); got != 1 {
			t.Fatalf("%d matches: expected exactly one notice, got %d", tc.matches, got)
		}
	}
}

func TestDeveloperHelpSilentWithoutSearch(t *testing.T) {
	var sink Collector
	if kind := DeveloperHelp(&sink, HelpInput{Body: bodyWithMatches(3)}); kind != HelpNone {
		t.Fatalf("expected no help, got %s", kind)
	}
	if len(sink.Notices()) != 0 {
		t.Fatalf("no notice expected without search term")
	}
}

func TestOverwriteSnippetListsPaths(t *testing.T) {
	body := jsonvalue.MustParse(`{"data":{"name":"test user"}}`)
	var sink Collector
	DeveloperHelp(&sink, HelpInput{
		ID:        "responseFor42",
		Body:      body,
		FilePath:  "responses/responseFor42.json",
		Find:      "test",
		AdminBase: "http://localhost:9000/",
	})
	notice := sink.Notices()[0]
	if !strings.Contains(notice, `responseFor42.body.data.name = "test user"`) {
		t.Fatalf("snippet missing assignment line:\n%s", notice)
	}
	if !strings.Contains(notice, "curl -X PATCH http://localhost:9000/-/overwrites") {
		t.Fatalf("snippet missing admin hint:\n%s", notice)
	}
}

func TestTooManyNoticeText(t *testing.T) {
	got := TooManyNotice(81, "x", 80, "r/a.json")
	want := `81 paths in the API response stored in "r/a.json" found for "x" (For under 80 matches you'll see paths listed here)`
	if got != want {
		t.Fatalf("unexpected text:\n%s", got)
	}
}

func TestErrorNotices(t *testing.T) {
	withMessages := &models.Response{Status: 200, Body: jsonvalue.MustParse(`{"errors":[{"message":"boom"},{"code":1}]}`)}
	notices := ErrorNotices(withMessages, "r/a.json")
	if len(notices) != 2 {
		t.Fatalf("expected one notice per error, got %d", len(notices))
	}
	if !strings.HasPrefix(notices[0], "Error! Status 200 boom in r/a.json") {
		t.Fatalf("unexpected notice: %s", notices[0])
	}

	plain := &models.Response{Status: 503, Body: jsonvalue.MustParse(`{}`)}
	notices = ErrorNotices(plain, "r/b.json")
	if len(notices) != 1 || !strings.Contains(notices[0], "Server Error") {
		t.Fatalf("expected Server Error fallback, got %v", notices)
	}
	if !strings.Contains(notices[0], "RELOAD_RESPONSES_WITH_ERRORS") || !strings.Contains(notices[0], "hideErrors") {
		t.Fatalf("notice should explain reload and hide options: %s", notices[0])
	}

	ok := &models.Response{Status: 200, Body: jsonvalue.MustParse(`{"data":1}`)}
	if got := ErrorNotices(ok, "r/c.json"); got != nil {
		t.Fatalf("successful response should not produce notices: %v", got)
	}
}

func TestReplacementCharNotice(t *testing.T) {
	if _, ok := ReplacementCharNotice(`{"a":"clean"}`, "r/a.json"); ok {
		t.Fatalf("clean body should not alert")
	}
	one, ok := ReplacementCharNotice("{\"a\":\"bad �\"}", "r/a.json")
	if !ok || one != "WARNING replacement-char � in r/a.json" {
		t.Fatalf("unexpected single alert: %q", one)
	}
	many, _ := ReplacementCharNotice(strings.Repeat("�", 120), "r/a.json")
	if !strings.HasPrefix(many, "WARNING replacement-chars ") || !strings.HasSuffix(many, "... in r/a.json") {
		t.Fatalf("long alert should be truncated: %q", many)
	}
}

func TestLogSinkWritesStructuredNotice(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	NewLogSink(logger).Notify("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log entry is not json: %v (%s)", err, buf.String())
	}
	if entry["action"] != "api_notice" || entry["msg"] != "hello" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}
