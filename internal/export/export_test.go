package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/followgc/followgc/internal/github"
	"github.com/followgc/followgc/internal/store"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	if f, err := ParseFormat("csv"); err != nil || f != FormatCSV {
		t.Errorf("ParseFormat(csv) = %v, %v", f, err)
	}

	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, %v", f, err)
	}

	for _, bad := range []string{"", "xml", "CSV"} {
		if _, err := ParseFormat(bad); err == nil {
			t.Errorf("ParseFormat(%q) should fail", bad)
		}
	}
}

func TestWriteUsersCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	users := []github.User{
		{Login: "a", ProfileURL: "https://github.com/a"},
		{Login: "b", ProfileURL: "https://github.com/b"},
	}

	if err := WriteUsers(&buf, FormatCSV, users); err != nil {
		t.Fatalf("WriteUsers: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading csv back: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}

	if rows[0][0] != "login" || rows[0][1] != "profile_url" {
		t.Errorf("header = %v", rows[0])
	}

	if rows[1][0] != "a" || rows[2][1] != "https://github.com/b" {
		t.Errorf("rows = %v", rows[1:])
	}
}

func TestWriteUsersJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	if err := WriteUsers(&buf, FormatJSON, []github.User{{Login: "a"}}); err != nil {
		t.Fatalf("WriteUsers: %v", err)
	}

	var decoded []github.User
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding: %v", err)
	}

	if len(decoded) != 1 || decoded[0].Login != "a" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteEventsCSVRoundTripsTimestamps(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ts := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	events := []store.Event{{
		ID:        "id-1",
		Username:  "octocat",
		Action:    "unfollow",
		Timestamp: ts,
		Simulated: true,
	}}

	if err := WriteEvents(&buf, FormatCSV, events); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading csv back: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}

	parsed, err := time.Parse(time.RFC3339Nano, rows[1][3])
	if err != nil {
		t.Fatalf("parsing timestamp %q: %v", rows[1][3], err)
	}

	if !parsed.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", parsed, ts)
	}

	if rows[1][5] != "true" {
		t.Errorf("simulated column = %q, want true", rows[1][5])
	}
}

func TestWriteEventsJSONOmitsEmptySourceList(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	events := []store.Event{{ID: "id-1", Username: "a", Action: "follow", Timestamp: time.Now()}}

	if err := WriteEvents(&buf, FormatJSON, events); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}

	if strings.Contains(buf.String(), "sourceListId") {
		t.Errorf("empty source list should be omitted: %s", buf.String())
	}
}
