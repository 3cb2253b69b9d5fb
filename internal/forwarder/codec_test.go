package forwarder

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/yusing/fswatch-forward/internal/gperr"
	. "github.com/yusing/fswatch-forward/internal/utils/testing"
	"github.com/yusing/fswatch-forward/internal/watcher/events"
)

func readListenFrame(t *testing.T, r io.Reader) []any {
	t.Helper()
	var size uint32
	ExpectNoError(t, binary.Read(r, binary.BigEndian, &size))
	payload := make([]byte, size)
	_, err := io.ReadFull(r, payload)
	ExpectNoError(t, err)
	var msg []any
	ExpectNoError(t, json.Unmarshal(payload, &msg))
	return msg
}

func TestListenCodec(t *testing.T) {
	codec, err := NewCodec("listen")
	ExpectNoError(t, err)

	var buf []byte
	for _, e := range []events.ChangeEvent{
		{Root: "/app/src", Path: "/app/src/a/b.rb", Kind: events.Modified},
		{Root: "/app/src", Path: "/app/src/new", Kind: events.Added, IsDir: true},
		{Root: "/app/src", Path: "/app/src/y.rb", OldPath: "/app/src/x.rb", Kind: events.Renamed},
	} {
		var err error
		buf, err = codec.Append(buf, e)
		ExpectNoError(t, err)
	}

	r := bytes.NewReader(buf)
	ExpectDeepEqual(t, readListenFrame(t, r), []any{"file", "modified", "/app/src", "a/b.rb", map[string]any{}})
	ExpectDeepEqual(t, readListenFrame(t, r), []any{"dir", "added", "/app/src", "new", map[string]any{}})
	ExpectDeepEqual(t, readListenFrame(t, r), []any{"file", "removed", "/app/src", "x.rb", map[string]any{}})
	ExpectDeepEqual(t, readListenFrame(t, r), []any{"file", "added", "/app/src", "y.rb", map[string]any{}})
	ExpectEqual(t, r.Len(), 0)
}

func TestJSONLCodec(t *testing.T) {
	codec, err := NewCodec("jsonl")
	ExpectNoError(t, err)

	now := time.Date(2024, 5, 1, 12, 0, 0, 123, time.UTC)
	var buf []byte
	buf, encErr := codec.Append(buf, events.ChangeEvent{Root: "/r", Path: "/r/b", OldPath: "/r/a", Kind: events.Renamed, Time: now})
	ExpectNoError(t, encErr)
	buf, encErr = codec.Append(buf, events.ChangeEvent{Root: "/r", Path: "/r/c", Kind: events.Removed, IsDir: true, Time: now})
	ExpectNoError(t, encErr)

	s := bufio.NewScanner(bytes.NewReader(buf))
	var records []map[string]any
	for s.Scan() {
		var rec map[string]any
		ExpectNoError(t, json.Unmarshal(s.Bytes(), &rec))
		records = append(records, rec)
	}
	ExpectEqual(t, len(records), 2)
	ExpectDeepEqual(t, records[0], map[string]any{
		"path": "/r/b", "kind": "renamed", "old_path": "/r/a", "dir": false, "root": "/r",
		"time": "2024-05-01T12:00:00.000000123Z",
	})
	_, hasOld := records[1]["old_path"]
	ExpectFalse(t, hasOld)
	ExpectEqual(t, records[1]["dir"], any(true))
}

func TestUnknownCodec(t *testing.T) {
	_, err := NewCodec("xml")
	ExpectError(t, gperr.ErrConfiguration, err)
	ExpectError(t, ErrUnknownCodec, err)
}
