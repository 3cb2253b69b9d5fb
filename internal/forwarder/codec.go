package forwarder

import (
	"encoding/binary"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/yusing/fswatch-forward/internal/config/types"
	"github.com/yusing/fswatch-forward/internal/gperr"
	"github.com/yusing/fswatch-forward/internal/watcher/events"
)

// Codec appends the wire form of an event to a buffer.
type Codec interface {
	Name() string
	Append(buf []byte, ev events.ChangeEvent) ([]byte, error)
}

type (
	// listenCodec frames each change as a 4-byte big-endian length followed by
	// a JSON array: [type, change, root, relative path, options].
	listenCodec struct{}
	// jsonlCodec writes one JSON object per line.
	jsonlCodec struct{}

	jsonlRecord struct {
		Path    string    `json:"path"`
		Kind    string    `json:"kind"`
		OldPath string    `json:"old_path,omitempty"`
		Dir     bool      `json:"dir"`
		Root    string    `json:"root"`
		Time    time.Time `json:"time"`
	}
)

var ErrUnknownCodec = gperr.New("unknown codec")

func NewCodec(name string) (Codec, gperr.Error) {
	switch name {
	case types.CodecListen, "":
		return listenCodec{}, nil
	case types.CodecJSONL:
		return jsonlCodec{}, nil
	default:
		return nil, gperr.ErrConfiguration.With(ErrUnknownCodec.Subject(name))
	}
}

func (listenCodec) Name() string { return types.CodecListen }

func (c listenCodec) Append(buf []byte, ev events.ChangeEvent) ([]byte, error) {
	if ev.Kind == events.Renamed {
		var err error
		buf, err = c.appendFrame(buf, ev.Root, ev.OldPath, "removed", ev.IsDir)
		if err != nil {
			return buf, err
		}
		return c.appendFrame(buf, ev.Root, ev.Path, "added", ev.IsDir)
	}
	return c.appendFrame(buf, ev.Root, ev.Path, ev.Kind.String(), ev.IsDir)
}

func (listenCodec) appendFrame(buf []byte, root, path, change string, isDir bool) ([]byte, error) {
	typ := "file"
	if isDir {
		typ = "dir"
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	payload, err := json.Marshal([]any{typ, change, root, filepath.ToSlash(rel), struct{}{}})
	if err != nil {
		return buf, err
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(payload))) //nolint:gosec
	return append(buf, payload...), nil
}

func (jsonlCodec) Name() string { return types.CodecJSONL }

func (jsonlCodec) Append(buf []byte, ev events.ChangeEvent) ([]byte, error) {
	line, err := json.Marshal(jsonlRecord{
		Path:    ev.Path,
		Kind:    ev.Kind.String(),
		OldPath: ev.OldPath,
		Dir:     ev.IsDir,
		Root:    ev.Root,
		Time:    ev.Time,
	})
	if err != nil {
		return buf, err
	}
	buf = append(buf, line...)
	return append(buf, '\n'), nil
}
