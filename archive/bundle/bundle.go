// Package bundle moves archived events between archives as a deterministic
// TAR file: one events/<cid> entry per event plus an index.json listing the
// events in log order.
package bundle

import (
	"archive/tar"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/archive"
	"xdao.co/custodian/ledger"
)

const FormatVersion = 1

const indexName = "index.json"

var epoch0 = time.Unix(0, 0).UTC()

// Ref locates one archived event.
type Ref struct {
	Seq uint64
	CID cid.Cid
}

type index struct {
	Version int          `json:"version"`
	Events  []indexEntry `json:"events"`
}

type indexEntry struct {
	Seq  uint64 `json:"seq"`
	CID  string `json:"cid"`
	Op   string `json:"op"`
	Size int    `json:"size"`
}

// Export writes the referenced events, read from c, as a bundle. The output
// depends only on the set of refs, not their order.
func Export(w io.Writer, c archive.CAS, refs []Ref) error {
	if c == nil {
		return errors.New("bundle: nil archive")
	}
	sorted := append([]Ref(nil), refs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	tw := tar.NewWriter(w)
	idx := index{Version: FormatVersion, Events: make([]indexEntry, 0, len(sorted))}
	written := map[cid.Cid]bool{}
	for i, ref := range sorted {
		if i > 0 && sorted[i-1].Seq == ref.Seq {
			_ = tw.Close()
			return fmt.Errorf("bundle: duplicate seq %d", ref.Seq)
		}
		if !ref.CID.Defined() {
			_ = tw.Close()
			return archive.ErrInvalidCID
		}
		ev, b, err := load(c, ref.CID)
		if err != nil {
			_ = tw.Close()
			return fmt.Errorf("bundle: event %d: %w", ref.Seq, err)
		}
		if !written[ref.CID] {
			if err := writeFile(tw, "events/"+ref.CID.String(), b); err != nil {
				_ = tw.Close()
				return err
			}
			written[ref.CID] = true
		}
		idx.Events = append(idx.Events, indexEntry{Seq: ref.Seq, CID: ref.CID.String(), Op: string(ev.Op), Size: len(b)})
	}

	b, err := json.Marshal(idx)
	if err != nil {
		_ = tw.Close()
		return err
	}
	if err := writeFile(tw, indexName, append(b, '\n')); err != nil {
		_ = tw.Close()
		return err
	}
	return tw.Close()
}

func load(c archive.CAS, id cid.Cid) (ledger.Event, []byte, error) {
	b, err := c.Get(id)
	if err != nil {
		return ledger.Event{}, nil, err
	}
	got, err := addressing.CID(b)
	if err != nil {
		return ledger.Event{}, nil, err
	}
	if got != id {
		return ledger.Event{}, nil, archive.ErrCIDMismatch
	}
	ev, err := ledger.DecodeEvent(0, b)
	return ev, b, err
}

// Import verifies every event entry against its name, writes it to c and
// returns the index. Entries other than events/ and index.json are rejected.
func Import(r io.Reader, c archive.CAS) ([]Ref, error) {
	if c == nil {
		return nil, errors.New("bundle: nil archive")
	}
	tr := tar.NewReader(r)
	seen := map[cid.Cid]bool{}
	var idx *index
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if h.Typeflag != tar.TypeReg {
			return nil, fmt.Errorf("bundle: unexpected entry type %v (%s)", h.Typeflag, h.Name)
		}
		name := cleanPath(h.Name)
		switch {
		case name == indexName:
			idx = &index{}
			if err := json.NewDecoder(tr).Decode(idx); err != nil {
				return nil, fmt.Errorf("bundle: index: %w", err)
			}
		case strings.HasPrefix(name, "events/"):
			id, err := cid.Decode(strings.TrimPrefix(name, "events/"))
			if err != nil || !id.Defined() {
				return nil, archive.ErrInvalidCID
			}
			if seen[id] {
				return nil, fmt.Errorf("bundle: duplicate entry %s", id)
			}
			payload, err := io.ReadAll(tr)
			if err != nil {
				return nil, err
			}
			got, err := addressing.CID(payload)
			if err != nil {
				return nil, err
			}
			if got != id {
				return nil, archive.ErrCIDMismatch
			}
			if _, err := ledger.DecodeEvent(0, payload); err != nil {
				return nil, fmt.Errorf("bundle: %s: %w", id, err)
			}
			if _, err := c.Put(payload); err != nil {
				return nil, err
			}
			seen[id] = true
		default:
			return nil, fmt.Errorf("bundle: unknown entry %q", h.Name)
		}
	}
	if idx == nil {
		return nil, errors.New("bundle: missing index.json")
	}
	if idx.Version != FormatVersion {
		return nil, fmt.Errorf("bundle: unsupported version %d", idx.Version)
	}
	refs := make([]Ref, 0, len(idx.Events))
	for _, e := range idx.Events {
		id, err := cid.Decode(e.CID)
		if err != nil {
			return nil, archive.ErrInvalidCID
		}
		if !seen[id] {
			return nil, fmt.Errorf("bundle: index names missing event %s", e.CID)
		}
		refs = append(refs, Ref{Seq: e.Seq, CID: id})
	}
	return refs, nil
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(content)
	return err
}

func cleanPath(name string) string {
	name = strings.TrimPrefix(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"), "./")
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
