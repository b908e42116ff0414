package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ipfs/go-cid"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/archive"
	"xdao.co/custodian/archive/bundle"
	"xdao.co/custodian/archive/localfs"
	"xdao.co/custodian/ledger"
	"xdao.co/custodian/model"
	"xdao.co/custodian/rpc"
)

// cmdExport pages through the event log of a running daemon and writes the
// archived events as a bundle. Events missing from the archive directory are
// rebuilt from the log and archived first.
func cmdExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(errOut)
	addr, timeout := dialFlags(fs)
	dir := fs.String("archive-dir", "", "Event archive directory")
	outPath := fs.String("out", "-", "Bundle file, or - for stdout")
	after := fs.Uint64("after", 0, "Only events with a larger sequence number")
	limit := fs.Int("limit", 0, "Maximum events to export (0 = all)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *dir == "" {
		fmt.Fprintln(errOut, "--archive-dir is required")
		return 2
	}
	cas, err := localfs.Open(*dir)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	client, err := rpc.Dial(*addr, rpc.DialOptions{Timeout: *timeout})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer client.Close()

	refs, err := collectRefs(context.Background(), client, cas, *after, *limit)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	w := out
	if *outPath != "-" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		defer f.Close()
		w = f
	}
	if err := bundle.Export(w, cas, refs); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintf(errOut, "exported %d events\n", len(refs))
	return 0
}

func collectRefs(ctx context.Context, client *rpc.Client, cas archive.CAS, after uint64, limit int) ([]bundle.Ref, error) {
	var refs []bundle.Ref
	for limit <= 0 || len(refs) < limit {
		page := rpc.MaxEventsPage
		if limit > 0 && limit-len(refs) < page {
			page = limit - len(refs)
		}
		evs, err := client.Events(ctx, after, page)
		if err != nil {
			return nil, err
		}
		for _, e := range evs {
			id, err := cid.Decode(e.CID)
			if err != nil {
				return nil, fmt.Errorf("event %d: %w", e.Seq, err)
			}
			if !cas.Has(id) {
				if err := backfill(ctx, cas, e); err != nil {
					return nil, fmt.Errorf("event %d: %w", e.Seq, err)
				}
			}
			refs = append(refs, bundle.Ref{Seq: e.Seq, CID: id})
			after = e.Seq
		}
		if len(evs) < page {
			break
		}
	}
	return refs, nil
}

func backfill(ctx context.Context, cas archive.CAS, e model.Event) error {
	ev := ledger.Event{Seq: e.Seq, Op: ledger.Op(e.Op), Message: e.Message}
	var err error
	if ev.Asset, err = addressing.Parse(e.Asset); err != nil {
		return err
	}
	if ev.Caller, err = addressing.Parse(e.Caller); err != nil {
		return err
	}
	if e.Holding != "" {
		if ev.Holding, err = addressing.Parse(e.Holding); err != nil {
			return err
		}
	}
	id, err := ev.ID()
	if err != nil {
		return err
	}
	if id.String() != e.CID {
		return archive.ErrCIDMismatch
	}
	return archive.Sink{CAS: cas}.Publish(ctx, ev)
}

func cmdImport(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(errOut)
	dir := fs.String("archive-dir", "", "Event archive directory")
	inPath := fs.String("in", "-", "Bundle file, or - for stdin")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *dir == "" {
		fmt.Fprintln(errOut, "--archive-dir is required")
		return 2
	}
	cas, err := localfs.Open(*dir)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	r := in
	if *inPath != "-" {
		f, err := os.Open(*inPath)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		defer f.Close()
		r = f
	}
	refs, err := bundle.Import(r, cas)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	for _, ref := range refs {
		fmt.Fprintf(out, "%d\t%s\n", ref.Seq, ref.CID)
	}
	return 0
}
