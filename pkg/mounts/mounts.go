package mounts

import (
	"bufio"
	"io"
	"os"
	"strings"

	internalUtils "github.com/instkit/instclean/internal/utils"
	"github.com/moby/sys/mountinfo"
)

// Entry is one line of the live mount table.
type Entry struct {
	Device     string
	Mountpoint string
	Rest       string
}

// ParseTable parses a text mount table, one `device mountpoint rest...` entry
// per line, preserving line order.
func ParseTable(r io.Reader) []Entry {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		dat := strings.SplitN(scanner.Text(), " ", 3)
		if len(dat) < 2 {
			continue
		}
		e := Entry{Device: dat[0], Mountpoint: dat[1]}
		if len(dat) == 3 {
			e.Rest = dat[2]
		}
		entries = append(entries, e)
	}
	return entries
}

// LiveEntries returns the current mount table, oldest mount first.
// The kernel emits entries in mount-chronological order, which the unwinder
// relies on to unmount in reverse.
func LiveEntries() ([]Entry, error) {
	if over := os.Getenv("HOST_PROC_MOUNTS"); over != "" {
		f, err := os.Open(over)
		if err != nil {
			return nil, err
		}
		defer func(f *os.File) {
			_ = f.Close()
		}(f)
		return ParseTable(f), nil
	}

	infos, err := mountinfo.GetMounts(nil)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(infos))
	for _, i := range infos {
		entries = append(entries, Entry{
			Device:     i.Source,
			Mountpoint: i.Mountpoint,
			Rest:       strings.TrimSpace(i.FSType + " " + i.Options),
		})
	}
	internalUtils.Log.Debug().Int("entries", len(entries)).Msg("Read live mount table")
	return entries, nil
}
