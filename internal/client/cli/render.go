package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/syqdur/wedpxres-sub001/internal/client/grouping"
	"github.com/syqdur/wedpxres-sub001/internal/client/playback"
)

// renderGroups prints the entry bar: one line per author, newest first,
// with an unseen marker.
func renderGroups(w io.Writer, groups []grouping.StoryGroup) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No active stories.")
		return
	}

	for i, g := range groups {
		marker := " "
		if g.HasUnviewed {
			marker = "*"
		}
		fmt.Fprintf(w, "%2d. %s %s (%d stories, latest %s)\n",
			i+1, marker, g.UserName, len(g.Stories), g.Latest().CreatedAt.Format("15:04:05"))
	}
}

// renderPlayback prints a one-line progress bar for the current story,
// rewriting the same terminal line.
func renderPlayback(w io.Writer, userName string, snap playback.Snapshot, total int) {
	const width = 30

	filled := int(snap.Progress / 100 * width)
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("=", filled) + strings.Repeat("-", width-filled)

	state := ""
	switch snap.State {
	case playback.StatePaused:
		state = " [paused]"
	case playback.StateLoading:
		state = " [loading]"
	}

	fmt.Fprintf(w, "\r%s %d/%d [%s]%s  ", userName, snap.Index+1, total, bar, state)
}
