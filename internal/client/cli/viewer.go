package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/syqdur/wedpxres-sub001/internal/client/playback"
	"github.com/syqdur/wedpxres-sub001/internal/models"
)

// Test seams for terminal raw mode.
var (
	makeRaw     = term.MakeRaw
	restoreTerm = term.Restore
)

// OpenGroup starts a playback session over the n-th group (1-based) and
// drives it with raw-mode keys:
//
//	space  pause/resume
//	n      next story
//	p      previous story
//	d      delete the current story
//	q      close the session
func (a *App) OpenGroup(ctx context.Context, n int) error {
	groups := a.currentGroups()
	if n < 1 || n > len(groups) {
		return fmt.Errorf("no such group: %d", n)
	}
	group := groups[n-1]

	engine := playback.Open(ctx, group.Stories, 0, playback.Options{
		StoryDuration: a.config.StoryDuration,
		Preload: func(ctx context.Context, s *models.Story) error {
			return a.client.Preload(ctx, s.MediaURL)
		},
		MarkViewed: func(ctx context.Context, id string) {
			// A failed view-mark never blocks playback.
			if err := a.client.MarkViewed(ctx, id); err != nil {
				log.Printf("mark viewed %s: %v", id, err)
			}
		},
	})
	a.setEngine(engine, group.UserName)
	defer func() {
		a.setEngine(nil, "")
		engine.Close()
	}()

	fd := int(os.Stdin.Fd())
	oldState, err := makeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	defer restoreTerm(fd, oldState)

	fmt.Printf("Playing %s: space pause, n/p navigate, d delete, q quit\r\n", group.UserName)

	// The render ticker redraws the progress line while the REPL goroutine
	// sits in the blocking key read below.
	renderDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				snap := engine.State()
				if snap.State == playback.StateClosed {
					fmt.Print("\r\nSession ended, press any key.\r\n")
					return
				}
				renderPlayback(os.Stdout, group.UserName, snap, len(group.Stories))
			case <-renderDone:
				return
			}
		}
	}()
	defer close(renderDone)

	buf := make([]byte, 1)
	paused := false
	for {
		if engine.State().State == playback.StateClosed {
			return nil
		}
		if _, err := os.Stdin.Read(buf); err != nil {
			return nil
		}

		switch buf[0] {
		case ' ':
			if paused {
				engine.Resume()
			} else {
				engine.Pause()
			}
			paused = !paused

		case 'n':
			engine.Next()

		case 'p':
			engine.Previous()

		case 'd':
			snap := engine.State()
			if snap.Story != nil {
				id := snap.Story.ID
				engine.DeleteCurrent()
				if err := a.client.DeleteStory(ctx, id); err != nil {
					log.Printf("delete %s: %v", id, err)
				}
			}

		case 'q', 3: // q or Ctrl-C
			return nil
		}
	}
}
