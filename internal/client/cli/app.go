// Package cli is the interactive story viewer: a small REPL over the story
// server with live group rendering and raw-mode playback controls.
package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/syqdur/wedpxres-sub001/internal/client/api"
	"github.com/syqdur/wedpxres-sub001/internal/client/config"
	"github.com/syqdur/wedpxres-sub001/internal/client/grouping"
	"github.com/syqdur/wedpxres-sub001/internal/client/playback"
	"github.com/syqdur/wedpxres-sub001/internal/models"
)

type App struct {
	config *config.Config
	client *api.Client

	mu       sync.Mutex
	stories  []*models.Story
	engine   *playback.Engine
	watching string
}

func NewApp(c *config.Config) (*App, error) {
	if c.DeviceID == "" {
		return nil, fmt.Errorf("device id is required (flag -d)")
	}

	return &App{
		config: c,
		client: api.New(c),
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	dispose, err := a.client.Subscribe(ctx, api.ScopeActive, a.handleSnapshot)
	if err != nil {
		return err
	}
	defer dispose()

	a.Main(ctx)
	return nil
}

// handleSnapshot stores the latest server snapshot and, if a playback
// session is open, feeds the watched author's refreshed story list into it.
func (a *App) handleSnapshot(snapshot []*models.Story) {
	a.mu.Lock()
	a.stories = snapshot
	engine := a.engine
	watching := a.watching
	a.mu.Unlock()

	if engine == nil {
		return
	}

	for _, g := range grouping.Group(snapshot, a.config.DeviceID) {
		if g.UserName == watching {
			engine.SetStories(g.Stories)
			return
		}
	}
	// The whole group is gone.
	engine.SetStories(nil)
}

func (a *App) currentGroups() []grouping.StoryGroup {
	a.mu.Lock()
	snapshot := a.stories
	a.mu.Unlock()
	return grouping.Group(snapshot, a.config.DeviceID)
}

func (a *App) setEngine(e *playback.Engine, watching string) {
	a.mu.Lock()
	a.engine = e
	a.watching = watching
	a.mu.Unlock()
}

// Upload posts a local media file as a new story.
func (a *App) Upload(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	story, err := a.client.CreateStory(ctx, a.config.UserName, path, data)
	if err != nil {
		return err
	}

	fmt.Printf("Uploaded story %s (expires %s)\n", story.ID, story.ExpiresAt.Format("15:04:05"))
	return nil
}

// Delete removes a story by id. The server enforces ownership unless an
// admin token is configured.
func (a *App) Delete(ctx context.Context, id string) error {
	if err := a.client.DeleteStory(ctx, id); err != nil {
		return err
	}
	fmt.Println("Deleted", id)
	return nil
}

func logErr(err error) {
	if err != nil {
		log.Printf("error: %v", err)
	}
}
