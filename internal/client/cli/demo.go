package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophboard/internal/activity"
	"github.com/iudanet/gophboard/internal/client/docview"
	"github.com/iudanet/gophboard/internal/client/iocli"
	"github.com/iudanet/gophboard/internal/client/storage/boltdb"
	"github.com/iudanet/gophboard/internal/config"
	"github.com/iudanet/gophboard/internal/diff"
	"github.com/iudanet/gophboard/internal/directory"
	"github.com/iudanet/gophboard/internal/document"
	"github.com/iudanet/gophboard/internal/eventbus"
	"github.com/iudanet/gophboard/internal/models"
	"github.com/iudanet/gophboard/internal/session"
	"github.com/iudanet/gophboard/internal/transport"
	"github.com/iudanet/gophboard/internal/versions"
)

const demoWait = 3 * time.Second

func newDemoCommand(r *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run Alice and Bob editing one document in this process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := config.NewLogger(r.logOut, r.cfg.LogLevel)
			if err != nil {
				return err
			}
			dir, err := os.MkdirTemp("", "gophboard-demo-*")
			if err != nil {
				return err
			}
			defer func() { _ = os.RemoveAll(dir) }()

			return runDemo(cmd.Context(), r.io, logger, filepath.Join(dir, "demo.db"))
		},
	}
}

// demoPeer один участник демо со своей сессией и представлением документа
type demoPeer struct {
	name string
	view *docview.View
}

func (p demoPeer) text() string {
	text, err := p.view.Text()
	if err != nil {
		return ""
	}
	return text
}

// runDemo разыгрывает совместную правку документа двумя пользователями
// поверх p2p-транспорта и шины событий в памяти.
func runDemo(ctx context.Context, out iocli.IO, logger *slog.Logger, dbPath string) error {
	store, err := boltdb.New(ctx, dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	dir := directory.New()
	mesh := transport.NewMesh()
	bus := eventbus.NewMemory()
	defer func() { _ = bus.Close() }()

	feed := activity.NewStore(activity.DefaultCapacity)
	bridge := activity.NewBridge(feed, dir, logger)
	unsubscribe, err := bridge.Attach(ctx, bus, "1")
	if err != nil {
		return err
	}
	defer unsubscribe()

	svc := versions.NewService(store, logger)
	differ := diff.NewDiffer(logger)
	doc, _ := dir.Document("doc-1")

	open := func(userID string) (demoPeer, error) {
		user, _ := dir.User(userID)
		sessions := session.NewManager(mesh, logger, session.Options{UserID: userID})
		view, err := docview.Open(ctx, docview.Deps{
			Sessions: sessions,
			Versions: svc,
			Bus:      bus,
			Differ:   differ,
			Logger:   logger,
		}, docview.Config{
			Document:        doc,
			User:            user,
			Role:            dir.Role(doc.ProjectID, userID),
			DisableAutoSave: true,
		})
		if err != nil {
			return demoPeer{}, err
		}
		return demoPeer{name: user.Name, view: view}, nil
	}

	alice, err := open("userA")
	if err != nil {
		return err
	}
	defer func() { _ = alice.view.Close() }()
	bob, err := open("userB")
	if err != nil {
		return err
	}
	defer func() { _ = bob.view.Close() }()

	if err := waitUntil(ctx, func() bool {
		return alice.view.Session().PeerCount() == 2 && bob.view.Session().PeerCount() == 2
	}); err != nil {
		return fmt.Errorf("peers did not meet: %w", err)
	}
	out.Printf("Alice: %s\nBob:   %s\n\n", alice.view.Status(), bob.view.Status())

	if err := alice.view.Edit(document.Insert(0, "hello world")); err != nil {
		return err
	}
	if err := waitUntil(ctx, func() bool { return bob.text() == "hello world" }); err != nil {
		return fmt.Errorf("bob did not receive alice's edit: %w", err)
	}
	first, err := alice.view.SaveVersion(ctx, "Draft")
	if err != nil {
		return err
	}
	out.Printf("Alice typed, Bob sees: %q\n", bob.text())

	if err := bob.view.Edit(document.Insert(5, " brave")); err != nil {
		return err
	}
	if err := bob.view.Edit(document.Format(6, 5, models.MarkBold)); err != nil {
		return err
	}
	if err := waitUntil(ctx, func() bool { return alice.text() == "hello brave world" }); err != nil {
		return fmt.Errorf("alice did not receive bob's edit: %w", err)
	}
	second, err := bob.view.SaveVersion(ctx, "Reviewed")
	if err != nil {
		return err
	}
	out.Printf("Bob edited, Alice sees: %q\n", alice.text())

	html, err := alice.view.HTML()
	if err != nil {
		return err
	}
	out.Printf("HTML: %s\n\n", html)

	cmp, err := alice.view.Compare(ctx, first.ID, second.ID)
	if err != nil {
		return err
	}
	out.Printf("Diff %q -> %q: %s\n\n", cmp.Older.Title, cmp.Newer.Title, formatSegments(cmp.Segments))

	if _, _, err := dir.MoveTask("task-1", "board-2"); err != nil {
		return err
	}
	if err := bus.Publish(ctx, eventbus.NewEvent("1", eventbus.CardMove, map[string]any{
		"taskId":      "task-1",
		"fromBoardId": "board-1",
		"toBoardId":   "board-2",
	}, "userB")); err != nil {
		return err
	}

	out.Println("Activity:")
	printActivity(out, feed.ByProject("1"), time.Now())
	return nil
}

func waitUntil(ctx context.Context, cond func() bool) error {
	ctx, cancel := context.WithTimeout(ctx, demoWait)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for !cond() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
