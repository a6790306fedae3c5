package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Relay copies bytes between client and target in both directions until
// either direction hits end-of-stream or an I/O error. The moment one
// direction finishes, both connections are closed so the pending read or
// write of the other direction unblocks; Relay returns only after both
// directions have finished. Canceling ctx also closes both connections.
func Relay(ctx context.Context, client, target net.Conn) error {
	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = client.Close()
			_ = target.Close()
		})
	}
	defer closeBoth()

	stop := context.AfterFunc(ctx, closeBoth)
	defer stop()

	var g errgroup.Group

	g.Go(func() error {
		_, err := io.Copy(target, client)
		closeBoth()
		return err
	})

	g.Go(func() error {
		_, err := io.Copy(client, target)
		closeBoth()
		return err
	})

	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		// One direction ending closes both conns; the paired direction's
		// closed-connection error is the expected shutdown signal, not a
		// failure.
		err = nil
	}
	return err
}
