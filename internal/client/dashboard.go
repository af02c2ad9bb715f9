package client

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dashboard is everything the home screen shows. Each part loads
// independently; a failed part leaves its value nil and sets its error.
type Dashboard struct {
	Latest     *Draw
	LatestErr  error
	Pool       *PoolStatus
	PoolErr    error
	MyLines    *MyLines
	MyLinesErr error
	Free       *FreeStatus
	FreeErr    error
}

// Err returns the first part error, if any.
func (d *Dashboard) Err() error {
	for _, err := range []error{d.LatestErr, d.PoolErr, d.MyLinesErr, d.FreeErr} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Dashboard loads the home screen in parallel. Anonymous sessions only
// fetch the latest draw.
func (c *Client) Dashboard(ctx context.Context) *Dashboard {
	var d Dashboard
	// plain Group: one failing part must not cancel the others
	var g errgroup.Group

	g.Go(func() error {
		d.Latest, d.LatestErr = c.Latest(ctx)
		return nil
	})
	if c.session.AccessToken() != "" {
		g.Go(func() error {
			d.Pool, d.PoolErr = c.PoolStatus(ctx)
			return nil
		})
		g.Go(func() error {
			d.MyLines, d.MyLinesErr = c.MyLines(ctx)
			return nil
		})
		g.Go(func() error {
			d.Free, d.FreeErr = c.FreeStatus(ctx)
			return nil
		})
	}
	_ = g.Wait()

	if err := d.Err(); err != nil {
		c.log.Debug("dashboard partially loaded", zap.Error(err))
	}
	return &d
}
