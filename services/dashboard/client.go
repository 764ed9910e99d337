// Package dashboard reads the server side learner dashboard aggregate.
package dashboard

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/pathways/core"
	"github.com/trezcool/pathways/core/progress"
)

const dashboardPath = "/v1/learners/{learnerID}/dashboard"

// Fetcher is anything that can fetch the dashboard aggregate of a learner.
type Fetcher interface {
	Fetch(ctx context.Context, learnerID string) (*progress.DashboardSnapshot, error)
}

type Client struct {
	http *resty.Client
}

var _ Fetcher = (*Client)(nil)

func NewClient(conf core.DashboardConfig) *Client {
	c := resty.New().
		SetBaseURL(conf.BaseURL).
		SetTimeout(conf.Timeout).
		SetHeader("Accept", "application/json")
	if conf.Token != "" {
		c.SetAuthToken(conf.Token)
	}
	return &Client{http: c}
}

func (c *Client) Fetch(ctx context.Context, learnerID string) (*progress.DashboardSnapshot, error) {
	var snap progress.DashboardSnapshot
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("learnerID", learnerID).
		SetResult(&snap).
		Get(dashboardPath)
	if err != nil {
		return nil, errors.Wrap(err, "fetching dashboard")
	}
	if resp.IsError() {
		return nil, errors.Errorf("fetching dashboard: unexpected status %d", resp.StatusCode())
	}
	return &snap, nil
}
