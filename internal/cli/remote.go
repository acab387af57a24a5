package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"plugind/pkg/types"
)

// remote talks to a running plugind over its HTTP API.
type remote struct {
	client *resty.Client
}

func newRemote(base string) *remote {
	c := resty.New().
		SetBaseURL(strings.TrimRight(base, "/")).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")
	return &remote{client: c}
}

func (r *remote) plugins(ctx context.Context) (types.PluginsResponse, error) {
	var out types.PluginsResponse
	resp, err := r.client.R().SetContext(ctx).SetResult(&out).SetError(&types.ErrorResponse{}).Get("/plugins")
	if err := check(resp, err); err != nil {
		return out, err
	}
	return out, nil
}

func (r *remote) dispatch(ctx context.Context, req types.DispatchRequest) (types.DispatchResponse, error) {
	var out types.DispatchResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&types.ErrorResponse{}).
		Post("/dispatch")
	if err := check(resp, err); err != nil {
		return out, err
	}
	return out, nil
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("plugind request: %w", err)
	}
	if resp.IsError() {
		if e, ok := resp.Error().(*types.ErrorResponse); ok && e.Error != "" {
			return fmt.Errorf("plugind: %s (%d)", e.Error, resp.StatusCode())
		}
		return fmt.Errorf("plugind: unexpected status %s", resp.Status())
	}
	return nil
}
