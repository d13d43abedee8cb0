package functions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type errorBody struct {
	Error string `json:"error"`
}

// HTTPInvoker calls functions hosted behind baseURL as POST <baseURL>/<name>.
type HTTPInvoker struct {
	client *resty.Client
}

func NewHTTPInvoker(baseURL, apiKey string, timeout time.Duration) *HTTPInvoker {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "socialdesk-functions")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &HTTPInvoker{client: client}
}

func (h *HTTPInvoker) Invoke(ctx context.Context, name string, in, out any) error {
	var failure errorBody
	req := h.client.R().
		SetContext(ctx).
		SetBody(in).
		SetError(&failure)
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Post("/" + name)
	if err != nil {
		slog.Info(err.Error(), "function", name)
		return fmt.Errorf("invoke %s: %w", name, err)
	}

	if resp.StatusCode() == 404 {
		return fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	if resp.IsError() {
		msg := failure.Error
		if msg == "" {
			msg = resp.Status()
		}
		return &Error{Function: name, Message: msg}
	}
	return nil
}
