// Package tableau fetches the per-department message export from the BI
// server: PAT sign-in, workbook/view lookup by name, CSV download with date
// filters.
package tableau

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/TPSMaidscc/chat-audit/internal/ingest"
	"github.com/TPSMaidscc/chat-audit/internal/models"
)

// Source supplies the message-event table for one view and analysis date.
type Source interface {
	FetchEvents(ctx context.Context, viewName string, date string) ([]models.MessageEvent, error)
}

// FetchError marks a data-source failure; the batch for that department is
// aborted, never fed partially-populated input.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("tableau %s: %v", e.Op, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

type Client struct {
	BaseURL      string
	APIVersion   string
	TokenName    string
	TokenValue   string
	SiteContent  string
	WorkbookName string
	HTTPClient   *http.Client
	MaxRetryTime time.Duration
	Logger       zerolog.Logger
}

const lookupPageSize = 100

func (c *Client) FetchEvents(ctx context.Context, viewName string, date string) ([]models.MessageEvent, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if c.MaxRetryTime <= 0 {
		c.MaxRetryTime = 45 * time.Second
	}

	token, siteID, err := c.signIn(ctx)
	if err != nil {
		return nil, &FetchError{Op: "sign-in", Err: err}
	}
	defer c.signOut(ctx, token)

	workbookID, err := c.workbookID(ctx, token, siteID)
	if err != nil {
		return nil, &FetchError{Op: "workbook lookup", Err: err}
	}
	viewID, err := c.viewID(ctx, token, siteID, workbookID, viewName)
	if err != nil {
		return nil, &FetchError{Op: "view lookup", Err: err}
	}

	raw, err := c.downloadCSV(ctx, token, siteID, viewID, date, date)
	if err != nil {
		return nil, &FetchError{Op: "download", Err: err}
	}

	// The export leaks narrow no-break spaces into timestamp cells.
	raw = strings.ReplaceAll(raw, "\u202f", " ")

	events, rowErrs, err := ingest.ParseEvents(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if len(rowErrs) > 0 {
		c.Logger.Warn().
			Str("view", viewName).
			Int("skipped_rows", len(rowErrs)).
			Str("first", rowErrs[0]).
			Msg("export rows skipped")
	}
	c.Logger.Info().Str("view", viewName).Str("date", date).Int("rows", len(events)).Msg("export fetched")
	return events, nil
}

type signInRequest struct {
	Credentials struct {
		PersonalAccessTokenName   string `json:"personalAccessTokenName"`
		PersonalAccessTokenSecret string `json:"personalAccessTokenSecret"`
		Site                      struct {
			ContentURL string `json:"contentUrl"`
		} `json:"site"`
	} `json:"credentials"`
}

type signInResponse struct {
	Credentials struct {
		Token string `json:"token"`
		Site  struct {
			ID string `json:"id"`
		} `json:"site"`
	} `json:"credentials"`
}

func (c *Client) signIn(ctx context.Context) (string, string, error) {
	var payload signInRequest
	payload.Credentials.PersonalAccessTokenName = c.TokenName
	payload.Credentials.PersonalAccessTokenSecret = c.TokenValue
	payload.Credentials.Site.ContentURL = c.SiteContent

	body, _ := json.Marshal(payload)
	endpoint := fmt.Sprintf("%s/api/%s/auth/signin", c.BaseURL, c.APIVersion)

	var resp signInResponse
	err := c.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return c.decodeJSON(req, &resp)
	})
	if err != nil {
		return "", "", err
	}
	if resp.Credentials.Token == "" || resp.Credentials.Site.ID == "" {
		return "", "", errors.New("sign-in response missing credentials")
	}
	return resp.Credentials.Token, resp.Credentials.Site.ID, nil
}

func (c *Client) signOut(ctx context.Context, token string) {
	endpoint := fmt.Sprintf("%s/api/%s/auth/signout", c.BaseURL, c.APIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return
	}
	req.Header.Set("X-Tableau-Auth", token)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Debug().Err(err).Msg("sign-out failed")
		return
	}
	resp.Body.Close()
}

type workbooksPage struct {
	Workbooks struct {
		Workbook []namedItem `json:"workbook"`
	} `json:"workbooks"`
}

type viewsPage struct {
	Views struct {
		View []namedItem `json:"view"`
	} `json:"views"`
}

type namedItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *Client) workbookID(ctx context.Context, token, siteID string) (string, error) {
	for page := 1; ; page++ {
		endpoint := fmt.Sprintf("%s/api/%s/sites/%s/workbooks?pageSize=%d&pageNumber=%d",
			c.BaseURL, c.APIVersion, siteID, lookupPageSize, page)
		var resp workbooksPage
		if err := c.getJSON(ctx, endpoint, token, &resp); err != nil {
			return "", err
		}
		for _, wb := range resp.Workbooks.Workbook {
			if wb.Name == c.WorkbookName {
				return wb.ID, nil
			}
		}
		if len(resp.Workbooks.Workbook) < lookupPageSize {
			return "", fmt.Errorf("workbook %q not found", c.WorkbookName)
		}
	}
}

func (c *Client) viewID(ctx context.Context, token, siteID, workbookID, viewName string) (string, error) {
	for page := 1; ; page++ {
		endpoint := fmt.Sprintf("%s/api/%s/sites/%s/workbooks/%s/views?pageSize=%d&pageNumber=%d",
			c.BaseURL, c.APIVersion, siteID, workbookID, lookupPageSize, page)
		var resp viewsPage
		if err := c.getJSON(ctx, endpoint, token, &resp); err != nil {
			return "", err
		}
		for _, v := range resp.Views.View {
			if v.Name == viewName {
				return v.ID, nil
			}
		}
		if len(resp.Views.View) < lookupPageSize {
			return "", fmt.Errorf("view %q not found in workbook", viewName)
		}
	}
}

func (c *Client) downloadCSV(ctx context.Context, token, siteID, viewID, from, to string) (string, error) {
	params := url.Values{}
	params.Set("vf_From", from)
	params.Set("vf_To", to)
	params.Set("vf_ActionDate", from+":"+to)
	endpoint := fmt.Sprintf("%s/api/%s/sites/%s/views/%s/data?%s",
		c.BaseURL, c.APIVersion, siteID, viewID, params.Encode())

	var data string
	err := c.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("X-Tableau-Auth", token)
		req.Header.Set("Accept", "*/*")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := statusErr(resp); err != nil {
			return err
		}
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		data = string(b)
		return nil
	})
	return data, err
}

func (c *Client) getJSON(ctx context.Context, endpoint, token string, out any) error {
	return c.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("X-Tableau-Auth", token)
		req.Header.Set("Accept", "application/json")
		return c.decodeJSON(req, out)
	})
}

func (c *Client) decodeJSON(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := statusErr(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// statusErr treats client errors as permanent so backoff stops retrying a
// bad token or request.
func statusErr(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return backoff.Permanent(err)
	}
	return err
}

func (c *Client) withRetry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.MaxRetryTime
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}
