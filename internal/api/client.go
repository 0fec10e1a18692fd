package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "CHAPEL_HTTP_TIMEOUT"
	apiTokenEnvKey     = "CHAPEL_API_TOKEN"
)

// Client is a simple HTTP client for the chapel API.
type Client struct {
	baseURL   string
	http      *http.Client
	authToken string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: httpTimeoutFromEnv()},
		authToken: strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, nil, &resp)
	return resp, err
}

func (c *Client) CreatePost(ctx context.Context, req PostCreateRequest) (PostResponse, error) {
	var resp PostResponse
	err := c.do(ctx, http.MethodPost, "/v1/posts", nil, req, &resp)
	return resp, err
}

// UploadPost creates a post from a multipart form with the image as a file
// part, the way a browser form submits it.
func (c *Client) UploadPost(ctx context.Context, req PostCreateRequest, filename string, image io.Reader) (PostResponse, error) {
	var resp PostResponse

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, value := range map[string]string{
		"title":    req.Title,
		"content":  req.Content,
		"category": req.Category,
	} {
		if err := mw.WriteField(field, value); err != nil {
			return resp, err
		}
	}
	if image != nil {
		if filename == "" {
			filename = "image"
		}
		part, err := mw.CreateFormFile("image", filename)
		if err != nil {
			return resp, err
		}
		if _, err := io.Copy(part, image); err != nil {
			return resp, err
		}
	}
	if err := mw.Close(); err != nil {
		return resp, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/posts/upload", &body)
	if err != nil {
		return resp, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	c.setAuthHeader(httpReq)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

func (c *Client) GetPost(ctx context.Context, id int64) (PostResponse, error) {
	var resp PostResponse
	err := c.do(ctx, http.MethodGet, postPath(id), nil, nil, &resp)
	return resp, err
}

// ListPosts lists every post, or only those in category when it is set.
func (c *Client) ListPosts(ctx context.Context, category string, withImages bool) ([]PostResponse, error) {
	query := url.Values{}
	if category != "" {
		query.Set("category", category)
	}
	if !withImages {
		query.Set("images", "false")
	}
	var resp []PostResponse
	err := c.do(ctx, http.MethodGet, "/v1/posts", query, nil, &resp)
	return resp, err
}

func (c *Client) SearchPosts(ctx context.Context, q string, withImages bool) ([]PostResponse, error) {
	query := url.Values{}
	query.Set("q", q)
	if !withImages {
		query.Set("images", "false")
	}
	var resp []PostResponse
	err := c.do(ctx, http.MethodGet, "/v1/posts", query, nil, &resp)
	return resp, err
}

func (c *Client) RecentPosts(ctx context.Context, limit int) ([]PostResponse, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	query.Set("images", "false")
	var resp []PostResponse
	err := c.do(ctx, http.MethodGet, "/v1/posts/recent", query, nil, &resp)
	return resp, err
}

// GetImage returns the raw image bytes of a post and their media type.
func (c *Client) GetImage(ctx context.Context, id int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+postPath(id)+"/image", nil)
	if err != nil {
		return nil, "", err
	}
	c.setAuthHeader(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, "", decodeError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) GetCard(ctx context.Context, id int64, excerptLength int) (CardResponse, error) {
	query := url.Values{}
	if excerptLength > 0 {
		query.Set("excerpt", strconv.Itoa(excerptLength))
	}
	var resp CardResponse
	err := c.do(ctx, http.MethodGet, postPath(id)+"/card", query, nil, &resp)
	return resp, err
}

// Import sends NDJSON records to the import endpoint. When the server
// aborts after storing some posts, the returned response lists them
// alongside the error.
func (c *Client) Import(ctx context.Context, records io.Reader) (ImportResponse, error) {
	var resp ImportResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/import", records)
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	c.setAuthHeader(req)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		var partial ImportErrorResponse
		if json.Unmarshal(body, &partial) == nil {
			resp.Created = partial.Created
			resp.PostIDs = partial.PostIDs
		}
		return resp, errorFromBody(httpResp, body)
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Export streams NDJSON export to a writer.
func (c *Client) Export(ctx context.Context, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/export", nil)
	if err != nil {
		return err
	}
	c.setAuthHeader(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

const maxErrorBody = 1 << 20

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return errorFromBody(resp, body)
}

func errorFromBody(resp *http.Response, body []byte) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		apiErr.Code = errResp.Code
		apiErr.ErrorCode = errResp.ErrorCode
		apiErr.Message = errResp.Error
		return apiErr
	}
	apiErr.Message = fmt.Sprintf("api error: %s", resp.Status)
	return apiErr
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.authToken == "" || req == nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
}

func postPath(id int64) string {
	return "/v1/posts/" + strconv.FormatInt(id, 10)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
