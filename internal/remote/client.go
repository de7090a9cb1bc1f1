package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resumeBuilder/internal/editor"
	"resumeBuilder/internal/resume"
)

const maxErrorBody = 8 * 1024

// Client 通过 REST 接口访问简历服务，实现编辑器所需的远端操作。
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ editor.RemoteAPI = (*Client)(nil)

// New 创建 Client。baseURL 形如 http://localhost:8080，token 为 access token。
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient 替换底层 http.Client，测试中用于接入 httptest.Server。
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// SetToken 更新 access token。
func (c *Client) SetToken(token string) {
	c.token = strings.TrimSpace(token)
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login 使用邮箱密码登录并保存 access token。
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out tokenPair
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", body, &out); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.SetToken(out.AccessToken)
	return nil
}

func (c *Client) FetchResume(ctx context.Context, resumeID uint) (resume.Resume, error) {
	var out resume.Resume
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/resumes/%d", resumeID), nil, &out)
	return out, wrap("fetch resume", err)
}

func (c *Client) UpdateResume(ctx context.Context, resumeID uint, patch resume.ResumePatch) (resume.Resume, error) {
	var out resume.Resume
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/v1/resumes/%d", resumeID), patch, &out)
	return out, wrap("update resume", err)
}

func (c *Client) CreateSection(ctx context.Context, resumeID uint, in resume.NewSection) (resume.Section, error) {
	var out resume.Section
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/resumes/%d/sections", resumeID), in, &out)
	return out, wrap("create section", err)
}

func (c *Client) UpdateSection(ctx context.Context, resumeID, sectionID uint, patch resume.SectionPatch) (resume.Section, error) {
	var out resume.Section
	err := c.do(ctx, http.MethodPatch, sectionPath(resumeID, sectionID), patch, &out)
	return out, wrap("update section", err)
}

func (c *Client) DeleteSection(ctx context.Context, resumeID, sectionID uint) error {
	return wrap("delete section", c.do(ctx, http.MethodDelete, sectionPath(resumeID, sectionID), nil, nil))
}

func (c *Client) ReorderSections(ctx context.Context, resumeID uint, pairs []resume.PositionPair) error {
	body := map[string][]resume.PositionPair{"sections": pairs}
	return wrap("reorder sections", c.do(ctx, http.MethodPut, fmt.Sprintf("/v1/resumes/%d/sections/reorder", resumeID), body, nil))
}

func (c *Client) CreateItem(ctx context.Context, resumeID, sectionID uint, in resume.NewItem) (resume.SectionItem, error) {
	var out resume.SectionItem
	err := c.do(ctx, http.MethodPost, sectionPath(resumeID, sectionID)+"/items", in, &out)
	return out, wrap("create item", err)
}

func (c *Client) UpdateItem(ctx context.Context, resumeID, sectionID, itemID uint, patch resume.ItemPatch) (resume.SectionItem, error) {
	var out resume.SectionItem
	err := c.do(ctx, http.MethodPatch, itemPath(resumeID, sectionID, itemID), patch, &out)
	return out, wrap("update item", err)
}

func (c *Client) DeleteItem(ctx context.Context, resumeID, sectionID, itemID uint) error {
	return wrap("delete item", c.do(ctx, http.MethodDelete, itemPath(resumeID, sectionID, itemID), nil, nil))
}

func (c *Client) ReorderItems(ctx context.Context, resumeID, sectionID uint, pairs []resume.PositionPair) error {
	body := map[string][]resume.PositionPair{"items": pairs}
	return wrap("reorder items", c.do(ctx, http.MethodPut, sectionPath(resumeID, sectionID)+"/items/reorder", body, nil))
}

func (c *Client) FetchDesign(ctx context.Context, resumeID uint) (resume.DesignConfig, error) {
	var out resume.DesignConfig
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/resumes/%d/design", resumeID), nil, &out)
	return out, wrap("fetch design", err)
}

func (c *Client) UpdateDesign(ctx context.Context, resumeID uint, patch resume.DesignPatch) error {
	return wrap("update design", c.do(ctx, http.MethodPatch, fmt.Sprintf("/v1/resumes/%d/design", resumeID), patch, nil))
}

func sectionPath(resumeID, sectionID uint) string {
	return fmt.Sprintf("/v1/resumes/%d/sections/%d", resumeID, sectionID)
}

func itemPath(resumeID, sectionID, itemID uint) string {
	return fmt.Sprintf("%s/items/%d", sectionPath(resumeID, sectionID), itemID)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("api base url missing")
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &StatusError{Status: resp.StatusCode, Message: msg}
}
