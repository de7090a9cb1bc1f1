package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"resumeBuilder/internal/api"
	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/errcode"
)

const resumePrintPath = "/v1/internal/resumes/%d/print"

// fetchPrintData 从后端内部打印接口拉取渲染数据。
// 只允许 Worker 通过 Header 携带 INTERNAL_API_SECRET 访问。
func fetchPrintData(ctx context.Context, client *http.Client, baseURL string, resumeID uint, secret, correlationID string) (api.PrintData, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return api.PrintData{}, fmt.Errorf("internal api secret missing")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return api.PrintData{}, fmt.Errorf("internal api base url missing")
	}

	targetURL := baseURL + fmt.Sprintf(resumePrintPath, resumeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return api.PrintData{}, fmt.Errorf("build internal request: %w", err)
	}
	req.Header.Set(middleware.InternalSecretHeader, secret)
	if correlationID != "" {
		req.Header.Set(middleware.CorrelationIDHeader, correlationID)
	}

	resp, err := client.Do(req)
	if err != nil {
		return api.PrintData{}, fmt.Errorf("request internal print data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return api.PrintData{}, &printDataStatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var data api.PrintData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return api.PrintData{}, fmt.Errorf("decode internal print data: %w", err)
	}
	return data, nil
}

type printDataStatusError struct {
	Status int
	Body   string
}

func (e *printDataStatusError) Error() string {
	return fmt.Sprintf("internal print data status %d: %s", e.Status, e.Body)
}

// extractResourceMissingWarning 汇总 4004 警告中的缺失 key，去重并保持顺序。
func extractResourceMissingWarning(data api.PrintData) (missingKeys []string, hasWarning bool) {
	uniq := make(map[string]struct{})
	for _, w := range data.Warnings {
		if w.Code != errcode.ResourceMissing {
			continue
		}
		hasWarning = true
		for _, k := range w.MissingKeys {
			key := strings.TrimSpace(k)
			if key == "" {
				continue
			}
			if _, ok := uniq[key]; ok {
				continue
			}
			uniq[key] = struct{}{}
			missingKeys = append(missingKeys, key)
		}
	}
	return missingKeys, hasWarning
}
