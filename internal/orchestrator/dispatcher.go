// Package orchestrator gửi notification hoàn thành step tới run orchestrator
// bên ngoài qua HTTP. Giao thức là best-effort: orchestrator có vòng
// reconciliation riêng nên notification thất bại không cần cơ chế bù.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	playbooksvc "playbook_engine/internal/api/playbook/service"
	"playbook_engine/internal/logger"
)

// Dispatcher gọi orchestrator qua HTTP POST với timeout riêng và tối đa
// một lần retry
type Dispatcher struct {
	url     string
	timeout time.Duration
	retry   bool
	client  *http.Client
}

// NewDispatcher tạo Dispatcher. URL rỗng trả về nil - caller nên coi nil là
// disabled thay vì tạo dispatcher không có đích.
func NewDispatcher(url string, timeoutMs int, retry bool) *Dispatcher {
	if url == "" {
		return nil
	}
	timeout := time.Duration(timeoutMs) * time.Millisecond
	return &Dispatcher{
		url:     url,
		timeout: timeout,
		retry:   retry,
		client:  &http.Client{Timeout: timeout},
	}
}

// NotifyStepCompletion gửi notification một lần, retry một lần nếu được cấu
// hình. Trả lỗi của lần gọi cuối cùng; caller quyết định nuốt hay không.
func (d *Dispatcher) NotifyStepCompletion(ctx context.Context, notification playbooksvc.StepCompletionNotification) error {
	err := d.post(ctx, notification)
	if err == nil || !d.retry {
		return err
	}

	logger.GetAppLogger().WithError(err).WithField("run_id", notification.RunID).Warn("🚀 [ORCHESTRATOR] Lần gọi đầu thất bại, retry một lần")
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(500 * time.Millisecond):
	}
	return d.post(ctx, notification)
}

func (d *Dispatcher) post(ctx context.Context, notification playbooksvc.StepCompletionNotification) error {
	jsonData, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", d.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("orchestrator returned status %d", resp.StatusCode)
	}

	return nil
}
