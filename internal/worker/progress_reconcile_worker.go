package worker

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"playbook_engine/internal/api/playbook/models"
	playbooksvc "playbook_engine/internal/api/playbook/service"
	"playbook_engine/internal/global"
	"playbook_engine/internal/logger"
)

// ProgressReconcileWorker recompute progress cho các run in_progress có
// updatedAt cũ hơn một khoảng an toàn. Đây là lưới an toàn cho trường hợp
// recompute đồng bộ sau completion thất bại: counters tự lành ở lần chạy này.
type ProgressReconcileWorker struct {
	runService   *playbooksvc.RunService
	interval     time.Duration // Khoảng thời gian giữa các lần chạy
	staleAfter   time.Duration // Run không được cập nhật lâu hơn khoảng này mới bị quét
	batchSize    int           // Số run tối đa mỗi lần
	storeTimeout time.Duration // Deadline cho từng lần gọi record store
}

// NewProgressReconcileWorker tạo mới ProgressReconcileWorker.
// Tham số:
//   - interval: Khoảng thời gian giữa các lần chạy (mặc định: 5 phút)
//   - batchSize: Số run tối đa mỗi lần (mặc định: 50)
func NewProgressReconcileWorker(interval time.Duration, batchSize int) (*ProgressReconcileWorker, error) {
	runService, err := playbooksvc.NewRunService()
	if err != nil {
		return nil, err
	}
	if interval < time.Minute {
		interval = 5 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	storeTimeoutMs := 0
	if global.MongoDB_ServerConfig != nil {
		storeTimeoutMs = global.MongoDB_ServerConfig.StoreTimeoutMs
	}
	return &ProgressReconcileWorker{
		runService:   runService,
		interval:     interval,
		staleAfter:   interval,
		batchSize:    batchSize,
		storeTimeout: storeCallTimeout(storeTimeoutMs),
	}, nil
}

// storeCallTimeout chuyển cấu hình STORE_TIMEOUT_MS thành deadline mỗi lần gọi
// store, mặc định 5 giây khi cấu hình thiếu hoặc không hợp lệ
func storeCallTimeout(ms int) time.Duration {
	if ms <= 0 {
		return 5 * time.Second
	}
	return time.Duration(ms) * time.Millisecond
}

// Start chạy worker trong vòng lặp: mỗi interval quét các run in_progress
// stale và recompute từng run. Recompute là idempotent nên quét trùng vô hại.
func (w *ProgressReconcileWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithFields(map[string]interface{}{
		"interval":  w.interval.String(),
		"batchSize": w.batchSize,
	}).Info("📈 [PROGRESS_RECONCILE] Starting Progress Reconcile Worker...")

	for {
		select {
		case <-ctx.Done():
			log.Info("📈 [PROGRESS_RECONCILE] Progress Reconcile Worker stopped")
			return
		case <-ticker.C:
			w.reconcileOnce(ctx)
		}
	}
}

// reconcileOnce quét một batch run stale và recompute từng run. Mỗi lần gọi
// store mang deadline riêng để Mongo treo không giữ worker quá một nhịp.
func (w *ProgressReconcileWorker) reconcileOnce(ctx context.Context) {
	log := logger.GetAppLogger()

	defer func() {
		if r := recover(); r != nil {
			log.WithFields(map[string]interface{}{
				"panic": r,
			}).Error("📈 [PROGRESS_RECONCILE] Panic khi reconcile, sẽ tiếp tục ở lần chạy tiếp theo")
		}
	}()

	staleBefore := time.Now().Add(-w.staleAfter).UnixMilli()
	filter := bson.M{
		"status":    models.RunStatusInProgress,
		"updatedAt": bson.M{"$lt": staleBefore},
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: 1}}).
		SetLimit(int64(w.batchSize))

	findCtx, cancelFind := context.WithTimeout(ctx, w.storeTimeout)
	runs, err := w.runService.Find(findCtx, filter, findOpts)
	cancelFind()
	if err != nil {
		log.WithError(err).Error("📈 [PROGRESS_RECONCILE] Lỗi lấy danh sách run stale")
		return
	}
	if len(runs) == 0 {
		return
	}

	reconciled := 0
	for _, run := range runs {
		runCtx, cancelRun := context.WithTimeout(ctx, w.storeTimeout)
		_, err := w.runService.RecomputeRunProgress(runCtx, run.ID)
		cancelRun()
		if err != nil {
			log.WithError(err).WithFields(map[string]interface{}{
				"runId": run.ID.Hex(),
			}).Warn("📈 [PROGRESS_RECONCILE] Recompute thất bại, bỏ qua và sẽ thử lại lần sau")
			continue
		}
		reconciled++
	}

	if reconciled > 0 {
		log.WithFields(map[string]interface{}{
			"reconciled": reconciled,
			"total":      len(runs),
		}).Info("📈 [PROGRESS_RECONCILE] Đã reconcile progress các run stale")
	}
}
