package app

import (
	"context"
	"os"
	"time"

	"go.uber.org/fx"

	docstore "github.com/bduoto/omtx-hub/pkg/hub/adapter/docstore"
	storage "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage"
	export "github.com/bduoto/omtx-hub/pkg/hub/component/export"
	usecase "github.com/bduoto/omtx-hub/pkg/hub/core/application/usecase"
	config "github.com/bduoto/omtx-hub/pkg/hub/core/config"
	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	infraMetrics "github.com/bduoto/omtx-hub/pkg/hub/infrastructure/metrics"
	remote "github.com/bduoto/omtx-hub/pkg/hub/infrastructure/remote"
	repository "github.com/bduoto/omtx-hub/pkg/hub/infrastructure/repository"
	notification "github.com/bduoto/omtx-hub/pkg/hub/listener/notification"
	"github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
	"github.com/bduoto/omtx-hub/pkg/hub/support/util/serialization"
)

// RunApplication sets up and runs the hub daemon using uber-fx.
//
// With an empty batchRequestPath the daemon runs the completion monitor until
// the supplied context is cancelled. With a path it additionally submits the
// batch described by that JSON file at startup, waits for it to finish, logs
// the reconciled summary and shuts down.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, batchRequestPath string) {
	app := fx.New(
		fx.Supply(
			embeddedConfig,
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
			fx.Annotate(batchRequestPath, fx.ResultTags(`name:"batchRequestPath"`)),
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
		),

		logger.Module,
		config.Module,
		infraMetrics.Module,

		docstore.Module,
		storage.Module,
		repository.Module,
		remote.Module,

		usecase.Module,
		export.Module,
		notification.Module,

		fx.Invoke(fx.Annotate(startBatchExecution, fx.ParamTags(
			"", // lc fx.Lifecycle
			"", // shutdowner fx.Shutdowner
			"", // submitter usecase.BatchSubmitter
			"", // query usecase.BatchQuery
			`name:"appCtx"`,
			`name:"batchRequestPath"`,
		))),
	)

	app.Run()

	if app.Err() != nil {
		logger.Fatalf("Application run failed: %v", app.Err())
	}
}

// startBatchExecution registers the one-shot submission flow when a batch
// request file was given. In daemon mode there is nothing to do here; the
// completion monitor is already tied to the Fx lifecycle.
func startBatchExecution(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	submitter usecase.BatchSubmitter,
	query usecase.BatchQuery,
	appCtx context.Context,
	batchRequestPath string,
) {
	if batchRequestPath == "" {
		logger.Infof("No batch request file given, running in daemon mode.")
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go runBatchToCompletion(appCtx, shutdowner, submitter, query, batchRequestPath)
			return nil
		},
	})
}

// runBatchToCompletion submits the batch from the request file, waits until
// the parent record is terminal and logs the reconciled summary.
func runBatchToCompletion(
	appCtx context.Context,
	shutdowner fx.Shutdowner,
	submitter usecase.BatchSubmitter,
	query usecase.BatchQuery,
	requestPath string,
) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Panic recovered in batch execution: %v", r)
		}
		if err := shutdowner.Shutdown(); err != nil {
			logger.Errorf("Failed to shutdown application: %v", err)
		}
	}()

	data, err := os.ReadFile(requestPath)
	if err != nil {
		logger.Errorf("Failed to read batch request file '%s': %v", requestPath, err)
		return
	}
	var req model.BatchRequest
	if err := serialization.UnmarshalJSON(data, &req); err != nil {
		logger.Errorf("Failed to parse batch request file '%s': %v", requestPath, err)
		return
	}

	ack, err := submitter.SubmitBatch(appCtx, &req)
	if err != nil {
		logger.Errorf("Batch submission failed: %v", err)
		return
	}
	logger.Infof("Batch '%s' accepted with %d jobs, waiting for completion...", ack.BatchID, ack.TotalJobs)

	parent, err := waitForBatch(appCtx, query, ack.BatchID)
	if err != nil {
		logger.Errorf("Stopped waiting for batch '%s': %v", ack.BatchID, err)
		return
	}

	page, err := query.GetBatchResults(appCtx, ack.BatchID, usecase.PageRequest{Page: 1})
	if err != nil {
		logger.Errorf("Failed to load results for batch '%s': %v", ack.BatchID, err)
		return
	}
	logger.Infof("Batch '%s' finished with status '%s': %d completed, %d failed of %d jobs (success rate %.1f%%).",
		ack.BatchID, parent.Status,
		page.Summary.CompletedJobs, page.Summary.FailedJobs, page.Summary.TotalJobs,
		page.Summary.SuccessRate*100)
}

// waitForBatch polls the parent record until it reaches a terminal status or
// the context is cancelled.
func waitForBatch(ctx context.Context, query usecase.BatchQuery, batchID string) (*model.JobRecord, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			parent, err := query.GetJob(ctx, batchID)
			if err != nil {
				return nil, err
			}
			if parent.Status.IsTerminal() {
				return parent, nil
			}
		}
	}
}
