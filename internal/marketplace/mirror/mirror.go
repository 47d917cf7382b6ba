package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"marketplace-mirror/internal/marketplace/model"
)

type RecordFetcher interface {
	Fetch(ctx context.Context) ([]model.Record, error)
}

type RecordWriter interface {
	Initialize(ctx context.Context, endpoint, key string) error
	Insert(ctx context.Context, rec model.Record) (bool, error)
}

// Summary 一次运行的计数
type Summary struct {
	Fetched  int
	Inserted int
	Skipped  int
	Failed   int
}

// Runner 初始化文档库 → 拉取 feed → 逐条去重写入
type Runner struct {
	Log      *zap.Logger
	Fetcher  RecordFetcher
	Writer   RecordWriter
	Out      io.Writer // 进度行输出，一般是 stdout
	Endpoint string
	Key      string
}

// Run 按顺序执行一次镜像。
// 初始化或拉取失败时直接返回；单条写入失败记录后继续，最后合并返回。
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	if err := r.Writer.Initialize(ctx, r.Endpoint, r.Key); err != nil {
		return sum, err
	}

	records, err := r.Fetcher.Fetch(ctx)
	if err != nil {
		r.Log.Error("Feed fetch failed, nothing inserted", zap.Error(err))
		return sum, err
	}
	sum.Fetched = len(records)
	r.Log.Info("Fetched marketplace feed", zap.Int("records", sum.Fetched))

	var insertErrs []error
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			insertErrs = append(insertErrs, fmt.Errorf("%w: %w", model.ErrInsert, err))
			break
		}

		identity, _ := rec.Identity()
		inserted, err := r.Writer.Insert(ctx, rec)
		if err != nil {
			sum.Failed++
			r.Log.Error("Failed to insert record",
				zap.Int("index", i),
				zap.String("identity", identity),
				zap.String("name", rec.DisplayName()),
				zap.Error(err),
			)
			insertErrs = append(insertErrs, fmt.Errorf("record %d (%s): %w", i, identity, err))
			continue
		}
		if !inserted {
			sum.Skipped++
			continue
		}

		sum.Inserted++
		if r.Out != nil {
			_, _ = fmt.Fprintf(r.Out, "Inserted identity %s to DocDB\n", rec.DisplayName())
		}
	}

	r.Log.Info("Mirror run completed",
		zap.Int("fetched", sum.Fetched),
		zap.Int("inserted", sum.Inserted),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
	)

	return sum, errors.Join(insertErrs...)
}
