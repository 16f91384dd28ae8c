package jobrun

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// JobRun is one audit row per job execution, scheduled or manual. Details
// holds bounded counters, never record dumps.
type JobRun struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	JobName    string            `gorm:"type:text;not null;index" json:"job_name"`
	Status     Status            `gorm:"type:text;not null" json:"status"`
	Details    datatypes.JSONMap `gorm:"type:jsonb" json:"details"`
	DurationMS int64             `gorm:"not null" json:"duration_ms"`
	ExecutedAt time.Time         `gorm:"not null;index" json:"executed_at"`
}

func (JobRun) TableName() string { return "job_runs" }

type Recorder struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewRecorder(db *gorm.DB, log *zap.Logger, genID *snowflake.Node) *Recorder {
	return &Recorder{
		db:    db,
		log:   log.Named("jobrun"),
		genID: genID,
	}
}

// Record persists one audit row. A write failure is logged, not propagated:
// losing an audit row must not fail the job that produced it.
func (r *Recorder) Record(ctx context.Context, jobName string, status Status, details map[string]any, elapsed time.Duration, executedAt time.Time) {
	run := JobRun{
		ID:         r.genID.Generate(),
		JobName:    jobName,
		Status:     status,
		Details:    datatypes.JSONMap(details),
		DurationMS: elapsed.Milliseconds(),
		ExecutedAt: executedAt,
	}
	if err := r.db.WithContext(ctx).Create(&run).Error; err != nil {
		r.log.Error("record job run",
			zap.String("job_name", jobName),
			zap.Error(err),
		)
	}
}

var Module = fx.Module("jobrun",
	fx.Provide(NewRecorder),
)
